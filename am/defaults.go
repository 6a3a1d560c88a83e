package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "scb.db")

	// Data defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.entrance_location", "entrance")
	v.SetDefault("data.checkout_location", "checkout")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// Ingest (async job infrastructure) defaults
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.poll_interval_seconds", 2)
	v.SetDefault("ingest.jobs_per_minute", 0) // unlimited by default; CSV ingestion is local I/O
	v.SetDefault("ingest.watch_debounce_ms", 500)

	// Simulation defaults
	v.SetDefault("sim.customers", 1000)
	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.max_steps", 100)
}
