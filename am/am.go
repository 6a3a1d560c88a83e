// Package am manages scb configuration: TOML files merged with environment
// variables, defaults, validation, and persistence of CLI edits.
package am

import "github.com/OliverSieweke/supermarket-customer-behavior/dataset"

// Config represents the core scb configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Data     DataConfig     `mapstructure:"data"`
	Server   ServerConfig   `mapstructure:"server"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Sim      SimConfig      `mapstructure:"sim"`

	// RequireVersion is an optional semver constraint the running binary must
	// satisfy (e.g. ">= 1.2.0"). Guards shared config files against old binaries.
	RequireVersion string `mapstructure:"require_version"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DataConfig configures the raw visit data source
type DataConfig struct {
	Dir              string `mapstructure:"dir"`               // directory holding <weekday>.csv files
	EntranceLocation string `mapstructure:"entrance_location"` // synthetic first location (default: entrance)
	CheckoutLocation string `mapstructure:"checkout_location"` // absorbing last location (default: checkout)
}

// Layout returns the configured store layout that annotation, the transition
// matrix and the simulator operate on.
func (d DataConfig) Layout() dataset.Layout {
	return dataset.Layout{Entrance: d.EntranceLocation, Checkout: d.CheckoutLocation}
}

// ServerConfig configures the reporting server
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// IngestConfig configures the async ingestion pipeline
type IngestConfig struct {
	Workers             int `mapstructure:"workers"`               // concurrent job workers (default: 1)
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"` // queue poll cadence (default: 2)
	JobsPerMinute       int `mapstructure:"jobs_per_minute"`       // dequeue rate limit, 0 = unlimited
	WatchDebounceMs     int `mapstructure:"watch_debounce_ms"`     // data-dir watcher debounce (default: 500)
}

// SimConfig configures the Markov simulation defaults
type SimConfig struct {
	Customers int   `mapstructure:"customers"` // synthetic customers per run (default: 1000)
	Seed      int64 `mapstructure:"seed"`      // 0 = derive from wall clock
	MaxSteps  int   `mapstructure:"max_steps"` // per-customer step cap (default: 100)
}

// Server port constants
const (
	DefaultServerPort = 8741 // above the privileged range, unlikely to collide
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
