// Package sym defines canonical symbols for scb subsystems and system markers.
// These symbols are stable across CLI output, logs, and documentation.
package sym

// Primary subsystem symbols — each has a command and a log marker.
const (
	IX  = "⨳" // ix — ingest visit data from CSV files
	MX  = "⊞" // mx — transition matrix over store locations
	OC  = "▥" // oc — occupancy and customer totals over time
	SIM = "⚄" // sim — Markov simulation of synthetic customers
)

// System infrastructure symbols.
const (
	Pulse      = "꩜" // async job queue and worker pool
	PulseOpen  = "✿" // graceful startup with orphaned job recovery
	PulseClose = "❀" // graceful shutdown with bounded wait
	DB         = "⊔" // database/storage layer
	WS         = "⇌" // reporting server and WebSocket feed
	AM         = "≡" // configuration
)

// entry binds a glyph to its subsystem name and description.
type entry struct {
	Glyph       string
	Name        string
	Description string
}

var registry = []entry{
	{IX, "ix", "ingest visit data"},
	{MX, "mx", "transition matrix"},
	{OC, "oc", "occupancy statistics"},
	{SIM, "sim", "Markov simulation"},
	{Pulse, "pulse", "async job processing"},
	{PulseOpen, "pulse-open", "graceful startup"},
	{PulseClose, "pulse-close", "graceful shutdown"},
	{DB, "db", "storage layer"},
	{WS, "serve", "reporting server"},
	{AM, "am", "configuration"},
}

// Name returns the subsystem name for a glyph, or "" if unknown.
func Name(glyph string) string {
	for _, e := range registry {
		if e.Glyph == glyph {
			return e.Name
		}
	}
	return ""
}

// All returns every registered symbol glyph in declaration order.
func All() []string {
	glyphs := make([]string, len(registry))
	for i, e := range registry {
		glyphs[i] = e.Glyph
	}
	return glyphs
}
