package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameLookup(t *testing.T) {
	tests := []struct {
		glyph string
		want  string
	}{
		{IX, "ix"},
		{MX, "mx"},
		{SIM, "sim"},
		{Pulse, "pulse"},
		{DB, "db"},
		{"?", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(tt.glyph), "glyph %q", tt.glyph)
	}
}

func TestAllGlyphsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, g := range All() {
		assert.False(t, seen[g], "duplicate glyph %q", g)
		seen[g] = true
	}
	assert.Len(t, seen, len(registry))
}
