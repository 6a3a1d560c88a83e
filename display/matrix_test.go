package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
)

func TestWriteMatrixCSV(t *testing.T) {
	at := func(hh, mm int) time.Time {
		return time.Date(2019, 9, 2, hh, mm, 0, 0, time.UTC)
	}
	layout := dataset.DefaultLayout()
	visits := dataset.WithEntranceRows(dataset.MarkEntryExit([]dataset.Visit{
		{Day: dataset.Monday, Customer: "1", TS: at(7, 3), Location: "dairy"},
		{Day: dataset.Monday, Customer: "1", TS: at(7, 5), Location: "checkout"},
	}, layout), layout)
	m, err := analysis.FitTransitionMatrix(visits, layout)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMatrixCSV(&buf, m))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4, "header plus one row per location")
	assert.Equal(t, "location;entrance;dairy;checkout", lines[0])
	assert.Equal(t, "entrance;0.000000;1.000000;0.000000", lines[1])
	assert.Equal(t, "dairy;0.000000;0.000000;1.000000", lines[2])
}
