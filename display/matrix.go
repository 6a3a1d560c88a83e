package display

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
)

// RenderMatrixTable prints the transition matrix as a pterm table, rows as
// origin locations and columns as destinations.
func RenderMatrixTable(m *analysis.Matrix) error {
	header := append([]string{"from \\ to"}, m.Locations...)
	rows := pterm.TableData{header}

	for i, from := range m.Locations {
		row := []string{from}
		for j := range m.Locations {
			row = append(row, fmt.Sprintf("%.3f", m.Probs[i][j]))
		}
		rows = append(rows, row)
	}

	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// WriteMatrixCSV writes the matrix in the same `;`-separated dialect as the
// input day files.
func WriteMatrixCSV(w io.Writer, m *analysis.Matrix) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	if err := writer.Write(append([]string{"location"}, m.Locations...)); err != nil {
		return err
	}
	for i, from := range m.Locations {
		row := []string{from}
		for j := range m.Locations {
			row = append(row, strconv.FormatFloat(m.Probs[i][j], 'f', 6, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
