package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/OliverSieweke/supermarket-customer-behavior/am"
	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/display"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// MatrixCmd represents the matrix command
var MatrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: sym.MX + " Fit and print the transition matrix",
	Long: sym.MX + ` matrix — Fit and print the transition matrix

Fits a first-order Markov chain over the section-to-section transitions of
all ingested visits. Rows are normalized to probabilities; checkout is
absorbing (all-zero row). Synthetic entrance rows are added one minute
before each customer's first visit so the chain has a common start state.

Examples:
  scb matrix                      # Render as a table
  scb matrix --day monday         # Fit on one weekday only
  scb matrix --json               # JSON (locations, counts, probabilities)
  scb matrix --csv > matrix.csv   # Semicolon-separated CSV`,
	RunE: runMatrix,
}

var (
	matrixDayFlag string
	matrixCSVFlag bool
)

func init() {
	MatrixCmd.Flags().StringVar(&matrixDayFlag, "day", "", "Fit on one weekday only (monday..friday)")
	MatrixCmd.Flags().BoolVar(&matrixCSVFlag, "csv", false, "Output semicolon-separated CSV")
}

func runMatrix(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	layout := cfg.Data.Layout()

	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	visits, err := loadAnnotatedVisits(context.Background(), database, matrixDayFlag, layout)
	if err != nil {
		return err
	}

	matrix, err := analysis.FitTransitionMatrix(dataset.WithEntranceRows(visits, layout), layout)
	if err != nil {
		return errors.Wrap(err, "failed to fit transition matrix")
	}

	if matrixCSVFlag {
		return display.WriteMatrixCSV(os.Stdout, matrix)
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(matrix)
	}
	return display.RenderMatrixTable(matrix)
}
