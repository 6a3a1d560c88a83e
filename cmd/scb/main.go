package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OliverSieweke/supermarket-customer-behavior/cmd/scb/commands"
	"github.com/OliverSieweke/supermarket-customer-behavior/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scb",
	Short: "scb - Supermarket customer behavior analysis",
	Long: `scb - Supermarket customer behavior analysis.

Ingests per-weekday customer visit CSVs, fits a first-order Markov chain over
the section-to-section transitions, and reports occupancy, customer totals,
time in store and the transition matrix. The fitted chain also drives
synthetic customer simulations.

Available commands:
  am       - Manage scb configuration ("I am")
  db       - Manage the visit database
  ingest   - Ingest weekday CSVs (inline, or via the watch daemon)
  matrix   - Fit and print the transition matrix
  report   - Occupancy, totals and time-in-store reports
  simulate - Run a Markov customer simulation
  serve    - Start the reporting server (HTTP + WebSocket)

Examples:
  scb ingest all           # Ingest monday.csv .. friday.csv from the data dir
  scb matrix               # Print the fitted transition matrix
  scb report totals        # Customers in store over time
  scb simulate -n 500      # Simulate 500 synthetic customers
  scb serve                # Start the reporting server`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(false, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.IngestCmd)
	rootCmd.AddCommand(commands.MatrixCmd)
	rootCmd.AddCommand(commands.ReportCmd)
	rootCmd.AddCommand(commands.SimulateCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
