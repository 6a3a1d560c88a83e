package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OliverSieweke/supermarket-customer-behavior/am"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/logger"
	"github.com/OliverSieweke/supermarket-customer-behavior/server"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd represents the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: sym.WS + " Start the reporting server",
	Long: sym.WS + ` serve — Start the reporting server

Serves the behavior reports over HTTP and streams ingestion job updates and
live simulation frames over WebSocket (/ws). The server supervises the
ingest worker pool and watches the data directory for new weekday CSVs.

Endpoints:
  GET  /health              Liveness
  GET  /api/days            Ingested days and visit counts
  GET  /api/matrix          Fitted transition matrix
  GET  /api/occupancy       Customers per section over time
  GET  /api/totals          In-store customer count over time
  GET  /api/time-in-store   Per-customer stay lengths
  GET  /api/jobs            Ingestion jobs
  POST /api/simulate        Run a simulation ("live": true streams frames)

Examples:
  scb serve                       # Listen on the configured port
  scb serve --port 9000           # Override the port`,
	RunE: runServe,
}

var servePortFlag int

func init() {
	ServeCmd.Flags().IntVar(&servePortFlag, "port", 0, "Listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if servePortFlag > 0 {
		cfg.Server.Port = servePortFlag
	}

	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	srv := server.New(context.Background(), cfg, database, logger.Logger)

	// Hot-reload runtime-tunable settings when the active config file changes
	if configPath := am.ActiveConfigPath(); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			watcher, err := am.NewConfigWatcher(configPath)
			if err != nil {
				logger.Warnw("Config watcher not started", "path", configPath, "error", err)
			} else {
				watcher.OnReload(srv.ApplyConfig)
				watcher.Start()
				defer watcher.Close()
			}
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	fmt.Printf("%s Reporting server on port %d (Ctrl+C to stop)\n", sym.WS, cfg.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-sigChan:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown failed")
	}
	return <-serverErr
}
