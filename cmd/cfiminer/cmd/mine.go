package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cfiminer/miner/internal/driver"
	"github.com/cfiminer/miner/pkg/config"
)

var (
	// Mine command flags
	configPath string
	serveAfter bool
	servePort  int
)

// mineCmd represents the mine command.
var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Run the sliding-window mining service",
	Long: `Run the sliding-window mining service: read transactions from the
configured sources, feed them through the configured engine (DIU, MFCI,
or StreamFCI), and periodically persist window snapshots.

The service runs until interrupted (Ctrl+C), at which point it stops
the aggregator, drains the mining loop, and closes the database
connection.`,
	RunE: runMine,
}

func init() {
	rootCmd.AddCommand(mineCmd)

	binName := BinName()
	mineCmd.Example = `  # Mine with the config file in the working directory
  ` + binName + ` mine

  # Mine with an explicit config and serve a live dashboard
  ` + binName + ` mine -c ./config.yaml --serve --port 8080`

	mineCmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path (searches ./config.yaml, ./configs, /etc/cfiminer if empty)")
	mineCmd.Flags().BoolVar(&serveAfter, "serve", false, "Start the web dashboard alongside the mining loop")
	mineCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port for the web dashboard (used with --serve)")
}

func runMine(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Info("=== cfiminer ===")
	log.Info("Engine:        %s", cfg.Mining.Engine)
	log.Info("Window size:   %d", cfg.Mining.WindowSize)
	log.Info("Threshold:     %d", cfg.Mining.Threshold)
	log.Info("Cross-check:   %v", cfg.Mining.CrossCheck)
	log.Info("")

	svc, err := driver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if serveAfter || cfg.WebUI.Enabled {
		webSrv := newDashboardServer(svc, servePort, log)
		go func() {
			if err := webSrv.Start(); err != nil && err != http.ErrServerClosed {
				log.Error("Web dashboard stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			webSrv.Shutdown(shutdownCtx)
		}()
	}

	log.Info("Mining service running. Press Ctrl+C to stop.")
	<-sigChan

	log.Info("Shutting down...")
	cancel()
	if err := svc.Stop(); err != nil {
		return fmt.Errorf("failed to stop service cleanly: %w", err)
	}

	return nil
}
