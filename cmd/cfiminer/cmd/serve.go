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
	"github.com/cfiminer/miner/internal/webui"
	"github.com/cfiminer/miner/pkg/config"
	"github.com/cfiminer/miner/pkg/utils"
)

// serveCmd runs the mining service the same way mineCmd does, but always
// brings up the web dashboard and never returns until interrupted. It
// exists alongside `mine --serve` for operators who only ever want the
// service running with a dashboard attached.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mining service with the web dashboard always on",
	Long: `Run the sliding-window mining service exactly as "mine" does, with
the live dashboard enabled unconditionally.

The dashboard exposes the current window snapshot, its closed-itemset
lattice, advisor suggestions, and (when a database is configured)
history endpoints over persisted snapshots and suggestions.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Run with the dashboard on the default port
  ` + binName + ` serve -c ./config.yaml

  # Run with the dashboard on a specific port
  ` + binName + ` serve -c ./config.yaml -p 9090`

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path (searches ./config.yaml, ./configs, /etc/cfiminer if empty)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port for the web dashboard")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

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

	webSrv := newDashboardServer(svc, servePort, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		webSrv.Shutdown(shutdownCtx)
		cancel()
		if err := svc.Stop(); err != nil {
			log.Error("Failed to stop service cleanly: %v", err)
		}
	}()

	printBanner(log, servePort)

	if err := webSrv.Start(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web dashboard error: %w", err)
	}
	return nil
}

// newDashboardServer builds the web dashboard fronting svc, reusing its
// repositories (if any) for history endpoints.
func newDashboardServer(svc *driver.Service, port int, log utils.Logger) *webui.Server {
	return webui.NewServer(svc, svc.Repositories(), port, log)
}

func printBanner(log utils.Logger, port int) {
	log.Info("")
	log.Info("cfiminer dashboard listening on http://localhost:%d", port)
	log.Info("Press Ctrl+C to stop")
	log.Info("")
}
