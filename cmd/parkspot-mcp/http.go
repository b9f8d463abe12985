package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/parkspot-mcp/internal/web"
)

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  GET  /api/v1/health
  GET  /api/v1/lots/{id}/zones
  POST /api/v1/lots/{id}/detect         multipart field "file"
  GET  /api/v1/lots/{id}/occupancy
  GET  /api/v1/lots/{id}/occupancy.csv`,
	Args: cobra.NoArgs,
	RunE: runHTTP,
}

func init() {
	rootCmd.AddCommand(httpCmd)
	httpCmd.Flags().String("host", "", "Host to bind to (default from config)")
	httpCmd.Flags().IntP("port", "p", 0, "Port to listen on (default from config)")
}

func runHTTP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}

	runner, closeRunner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer closeRunner()

	srv := web.NewServer(runner, zoneSource(cfg), cfg.Web.Host, cfg.Web.Port)

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		<-stop
		fmt.Println("\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(ctx)
	}()

	fmt.Printf("Listening on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	if err := srv.Start(); err != nil {
		return err
	}
	return <-done
}
