package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/ironsheep/parkspot-mcp/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP protocol over stdin/stdout",
	Long: `Serve the Model Context Protocol (JSON-RPC 2.0, one message per line)
over stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner, closeRunner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer closeRunner()

	server.Version = Version

	log.Printf("parkspot-mcp %s starting", Version)
	srv := server.New(runner, zoneSource(cfg))
	return srv.Run()
}
