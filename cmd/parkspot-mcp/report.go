package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
	"github.com/ironsheep/parkspot-mcp/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report FILE.csv...",
	Short: "Post saved occupancy CSV files to the collector",
	Long: `Re-send occupancy files written by "detect --csv" to the collector at
report.url. Each file is parsed and posted as one request.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Report.URL == "" {
		return fmt.Errorf("report.url is not configured")
	}
	client := report.NewClient(cfg.Report.URL, cfg.Report.Timeout)

	ctx := context.Background()
	var failed int
	for _, path := range args {
		n, err := postFile(ctx, client, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("%s: posted %d records to %s\n", path, n, client.URL())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be reported", failed, len(args))
	}
	return nil
}

func postFile(ctx context.Context, client *report.Client, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	records, err := occupancy.ReadCSV(f)
	if err != nil {
		return 0, err
	}
	if err := client.Post(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
