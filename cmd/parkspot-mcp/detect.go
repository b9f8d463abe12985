package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

var detectCmd = &cobra.Command{
	Use:   "detect IMAGE...",
	Short: "Resolve spot occupancy for one or more lot images",
	Long: `Run the full pipeline on each image and print the occupancy summary.

The lot is taken from --zones (a zone file) or --lot (an id looked up in
the configured zones directory). Records of all images can be written
to --csv and --json; --persist and --report hand each run to the store
and the collector configured in the config file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().String("zones", "", "Zone file (JSON) for the lot")
	detectCmd.Flags().Int("lot", -1, "Lot id to load from the zones directory")
	detectCmd.Flags().String("csv", "", "Write lot_id,spot_id,taken records to this file")
	detectCmd.Flags().String("json", "", "Write records as JSON to this file")
	detectCmd.Flags().Bool("persist", false, "Store each run in the occupancy database")
	detectCmd.Flags().Bool("report", false, "Post each run to the report collector")
}

func runDetect(cmd *cobra.Command, args []string) error {
	zonesPath := mustGetString(cmd, "zones")
	lotID := mustGetInt(cmd, "lot")
	csvPath := mustGetString(cmd, "csv")
	jsonPath := mustGetString(cmd, "json")
	persist := mustGetBool(cmd, "persist")
	doReport := mustGetBool(cmd, "report")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var lot *zones.Lot
	switch {
	case zonesPath != "":
		lot, err = zones.Load(zonesPath)
	case lotID >= 0:
		lot, err = zoneSource(cfg).Lot(lotID)
	default:
		return fmt.Errorf("--zones or --lot is required")
	}
	if err != nil {
		return err
	}

	runner, closeRunner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer closeRunner()

	if persist && runner.Store == nil {
		return fmt.Errorf("--persist needs store.path in the config")
	}
	if doReport && runner.Reporter == nil {
		return fmt.Errorf("--report needs report.url in the config")
	}

	ctx := context.Background()

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Detecting"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var all []occupancy.Record
	var failed, undelivered int
	for _, path := range args {
		res, err := runner.Run(ctx, path, lot)
		runner.Cache.Evict(path)
		if bar != nil {
			_ = bar.Add(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed++
			continue
		}

		var sinkErrs []error
		if persist {
			sinkErrs = append(sinkErrs, runner.Persist(ctx, res))
		}
		if doReport {
			sinkErrs = append(sinkErrs, runner.Publish(ctx, res))
		}
		if err := errors.Join(sinkErrs...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			undelivered++
		}

		all = append(all, res.Records...)
		if bar != nil {
			continue
		}
		fmt.Println(path)
		for _, r := range res.Records {
			fmt.Printf("  %-8s %s\n", r.SpotID, takenLabel(r.Taken))
		}
		fmt.Printf("Summary: %d of %d spots are occupied.\n", res.Summary.Occupied, res.Summary.Total)
	}

	if bar != nil {
		sum := occupancy.Summarize(all)
		fmt.Printf("\nSummary: %d of %d spots are occupied.\n", sum.Occupied, sum.Total)
	}

	if csvPath != "" {
		if err := occupancy.SaveCSV(csvPath, all); err != nil {
			return err
		}
		fmt.Printf("Saved %d records to %s\n", len(all), csvPath)
	}
	if jsonPath != "" {
		if err := occupancy.SaveJSON(jsonPath, all); err != nil {
			return err
		}
		fmt.Printf("Saved %d records to %s\n", len(all), jsonPath)
	}

	var errs []error
	if failed > 0 {
		errs = append(errs, fmt.Errorf("%d of %d images failed", failed, len(args)))
	}
	if undelivered > 0 {
		errs = append(errs, fmt.Errorf("%d of %d runs could not be stored or reported", undelivered, len(args)-failed))
	}
	return errors.Join(errs...)
}

func takenLabel(taken bool) string {
	if taken {
		return "occupied"
	}
	return "free"
}
