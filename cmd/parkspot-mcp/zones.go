package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Inspect zone definitions",
}

var zonesValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check zone files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed int
		for _, path := range args {
			lot, err := zones.Load(path)
			if err != nil {
				fmt.Printf("%s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Printf("%s: lot %d, %d spots\n", path, lot.LotID, len(lot.Zones))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d zone files are invalid", failed, len(args))
		}
		return nil
	},
}

var zonesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the lots in the zones directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		src := zoneSource(cfg)
		ids, err := src.LotIDs()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Printf("No lots in %s\n", src.Dir)
			return nil
		}
		for _, id := range ids {
			lot, err := src.Lot(id)
			if err != nil {
				fmt.Printf("%6d  %v\n", id, err)
				continue
			}
			fmt.Printf("%6d  %3d spots  %s\n", id, len(lot.Zones), src.Path(id))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(zonesCmd)
	zonesCmd.AddCommand(zonesValidateCmd)
	zonesCmd.AddCommand(zonesListCmd)
}
