package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ironsheep/parkspot-mcp/internal/config"
	"github.com/ironsheep/parkspot-mcp/internal/pipeline"
	"github.com/ironsheep/parkspot-mcp/internal/report"
	"github.com/ironsheep/parkspot-mcp/internal/store"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "parkspot-mcp",
	Short: "Parking lot occupancy from overhead images",
	Long: `parkspot-mcp detects vehicles in a static overhead photograph of a parking
lot and decides, for every annotated spot, whether it is taken.

Without a subcommand it serves the MCP protocol over stdin/stdout.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (env: PARKSPOT_CONFIG)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("PARKSPOT_CONFIG")
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Debug() {
		log.Printf("parkspot-mcp %s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("detector: %s, zones: %s", cfg.Detection.Backend, cfg.Zones.Dir)
	}
	return cfg, nil
}

// newRunner builds the pipeline with the sinks enabled in cfg. The returned
// close function releases the store.
func newRunner(cfg *config.Config) (*pipeline.Runner, func(), error) {
	r := pipeline.New(cfg.NewDetector())
	r.Detection = cfg.DetectionOptions()
	r.Preprocess = cfg.PreprocessOptions()
	r.Occupancy = cfg.OccupancyOptions()
	r.Debug = cfg.Debug()

	closeFn := func() {}
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		r.Store = st
		closeFn = func() {
			if err := st.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}
	}
	if cfg.Report.URL != "" {
		r.Reporter = report.NewClient(cfg.Report.URL, cfg.Report.Timeout)
	}
	return r, closeFn, nil
}

func zoneSource(cfg *config.Config) zones.DirSource {
	return zones.DirSource{Dir: cfg.Zones.Dir}
}

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 30 * time.Second
