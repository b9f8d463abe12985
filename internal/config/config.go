// Package config loads parkspot settings from defaults, an optional YAML
// file and PARKSPOT_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/parkspot-mcp/internal/detection"
	"github.com/ironsheep/parkspot-mcp/internal/imaging"
	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
)

// Detector backends.
const (
	BackendInference = "inference"
	BackendContour   = "contour"
)

type Config struct {
	Detection  DetectionConfig  `yaml:"detection"`
	Occupancy  OccupancyConfig  `yaml:"occupancy"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Zones      ZonesConfig      `yaml:"zones"`
	Store      StoreConfig      `yaml:"store"`
	Report     ReportConfig     `yaml:"report"`
	Web        WebConfig        `yaml:"web"`
	LogLevel   string           `yaml:"log_level"`
}

type DetectionConfig struct {
	Backend      string        `yaml:"backend"`       // inference or contour
	InferenceURL string        `yaml:"inference_url"` // model server predict endpoint
	Timeout      time.Duration `yaml:"timeout"`
	Confidence   float64       `yaml:"confidence"`
	IoU          float64       `yaml:"iou"`
}

type OccupancyConfig struct {
	GridSize    int     `yaml:"grid_size"`
	MarginRatio float64 `yaml:"margin_ratio"`
}

type PreprocessConfig struct {
	ClipLimit        float64 `yaml:"clip_limit"`
	TileGrid         int     `yaml:"tile_grid"`
	EnhanceGamma     float64 `yaml:"enhance_gamma"`
	LowContrastGamma float64 `yaml:"low_contrast_gamma"`
}

type ZonesConfig struct {
	Dir string `yaml:"dir"` // holds lot-<id>.json files
}

type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables persistence
}

type ReportConfig struct {
	URL     string        `yaml:"url"` // empty disables reporting
	Timeout time.Duration `yaml:"timeout"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	det := detection.DefaultOptions()
	occ := occupancy.DefaultOptions()
	pre := imaging.DefaultPreprocessOptions()

	return &Config{
		Detection: DetectionConfig{
			Backend:      BackendInference,
			InferenceURL: "http://localhost:5000/predict",
			Timeout:      30 * time.Second,
			Confidence:   det.Confidence,
			IoU:          det.IoU,
		},
		Occupancy: OccupancyConfig{
			GridSize:    occ.GridSize,
			MarginRatio: occ.MarginRatio,
		},
		Preprocess: PreprocessConfig{
			ClipLimit:        pre.ClipLimit,
			TileGrid:         pre.TileGrid,
			EnhanceGamma:     pre.EnhanceGamma,
			LowContrastGamma: pre.LowContrastGamma,
		},
		Zones:    ZonesConfig{Dir: "data/zones"},
		Report:   ReportConfig{Timeout: 15 * time.Second},
		Web:      WebConfig{Host: "0.0.0.0", Port: 8080},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PARKSPOT_DETECTOR", &c.Detection.Backend)
	str("PARKSPOT_INFERENCE_URL", &c.Detection.InferenceURL)
	duration("PARKSPOT_INFERENCE_TIMEOUT", &c.Detection.Timeout)
	num("PARKSPOT_CONFIDENCE", &c.Detection.Confidence)
	num("PARKSPOT_IOU", &c.Detection.IoU)

	integer("PARKSPOT_GRID_SIZE", &c.Occupancy.GridSize)
	num("PARKSPOT_MARGIN_RATIO", &c.Occupancy.MarginRatio)

	num("PARKSPOT_CLIP_LIMIT", &c.Preprocess.ClipLimit)
	integer("PARKSPOT_TILE_GRID", &c.Preprocess.TileGrid)
	num("PARKSPOT_ENHANCE_GAMMA", &c.Preprocess.EnhanceGamma)
	num("PARKSPOT_LOW_CONTRAST_GAMMA", &c.Preprocess.LowContrastGamma)

	str("PARKSPOT_ZONES_DIR", &c.Zones.Dir)
	str("PARKSPOT_DB_PATH", &c.Store.Path)
	str("PARKSPOT_REPORT_URL", &c.Report.URL)
	duration("PARKSPOT_REPORT_TIMEOUT", &c.Report.Timeout)

	str("PARKSPOT_HOST", &c.Web.Host)
	integer("PARKSPOT_PORT", &c.Web.Port)
	str("PARKSPOT_LOG_LEVEL", &c.LogLevel)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.Detection.Backend {
	case BackendInference:
		check(c.Detection.InferenceURL != "", "detection.inference_url is required for the inference backend")
	case BackendContour:
	default:
		check(false, "detection.backend %q: want %s or %s", c.Detection.Backend, BackendInference, BackendContour)
	}
	check(c.Detection.Timeout > 0, "detection.timeout must be positive")
	check(c.Detection.Confidence >= 0 && c.Detection.Confidence <= 1, "detection.confidence %v outside [0, 1]", c.Detection.Confidence)
	check(c.Detection.IoU >= 0 && c.Detection.IoU <= 1, "detection.iou %v outside [0, 1]", c.Detection.IoU)

	check(c.Occupancy.GridSize >= 1, "occupancy.grid_size must be at least 1")
	check(c.Occupancy.MarginRatio >= 0, "occupancy.margin_ratio must not be negative")

	check(c.Preprocess.ClipLimit > 0, "preprocess.clip_limit must be positive")
	check(c.Preprocess.TileGrid > 0, "preprocess.tile_grid must be positive")
	check(c.Preprocess.EnhanceGamma > 0, "preprocess.enhance_gamma must be positive")
	check(c.Preprocess.LowContrastGamma > 0, "preprocess.low_contrast_gamma must be positive")

	check(c.Report.Timeout > 0, "report.timeout must be positive")
	check(c.Web.Port > 0 && c.Web.Port < 65536, "web.port %d out of range", c.Web.Port)

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info":
	default:
		check(false, "log_level %q: want debug or info", c.LogLevel)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// DetectionOptions converts the detection section.
func (c *Config) DetectionOptions() detection.Options {
	return detection.Options{Confidence: c.Detection.Confidence, IoU: c.Detection.IoU}
}

// OccupancyOptions converts the occupancy section.
func (c *Config) OccupancyOptions() occupancy.Options {
	return occupancy.Options{GridSize: c.Occupancy.GridSize, MarginRatio: c.Occupancy.MarginRatio}
}

// PreprocessOptions converts the preprocess section.
func (c *Config) PreprocessOptions() imaging.PreprocessOptions {
	return imaging.PreprocessOptions{
		ClipLimit:        c.Preprocess.ClipLimit,
		TileGrid:         c.Preprocess.TileGrid,
		EnhanceGamma:     c.Preprocess.EnhanceGamma,
		LowContrastGamma: c.Preprocess.LowContrastGamma,
	}
}

// NewDetector builds the configured detector.
func (c *Config) NewDetector() detection.Detector {
	if c.Detection.Backend == BackendContour {
		return detection.NewContourDetector()
	}
	return detection.NewInferenceClient(c.Detection.InferenceURL, c.Detection.Timeout)
}
