package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/parkspot-mcp/internal/detection"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parkspot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detection.Backend != BackendInference {
		t.Errorf("Backend = %q", cfg.Detection.Backend)
	}
	if cfg.Detection.InferenceURL != "http://localhost:5000/predict" {
		t.Errorf("InferenceURL = %q", cfg.Detection.InferenceURL)
	}
	if cfg.Detection.Confidence != 0.1 || cfg.Detection.IoU != 0.4 {
		t.Errorf("thresholds = %v/%v, want 0.1/0.4", cfg.Detection.Confidence, cfg.Detection.IoU)
	}
	if cfg.Occupancy.GridSize != 3 || cfg.Occupancy.MarginRatio != 0.3 {
		t.Errorf("occupancy = %+v", cfg.Occupancy)
	}
	if cfg.Preprocess.ClipLimit != 3.0 || cfg.Preprocess.TileGrid != 8 ||
		cfg.Preprocess.EnhanceGamma != 1.3 || cfg.Preprocess.LowContrastGamma != 0.7 {
		t.Errorf("preprocess = %+v", cfg.Preprocess)
	}
	if cfg.Zones.Dir != "data/zones" || cfg.Store.Path != "" || cfg.Report.URL != "" {
		t.Errorf("paths = %+v %+v %+v", cfg.Zones, cfg.Store, cfg.Report)
	}
	if cfg.Web.Port != 8080 || cfg.Web.Host != "0.0.0.0" {
		t.Errorf("web = %+v", cfg.Web)
	}
	if cfg.Debug() {
		t.Error("debug should be off by default")
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
detection:
  backend: contour
  timeout: 5s
  confidence: 0.25
occupancy:
  grid_size: 5
zones:
  dir: /srv/zones
store:
  path: /var/lib/parkspot.db
report:
  url: https://collector.example.com/data
  timeout: 2s
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detection.Backend != BackendContour || cfg.Detection.Timeout != 5*time.Second {
		t.Errorf("detection = %+v", cfg.Detection)
	}
	if cfg.Detection.Confidence != 0.25 {
		t.Errorf("Confidence = %v", cfg.Detection.Confidence)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Detection.IoU != 0.4 || cfg.Occupancy.MarginRatio != 0.3 {
		t.Errorf("defaults lost: iou=%v margin=%v", cfg.Detection.IoU, cfg.Occupancy.MarginRatio)
	}
	if cfg.Occupancy.GridSize != 5 {
		t.Errorf("GridSize = %d", cfg.Occupancy.GridSize)
	}
	if cfg.Zones.Dir != "/srv/zones" || cfg.Store.Path != "/var/lib/parkspot.db" {
		t.Errorf("paths = %+v %+v", cfg.Zones, cfg.Store)
	}
	if cfg.Report.URL != "https://collector.example.com/data" || cfg.Report.Timeout != 2*time.Second {
		t.Errorf("report = %+v", cfg.Report)
	}
	if !cfg.Debug() {
		t.Error("debug should be on")
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "detection:\n  iou: 0.5\nweb:\n  port: 9000\n")

	t.Setenv("PARKSPOT_IOU", "0.6")
	t.Setenv("PARKSPOT_PORT", "9100")
	t.Setenv("PARKSPOT_GRID_SIZE", "4")
	t.Setenv("PARKSPOT_INFERENCE_TIMEOUT", "1m")
	t.Setenv("PARKSPOT_REPORT_URL", "http://localhost:9/report")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detection.IoU != 0.6 {
		t.Errorf("IoU = %v, want env value 0.6", cfg.Detection.IoU)
	}
	if cfg.Web.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Web.Port)
	}
	if cfg.Occupancy.GridSize != 4 {
		t.Errorf("GridSize = %d, want 4", cfg.Occupancy.GridSize)
	}
	if cfg.Detection.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want 1m", cfg.Detection.Timeout)
	}
	if cfg.Report.URL != "http://localhost:9/report" {
		t.Errorf("Report.URL = %q", cfg.Report.URL)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("PARKSPOT_CONFIDENCE", "high")
	t.Setenv("PARKSPOT_PORT", "eighty")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"PARKSPOT_CONFIDENCE", "PARKSPOT_PORT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestLoad_FileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := Load(writeConfig(t, "detection: [unclosed")); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Detection.Backend = "yolo" }, "detection.backend"},
		{"missing url", func(c *Config) { c.Detection.InferenceURL = "" }, "inference_url"},
		{"confidence above 1", func(c *Config) { c.Detection.Confidence = 1.5 }, "detection.confidence"},
		{"negative iou", func(c *Config) { c.Detection.IoU = -0.1 }, "detection.iou"},
		{"zero grid", func(c *Config) { c.Occupancy.GridSize = 0 }, "grid_size"},
		{"negative margin", func(c *Config) { c.Occupancy.MarginRatio = -1 }, "margin_ratio"},
		{"zero gamma", func(c *Config) { c.Preprocess.EnhanceGamma = 0 }, "enhance_gamma"},
		{"zero tiles", func(c *Config) { c.Preprocess.TileGrid = 0 }, "tile_grid"},
		{"bad port", func(c *Config) { c.Web.Port = 70000 }, "web.port"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}

	// The contour backend does not need an inference URL.
	cfg := Default()
	cfg.Detection.Backend = BackendContour
	cfg.Detection.InferenceURL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("contour backend without URL: %v", err)
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()

	if got := cfg.DetectionOptions(); got != detection.DefaultOptions() {
		t.Errorf("DetectionOptions = %+v", got)
	}
	if got := cfg.OccupancyOptions(); got.GridSize != 3 || got.MarginRatio != 0.3 {
		t.Errorf("OccupancyOptions = %+v", got)
	}
	if got := cfg.PreprocessOptions(); got.TileGrid != 8 || got.LowContrastGamma != 0.7 {
		t.Errorf("PreprocessOptions = %+v", got)
	}

	if _, ok := cfg.NewDetector().(*detection.InferenceClient); !ok {
		t.Errorf("inference backend built %T", cfg.NewDetector())
	}
	cfg.Detection.Backend = BackendContour
	if _, ok := cfg.NewDetector().(*detection.ContourDetector); !ok {
		t.Errorf("contour backend built %T", cfg.NewDetector())
	}
}
