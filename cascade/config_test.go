package cascade

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cascade-xyz/go-cascade/window"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	doc := `
axis: dpt
cells_per_window: 20
moving_window: 5
stat: min
onset_thresh: 0.2
slope_limit: "on"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Axis != "dpt" {
		t.Errorf("Expected axis dpt, got %s", cfg.Axis)
	}
	if cfg.CellsPerWindow != 20 || cfg.MovingWindow != 5 {
		t.Errorf("Window settings not loaded: %+v", cfg)
	}
	if cfg.Stat != "min" || cfg.OnsetThresh != 0.2 || cfg.SlopeLimit != "on" {
		t.Errorf("Fit settings not loaded: %+v", cfg)
	}

	// Unset fields fall back to defaults.
	def := DefaultConfig()
	if cfg.RiseRate != def.RiseRate || cfg.MinEffect != def.MinEffect || cfg.Workers != def.Workers {
		t.Errorf("Defaults not applied: %+v", cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Loaded config should validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("Expected error for missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []func(c *Config){
		func(c *Config) { c.CellsPerWindow = -1 },
		func(c *Config) { c.MovingWindow = -2 },
		func(c *Config) { c.OnsetThresh = 1.5 },
		func(c *Config) { c.Stat = "median" },
		func(c *Config) { c.SlopeLimit = "sideways" },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, window.ErrInvalidParameter) {
			t.Errorf("Case %d: expected ErrInvalidParameter, got %v", i, err)
		}
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}
