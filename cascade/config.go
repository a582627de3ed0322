package cascade

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cascade-xyz/go-cascade/impulse"
	"github.com/cascade-xyz/go-cascade/window"
)

// Config holds the numeric configuration for a cascade run. The zero
// value of any field selects its default.
type Config struct {
	Axis           string  `yaml:"axis"`             // Pseudotime axis name
	CellsPerWindow int     `yaml:"cells_per_window"` // Target cells per base bucket
	MovingWindow   int     `yaml:"moving_window"`    // Base buckets per emitted window
	Stat           string  `yaml:"stat"`             // Summary statistic: "mean", "min", "max"
	OnsetThresh    float64 `yaml:"onset_thresh"`     // Onset/offset threshold fraction
	RiseRate       float64 `yaml:"rise_rate"`        // Sigmoid slope prior (k)
	MinEffect      float64 `yaml:"min_effect"`       // Effect-size prior in background SDs (a)
	SlopeLimit     string  `yaml:"slope_limit"`      // "none", "on" (rise only), "off" (fall only)
	Workers        int     `yaml:"workers"`          // Fan-out width for per-gene fits
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() *Config {
	return &Config{
		Axis:           "pseudotime",
		CellsPerWindow: 50,
		MovingWindow:   3,
		Stat:           "mean",
		OnsetThresh:    0.1,
		RiseRate:       10.0,
		MinEffect:      1.0,
		SlopeLimit:     "none",
		Workers:        4,
	}
}

// LoadConfig reads a YAML configuration file and fills in defaults for
// unset fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Axis == "" {
		c.Axis = def.Axis
	}
	if c.CellsPerWindow == 0 {
		c.CellsPerWindow = def.CellsPerWindow
	}
	if c.MovingWindow == 0 {
		c.MovingWindow = def.MovingWindow
	}
	if c.Stat == "" {
		c.Stat = def.Stat
	}
	if c.OnsetThresh == 0 {
		c.OnsetThresh = def.OnsetThresh
	}
	if c.RiseRate == 0 {
		c.RiseRate = def.RiseRate
	}
	if c.MinEffect == 0 {
		c.MinEffect = def.MinEffect
	}
	if c.SlopeLimit == "" {
		c.SlopeLimit = def.SlopeLimit
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
}

// windowOptions converts the configuration to windowing options.
func (c *Config) windowOptions() (*window.Options, error) {
	stat, err := window.ParseStat(c.Stat)
	if err != nil {
		return nil, err
	}
	return &window.Options{
		CellsPerWindow: c.CellsPerWindow,
		MovingWindow:   c.MovingWindow,
		Stat:           stat,
	}, nil
}

// fitOptions converts the configuration to impulse fitting options.
func (c *Config) fitOptions() (*impulse.Options, error) {
	opts := impulse.DefaultOptions()
	opts.OnsetThresh = c.OnsetThresh
	opts.RiseRate = c.RiseRate
	opts.MinEffect = c.MinEffect
	switch c.SlopeLimit {
	case "", "none":
		opts.SlopeLimit = impulse.SlopeAny
	case "on":
		opts.SlopeLimit = impulse.SlopeRise
	case "off":
		opts.SlopeLimit = impulse.SlopeFall
	default:
		return nil, fmt.Errorf("%w: unknown slope limit %q", window.ErrInvalidParameter, c.SlopeLimit)
	}
	return opts, nil
}

// Validate checks the configuration without running anything.
func (c *Config) Validate() error {
	if _, err := c.windowOptions(); err != nil {
		return err
	}
	if c.CellsPerWindow <= 0 {
		return fmt.Errorf("%w: cells per window must be positive", window.ErrInvalidParameter)
	}
	if c.MovingWindow < 1 {
		return fmt.Errorf("%w: moving window must be at least 1", window.ErrInvalidParameter)
	}
	if c.OnsetThresh <= 0 || c.OnsetThresh >= 1 {
		return fmt.Errorf("%w: onset threshold must be in (0, 1)", window.ErrInvalidParameter)
	}
	if _, err := c.fitOptions(); err != nil {
		return err
	}
	return nil
}
