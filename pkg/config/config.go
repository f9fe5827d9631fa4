// Package config holds the typed options record for network display. Options
// are constructed once from defaults, template file and flags, validated,
// and passed read-only to the rendering boundary.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is a singleton validator instance
var validate = validator.New()

// Config is the full options record.
type Config struct {
	Network NetworkOptions `yaml:"network"`
	Figure  FigureOptions  `yaml:"figure"`
}

// NetworkOptions controls how the network is resolved.
type NetworkOptions struct {
	// BaselineList is the flat baseline-list file used for text sources.
	BaselineList string `yaml:"baselineList"`
	// MaskFile is handed to the coherence averager; cleared when missing.
	MaskFile string `yaml:"maskFile"`
	// CoherenceDataset names the raster dataset to average.
	CoherenceDataset string `yaml:"coherenceDataset" validate:"required"`
	// MinCoherence is the display threshold where the colormap is cut.
	// Zero means unset; the renderer then splits at the midpoint.
	MinCoherence float64 `yaml:"minCoherence" validate:"gte=0,lte=1"`
}

// FigureOptions controls rendering: color limits, styling and output format.
type FigureOptions struct {
	DispMin   float64 `yaml:"dispMin" validate:"gte=0,lte=1"`
	DispMax   float64 `yaml:"dispMax" validate:"gte=0,lte=1"`
	SplitCmap bool    `yaml:"splitCmap"`

	FontSize    int     `yaml:"fontSize" validate:"min=4,max=72"`
	LineWidth   float64 `yaml:"lineWidth" validate:"gt=0"`
	MarkerColor string  `yaml:"markerColor" validate:"required"`
	MarkerSize  float64 `yaml:"markerSize" validate:"gt=0"`
	EveryYear   int     `yaml:"everyYear" validate:"min=1"`

	DPI       int     `yaml:"dpi" validate:"min=30,max=1200"`
	WidthIn   float64 `yaml:"width" validate:"gt=0"`
	HeightIn  float64 `yaml:"height" validate:"gt=0"`
	Extension string  `yaml:"extension" validate:"oneof=.eps .jpg .pdf .png .svg .tif"`

	ShowTitle   bool   `yaml:"showTitle"`
	Number      string `yaml:"number"`
	ShowDropped bool   `yaml:"showDropped"`
}

// Default returns the options every run starts from.
func Default() Config {
	return Config{
		Network: NetworkOptions{
			BaselineList:     "bl_list.txt",
			MaskFile:         "waterMask.stk",
			CoherenceDataset: "coherence",
		},
		Figure: FigureOptions{
			DispMin:     0.2,
			DispMax:     1.0,
			SplitCmap:   true,
			FontSize:    12,
			LineWidth:   2,
			MarkerColor: "orange",
			MarkerSize:  16,
			EveryYear:   1,
			DPI:         150,
			WidthIn:     8,
			HeightIn:    6,
			Extension:   ".pdf",
			ShowTitle:   true,
			ShowDropped: true,
		},
	}
}

// LoadTemplate overlays a YAML template file onto the config. Only the keys
// present in the file are touched.
func (c *Config) LoadTemplate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse template %s: %w", path, err)
	}
	return nil
}

// Validate checks struct tags plus the cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config: %s failed %q validation", f.Namespace(), f.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	if c.Figure.DispMin >= c.Figure.DispMax {
		return fmt.Errorf("config: dispMin %.2f must be below dispMax %.2f", c.Figure.DispMin, c.Figure.DispMax)
	}
	if c.Network.MinCoherence > c.Figure.DispMax {
		return fmt.Errorf("config: minCoherence %.2f exceeds dispMax %.2f", c.Network.MinCoherence, c.Figure.DispMax)
	}
	return nil
}

// ClearMissingMask drops the mask path when the file does not exist, so the
// averager runs unmasked instead of failing on the default name.
func (c *Config) ClearMissingMask() {
	if c.Network.MaskFile == "" {
		return
	}
	if _, err := os.Stat(c.Network.MaskFile); err != nil {
		c.Network.MaskFile = ""
	}
}
