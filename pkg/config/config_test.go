package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoadTemplateOverlay(t *testing.T) {
	content := `
network:
  maskFile: landMask.stk
  minCoherence: 0.7
figure:
  extension: .png
`
	path := filepath.Join(t.TempDir(), "template.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.LoadTemplate(path); err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}

	if cfg.Network.MaskFile != "landMask.stk" {
		t.Errorf("maskFile = %q", cfg.Network.MaskFile)
	}
	if cfg.Network.MinCoherence != 0.7 {
		t.Errorf("minCoherence = %f", cfg.Network.MinCoherence)
	}
	if cfg.Figure.Extension != ".png" {
		t.Errorf("extension = %q", cfg.Figure.Extension)
	}
	// Untouched keys keep their defaults
	if cfg.Figure.DPI != 150 || cfg.Figure.MarkerColor != "orange" {
		t.Errorf("Overlay clobbered defaults: %+v", cfg.Figure)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Overlaid config must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Figure.DispMin = 0.9; c.Figure.DispMax = 0.2 },
		func(c *Config) { c.Figure.Extension = ".bmp" },
		func(c *Config) { c.Figure.FontSize = 0 },
		func(c *Config) { c.Network.MinCoherence = 1.5 },
		func(c *Config) { c.Network.CoherenceDataset = "" },
		func(c *Config) { c.Figure.DPI = 10000 },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestClearMissingMask(t *testing.T) {
	cfg := Default()
	cfg.Network.MaskFile = filepath.Join(t.TempDir(), "nope.stk")
	cfg.ClearMissingMask()
	if cfg.Network.MaskFile != "" {
		t.Errorf("Missing mask should be cleared, got %q", cfg.Network.MaskFile)
	}

	path := filepath.Join(t.TempDir(), "waterMask.stk")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Network.MaskFile = path
	cfg.ClearMissingMask()
	if cfg.Network.MaskFile != path {
		t.Errorf("Existing mask should be kept")
	}
}
