package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/momentics/hioload-link/config"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := config.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsUndersizedBuffers(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RXCapacity = 16
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for undersized rx_capacity")
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkd.yaml")
	doc := "rx_capacity: 16384\nenable_websocket: false\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadYAML(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RXCapacity != 16384 {
		t.Fatalf("RXCapacity = %d, want 16384", cfg.RXCapacity)
	}
	if cfg.EnableWebSocket {
		t.Fatal("expected enable_websocket to be overridden to false")
	}
	if cfg.MaxSlice != config.DefaultConfig().MaxSlice {
		t.Fatalf("MaxSlice should retain default, got %d", cfg.MaxSlice)
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	if _, err := config.LoadYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
