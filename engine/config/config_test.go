package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPassesValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
}

func TestLoadTOMLOverlaysOnlyPresentFields(t *testing.T) {
	cfg := Default()
	path := filepath.Join(t.TempDir(), "scinthd.toml")
	if err := os.WriteFile(path, []byte("width = 1920\nheight = 1080\n"), 0o644); err != nil {
		t.Fatalf("writing toml: %v", err)
	}
	if err := LoadTOML(&cfg, path); err != nil {
		t.Fatalf("LoadTOML: %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Fatalf("got %dx%d, want 1920x1080", cfg.Width, cfg.Height)
	}
	if cfg.UDPPort != Default().UDPPort {
		t.Fatalf("UDPPort = %d, want untouched default %d", cfg.UDPPort, Default().UDPPort)
	}
}

func TestLoadTOMLMissingFileIsNotAnError(t *testing.T) {
	cfg := Default()
	if err := LoadTOML(&cfg, filepath.Join(t.TempDir(), "missing.toml")); err != nil {
		t.Fatalf("LoadTOML on missing file: %v", err)
	}
}

func TestLoadTOMLMalformedFileIsParseError(t *testing.T) {
	cfg := Default()
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("width = ["), 0o644); err != nil {
		t.Fatalf("writing toml: %v", err)
	}
	if err := LoadTOML(&cfg, path); err == nil {
		t.Fatal("expected parse error for malformed TOML")
	}
}

func TestParseFlagsOverridesTOMLOverridesDefaults(t *testing.T) {
	cfg := Default()
	path := filepath.Join(t.TempDir(), "scinthd.toml")
	if err := os.WriteFile(path, []byte("width = 1920\nudp_port = 6000\n"), 0o644); err != nil {
		t.Fatalf("writing toml: %v", err)
	}

	err := ParseFlags(&cfg, "scinthd", []string{"--config", path, "--width", "100"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if cfg.Width != 100 {
		t.Fatalf("Width = %d, want 100 (flag overrides TOML)", cfg.Width)
	}
	if cfg.UDPPort != 6000 {
		t.Fatalf("UDPPort = %d, want 6000 (TOML overrides default)", cfg.UDPPort)
	}
	if cfg.Height != Default().Height {
		t.Fatalf("Height = %d, want untouched default %d", cfg.Height, Default().Height)
	}
}

func TestParseFlagsRejectsInvalidNumImages(t *testing.T) {
	cfg := Default()
	if err := ParseFlags(&cfg, "scinthd", []string{"--num_images", "1"}); err == nil {
		t.Fatal("expected validation error for num_images < 2")
	}
}
