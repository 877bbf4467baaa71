package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bifrost.yaml")
	t.Setenv("BIFROST_CONFIG", path)

	cfg := &Config{Server: "http://bifrost.lab:8900", Token: "tok", Host: "gpu-01", User: "trainer"}
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("config mode %v, want 0600", info.Mode().Perm())
	}

	got := LoadConfig()
	if *got != *cfg {
		t.Fatalf("loaded %+v, want %+v", got, cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("BIFROST_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	cfg := LoadConfig()
	if cfg.Server != "http://localhost:8900" {
		t.Fatalf("default server %q", cfg.Server)
	}
	if cfg.Token != "" {
		t.Fatalf("token %q from missing file", cfg.Token)
	}
}
