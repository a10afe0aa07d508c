package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("E2CAT_DEVICE", "")
	os.Unsetenv("E2CAT_DEVICE")
	os.Unsetenv("E2CAT_CONFIG_FILE")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Device != defaultDevice {
		t.Errorf("Device = %q, want %q", cfg.Device, defaultDevice)
	}
}

func TestLoadConfigFile(t *testing.T) {
	os.Unsetenv("E2CAT_DEVICE")

	path := filepath.Join(t.TempDir(), "e2cat.yaml")
	if err := os.WriteFile(path, []byte("device: /dev/loop7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Device != "/dev/loop7" {
		t.Errorf("Device = %q, want /dev/loop7", cfg.Device)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e2cat.yaml")
	if err := os.WriteFile(path, []byte("device: /dev/loop7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("E2CAT_DEVICE", "/dev/loop9")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Device != "/dev/loop9" {
		t.Errorf("Device = %q, want /dev/loop9", cfg.Device)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig with missing explicit file: expected error")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	os.Unsetenv("E2CAT_DEVICE")

	path := filepath.Join(t.TempDir(), "e2cat.yaml")
	if err := os.WriteFile(path, []byte("device: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig with bad YAML: expected error")
	}
}
