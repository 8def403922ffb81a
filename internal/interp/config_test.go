package interp

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "limits.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, "maxInstructions: 42\ntimeout: 250\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MaxInstructions != 42 {
		t.Errorf("maxInstructions = %d, want 42", cfg.MaxInstructions)
	}
	if cfg.TimeoutMS != 250 {
		t.Errorf("timeout = %d, want 250", cfg.TimeoutMS)
	}
	// omitted key keeps its default
	if cfg.MaxMemory != DefaultMaxMemory {
		t.Errorf("maxMemory = %d, want default %d", cfg.MaxMemory, DefaultMaxMemory)
	}
}

func TestLoadConfig_UnknownKeysIgnored(t *testing.T) {
	path := writeConfig(t, "maxInstructions: 7\nfutureKnob: true\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unknown keys must not fail: %v", err)
	}
	if cfg.MaxInstructions != 7 {
		t.Errorf("maxInstructions = %d, want 7", cfg.MaxInstructions)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "maxInstructions: [not a number\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_ZeroFieldsFallBack(t *testing.T) {
	got := Config{TimeoutMS: 5}.withDefaults()
	if got.MaxInstructions != DefaultMaxInstructions {
		t.Errorf("MaxInstructions = %d, want default", got.MaxInstructions)
	}
	if got.TimeoutMS != 5 {
		t.Errorf("TimeoutMS = %d, want 5", got.TimeoutMS)
	}
	if got.MaxMemory != DefaultMaxMemory {
		t.Errorf("MaxMemory = %d, want default", got.MaxMemory)
	}
}
