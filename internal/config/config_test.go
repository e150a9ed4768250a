package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsWithoutFileOrEnvironment(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("PORT", "")
	t.Setenv("MAX_TIMER_HOURS", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != DefaultPort || cfg.MaxTimerHours != DefaultMaxTimerHours || cfg.EventQueueSize != DefaultEventQueueSize {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if !cfg.UsesDefaultSecret() {
		t.Fatalf("expected default secret to be reported")
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardkeeper.yaml")
	content := "port: \"9000\"\ndb_path: /tmp/board.db\nmax_timer_hours: 8\ncookie_secure: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Fatalf("expected env PORT to win, got %q", cfg.Port)
	}
	if cfg.DBPath != "/tmp/board.db" || cfg.MaxTimerHours != 8 || !cfg.CookieSecure {
		t.Fatalf("expected file values, got %#v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("MAX_TIMER_HOURS", "30")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error for max_timer_hours=30")
	}
}

func TestLoadReportsMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"

	location, ok := cfg.Location()
	if ok || location.String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s ok=%v", location, ok)
	}
}
