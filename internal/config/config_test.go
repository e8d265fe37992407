package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "lattice.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
dsl:
  root: ./dsl
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Fatalf("default listen=%q", cfg.Server.Listen)
	}
	if cfg.Server.ReadTimeoutMs != 30000 || cfg.Server.WriteTimeoutMs != 30000 {
		t.Fatalf("default timeouts = %d/%d", cfg.Server.ReadTimeoutMs, cfg.Server.WriteTimeoutMs)
	}
	if cfg.DSL.StepLimit != 4096 {
		t.Fatalf("default dsl.step_limit=%d, want 4096", cfg.DSL.StepLimit)
	}
	if cfg.HTTPClient.TimeoutMs != 30000 {
		t.Fatalf("default http_client.timeout_ms=%d", cfg.HTTPClient.TimeoutMs)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default logging.level=%q", cfg.Logging.Level)
	}
	if cfg.Logging.AccessLogRotate.Enabled {
		t.Fatalf("logging.access_log_rotate.enabled default should be false")
	}
	if cfg.Logging.AccessLogRotate.MaxSizeMB != 100 {
		t.Fatalf("logging.access_log_rotate.max_size_mb default=%d", cfg.Logging.AccessLogRotate.MaxSizeMB)
	}
	if cfg.Logging.AccessLogRotate.MaxBackups != 14 {
		t.Fatalf("logging.access_log_rotate.max_backups default=%d", cfg.Logging.AccessLogRotate.MaxBackups)
	}
	if cfg.Logging.AccessLogRotate.MaxAgeDays != 14 {
		t.Fatalf("logging.access_log_rotate.max_age_days default=%d", cfg.Logging.AccessLogRotate.MaxAgeDays)
	}
}

func TestLoad_ExplicitZeroMaxAgeDaysSurvivesDefaulting(t *testing.T) {
	path := writeConfigFile(t, `
dsl:
  root: ./dsl
logging:
  access_log_rotate:
    max_age_days: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Logging.AccessLogRotate.MaxAgeDays != 0 {
		t.Fatalf("max_age_days=%d, want explicit 0 preserved", cfg.Logging.AccessLogRotate.MaxAgeDays)
	}
}

func TestLoad_EnvOverridesTakePrecedence(t *testing.T) {
	path := writeConfigFile(t, `
dsl:
  root: ./dsl
server:
  listen: ":9000"
`)
	t.Setenv("LATTICE_LISTEN", ":9999")
	t.Setenv("LATTICE_DSL_STEP_LIMIT", "128")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Server.Listen != ":9999" {
		t.Fatalf("listen=%q, want env override", cfg.Server.Listen)
	}
	if cfg.DSL.StepLimit != 128 {
		t.Fatalf("step_limit=%d, want env override 128", cfg.DSL.StepLimit)
	}
}

func TestLoad_RotateEnabledWithoutAccessLogPathFails(t *testing.T) {
	path := writeConfigFile(t, `
dsl:
  root: ./dsl
logging:
  access_log: true
  access_log_rotate:
    enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error when access_log_rotate.enabled without access_log_path")
	}
}
