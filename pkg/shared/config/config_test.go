package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_ReadsYAML(t *testing.T) {
	path := writeConfigFile(t, `
logger:
  level: debug
http_client:
  retry_count: 7
  debug: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Logger.Level)
	}
	if cfg.HTTPClient.RetryCount != 7 {
		t.Errorf("expected retry count 7, got %d", cfg.HTTPClient.RetryCount)
	}
	if cfg.HTTPClient.Debug == nil || !*cfg.HTTPClient.Debug {
		t.Error("expected the debug flag set")
	}
}

func TestLoadConfig_ExplicitMissingFileFails(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected an error for an explicit missing path")
	}
}

func TestLoadConfig_FallsBackToEnvironment(t *testing.T) {
	path := writeConfigFile(t, "logger:\n  level: warn\n")
	t.Setenv("SONARKIT_CONFIG", path)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Logger.Level != "warn" {
		t.Fatalf("expected the environment config picked up, got %q", cfg.Logger.Level)
	}
}

func TestLoadConfig_MissingDefaultIsEmpty(t *testing.T) {
	t.Setenv("SONARKIT_CONFIG", "")
	t.Setenv("SONARKIT_HOME", t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected an empty configuration, got %v", err)
	}
	if cfg.Logger.Level != "" {
		t.Fatalf("expected zero values, got %+v", cfg)
	}
}

func TestValidateConfig_FillsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SONARKIT_HOME", home)
	t.Setenv("SONARKIT_ARTIFACTS_FOLDER", "")
	t.Setenv("SONARKIT_MODE", "")
	t.Setenv("CI", "false")

	cfg := &Config{}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if cfg.Sonarkit.HomeFolder != home {
		t.Errorf("expected home %q, got %q", home, cfg.Sonarkit.HomeFolder)
	}
	wantArtifacts := filepath.Join(home, "artifacts")
	if cfg.Sonarkit.ArtifactsFolder != wantArtifacts {
		t.Errorf("expected artifacts folder %q, got %q", wantArtifacts, cfg.Sonarkit.ArtifactsFolder)
	}
	if info, err := os.Stat(wantArtifacts); err != nil || !info.IsDir() {
		t.Errorf("expected the artifacts folder created, got %v", err)
	}
	if cfg.Sonarkit.Mode != "user" {
		t.Errorf("expected user mode, got %q", cfg.Sonarkit.Mode)
	}
}

func TestValidateConfig_CIMode(t *testing.T) {
	t.Setenv("SONARKIT_HOME", t.TempDir())
	t.Setenv("CI", "true")

	cfg := &Config{}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if cfg.Sonarkit.Mode != "CI" {
		t.Fatalf("expected CI mode, got %q", cfg.Sonarkit.Mode)
	}
}

func TestValidateConfig_HTTPBounds(t *testing.T) {
	t.Setenv("SONARKIT_HOME", t.TempDir())

	cfg := &Config{}
	cfg.HTTPClient.RetryCount = 21
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected an error for an excessive retry count")
	}

	cfg = &Config{}
	cfg.HTTPClient.Timeout = 301 * time.Second
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected an error for an excessive timeout")
	}

	cfg = &Config{}
	cfg.HTTPClient.RetryWaitTime = -time.Second
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected an error for a negative wait time")
	}
}

func TestValidateConfig_ProxyNormalization(t *testing.T) {
	t.Setenv("SONARKIT_HOME", t.TempDir())

	cfg := &Config{}
	cfg.HTTPClient.Proxy = Proxy{Host: "proxy.example.com/", Port: 3128}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if cfg.HTTPClient.Proxy.Host != "http://proxy.example.com" {
		t.Fatalf("expected the scheme added and slash trimmed, got %q", cfg.HTTPClient.Proxy.Host)
	}

	cfg = &Config{}
	cfg.HTTPClient.Proxy = Proxy{Host: "proxy.example.com", Port: 70000}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}
