package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEWSPROOF_PORT", "NEWSPROOF_DB_PATH", "NEWSPROOF_DATA_PATH",
		"NEWSPROOF_VERIFY_URL", "NEWSPROOF_NEWS_API_KEY",
		"NEWSPROOF_REFRESH_INTERVAL", "NEWSPROOF_MAX_ENTRIES_PER_SOURCE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "data/newsproof.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("RefreshInterval = %v, want 15m", cfg.RefreshInterval)
	}
	if cfg.MaxEntriesPerSrc != 100 {
		t.Errorf("MaxEntriesPerSrc = %d, want 100", cfg.MaxEntriesPerSrc)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEWSPROOF_PORT", "9090")
	t.Setenv("NEWSPROOF_VERIFY_URL", "http://oracle.local/verify")
	t.Setenv("NEWSPROOF_NEWS_API_KEY", "k123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.VerifyURL != "http://oracle.local/verify" {
		t.Errorf("VerifyURL = %q", cfg.VerifyURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yml")
	content := "port: 7070\nverify_url: http://oracle.local/verify\nnews_api_key: k456\nrefresh_interval: 5m\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Port)
	}
	if cfg.RefreshInterval != 5*time.Minute {
		t.Errorf("RefreshInterval = %v, want 5m", cfg.RefreshInterval)
	}
	if cfg.NewsAPIKey != "k456" {
		t.Errorf("NewsAPIKey = %q", cfg.NewsAPIKey)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != ErrMissingVerifyURL {
		t.Errorf("Validate() error = %v, want ErrMissingVerifyURL", err)
	}

	cfg.VerifyURL = "http://oracle.local/verify"
	if err := cfg.Validate(); err != ErrMissingNewsAPIKey {
		t.Errorf("Validate() error = %v, want ErrMissingNewsAPIKey", err)
	}

	cfg.NewsAPIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestGetAddress(t *testing.T) {
	cfg := Config{Port: 8080}
	if got := cfg.GetAddress(); got != ":8080" {
		t.Errorf("GetAddress() = %q, want :8080", got)
	}
}
