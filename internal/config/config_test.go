package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.CookieName != "session" {
		t.Errorf("CookieName = %q, want session", cfg.CookieName)
	}
	if cfg.PollIntervalMs != 4000 {
		t.Errorf("PollIntervalMs = %d, want 4000", cfg.PollIntervalMs)
	}
	if cfg.Retries != 0 {
		t.Errorf("Retries = %d, want 0", cfg.Retries)
	}
	if !cfg.NotificationsEnabled {
		t.Error("NotificationsEnabled should default to true")
	}
	if cfg.PollInterval() != 4*time.Second {
		t.Errorf("PollInterval() = %v, want 4s", cfg.PollInterval())
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config")

	cfg := NewConfig()
	cfg.ServiceURL = "https://cc.example.org/jupyter/"
	cfg.SessionCookie = "abc.def"
	cfg.PollIntervalMs = 2500
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.local"
	cfg.ProxyPort = 3128
	cfg.NoProxy = "localhost,10.0.0.0/8"
	cfg.RequestsPerSecond = 2.5
	cfg.Retries = 3
	cfg.DownloadDirectory = "/tmp/results"
	cfg.NotificationsEnabled = false

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config permissions = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("loaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_NonExistent(t *testing.T) {
	cfg, err := LoadConfig("/path/that/does/not/exist/config")
	if err != nil {
		t.Fatalf("LoadConfig should not fail for non-existent file: %v", err)
	}
	if diff := cmp.Diff(NewConfig(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_InvalidINI(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.ini")
	if err := os.WriteFile(configPath, []byte("this is not valid INI [[["), 0600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := LoadConfig(configPath); err == nil {
		t.Error("LoadConfig should fail for invalid INI")
	}
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "partial.ini")
	content := `[service]
url = cc.example.org
session_cookie = partial
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ServiceURL != "cc.example.org" || cfg.SessionCookie != "partial" {
		t.Errorf("service section not loaded: %+v", cfg)
	}
	if cfg.PollIntervalMs != 4000 || cfg.CookieName != "session" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvServiceURL, "https://env.example.org")
	t.Setenv(EnvSession, "from-env")

	cfg := NewConfig()
	cfg.ServiceURL = "https://file.example.org"
	cfg.ApplyEnv()

	if cfg.ServiceURL != "https://env.example.org" || cfg.SessionCookie != "from-env" {
		t.Errorf("environment not applied: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := NewConfig()
		cfg.ServiceURL = "https://cc.example.org"
		cfg.SessionCookie = "s"
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing url", func(c *Config) { c.ServiceURL = " " }, ErrMissingServiceURL},
		{"missing session", func(c *Config) { c.SessionCookie = "" }, ErrMissingSession},
		{"poll too fast", func(c *Config) { c.PollIntervalMs = 100 }, ErrInvalidPollInterval},
		{"bad proxy mode", func(c *Config) { c.ProxyMode = "socks" }, ErrInvalidProxyMode},
		{"ntlm without host", func(c *Config) { c.ProxyMode = "ntlm" }, ErrMissingProxyHost},
		{"system proxy", func(c *Config) { c.ProxyMode = "system" }, nil},
		{"too many retries", func(c *Config) { c.Retries = 11 }, ErrInvalidRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := NewConfig()

	if err := cfg.Set("polling.interval_ms", "1500"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.PollIntervalMs != 1500 {
		t.Errorf("PollIntervalMs = %d, want 1500", cfg.PollIntervalMs)
	}
	if err := cfg.Set("notifications.enabled", "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := cfg.Get("notifications.enabled"); got != "false" {
		t.Errorf("Get() = %q, want false", got)
	}

	if err := cfg.Set("polling.interval_ms", "fast"); err == nil {
		t.Error("Set() should reject a non-integer interval")
	}
	if err := cfg.Set("service.colour", "red"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set() error = %v, want ErrUnknownKey", err)
	}
	if _, err := cfg.Get("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get() error = %v, want ErrUnknownKey", err)
	}
}

func TestKeysGroupedBySection(t *testing.T) {
	keys := Keys()
	if keys[0] != "service.cookie_name" {
		t.Errorf("first key = %q, want service.cookie_name", keys[0])
	}
	if keys[len(keys)-1] != "notifications.enabled" {
		t.Errorf("last key = %q, want notifications.enabled", keys[len(keys)-1])
	}
	if !IsSecret("service.session_cookie") || IsSecret("service.url") {
		t.Error("IsSecret() misclassified keys")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/results"); got != filepath.Join(home, "results") {
		t.Errorf("ExpandHome() = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandHome() = %q, want unchanged", got)
	}
}
