// Package config provides configuration management for the cc-jupyter client.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
)

// Environment overrides
const (
	EnvServiceURL = "CC_JUPYTER_URL"
	EnvSession    = "CC_JUPYTER_SESSION"
)

// Config is the client configuration.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\cc-jupyter\config
//   - Unix: ~/.config/cc-jupyter/config
//
// INI format:
//
//	[service]
//	url = https://cc.example.org/jupyter/
//	session_cookie = <value of the session cookie after login>
//	cookie_name = session
//
//	[polling]
//	interval_ms = 4000
//
//	[http]
//	proxy_mode = no-proxy
//	requests_per_second = 5
//	burst = 10
//	retries = 0
//	timeout_seconds = 30
//
//	[download]
//	directory = ~/cc-results
//
//	[notifications]
//	enabled = true
type Config struct {
	// Service connection
	ServiceURL    string
	SessionCookie string
	CookieName    string

	// PollIntervalMs is the background polling interval of the results view.
	PollIntervalMs int

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // comma-separated bypass list

	// Request shaping
	RequestsPerSecond float64
	Burst             int
	Retries           int // retries of idempotent requests; 0 disables
	TimeoutSeconds    int

	DownloadDirectory    string
	NotificationsEnabled bool
}

// Validation errors
var (
	ErrMissingServiceURL   = errors.New("service url is required")
	ErrMissingSession      = errors.New("session cookie is required, log in through the browser and copy it")
	ErrInvalidPollInterval = errors.New("polling interval_ms must be at least 500")
	ErrInvalidProxyMode    = errors.New("proxy_mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyHost    = errors.New("proxy_host is required for basic and ntlm proxy modes")
	ErrInvalidRetries      = errors.New("retries must be between 0 and 10")
	ErrUnknownKey          = errors.New("unknown configuration key")
)

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		CookieName:           constants.DefaultCookieName,
		PollIntervalMs:       int(constants.DefaultPollInterval / time.Millisecond),
		ProxyMode:            "no-proxy",
		RequestsPerSecond:    constants.DefaultRequestsPerSecond,
		Burst:                constants.DefaultBurst,
		Retries:              0,
		TimeoutSeconds:       int(constants.APIContextTimeout / time.Second),
		NotificationsEnabled: true,
	}
}

// LoadConfig loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	service := iniFile.Section("service")
	cfg.ServiceURL = service.Key("url").String()
	cfg.SessionCookie = service.Key("session_cookie").String()
	cfg.CookieName = service.Key("cookie_name").MustString(cfg.CookieName)

	cfg.PollIntervalMs = iniFile.Section("polling").Key("interval_ms").MustInt(cfg.PollIntervalMs)

	httpSection := iniFile.Section("http")
	cfg.ProxyMode = httpSection.Key("proxy_mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = httpSection.Key("proxy_host").String()
	cfg.ProxyPort = httpSection.Key("proxy_port").MustInt(0)
	cfg.ProxyUser = httpSection.Key("proxy_user").String()
	cfg.ProxyPassword = httpSection.Key("proxy_password").String()
	cfg.NoProxy = httpSection.Key("no_proxy").String()
	cfg.RequestsPerSecond = httpSection.Key("requests_per_second").MustFloat64(cfg.RequestsPerSecond)
	cfg.Burst = httpSection.Key("burst").MustInt(cfg.Burst)
	cfg.Retries = httpSection.Key("retries").MustInt(cfg.Retries)
	cfg.TimeoutSeconds = httpSection.Key("timeout_seconds").MustInt(cfg.TimeoutSeconds)

	cfg.DownloadDirectory = iniFile.Section("download").Key("directory").String()
	cfg.NotificationsEnabled = iniFile.Section("notifications").Key("enabled").MustBool(true)

	return cfg, nil
}

// SaveConfig saves configuration to an INI file.
// Creates parent directories if they don't exist. The session cookie and the
// proxy password are stored in the file, so it is written with mode 0600.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := EnsureConfigDirectory(path); err != nil {
		return err
	}

	iniFile := ini.Empty()
	for _, k := range Keys() {
		section, key, _ := strings.Cut(k, ".")
		value, err := cfg.Get(k)
		if err != nil {
			return err
		}
		iniFile.Section(section).Key(key).SetValue(value)
	}

	// Use temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// ApplyEnv overrides file values with CC_JUPYTER_URL and CC_JUPYTER_SESSION.
func (cfg *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvServiceURL)); v != "" {
		cfg.ServiceURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSession)); v != "" {
		cfg.SessionCookie = v
	}
}

// Validate checks every setting.
func (cfg *Config) Validate() error {
	if err := cfg.ValidateForConnection(); err != nil {
		return err
	}
	if cfg.PollIntervalMs < int(constants.MinPollInterval/time.Millisecond) {
		return ErrInvalidPollInterval
	}
	switch strings.ToLower(cfg.ProxyMode) {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.ProxyHost) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}
	if cfg.Retries < 0 || cfg.Retries > 10 {
		return ErrInvalidRetries
	}
	return nil
}

// ValidateForConnection checks only the settings needed to reach the service.
func (cfg *Config) ValidateForConnection() error {
	if strings.TrimSpace(cfg.ServiceURL) == "" {
		return ErrMissingServiceURL
	}
	if strings.TrimSpace(cfg.SessionCookie) == "" {
		return ErrMissingSession
	}
	return nil
}

// PollInterval returns the polling interval, or the default when the
// configured value is below the minimum.
func (cfg *Config) PollInterval() time.Duration {
	d := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if d < constants.MinPollInterval {
		return constants.DefaultPollInterval
	}
	return d
}

// Timeout returns the per-request timeout.
func (cfg *Config) Timeout() time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return constants.APIContextTimeout
	}
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

// fields maps "section.key" names to accessors over Config.
var fields = map[string]struct {
	get func(*Config) string
	set func(*Config, string) error
}{
	"service.url":              {func(c *Config) string { return c.ServiceURL }, func(c *Config, v string) error { c.ServiceURL = v; return nil }},
	"service.session_cookie":   {func(c *Config) string { return c.SessionCookie }, func(c *Config, v string) error { c.SessionCookie = v; return nil }},
	"service.cookie_name":      {func(c *Config) string { return c.CookieName }, func(c *Config, v string) error { c.CookieName = v; return nil }},
	"polling.interval_ms":      {func(c *Config) string { return strconv.Itoa(c.PollIntervalMs) }, setInt(func(c *Config) *int { return &c.PollIntervalMs })},
	"http.proxy_mode":          {func(c *Config) string { return c.ProxyMode }, func(c *Config, v string) error { c.ProxyMode = v; return nil }},
	"http.proxy_host":          {func(c *Config) string { return c.ProxyHost }, func(c *Config, v string) error { c.ProxyHost = v; return nil }},
	"http.proxy_port":          {func(c *Config) string { return strconv.Itoa(c.ProxyPort) }, setInt(func(c *Config) *int { return &c.ProxyPort })},
	"http.proxy_user":          {func(c *Config) string { return c.ProxyUser }, func(c *Config, v string) error { c.ProxyUser = v; return nil }},
	"http.proxy_password":      {func(c *Config) string { return c.ProxyPassword }, func(c *Config, v string) error { c.ProxyPassword = v; return nil }},
	"http.no_proxy":            {func(c *Config) string { return c.NoProxy }, func(c *Config, v string) error { c.NoProxy = v; return nil }},
	"http.requests_per_second": {func(c *Config) string { return strconv.FormatFloat(c.RequestsPerSecond, 'g', -1, 64) }, setFloat},
	"http.burst":               {func(c *Config) string { return strconv.Itoa(c.Burst) }, setInt(func(c *Config) *int { return &c.Burst })},
	"http.retries":             {func(c *Config) string { return strconv.Itoa(c.Retries) }, setInt(func(c *Config) *int { return &c.Retries })},
	"http.timeout_seconds":     {func(c *Config) string { return strconv.Itoa(c.TimeoutSeconds) }, setInt(func(c *Config) *int { return &c.TimeoutSeconds })},
	"download.directory":       {func(c *Config) string { return c.DownloadDirectory }, func(c *Config, v string) error { c.DownloadDirectory = v; return nil }},
	"notifications.enabled":    {func(c *Config) string { return strconv.FormatBool(c.NotificationsEnabled) }, setBool},
}

var sectionOrder = map[string]int{"service": 0, "polling": 1, "http": 2, "download": 3, "notifications": 4}

// Keys returns every "section.key" name, grouped by section.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, _, _ := strings.Cut(keys[i], ".")
		sj, _, _ := strings.Cut(keys[j], ".")
		if sectionOrder[si] != sectionOrder[sj] {
			return sectionOrder[si] < sectionOrder[sj]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Get returns the value of a "section.key" setting.
func (cfg *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(cfg), nil
}

// Set parses and stores a "section.key" setting.
func (cfg *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err := f.set(cfg, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// IsSecret reports whether a key holds a credential that must be masked.
func IsSecret(key string) bool {
	return key == "service.session_cookie" || key == "http.proxy_password"
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*field(c) = n
		return nil
	}
}

func setFloat(c *Config, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", v)
	}
	c.RequestsPerSecond = f
	return nil
}

func setBool(c *Config, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("not a boolean: %q", v)
	}
	c.NotificationsEnabled = b
	return nil
}
