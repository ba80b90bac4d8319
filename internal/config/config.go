// Package config loads the GitHub App identity and tool settings.
//
// The primary input is a KEY=VALUE file (conventionally secrets/config.txt,
// kept out of version control) naming the App and its installation. Optional
// tool-level settings live in ~/.ghauth/config.yaml. Environment variables
// prefixed GHAUTH_ override both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIBaseURL is the public GitHub API endpoint.
	DefaultAPIBaseURL = "https://api.github.com"
	// DefaultHost is the host used for the bot committer email domain.
	DefaultHost = "github.com"
	// DefaultTimeout bounds each network call to the provider.
	DefaultTimeout = 10 * time.Second
)

// Config is everything a single invocation needs. It is loaded once and
// never mutated afterwards.
type Config struct {
	// AppID is the numeric GitHub App identifier (JWT issuer).
	AppID int64
	// InstallationID names the installation the token is minted for.
	InstallationID int64
	// AppSlug, when set, is the expected slug for identity validation.
	// When empty the slug reported by the provider is accepted as-is
	// (the app id must still match).
	AppSlug string
	// KeyRef locates the private key: a key-source reference such as
	// file://..., env://..., keyring://..., vault://..., or a bare path.
	KeyRef string
	// APIBaseURL is the provider API endpoint.
	APIBaseURL string
	// Host is the git host, used for the committer email domain.
	Host string
	// Timeout bounds each network call.
	Timeout time.Duration
	// Repositories is an optional default scope for the token request,
	// as owner/name full names.
	Repositories []string
}

// Error reports a missing or malformed configuration value.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads the KEY=VALUE config file at path, merges optional settings
// from ~/.ghauth/config.yaml, applies GHAUTH_* environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, &Error{Field: "file", Reason: fmt.Sprintf("reading %s: %v", path, err)}
	}

	cfg := &Config{
		APIBaseURL: DefaultAPIBaseURL,
		Host:       DefaultHost,
		Timeout:    DefaultTimeout,
	}

	// The settings file is optional, but when it exists it must parse.
	s, serr := loadSettings(settingsPath())
	if serr != nil && !os.IsNotExist(serr) {
		return nil, serr
	}
	if s != nil {
		s.apply(cfg)
	}

	get := func(key string) string {
		if v := os.Getenv("GHAUTH_" + key); v != "" {
			return v
		}
		return strings.TrimSpace(values[key])
	}

	if v := get("APP_ID"); v != "" {
		cfg.AppID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &Error{Field: "APP_ID", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
	}
	if v := get("INSTALLATION_ID"); v != "" {
		cfg.InstallationID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &Error{Field: "INSTALLATION_ID", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
	}
	cfg.AppSlug = get("APP_SLUG")
	if v := get("PRIVATE_KEY"); v != "" {
		cfg.KeyRef = v
	}
	if v := get("API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := get("HOST"); v != "" {
		cfg.Host = v
	}

	// A key file shipped next to the config is the common layout from the
	// App registration flow; pick it up when PRIVATE_KEY is not set.
	if cfg.KeyRef == "" {
		if found := findKeyFile(filepath.Dir(path)); found != "" {
			cfg.KeyRef = found
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required fields are present and plausible.
func (c *Config) Validate() error {
	if c.AppID <= 0 {
		return &Error{Field: "APP_ID", Reason: "must be a positive integer"}
	}
	if c.InstallationID <= 0 {
		return &Error{Field: "INSTALLATION_ID", Reason: "must be a positive integer"}
	}
	if c.KeyRef == "" {
		return &Error{Field: "PRIVATE_KEY", Reason: "no private key reference and no *.private-key.pem next to the config file"}
	}
	if c.Timeout <= 0 {
		return &Error{Field: "timeout", Reason: "must be positive"}
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return &Error{Field: "API_BASE_URL", Reason: fmt.Sprintf("not an http(s) URL: %q", c.APIBaseURL)}
	}
	return nil
}

// Redacted returns a loggable description of the config. The key reference
// is reduced to its scheme and the slug is omitted.
func (c *Config) Redacted() string {
	scheme := "file"
	if idx := strings.Index(c.KeyRef, "://"); idx > 0 {
		scheme = c.KeyRef[:idx]
	}
	return fmt.Sprintf("app_id=%d installation_id=%d key=%s://…", c.AppID, c.InstallationID, scheme)
}

// findKeyFile looks for a GitHub-style *.private-key.pem in dir. Returns
// the first match in lexical order, or "".
func findKeyFile(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "*.private-key.pem"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// settings are optional tool-level defaults from ~/.ghauth/config.yaml.
type settings struct {
	APIBaseURL   string   `yaml:"api_base_url,omitempty"`
	Host         string   `yaml:"host,omitempty"`
	Timeout      string   `yaml:"timeout,omitempty"`
	Repositories []string `yaml:"repositories,omitempty"`
	Debug        struct {
		RetentionDays int `yaml:"retention_days,omitempty"`
	} `yaml:"debug,omitempty"`
}

func (s *settings) apply(cfg *Config) {
	if s.APIBaseURL != "" {
		cfg.APIBaseURL = s.APIBaseURL
	}
	if s.Host != "" {
		cfg.Host = s.Host
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if len(s.Repositories) > 0 {
		cfg.Repositories = append([]string(nil), s.Repositories...)
	}
}

func loadSettings(path string) (*settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, &Error{Field: "settings", Reason: fmt.Sprintf("reading %s: %v", path, err)}
	}
	var s settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &Error{Field: "settings", Reason: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	return &s, nil
}

func settingsPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Dir returns the tool's state directory (~/.ghauth). Only non-secret
// state lives here: settings and debug logs.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".ghauth")
	}
	return filepath.Join(home, ".ghauth")
}

// DebugRetentionDays reads the debug log retention from settings, with a
// 7-day default. A settings file that exists but does not parse is an
// error, not a silent default.
func DebugRetentionDays() (int, error) {
	s, err := loadSettings(settingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return 7, nil
		}
		return 0, err
	}
	if s == nil || s.Debug.RetentionDays <= 0 {
		return 7, nil
	}
	return s.Debug.RetentionDays, nil
}
