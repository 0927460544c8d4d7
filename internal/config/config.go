package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Link-time defaults. Release builds override them with
//
//	-ldflags "-X esecure/internal/config.DefaultBaseURL=https://..."
var (
	DefaultBaseURL     = "http://127.0.0.1:5000"
	DefaultAccessToken = "your_public_token"
)

// Config holds all esecure configuration.
type Config struct {
	// Remote analysis service
	Backend BackendConfig `yaml:"backend"`

	// Chrome DevTools connection used for "use current tab"
	Browser BrowserConfig `yaml:"browser"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Popup appearance
	UI UIConfig `yaml:"ui"`
}

// BackendConfig configures the analysis service endpoint.
type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccessToken string `yaml:"access_token"`
	Timeout     string `yaml:"timeout"` // empty or "0" means no timeout
}

// BrowserConfig configures the DevTools tab query.
type BrowserConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DebuggerURL  string `yaml:"debugger_url"` // ws://..., http://host:port or host:port
	QueryTimeout string `yaml:"query_timeout"`
}

// UIConfig configures the popup.
type UIConfig struct {
	Theme string `yaml:"theme"` // auto, light, dark
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     DefaultBaseURL,
			AccessToken: DefaultAccessToken,
		},
		Browser: BrowserConfig{
			Enabled:      true,
			DebuggerURL:  "127.0.0.1:9222",
			QueryTimeout: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// DefaultConfigPath returns the default path to .esecure/config.yaml.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".esecure", "config.yaml")
	}
	return filepath.Join(cwd, ".esecure", "config.yaml")
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables already set are left alone and missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
// The VITE_* names are what the browser build of the popup used.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VITE_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("VITE_PUBLIC_TOKEN"); v != "" {
		c.Backend.AccessToken = v
	}
	if v := os.Getenv("ESECURE_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("ESECURE_PUBLIC_TOKEN"); v != "" {
		c.Backend.AccessToken = v
	}
	if v := os.Getenv("ESECURE_TIMEOUT"); v != "" {
		c.Backend.Timeout = v
	}
	if v := os.Getenv("ESECURE_DEBUGGER_URL"); v != "" {
		c.Browser.DebuggerURL = v
		c.Browser.Enabled = true
	}
	if os.Getenv("ESECURE_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}

// GetTimeout returns the request timeout; zero means none.
func (c *Config) GetTimeout() time.Duration {
	if c.Backend.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetBrowserTimeout returns the tab query timeout.
func (c *Config) GetBrowserTimeout() time.Duration {
	d, err := time.ParseDuration(c.Browser.QueryTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url not configured (set ESECURE_BACKEND_URL)")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend base_url %q: %w", c.Backend.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend base_url %q: must be an absolute http(s) URL", c.Backend.BaseURL)
	}
	if c.Backend.AccessToken == "" {
		return errors.New("backend access_token not configured (set ESECURE_PUBLIC_TOKEN)")
	}
	if c.Backend.Timeout != "" {
		if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
			return fmt.Errorf("invalid backend timeout %q: %w", c.Backend.Timeout, err)
		}
	}
	switch c.UI.Theme {
	case "", "auto", "light", "dark":
	default:
		return fmt.Errorf("invalid ui theme %q (valid: auto, light, dark)", c.UI.Theme)
	}
	return nil
}

// IsBrowserEnabled returns whether the DevTools tab query is configured.
func (c *Config) IsBrowserEnabled() bool {
	return c.Browser.Enabled && c.Browser.DebuggerURL != ""
}

// Redacted returns a copy safe to print, with the access token masked.
func (c *Config) Redacted() *Config {
	cp := *c
	if tok := cp.Backend.AccessToken; len(tok) > 4 {
		cp.Backend.AccessToken = tok[:2] + "****" + tok[len(tok)-2:]
	} else if tok != "" {
		cp.Backend.AccessToken = "****"
	}
	return &cp
}
