// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mwiater/foundrychat/internal/util"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// legacyConfigPath is a config file in the working directory, checked when the default is absent.
	legacyConfigPath = "foundrychat.json"
	// DefaultBaseURL is used when endpoint discovery finds nothing.
	DefaultBaseURL = "http://localhost:55267"
	// DefaultServiceBinary is the Foundry Local command-line tool.
	DefaultServiceBinary = "foundry"
	// DefaultCacheDir is where the service stores downloaded models.
	DefaultCacheDir = "~/.foundry/cache/models"
	// defaultRequestTimeout tolerates slow model loads and downloads.
	defaultRequestTimeout = 600 * time.Second
)

// Reconcile strategy names accepted by the "reconcile" setting.
const (
	ReconcileExactID           = "exact-id"
	ReconcileDisplayNameSuffix = "displayName-suffix"
)

// DefaultFavorites are marked as favorites when the config names none.
var DefaultFavorites = []string{"phi-3.5-mini", "llama-3-8b"}

// Config represents the top-level application configuration.
type Config struct {
	ServiceBinary  string   `json:"serviceBinary,omitempty" mapstructure:"serviceBinary"`
	DefaultBaseURL string   `json:"defaultBaseUrl,omitempty" mapstructure:"defaultBaseUrl"`
	BaseURL        string   `json:"baseUrl,omitempty" mapstructure:"baseUrl"`
	TimeoutSeconds int      `json:"timeout,omitempty" mapstructure:"timeout"`
	LogFile        string   `json:"logFile,omitempty" mapstructure:"logFile"`
	Debug          bool     `json:"debug" mapstructure:"debug"`
	Markdown       *bool    `json:"markdown,omitempty" mapstructure:"markdown"`
	CacheDir       string   `json:"cacheDir,omitempty" mapstructure:"cacheDir"`
	Favorites      []string `json:"favorites,omitempty" mapstructure:"favorites"`
	Reconcile      string   `json:"reconcile,omitempty" mapstructure:"reconcile"`
	Stream         bool     `json:"stream" mapstructure:"stream"`
	Sampling       Sampling `json:"sampling" mapstructure:"sampling"`
	TracesEndpoint string   `json:"tracesEndpoint,omitempty" mapstructure:"tracesEndpoint"`
	ConfigPath     string   `json:"-" mapstructure:"-"`
}

// Sampling holds optional request parameters applied to every chat completion.
// Nil fields are left out of the request so the service defaults apply.
type Sampling struct {
	TopP             *float64 `json:"top_p,omitempty" mapstructure:"top_p"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty" mapstructure:"presence_penalty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty" mapstructure:"frequency_penalty"`
	Stop             []string `json:"stop,omitempty" mapstructure:"stop"`
}

// Defaults returns a configuration with every default applied.
func Defaults() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.ServiceBinary) == "" {
		c.ServiceBinary = DefaultServiceBinary
	}
	if strings.TrimSpace(c.DefaultBaseURL) == "" {
		c.DefaultBaseURL = DefaultBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	if c.Markdown == nil {
		enabled := true
		c.Markdown = &enabled
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Favorites == nil {
		c.Favorites = append([]string(nil), DefaultFavorites...)
	}
	if strings.TrimSpace(c.Reconcile) == "" {
		c.Reconcile = ReconcileExactID
	}
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	switch c.Reconcile {
	case "", ReconcileExactID, ReconcileDisplayNameSuffix:
	default:
		return fmt.Errorf("invalid reconcile strategy %q (want %q or %q)", c.Reconcile, ReconcileExactID, ReconcileDisplayNameSuffix)
	}
	for name, raw := range map[string]string{"baseUrl": c.BaseURL, "defaultBaseUrl": c.DefaultBaseURL, "tracesEndpoint": c.TracesEndpoint} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q", name, raw)
		}
	}
	return nil
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MarkdownEnabled reports whether chat messages pass through markdown normalization.
func (c Config) MarkdownEnabled() bool {
	return c.Markdown == nil || *c.Markdown
}

// LogFilePath returns the configured log file. Empty disables logging.
func (c Config) LogFilePath() string {
	return strings.TrimSpace(c.LogFile)
}

// ModelCacheDir returns the cache directory with "~" expanded.
func (c Config) ModelCacheDir() string {
	dir := c.CacheDir
	if strings.TrimSpace(dir) == "" {
		dir = DefaultCacheDir
	}
	return util.ExpandHome(dir)
}

// Load reads the application configuration from the specified path, with fallback to a legacy path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err == nil {
		config.ConfigPath = path
		return config, config.Validate()
	}

	if errors.Is(err, os.ErrNotExist) {
		if path == DefaultConfigPath {
			config, legacyErr := loadFromPath(legacyConfigPath)
			if legacyErr == nil {
				config.ConfigPath = legacyConfigPath
				return config, config.Validate()
			}
			if errors.Is(legacyErr, os.ErrNotExist) {
				return Config{}, fmt.Errorf("no configuration file found (searched %q and %q)", DefaultConfigPath, legacyConfigPath)
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", legacyConfigPath, legacyErr)
		}
		return Config{}, fmt.Errorf("no configuration file found at %q", path)
	}

	return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
}

// loadFromPath is a helper function that loads the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	config.ApplyDefaults()
	return config, nil
}
