// Package config loads and validates the indexhub configuration.
//
// Configuration is resolved in three layers, later layers winning:
// built-in defaults, the YAML file, then INDEXHUB_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/indexhub/internal/errors"
	"github.com/Aman-CERP/indexhub/internal/logging"
)

// Config is the complete indexhub configuration.
type Config struct {
	Store   StoreConfig    `yaml:"store"`
	Indexes []IndexConfig  `yaml:"indexes"`
	Queue   QueueConfig    `yaml:"queue"`
	Watch   WatchConfig    `yaml:"watch"`
	Server  ServerConfig   `yaml:"server"`
	Logging logging.Config `yaml:"logging"`
}

// StoreConfig configures the underlying index engine.
type StoreConfig struct {
	// RootDir is the directory holding one index per registered id.
	// Empty means in-memory indexes.
	RootDir string `yaml:"root_dir"`

	// AnalyzedFields are indexed with full-text analysis instead of the
	// verbatim keyword treatment facet fields need.
	AnalyzedFields []string `yaml:"analyzed_fields"`

	// TermCacheSize bounds the cached term-dictionary enumerations.
	TermCacheSize int `yaml:"term_cache_size"`
}

// IndexConfig declares one index registered at startup.
type IndexConfig struct {
	// ID is the index identifier.
	ID string `yaml:"id"`

	// ContentDir is the directory of document files feeding this index.
	// Empty disables file watching for the index.
	ContentDir string `yaml:"content_dir"`
}

// QueueConfig configures the per-index job workers.
type QueueConfig struct {
	// MaxRetries bounds the attempts a transiently failing job gets after
	// its first one.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the backoff before the first retry; it doubles per
	// attempt up to RetryMaxDelay.
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`
}

// WatchConfig configures content-directory watching.
type WatchConfig struct {
	// Enabled turns the file watcher on.
	Enabled bool `yaml:"enabled"`

	// Debounce coalesces bursts of file events before dispatching jobs.
	Debounce time.Duration `yaml:"debounce"`
}

// ServerConfig configures the observability endpoint.
type ServerConfig struct {
	// MetricsAddr is the listen address of the metrics endpoint. Empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			RootDir:       defaultStoreRoot(),
			TermCacheSize: 256,
		},
		Queue: QueueConfig{
			MaxRetries:    3,
			RetryDelay:    time.Second,
			RetryMaxDelay: 16 * time.Second,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
		Logging: logging.DefaultConfig(),
	}
}

func defaultStoreRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "indexhub", "indexes")
	}
	return filepath.Join(home, ".indexhub", "indexes")
}

// Load reads the configuration file at path, layering it over the defaults
// and applying environment overrides. An empty path uses defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.New(errors.ErrCodeConfigNotFound,
					fmt.Sprintf("config file %q does not exist", path), err)
			}
			return nil, errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("reading config file %q", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("parsing config file %q", path), err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies INDEXHUB_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INDEXHUB_STORE_ROOT"); v != "" {
		c.Store.RootDir = v
	}
	if v := os.Getenv("INDEXHUB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INDEXHUB_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("INDEXHUB_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Queue.MaxRetries = n
		}
	}
	if v := os.Getenv("INDEXHUB_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Queue.MaxRetries < 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"queue.max_retries must be >= 0", nil)
	}
	if c.Queue.RetryDelay < 0 || c.Queue.RetryMaxDelay < 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"queue retry delays must be >= 0", nil)
	}
	if c.Queue.RetryMaxDelay > 0 && c.Queue.RetryDelay > c.Queue.RetryMaxDelay {
		return errors.New(errors.ErrCodeConfigInvalid,
			"queue.retry_delay must not exceed queue.retry_max_delay", nil)
	}
	if c.Store.TermCacheSize < 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"store.term_cache_size must be >= 0", nil)
	}
	if c.Watch.Debounce < 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"watch.debounce must be >= 0", nil)
	}

	seen := make(map[string]struct{}, len(c.Indexes))
	for _, idx := range c.Indexes {
		if idx.ID == "" {
			return errors.New(errors.ErrCodeConfigInvalid,
				"every index needs an id", nil)
		}
		if _, dup := seen[idx.ID]; dup {
			return errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("duplicate index id %q", idx.ID), nil)
		}
		seen[idx.ID] = struct{}{}
	}
	return nil
}

// RetryConfig translates the queue section into the retry policy used by
// the job workers.
func (c *Config) RetryConfig() errors.RetryConfig {
	return errors.RetryConfig{
		MaxRetries:   c.Queue.MaxRetries,
		InitialDelay: c.Queue.RetryDelay,
		MaxDelay:     c.Queue.RetryMaxDelay,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New(errors.ErrCodeInternal, "encoding config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.StoreError(fmt.Sprintf("creating config directory for %q", path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.StoreError(fmt.Sprintf("writing config file %q", path), err)
	}
	return nil
}
