package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Source   S3Config `yaml:"source"`
	Mirror   Mirror   `yaml:"mirror"`
	LogLevel string   `yaml:"log_level"`
}

// S3Config represents S3-compatible storage configuration
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// Mirror represents mirror-specific configuration
type Mirror struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	LocalRoot   string `yaml:"local_root"`
	Concurrency int    `yaml:"concurrency"`
	StateDB     string `yaml:"state_db"`
	ProbeDisk   bool   `yaml:"probe_disk"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load loads configuration from file and command line flags
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Mirror: Mirror{
			Concurrency: 8,
			StateDB:     "./mirror-state.db",
		},
	}

	// Load from YAML file if provided
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with command line flags
	if err := loadFromFlags(cfg, flags); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags.Changed("endpoint") {
		cfg.Source.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("access-key") {
		cfg.Source.AccessKey, _ = flags.GetString("access-key")
	}
	if flags.Changed("secret-key") {
		cfg.Source.SecretKey, _ = flags.GetString("secret-key")
	}
	if flags.Changed("secure") {
		cfg.Source.Secure, _ = flags.GetBool("secure")
	}

	if flags.Changed("bucket") {
		cfg.Mirror.Bucket, _ = flags.GetString("bucket")
	}
	if flags.Changed("prefix") {
		cfg.Mirror.Prefix, _ = flags.GetString("prefix")
	}
	if flags.Changed("local-root") {
		cfg.Mirror.LocalRoot, _ = flags.GetString("local-root")
	}
	if flags.Changed("concurrency") {
		cfg.Mirror.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("state-db") {
		cfg.Mirror.StateDB, _ = flags.GetString("state-db")
	}
	if flags.Changed("probe-disk") {
		cfg.Mirror.ProbeDisk, _ = flags.GetBool("probe-disk")
	}
	if flags.Changed("metrics-addr") {
		cfg.Mirror.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}

func (c *Config) validate() error {
	if c.Source.Endpoint == "" {
		return fmt.Errorf("source endpoint is required")
	}
	if c.Source.AccessKey == "" {
		return fmt.Errorf("source access key is required")
	}
	if c.Source.SecretKey == "" {
		return fmt.Errorf("source secret key is required")
	}

	if c.Mirror.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.Mirror.LocalRoot == "" {
		return fmt.Errorf("local root is required")
	}

	if c.Mirror.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	// The state database must never live inside the mirrored tree, or the
	// deletion scanner would tombstone it as an unexpected file.
	if insideRoot(c.Mirror.LocalRoot, c.Mirror.StateDB) {
		return fmt.Errorf("state database %s must not be inside local root %s", c.Mirror.StateDB, c.Mirror.LocalRoot)
	}

	return nil
}

func insideRoot(root, target string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
