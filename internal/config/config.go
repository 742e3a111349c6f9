package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	API      APIConfig    `yaml:"api"`
	Source   S3Config     `yaml:"source"`
	Upload   UploadConfig `yaml:"upload"`
	LogLevel string       `yaml:"log_level"`
}

// APIConfig represents the DAM API connection settings
type APIConfig struct {
	URL       string `yaml:"url"`
	KeyID     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// S3Config represents an S3-compatible import source
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Object    string `yaml:"object"`
}

// UploadConfig represents upload-specific configuration
type UploadConfig struct {
	FolderID       string            `yaml:"folder_id"`
	Metadata       map[string]string `yaml:"metadata"`
	Concurrency    int               `yaml:"concurrency"`
	MaxRetries     int               `yaml:"max_retries"`
	RetryBackoffMs int               `yaml:"retry_backoff_ms"`
	MaxBackoffMs   int               `yaml:"max_backoff_ms"`
	Checkpoint     string            `yaml:"checkpoint"`
	SkipExisting   bool              `yaml:"skip_existing"`
	Resume         bool              `yaml:"resume"`
	ShowProgress   bool              `yaml:"show_progress"`
	DryRun         bool              `yaml:"dry_run"`
	MetricsAddr    string            `yaml:"metrics_addr"`
}

// Load loads configuration from file, environment and command line flags
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		API: APIConfig{
			TimeoutMs: 300000,
		},
		Upload: UploadConfig{
			Concurrency:    4,
			MaxRetries:     3,
			RetryBackoffMs: 500,
			MaxBackoffMs:   30000,
			Checkpoint:     "./checkpoint.db",
			SkipExisting:   true,
			ShowProgress:   true, // Default to true
		},
	}

	// Load from YAML file if provided
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Credentials from environment override the file
	loadFromEnv(cfg)

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

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("DAM_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("DAM_KEY_ID"); v != "" {
		cfg.API.KeyID = v
	}
	if v := os.Getenv("DAM_KEY_SECRET"); v != "" {
		cfg.API.KeySecret = v
	}
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags.Changed("api-url") {
		cfg.API.URL, _ = flags.GetString("api-url")
	}
	if flags.Changed("key-id") {
		cfg.API.KeyID, _ = flags.GetString("key-id")
	}
	if flags.Changed("key-secret") {
		cfg.API.KeySecret, _ = flags.GetString("key-secret")
	}
	if flags.Changed("timeout-ms") {
		cfg.API.TimeoutMs, _ = flags.GetInt("timeout-ms")
	}

	if flags.Changed("src-endpoint") {
		cfg.Source.Endpoint, _ = flags.GetString("src-endpoint")
	}
	if flags.Changed("src-access-key") {
		cfg.Source.AccessKey, _ = flags.GetString("src-access-key")
	}
	if flags.Changed("src-secret-key") {
		cfg.Source.SecretKey, _ = flags.GetString("src-secret-key")
	}
	if flags.Changed("src-secure") {
		cfg.Source.Secure, _ = flags.GetBool("src-secure")
	}
	if flags.Changed("src-bucket") {
		cfg.Source.Bucket, _ = flags.GetString("src-bucket")
	}
	if flags.Changed("src-prefix") {
		cfg.Source.Prefix, _ = flags.GetString("src-prefix")
	}
	if flags.Changed("src-object") {
		cfg.Source.Object, _ = flags.GetString("src-object")
	}

	if flags.Changed("folder-id") {
		cfg.Upload.FolderID, _ = flags.GetString("folder-id")
	}
	if flags.Changed("meta") {
		pairs, _ := flags.GetStringArray("meta")
		meta, err := parseMetadataPairs(pairs)
		if err != nil {
			return err
		}
		cfg.Upload.Metadata = meta
	}
	if flags.Changed("concurrency") {
		cfg.Upload.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("retries") {
		cfg.Upload.MaxRetries, _ = flags.GetInt("retries")
	}
	if flags.Changed("retry-backoff-ms") {
		cfg.Upload.RetryBackoffMs, _ = flags.GetInt("retry-backoff-ms")
	}
	if flags.Changed("max-backoff-ms") {
		cfg.Upload.MaxBackoffMs, _ = flags.GetInt("max-backoff-ms")
	}
	if flags.Changed("checkpoint") {
		cfg.Upload.Checkpoint, _ = flags.GetString("checkpoint")
	}
	if flags.Changed("skip-existing") {
		cfg.Upload.SkipExisting, _ = flags.GetBool("skip-existing")
	}
	if flags.Changed("resume") {
		cfg.Upload.Resume, _ = flags.GetBool("resume")
	}
	if flags.Changed("dry-run") {
		cfg.Upload.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("show-progress") {
		cfg.Upload.ShowProgress, _ = flags.GetBool("show-progress")
	}
	if flags.Changed("metrics-addr") {
		cfg.Upload.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}

func parseMetadataPairs(pairs []string) (map[string]string, error) {
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected key=value", pair)
		}
		meta[key] = value
	}
	return meta, nil
}

func (c *Config) validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api url is required")
	}
	if c.API.KeyID == "" {
		return fmt.Errorf("api key id is required")
	}
	if c.API.KeySecret == "" {
		return fmt.Errorf("api key secret is required")
	}
	if c.API.TimeoutMs < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if c.Upload.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Upload.MaxRetries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.Upload.RetryBackoffMs <= 0 {
		return fmt.Errorf("retry backoff must be positive")
	}

	return nil
}

// ValidateSource checks the S3 source settings. It is only called for
// commands that read from an import source.
func (c *Config) ValidateSource() error {
	if c.Source.Endpoint == "" {
		return fmt.Errorf("source endpoint is required")
	}
	if c.Source.AccessKey == "" {
		return fmt.Errorf("source access key is required")
	}
	if c.Source.SecretKey == "" {
		return fmt.Errorf("source secret key is required")
	}
	if c.Source.Bucket == "" {
		return fmt.Errorf("source bucket is required")
	}

	return nil
}
