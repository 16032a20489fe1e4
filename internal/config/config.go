package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Query counting modes
const (
	// CountingPerKmer counts each distinct query kmer independently
	CountingPerKmer = "per_kmer"
	// CountingRunningTotal carries one accumulator across all query kmers
	CountingRunningTotal = "running_total"
)

// DetectorConfig holds kmer extraction and classification configuration
type DetectorConfig struct {
	KmerSize          int      `yaml:"kmer_size"`
	MaxProfileEntries int      `yaml:"max_profile_entries"`
	QueryCounting     string   `yaml:"query_counting"`
	TextUnit          string   `yaml:"text_unit"`
	Normalization     string   `yaml:"normalization"`
	CaseFold          bool     `yaml:"case_fold"`
	AllowedLanguages  []string `yaml:"allowed_languages"`
	MaxQueryBytes     int      `yaml:"max_query_bytes"`
	Shards            int      `yaml:"shards"`
}

// PipelineConfig holds training pipeline configuration
type PipelineConfig struct {
	CorpusPath    string `yaml:"corpus_path"`
	Delimiter     string `yaml:"delimiter"`
	Workers       int    `yaml:"workers"`
	QueueCapacity int    `yaml:"queue_capacity"`
}

// ServerConfig holds HTTP and gRPC server configuration
type ServerConfig struct {
	InstanceID      string        `yaml:"instance_id"`
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	GRPCPort        int           `yaml:"grpc_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config represents the complete detector configuration
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DefaultConfig returns a configuration with every default applied
func DefaultConfig() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	setDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a file. An empty path yields the
// defaults. Environment overrides are applied in both cases.
func LoadConfig(filePath string) (*Config, error) {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvironmentOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Detector.KmerSize == 0 {
		cfg.Detector.KmerSize = 4
	}
	if cfg.Detector.MaxProfileEntries == 0 {
		cfg.Detector.MaxProfileEntries = 300
	}
	if cfg.Detector.QueryCounting == "" {
		cfg.Detector.QueryCounting = CountingPerKmer
	}
	if cfg.Detector.TextUnit == "" {
		cfg.Detector.TextUnit = "rune"
	}
	if cfg.Detector.Normalization == "" {
		cfg.Detector.Normalization = "none"
	}
	if cfg.Detector.MaxQueryBytes == 0 {
		cfg.Detector.MaxQueryBytes = 1 << 20 // 1MiB
	}
	if cfg.Detector.Shards == 0 {
		cfg.Detector.Shards = 32
	}

	if cfg.Pipeline.Delimiter == "" {
		cfg.Pipeline.Delimiter = "@"
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.QueueCapacity == 0 {
		cfg.Pipeline.QueueCapacity = 10
	}

	if cfg.Server.InstanceID == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Server.InstanceID = host
		} else {
			cfg.Server.InstanceID = "langdetect"
		}
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.GRPCPort == 0 {
		cfg.Server.GRPCPort = 50061
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 200
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 400
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// applyEnvironmentOverrides applies LANGDETECT_* environment variables.
// Unparseable numeric values are ignored.
func applyEnvironmentOverrides(cfg *Config) {
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// Detector configuration
	envInt("LANGDETECT_KMER_SIZE", &cfg.Detector.KmerSize)
	envInt("LANGDETECT_MAX_PROFILE_ENTRIES", &cfg.Detector.MaxProfileEntries)
	envString("LANGDETECT_QUERY_COUNTING", &cfg.Detector.QueryCounting)
	envString("LANGDETECT_TEXT_UNIT", &cfg.Detector.TextUnit)
	envString("LANGDETECT_NORMALIZATION", &cfg.Detector.Normalization)
	if v := os.Getenv("LANGDETECT_CASE_FOLD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Detector.CaseFold = b
		}
	}
	if v := os.Getenv("LANGDETECT_ALLOWED_LANGUAGES"); v != "" {
		cfg.Detector.AllowedLanguages = splitList(v)
	}

	// Pipeline configuration
	envString("LANGDETECT_CORPUS_PATH", &cfg.Pipeline.CorpusPath)
	envInt("LANGDETECT_WORKERS", &cfg.Pipeline.Workers)
	envInt("LANGDETECT_QUEUE_CAPACITY", &cfg.Pipeline.QueueCapacity)

	// Server configuration
	envString("LANGDETECT_INSTANCE_ID", &cfg.Server.InstanceID)
	envString("LANGDETECT_HOST", &cfg.Server.Host)
	envInt("LANGDETECT_HTTP_PORT", &cfg.Server.HTTPPort)
	envInt("LANGDETECT_GRPC_PORT", &cfg.Server.GRPCPort)

	// Logging configuration
	envString("LANGDETECT_LOG_LEVEL", &cfg.Logging.Level)
	envString("LANGDETECT_LOG_FORMAT", &cfg.Logging.Format)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Detector.KmerSize < 2 {
		return fmt.Errorf("detector.kmer_size must be at least 2")
	}
	if c.Detector.MaxProfileEntries < 1 {
		return fmt.Errorf("detector.max_profile_entries must be positive")
	}
	switch c.Detector.QueryCounting {
	case CountingPerKmer, CountingRunningTotal:
	default:
		return fmt.Errorf("detector.query_counting must be %q or %q", CountingPerKmer, CountingRunningTotal)
	}
	switch c.Detector.TextUnit {
	case "rune", "grapheme":
	default:
		return fmt.Errorf("detector.text_unit must be rune or grapheme")
	}
	switch c.Detector.Normalization {
	case "none", "nfc", "nfkc":
	default:
		return fmt.Errorf("detector.normalization must be none, nfc or nfkc")
	}
	if c.Detector.MaxQueryBytes < 0 {
		return fmt.Errorf("detector.max_query_bytes must not be negative")
	}
	if c.Detector.Shards < 1 {
		return fmt.Errorf("detector.shards must be positive")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be positive")
	}
	if c.Pipeline.QueueCapacity < 1 {
		return fmt.Errorf("pipeline.queue_capacity must be positive")
	}
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535")
	}
	if c.Server.GRPCPort < 1 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port must be between 1 and 65535")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console")
	}
	return nil
}
