// Package config loads and validates the indexer configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// the pipeline, its input sources, its outputs and the optional publishers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Failure policies for the worker pool.
const (
	PolicyFailFast   = "fail-fast"
	PolicyCollectAll = "collect-all"
)

// Corpus source kinds.
const (
	SourceZip      = "zip"
	SourceDir      = "dir"
	SourcePostgres = "postgres"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatSegment = "segment"
)

// Config is the top-level application configuration.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Stopwords StopwordsConfig `yaml:"stopwords"`
	Output    OutputConfig    `yaml:"output"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// PipelineConfig controls partitioning, failure handling and index building.
type PipelineConfig struct {
	Workers           int           `yaml:"workers"`
	TopN              int           `yaml:"topN"`
	FailurePolicy     string        `yaml:"failurePolicy"`
	SkipUndecodable   bool          `yaml:"skipUndecodable"`
	RejectEmptyCorpus bool          `yaml:"rejectEmptyCorpus"`
	WorkerTimeout     time.Duration `yaml:"workerTimeout"`
}

// CorpusConfig identifies where documents are read from.
type CorpusConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// StopwordsConfig identifies the stopword list. Member names the entry
// inside a zip archive; when empty Path is read as a plain text file.
type StopwordsConfig struct {
	Path   string `yaml:"path"`
	Member string `yaml:"member"`
}

// OutputConfig controls index persistence.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// PostgresConfig holds PostgreSQL connection parameters for the postgres
// corpus source.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig controls publication of the finished index to Redis.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// KafkaConfig controls the index-complete notification.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config matching the classic layout: documents.zip,
// stopwords.zip/stopwords.txt, two workers, top 20 terms, JSON output.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Workers:       2,
			TopN:          20,
			FailurePolicy: PolicyFailFast,
		},
		Corpus: CorpusConfig{
			Source: SourceZip,
			Path:   "documents.zip",
		},
		Stopwords: StopwordsConfig{
			Path:   "stopwords.zip",
			Member: "stopwords.txt",
		},
		Output: OutputConfig{
			Path:   "inverted_index.json",
			Format: FormatJSON,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "corpus",
			User:            "corpus",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "documents",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "invidx:",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate reports the first invalid setting as an ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.ExitConfig, format, args...)
	}
	if c.Pipeline.Workers < 1 {
		return invalid("pipeline.workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.TopN < 0 {
		return invalid("pipeline.topN must be >= 0, got %d", c.Pipeline.TopN)
	}
	if c.Pipeline.WorkerTimeout < 0 {
		return invalid("pipeline.workerTimeout must not be negative")
	}
	switch c.Pipeline.FailurePolicy {
	case PolicyFailFast, PolicyCollectAll:
	default:
		return invalid("unknown pipeline.failurePolicy %q", c.Pipeline.FailurePolicy)
	}
	switch c.Corpus.Source {
	case SourceZip, SourceDir:
		if c.Corpus.Path == "" {
			return invalid("corpus.path is required for source %q", c.Corpus.Source)
		}
	case SourcePostgres:
		if c.Postgres.Table == "" {
			return invalid("postgres.table is required for the postgres corpus source")
		}
	default:
		return invalid("unknown corpus.source %q", c.Corpus.Source)
	}
	switch c.Output.Format {
	case FormatJSON, FormatSegment:
	default:
		return invalid("unknown output.format %q", c.Output.Format)
	}
	if c.Output.Path == "" {
		return invalid("output.path is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return invalid("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// applyEnvOverrides reads CI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CI_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = n
		}
	}
	if v := os.Getenv("CI_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.TopN = n
		}
	}
	if v := os.Getenv("CI_FAILURE_POLICY"); v != "" {
		cfg.Pipeline.FailurePolicy = v
	}
	if v := os.Getenv("CI_WORKER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.WorkerTimeout = d
		}
	}
	if v := os.Getenv("CI_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("CI_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("CI_STOPWORDS_PATH"); v != "" {
		cfg.Stopwords.Path = v
	}
	if v, ok := os.LookupEnv("CI_STOPWORDS_MEMBER"); ok {
		cfg.Stopwords.Member = v
	}
	if v := os.Getenv("CI_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("CI_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("CI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
