// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Index, Indexer, Snapshot, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Index    IndexConfig    `yaml:"index"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds admin HTTP server settings. A zero RateLimit disables
// per-client rate limiting.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       float64       `yaml:"rateLimit"`
	RateBurst       int           `yaml:"rateBurst"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CrawlBatches  string `yaml:"crawlBatches"`
	IndexComplete string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection, page-lock and page-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	LockTTL  time.Duration `yaml:"lockTTL"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexConfig describes the page file. NumPages, PageSize and ChecksumSize
// are only used when the file is created; an existing file carries its own
// geometry in the metadata block.
type IndexConfig struct {
	Path         string `yaml:"path"`
	NumPages     int    `yaml:"numPages"`
	PageSize     int    `yaml:"pageSize"`
	ChecksumSize int    `yaml:"checksumSize"`
}

// IndexerConfig controls the batch pipeline: chunk size, polling, per-chunk
// timeout and page-merge parallelism.
type IndexerConfig struct {
	ChunkSize     int           `yaml:"chunkSize"`
	PollInterval  time.Duration `yaml:"pollInterval"`
	ChunkTimeout  time.Duration `yaml:"chunkTimeout"`
	Workers       int           `yaml:"workers"`
	ProgressEvery int           `yaml:"progressEvery"`
	CommitRetries int           `yaml:"commitRetries"`
}

// SnapshotConfig controls uploads of the index file to S3-compatible storage.
type SnapshotConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	AccessKey   string `yaml:"accessKey"`
	SecretKey   string `yaml:"secretKey"`
	UseSSL      bool   `yaml:"useSSL"`
	EveryChunks int    `yaml:"everyChunks"`
}

// LoggingConfig controls structured logging level, output format and the
// optional rotating log file.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	File   LoggingFileConfig `yaml:"file"`
}

// LoggingFileConfig configures the lumberjack-rotated log file.
type LoggingFileConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
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

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Index.Path == "" {
		return fmt.Errorf("index.path is required")
	}
	if c.Index.NumPages <= 0 {
		return fmt.Errorf("index.numPages must be positive, got %d", c.Index.NumPages)
	}
	if c.Index.ChecksumSize < 0 || c.Index.ChecksumSize > 8 {
		return fmt.Errorf("index.checksumSize must be between 0 and 8, got %d", c.Index.ChecksumSize)
	}
	if c.Index.PageSize <= c.Index.ChecksumSize {
		return fmt.Errorf("index.pageSize %d must exceed checksumSize %d", c.Index.PageSize, c.Index.ChecksumSize)
	}
	if c.Indexer.ChunkSize <= 0 {
		return fmt.Errorf("indexer.chunkSize must be positive, got %d", c.Indexer.ChunkSize)
	}
	if c.Indexer.Workers <= 0 {
		c.Indexer.Workers = 1
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "tinyindex",
			User:            "tinyindex",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       true,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "tinyindex-indexer",
			Topics: KafkaTopics{
				CrawlBatches:  "crawl-batches",
				IndexComplete: "index.complete",
			},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			LockTTL:  30 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Index: IndexConfig{
			Path:         "data/index-v2.tinysearch",
			NumPages:     5_120_000,
			PageSize:     4096,
			ChecksumSize: 8,
		},
		Indexer: IndexerConfig{
			ChunkSize:     10000,
			PollInterval:  10 * time.Second,
			ChunkTimeout:  0,
			Workers:       1,
			ProgressEvery: 1000,
			CommitRetries: 3,
		},
		Snapshot: SnapshotConfig{
			Bucket:      "tinyindex",
			Prefix:      "snapshots/",
			EveryChunks: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: LoggingFileConfig{
				Path:       "logs/indexer.log",
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 14,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TI_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("TI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TI_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("TI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("TI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TI_INDEX_PATH"); v != "" {
		cfg.Index.Path = v
	}
	if v := os.Getenv("TI_INDEX_NUM_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.NumPages = n
		}
	}
	if v := os.Getenv("TI_INDEXER_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.ChunkSize = n
		}
	}
	if v := os.Getenv("TI_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("TI_SNAPSHOT_ACCESS_KEY"); v != "" {
		cfg.Snapshot.AccessKey = v
	}
	if v := os.Getenv("TI_SNAPSHOT_SECRET_KEY"); v != "" {
		cfg.Snapshot.SecretKey = v
	}
	if v := os.Getenv("TI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
