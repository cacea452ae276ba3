// Package config loads and validates textmatcher configuration from YAML
// files with environment-variable overrides. It provides typed structs for the
// scanner and for every subsystem of the scan service (Server, Postgres,
// Kafka, Redis, Jobs, etc.).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
)

// DefaultBatchSize is the number of lines per batch when none is configured.
const DefaultBatchSize = 1000

// Config is the top-level application configuration.
type Config struct {
	Scan     ScanConfig     `yaml:"scan"`
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ScanConfig describes one scan: what to read, what to look for, and how to
// split the work.
type ScanConfig struct {
	FilePath  string        `yaml:"filePath"`
	Terms     []string      `yaml:"terms"`
	BatchSize int           `yaml:"batchSize"`
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP server settings for the scan service.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ScanRoot        string        `yaml:"scanRoot"`
	MaxTextBytes    int64         `yaml:"maxTextBytes"`
	RateLimit       int           `yaml:"rateLimit"`
	RateWindow      time.Duration `yaml:"rateWindow"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
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
	ScanRequests string `yaml:"scanRequests"`
	ScanEvents   string `yaml:"scanEvents"`
}

// RedisConfig holds Redis connection parameters for the shared rate limiter.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// JobsConfig controls the Kafka-driven scan job runner.
type JobsConfig struct {
	Enabled     bool `yaml:"enabled"`
	EventBuffer int  `yaml:"eventBuffer"`
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
// overrides. It returns a Config populated with defaults for any missing
// values.
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
	cfg.Scan = cfg.Scan.WithDefaults()
	return cfg, nil
}

// WithDefaults fills zero batch size and worker count.
func (s ScanConfig) WithDefaults() ScanConfig {
	if s.BatchSize == 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.Workers == 0 {
		s.Workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Validate checks the scan parameters. A FilePath is only required when
// requireFile is set, since the service also scans inline text.
func (s ScanConfig) Validate(requireFile bool) error {
	if requireFile && strings.TrimSpace(s.FilePath) == "" {
		return apperrors.Invalid("file path is required")
	}
	if len(s.Terms) == 0 {
		return apperrors.Invalid("at least one search term is required")
	}
	for i, t := range s.Terms {
		if t == "" {
			return apperrors.Invalid("search term %d is empty", i)
		}
	}
	if s.BatchSize < 1 {
		return apperrors.Invalid("batch size must be positive, got %d", s.BatchSize)
	}
	if s.Workers < 1 {
		return apperrors.Invalid("worker count must be positive, got %d", s.Workers)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			BatchSize: DefaultBatchSize,
			Timeout:   5 * time.Minute,
		},
		Server: ServerConfig{
			Port:            8080,
			ScanRoot:        ".",
			MaxTextBytes:    8 << 20,
			RateLimit:       60,
			RateWindow:      time.Minute,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "textmatcher",
			User:            "textmatcher",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "textmatcher-group",
			Topics: KafkaTopics{
				ScanRequests: "scan-requests",
				ScanEvents:   "scan-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Jobs: JobsConfig{
			EventBuffer: 1000,
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

// applyEnvOverrides reads TM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TM_SCAN_FILE"); v != "" {
		cfg.Scan.FilePath = v
	}
	if v := os.Getenv("TM_SCAN_TERMS"); v != "" {
		cfg.Scan.Terms = strings.Split(v, ",")
	}
	if v := os.Getenv("TM_SCAN_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.BatchSize = n
		}
	}
	if v := os.Getenv("TM_SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.Workers = n
		}
	}
	if v := os.Getenv("TM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TM_SERVER_SCAN_ROOT"); v != "" {
		cfg.Server.ScanRoot = v
	}
	if v := os.Getenv("TM_SERVER_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("TM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
