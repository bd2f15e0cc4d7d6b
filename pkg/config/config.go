// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Feed, Storage, Export, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Feed       FeedConfig       `yaml:"feed"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Export     ExportConfig     `yaml:"export"`
	Storage    StorageConfig    `yaml:"storage"`
	Plot       PlotConfig       `yaml:"plot"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// FeedConfig selects the post source and how much to pull per cycle.
type FeedConfig struct {
	Source          string        `yaml:"source"`
	Community       string        `yaml:"community"`
	Limit           int           `yaml:"limit"`
	CredentialsFile string        `yaml:"credentialsFile"`
	BaseURL         string        `yaml:"baseUrl"`
	TokenURL        string        `yaml:"tokenUrl"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"maxAttempts"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
}

// DictionaryConfig points at the allow-list and deny-list files.
type DictionaryConfig struct {
	AllowFile   string `yaml:"allowFile"`
	DenyFile    string `yaml:"denyFile"`
	FirstColumn bool   `yaml:"firstColumn"`
}

// IndexerConfig holds the relevance markers used to build the context index.
type IndexerConfig struct {
	Markers []string `yaml:"markers"`
}

// RankingConfig controls how many terms each metric keeps per window.
type RankingConfig struct {
	TopN int `yaml:"topN"`
}

// ExportConfig selects the window walk.
type ExportConfig struct {
	Mode       string        `yaml:"mode"`
	Cumulative bool          `yaml:"cumulative"`
	Window     time.Duration `yaml:"window"`
}

// StorageConfig selects persistence backends and their locations.
type StorageConfig struct {
	DataDir          string `yaml:"dataDir"`
	ArchiveBackend   string `yaml:"archiveBackend"`
	ArchiveFile      string `yaml:"archiveFile"`
	SQLitePath       string `yaml:"sqlitePath"`
	RankDir          string `yaml:"rankDir"`
	WatermarkBackend string `yaml:"watermarkBackend"`
	WatermarkFile    string `yaml:"watermarkFile"`
	PruneAfterDays   int    `yaml:"pruneAfterDays"`
}

// PlotConfig controls chart rendering after each cycle.
type PlotConfig struct {
	Enabled bool    `yaml:"enabled"`
	Dir     string  `yaml:"dir"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
}

// SchedulerConfig holds the idle delay between polling cycles.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ServerConfig holds HTTP read-API settings.
type ServerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// RateLimit is the number of API requests a client may make per
	// RateWindow. Zero disables limiting.
	RateLimit       int           `yaml:"rateLimit"`
	RateWindow      time.Duration `yaml:"rateWindow"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
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
	Posts      string `yaml:"posts"`
	RankEvents string `yaml:"rankEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	KeyPrefix string        `yaml:"keyPrefix"`
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

// Export modes.
const (
	ModeForward          = "forward"
	ModeForwardResumable = "forward-resumable"
	ModeBackward         = "backward"
	ModeUpTo             = "up-to"
)

// Backend names.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendRedis    = "redis"
	SourceReddit    = "reddit"
	SourceKafka     = "kafka"
)

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading config file %s: %v", apperrors.ErrConfiguration, path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing config file %s: %v", apperrors.ErrConfiguration, path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown modes and backends and non-positive sizes.
func (c *Config) Validate() error {
	var problems []string
	switch c.Export.Mode {
	case ModeForward, ModeForwardResumable, ModeBackward, ModeUpTo:
	default:
		problems = append(problems, fmt.Sprintf("export.mode %q", c.Export.Mode))
	}
	switch c.Storage.ArchiveBackend {
	case BackendCSV, BackendSQLite, BackendPostgres:
	default:
		problems = append(problems, fmt.Sprintf("storage.archiveBackend %q", c.Storage.ArchiveBackend))
	}
	switch c.Storage.WatermarkBackend {
	case BackendFile:
	case BackendRedis:
		if !c.Redis.Enabled {
			problems = append(problems, "storage.watermarkBackend redis requires redis.enabled")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.watermarkBackend %q", c.Storage.WatermarkBackend))
	}
	switch c.Feed.Source {
	case SourceReddit:
	case SourceKafka:
		if c.Kafka.Topics.Posts == "" || len(c.Kafka.Brokers) == 0 {
			problems = append(problems, "feed.source kafka requires kafka.brokers and kafka.topics.posts")
		}
	default:
		problems = append(problems, fmt.Sprintf("feed.source %q", c.Feed.Source))
	}
	if c.Export.Window <= 0 {
		problems = append(problems, "export.window must be positive")
	}
	if c.Scheduler.Interval <= 0 {
		problems = append(problems, "scheduler.interval must be positive")
	}
	if c.Ranking.TopN <= 0 {
		problems = append(problems, "ranking.topN must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: invalid %s", apperrors.ErrConfiguration, strings.Join(problems, ", "))
	}
	return nil
}

// defaultConfig returns a Config that runs a file-backed pipeline against the
// wallstreetbets feed.
func defaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			Source:          SourceReddit,
			Community:       "wallstreetbets",
			Limit:           350,
			CredentialsFile: "input_file/credentials",
			BaseURL:         "https://oauth.reddit.com",
			TokenURL:        "https://www.reddit.com/api/v1/access_token",
			Timeout:         30 * time.Second,
			MaxAttempts:     3,
			IdleTimeout:     5 * time.Second,
		},
		Dictionary: DictionaryConfig{
			AllowFile: "input_file/findWords.csv",
			DenyFile:  "input_file/stopWords.csv",
		},
		Indexer: IndexerConfig{
			Markers: []string{"🚀", "moon"},
		},
		Ranking: RankingConfig{
			TopN: 10,
		},
		Export: ExportConfig{
			Mode:   ModeForwardResumable,
			Window: 24 * time.Hour,
		},
		Storage: StorageConfig{
			DataDir:          "data",
			ArchiveBackend:   BackendCSV,
			ArchiveFile:      "data/history.csv",
			SQLitePath:       "data/history.db",
			RankDir:          "Log_data",
			WatermarkBackend: BackendFile,
			WatermarkFile:    "Log_data/maxDate.txt",
			PruneAfterDays:   3,
		},
		Plot: PlotConfig{
			Enabled: true,
			Dir:     "Plot_result",
			Width:   15,
			Height:  20,
		},
		Scheduler: SchedulerConfig{
			Interval: 10 * time.Minute,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "termtrend",
			User:            "termtrend",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "termtrend-group",
			Topics: KafkaTopics{
				Posts:      "community-posts",
				RankEvents: "term-rank-events",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			CacheTTL:  5 * time.Minute,
			KeyPrefix: "termtrend:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TT_FEED_SOURCE"); v != "" {
		cfg.Feed.Source = v
	}
	if v := os.Getenv("TT_FEED_COMMUNITY"); v != "" {
		cfg.Feed.Community = v
	}
	if v := os.Getenv("TT_FEED_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Feed.Limit = limit
		}
	}
	if v := os.Getenv("TT_FEED_CREDENTIALS_FILE"); v != "" {
		cfg.Feed.CredentialsFile = v
	}
	if v := os.Getenv("TT_DICTIONARY_ALLOW_FILE"); v != "" {
		cfg.Dictionary.AllowFile = v
	}
	if v := os.Getenv("TT_DICTIONARY_DENY_FILE"); v != "" {
		cfg.Dictionary.DenyFile = v
	}
	if v := os.Getenv("TT_EXPORT_MODE"); v != "" {
		cfg.Export.Mode = v
	}
	if v := os.Getenv("TT_EXPORT_CUMULATIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Export.Cumulative = b
		}
	}
	if v := os.Getenv("TT_STORAGE_ARCHIVE_BACKEND"); v != "" {
		cfg.Storage.ArchiveBackend = v
	}
	if v := os.Getenv("TT_STORAGE_RANK_DIR"); v != "" {
		cfg.Storage.RankDir = v
	}
	if v := os.Getenv("TT_SCHEDULER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.Interval = d
		}
	}
	if v := os.Getenv("TT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TT_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TT_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TT_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
