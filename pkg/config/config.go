package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"
)

// Service names understood by Validate
const (
	ServiceAPI     = "api"
	ServiceWatcher = "watcher"
	ServiceSyncer  = "syncer"
	ServiceCLI     = "cli"
)

// AppConfig holds the complete configuration for the application
type AppConfig struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	ServiceName string            `mapstructure:"service_name"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	MongoDB     MongoConfig       `mapstructure:"mongodb"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	Watcher     WatcherConfig     `mapstructure:"watcher"`
	Syncer      SyncerConfig      `mapstructure:"syncer"`
	Client      ClientConfig      `mapstructure:"client"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type LeaderboardConfig struct {
	Limit            int64         `mapstructure:"limit"`
	StrictValidation bool          `mapstructure:"strict_validation"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type PostgresConfig struct {
	URI             string        `mapstructure:"uri"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// WatcherConfig selects where the change stream checkpoint lives. An empty
// Redis address keeps it in ResumeTokenDir on disk.
type WatcherConfig struct {
	ResumeTokenDir string `mapstructure:"resume_token_dir"`
	ResumeTokenKey string `mapstructure:"resume_token_key"`
}

type SyncerConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	WorkerCount   int           `mapstructure:"worker_count"`
}

type ClientConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheDir string        `mapstructure:"cache_dir"`
}

// Load reads configuration for the named service from defaults, an optional
// .env file, environment variables and an optional config file.
func Load(path, service string) (*AppConfig, error) {
	// .env is optional; variables already set in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()

	// Default values
	v.SetDefault("service_name", service)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.metrics_addr", ":9090")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("mongodb.database", "testdb")
	v.SetDefault("mongodb.collection", "leaderboard")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)
	v.SetDefault("leaderboard.limit", 10)
	v.SetDefault("leaderboard.strict_validation", false)
	v.SetDefault("leaderboard.request_timeout", 5*time.Second)
	v.SetDefault("kafka.topic", "leaderboard.entries")
	v.SetDefault("kafka.group_id", "leaderboard-syncer")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("watcher.resume_token_dir", ".")
	v.SetDefault("watcher.resume_token_key", "leaderboard_resume_token")
	v.SetDefault("syncer.batch_size", 500)
	v.SetDefault("syncer.flush_interval", 500*time.Millisecond)
	v.SetDefault("syncer.worker_count", 4)
	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("client.cache_dir", defaultCacheDir())

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Bind environment variables explicitly for nested structs to ensure Unmarshal picks them up
	v.BindEnv("service_name", "SERVICE_NAME")
	v.BindEnv("environment", "ENVIRONMENT")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("http.addr", "HTTP_ADDR")
	v.BindEnv("http.metrics_addr", "HTTP_METRICS_ADDR")
	v.BindEnv("mongodb.uri", "MONGODB_URI", "PRIVATE_STATIC_DB_URL")
	v.BindEnv("mongodb.database", "MONGODB_DATABASE")
	v.BindEnv("mongodb.collection", "MONGODB_COLLECTION")
	v.BindEnv("leaderboard.limit", "LEADERBOARD_LIMIT")
	v.BindEnv("leaderboard.strict_validation", "LEADERBOARD_STRICT_VALIDATION")
	v.BindEnv("leaderboard.request_timeout", "LEADERBOARD_REQUEST_TIMEOUT")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("postgres.uri", "POSTGRES_URI")
	v.BindEnv("postgres.max_conns", "POSTGRES_MAX_CONNS")
	v.BindEnv("postgres.min_conns", "POSTGRES_MIN_CONNS")
	v.BindEnv("watcher.resume_token_dir", "WATCHER_RESUME_TOKEN_DIR")
	v.BindEnv("syncer.batch_size", "SYNCER_BATCH_SIZE")
	v.BindEnv("syncer.flush_interval", "SYNCER_FLUSH_INTERVAL")
	v.BindEnv("syncer.worker_count", "SYNCER_WORKER_COUNT")
	v.BindEnv("client.base_url", "LEADERBOARD_URL")
	v.BindEnv("client.cache_dir", "LEADERBOARD_CACHE_DIR")

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Manual check for Kafka brokers if they came as a single string from env
	brokers := v.GetString("kafka.brokers")
	if brokers != "" && len(config.Kafka.Brokers) <= 1 {
		config.Kafka.Brokers = strings.Split(brokers, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the settings the configured service needs
func (c *AppConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}

	switch c.ServiceName {
	case ServiceAPI:
		if err := c.validateMongo(); err != nil {
			return err
		}
		if c.Leaderboard.Limit <= 0 || c.Leaderboard.Limit > leaderboard.DefaultLimit {
			return fmt.Errorf("leaderboard.limit must be between 1 and %d", leaderboard.DefaultLimit)
		}
	case ServiceWatcher:
		if err := c.validateMongo(); err != nil {
			return err
		}
		if err := c.validateKafka(); err != nil {
			return err
		}
		if c.Redis.Addr == "" && c.Watcher.ResumeTokenDir == "" {
			return errors.New("watcher.resume_token_dir or redis.addr is required")
		}
	case ServiceSyncer:
		if err := c.validateKafka(); err != nil {
			return err
		}
		if c.Postgres.URI == "" {
			return errors.New("postgres.uri is required")
		}
		if c.Syncer.BatchSize <= 0 || c.Syncer.WorkerCount <= 0 {
			return errors.New("syncer.batch_size and syncer.worker_count must be positive")
		}
	case ServiceCLI:
		if c.Client.BaseURL == "" {
			return errors.New("client.base_url is required")
		}
	}
	return nil
}

func (c *AppConfig) validateMongo() error {
	if c.MongoDB.URI == "" {
		return errors.New("mongodb.uri is required")
	}
	if c.MongoDB.Database == "" {
		return errors.New("mongodb.database is required")
	}
	if c.MongoDB.Collection == "" {
		return errors.New("mongodb.collection is required")
	}
	return nil
}

func (c *AppConfig) validateKafka() error {
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	if c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required")
	}
	return nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".flappy-bird"
	}
	return dir + string(os.PathSeparator) + "flappy-bird"
}
