// Package config provides configuration management for the cache services.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // worker.timezone must resolve on minimal images

	"github.com/spf13/viper"
)

// Supported cache store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds all configuration for the cache server and worker.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	YouTube  YouTubeConfig
	Cache    CacheConfig
	Worker   WorkerConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	// APIKeys enables key auth on /api routes when non-empty.
	APIKeys   []string
	RateLimit float64
	RateBurst int
	// CORSOrigins enables CORS on /api routes for browser clients when non-empty.
	CORSOrigins []string
}

// DatabaseConfig selects the cache store and holds PostgreSQL connection settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Driver         string
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// URL returns the postgres:// form used by golang-migrate.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// MongoConfig contains MongoDB settings used when Database.Driver is "mongo".
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// RedisConfig holds the Redis instance shared by the task queue and quota counters.
type RedisConfig struct {
	URL string
}

// RabbitMQConfig contains the cache event stream settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled  bool
	Host     string
	User     string
	Password string
	Exchange string
	Port     int
}

// URL returns the amqp:// connection URL.
func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", r.User, r.Password, r.Host, r.Port)
}

// YouTubeConfig contains YouTube Data API settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type YouTubeConfig struct {
	APIKey            string
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64
	DailyQuota        int
	QuotaThreshold    int
}

// CacheConfig holds freshness and sweep sizing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CacheConfig struct {
	TTL time.Duration
	// RefreshLookahead is how long before expiry a record becomes eligible for refresh.
	RefreshLookahead time.Duration
	RefreshBatchSize int
	EvictBatchSize   int
	MaxRequestIDs    int
	ProbeConcurrency int
}

// RefreshAge is the record age at which the refresher picks a record up.
func (c CacheConfig) RefreshAge() time.Duration {
	return c.TTL - c.RefreshLookahead
}

// WorkerConfig contains the sweep schedule and task server settings.
type WorkerConfig struct {
	Concurrency     int
	MetricsPort     int
	RefreshSchedule string
	EvictSchedule   string
	Timezone        string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	// APP_YOUTUBE_APIKEY overrides youtube.apikey and so on
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the services cannot run with. A missing YouTube
// API key is not an error here; it surfaces per request.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("invalid database.driver %q", c.Database.Driver)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.RefreshLookahead < 0 || c.Cache.RefreshLookahead >= c.Cache.TTL {
		return fmt.Errorf("cache.refreshlookahead must be in [0, ttl), got %s", c.Cache.RefreshLookahead)
	}
	if c.Cache.MaxRequestIDs <= 0 {
		return fmt.Errorf("cache.maxrequestids must be positive, got %d", c.Cache.MaxRequestIDs)
	}
	if c.YouTube.BatchSize <= 0 || c.YouTube.BatchSize > 50 {
		return fmt.Errorf("youtube.batchsize must be between 1 and 50, got %d", c.YouTube.BatchSize)
	}
	if _, err := time.LoadLocation(c.Worker.Timezone); err != nil {
		return fmt.Errorf("invalid worker.timezone %q: %w", c.Worker.Timezone, err)
	}
	return nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.readtimeout", 15*time.Second)
	viper.SetDefault("server.writetimeout", 15*time.Second)
	viper.SetDefault("server.idletimeout", 60*time.Second)
	viper.SetDefault("server.apikeys", []string{})
	viper.SetDefault("server.ratelimit", 10.0)
	viper.SetDefault("server.rateburst", 20)
	viper.SetDefault("server.corsorigins", []string{})

	// Database
	viper.SetDefault("database.driver", DriverPostgres)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "youtube_cache")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 30*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// MongoDB
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "youtube_cache")
	viper.SetDefault("mongo.collection", "youtubeVideoCache")

	// Redis
	viper.SetDefault("redis.url", "redis://localhost:6379/0")

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "youtube.cache")

	// YouTube
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.batchsize", 50)
	viper.SetDefault("youtube.concurrency", 4)
	viper.SetDefault("youtube.requestspersecond", 5.0)
	viper.SetDefault("youtube.dailyquota", 10000)
	viper.SetDefault("youtube.quotathreshold", 90)

	// Cache
	viper.SetDefault("cache.ttl", 29*24*time.Hour)
	viper.SetDefault("cache.refreshlookahead", 5*24*time.Hour)
	viper.SetDefault("cache.refreshbatchsize", 50)
	viper.SetDefault("cache.evictbatchsize", 100)
	viper.SetDefault("cache.maxrequestids", 100)
	viper.SetDefault("cache.probeconcurrency", 16)

	// Worker
	viper.SetDefault("worker.concurrency", 2)
	viper.SetDefault("worker.metricsport", 9091)
	viper.SetDefault("worker.refreshschedule", "0 2 * * *")
	viper.SetDefault("worker.evictschedule", "0 3 * * 0")
	viper.SetDefault("worker.timezone", "America/New_York")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
