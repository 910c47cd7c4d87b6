package config

import (
	"errors"
	"fmt"
	"log/slog"
	adaptermiddleware "posadmin/internal/adapters/http/middleware"
	adapterlogger "posadmin/internal/adapters/logger"
	"strconv"
	"time"
)

const (
	StorageDynamoDB = "dynamodb"
	StoragePostgres = "postgres"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

type Config struct {
	StorageBackend string
	TableName      string
	Region         string
	DatabaseURL    string

	CacheBackend string
	RedisURL     string
	CacheTTL     time.Duration
	CacheSize    int

	AuthMode   adaptermiddleware.Mode
	APIKey     string
	UserPoolID string

	TemplatePath string
	LogLevel     slog.Level
	Port         string

	// Lambda is set when running inside an AWS Lambda execution environment.
	Lambda bool
}

// Load reads the service configuration through getenv, normally os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	authMode, err := adaptermiddleware.ParseAuthMode(getenv("AUTH_MODE"))
	if err != nil {
		return Config{}, err
	}
	level, err := adapterlogger.ParseLevel(getenv("LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}

	lambda := getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
	defaultCache := CacheMemory
	if lambda {
		defaultCache = CacheNone
	}

	cfg := Config{
		StorageBackend: withDefault(getenv("STORAGE_BACKEND"), StorageDynamoDB),
		TableName:      getenv("TABLE_NAME"),
		Region:         getenv("AWS_REGION"),
		DatabaseURL:    getenv("DATABASE_URL"),
		CacheBackend:   withDefault(getenv("CACHE_BACKEND"), defaultCache),
		RedisURL:       getenv("REDIS_URL"),
		CacheTTL:       5 * time.Minute,
		CacheSize:      1024,
		AuthMode:       authMode,
		APIKey:         getenv("API_KEY"),
		UserPoolID:     getenv("COGNITO_USER_POOL_ID"),
		TemplatePath:   getenv("DEFAULT_TEMPLATE_PATH"),
		LogLevel:       level,
		Port:           withDefault(getenv("PORT"), "8080"),
		Lambda:         lambda,
	}
	if raw := getenv("CACHE_TTL"); raw != "" {
		if cfg.CacheTTL, err = time.ParseDuration(raw); err != nil || cfg.CacheTTL <= 0 {
			return Config{}, fmt.Errorf("CACHE_TTL must be a positive duration, got %q", raw)
		}
	}
	if raw := getenv("CACHE_SIZE"); raw != "" {
		if cfg.CacheSize, err = strconv.Atoi(raw); err != nil || cfg.CacheSize <= 0 {
			return Config{}, fmt.Errorf("CACHE_SIZE must be a positive integer, got %q", raw)
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageBackend {
	case StorageDynamoDB:
		if c.TableName == "" || c.Region == "" {
			return errors.New("TABLE_NAME and AWS_REGION are required for the dynamodb backend")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.CacheBackend {
	case CacheMemory:
		// The memory cache only sees invalidations made by its own process.
		if c.Lambda {
			return errors.New("CACHE_BACKEND=memory is per instance and cannot be used on lambda; use redis or none")
		}
	case CacheNone:
	case CacheRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis cache")
		}
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.AuthMode {
	case adaptermiddleware.ModeAPIKey:
		if c.APIKey == "" {
			return errors.New("API_KEY is required for api_key auth mode")
		}
	case adaptermiddleware.ModeCognito:
		if c.UserPoolID == "" || c.Region == "" {
			return errors.New("COGNITO_USER_POOL_ID and AWS_REGION are required for cognito auth mode")
		}
	}
	return nil
}

func withDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
