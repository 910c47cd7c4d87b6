package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adaptermiddleware "posadmin/internal/adapters/http/middleware"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(env(map[string]string{"TABLE_NAME": "posadmin", "AWS_REGION": "us-east-1"}))
	require.NoError(t, err)

	assert.Equal(t, StorageDynamoDB, cfg.StorageBackend)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1024, cfg.CacheSize)
	assert.Equal(t, adaptermiddleware.ModeNone, cfg.AuthMode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_PostgresWithRedis(t *testing.T) {
	cfg, err := Load(env(map[string]string{
		"STORAGE_BACKEND":       "postgres",
		"DATABASE_URL":          "postgres://posadmin@localhost/posadmin?sslmode=disable",
		"CACHE_BACKEND":         "redis",
		"REDIS_URL":             "redis://localhost:6379/0",
		"CACHE_TTL":             "90s",
		"CACHE_SIZE":            "64",
		"AUTH_MODE":             "api_key",
		"API_KEY":               "s3cret",
		"DEFAULT_TEMPLATE_PATH": "configs/default_permissions.yaml",
		"LOG_LEVEL":             "debug",
		"PORT":                  "9090",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.StorageBackend)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 64, cfg.CacheSize)
	assert.Equal(t, adaptermiddleware.ModeAPIKey, cfg.AuthMode)
	assert.Equal(t, "configs/default_permissions.yaml", cfg.TemplatePath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_LambdaDefaultsToNoCache(t *testing.T) {
	cfg, err := Load(env(map[string]string{
		"TABLE_NAME":               "posadmin",
		"AWS_REGION":               "us-east-1",
		"AWS_LAMBDA_FUNCTION_NAME": "posadmin-api",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Lambda)
	assert.Equal(t, CacheNone, cfg.CacheBackend)
}

func TestLoad_LambdaRejectsMemoryCache(t *testing.T) {
	_, err := Load(env(map[string]string{
		"TABLE_NAME":               "posadmin",
		"AWS_REGION":               "us-east-1",
		"AWS_LAMBDA_FUNCTION_NAME": "posadmin-api",
		"CACHE_BACKEND":            "memory",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be used on lambda")
}

func TestLoad_Rejects(t *testing.T) {
	dynamo := map[string]string{"TABLE_NAME": "posadmin", "AWS_REGION": "us-east-1"}
	with := func(extra map[string]string) map[string]string {
		out := map[string]string{}
		for k, v := range dynamo {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	cases := map[string]map[string]string{
		"missing table":        {"AWS_REGION": "us-east-1"},
		"postgres without url": {"STORAGE_BACKEND": "postgres"},
		"unknown backend":      with(map[string]string{"STORAGE_BACKEND": "mysql"}),
		"redis without url":    with(map[string]string{"CACHE_BACKEND": "redis"}),
		"unknown cache":        with(map[string]string{"CACHE_BACKEND": "memcached"}),
		"bad ttl":              with(map[string]string{"CACHE_TTL": "soon"}),
		"negative ttl":         with(map[string]string{"CACHE_TTL": "-1m"}),
		"bad size":             with(map[string]string{"CACHE_SIZE": "0"}),
		"api key mode without": with(map[string]string{"AUTH_MODE": "api_key"}),
		"cognito without pool": with(map[string]string{"AUTH_MODE": "cognito"}),
		"invalid auth mode":    with(map[string]string{"AUTH_MODE": "basic"}),
		"invalid log level":    with(map[string]string{"LOG_LEVEL": "loud"}),
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(env(values))
			assert.Error(t, err)
		})
	}
}
