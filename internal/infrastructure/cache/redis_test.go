package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warnings []string
	errors   []string
}

func (l *recordingLogger) Info(context.Context, string, ...any)  {}
func (l *recordingLogger) Debug(context.Context, string, ...any) {}
func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	l.warnings = append(l.warnings, msg)
}
func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) {
	l.errors = append(l.errors, msg)
}

func setupRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis, *recordingLogger) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	logger := &recordingLogger{}
	return NewRedisCache(client, ttl, logger), mr, logger
}

func TestRedisCache_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := setupRedisCache(t, time.Minute)

	_, ok := c.Get(ctx, "org-1")
	assert.False(t, ok)

	c.Set(ctx, record("org-1", 4))
	assert.True(t, mr.Exists("posadmin:permissions:org-1"))

	got, ok := c.Get(ctx, "org-1")
	require.True(t, ok)
	assert.Equal(t, record("org-1", 4), got)

	c.Invalidate(ctx, "org-1")
	assert.False(t, mr.Exists("posadmin:permissions:org-1"))
}

func TestRedisCache_KeepsNewerVersion(t *testing.T) {
	ctx := context.Background()
	c, _, logger := setupRedisCache(t, time.Minute)

	c.Set(ctx, record("org-1", 5))
	c.Set(ctx, record("org-1", 4))
	got, ok := c.Get(ctx, "org-1")
	require.True(t, ok)
	assert.Equal(t, int64(5), got.Version)

	c.Set(ctx, record("org-1", 6))
	got, _ = c.Get(ctx, "org-1")
	assert.Equal(t, int64(6), got.Version)
	assert.Empty(t, logger.warnings)
}

func TestRedisCache_OverwritesCorruptEntryOnSet(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := setupRedisCache(t, time.Minute)
	require.NoError(t, mr.Set("posadmin:permissions:org-1", "{broken"))

	c.Set(ctx, record("org-1", 1))
	got, ok := c.Get(ctx, "org-1")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Version)
}

func TestRedisCache_AppliesTTL(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := setupRedisCache(t, 30*time.Second)

	c.Set(ctx, record("org-1", 1))
	assert.Equal(t, 30*time.Second, mr.TTL("posadmin:permissions:org-1"))

	mr.FastForward(31 * time.Second)
	_, ok := c.Get(ctx, "org-1")
	assert.False(t, ok)
}

func TestRedisCache_DropsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	c, mr, logger := setupRedisCache(t, time.Minute)

	require.NoError(t, mr.Set("posadmin:permissions:org-1", "{broken"))

	_, ok := c.Get(ctx, "org-1")
	assert.False(t, ok)
	assert.False(t, mr.Exists("posadmin:permissions:org-1"))
	assert.Len(t, logger.warnings, 1)
}

func TestRedisCache_ServerDownIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, mr, logger := setupRedisCache(t, time.Minute)
	mr.Close()

	_, ok := c.Get(ctx, "org-1")
	assert.False(t, ok)
	c.Set(ctx, record("org-1", 1))
	c.Invalidate(ctx, "org-1")

	assert.Len(t, logger.warnings, 2)
	assert.Len(t, logger.errors, 1)
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "invalid://url")
	assert.ErrorContains(t, err, "invalid redis URL")

	_, err = NewRedisClient(context.Background(), "redis://127.0.0.1:1")
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestKeyNamespacing(t *testing.T) {
	assert.Equal(t, "posadmin:permissions:org-9", key("org-9"))
}
