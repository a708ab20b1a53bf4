package biz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/model"
)

func newTestCache(t *testing.T) (*AnswerCache, *miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewAnswerCache(client, &AnswerCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "docchat:answer:",
	})
	return cache, mr, client
}

func TestAnswerCacheSetGet(t *testing.T) {
	cache, _, _ := newTestCache(t)
	ctx := context.Background()

	stored := &model.ChatResponse{
		Answer: "Redis backs the cache.",
		Sources: []model.ChunkSource{
			{DocumentName: "guide.md", Section: "Caching", Content: "passage", Score: 0.9},
		},
	}
	require.NoError(t, cache.Set(ctx, "how is redis used?", stored))

	got, err := cache.Get(ctx, "how is redis used?")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Redis backs the cache.", got.Answer)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "guide.md", got.Sources[0].DocumentName)
}

func TestAnswerCacheMiss(t *testing.T) {
	cache, _, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), "never asked")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAnswerCacheEntriesExpire(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "question", &model.ChatResponse{Answer: "answer"}))

	key := cache.cacheKey("question")
	ttl := mr.TTL(key)
	assert.Equal(t, time.Hour, ttl)

	mr.FastForward(2 * time.Hour)

	got, err := cache.Get(ctx, "question")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAnswerCacheCorruptEntryEvicted(t *testing.T) {
	cache, mr, client := newTestCache(t)
	ctx := context.Background()

	key := cache.cacheKey("question")
	require.NoError(t, mr.Set(key, "not json"))

	_, err := cache.Get(ctx, "question")
	require.Error(t, err)

	exists, err := client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestAnswerCacheClearByPrefix(t *testing.T) {
	cache, mr, client := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "first question", &model.ChatResponse{Answer: "one"}))
	require.NoError(t, cache.Set(ctx, "second question", &model.ChatResponse{Answer: "two"}))
	require.NoError(t, mr.Set("other:key", "keep me"))

	require.NoError(t, cache.Clear(ctx))

	for _, question := range []string{"first question", "second question"} {
		got, err := cache.Get(ctx, question)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	keep, err := client.Get(ctx, "other:key").Result()
	require.NoError(t, err)
	assert.Equal(t, "keep me", keep)
}

func TestAnswerCacheGetStats(t *testing.T) {
	cache, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "first question", &model.ChatResponse{Answer: "one"}))
	require.NoError(t, cache.Set(ctx, "second question", &model.ChatResponse{Answer: "two"}))

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["entries"])
	assert.Equal(t, int64(3600), stats["ttl_seconds"])
}
