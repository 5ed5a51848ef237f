package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-chats-collector/internal/domain"
)

// fakeRedis serves Get and Set from memory; every other command panics.
type fakeRedis struct {
	goredis.Cmdable

	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	if f.err != nil {
		return goredis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	if f.err != nil {
		return goredis.NewStatusResult("", f.err)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func TestChatCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	redis := newFakeRedis()
	cache := NewChatCache(redis, time.Minute)
	chat := &domain.ChatInfo{ID: -1001, PublicName: "dailynews", Type: domain.ChatTypeChannel, Title: "Daily News"}

	require.NoError(t, cache.SetChat(ctx, "public:dailynews", chat))

	got, err := cache.GetChat(ctx, "public:dailynews")
	require.NoError(t, err)
	assert.Equal(t, chat, got)
	assert.Equal(t, time.Minute, redis.ttls[keyPrefix+"public:dailynews"])
}

func TestChatCache_Miss(t *testing.T) {
	got, err := NewChatCache(newFakeRedis(), 0).GetChat(context.Background(), "id:1")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChatCache_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("read_failure", func(t *testing.T) {
		redis := newFakeRedis()
		redis.err = errors.New("connection refused")

		_, err := NewChatCache(redis, 0).GetChat(ctx, "id:1")
		assert.ErrorContains(t, err, "failed to read chat id:1")
	})

	t.Run("write_failure", func(t *testing.T) {
		redis := newFakeRedis()
		redis.err = errors.New("READONLY")

		err := NewChatCache(redis, 0).SetChat(ctx, "id:1", &domain.ChatInfo{ID: 1})
		assert.ErrorContains(t, err, "READONLY")
	})

	t.Run("corrupt_entry", func(t *testing.T) {
		redis := newFakeRedis()
		redis.data[keyPrefix+"id:1"] = "{not json"

		_, err := NewChatCache(redis, 0).GetChat(ctx, "id:1")
		assert.ErrorContains(t, err, "failed to decode chat")
	})
}

func TestNewChatCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultChatTTL, NewChatCache(newFakeRedis(), -time.Second).ttl)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "http://not-redis")
	assert.ErrorContains(t, err, "invalid redis url")
}
