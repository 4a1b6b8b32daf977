package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	id := fmt.Sprintf("session-%d", time.Now().UnixNano())

	t.Run("missing_session", func(t *testing.T) {
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save_and_get", func(t *testing.T) {
		rec := &models.ResearchSession{
			ID:           id,
			Title:        "机器人设计研究",
			ResearchText: "# 概述\n内容",
			OriginalText: "<p># 概述</p>\n内容",
		}
		require.NoError(t, store.Save(ctx, rec))
		assert.False(t, rec.UpdatedAt.IsZero())

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, rec.Title, got.Title)
		assert.Equal(t, rec.ResearchText, got.ResearchText)
		assert.Equal(t, rec.OriginalText, got.OriginalText)
	})

	t.Run("save_overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &models.ResearchSession{ID: id, Title: "新标题", ResearchText: "新内容"}))

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "新标题", got.Title)
		assert.Equal(t, "新内容", got.ResearchText)
		assert.Empty(t, got.OriginalText)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, id))
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, store.Delete(ctx, id), "deleting twice is not an error")
	})

	t.Run("concurrent_writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				rec := &models.ResearchSession{ID: fmt.Sprintf("%s-%d", id, n), ResearchText: "text"}
				assert.NoError(t, store.Save(ctx, rec))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			_, err := store.Get(ctx, fmt.Sprintf("%s-%d", id, i))
			assert.NoError(t, err)
			store.Delete(ctx, fmt.Sprintf("%s-%d", id, i))
		}
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.ResearchSession{ID: "s1", ResearchText: "x"}))
	_, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ExpiryKeepsConcurrentSave(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.ResearchSession{ID: "s1", ResearchText: "stale"}))
	now = now.Add(2 * time.Minute)

	// the first clock read inside Get happens after the read lock is
	// released; a Save lands there before the expired entry is removed
	saved := false
	store.now = func() time.Time {
		if !saved {
			saved = true
			require.NoError(t, store.Save(ctx, &models.ResearchSession{ID: "s1", ResearchText: "fresh"}))
		}
		return now
	}

	rec, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", rec.ResearchText)

	rec, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", rec.ResearchText)
}

func newMiniRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "research-session:", ttl)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newMiniRedisStore(t, 0)
	exerciseStore(t, store)
}

func TestRedisStore_KeyLayoutAndTTL(t *testing.T) {
	store, mr := newMiniRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.ResearchSession{ID: "abc", ResearchText: "x"}))

	assert.True(t, mr.Exists("research-session:abc"))
	assert.Equal(t, time.Hour, mr.TTL("research-session:abc"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	store, mr := newMiniRedisStore(t, 0)
	require.NoError(t, mr.Set("research-session:bad", "not json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode session")
}

func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("SESSION_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("SESSION_TEST_DATABASE_URL not set")
	}

	store, err := NewPostgresStore(context.Background(), databaseURL)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	tests := []struct {
		name          string
		cfg           config.Config
		expectedType  Store
		expectedError string
	}{
		{
			name:         "memory_default",
			cfg:          config.Config{},
			expectedType: &MemoryStore{},
		},
		{
			name: "redis",
			cfg: config.Config{
				Session: config.SessionConfig{Store: "redis"},
				Redis:   config.RedisConfig{Address: mr.Addr(), KeyPrefix: "s:"},
			},
			expectedType: &RedisStore{},
		},
		{
			name:          "unknown_store",
			cfg:           config.Config{Session: config.SessionConfig{Store: "etcd"}},
			expectedError: `unknown session store "etcd"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(context.Background(), &tt.cfg, zap.NewNop())
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.expectedType, store)
		})
	}
}
