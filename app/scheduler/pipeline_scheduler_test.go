package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/config"
)

func TestSourceFromFilename(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"capitan_members_2026-08.csv", "capitan"},
		{"stripe_charges.xlsx", "stripe"},
		{"mailchimp.csv", "mailchimp"},
		{"square_pos_export_v2.csv", "square"},
	}
	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			assert.Equal(t, tc.want, sourceFromFilename(tc.filename))
		})
	}
}

func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rc := redis.NewClient(opt)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestRunLock(t *testing.T) {
	rc := testRedisClient(t)
	ctx := context.Background()

	newScheduler := func(key string) *PipelineScheduler {
		cfg := config.SchedulerConfig{
			RunLockKey: key,
			RunLockTTL: time.Minute,
		}
		return NewPipelineScheduler(nil, nil, rc, cfg, log.New(io.Discard, "", 0))
	}

	t.Run("ReleaseRemovesOwnLock", func(t *testing.T) {
		key := fmt.Sprintf("basin:test:run_lock:%d", time.Now().UnixNano())
		s := newScheduler(key)

		release, acquired, err := s.acquireRunLock(ctx)
		require.NoError(t, err)
		require.True(t, acquired)

		release()
		err = rc.Get(ctx, key).Err()
		assert.ErrorIs(t, err, redis.Nil)
	})

	t.Run("SecondAcquireIsRefused", func(t *testing.T) {
		key := fmt.Sprintf("basin:test:run_lock:%d", time.Now().UnixNano())
		s := newScheduler(key)

		release, acquired, err := s.acquireRunLock(ctx)
		require.NoError(t, err)
		require.True(t, acquired)
		defer release()

		_, acquired, err = s.acquireRunLock(ctx)
		require.NoError(t, err)
		assert.False(t, acquired)
	})

	t.Run("ReleaseNeverDeletesAnotherHoldersLock", func(t *testing.T) {
		key := fmt.Sprintf("basin:test:run_lock:%d", time.Now().UnixNano())
		s := newScheduler(key)

		release, acquired, err := s.acquireRunLock(ctx)
		require.NoError(t, err)
		require.True(t, acquired)

		// Simulate the lock expiring and another instance taking it before
		// this holder releases.
		require.NoError(t, rc.Set(ctx, key, "other-holder", time.Minute).Err())
		release()

		current, err := rc.Get(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, "other-holder", current)
		require.NoError(t, rc.Del(ctx, key).Err())
	})
}
