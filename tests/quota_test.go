package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/txix-open/isp-kit/test"
	"quota-guard-service/repository"
)

func TestQuotaIncrement(t *testing.T) {
	t.Parallel()
	testInstance, require := test.New(t)
	redisCli := NewRedis(testInstance)
	ctx := context.Background()
	t.Cleanup(func() {
		require.NoError(redisCli.FlushDB(ctx).Err())
	})

	repo := repository.NewQuota(redisCli, time.Second)
	today := time.Now()

	for expected := int64(1); expected <= 3; expected++ {
		value, err := repo.Increment(ctx, today)
		require.NoError(err)
		require.EqualValues(expected, value)
	}

	key := "counter:" + today.UTC().Format(time.DateOnly)
	ttl, err := redisCli.TTL(ctx, key).Result()
	require.NoError(err)
	require.Greater(ttl, time.Duration(0))
	require.LessOrEqual(ttl, 24*time.Hour)
}

func TestQuotaSetAlertSentinel(t *testing.T) {
	t.Parallel()
	testInstance, require := test.New(t)
	redisCli := NewRedis(testInstance)
	ctx := context.Background()
	t.Cleanup(func() {
		require.NoError(redisCli.FlushDB(ctx).Err())
	})

	repo := repository.NewQuota(redisCli, time.Second)
	today := time.Now()

	created, err := repo.SetAlertSentinel(ctx, today)
	require.NoError(err)
	require.True(created)

	created, err = repo.SetAlertSentinel(ctx, today)
	require.NoError(err)
	require.False(created)

	key := "alert-sent:" + today.UTC().Format(time.DateOnly)
	ttl, err := redisCli.TTL(ctx, key).Result()
	require.NoError(err)
	require.Greater(ttl, time.Duration(0))
	require.LessOrEqual(ttl, 24*time.Hour)
}

func TestQuotaStoreUnavailable(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	repo := repository.NewQuota(unavailableRedis(), 100*time.Millisecond)

	_, err := repo.Increment(context.Background(), time.Now())
	require.Error(err)

	_, err = repo.SetAlertSentinel(context.Background(), time.Now())
	require.Error(err)
}
