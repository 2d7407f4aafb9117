package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"query-insight-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestAnswerStore_SaveAndLoad(t *testing.T) {
	mr, client := setupMiniredis(t)
	store := NewAnswerStore(client, time.Minute)
	ctx := context.Background()

	chart := models.VisualizationDescriptor{ChartFamily: "line", ChartVariant: "year-comparison", Rationale: "r"}
	require.NoError(t, store.SaveChart(ctx, "answer-1", chart))

	assert.True(t, mr.Exists("insight:answer:answer-1:chart"))
	assert.Equal(t, time.Minute, mr.TTL("insight:answer:answer-1:chart"))

	got, err := store.LoadChart(ctx, "answer-1")
	require.NoError(t, err)
	assert.Equal(t, chart, *got)

	require.NoError(t, store.DeleteChart(ctx, "answer-1"))
	_, err = store.LoadChart(ctx, "answer-1")
	assert.True(t, errors.Is(err, ErrAnswerNotFound))
}

func TestAnswerStore_Expiry(t *testing.T) {
	mr, client := setupMiniredis(t)
	store := NewAnswerStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SaveChart(ctx, "answer-2", models.VisualizationDescriptor{ChartFamily: "bar"}))
	mr.FastForward(2 * time.Minute)

	_, err := store.LoadChart(ctx, "answer-2")
	assert.True(t, errors.Is(err, ErrAnswerNotFound))
}

func TestAnswerStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty answer id", func(t *testing.T) {
		_, client := setupMiniredis(t)
		err := NewAnswerStore(client, time.Minute).SaveChart(ctx, "", models.VisualizationDescriptor{})
		assert.Error(t, err)
	})

	t.Run("server error on save", func(t *testing.T) {
		mr, client := setupMiniredis(t)
		mr.SetError("LOADING server is loading")
		err := NewAnswerStore(client, time.Minute).SaveChart(ctx, "a", models.VisualizationDescriptor{ChartFamily: "bar"})
		assert.Error(t, err)
	})

	t.Run("server error on load is not a miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet("insight:answer:a:chart").SetErr(errors.New("connection reset by peer"))

		_, err := NewAnswerStore(db, time.Minute).LoadChart(ctx, "a")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrAnswerNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt payload", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet("insight:answer:a:chart").SetVal("{not json")

		_, err := NewAnswerStore(db, time.Minute).LoadChart(ctx, "a")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode chart")
	})
}

func TestRedisClient_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := NewRedis(configForAddr(mr.Addr()))
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}
