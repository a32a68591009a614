// internal/common/database/redis_test.go
package database

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}

	mock.ExpectPing().SetVal("PONG")

	err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_GetSetDel(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}
	ctx := context.Background()

	mock.ExpectSet("ticket:progress:t-1", "started", time.Minute).SetVal("OK")
	mock.ExpectGet("ticket:progress:t-1").SetVal("started")
	mock.ExpectDel("ticket:progress:t-1").SetVal(1)

	require.NoError(t, client.Set(ctx, "ticket:progress:t-1", "started", time.Minute))

	val, err := client.Get(ctx, "ticket:progress:t-1")
	require.NoError(t, err)
	assert.Equal(t, "started", val)

	require.NoError(t, client.Del(ctx, "ticket:progress:t-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_GetMissingKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}

	mock.ExpectGet("nope").RedisNil()

	_, err := client.Get(context.Background(), "nope")
	assert.Error(t, err)
}
