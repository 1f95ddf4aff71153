package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"cpq-console/internal/common/config"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type draft struct {
	Step int    `json:"step"`
	Name string `json:"name"`
}

// ==========================
//  GetJSON
// ==========================

func TestRedisClient_GetJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes stored value", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		c := &RedisClient{Client: rdb}
		mock.ExpectGet("opportunityFormData").SetVal(`{"step":2,"name":"Renewal"}`)

		var out draft
		require.NoError(t, c.GetJSON(ctx, "opportunityFormData", &out))
		assert.Equal(t, draft{Step: 2, Name: "Renewal"}, out)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing key", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		c := &RedisClient{Client: rdb}
		mock.ExpectGet("token").RedisNil()

		var out string
		err := c.GetJSON(ctx, "token", &out)
		assert.ErrorIs(t, err, ErrKeyNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("backend error is wrapped", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		c := &RedisClient{Client: rdb}
		boom := errors.New("connection refused")
		mock.ExpectGet("token").SetErr(boom)

		var out string
		err := c.GetJSON(ctx, "token", &out)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "redis get token")
	})

	t.Run("undecodable value", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		c := &RedisClient{Client: rdb}
		mock.ExpectGet("opportunityFormData").SetVal("not-json")

		var out draft
		err := c.GetJSON(ctx, "opportunityFormData", &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode opportunityFormData")
	})
}

// ==========================
//  SetJSON / Del
// ==========================

func TestRedisClient_SetJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("stores encoded value with ttl", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		c := &RedisClient{Client: rdb}
		mock.ExpectSet("opportunityFormData", []byte(`{"step":1,"name":"New"}`), time.Hour).SetVal("OK")

		require.NoError(t, c.SetJSON(ctx, "opportunityFormData", draft{Step: 1, Name: "New"}, time.Hour))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("backend error is wrapped", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		c := &RedisClient{Client: rdb}
		mock.ExpectSet("token", []byte(`"abc"`), time.Duration(0)).SetErr(errors.New("READONLY"))

		err := c.SetJSON(ctx, "token", "abc", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis set token")
	})

	t.Run("unencodable value", func(t *testing.T) {
		rdb, _ := redismock.NewClientMock()
		c := &RedisClient{Client: rdb}

		err := c.SetJSON(ctx, "bad", make(chan int), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encode bad")
	})
}

func TestRedisClient_Del(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := &RedisClient{Client: rdb}
	mock.ExpectDel("a", "b").SetVal(2)

	require.NoError(t, c.Del(context.Background(), "a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}
