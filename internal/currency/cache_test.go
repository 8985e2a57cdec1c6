package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRedis struct {
	mock.Mock
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	cmd := redis.NewStringCmd(ctx)
	if err := args.Error(1); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(args.String(0))
	}
	return cmd
}

func (m *MockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	cmd := redis.NewStatusCmd(ctx)
	if err := args.Error(0); err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal("OK")
	}
	return cmd
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		client := new(MockRedis)
		client.On("Get", ctx, "fx:latest:USD").Return("", redis.Nil)

		rates, ok, err := NewRedisCache(client).Get(ctx, "USD")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, rates)
	})

	t.Run("hit", func(t *testing.T) {
		client := new(MockRedis)
		client.On("Get", ctx, "fx:latest:USD").Return(`{"INR":"83.25"}`, nil)

		rates, ok, err := NewRedisCache(client).Get(ctx, "USD")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "83.25", rates["INR"].String())
	})

	t.Run("read error", func(t *testing.T) {
		client := new(MockRedis)
		client.On("Get", ctx, "fx:latest:USD").Return("", errors.New("conn reset"))

		_, _, err := NewRedisCache(client).Get(ctx, "USD")
		assert.ErrorContains(t, err, "conn reset")
	})

	t.Run("corrupt entry", func(t *testing.T) {
		client := new(MockRedis)
		client.On("Get", ctx, "fx:latest:USD").Return(`[1,2`, nil)

		_, _, err := NewRedisCache(client).Get(ctx, "USD")
		assert.ErrorContains(t, err, "decode")
	})

	t.Run("set with ttl", func(t *testing.T) {
		client := new(MockRedis)
		client.On("Set", ctx, "fx:latest:INR", mock.MatchedBy(func(v []byte) bool {
			return string(v) == `{"USD":"0.012"}`
		}), 6*time.Hour).Return(nil)

		err := NewRedisCache(client).Set(ctx, "INR", Rates{"USD": dec("0.012")}, 6*time.Hour)
		require.NoError(t, err)
		client.AssertExpectations(t)
	})
}
