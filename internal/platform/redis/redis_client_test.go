package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Addr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cache:6380", Config{Host: "cache", Port: "6380"}.Addr())
}

func TestNewRedisClient_Disabled(t *testing.T) {
	t.Parallel()

	rdb, err := NewRedisClient(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, rdb)
}
