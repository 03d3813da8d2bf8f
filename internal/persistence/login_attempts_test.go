package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/config"
)

func TestLoginAttempts_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.NoError(t, r.Ping(ctx))

	attempts := NewLoginAttempts(r, 5, 15*time.Minute, zap.NewNop())
	for i := 0; i < 10; i++ {
		attempts.RecordFailure(ctx, "admin@example.com")
	}
	assert.False(t, attempts.Locked(ctx, "admin@example.com"))
	assert.NotPanics(t, func() { attempts.Reset(ctx, "admin@example.com") })
}

func TestLoginAttempts_NilIsNoop(t *testing.T) {
	var attempts *LoginAttempts
	assert.False(t, attempts.Locked(context.Background(), "x"))
}
