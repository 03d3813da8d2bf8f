package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loginFailureKeyPrefix = "login_failures:"

// LoginAttempts counts failed logins per email in Redis. Redis errors never
// block a login: the throttle fails open and logs.
type LoginAttempts struct {
	cache  *Redis
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewLoginAttempts builds a throttle allowing limit failures per window. A
// disabled Redis wrapper or limit <= 0 turns every call into a no-op.
func NewLoginAttempts(client *Redis, limit int, window time.Duration, logger *zap.Logger) *LoginAttempts {
	return &LoginAttempts{cache: client, limit: limit, window: window, logger: logger}
}

func (l *LoginAttempts) enabled() bool {
	return l != nil && l.cache.Enabled() && l.limit > 0 && l.window > 0
}

// Locked reports whether email has reached the failure limit.
func (l *LoginAttempts) Locked(ctx context.Context, email string) bool {
	if !l.enabled() {
		return false
	}
	n, err := l.cache.Client.Get(ctx, loginFailureKeyPrefix+email).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.logger.Warn("login throttle lookup failed", zap.Error(err))
		}
		return false
	}
	return n >= l.limit
}

// RecordFailure increments the failure counter. The window starts with the
// first failure; INCR and EXPIRE NX run in one MULTI.
func (l *LoginAttempts) RecordFailure(ctx context.Context, email string) {
	if !l.enabled() {
		return
	}
	key := loginFailureKeyPrefix + email
	_, err := l.cache.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		l.logger.Warn("login throttle increment failed", zap.Error(err))
	}
}

// Reset clears the counter after a successful login.
func (l *LoginAttempts) Reset(ctx context.Context, email string) {
	if !l.enabled() {
		return
	}
	if err := l.cache.Client.Del(ctx, loginFailureKeyPrefix+email).Err(); err != nil {
		l.logger.Warn("login throttle reset failed", zap.Error(err))
	}
}
