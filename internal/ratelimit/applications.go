package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/partnerbot/internal/config"
)

const keyApplicationApplicant = "partnerbot:applications:applicant:%s"

var errEmptyApplicant = errors.New("empty_applicant")

// Verdict is the outcome of one rate limit check.
type Verdict struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// ApplicationLimiter caps self-service applications per applicant using a
// fixed window counter in Redis. Without Redis every application is allowed.
type ApplicationLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewApplicationLimiter(client *redis.Client, cfg config.Config) *ApplicationLimiter {
	if client == nil || cfg.Redis.ApplicationLimit <= 0 || cfg.Redis.ApplicationWindow <= 0 {
		return &ApplicationLimiter{}
	}
	return &ApplicationLimiter{
		client: client,
		limit:  cfg.Redis.ApplicationLimit,
		window: cfg.Redis.ApplicationWindow,
	}
}

func (l *ApplicationLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

// AllowApplicant counts one application for userID and reports whether it
// still fits in the current window.
func (l *ApplicationLimiter) AllowApplicant(ctx context.Context, userID string) (Verdict, error) {
	if !l.Enabled() {
		return Verdict{Allowed: true}, nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Verdict{}, errEmptyApplicant
	}

	key := fmt.Sprintf(keyApplicationApplicant, userID)
	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Verdict{}, fmt.Errorf("count applications: %w", err)
	}

	return verdict(count.Val(), l.limit, ttl.Val()), nil
}

func verdict(count int64, limit int, ttl time.Duration) Verdict {
	remaining := int64(limit) - count
	if remaining >= 0 {
		return Verdict{Allowed: true, Remaining: int(remaining)}
	}
	if ttl < 0 {
		ttl = 0
	}
	return Verdict{Allowed: false, RetryAfter: ttl}
}
