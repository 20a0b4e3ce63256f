package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	now         func() time.Time
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		now:         time.Now,
	}
}

// IsLogged reports whether the token belongs to a live session.
// Unknown tokens are not an error.
func (lc *LoginChecker) IsLogged(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	cmd := lc.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get session: %w", err)
	}

	createdAtUnix, err := strconv.ParseInt(cmd.Val(), 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse session created at: %w", err)
	}

	createdAt := time.Unix(createdAtUnix, 0)
	return lc.now().Sub(createdAt) <= lc.ttl, nil
}
