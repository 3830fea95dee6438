package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orihero/aish-sub002/internal/domain"
	"github.com/rs/zerolog/log"
)

const lockPrefix = "lock:"

// unlockScript deletes the key only while it still holds our token
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Locker is a distributed lock shared by every service instance
type Locker struct {
	client *Client
}

// NewLocker creates a new Redis-backed locker
func NewLocker(client *Client) *Locker {
	return &Locker{client: client}
}

// Lock acquires key for ttl without waiting. It returns domain.ErrLocked when another holder has it.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	fullKey := lockPrefix + key
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLocked
	}

	return func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.client.rdb.Eval(ctx, unlockScript, []string{fullKey}, token).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}, nil
}
