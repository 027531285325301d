package docno

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// reserveScript bumps the per-prefix counter to max(stored, floor) + 1 in a
// single round trip, so concurrent callers never see the same value.
var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if current < floor then
	current = floor
end
current = current + 1
redis.call('SET', KEYS[1], current)
return current
`)

// Reserver hands out document numbers from an atomic Redis counter per prefix.
// The counter never falls below the highest number found in stored data.
type Reserver struct {
	client *redis.Client
}

// NewReserver wraps a Redis client.
func NewReserver(client *redis.Client) *Reserver {
	return &Reserver{client: client}
}

// Reserve claims the next suffix above floor for prefix.
func (r *Reserver) Reserve(ctx context.Context, prefix string, floor int64) (int64, error) {
	if r == nil || r.client == nil {
		return 0, errors.New("docno: reserver not configured")
	}
	if prefix == "" {
		return 0, errors.New("docno: prefix required")
	}
	n, err := reserveScript.Run(ctx, r.client, []string{counterKey(prefix)}, floor).Int64()
	if err != nil {
		return 0, fmt.Errorf("docno: reserve %s: %w", prefix, err)
	}
	return n, nil
}

// Peek returns the last suffix handed out for prefix, 0 when none.
func (r *Reserver) Peek(ctx context.Context, prefix string) (int64, error) {
	if r == nil || r.client == nil {
		return 0, nil
	}
	n, err := r.client.Get(ctx, counterKey(prefix)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func counterKey(prefix string) string {
	return "docno:" + strings.ToUpper(prefix) + ":seq"
}
