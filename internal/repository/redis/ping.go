package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/cache"
)

const pingKeyPrefix = "pontaj:last_ping:"

type pingStore struct {
	kv  cache.KVStore
	ttl time.Duration
}

// NewPingStore keeps last-ping instants in kv. Entries expire after ttl so a
// worker who stopped pinging long ago reads as a miss.
func NewPingStore(kv cache.KVStore, ttl time.Duration) shift.PingStore {
	return &pingStore{kv: kv, ttl: ttl}
}

func (s *pingStore) SetLastPing(ctx context.Context, workerID string, at time.Time) error {
	if err := s.kv.Set(ctx, pingKeyPrefix+workerID, at.UTC().Format(time.RFC3339Nano), s.ttl); err != nil {
		return fmt.Errorf("failed to store last ping: %w", err)
	}
	return nil
}

func (s *pingStore) GetLastPing(ctx context.Context, workerID string) (time.Time, bool, error) {
	val, err := s.kv.Get(ctx, pingKeyPrefix+workerID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read last ping: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt last ping %q: %w", val, err)
	}
	return at, true, nil
}
