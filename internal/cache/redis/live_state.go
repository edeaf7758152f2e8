package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

const (
	keySnapshots     = "flasharb:snapshots"
	keyGas           = "flasharb:gas"
	keyOpportunities = "flasharb:opportunities"
)

// LiveState mirrors the scheduler's current view into Redis for out-of-process
// readers. Values expire on their own so a stalled writer cannot leave
// permanently stale data behind.
type LiveState struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLiveState creates a mirror whose keys expire after ttl.
func NewLiveState(client *Client, ttl time.Duration) *LiveState {
	return &LiveState{rdb: client.Underlying(), ttl: ttl}
}

func (l *LiveState) SetSnapshots(ctx context.Context, snaps []domain.PriceSnapshot) error {
	return l.setJSON(ctx, keySnapshots, snaps)
}

func (l *LiveState) SetGas(ctx context.Context, gas domain.GasReading) error {
	return l.setJSON(ctx, keyGas, gas)
}

func (l *LiveState) SetOpportunities(ctx context.Context, opps []domain.Opportunity) error {
	return l.setJSON(ctx, keyOpportunities, opps)
}

// Publish fans a payload out to pub/sub subscribers on the given channel.
func (l *LiveState) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := l.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

func (l *LiveState) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", key, err)
	}
	if err := l.rdb.Set(ctx, key, data, l.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}
