package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"loandesk-backend/internal/domain"
)

// CalendarCache is a short-TTL cache for availability calendars. Entries are
// keyed by (asset, range) plus a per-asset version counter; invalidation
// bumps the counter so every cached range for that asset goes stale at once.
type CalendarCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCalendarCache(rdb *redis.Client, ttl time.Duration) *CalendarCache {
	return &CalendarCache{rdb: rdb, ttl: ttl}
}

func verKey(assetID int32) string { return fmt.Sprintf("calendar:ver:%d", assetID) }

func (c *CalendarCache) entryKey(ctx context.Context, assetID int32, start, end time.Time) string {
	ver, err := c.rdb.Get(ctx, verKey(assetID)).Int64()
	if err != nil {
		ver = 0
	}
	return fmt.Sprintf("calendar:%d:v%d:%s:%s", assetID, ver, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

func (c *CalendarCache) Get(ctx context.Context, assetID int32, start, end time.Time) (*domain.AvailabilityCalendar, bool) {
	b, err := c.rdb.Get(ctx, c.entryKey(ctx, assetID, start, end)).Bytes()
	if err != nil {
		return nil, false
	}
	var cal domain.AvailabilityCalendar
	if err := json.Unmarshal(b, &cal); err != nil {
		return nil, false
	}
	return &cal, true
}

func (c *CalendarCache) Set(ctx context.Context, cal *domain.AvailabilityCalendar, start, end time.Time) {
	b, err := json.Marshal(cal)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, c.entryKey(ctx, cal.AssetID, start, end), b, c.ttl).Err()
}

// Invalidate drops every cached calendar for the asset.
func (c *CalendarCache) Invalidate(ctx context.Context, assetID int32) {
	_ = c.rdb.Incr(ctx, verKey(assetID)).Err()
}
