package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPlatesKey = "lpr:plates:seen"

// PlateIndex keeps the set of plates seen so far in a sorted set scored by
// first-seen time, so reads come back in first-seen order.
type PlateIndex struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewPlateIndex returns redis-backed index. An empty key selects the default.
func NewPlateIndex(client *redis.Client, key string) *PlateIndex {
	if key == "" {
		key = defaultPlatesKey
	}
	return &PlateIndex{client: client, key: key, now: time.Now}
}

// Plates returns every indexed plate, oldest first.
func (p *PlateIndex) Plates(ctx context.Context) ([]string, error) {
	return p.client.ZRange(ctx, p.key, 0, -1).Result()
}

// Remember records plate unless it is already indexed; the existing first-seen
// score is never overwritten.
func (p *PlateIndex) Remember(ctx context.Context, plate string) error {
	return p.client.ZAddNX(ctx, p.key, redis.Z{
		Score:  float64(p.now().UnixMilli()),
		Member: plate,
	}).Err()
}

// Warm seeds the index from an ordered plate list, typically read from the database.
// Seeded plates are scored by position so they sort ahead of later sightings.
func (p *PlateIndex) Warm(ctx context.Context, plates []string) error {
	if len(plates) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(plates))
	for i, plate := range plates {
		members = append(members, redis.Z{Score: float64(i), Member: plate})
	}
	return p.client.ZAddNX(ctx, p.key, members...).Err()
}

// Reset drops the index.
func (p *PlateIndex) Reset(ctx context.Context) error {
	return p.client.Del(ctx, p.key).Err()
}
