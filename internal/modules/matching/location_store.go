package matching

import (
	"context"
	"fmt"

	"livraison-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	livreurGeoKey    = "livraison:livreurs:geo"
	livreurOnlineKey = "livraison:livreurs:online"
)

// LocationStore keeps livreur live positions and presence in redis. Positions
// live in a GEO set, presence in a plain set; a livreur is a match candidate
// only when present in both.
type LocationStore struct {
	redis *redis.Client
}

func NewLocationStore(rdb *redis.Client) *LocationStore {
	return &LocationStore{redis: rdb}
}

// ReportLocation upserts the livreur's last known position.
func (s *LocationStore) ReportLocation(ctx context.Context, livreurID string, lat, lng float64) error {
	err := s.redis.GeoAdd(ctx, livreurGeoKey, &redis.GeoLocation{
		Name:      livreurID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("locationstore.ReportLocation: %w", err)
	}
	return nil
}

func (s *LocationStore) SetOnline(ctx context.Context, livreurID string) error {
	if err := s.redis.SAdd(ctx, livreurOnlineKey, livreurID).Err(); err != nil {
		return fmt.Errorf("locationstore.SetOnline: %w", err)
	}
	return nil
}

// SetOffline drops the livreur from presence and from the GEO set, so a stale
// position can never make an offline livreur eligible.
func (s *LocationStore) SetOffline(ctx context.Context, livreurID string) error {
	if err := s.redis.SRem(ctx, livreurOnlineKey, livreurID).Err(); err != nil {
		return fmt.Errorf("locationstore.SetOffline: %w", err)
	}
	if err := s.redis.ZRem(ctx, livreurGeoKey, livreurID).Err(); err != nil {
		return fmt.Errorf("locationstore.SetOffline: %w", err)
	}
	return nil
}

// Nearest returns up to count online livreur IDs ordered by distance to the
// given point. Radius is generous; the count cap does the real narrowing.
func (s *LocationStore) Nearest(ctx context.Context, p models.Location, count int) ([]string, error) {
	results, err := s.redis.GeoSearch(ctx, livreurGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Longitude,
		Latitude:   p.Latitude,
		Radius:     50,
		RadiusUnit: "km",
		Sort:       "ASC",
		Count:      count * 4,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("locationstore.Nearest: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	online, err := s.redis.SMIsMember(ctx, livreurOnlineKey, toAnySlice(results)...).Result()
	if err != nil {
		return nil, fmt.Errorf("locationstore.Nearest: presence: %w", err)
	}

	ids := make([]string, 0, count)
	for i, id := range results {
		if !online[i] {
			continue
		}
		ids = append(ids, id)
		if len(ids) == count {
			break
		}
	}
	return ids, nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
