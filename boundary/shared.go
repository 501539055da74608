/*
Copyright © 2026 the SeekMap authors.
This file is part of SeekMap.

SeekMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SeekMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SeekMap.  If not, see <http://www.gnu.org/licenses/>.*/

package boundary

import (
	"context"
	"fmt"
	"time"

	"github.com/ctessum/geom"
	"github.com/redis/go-redis/v9"
	"github.com/spatialmodel/seekmap/cache"
	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/internal/metrics"
)

// Shared is a Redis tier that shares resolved polygons between processes.
// Polygons are stored as GeoJSON geometries.
type Shared struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// NewShared connects to the Redis server at addr. It returns nil when addr
// is empty.
func NewShared(addr, password string, db int, ttl time.Duration) *Shared {
	if addr == "" {
		return nil
	}
	return &Shared{
		Client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		Prefix: "seekmap:boundary:",
		TTL:    ttl,
	}
}

func (s *Shared) key(query string) string { return s.Prefix + query }

// Get returns the polygon stored for query or cache.ErrCacheMiss.
func (s *Shared) Get(ctx context.Context, query string) (geom.Polygon, error) {
	b, err := s.Client.Get(ctx, s.key(query)).Bytes()
	if err == redis.Nil {
		metrics.CacheTier.WithLabelValues("miss").Inc()
		return nil, cache.ErrCacheMiss
	} else if err != nil {
		metrics.CacheTier.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("boundary: redis: %v", err)
	}
	p, err := geo.DecodeGeoJSON(b)
	if err != nil {
		metrics.CacheTier.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("boundary: redis: %v", err)
	}
	metrics.CacheTier.WithLabelValues("hit").Inc()
	return p, nil
}

// Set stores p for query.
func (s *Shared) Set(ctx context.Context, query string, p geom.Polygon) error {
	b, err := geo.EncodeGeoJSON(p)
	if err != nil {
		return err
	}
	if err := s.Client.Set(ctx, s.key(query), b, s.TTL).Err(); err != nil {
		return fmt.Errorf("boundary: redis: %v", err)
	}
	return nil
}

// Delete removes the polygon stored for query.
func (s *Shared) Delete(ctx context.Context, query string) error {
	if err := s.Client.Del(ctx, s.key(query)).Err(); err != nil {
		return fmt.Errorf("boundary: redis: %v", err)
	}
	return nil
}

// DeleteAll removes every polygon stored under the prefix.
func (s *Shared) DeleteAll(ctx context.Context) error {
	iter := s.Client.Scan(ctx, 0, s.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.Client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("boundary: redis: %v", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("boundary: redis: %v", err)
	}
	return nil
}
