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
	"encoding/gob"
	"errors"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/seekmap/cache"
	"github.com/spatialmodel/seekmap/geo"
)

func init() {
	gob.Register(geom.Polygon{})
}

// ErrSuperseded is returned by ResolveByName when a newer resolution
// started before the lookup finished. The result is discarded.
var ErrSuperseded = errors.New("boundary: superseded by a newer request")

// All passed to Invalidate drops every cached boundary.
const All = "all"

var errNoCandidates = errors.New("no matching places")

// Normalize returns the cache form of a place query: lower case with
// whitespace runs collapsed.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Resolver turns place names and drawn shapes into base polygons and keeps
// the current one.
type Resolver struct {
	Lookup Lookup

	// UseOutline uses the place outline instead of its bounding extent
	// when the lookup returned one.
	UseOutline bool

	// Shared is an optional tier consulted before the lookup.
	Shared *Shared

	Log logrus.FieldLogger

	cache *cache.Cache

	mu      sync.Mutex
	seq     uint64
	current geom.Polygon
	query   string
}

// NewResolver returns a resolver that caches up to size polygons in
// memory. Up to four different queries are looked up at once unless opts
// say otherwise.
func NewResolver(l Lookup, size int, opts ...cache.Option) (*Resolver, error) {
	r := &Resolver{Lookup: l, Log: logrus.StandardLogger()}
	opts = append([]cache.Option{cache.Workers(4)}, opts...)
	c, err := cache.New(cache.BoundaryQuery, size, r.compute, opts...)
	if err != nil {
		return nil, err
	}
	r.cache = c
	return r, nil
}

func (r *Resolver) compute(ctx context.Context, key cache.Key, _ interface{}) (interface{}, error) {
	q := key.ID
	if r.Shared != nil {
		p, err := r.Shared.Get(ctx, q)
		if err == nil {
			return p, nil
		} else if err != cache.ErrCacheMiss {
			r.Log.WithField("query", q).Warn(err)
		}
	}
	cs, err := r.Lookup.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(cs) == 0 {
		return nil, errNoCandidates
	}
	top := cs[0]
	p := top.Polygon()
	if r.UseOutline && !geo.IsEmpty(top.Outline) {
		p = top.Outline
	}
	if err := geo.Validate(p); err != nil {
		return nil, err
	}
	r.Log.WithFields(logrus.Fields{"query": q, "place": top.Name}).Info("boundary: resolved")
	if r.Shared != nil {
		if err := r.Shared.Set(ctx, q, p); err != nil {
			r.Log.WithField("query", q).Warn(err)
		}
	}
	return p, nil
}

// ResolveByName resolves query into a base polygon, which becomes current.
// Failures return a *BoundaryUnresolved and leave the current polygon in
// place. If another resolution starts before this one finishes, the result
// is discarded and ErrSuperseded is returned.
func (r *Resolver) ResolveByName(ctx context.Context, query string) (geom.Polygon, error) {
	q := Normalize(query)
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()
	if q == "" {
		return nil, &BoundaryUnresolved{Query: query, Err: errors.New("empty query")}
	}

	v, err := r.cache.Get(ctx, cache.BoundaryKey(q), nil)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		r.Log.WithField("query", q).Debug("boundary: discarding superseded result")
		return nil, ErrSuperseded
	}
	if err != nil {
		r.Log.WithField("query", q).Warnf("boundary: %v", err)
		return nil, &BoundaryUnresolved{Query: query, Err: err}
	}
	r.current = v.(geom.Polygon)
	r.query = q
	return geo.Clone(r.current), nil
}

// ResolveFromDrawing validates a drawn shape and makes it current. Pending
// name resolutions are superseded.
func (r *Resolver) ResolveFromDrawing(g geom.Polygonal) (geom.Polygon, error) {
	if err := geo.Validate(g); err != nil {
		return nil, err
	}
	p := geo.Rings(g)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.current = p
	r.query = ""
	return geo.Clone(p), nil
}

// Current returns the current base polygon and the query that produced it,
// which is empty for drawn shapes. The polygon is nil before the first
// successful resolution.
func (r *Resolver) Current() (geom.Polygon, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return geo.Clone(r.current), r.query
}

// Invalidate drops the cached polygon for query, or every cached polygon
// when query is All. The current polygon is kept.
func (r *Resolver) Invalidate(ctx context.Context, query string) error {
	if query == All {
		r.cache.InvalidateAll()
		if r.Shared != nil {
			return r.Shared.DeleteAll(ctx)
		}
		return nil
	}
	q := Normalize(query)
	r.cache.Invalidate(cache.BoundaryKey(q))
	if r.Shared != nil {
		return r.Shared.Delete(ctx, q)
	}
	return nil
}

// Cached reports whether a polygon for query is held in memory.
func (r *Resolver) Cached(query string) bool {
	_, err := r.cache.Peek(cache.BoundaryKey(Normalize(query)))
	return err == nil
}
