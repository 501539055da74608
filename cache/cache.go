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

// Package cache memoizes boundary lookups and derived regions under
// strongly typed keys. Identical concurrent requests are computed once,
// results are held in memory and optionally on disk, and entries can be
// invalidated one key at a time or all at once.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/golang/groupcache/lru"
	"github.com/spatialmodel/seekmap/internal/hash"
)

// Kind separates cache purposes so keys from different purposes never
// collide.
type Kind int

const (
	// BoundaryQuery keys hold the polygon resolved for a normalized place
	// query.
	BoundaryQuery Kind = iota
	// RegionFingerprint keys hold a derivation result identified by the
	// fingerprint of its inputs.
	RegionFingerprint
)

func (k Kind) String() string {
	switch k {
	case BoundaryQuery:
		return "boundary"
	case RegionFingerprint:
		return "region"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Key identifies a cache entry.
type Key struct {
	Kind Kind
	ID   string
}

// BoundaryKey returns the key for a normalized place query.
func BoundaryKey(query string) Key { return Key{Kind: BoundaryQuery, ID: query} }

// RegionKey returns the key for a derivation fingerprint.
func RegionKey(fingerprint string) Key { return Key{Kind: RegionFingerprint, ID: fingerprint} }

func (k Key) String() string { return k.Kind.String() + ":" + k.ID }

// ErrCacheMiss is returned by Peek when a key has no stored value.
var ErrCacheMiss = errors.New("cache: miss")

// ComputeFunc creates the value for key from payload.
type ComputeFunc func(ctx context.Context, key Key, payload interface{}) (interface{}, error)

// Option configures a Cache.
type Option func(*Cache) error

// Disk stores results as gob files under dir, so they survive restarts.
// Types stored on disk must be registered with gob.Register. Leftover
// placeholders of failed computations are removed when the cache opens.
func Disk(dir string) Option {
	return func(c *Cache) error {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("cache: %v", err)
		}
		if err := sweep(dir); err != nil {
			return fmt.Errorf("cache: %v", err)
		}
		c.disk = dir
		return nil
	}
}

// sweep removes the empty files that failed computations leave in dir.
func sweep(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := removeEmpty(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func removeEmpty(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	if info.Size() != 0 {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Workers sets the number of values that can be computed in parallel.
func Workers(n int) Option {
	return func(c *Cache) error {
		if n < 1 {
			return fmt.Errorf("cache: invalid number of workers %d", n)
		}
		c.workers = n
		return nil
	}
}

// Cache is a typed, invalidatable result cache. It is safe for concurrent
// use. Values are pure functions of their keys, so concurrent writers of
// the same key are last-writer-wins.
type Cache struct {
	kind    Kind
	size    int
	workers int
	disk    string

	rc *requestcache.Cache

	mu       sync.Mutex
	mem      *lru.Cache
	gen      uint64
	versions map[Key]uint64
}

type request struct {
	key     Key
	payload interface{}
}

// outcome carries a computed value or error through the request pipeline.
// Errors never reach requestcache itself: its deduplication tier only
// releases waiting requests after a successful result.
type outcome struct {
	value interface{}
	err   error
}

// marshalOutcome writes successful values to disk. Failed outcomes are
// written as empty placeholders, which Get removes as soon as the failure
// is returned.
func marshalOutcome(data interface{}) ([]byte, error) {
	o := (*data.(*interface{})).(outcome)
	if o.err != nil {
		return []byte{}, nil
	}
	return requestcache.MarshalGob(&o.value)
}

func unmarshalOutcome(b []byte) (interface{}, error) {
	if len(b) == 0 {
		return nil, ErrCacheMiss
	}
	v, err := requestcache.UnmarshalGob(b)
	if err != nil {
		return nil, err
	}
	return outcome{value: v}, nil
}

// New creates a cache for keys of kind k holding up to size values in
// memory, computing missing values with compute.
func New(k Kind, size int, compute ComputeFunc, opts ...Option) (*Cache, error) {
	c := &Cache{
		kind:     k,
		size:     size,
		workers:  1,
		mem:      lru.New(size),
		versions: make(map[Key]uint64),
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	tiers := []requestcache.CacheFunc{requestcache.Deduplicate()}
	if c.disk != "" {
		tiers = append(tiers, requestcache.Disk(c.disk, marshalOutcome, unmarshalOutcome))
	}
	c.rc = requestcache.NewCache(func(ctx context.Context, p interface{}) (interface{}, error) {
		r := p.(request)
		v, err := compute(ctx, r.key, r.payload)
		return outcome{value: v, err: err}, nil
	}, c.workers, tiers...)
	return c, nil
}

// storageKey combines key with its current version and the cache
// generation, so invalidated values are never read back from disk.
func (c *Cache) storageKey(key Key) string {
	return hash.Hash(struct {
		Kind     Kind
		ID       string
		Gen, Ver uint64
	}{key.Kind, key.ID, c.gen, c.versions[key]})
}

func (c *Cache) checkKind(key Key) error {
	if key.Kind != c.kind {
		return fmt.Errorf("cache: %s key used with a %s cache", key.Kind, c.kind)
	}
	return nil
}

// Get returns the value for key, computing it from payload if it is not
// stored. Concurrent requests for the same key share one computation.
// Errors are not cached.
func (c *Cache) Get(ctx context.Context, key Key, payload interface{}) (interface{}, error) {
	if err := c.checkKind(key); err != nil {
		return nil, err
	}
	c.mu.Lock()
	sk := c.storageKey(key)
	if v, ok := c.mem.Get(sk); ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	r, err := c.rc.NewRequest(ctx, request{key: key, payload: payload}, sk).Result()
	if err != nil {
		return nil, err
	}
	o := r.(outcome)
	if o.err != nil {
		if err := c.forget(sk); err != nil {
			return nil, fmt.Errorf("cache: %v (after %v)", err, o.err)
		}
		return nil, o.err
	}
	v := o.value
	c.mu.Lock()
	// Drop the result if the key was invalidated while it was computed.
	if c.storageKey(key) == sk {
		c.mem.Add(sk, v)
	}
	c.mu.Unlock()
	return v, nil
}

// forget removes the disk placeholder of a failed computation stored under
// sk, so the next request computes the value again, in this process or
// after a restart.
func (c *Cache) forget(sk string) error {
	if c.disk == "" {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(c.disk, sk+"*"))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := removeEmpty(f); err != nil {
			return err
		}
	}
	return nil
}

// Peek returns the stored value for key without computing it, or
// ErrCacheMiss.
func (c *Cache) Peek(key Key) (interface{}, error) {
	if err := c.checkKind(key); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.mem.Get(c.storageKey(key)); ok {
		return v, nil
	}
	return nil, ErrCacheMiss
}

// Invalidate drops the value stored for key.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem.Remove(c.storageKey(key))
	c.versions[key]++
}

// InvalidateAll drops every stored value.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.mem = lru.New(c.size)
	c.versions = make(map[Key]uint64)
}

// Len returns the number of values held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem.Len()
}

// Computed returns the number of values that have been computed rather
// than read from a cache tier.
func (c *Cache) Computed() int {
	r := c.rc.Requests()
	return r[len(r)-1]
}
