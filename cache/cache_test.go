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

package cache

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func counter() (ComputeFunc, *int, *sync.Mutex) {
	var n int
	var mu sync.Mutex
	return func(ctx context.Context, key Key, payload interface{}) (interface{}, error) {
		mu.Lock()
		n++
		mu.Unlock()
		if payload == "fail" {
			return nil, errors.New("lookup failed")
		}
		return key.ID + "=" + payload.(string), nil
	}, &n, &mu
}

func TestGet(t *testing.T) {
	f, n, _ := counter()
	c, err := New(BoundaryQuery, 10, f)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	k := BoundaryKey("seattle")
	for i := 0; i < 3; i++ {
		v, err := c.Get(ctx, k, "x")
		if err != nil {
			t.Fatal(err)
		}
		if v != "seattle=x" {
			t.Errorf("have %v, want seattle=x", v)
		}
	}
	if *n != 1 {
		t.Errorf("computed %d times, want 1", *n)
	}
	if v, err := c.Peek(k); err != nil || v != "seattle=x" {
		t.Errorf("peek: have %v, %v", v, err)
	}
	if _, err := c.Peek(BoundaryKey("tacoma")); err != ErrCacheMiss {
		t.Errorf("peek: have %v, want %v", err, ErrCacheMiss)
	}
	if _, err := c.Get(ctx, RegionKey("abc"), "x"); err == nil {
		t.Error("a region key should not be accepted by a boundary cache")
	}
}

func TestInvalidate(t *testing.T) {
	f, n, _ := counter()
	c, err := New(BoundaryQuery, 10, f)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a, b := BoundaryKey("a"), BoundaryKey("b")
	for _, k := range []Key{a, b} {
		if _, err := c.Get(ctx, k, "x"); err != nil {
			t.Fatal(err)
		}
	}
	c.Invalidate(a)
	if _, err := c.Peek(a); err != ErrCacheMiss {
		t.Errorf("a should be gone, have %v", err)
	}
	if _, err := c.Peek(b); err != nil {
		t.Errorf("b should remain, have %v", err)
	}
	if _, err := c.Get(ctx, a, "x"); err != nil {
		t.Fatal(err)
	}
	if *n != 3 {
		t.Errorf("computed %d times, want 3", *n)
	}
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("have %d entries, want 0", c.Len())
	}
	if _, err := c.Peek(b); err != ErrCacheMiss {
		t.Errorf("b should be gone, have %v", err)
	}
}

func TestErrorsNotCached(t *testing.T) {
	f, n, _ := counter()
	c, err := New(BoundaryQuery, 10, f)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	k := BoundaryKey("nowhere")
	for i := 0; i < 2; i++ {
		if _, err := c.Get(ctx, k, "fail"); err == nil || err.Error() != "lookup failed" {
			t.Errorf("have %v, want lookup failed", err)
		}
	}
	if *n != 2 {
		t.Errorf("computed %d times, want 2", *n)
	}
	if _, err := c.Get(ctx, k, "ok"); err != nil {
		t.Errorf("a later success should be returned: %v", err)
	}
}

func TestDeduplicate(t *testing.T) {
	release := make(chan struct{})
	var n int
	var mu sync.Mutex
	c, err := New(RegionFingerprint, 10, func(ctx context.Context, key Key, payload interface{}) (interface{}, error) {
		mu.Lock()
		n++
		mu.Unlock()
		<-release
		return 42, nil
	}, Workers(4))
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), RegionKey("fp"), nil)
			if err != nil || v != 42 {
				t.Errorf("have %v, %v", v, err)
			}
		}()
	}
	close(release)
	wg.Wait()
	if c.Computed() > 8 || n < 1 {
		t.Errorf("computed %d times", n)
	}
	if _, err := c.Peek(RegionKey("fp")); err != nil {
		t.Error(err)
	}
}

func TestDisk(t *testing.T) {
	dir, err := ioutil.TempDir("", "seekmapcache")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	ctx := context.Background()

	f1, n1, _ := counter()
	c1, err := New(BoundaryQuery, 10, f1, Disk(dir))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c1.Get(ctx, BoundaryKey("seattle"), "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := c1.Get(ctx, BoundaryKey("nowhere"), "fail"); err == nil {
		t.Error("expected an error")
	}

	f2, n2, _ := counter()
	c2, err := New(BoundaryQuery, 10, f2, Disk(dir))
	if err != nil {
		t.Fatal(err)
	}
	v, err := c2.Get(ctx, BoundaryKey("seattle"), "y")
	if err != nil {
		t.Fatal(err)
	}
	if v != "seattle=x" {
		t.Errorf("have %v, want the value stored on disk", v)
	}
	if _, err := c2.Get(ctx, BoundaryKey("nowhere"), "ok"); err != nil {
		t.Errorf("failed results should not be stored: %v", err)
	}
	if *n1 != 2 || *n2 != 1 {
		t.Errorf("computed %d and %d times, want 2 and 1", *n1, *n2)
	}
	if _, err := New(BoundaryQuery, 1, f1, Workers(0)); err == nil {
		t.Error("zero workers should fail")
	}
}

func TestDiskRecoversFromFailure(t *testing.T) {
	dir, err := ioutil.TempDir("", "seekmapcache")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	ctx := context.Background()

	// The service is unavailable for the first call only.
	var calls int
	flaky := func(ctx context.Context, key Key, payload interface{}) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("service unavailable")
		}
		return key.ID + "=ok", nil
	}
	c1, err := New(BoundaryQuery, 10, flaky, Disk(dir))
	if err != nil {
		t.Fatal(err)
	}
	k := BoundaryKey("seattle")
	if _, err := c1.Get(ctx, k, nil); err == nil || err.Error() != "service unavailable" {
		t.Fatalf("have %v, want service unavailable", err)
	}
	v, err := c1.Get(ctx, k, nil)
	if err != nil {
		t.Fatalf("the lookup should be retried after a failure: %v", err)
	}
	if v != "seattle=ok" {
		t.Errorf("have %v, want seattle=ok", v)
	}
	if calls != 2 {
		t.Errorf("computed %d times, want 2", calls)
	}

	f2, n2, _ := counter()
	c2, err := New(BoundaryQuery, 10, f2, Disk(dir))
	if err != nil {
		t.Fatal(err)
	}
	if v, err := c2.Get(ctx, k, "y"); err != nil || v != "seattle=ok" {
		t.Errorf("have %v (%v), want the value stored on disk", v, err)
	}
	if *n2 != 0 {
		t.Errorf("computed %d times after restart, want 0", *n2)
	}
}

func TestDiskSweep(t *testing.T) {
	dir, err := ioutil.TempDir("", "seekmapcache")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	empty := filepath.Join(dir, "stale.dat")
	if err := ioutil.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	kept := filepath.Join(dir, "value.dat")
	if err := ioutil.WriteFile(kept, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	f, _, _ := counter()
	if _, err := New(BoundaryQuery, 10, f, Disk(dir)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Errorf("empty placeholder should be removed: %v", err)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Errorf("stored values should be kept: %v", err)
	}
}
