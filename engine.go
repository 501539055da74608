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

package seekmap

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/seekmap/cache"
	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/internal/hash"
	"github.com/spatialmodel/seekmap/internal/metrics"
	"github.com/spatialmodel/seekmap/poi"
)

// Version gives the version number.
const Version = "0.4.0"

// Snapshot holds every input of a derivation. The engine never modifies
// it, and it must not be modified while a derivation that uses it runs.
type Snapshot struct {
	// Base is the playable area.
	Base geom.Polygonal

	// Questions are folded in order.
	Questions []Question

	// Exclusions holds the points of interest used by Matching and
	// Measuring questions. It may be nil when no such question is asked.
	Exclusions *poi.View

	// PlanningMode leaves draft questions out of the feasible region.
	PlanningMode bool
}

// Result is the outcome of a derivation. Results may be shared between
// callers and must not be modified.
type Result struct {
	// Feasible is the region consistent with every applied question.
	// It is nil when no consistent location exists.
	Feasible geom.Polygon

	// Mask is the world frame minus Feasible.
	Mask geom.Polygon

	// Preview is Feasible narrowed further by the draft questions. It is
	// only set in planning mode.
	Preview geom.Polygon

	// EmptyAt is the key of the first question that left the feasible
	// region empty, or NoKey.
	EmptyAt int

	// PreviewEmptyAt is the key of the first draft question that left the
	// preview empty, or NoKey.
	PreviewEmptyAt int

	// Unanswerable lists questions that were skipped because every
	// relevant point of interest is disabled.
	Unanswerable []int

	// Fingerprint identifies the inputs of the derivation.
	Fingerprint string
}

// Engine runs derivations. At most one derivation runs at a time; callers
// either wait (Derive), fail fast (TryDerive) or queue (Submit).
// Results are memoized by the fingerprint of their inputs.
type Engine struct {
	// Log receives a record of every derivation.
	Log logrus.FieldLogger

	// Frame is the outer rectangle the mask is cut from.
	Frame geom.Polygon

	busy chan struct{}
	memo *cache.Cache

	mu      sync.Mutex
	running bool
	pending *job
}

type job struct {
	snap    Snapshot
	deliver func(*Result, error)
}

// NewEngine returns an engine that memoizes up to memoSize results.
// A memoSize of zero or less disables memoization.
func NewEngine(memoSize int) (*Engine, error) {
	e := &Engine{
		Log:   logrus.StandardLogger(),
		Frame: geo.Frame(),
		busy:  make(chan struct{}, 1),
	}
	if memoSize > 0 {
		memo, err := cache.New(cache.RegionFingerprint, memoSize, func(ctx context.Context, _ cache.Key, payload interface{}) (interface{}, error) {
			return e.fold(payload.(Snapshot))
		})
		if err != nil {
			return nil, err
		}
		e.memo = memo
	}
	return e, nil
}

// Derive waits until no other derivation is running and then derives the
// feasible region for s.
func (e *Engine) Derive(ctx context.Context, s Snapshot) (*Result, error) {
	select {
	case e.busy <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.busy }()
	return e.derive(ctx, s)
}

// TryDerive derives the feasible region for s, or returns ErrBusy at once
// if another derivation is running.
func (e *Engine) TryDerive(ctx context.Context, s Snapshot) (*Result, error) {
	select {
	case e.busy <- struct{}{}:
	default:
		metrics.Derivations.WithLabelValues("busy").Inc()
		return nil, ErrBusy
	}
	defer func() { <-e.busy }()
	return e.derive(ctx, s)
}

// Submit queues a derivation of s and returns immediately. deliver is
// called with the result from another goroutine. While a derivation runs,
// at most one submission waits; a newer submission replaces it and the
// replaced submission is delivered ErrSuperseded.
func (e *Engine) Submit(s Snapshot, deliver func(*Result, error)) {
	e.mu.Lock()
	if e.running {
		replaced := e.pending
		e.pending = &job{snap: s, deliver: deliver}
		e.mu.Unlock()
		if replaced != nil {
			metrics.Derivations.WithLabelValues("superseded").Inc()
			replaced.deliver(nil, ErrSuperseded)
		}
		return
	}
	e.running = true
	e.mu.Unlock()
	go e.drain(job{snap: s, deliver: deliver})
}

// drain runs j and then every pending submission until none is left.
func (e *Engine) drain(j job) {
	for {
		r, err := e.Derive(context.Background(), j.snap)
		j.deliver(r, err)

		e.mu.Lock()
		if e.pending == nil {
			e.running = false
			e.mu.Unlock()
			return
		}
		j = *e.pending
		e.pending = nil
		e.mu.Unlock()
	}
}

// Invalidate drops every memoized result. Call it when the meaning of an
// input changes without its content changing.
func (e *Engine) Invalidate() {
	if e.memo != nil {
		e.memo.InvalidateAll()
	}
}

func (e *Engine) derive(ctx context.Context, s Snapshot) (*Result, error) {
	start := time.Now()
	var r *Result
	var err error
	fp, fpErr := Fingerprint(s)
	if e.memo == nil || fpErr != nil {
		r, err = e.fold(s)
	} else {
		var v interface{}
		v, err = e.memo.Get(ctx, cache.RegionKey(fp), s)
		if err == nil {
			r = v.(*Result)
		}
	}
	elapsed := time.Since(start)
	metrics.DerivationSeconds.Observe(elapsed.Seconds())

	var se *SchemaError
	var ge *GeometryError
	switch {
	case errors.As(err, &se):
		metrics.Derivations.WithLabelValues("schema_error").Inc()
	case errors.As(err, &ge):
		metrics.Derivations.WithLabelValues("geometry_error").Inc()
	case err != nil:
		metrics.Derivations.WithLabelValues("error").Inc()
	case r.Feasible == nil:
		metrics.Derivations.WithLabelValues("empty").Inc()
	default:
		metrics.Derivations.WithLabelValues("ok").Inc()
	}
	if err != nil {
		e.Log.WithFields(logrus.Fields{
			"questions": len(s.Questions),
			"duration":  elapsed,
		}).WithError(err).Warn("seekmap: derivation failed")
		return nil, err
	}
	e.Log.WithFields(logrus.Fields{
		"questions":   len(s.Questions),
		"emptyAt":     r.EmptyAt,
		"fingerprint": r.Fingerprint,
		"duration":    elapsed,
	}).Debug("seekmap: derived region")
	return r, nil
}

// fold runs a full derivation of s.
func (e *Engine) fold(s Snapshot) (*Result, error) {
	if err := geo.Validate(s.Base); err != nil {
		return nil, err
	}
	fp, _ := Fingerprint(s)
	r := &Result{EmptyAt: NoKey, PreviewEmptyAt: NoKey, Fingerprint: fp}
	ec := &evalContext{pois: s.Exclusions, log: e.Log}

	seen := make(map[int]bool, len(s.Questions))
	region := geo.Clone(s.Base)
	var drafts []Question
	for _, q := range s.Questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if seen[q.Key] {
			return nil, &SchemaError{Key: q.Key, Field: "key", Reason: "duplicate key"}
		}
		seen[q.Key] = true
		if s.PlanningMode && !q.Finalized {
			drafts = append(drafts, q)
			continue
		}
		before := region
		var err error
		if region, err = e.apply(ec, q, region, r); err != nil {
			return nil, err
		}
		if r.EmptyAt == NoKey && before != nil && region == nil {
			r.EmptyAt = q.Key
		}
	}
	r.Feasible = region
	r.Mask = geo.Difference(e.Frame, region)

	if s.PlanningMode {
		preview := region
		for _, q := range drafts {
			before := preview
			var err error
			if preview, err = e.apply(ec, q, preview, r); err != nil {
				return nil, err
			}
			if r.PreviewEmptyAt == NoKey && before != nil && preview == nil {
				r.PreviewEmptyAt = q.Key
			}
		}
		r.Preview = preview
	}
	return r, nil
}

// apply folds a single validated question into region.
func (e *Engine) apply(ec *evalContext, q Question, region geom.Polygon, r *Result) (geom.Polygon, error) {
	kind := string(q.Kind())
	switch {
	case region == nil:
		metrics.Questions.WithLabelValues(kind, "skipped").Inc()
		return nil, nil
	case !q.Answered():
		metrics.Questions.WithLabelValues(kind, "unanswered").Inc()
		return region, nil
	}
	out, err := q.Constraint.apply(ec, region)
	switch {
	case err == errUnanswerable:
		metrics.Questions.WithLabelValues(kind, "unanswerable").Inc()
		ec.log.WithField("key", q.Key).Info("seekmap: question skipped; every point of interest is disabled")
		r.Unanswerable = append(r.Unanswerable, q.Key)
		return region, nil
	case err != nil:
		var ge *GeometryError
		if errors.As(err, &ge) {
			ge.Key = q.Key
			return nil, ge
		}
		return nil, &GeometryError{Key: q.Key, Op: string(q.Kind()), Reason: err.Error()}
	}
	metrics.Questions.WithLabelValues(kind, "applied").Inc()
	if geo.IsEmpty(out) {
		return nil, nil
	}
	return out, nil
}

// Fingerprint identifies the inputs of a derivation. Question order is
// part of the fingerprint because it decides EmptyAt.
func Fingerprint(s Snapshot) (string, error) {
	qs, err := json.Marshal(s.Questions)
	if err != nil {
		return "", err
	}
	return hash.Hash(struct {
		Base      geom.Polygon
		Questions string
		POIs      string
		Planning  bool
	}{
		Base:      geo.Rings(s.Base),
		Questions: hash.Bytes(qs),
		POIs:      s.Exclusions.Fingerprint(),
		Planning:  s.PlanningMode,
	}), nil
}
