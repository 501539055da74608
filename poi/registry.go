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

// Package poi holds the exclusion registry: an immutable table of named
// points of interest, such as transit stations, together with the set of
// identifiers currently disabled from distance calculations.
package poi

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/internal/hash"
	"gonum.org/v1/gonum/floats"
)

// POI is a named point of interest.
type POI struct {
	ID       string
	Name     string
	Category string
	Point    geom.Point
}

// Selector picks a set of points of interest, either every point in a
// category or an explicit list of identifiers. An empty selector picks
// every point.
type Selector struct {
	Category string   `json:"category,omitempty"`
	IDs      []string `json:"ids,omitempty"`
}

func (s Selector) matches(p *POI) bool {
	if len(s.IDs) > 0 {
		for _, id := range s.IDs {
			if id == p.ID {
				return true
			}
		}
		return false
	}
	return s.Category == "" || s.Category == p.Category
}

// indexed wraps a point so it can be stored in the spatial index.
type indexed struct {
	geom.Point
	poi *POI
}

// Table is an immutable set of points of interest. It is loaded once per
// supported region and shared by every derivation.
type Table struct {
	pois        []*POI
	byID        map[string]*POI
	index       *rtree.Rtree
	fingerprint string
}

// NewTable creates a table from pois. Identifiers must be unique and
// non-empty, and coordinates must be valid.
func NewTable(pois []POI) (*Table, error) {
	t := &Table{
		byID:  make(map[string]*POI, len(pois)),
		index: rtree.NewTree(25, 50),
	}
	for i := range pois {
		p := pois[i]
		if p.ID == "" {
			return nil, fmt.Errorf("poi: point %d has no id", i)
		}
		if _, ok := t.byID[p.ID]; ok {
			return nil, fmt.Errorf("poi: duplicate id %q", p.ID)
		}
		if err := geo.ValidatePoint(p.Point); err != nil {
			return nil, fmt.Errorf("poi: point %q: %v", p.ID, err)
		}
		t.byID[p.ID] = &p
		t.pois = append(t.pois, &p)
		t.index.Insert(indexed{Point: p.Point, poi: &p})
	}
	sort.Slice(t.pois, func(i, j int) bool { return t.pois[i].ID < t.pois[j].ID })
	sorted := make([]POI, len(t.pois))
	for i, p := range t.pois {
		sorted[i] = *p
	}
	t.fingerprint = hash.Hash(sorted)
	return t, nil
}

// Len returns the number of points in the table.
func (t *Table) Len() int { return len(t.pois) }

// Get returns the point with the given identifier.
func (t *Table) Get(id string) (*POI, bool) {
	p, ok := t.byID[id]
	return p, ok
}

// All returns every point in identifier order.
func (t *Table) All() []*POI {
	return append([]*POI(nil), t.pois...)
}

// Categories returns the distinct categories in the table, sorted.
func (t *Table) Categories() []string {
	seen := make(map[string]bool)
	var c []string
	for _, p := range t.pois {
		if !seen[p.Category] {
			seen[p.Category] = true
			c = append(c, p.Category)
		}
	}
	sort.Strings(c)
	return c
}

// Fingerprint identifies the table contents.
func (t *Table) Fingerprint() string { return t.fingerprint }

// search returns the points whose locations fall within b, in identifier
// order.
func (t *Table) search(b *geom.Bounds) []*POI {
	var o []*POI
	for _, g := range t.index.SearchIntersect(b) {
		o = append(o, g.(indexed).poi)
	}
	sort.Slice(o, func(i, j int) bool { return o[i].ID < o[j].ID })
	return o
}

// Registry pairs a Table with the mutable set of disabled identifiers.
// It is safe for concurrent use.
type Registry struct {
	table *Table

	mu       sync.RWMutex
	disabled map[string]struct{}
	version  uint64
}

// NewRegistry returns a registry over t with nothing disabled.
func NewRegistry(t *Table) *Registry {
	return &Registry{table: t, disabled: make(map[string]struct{})}
}

// Table returns the underlying table.
func (r *Registry) Table() *Table { return r.table }

// Version is incremented every time the disabled set changes.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *Registry) check(ids []string) error {
	for _, id := range ids {
		if _, ok := r.table.byID[id]; !ok {
			return fmt.Errorf("poi: unknown id %q", id)
		}
	}
	return nil
}

// Disable excludes the given points from distance calculations.
func (r *Registry) Disable(ids ...string) error {
	if err := r.check(ids); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.disabled[id] = struct{}{}
	}
	r.version++
	return nil
}

// Enable returns the given points to distance calculations.
func (r *Registry) Enable(ids ...string) error {
	if err := r.check(ids); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.disabled, id)
	}
	r.version++
	return nil
}

// SetDisabled replaces the disabled set with ids.
func (r *Registry) SetDisabled(ids []string) error {
	if err := r.check(ids); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		r.disabled[id] = struct{}{}
	}
	r.version++
	return nil
}

// Disabled returns the disabled identifiers, sorted.
func (r *Registry) Disabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.disabled)
}

// View returns an immutable snapshot of the registry for a single
// derivation.
func (r *Registry) View() *View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := make(map[string]struct{}, len(r.disabled))
	for id := range r.disabled {
		d[id] = struct{}{}
	}
	return &View{table: r.table, disabled: d}
}

// ViewWith returns a snapshot of the table with exactly ids disabled,
// leaving the registry unchanged.
func (r *Registry) ViewWith(ids []string) (*View, error) {
	if err := r.check(ids); err != nil {
		return nil, err
	}
	d := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		d[id] = struct{}{}
	}
	return &View{table: r.table, disabled: d}, nil
}

func sortedKeys(m map[string]struct{}) []string {
	o := make([]string, 0, len(m))
	for k := range m {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

// View is a read-only snapshot of a registry. A nil View has no points.
type View struct {
	table    *Table
	disabled map[string]struct{}
}

func (v *View) active(p *POI, sel Selector) bool {
	if _, off := v.disabled[p.ID]; off {
		return false
	}
	return sel.matches(p)
}

// Active returns the enabled points picked by sel, in identifier order.
func (v *View) Active(sel Selector) []*POI {
	if v == nil || v.table == nil {
		return nil
	}
	var o []*POI
	for _, p := range v.table.pois {
		if v.active(p, sel) {
			o = append(o, p)
		}
	}
	return o
}

// Within returns the enabled points picked by sel that lie inside b.
func (v *View) Within(b *geom.Bounds, sel Selector) []*POI {
	if v == nil || v.table == nil {
		return nil
	}
	var o []*POI
	for _, p := range v.table.search(b) {
		if v.active(p, sel) {
			o = append(o, p)
		}
	}
	return o
}

// Nearest returns the enabled point picked by sel that is closest to p,
// and its distance in meters. ok is false when no point is available.
// Ties go to the smallest identifier.
func (v *View) Nearest(p geom.Point, sel Selector) (nearest *POI, meters float64, ok bool) {
	candidates := v.Active(sel)
	if len(candidates) == 0 {
		return nil, 0, false
	}
	d := make([]float64, len(candidates))
	for i, c := range candidates {
		d[i] = geo.GreatCircleMeters(p, c.Point)
	}
	i := floats.MinIdx(d)
	return candidates[i], d[i], true
}

// Disabled returns the identifiers disabled in this snapshot, sorted.
func (v *View) Disabled() []string {
	if v == nil {
		return nil
	}
	return sortedKeys(v.disabled)
}

// Fingerprint identifies the table and disabled set of the snapshot.
func (v *View) Fingerprint() string {
	if v == nil || v.table == nil {
		return ""
	}
	return hash.Hash(struct {
		Table    string
		Disabled []string
	}{v.table.fingerprint, v.Disabled()})
}
