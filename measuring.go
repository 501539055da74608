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
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/poi"
)

// Range is an absolute bound on the distance from the hider to the nearest
// point of interest. A nil Max leaves the range unbounded above.
type Range struct {
	Min  float64   `json:"min"`
	Max  *float64  `json:"max,omitempty"`
	Unit geo.Units `json:"unit"`
}

// Measuring asks how the hider's distance to the nearest point of interest
// in a set compares to the reference point's distance, or for a range
// containing the hider's distance.
type Measuring struct {
	// Reference is required when answering with Closer.
	Reference *LatLng `json:"reference,omitempty"`
	poi.Selector

	// Closer is true if the hider is closer to its nearest point than the
	// reference is to its own, false if further.
	Closer *bool `json:"closer,omitempty"`

	// Range answers with absolute distances instead.
	Range *Range `json:"range,omitempty"`
}

// Kind implements Constraint.
func (m *Measuring) Kind() Kind { return KindMeasuring }

// Answered implements Constraint.
func (m *Measuring) Answered() bool { return m.Closer != nil || m.Range != nil }

func (m *Measuring) validate() *SchemaError {
	if err := checkSelector(m.Selector); err != nil {
		return err
	}
	if m.Reference != nil {
		if err := m.Reference.check("data.reference"); err != nil {
			return err
		}
	}
	if m.Closer != nil && m.Range != nil {
		return schemaErrorf("data.range", "closer and range are mutually exclusive")
	}
	if m.Closer != nil && m.Reference == nil {
		return schemaErrorf("data.reference", "required when answering closer")
	}
	if r := m.Range; r != nil {
		if math.IsNaN(r.Min) || math.IsInf(r.Min, 0) || r.Min < 0 {
			return schemaErrorf("data.range.min", "must be non-negative, not %g", r.Min)
		}
		if _, err := geo.ParseUnits(string(r.Unit)); err != nil {
			return schemaErrorf("data.range.unit", "unknown unit %q", r.Unit)
		}
		if r.Max != nil && !(*r.Max > r.Min) {
			return schemaErrorf("data.range.max", "must be greater than min")
		}
		if r.Max == nil && r.Min == 0 {
			return schemaErrorf("data.range", "must bound the distance")
		}
	}
	return nil
}

func (m *Measuring) apply(ec *evalContext, region geom.Polygon) (geom.Polygon, error) {
	switch {
	case m.Closer != nil:
		_, d0, ok := ec.pois.Nearest(m.Reference.Point(), m.Selector)
		if !ok {
			return nil, errUnanswerable
		}
		zone, err := m.zone(ec, region, d0)
		if err != nil {
			return nil, err
		}
		if *m.Closer {
			return geo.Intersect(region, zone), nil
		}
		return geo.Difference(region, zone), nil
	case m.Range != nil:
		if len(ec.pois.Active(m.Selector)) == 0 {
			return nil, errUnanswerable
		}
		out := region
		if m.Range.Max != nil {
			max, err := meters(*m.Range.Max, m.Range.Unit)
			if err != nil {
				return nil, err
			}
			z, err := m.zone(ec, out, max)
			if err != nil {
				return nil, err
			}
			out = geo.Intersect(out, z)
		}
		if m.Range.Min > 0 {
			min, err := meters(m.Range.Min, m.Range.Unit)
			if err != nil {
				return nil, err
			}
			z, err := m.zone(ec, out, min)
			if err != nil {
				return nil, err
			}
			out = geo.Difference(out, z)
		}
		return out, nil
	}
	return region, nil
}

// zone returns the area within d meters of an active point of interest,
// considering only points close enough to affect region.
func (m *Measuring) zone(ec *evalContext, region geom.Polygon, d float64) (geom.Polygon, error) {
	if geo.IsEmpty(region) || d == 0 {
		return nil, nil
	}
	var parts []geom.Polygonal
	for _, p := range ec.pois.Within(geo.Expand(region.Bounds(), d), m.Selector) {
		c, err := geo.Buffer(p.Point, d, geo.Meters)
		if err != nil {
			return nil, fmt.Errorf("seekmap: measuring zone around %s: %v", p.ID, err)
		}
		parts = append(parts, c)
	}
	return geo.UnionAll(parts...), nil
}
