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

package geo

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// NoKey marks an error that is not attached to a question.
const NoKey = -1

// GeometryError reports a malformed or degenerate geometry. Key identifies
// the question whose geometry was at fault, or is NoKey.
type GeometryError struct {
	Key    int
	Op     string
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Key == NoKey {
		return fmt.Sprintf("geo: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("geo: question %d: %s: %s", e.Key, e.Op, e.Reason)
}

func geometryErrorf(op, format string, args ...interface{}) *GeometryError {
	return &GeometryError{Key: NoKey, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ValidatePoint checks that p holds finite geographic coordinates.
func ValidatePoint(p geom.Point) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return geometryErrorf("point", "non-finite coordinate (%g, %g)", p.X, p.Y)
	}
	if p.X < -180 || p.X > 180 || p.Y < -90 || p.Y > 90 {
		return geometryErrorf("point", "coordinate (%g, %g) out of range", p.X, p.Y)
	}
	return nil
}

// Validate checks that g is a usable polygon or multipolygon: it must
// have at least one ring, every ring must be closed with at least four
// points, coordinates must be valid, and no ring may intersect itself.
// Invalid input is reported, never repaired.
func Validate(g geom.Geom) error {
	var polys []geom.Polygon
	switch t := g.(type) {
	case geom.Polygon:
		polys = []geom.Polygon{t}
	case geom.MultiPolygon:
		polys = t
	case nil:
		return geometryErrorf("validate", "missing geometry")
	default:
		return geometryErrorf("validate", "unsupported geometry type %T", g)
	}
	n := 0
	for i, p := range polys {
		for j, ring := range p {
			if err := validateRing(ring); err != nil {
				err.Reason = fmt.Sprintf("polygon %d ring %d: %s", i, j, err.Reason)
				return err
			}
			n++
		}
	}
	if n == 0 {
		return geometryErrorf("validate", "geometry has no rings")
	}
	return nil
}

func validateRing(ring []geom.Point) *GeometryError {
	if len(ring) < 4 {
		return geometryErrorf("validate", "ring has %d points; at least 4 are required", len(ring))
	}
	for _, p := range ring {
		if err := ValidatePoint(p); err != nil {
			return err.(*GeometryError)
		}
	}
	if !ring[0].Equals(ring[len(ring)-1]) {
		return geometryErrorf("validate", "ring is not closed")
	}
	simple := dropRepeats(ring)
	if len(simple) < 4 {
		return geometryErrorf("validate", "ring has %d distinct points; at least 3 are required", len(simple)-1)
	}
	if i, j, ok := selfIntersection(simple); ok {
		return geometryErrorf("validate", "ring is self-intersecting at segments %d and %d", i, j)
	}
	return nil
}

// dropRepeats returns ring without consecutive repeated vertices.
func dropRepeats(ring []geom.Point) []geom.Point {
	out := make([]geom.Point, 0, len(ring))
	for _, p := range ring {
		if len(out) > 0 && p.Equals(out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// selfIntersection returns the first pair of non-adjacent segments of the
// closed ring that touch or cross.
func selfIntersection(ring []geom.Point) (int, int, bool) {
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		a1, a2 := ring[i], ring[i+1]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsIntersect(a1, a2, ring[j], ring[j+1]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func orientation(a, b, c geom.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, p geom.Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

func segmentsIntersect(p1, p2, q1, q2 geom.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}
