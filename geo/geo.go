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

// Package geo holds the geometry primitives used to derive feasible regions:
// boolean operations, geodesic buffers and distances, bounding boxes,
// point-in-polygon tests and input validation.
//
// Coordinates are geographic with X holding longitude and Y holding latitude,
// both in degrees. A region is a geom.Polygon holding every ring of the area,
// outer rings and holes alike; a nil polygon is the empty region.
package geo

import "github.com/ctessum/geom"

// emptyArea is the planar area (in square degrees) below which a region is
// considered empty. It corresponds to roughly a hundredth of a square meter.
const emptyArea = 1.e-12

// IsEmpty reports whether r covers no area.
func IsEmpty(r geom.Polygonal) bool {
	if r == nil {
		return true
	}
	n := 0
	for _, p := range r.Polygons() {
		n += len(p)
	}
	if n == 0 {
		return true
	}
	return r.Area() < emptyArea
}

// Rings flattens r into a single polygon holding all of its rings.
// Rings with fewer than three points are dropped. The returned polygon does
// not share memory with r.
func Rings(r geom.Polygonal) geom.Polygon {
	if r == nil {
		return nil
	}
	var o geom.Polygon
	for _, p := range r.Polygons() {
		for _, ring := range p {
			if len(ring) < 3 {
				continue
			}
			o = append(o, append([]geom.Point(nil), ring...))
		}
	}
	return o
}

// Clone returns a deep copy of r, or nil if r is empty.
func Clone(r geom.Polygonal) geom.Polygon {
	if IsEmpty(r) {
		return nil
	}
	return Rings(r)
}

// normalize converts the output of a boolean operation into a region,
// mapping every empty result to nil.
func normalize(r geom.Polygonal) geom.Polygon {
	o := Rings(r)
	if IsEmpty(o) {
		return nil
	}
	return o
}

// Intersect returns the area shared by a and b. An empty operand gives an
// empty result.
func Intersect(a, b geom.Polygonal) geom.Polygon {
	if IsEmpty(a) || IsEmpty(b) {
		return nil
	}
	return normalize(Rings(a).Intersection(Rings(b)))
}

// Difference returns the part of a that is not in b. An empty b leaves a
// unchanged.
func Difference(a, b geom.Polygonal) geom.Polygon {
	if IsEmpty(a) {
		return nil
	}
	if IsEmpty(b) {
		return Clone(a)
	}
	return normalize(Rings(a).Difference(Rings(b)))
}

// Union returns the combined area of a and b. An empty operand gives the
// other operand.
func Union(a, b geom.Polygonal) geom.Polygon {
	switch {
	case IsEmpty(a):
		return Clone(b)
	case IsEmpty(b):
		return Clone(a)
	}
	return normalize(Rings(a).Union(Rings(b)))
}

// UnionAll returns the combined area of every region in rs.
func UnionAll(rs ...geom.Polygonal) geom.Polygon {
	var o geom.Polygon
	for _, r := range rs {
		o = Union(o, r)
	}
	return o
}

// BBox returns the latitude and longitude extent of r. All values are zero
// for an empty region.
func BBox(r geom.Polygonal) (minLat, minLng, maxLat, maxLng float64) {
	if IsEmpty(r) {
		return 0, 0, 0, 0
	}
	b := r.Bounds()
	return b.Min.Y, b.Min.X, b.Max.Y, b.Max.X
}

// ContainsPoint reports whether p lies inside r or on its boundary.
func ContainsPoint(r geom.Polygonal, p geom.Point) bool {
	if IsEmpty(r) {
		return false
	}
	return p.Within(Rings(r)) != geom.Outside
}

// Frame returns the rectangle covering the whole globe.
func Frame() geom.Polygon {
	return Rectangle(&geom.Bounds{
		Min: geom.Point{X: -180, Y: -90},
		Max: geom.Point{X: 180, Y: 90},
	})
}

// Rectangle returns b as a closed counter-clockwise ring.
func Rectangle(b *geom.Bounds) geom.Polygon {
	return geom.Polygon{[]geom.Point{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Min.Y},
	}}
}
