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
	"math"

	"github.com/ctessum/geom"
)

// densify is the number of segments each side of a clipping rectangle is
// split into before clipping.
const densify = 32

// bisectIterations bounds the search for the point where a clipped edge
// crosses the partition boundary.
const bisectIterations = 48

// NearerTo returns the part of bounds whose points are at least as close
// (by great-circle distance) to a as to b.
func NearerTo(a, b geom.Point, bounds *geom.Bounds) geom.Polygon {
	ring := clipRing(densifiedRectangle(bounds), a, b)
	return ringRegion(ring)
}

// VoronoiCell returns the part of bounds whose points are at least as close
// to site as to every point in others.
func VoronoiCell(site geom.Point, others []geom.Point, bounds *geom.Bounds) geom.Polygon {
	ring := densifiedRectangle(bounds)
	for _, o := range others {
		if o.Equals(site) {
			continue
		}
		ring = clipRing(ring, site, o)
		if len(ring) < 3 {
			return nil
		}
	}
	return ringRegion(ring)
}

// nearer returns a function that is non-positive where a point is at least
// as close to a as to b.
func nearer(a, b geom.Point) func(geom.Point) float64 {
	return func(p geom.Point) float64 {
		return distance(p, a) - distance(p, b)
	}
}

func ringRegion(ring []geom.Point) geom.Polygon {
	if len(ring) < 3 {
		return nil
	}
	ring = append(ring, ring[0])
	return normalize(geom.Polygon{ring})
}

// densifiedRectangle returns the open ring around b with each side split
// into densify segments.
func densifiedRectangle(b *geom.Bounds) []geom.Point {
	corners := []geom.Point{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
	}
	ring := make([]geom.Point, 0, 4*densify)
	for i, c := range corners {
		next := corners[(i+1)%len(corners)]
		for j := 0; j < densify; j++ {
			f := float64(j) / densify
			ring = append(ring, geom.Point{
				X: c.X + f*(next.X-c.X),
				Y: c.Y + f*(next.Y-c.Y),
			})
		}
	}
	return ring
}

// clipRing keeps the part of the open ring that is at least as close to a
// as to b, using the Sutherland-Hodgman algorithm. Crossing points are
// located by bisection along each edge, and the stretch of boundary between
// an exit and the following entry is densified along the curved bisector.
func clipRing(ring []geom.Point, a, b geom.Point) []geom.Point {
	if len(ring) == 0 {
		return nil
	}
	f := nearer(a, b)
	out := make([]geom.Point, 0, len(ring))
	exits := make(map[int]bool)
	prev := ring[len(ring)-1]
	fPrev := f(prev)
	for _, cur := range ring {
		fCur := f(cur)
		switch {
		case fCur <= 0 && fPrev <= 0:
			out = append(out, cur)
		case fCur <= 0:
			out = append(out, crossing(prev, cur, fPrev, f), cur)
		case fPrev <= 0:
			exits[len(out)] = true
			out = append(out, crossing(prev, cur, fPrev, f))
		}
		prev, fPrev = cur, fCur
	}
	if len(exits) > 0 && len(out) > 1 {
		dir := unit2(geom.Point{X: b.X - a.X, Y: b.Y - a.Y})
		full := make([]geom.Point, 0, len(out)+len(exits)*densify)
		for i, p := range out {
			full = append(full, p)
			if exits[i] {
				full = append(full, bisector(p, out[(i+1)%len(out)], dir, f)...)
			}
		}
		out = full
	}
	return dedupe(out)
}

// bisector returns points on the zero set of f between the crossings p and
// q. Each point is found from an evenly spaced point on the chord pq by
// searching along dir, the direction in which f increases.
func bisector(p, q, dir geom.Point, f func(geom.Point) float64) []geom.Point {
	chord := math.Hypot(q.X-p.X, q.Y-p.Y)
	if chord == 0 || (dir.X == 0 && dir.Y == 0) {
		return nil
	}
	out := make([]geom.Point, 0, densify-1)
	for j := 1; j < densify; j++ {
		m := lerp(p, q, float64(j)/densify)
		fm := f(m)
		if fm == 0 {
			out = append(out, m)
			continue
		}
		sign := 1.
		if fm > 0 {
			sign = -1
		}
		step := chord / densify
		for i := 0; i < 32; i++ {
			e := geom.Point{X: m.X + sign*step*dir.X, Y: m.Y + sign*step*dir.Y}
			if (f(e) <= 0) != (fm <= 0) {
				out = append(out, crossing(m, e, fm, f))
				break
			}
			step *= 2
		}
	}
	return out
}

func unit2(v geom.Point) geom.Point {
	n := math.Hypot(v.X, v.Y)
	if n == 0 {
		return geom.Point{}
	}
	return geom.Point{X: v.X / n, Y: v.Y / n}
}

// crossing finds the point between p and q where f changes sign.
func crossing(p, q geom.Point, fp float64, f func(geom.Point) float64) geom.Point {
	lo, hi := 0., 1.
	for i := 0; i < bisectIterations; i++ {
		mid := (lo + hi) / 2
		fm := f(lerp(p, q, mid))
		if (fm <= 0) == (fp <= 0) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lerp(p, q, (lo+hi)/2)
}

func lerp(p, q geom.Point, t float64) geom.Point {
	return geom.Point{X: p.X + t*(q.X-p.X), Y: p.Y + t*(q.Y-p.Y)}
}

// dedupe removes consecutive duplicate points.
func dedupe(ring []geom.Point) []geom.Point {
	if len(ring) == 0 {
		return ring
	}
	out := ring[:1]
	for _, p := range ring[1:] {
		if !closeTo(p, out[len(out)-1]) {
			out = append(out, p)
		}
	}
	if len(out) > 1 && closeTo(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func closeTo(a, b geom.Point) bool {
	return math.Abs(a.X-b.X) < 1.e-12 && math.Abs(a.Y-b.Y) < 1.e-12
}
