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

// EarthRadius is the mean radius of the spherical earth model, in meters.
// All distances and buffers use this model.
const EarthRadius = 6371008.8

// BufferVertices is the number of vertices used to approximate a circle.
const BufferVertices = 128

const deg = math.Pi / 180

// Distance returns the great-circle distance between p1 and p2 in units u.
func Distance(p1, p2 geom.Point, u Units) (float64, error) {
	return FromMeters(distance(p1, p2), u)
}

// distance returns the haversine distance between p1 and p2 in meters.
func distance(p1, p2 geom.Point) float64 {
	lat1, lat2 := p1.Y*deg, p2.Y*deg
	dLat := lat2 - lat1
	dLng := (p2.X - p1.X) * deg
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(a)))
}

// GreatCircleMeters returns the great-circle distance between p1 and p2 in meters.
func GreatCircleMeters(p1, p2 geom.Point) float64 { return distance(p1, p2) }

// bearing returns the initial bearing from p1 to p2 in radians.
func bearing(p1, p2 geom.Point) float64 {
	lat1, lat2 := p1.Y*deg, p2.Y*deg
	dLng := (p2.X - p1.X) * deg
	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return math.Atan2(y, x)
}

// Destination returns the point reached by travelling m meters from p along
// the initial bearing b (radians clockwise from north).
func Destination(p geom.Point, b, m float64) geom.Point {
	lat1, lng1 := p.Y*deg, p.X*deg
	d := m / EarthRadius
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(b))
	lng2 := lng1 + math.Atan2(math.Sin(b)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	lng := math.Mod(lng2/deg+540, 360) - 180
	return geom.Point{X: lng, Y: lat2 / deg}
}

// circle returns a closed ring approximating the geodesic circle of radius m
// meters around p.
func circle(p geom.Point, m float64) []geom.Point {
	ring := make([]geom.Point, BufferVertices+1)
	for i := 0; i < BufferVertices; i++ {
		// Offset by half a step so no vertex falls on p's meridian.
		b := 2 * math.Pi * (float64(i) + 0.5) / BufferVertices
		ring[i] = Destination(p, b, m)
	}
	ring[BufferVertices] = ring[0]
	return ring
}

// Buffer returns the region within distance d (in units u) of p.
// A zero distance gives the empty region.
func Buffer(p geom.Point, d float64, u Units) (geom.Polygon, error) {
	m, err := ToMeters(d, u)
	if err != nil {
		return nil, err
	}
	return bufferMeters(p, m), nil
}

func bufferMeters(p geom.Point, m float64) geom.Polygon {
	if m <= 0 {
		return nil
	}
	return geom.Polygon{circle(p, m)}
}

// BufferLine returns the region within distance d (in units u) of the
// polyline l.
func BufferLine(l geom.LineString, d float64, u Units) (geom.Polygon, error) {
	m, err := ToMeters(d, u)
	if err != nil {
		return nil, err
	}
	if m <= 0 || len(l) == 0 {
		return nil, nil
	}
	parts := []geom.Polygonal{bufferMeters(l[0], m)}
	for i := 1; i < len(l); i++ {
		a, b := l[i-1], l[i]
		parts = append(parts, bufferMeters(b, m))
		if distance(a, b) == 0 {
			continue
		}
		ab, ba := bearing(a, b), bearing(b, a)
		quad := []geom.Point{
			Destination(a, ab-math.Pi/2, m),
			Destination(b, ba+math.Pi/2, m),
			Destination(b, ba-math.Pi/2, m),
			Destination(a, ab+math.Pi/2, m),
		}
		quad = append(quad, quad[0])
		parts = append(parts, geom.Polygon{quad})
	}
	return UnionAll(parts...), nil
}

// Expand returns b grown by m meters in every direction, limited to valid
// coordinates.
func Expand(b *geom.Bounds, m float64) *geom.Bounds {
	dLat := m / EarthRadius / deg
	lat := math.Max(math.Abs(b.Min.Y), math.Abs(b.Max.Y))
	cos := math.Cos(math.Min(lat+dLat, 89) * deg)
	dLng := dLat / cos
	return &geom.Bounds{
		Min: geom.Point{X: math.Max(b.Min.X-dLng, -180), Y: math.Max(b.Min.Y-dLat, -90)},
		Max: geom.Point{X: math.Min(b.Max.X+dLng, 180), Y: math.Min(b.Max.Y+dLat, 90)},
	}
}
