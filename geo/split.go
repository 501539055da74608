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

import "github.com/ctessum/geom"

// Split groups the rings of r into polygons, each holding one outer ring
// followed by its holes. Ring nesting decides which rings are holes. Every
// ring in the output is closed.
func Split(r geom.Polygonal) geom.MultiPolygon {
	rings := Rings(r)
	if IsEmpty(rings) {
		return nil
	}
	n := len(rings)
	for i, ring := range rings {
		if !ring[0].Equals(ring[len(ring)-1]) {
			rings[i] = append(ring, ring[0])
		}
	}
	// contains[i][j] reports whether ring j lies inside ring i.
	contains := make([][]bool, n)
	depth := make([]int, n)
	for i := range rings {
		contains[i] = make([]bool, n)
		outer := geom.Polygon{rings[i]}
		for j := range rings {
			if i == j {
				continue
			}
			if ringInside(rings[j], outer) {
				contains[i][j] = true
				depth[j]++
			}
		}
	}
	var out geom.MultiPolygon
	index := make(map[int]int)
	for i := range rings {
		if depth[i]%2 == 0 {
			index[i] = len(out)
			out = append(out, geom.Polygon{rings[i]})
		}
	}
	for j := range rings {
		if depth[j]%2 == 0 {
			continue
		}
		for i := range rings {
			if contains[i][j] && depth[i] == depth[j]-1 {
				k := index[i]
				out[k] = append(out[k], rings[j])
				break
			}
		}
	}
	return out
}

// ringInside reports whether ring lies inside poly, judged by the first of
// its vertices that is not on poly's boundary.
func ringInside(ring []geom.Point, poly geom.Polygon) bool {
	for _, p := range ring {
		switch p.Within(poly) {
		case geom.Inside:
			return true
		case geom.Outside:
			return false
		}
	}
	return false
}
