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
	"github.com/ctessum/geom/proj"
)

const lonlat = "+proj=longlat +a=6371008.8 +b=6371008.8 +no_defs"

// equalArea returns a transform from geographic coordinates to an Albers
// equal-area projection on the spherical earth, centered on b.
func equalArea(b *geom.Bounds) (proj.Transformer, error) {
	lat0 := (b.Min.Y + b.Max.Y) / 2
	lon0 := (b.Min.X + b.Max.X) / 2
	sign := 1.
	if lat0 < 0 {
		sign = -1
	}
	lat1 := sign * math.Min(math.Max(math.Abs(lat0), 1), 88)
	lat2 := lat1 + sign
	src, err := proj.Parse(lonlat)
	if err != nil {
		return nil, fmt.Errorf("geo: area: %v", err)
	}
	dst, err := proj.Parse(fmt.Sprintf(
		"+proj=aea +lat_1=%f +lat_2=%f +lat_0=%f +lon_0=%f +x_0=0 +y_0=0 +a=%f +b=%f +units=m +no_defs",
		lat1, lat2, lat0, lon0, EarthRadius, EarthRadius))
	if err != nil {
		return nil, fmt.Errorf("geo: area: %v", err)
	}
	ct, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("geo: area: %v", err)
	}
	return ct, nil
}

// Area returns the area of r in square meters.
func Area(r geom.Polygonal) (float64, error) {
	if IsEmpty(r) {
		return 0, nil
	}
	p := Rings(r)
	ct, err := equalArea(p.Bounds())
	if err != nil {
		return 0, err
	}
	g, err := p.Transform(ct)
	if err != nil {
		return 0, fmt.Errorf("geo: area: %v", err)
	}
	return g.(geom.Polygonal).Area(), nil
}

// SquareMiles returns the area of r in square miles.
func SquareMiles(r geom.Polygonal) (float64, error) {
	a, err := Area(r)
	if err != nil {
		return 0, err
	}
	m := metersPer[Miles]
	return a / (m * m), nil
}
