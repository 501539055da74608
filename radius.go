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
	"github.com/ctessum/geom"
	"github.com/spatialmodel/seekmap/geo"
)

// Radius asks whether the hider is within a distance of a point.
type Radius struct {
	Center   LatLng    `json:"center"`
	Distance float64   `json:"distance"`
	Unit     geo.Units `json:"unit"`

	// Within is true if the hider is within Distance of Center, false if
	// not, and nil while unanswered.
	Within *bool `json:"within"`
}

// Kind implements Constraint.
func (r *Radius) Kind() Kind { return KindRadius }

// Answered implements Constraint.
func (r *Radius) Answered() bool { return r.Within != nil }

func (r *Radius) validate() *SchemaError {
	if err := r.Center.check("data.center"); err != nil {
		return err
	}
	return checkDistance("data.distance", r.Distance, r.Unit)
}

func (r *Radius) apply(ec *evalContext, region geom.Polygon) (geom.Polygon, error) {
	if r.Within == nil {
		return region, nil
	}
	c, err := circle(r.Center, r.Distance, r.Unit)
	if err != nil {
		return nil, err
	}
	if *r.Within {
		return geo.Intersect(region, c), nil
	}
	return geo.Difference(region, c), nil
}
