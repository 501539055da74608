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

	"github.com/ctessum/geom"
	"github.com/spatialmodel/seekmap/geo"
)

// Thermometer answers.
const (
	CloserToA = "a"
	CloserToB = "b"
)

// Thermometer asks whether the hider is closer to A or to B, typically the
// start and end of a seeker's walk.
type Thermometer struct {
	A LatLng `json:"a"`
	B LatLng `json:"b"`

	// Closer is CloserToA, CloserToB, or nil while unanswered.
	Closer *string `json:"closer"`
}

// Kind implements Constraint.
func (t *Thermometer) Kind() Kind { return KindThermometer }

// Answered implements Constraint.
func (t *Thermometer) Answered() bool { return t.Closer != nil }

func (t *Thermometer) validate() *SchemaError {
	if err := t.A.check("data.a"); err != nil {
		return err
	}
	if err := t.B.check("data.b"); err != nil {
		return err
	}
	if t.A == t.B {
		return schemaErrorf("data.b", "must differ from data.a")
	}
	if t.Closer != nil && *t.Closer != CloserToA && *t.Closer != CloserToB {
		return schemaErrorf("data.closer", "must be %q or %q, not %q", CloserToA, CloserToB, *t.Closer)
	}
	return nil
}

func (t *Thermometer) apply(ec *evalContext, region geom.Polygon) (geom.Polygon, error) {
	if t.Closer == nil {
		return region, nil
	}
	near, far := t.A.Point(), t.B.Point()
	switch *t.Closer {
	case CloserToA:
	case CloserToB:
		near, far = far, near
	default:
		return nil, fmt.Errorf("seekmap: invalid thermometer answer %q", *t.Closer)
	}
	return geo.Intersect(region, geo.NearerTo(near, far, partitionBounds(region))), nil
}
