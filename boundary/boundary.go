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

// Package boundary resolves place names into base polygons through an
// external place search service, and caches the results.
package boundary

import (
	"context"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/seekmap/geo"
)

// Candidate is one ranked match for a place query.
type Candidate struct {
	Name string

	// South, North, West and East are the bounding extent of the place
	// in degrees.
	South, North, West, East float64

	Importance float64

	// Outline is the place outline, when the service returned one.
	Outline geom.Polygon
}

// Polygon returns the bounding extent of c as a closed rectangle.
func (c Candidate) Polygon() geom.Polygon {
	return geo.Rectangle(&geom.Bounds{
		Min: geom.Point{X: c.West, Y: c.South},
		Max: geom.Point{X: c.East, Y: c.North},
	})
}

// Lookup searches for places matching a query. Candidates are returned
// best first.
type Lookup interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// BoundaryUnresolved is returned when a place query produces no usable
// polygon. The previous base polygon stays current.
type BoundaryUnresolved struct {
	Query string
	Err   error
}

func (e *BoundaryUnresolved) Error() string {
	return fmt.Sprintf("boundary: resolving %q: %v", e.Query, e.Err)
}

func (e *BoundaryUnresolved) Unwrap() error { return e.Err }
