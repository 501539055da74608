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
	"github.com/spatialmodel/seekmap/poi"
)

// checkSelector validates the point-of-interest set of a question.
func checkSelector(s poi.Selector) *SchemaError {
	if s.Category == "" && len(s.IDs) == 0 {
		return schemaErrorf("data.category", "a category or a list of ids is required")
	}
	if s.Category != "" && len(s.IDs) > 0 {
		return schemaErrorf("data.ids", "category and ids are mutually exclusive")
	}
	seen := make(map[string]bool, len(s.IDs))
	for _, id := range s.IDs {
		if id == "" || seen[id] {
			return schemaErrorf("data.ids", "invalid or duplicate id %q", id)
		}
		seen[id] = true
	}
	return nil
}

// Matching asks whether the hider's nearest point of interest in a set is
// the same as the nearest one to a reference point.
type Matching struct {
	Reference LatLng `json:"reference"`
	poi.Selector

	// Same is true if the nearest points match, false if not, and nil
	// while unanswered.
	Same *bool `json:"same"`
}

// Kind implements Constraint.
func (m *Matching) Kind() Kind { return KindMatching }

// Answered implements Constraint.
func (m *Matching) Answered() bool { return m.Same != nil }

func (m *Matching) validate() *SchemaError {
	if err := m.Reference.check("data.reference"); err != nil {
		return err
	}
	return checkSelector(m.Selector)
}

// apply keeps or removes the nearest-point cell of the reference's nearest
// active point of interest.
func (m *Matching) apply(ec *evalContext, region geom.Polygon) (geom.Polygon, error) {
	if m.Same == nil {
		return region, nil
	}
	nearest, _, ok := ec.pois.Nearest(m.Reference.Point(), m.Selector)
	if !ok {
		return nil, errUnanswerable
	}
	var others []geom.Point
	for _, p := range ec.pois.Active(m.Selector) {
		if p.ID != nearest.ID {
			others = append(others, p.Point)
		}
	}
	cell := geo.VoronoiCell(nearest.Point, others, partitionBounds(region))
	if *m.Same {
		return geo.Intersect(region, cell), nil
	}
	return geo.Difference(region, cell), nil
}
