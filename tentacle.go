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
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/seekmap/geo"
)

// TentacleNone is the Tentacle answer given when the hider is not within
// the tentacle's distance of its center.
const TentacleNone = "none"

// Candidate is one of the places a Tentacle question asks about.
type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Point LatLng `json:"point"`

	// Distance optionally declares the candidate's distance bracket from
	// the tentacle center, in the question's unit. Either every candidate
	// declares a distance or none does.
	Distance *float64 `json:"distance,omitempty"`
}

// Tentacle asks which of several candidate places, all within a distance
// of a center, the hider is closest to. The answers are mutually exclusive.
type Tentacle struct {
	Center     LatLng      `json:"center"`
	Distance   float64     `json:"distance"`
	Unit       geo.Units   `json:"unit"`
	Candidates []Candidate `json:"candidates"`

	// Chosen is the ID of the chosen candidate, TentacleNone, or nil while
	// unanswered.
	Chosen *string `json:"chosen"`
}

// Kind implements Constraint.
func (t *Tentacle) Kind() Kind { return KindTentacle }

// Answered implements Constraint.
func (t *Tentacle) Answered() bool { return t.Chosen != nil }

func (t *Tentacle) bracketed() bool {
	return len(t.Candidates) > 0 && t.Candidates[0].Distance != nil
}

func (t *Tentacle) validate() *SchemaError {
	if err := t.Center.check("data.center"); err != nil {
		return err
	}
	if err := checkDistance("data.distance", t.Distance, t.Unit); err != nil {
		return err
	}
	if len(t.Candidates) == 0 {
		return schemaErrorf("data.candidates", "at least one candidate is required")
	}
	ids := make(map[string]bool, len(t.Candidates))
	distances := make(map[float64]bool)
	for _, c := range t.Candidates {
		switch {
		case c.ID == "" || c.ID == TentacleNone:
			return schemaErrorf("data.candidates.id", "invalid id %q", c.ID)
		case ids[c.ID]:
			return schemaErrorf("data.candidates.id", "duplicate id %q", c.ID)
		}
		ids[c.ID] = true
		if err := c.Point.check("data.candidates.point"); err != nil {
			return err
		}
		if (c.Distance != nil) != t.bracketed() {
			return schemaErrorf("data.candidates.distance", "either every candidate or none must declare a distance")
		}
		if c.Distance != nil {
			d := *c.Distance
			if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 || d > t.Distance {
				return schemaErrorf("data.candidates.distance", "%g is outside (0, %g]", d, t.Distance)
			}
			if distances[d] {
				return schemaErrorf("data.candidates.distance", "duplicate distance %g", d)
			}
			distances[d] = true
		}
	}
	if t.Chosen != nil && *t.Chosen != TentacleNone && !ids[*t.Chosen] {
		return schemaErrorf("data.chosen", "unknown candidate %q", *t.Chosen)
	}
	return nil
}

func (t *Tentacle) apply(ec *evalContext, region geom.Polygon) (geom.Polygon, error) {
	if t.Chosen == nil {
		return region, nil
	}
	reach, err := circle(t.Center, t.Distance, t.Unit)
	if err != nil {
		return nil, err
	}
	if *t.Chosen == TentacleNone {
		return geo.Difference(region, reach), nil
	}
	if t.bracketed() {
		return t.applyBracket(region)
	}
	var chosen geom.Point
	others := make([]geom.Point, 0, len(t.Candidates)-1)
	for _, c := range t.Candidates {
		if c.ID == *t.Chosen {
			chosen = c.Point.Point()
		} else {
			others = append(others, c.Point.Point())
		}
	}
	within := geo.Intersect(region, reach)
	if geo.IsEmpty(within) {
		return nil, nil
	}
	return geo.Intersect(within, geo.VoronoiCell(chosen, others, partitionBounds(within))), nil
}

// applyBracket keeps the annulus between the chosen candidate's declared
// distance and the next smaller declared distance.
func (t *Tentacle) applyBracket(region geom.Polygon) (geom.Polygon, error) {
	cs := append([]Candidate(nil), t.Candidates...)
	sort.Slice(cs, func(i, j int) bool { return *cs[i].Distance < *cs[j].Distance })
	for i, c := range cs {
		if c.ID != *t.Chosen {
			continue
		}
		outer, err := circle(t.Center, *c.Distance, t.Unit)
		if err != nil {
			return nil, err
		}
		out := geo.Intersect(region, outer)
		if i == 0 {
			return out, nil
		}
		inner, err := circle(t.Center, *cs[i-1].Distance, t.Unit)
		if err != nil {
			return nil, err
		}
		return geo.Difference(out, inner), nil
	}
	return region, nil
}
