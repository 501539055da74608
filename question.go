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
	"encoding/json"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/poi"
)

// Kind identifies the type of a question.
type Kind string

// Question kinds.
const (
	KindRadius      Kind = "radius"
	KindThermometer Kind = "thermometer"
	KindTentacle    Kind = "tentacle"
	KindMatching    Kind = "matching"
	KindMeasuring   Kind = "measuring"
)

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns l as a geom.Point with X holding longitude.
func (l LatLng) Point() geom.Point { return geom.Point{X: l.Lng, Y: l.Lat} }

func (l LatLng) check(field string) *SchemaError {
	if err := geo.ValidatePoint(l.Point()); err != nil {
		return schemaErrorf(field, "%s", err.(*geo.GeometryError).Reason)
	}
	return nil
}

// Constraint is the kind-specific part of a question: its parameters and
// answer state. It is implemented by *Radius, *Thermometer, *Tentacle,
// *Matching and *Measuring.
type Constraint interface {
	// Kind returns the question kind.
	Kind() Kind

	// Answered reports whether the question has an answer. Unanswered
	// questions never change the region.
	Answered() bool

	// validate checks the parameters and answer state.
	validate() *SchemaError

	// apply returns the part of region consistent with the answer.
	apply(ec *evalContext, region geom.Polygon) (geom.Polygon, error)
}

// evalContext holds the read-only inputs shared by every evaluator in a
// derivation pass.
type evalContext struct {
	pois *poi.View
	log  logrus.FieldLogger
}

// Question is a single clue about the hidden player's location.
// Key is assigned at creation and never changes; it correlates results
// and errors with their source question. Questions that are not Finalized
// are drafts, which are left out of the feasible region in planning mode.
type Question struct {
	Key        int
	Finalized  bool
	Constraint Constraint
}

// NewQuestion returns a question holding c with the next free key in qs.
func NewQuestion(qs []Question, c Constraint) Question {
	return Question{Key: NextKey(qs), Constraint: c}
}

// NextKey returns a key that is not used by any question in qs.
func NextKey(qs []Question) int {
	k := 0
	for _, q := range qs {
		if q.Key >= k {
			k = q.Key + 1
		}
	}
	return k
}

// Kind returns the kind of q, or the empty string if it has no constraint.
func (q Question) Kind() Kind {
	if q.Constraint == nil {
		return ""
	}
	return q.Constraint.Kind()
}

// Answered reports whether q has an answer.
func (q Question) Answered() bool {
	return q.Constraint != nil && q.Constraint.Answered()
}

// Validate checks q, returning a *SchemaError naming the offending field.
func (q Question) Validate() error {
	if q.Key < 0 {
		return &SchemaError{Key: NoKey, Field: "key", Reason: fmt.Sprintf("%d is negative", q.Key)}
	}
	if q.Constraint == nil {
		return &SchemaError{Key: q.Key, Field: "kind", Reason: "missing question data"}
	}
	if err := q.Constraint.validate(); err != nil {
		err.Key = q.Key
		return err
	}
	return nil
}

// record is the interchange form of a question.
type record struct {
	Key       int             `json:"key"`
	Kind      Kind            `json:"kind"`
	Finalized bool            `json:"finalized,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (q Question) MarshalJSON() ([]byte, error) {
	if q.Constraint == nil {
		return nil, &SchemaError{Key: q.Key, Field: "kind", Reason: "missing question data"}
	}
	data, err := json.Marshal(q.Constraint)
	if err != nil {
		return nil, err
	}
	return json.Marshal(record{Key: q.Key, Kind: q.Constraint.Kind(), Finalized: q.Finalized, Data: data})
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *Question) UnmarshalJSON(b []byte) error {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return schemaErrorf("question", "%v", err)
	}
	var c Constraint
	switch r.Kind {
	case KindRadius:
		c = new(Radius)
	case KindThermometer:
		c = new(Thermometer)
	case KindTentacle:
		c = new(Tentacle)
	case KindMatching:
		c = new(Matching)
	case KindMeasuring:
		c = new(Measuring)
	default:
		return &SchemaError{Key: r.Key, Field: "kind", Reason: fmt.Sprintf("unknown kind %q", r.Kind)}
	}
	if len(r.Data) == 0 {
		return &SchemaError{Key: r.Key, Field: "data", Reason: "missing"}
	}
	if err := json.Unmarshal(r.Data, c); err != nil {
		return &SchemaError{Key: r.Key, Field: "data", Reason: err.Error()}
	}
	*q = Question{Key: r.Key, Finalized: r.Finalized, Constraint: c}
	return nil
}

// checkDistance validates a distance and its unit.
func checkDistance(field string, d float64, u geo.Units) *SchemaError {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return schemaErrorf(field, "distance must be positive, not %g", d)
	}
	if _, err := geo.ParseUnits(string(u)); err != nil {
		return schemaErrorf(field+".unit", "unknown unit %q", u)
	}
	return nil
}

// meters converts a distance to meters.
func meters(d float64, u geo.Units) (float64, error) {
	units, err := geo.ParseUnits(string(u))
	if err != nil {
		return 0, err
	}
	return geo.ToMeters(d, units)
}

// circle returns the region within distance d (in units u) of c.
func circle(c LatLng, d float64, u geo.Units) (geom.Polygon, error) {
	m, err := meters(d, u)
	if err != nil {
		return nil, err
	}
	return geo.Buffer(c.Point(), m, geo.Meters)
}

// margin is the distance in meters by which partition bounds extend past
// the region, so partition edges never coincide with region edges.
const margin = 100

func partitionBounds(region geom.Polygon) *geom.Bounds {
	return geo.Expand(region.Bounds(), margin)
}
