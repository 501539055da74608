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
	"reflect"
	"strings"
	"testing"

	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/poi"
)

func TestExportImport(t *testing.T) {
	qs := append(questionSet(),
		Question{Key: 10, Constraint: &Tentacle{
			Center: ll(center), Distance: 2, Unit: geo.Kilometers,
			Candidates: []Candidate{
				{ID: "a", Name: "Museum", Point: at(center, 10, 1)},
				{ID: "b", Point: at(center, 200, 1)},
			},
		}},
		Question{Key: 11, Finalized: true, Constraint: &Matching{
			Reference: at(center, 90, 1), Selector: poi.Selector{IDs: []string{"north", "tower"}}, Same: boolp(false),
		}},
		Question{Key: 12, Constraint: &Measuring{
			Selector: selector(), Range: &Range{Min: 0.25, Max: floatp(1.5), Unit: geo.Miles},
		}},
	)
	b, err := ExportQuestions(qs)
	if err != nil {
		t.Fatal(err)
	}
	have, err := ImportQuestions(b)
	if err != nil {
		t.Fatalf("%v\n%s", err, b)
	}
	if !reflect.DeepEqual(have, qs) {
		t.Errorf("have %+v, want %+v", have, qs)
	}
	b2, err := ExportQuestions(have)
	if err != nil {
		t.Fatal(err)
	}
	if string(b2) != string(b) {
		t.Errorf("export is not stable:\n%s\n%s", b2, b)
	}
}

func TestExportEmpty(t *testing.T) {
	b, err := ExportQuestions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[]" {
		t.Errorf("have %s, want []", b)
	}
	qs, err := ImportQuestions(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 0 {
		t.Errorf("have %d questions, want 0", len(qs))
	}
}

func TestImportErrors(t *testing.T) {
	for _, test := range []struct {
		name  string
		in    string
		key   int
		field string
	}{
		{
			name:  "syntax",
			in:    `[{"key": 1,`,
			key:   NoKey,
			field: "(root)",
		},
		{
			name:  "latitude",
			in:    `[{"key": 3, "kind": "radius", "data": {"center": {"lat": 95, "lng": 0}, "distance": 1, "unit": "miles"}}]`,
			key:   3,
			field: "lat",
		},
		{
			name:  "latitude far",
			in:    `[{"key": 3, "kind": "radius", "data": {"center": {"lat": 200, "lng": 0}, "distance": 1, "unit": "miles"}}]`,
			key:   3,
			field: "data.center.lat",
		},
		{
			name:  "range unit",
			in:    `[{"key": 9, "kind": "measuring", "data": {"category": "station", "range": {"min": 1, "unit": "parsecs"}}}]`,
			key:   9,
			field: "data.range.unit",
		},
		{
			name:  "distance",
			in:    `[{"key": 0, "kind": "radius", "data": {"center": {"lat": 1, "lng": 1}, "distance": 1, "unit": "miles"}}, {"key": 8, "kind": "radius", "data": {"center": {"lat": 1, "lng": 1}, "distance": -2, "unit": "miles"}}]`,
			key:   8,
			field: "distance",
		},
		{
			name:  "kind",
			in:    `[{"key": 2, "kind": "photo", "data": {}}]`,
			key:   2,
			field: "kind",
		},
		{
			name:  "unit",
			in:    `[{"key": 4, "kind": "radius", "data": {"center": {"lat": 1, "lng": 1}, "distance": 1, "unit": "leagues"}}]`,
			key:   4,
			field: "unit",
		},
		{
			name:  "chosen",
			in:    `[{"key": 5, "kind": "tentacle", "data": {"center": {"lat": 1, "lng": 1}, "distance": 1, "unit": "km", "candidates": [{"id": "a", "point": {"lat": 1, "lng": 1}}], "chosen": "b"}}]`,
			key:   5,
			field: "data.chosen",
		},
		{
			name:  "duplicate",
			in:    `[{"key": 6, "kind": "thermometer", "data": {"a": {"lat": 1, "lng": 1}, "b": {"lat": 2, "lng": 2}}}, {"key": 6, "kind": "thermometer", "data": {"a": {"lat": 1, "lng": 1}, "b": {"lat": 2, "lng": 2}}}]`,
			key:   6,
			field: "key",
		},
		{
			name:  "selector",
			in:    `[{"key": 7, "kind": "matching", "data": {"reference": {"lat": 1, "lng": 1}, "category": "station", "ids": ["a"]}}]`,
			key:   7,
			field: "data.ids",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := ImportQuestions([]byte(test.in))
			se, ok := err.(*SchemaError)
			if !ok {
				t.Fatalf("have error %v (%T), want *SchemaError", err, err)
			}
			if se.Key != test.key {
				t.Errorf("key: have %d, want %d (%v)", se.Key, test.key, se)
			}
			if !strings.Contains(se.Field, test.field) {
				t.Errorf("field: have %q, want it to contain %q", se.Field, test.field)
			}
		})
	}
}

func TestValidateSchemaMissing(t *testing.T) {
	err := ValidateSchema([]byte(`[{"key": 1, "kind": "radius", "data": {"center": {"lat": 1, "lng": 1}, "unit": "miles"}}]`))
	if _, ok := err.(*SchemaError); !ok {
		t.Fatalf("have error %v (%T), want *SchemaError", err, err)
	}
	if err := ValidateSchema([]byte(`{"key": 1}`)); err == nil {
		t.Error("a bare object is not a question list")
	}
}
