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
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/spatialmodel/seekmap/geo"
)

const (
	squareA = `[[[0,0],[1,0],[1,1],[0,1],[0,0]]]`
	squareB = `[[[2,2],[3,2],[3,3],[2,3],[2,2]]]`
)

func TestReadBase(t *testing.T) {
	for _, test := range []struct {
		name  string
		in    string
		rings int
	}{
		{
			name:  "collection",
			in:    `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": ` + squareA + `}}, {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": ` + squareB + `}}]}`,
			rings: 2,
		},
		{
			name:  "feature",
			in:    `{"type": "Feature", "geometry": {"type": "Polygon", "coordinates": ` + squareA + `}}`,
			rings: 1,
		},
		{
			name:  "polygon",
			in:    `{"type": "Polygon", "coordinates": ` + squareA + `}`,
			rings: 1,
		},
		{
			name:  "multipolygon",
			in:    `{"type": "MultiPolygon", "coordinates": [` + squareA + `,` + squareB + `]}`,
			rings: 2,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			p, err := ReadBase(strings.NewReader(test.in))
			if err != nil {
				t.Fatal(err)
			}
			if len(p) != test.rings {
				t.Errorf("rings: have %d, want %d", len(p), test.rings)
			}
			if a := p.Area(); math.Abs(a-float64(test.rings)) > 1e-12 {
				t.Errorf("area: have %g, want %d", a, test.rings)
			}
		})
	}
}

func TestReadBaseErrors(t *testing.T) {
	for _, test := range []struct {
		name     string
		in       string
		geometry bool
	}{
		{name: "syntax", in: `{"type": `},
		{name: "point", in: `{"type": "Point", "coordinates": [1, 2]}`},
		{name: "empty", in: `{"type": "FeatureCollection", "features": []}`},
		{name: "bowtie", in: `{"type": "Polygon", "coordinates": [[[0,0],[1,1],[1,0],[0,1],[0,0]]]}`, geometry: true},
		{name: "open", in: `{"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1]]]}`, geometry: true},
		{name: "nogeometry", in: `{"type": "Feature", "geometry": null}`, geometry: true},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadBase(strings.NewReader(test.in))
			switch err.(type) {
			case *GeometryError:
				if !test.geometry {
					t.Errorf("have geometry error %v, want schema error", err)
				}
			case *SchemaError:
				if test.geometry {
					t.Errorf("have schema error %v, want geometry error", err)
				}
			default:
				t.Errorf("have %v (%T)", err, err)
			}
		})
	}
}

func TestWriteResult(t *testing.T) {
	r := derive(t, Snapshot{
		Base:         square(center, 5),
		PlanningMode: true,
		Questions: []Question{
			radius(0, ll(center), 3, boolp(true)),
			{Key: 1, Constraint: &Radius{Center: ll(center), Distance: 1, Unit: geo.Miles, Within: boolp(true)}},
		},
	})
	var b bytes.Buffer
	if err := WriteResult(&b, r); err != nil {
		t.Fatal(err)
	}
	var fc struct {
		Type     string
		Features []struct {
			Geometry struct {
				Type string
			}
			Properties map[string]float64
		}
	}
	if err := json.Unmarshal(b.Bytes(), &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type: have %q", fc.Type)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("features: have %d, want 3", len(fc.Features))
	}
	for i, layer := range []string{"feasible", "mask", "preview"} {
		f := fc.Features[i]
		if f.Properties[layer] != 1 {
			t.Errorf("feature %d: have properties %v, want %s", i, f.Properties, layer)
		}
		if f.Geometry.Type != "Polygon" {
			t.Errorf("feature %d: have %s, want Polygon", i, f.Geometry.Type)
		}
	}
	if a := fc.Features[0].Properties["area_sq_mi"]; math.Abs(a-9*math.Pi)/(9*math.Pi) > 0.01 {
		t.Errorf("area: have %g, want %g", a, 9*math.Pi)
	}
	if _, ok := fc.Features[0].Properties["emptyAt"]; ok {
		t.Error("emptyAt should not be set")
	}
}
