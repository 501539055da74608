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
	"io"
	"io/ioutil"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/carto"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/spatialmodel/seekmap/geo"
)

// geoJSONObject holds any GeoJSON object type of interest.
type geoJSONObject struct {
	Type     string            `json:"type"`
	Geometry *geojson.Geometry `json:"geometry"`
	Features []struct {
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"features"`
	Coordinates interface{} `json:"coordinates"`
}

// ReadBase reads a base polygon or drawn shape from GeoJSON. The input may
// be a FeatureCollection of Polygon or MultiPolygon features, a single
// Feature, or a bare geometry. Every ring is validated.
func ReadBase(r io.Reader) (geom.Polygon, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("seekmap: reading base: %v", err)
	}
	var o geoJSONObject
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, schemaErrorf("base", "%v", err)
	}
	var geoms []*geojson.Geometry
	switch o.Type {
	case "FeatureCollection":
		for _, f := range o.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		geoms = append(geoms, o.Geometry)
	case "Polygon", "MultiPolygon":
		geoms = append(geoms, &geojson.Geometry{Type: o.Type, Coordinates: o.Coordinates})
	default:
		return nil, schemaErrorf("base", "unsupported GeoJSON type %q", o.Type)
	}
	if len(geoms) == 0 {
		return nil, schemaErrorf("base", "no features")
	}
	var out geom.Polygon
	for _, g := range geoms {
		p, err := geo.FromGeoJSON(g)
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
	}
	return out, nil
}

// ResultGeoJSON returns r as a FeatureCollection holding the feasible
// region, the mask, and the preview when one exists. Each feature has a
// property named after its layer set to 1; the feasible feature also
// carries its area in square miles and, when set, emptyAt.
func ResultGeoJSON(r *Result) (*carto.GeoJSON, error) {
	o := &carto.GeoJSON{Type: "FeatureCollection"}
	o.CRS.Type = "name"
	o.CRS.Properties.Name = "urn:ogc:def:crs:OGC:1.3:CRS84"
	add := func(g geom.Polygon, props map[string]float64) error {
		gj, err := geo.ToGeoJSON(g)
		if err != nil {
			return err
		}
		o.Features = append(o.Features, &carto.GeoJSONfeature{Type: "Feature", Geometry: gj, Properties: props})
		return nil
	}
	area, err := geo.SquareMiles(r.Feasible)
	if err != nil {
		return nil, err
	}
	props := map[string]float64{"feasible": 1, "area_sq_mi": area}
	if r.EmptyAt != NoKey {
		props["emptyAt"] = float64(r.EmptyAt)
	}
	if err := add(r.Feasible, props); err != nil {
		return nil, err
	}
	if err := add(r.Mask, map[string]float64{"mask": 1}); err != nil {
		return nil, err
	}
	if r.Preview != nil {
		if err := add(r.Preview, map[string]float64{"preview": 1}); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WriteResult writes r to w as a GeoJSON FeatureCollection.
func WriteResult(w io.Writer, r *Result) error {
	o, err := ResultGeoJSON(r)
	if err != nil {
		return err
	}
	e := json.NewEncoder(w)
	return e.Encode(o)
}
