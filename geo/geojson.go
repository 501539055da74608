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
	"encoding/json"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
)

// ToGeoJSON encodes r as a GeoJSON Polygon when it has a single outer
// ring, or a MultiPolygon otherwise. An empty region is encoded as a
// MultiPolygon with no members.
func ToGeoJSON(r geom.Polygonal) (*geojson.Geometry, error) {
	parts := Split(r)
	if len(parts) == 1 {
		return geojson.ToGeoJSON(parts[0])
	}
	coords := make([]interface{}, len(parts))
	for i, p := range parts {
		g, err := geojson.ToGeoJSON(p)
		if err != nil {
			return nil, err
		}
		coords[i] = g.Coordinates
	}
	return &geojson.Geometry{Type: "MultiPolygon", Coordinates: coords}, nil
}

// FromGeoJSON decodes a GeoJSON Polygon or MultiPolygon into a region and
// validates it.
func FromGeoJSON(g *geojson.Geometry) (geom.Polygon, error) {
	if g == nil {
		return nil, geometryErrorf("decode", "missing geometry")
	}
	var polys geom.MultiPolygon
	switch g.Type {
	case "Polygon":
		p, err := decodePolygon(g.Coordinates)
		if err != nil {
			return nil, err
		}
		polys = append(polys, p)
	case "MultiPolygon":
		members, ok := g.Coordinates.([]interface{})
		if !ok {
			return nil, geometryErrorf("decode", "invalid MultiPolygon coordinates")
		}
		for _, m := range members {
			p, err := decodePolygon(m)
			if err != nil {
				return nil, err
			}
			polys = append(polys, p)
		}
	default:
		return nil, geometryErrorf("decode", "unsupported geometry type %q", g.Type)
	}
	if err := Validate(polys); err != nil {
		return nil, err
	}
	return Rings(polys), nil
}

func decodePolygon(coords interface{}) (p geom.Polygon, err error) {
	gg, err := geojson.FromGeoJSON(&geojson.Geometry{Type: "Polygon", Coordinates: coords})
	if err != nil {
		return nil, geometryErrorf("decode", "%v", err)
	}
	p, ok := gg.(geom.Polygon)
	if !ok {
		return nil, geometryErrorf("decode", "invalid Polygon coordinates")
	}
	return p, nil
}

// DecodeGeoJSON decodes a GeoJSON geometry object.
func DecodeGeoJSON(b []byte) (geom.Polygon, error) {
	g := new(geojson.Geometry)
	if err := json.Unmarshal(b, g); err != nil {
		return nil, fmt.Errorf("geo: decoding GeoJSON: %v", err)
	}
	return FromGeoJSON(g)
}

// EncodeGeoJSON encodes r as a GeoJSON geometry object.
func EncodeGeoJSON(r geom.Polygonal) ([]byte, error) {
	g, err := ToGeoJSON(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(g)
}
