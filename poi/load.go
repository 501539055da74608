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

package poi

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
)

// tomlFile is the layout of a TOML registry file:
//
//	[[poi]]
//	id = "westlake"
//	name = "Westlake"
//	category = "light-rail"
//	lat = 47.6114
//	lng = -122.3374
type tomlFile struct {
	POI []struct {
		ID       string
		Name     string
		Category string
		Lat, Lng float64
	}
}

// LoadTOML reads a table from TOML.
func LoadTOML(r io.Reader) (*Table, error) {
	var f tomlFile
	if _, err := toml.DecodeReader(r, &f); err != nil {
		return nil, fmt.Errorf("poi: reading TOML: %v", err)
	}
	pois := make([]POI, len(f.POI))
	for i, p := range f.POI {
		pois[i] = POI{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Point:    geom.Point{X: p.Lng, Y: p.Lat},
		}
	}
	return NewTable(pois)
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry   *geojson.Geometry `json:"geometry"`
		Properties struct {
			ID       interface{} `json:"id"`
			Name     string      `json:"name"`
			Category string      `json:"category"`
		} `json:"properties"`
	} `json:"features"`
}

// LoadGeoJSON reads a table from a GeoJSON FeatureCollection of Point
// features with "id", "name" and "category" properties.
func LoadGeoJSON(r io.Reader) (*Table, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("poi: reading GeoJSON: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("poi: GeoJSON type is %q; want FeatureCollection", fc.Type)
	}
	pois := make([]POI, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("poi: feature %d has no geometry", i)
		}
		g, err := geojson.FromGeoJSON(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("poi: feature %d: %v", i, err)
		}
		p, ok := g.(geom.Point)
		if !ok {
			return nil, fmt.Errorf("poi: feature %d is a %s; want Point", i, f.Geometry.Type)
		}
		var id string
		switch v := f.Properties.ID.(type) {
		case string:
			id = v
		case float64:
			id = fmt.Sprint(v)
		}
		pois[i] = POI{
			ID:       id,
			Name:     f.Properties.Name,
			Category: f.Properties.Category,
			Point:    p,
		}
	}
	return NewTable(pois)
}

// Load reads a table from a .toml, .json or .geojson file. Environment
// variables in the path are expanded.
func Load(path string) (*Table, error) {
	path = os.ExpandEnv(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("poi: %v", err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return LoadTOML(f)
	case ".json", ".geojson":
		return LoadGeoJSON(f)
	default:
		return nil, fmt.Errorf("poi: unsupported registry file %q", path)
	}
}
