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

package seekmaputil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/seekmap"
	"github.com/spatialmodel/seekmap/boundary"
	"github.com/spatialmodel/seekmap/cache"
	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/poi"
	"github.com/spf13/cast"
)

// wgs84 is the projection definition written next to shapefiles.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

// NewResolver creates a boundary resolver from the Boundary and Redis
// options in cfg.
func NewResolver(cfg *viper.Viper) (*boundary.Resolver, error) {
	retries := cfg.GetInt("Boundary.MaxRetries")
	if retries < 0 {
		return nil, fmt.Errorf("seekmap: Boundary.MaxRetries must not be negative, is %d", retries)
	}
	rps := cfg.GetFloat64("Boundary.RequestsPerSecond")
	if rps <= 0 {
		return nil, fmt.Errorf("seekmap: Boundary.RequestsPerSecond must be positive, is %g", rps)
	}
	n := boundary.NewNominatim(os.ExpandEnv(cfg.GetString("Boundary.URL")), rps)
	n.UserAgent = cfg.GetString("Boundary.UserAgent")
	n.MaxRetries = uint64(retries)
	n.Outline = cfg.GetBool("Boundary.UseOutline")

	var opts []cache.Option
	if dir := os.ExpandEnv(cfg.GetString("Boundary.CacheDir")); dir != "" {
		opts = append(opts, cache.Disk(dir))
	}
	r, err := boundary.NewResolver(n, cfg.GetInt("Boundary.CacheSize"), opts...)
	if err != nil {
		return nil, err
	}
	r.UseOutline = n.Outline

	ttl, err := cast.ToDurationE(cfg.Get("Redis.TTL"))
	if err != nil {
		return nil, fmt.Errorf("seekmap: reading Redis.TTL: %v", err)
	}
	r.Shared = boundary.NewShared(os.ExpandEnv(cfg.GetString("Redis.Addr")),
		cfg.GetString("Redis.Password"), cfg.GetInt("Redis.DB"), ttl)
	return r, nil
}

// disabled returns the Disabled option with empty entries removed.
func disabled(cfg *viper.Viper) ([]string, error) {
	ids, err := cast.ToStringSliceE(cfg.Get("Disabled"))
	if err != nil {
		return nil, fmt.Errorf("seekmap: reading Disabled: %v", err)
	}
	var o []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			o = append(o, id)
		}
	}
	return o, nil
}

// LoadRegistry loads the points of interest in the POIFile option and
// disables the ones listed in the Disabled option. Without a POIFile the
// registry is empty.
func LoadRegistry(cfg *viper.Viper) (*poi.Registry, error) {
	var t *poi.Table
	var err error
	if path := cfg.GetString("POIFile"); path != "" {
		t, err = poi.Load(path)
	} else {
		t, err = poi.NewTable(nil)
	}
	if err != nil {
		return nil, err
	}
	r := poi.NewRegistry(t)
	ids, err := disabled(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.SetDisabled(ids); err != nil {
		return nil, err
	}
	return r, nil
}

func readQuestions(path string) ([]seekmap.Question, error) {
	if path == "" {
		return nil, nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seekmap: reading questions: %v", err)
	}
	return seekmap.ImportQuestions(b)
}

func readBaseFile(path string) (geom.Polygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seekmap: reading base: %v", err)
	}
	defer f.Close()
	return seekmap.ReadBase(f)
}

// base returns the playable area from the Base file or, failing that, by
// resolving Place.
func base(ctx context.Context, cfg *viper.Viper) (geom.Polygon, error) {
	if path := os.ExpandEnv(cfg.GetString("Base")); path != "" {
		return readBaseFile(path)
	}
	if place := cfg.GetString("Place"); place != "" {
		r, err := NewResolver(cfg)
		if err != nil {
			return nil, err
		}
		return r.ResolveByName(ctx, place)
	}
	return nil, fmt.Errorf("seekmap: either Base or Place must be set")
}

// Derive derives the feasible region for the inputs named in cfg.
func Derive(ctx context.Context, cfg *viper.Viper) (*seekmap.Result, error) {
	b, err := base(ctx, cfg)
	if err != nil {
		return nil, err
	}
	qs, err := readQuestions(os.ExpandEnv(cfg.GetString("Questions")))
	if err != nil {
		return nil, err
	}
	reg, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	e, err := seekmap.NewEngine(0)
	if err != nil {
		return nil, err
	}
	return e.Derive(ctx, seekmap.Snapshot{
		Base:         b,
		Questions:    qs,
		Exclusions:   reg.View(),
		PlanningMode: cfg.GetBool("Planning"),
	})
}

// checkOutputFile makes sure that the output file directory exists.
func checkOutputFile(f string) error {
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return fmt.Errorf("seekmap: the OutputFile directory doesn't exist: %v", err)
	}
	return nil
}

// writeResult writes r to path, or to w when path is empty, and returns the
// feasible area in square miles.
func writeResult(r *seekmap.Result, path string, w io.Writer) (float64, error) {
	area, err := geo.SquareMiles(r.Feasible)
	if err != nil {
		return 0, err
	}
	if path == "" {
		return area, seekmap.WriteResult(w, r)
	}
	if err := checkOutputFile(path); err != nil {
		return 0, err
	}
	if strings.HasSuffix(path, ".shp") {
		return area, writeShapefile(path, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("seekmap: creating output file: %v", err)
	}
	if err := seekmap.WriteResult(f, r); err != nil {
		f.Close()
		return 0, err
	}
	return area, f.Close()
}

// layer is a shapefile record.
type layer struct {
	geom.Polygon
	Layer    string
	AreaSqMi float64
}

// writeShapefile writes each non-empty region in r as a record of a
// shapefile, along with a .prj file.
func writeShapefile(path string, r *seekmap.Result) error {
	e, err := shp.NewEncoder(path, layer{})
	if err != nil {
		return fmt.Errorf("seekmap: creating shapefile: %v", err)
	}
	for _, l := range []struct {
		name string
		p    geom.Polygon
		area bool
	}{
		{"feasible", r.Feasible, true},
		{"mask", r.Mask, false},
		{"preview", r.Preview, true},
	} {
		if geo.IsEmpty(l.p) {
			continue
		}
		rec := layer{Polygon: l.p, Layer: l.name}
		if l.area {
			if rec.AreaSqMi, err = geo.SquareMiles(l.p); err != nil {
				e.Close()
				return err
			}
		}
		if err := e.Encode(rec); err != nil {
			e.Close()
			return fmt.Errorf("seekmap: writing shapefile: %v", err)
		}
	}
	e.Close()

	f, err := os.Create(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
	if err != nil {
		return fmt.Errorf("seekmap: creating output prj file: %v", err)
	}
	fmt.Fprint(f, wgs84)
	return f.Close()
}

func writeGeometry(w io.Writer, p geom.Polygon) error {
	b, err := geo.EncodeGeoJSON(p)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
