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
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom/encoding/shp"
	"github.com/spatialmodel/seekmap"
	"github.com/spatialmodel/seekmap/geo"
)

// resetConfig clears values set by earlier tests.
func resetConfig() {
	for _, o := range options {
		Cfg.Set(o.name, nil)
	}
	Cfg.Set("config", "testdata/config.toml")
}

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "seekmaputil")
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestVersion(t *testing.T) {
	resetConfig()
	var b bytes.Buffer
	Root.SetOutput(&b)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "SeekMap v" + seekmap.Version; !strings.Contains(b.String(), want) {
		t.Errorf("have %q, want %q", b.String(), want)
	}
}

func TestDeriveGeoJSON(t *testing.T) {
	resetConfig()
	var b bytes.Buffer
	Root.SetOutput(&b)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"derive"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	var fc struct {
		Features []struct {
			Properties map[string]float64
		}
	}
	if err := json.Unmarshal(b.Bytes(), &fc); err != nil {
		t.Fatalf("%v: %s", err, b.String())
	}
	if len(fc.Features) != 2 {
		t.Fatalf("have %d features, want 2", len(fc.Features))
	}
	area := fc.Features[0].Properties["area_sq_mi"]
	// Less than half of a 3 km disc.
	if area <= 0 || area > 5.5 {
		t.Errorf("area: have %g square miles", area)
	}
}

func TestDerivePlanning(t *testing.T) {
	resetConfig()
	Cfg.Set("Planning", true)
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}
	r, err := Derive(context.Background(), Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if r.Preview == nil {
		t.Fatal("planning mode should produce a preview")
	}
	full, err := geo.SquareMiles(r.Feasible)
	if err != nil {
		t.Fatal(err)
	}
	preview, err := geo.SquareMiles(r.Preview)
	if err != nil {
		t.Fatal(err)
	}
	if !(preview < full) {
		t.Errorf("the draft matching question should narrow the preview: have %g, feasible %g", preview, full)
	}
}

func TestDeriveShapefile(t *testing.T) {
	resetConfig()
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "regions.shp")
	Cfg.Set("OutputFile", out)
	Root.SetArgs([]string{"derive"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		if _, err := os.Stat(filepath.Join(dir, "regions"+ext)); err != nil {
			t.Errorf("missing %s file: %v", ext, err)
		}
	}
	d, err := shp.NewDecoder(out)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	var layers []string
	for {
		var rec layer
		if !d.DecodeRow(&rec) {
			break
		}
		layers = append(layers, rec.Layer)
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(layers, ",") != "feasible,mask" {
		t.Errorf("have layers %v", layers)
	}
}

func TestDeriveErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		set  map[string]interface{}
	}{
		{name: "nobase", set: map[string]interface{}{"Base": ""}},
		{name: "missingfile", set: map[string]interface{}{"Questions": "testdata/missing.json"}},
		{name: "disabled", set: map[string]interface{}{"Disabled": []string{"nowhere"}}},
		{name: "outdir", set: map[string]interface{}{"OutputFile": "testdata/missing/out.geojson"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			resetConfig()
			for k, v := range test.set {
				Cfg.Set(k, v)
			}
			Root.SetOutput(ioutil.Discard)
			defer Root.SetOutput(nil)
			Root.SetArgs([]string{"derive"})
			if err := Root.Execute(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestValidateQuestions(t *testing.T) {
	resetConfig()
	var b bytes.Buffer
	Root.SetOutput(&b)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"questions", "validate"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "3 questions, 3 answered, next key 3"; !strings.Contains(b.String(), want) {
		t.Errorf("have %q, want %q", b.String(), want)
	}
}

func TestEnvironment(t *testing.T) {
	resetConfig()
	os.Setenv("SEEKMAP_BOUNDARY_MAXRETRIES", "-1")
	defer os.Unsetenv("SEEKMAP_BOUNDARY_MAXRETRIES")
	Cfg.Set("config", "")
	if _, err := NewResolver(Cfg); err == nil {
		t.Error("a negative retry count from the environment should be rejected")
	}
}
