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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/seekmap"
	"github.com/spatialmodel/seekmap/boundary"
	"github.com/spatialmodel/seekmap/poi"
)

// places serves a fake place search with a single known place.
func places() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if boundary.Normalize(r.URL.Query().Get("q")) != "downtown seattle" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"display_name": "Downtown, Seattle", "importance": 0.5,
			"boundingbox": ["47.59", "47.67", "-122.36", "-122.29"]}]`)
	}))
}

func testServer(t *testing.T, searchURL string) *httptest.Server {
	log := logrus.New()
	log.Out = ioutil.Discard

	e, err := seekmap.NewEngine(8)
	if err != nil {
		t.Fatal(err)
	}
	e.Log = log
	n := boundary.NewNominatim(searchURL, 1000)
	n.Log = log
	res, err := boundary.NewResolver(n, 10)
	if err != nil {
		t.Fatal(err)
	}
	res.Log = log
	tbl, err := poi.Load("testdata/pois.toml")
	if err != nil {
		t.Fatal(err)
	}
	s := &Server{Engine: e, Resolver: res, Registry: poi.NewRegistry(tbl), Log: log}
	return httptest.NewServer(s.Handler())
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func readTestdata(t *testing.T, name string) string {
	b, err := ioutil.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestServerDerive(t *testing.T) {
	pl := places()
	defer pl.Close()
	srv := testServer(t, pl.URL)
	defer srv.Close()

	body := fmt.Sprintf(`{"base": %s, "questions": %s}`, readTestdata(t, "base.geojson"), readTestdata(t, "questions.json"))
	resp, b := do(t, "POST", srv.URL+"/derive", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing request id")
	}
	var dr struct {
		Fingerprint string
		AreaSqMi    float64
		EmptyAt     *int
		Regions     struct {
			Features []json.RawMessage
		}
	}
	if err := json.Unmarshal(b, &dr); err != nil {
		t.Fatal(err)
	}
	if dr.Fingerprint == "" || dr.AreaSqMi <= 0 || dr.EmptyAt != nil {
		t.Errorf("have %+v", dr)
	}
	if len(dr.Regions.Features) != 2 {
		t.Errorf("have %d features, want 2", len(dr.Regions.Features))
	}

	t.Run("planning", func(t *testing.T) {
		body := fmt.Sprintf(`{"base": %s, "questions": %s, "planning": true}`, readTestdata(t, "base.geojson"), readTestdata(t, "questions.json"))
		resp, b := do(t, "POST", srv.URL+"/derive", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, b)
		}
		var pr struct {
			AreaSqMi float64
			Regions  struct {
				Features []json.RawMessage
			}
		}
		if err := json.Unmarshal(b, &pr); err != nil {
			t.Fatal(err)
		}
		if len(pr.Regions.Features) != 3 {
			t.Errorf("have %d features, want 3", len(pr.Regions.Features))
		}
		if !(pr.AreaSqMi > dr.AreaSqMi) {
			t.Errorf("the draft question should not narrow the feasible region: have %g, want more than %g", pr.AreaSqMi, dr.AreaSqMi)
		}
	})
	t.Run("schema", func(t *testing.T) {
		body := fmt.Sprintf(`{"base": %s, "questions": [{"key": 4, "kind": "radius", "data": {"center": {"lat": 95, "lng": 0}, "distance": 1, "unit": "km"}}]}`, readTestdata(t, "base.geojson"))
		resp, b := do(t, "POST", srv.URL+"/derive", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status %d: %s", resp.StatusCode, b)
		}
		var ae apiError
		if err := json.Unmarshal(b, &ae); err != nil {
			t.Fatal(err)
		}
		if ae.Key == nil || *ae.Key != 4 {
			t.Errorf("have %+v, want key 4", ae)
		}
	})
	t.Run("geometry", func(t *testing.T) {
		body := `{"base": {"type": "Polygon", "coordinates": [[[0, 0], [1, 1], [1, 0], [0, 1], [0, 0]]]}}`
		if resp, b := do(t, "POST", srv.URL+"/derive", body); resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status %d: %s", resp.StatusCode, b)
		}
	})
	t.Run("nobase", func(t *testing.T) {
		if resp, b := do(t, "POST", srv.URL+"/derive", `{}`); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status %d: %s", resp.StatusCode, b)
		}
	})
	t.Run("disabled", func(t *testing.T) {
		body := fmt.Sprintf(`{"base": %s, "questions": %s, "disabled": ["westlake", "capitol-hill", "u-district"]}`, readTestdata(t, "base.geojson"), readTestdata(t, "questions.json"))
		resp, b := do(t, "POST", srv.URL+"/derive", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, b)
		}
		var ur struct{ Unanswerable []int }
		if err := json.Unmarshal(b, &ur); err != nil {
			t.Fatal(err)
		}
		if len(ur.Unanswerable) != 1 || ur.Unanswerable[0] != 2 {
			t.Errorf("have unanswerable %v, want [2]", ur.Unanswerable)
		}
	})
}

func TestServerBoundary(t *testing.T) {
	pl := places()
	defer pl.Close()
	srv := testServer(t, pl.URL)
	defer srv.Close()

	resp, b := do(t, "GET", srv.URL+"/boundary?q=Downtown+Seattle", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	var g struct{ Type string }
	if err := json.Unmarshal(b, &g); err != nil {
		t.Fatal(err)
	}
	if g.Type != "Polygon" {
		t.Errorf("have %s, want Polygon", g.Type)
	}

	// The resolved boundary is the default base.
	resp, b = do(t, "POST", srv.URL+"/derive", `{"questions": `+readTestdata(t, "questions.json")+`}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d: %s", resp.StatusCode, b)
	}

	if resp, b := do(t, "GET", srv.URL+"/boundary?q=atlantis", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d: %s", resp.StatusCode, b)
	}
	if resp, b := do(t, "GET", srv.URL+"/boundary", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d: %s", resp.StatusCode, b)
	}
	if resp, b := do(t, "DELETE", srv.URL+"/boundary/cache?q=all", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("status %d: %s", resp.StatusCode, b)
	}
}

func TestServerExclusions(t *testing.T) {
	srv := testServer(t, "")
	defer srv.Close()

	var state exclusionState
	resp, b := do(t, "PUT", srv.URL+"/exclusions", `{"disabled": ["westlake"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	if err := json.Unmarshal(b, &state); err != nil {
		t.Fatal(err)
	}
	if len(state.Disabled) != 1 || state.Disabled[0] != "westlake" || state.Points != 4 {
		t.Errorf("have %+v", state)
	}
	version := state.Version

	if resp, b := do(t, "PUT", srv.URL+"/exclusions", `{"disabled": ["nowhere"]}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d: %s", resp.StatusCode, b)
	}

	resp, b = do(t, "GET", srv.URL+"/exclusions", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	if err := json.Unmarshal(b, &state); err != nil {
		t.Fatal(err)
	}
	if state.Version != version || len(state.Disabled) != 1 {
		t.Errorf("a rejected update should not change the registry: have %+v", state)
	}
}

func TestServerMetrics(t *testing.T) {
	srv := testServer(t, "")
	defer srv.Close()
	do(t, "GET", srv.URL+"/exclusions", "")
	resp, b := do(t, "GET", srv.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(string(b), `seekmap_http_requests_total{code="200",route="/exclusions"}`) {
		t.Errorf("request counter missing from:\n%s", b)
	}
}
