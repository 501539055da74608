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
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ctessum/geom/carto"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/seekmap"
	"github.com/spatialmodel/seekmap/boundary"
	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/internal/metrics"
	"github.com/spatialmodel/seekmap/poi"
)

// Server is the HTTP API.
type Server struct {
	Engine   *seekmap.Engine
	Resolver *boundary.Resolver
	Registry *poi.Registry

	// Planning is the default planning mode for derivations that do not
	// set it.
	Planning bool

	Log logrus.FieldLogger
}

// NewServer creates a server from the options in cfg.
func NewServer(cfg *viper.Viper) (*Server, error) {
	e, err := seekmap.NewEngine(cfg.GetInt("MemoSize"))
	if err != nil {
		return nil, err
	}
	r, err := NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	reg, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		Engine:   e,
		Resolver: r,
		Registry: reg,
		Planning: cfg.GetBool("Planning"),
		Log:      logrus.StandardLogger(),
	}, nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)
	r.HandleFunc("/derive", s.derive).Methods("POST")
	r.HandleFunc("/boundary", s.resolve).Methods("GET")
	r.HandleFunc("/boundary/cache", s.invalidate).Methods("DELETE")
	r.HandleFunc("/exclusions", s.exclusions).Methods("GET")
	r.HandleFunc("/exclusions", s.setExclusions).Methods("PUT")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	return r
}

// ListenAndServe serves the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.Log.WithField("addr", addr).Info("seekmap: HTTP API starting")
	return srv.ListenAndServe()
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags every request with an id, logs it and counts it.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if t, err := cr.GetPathTemplate(); err == nil {
				route = t
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		s.Log.WithFields(logrus.Fields{
			"request":  id,
			"method":   r.Method,
			"route":    route,
			"code":     rec.code,
			"duration": time.Since(start),
		}).Debug("seekmap: request")
	})
}

// apiError is the body of an error response.
type apiError struct {
	Error string `json:"error"`
	Key   *int   `json:"key,omitempty"`
	Field string `json:"field,omitempty"`
}

func keyOrNil(k int) *int {
	if k == seekmap.NoKey {
		return nil
	}
	return &k
}

// writeError responds with the status that matches err.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	body := apiError{Error: err.Error()}
	code := http.StatusInternalServerError
	var (
		se *seekmap.SchemaError
		ge *seekmap.GeometryError
		bu *boundary.BoundaryUnresolved
	)
	switch {
	case errors.As(err, &se):
		code = http.StatusBadRequest
		body.Key, body.Field = keyOrNil(se.Key), se.Field
	case errors.As(err, &ge):
		code = http.StatusUnprocessableEntity
		body.Key = keyOrNil(ge.Key)
	case errors.As(err, &bu):
		code = http.StatusNotFound
	case err == boundary.ErrSuperseded:
		code = http.StatusConflict
	case err == seekmap.ErrBusy, err == context.Canceled, err == context.DeadlineExceeded:
		code = http.StatusServiceUnavailable
	default:
		s.Log.Error(err)
	}
	s.writeJSON(w, code, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Warnf("seekmap: writing response: %v", err)
	}
}

type deriveRequest struct {
	// Base is a GeoJSON object. The current boundary is used when it is
	// missing.
	Base json.RawMessage `json:"base"`

	Questions json.RawMessage `json:"questions"`
	Planning  *bool           `json:"planning"`

	// Disabled replaces the registry's disabled points for this request.
	Disabled *[]string `json:"disabled"`
}

type deriveResponse struct {
	Fingerprint    string         `json:"fingerprint"`
	AreaSqMi       float64        `json:"areaSqMi"`
	EmptyAt        *int           `json:"emptyAt"`
	PreviewEmptyAt *int           `json:"previewEmptyAt,omitempty"`
	Unanswerable   []int          `json:"unanswerable,omitempty"`
	Regions        *carto.GeoJSON `json:"regions"`
}

func (s *Server) derive(w http.ResponseWriter, r *http.Request) {
	var req deriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &seekmap.SchemaError{Key: seekmap.NoKey, Field: "(root)", Reason: err.Error()})
		return
	}
	snap := seekmap.Snapshot{PlanningMode: s.Planning, Exclusions: s.Registry.View()}
	if req.Planning != nil {
		snap.PlanningMode = *req.Planning
	}
	if req.Disabled != nil {
		v, err := s.Registry.ViewWith(*req.Disabled)
		if err != nil {
			s.writeError(w, &seekmap.SchemaError{Key: seekmap.NoKey, Field: "disabled", Reason: err.Error()})
			return
		}
		snap.Exclusions = v
	}
	if len(req.Base) > 0 {
		b, err := seekmap.ReadBase(bytes.NewReader(req.Base))
		if err != nil {
			s.writeError(w, err)
			return
		}
		snap.Base = b
	} else if cur, _ := s.Resolver.Current(); cur != nil {
		snap.Base = cur
	} else {
		s.writeError(w, &seekmap.SchemaError{Key: seekmap.NoKey, Field: "base", Reason: "no base polygon and no resolved boundary"})
		return
	}
	if len(req.Questions) > 0 {
		qs, err := seekmap.ImportQuestions(req.Questions)
		if err != nil {
			s.writeError(w, err)
			return
		}
		snap.Questions = qs
	}

	res, err := s.Engine.Derive(r.Context(), snap)
	if err != nil {
		s.writeError(w, err)
		return
	}
	regions, err := seekmap.ResultGeoJSON(res)
	if err != nil {
		s.writeError(w, err)
		return
	}
	area, err := geo.SquareMiles(res.Feasible)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deriveResponse{
		Fingerprint:    res.Fingerprint,
		AreaSqMi:       area,
		EmptyAt:        keyOrNil(res.EmptyAt),
		PreviewEmptyAt: keyOrNil(res.PreviewEmptyAt),
		Unanswerable:   res.Unanswerable,
		Regions:        regions,
	})
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, &seekmap.SchemaError{Key: seekmap.NoKey, Field: "q", Reason: "missing place name"})
		return
	}
	p, err := s.Resolver.ResolveByName(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Engine.Invalidate()
	g, err := geo.ToGeoJSON(p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, &seekmap.SchemaError{Key: seekmap.NoKey, Field: "q", Reason: fmt.Sprintf("missing place name or %q", boundary.All)})
		return
	}
	if err := s.Resolver.Invalidate(r.Context(), q); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exclusionState struct {
	Disabled   []string `json:"disabled"`
	Version    uint64   `json:"version"`
	Points     int      `json:"points"`
	Categories []string `json:"categories"`
}

func (s *Server) exclusions(w http.ResponseWriter, r *http.Request) {
	disabled := s.Registry.Disabled()
	if disabled == nil {
		disabled = []string{}
	}
	t := s.Registry.Table()
	s.writeJSON(w, http.StatusOK, exclusionState{
		Disabled:   disabled,
		Version:    s.Registry.Version(),
		Points:     t.Len(),
		Categories: t.Categories(),
	})
}

func (s *Server) setExclusions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disabled []string `json:"disabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &seekmap.SchemaError{Key: seekmap.NoKey, Field: "(root)", Reason: err.Error()})
		return
	}
	if err := s.Registry.SetDisabled(req.Disabled); err != nil {
		s.writeError(w, &seekmap.SchemaError{Key: seekmap.NoKey, Field: "disabled", Reason: err.Error()})
		return
	}
	s.Engine.Invalidate()
	s.exclusions(w, r)
}
