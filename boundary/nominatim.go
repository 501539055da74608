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

package boundary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/seekmap/geo"
	"github.com/spatialmodel/seekmap/internal/metrics"
	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/time/rate"
)

// DefaultURL is the public Nominatim search endpoint.
const DefaultURL = "https://nominatim.openstreetmap.org/search"

// Nominatim looks up places with the Nominatim search API.
type Nominatim struct {
	URL       string
	UserAgent string
	Client    *http.Client

	// Limiter spaces requests to the service. The public service allows
	// one request per second.
	Limiter *rate.Limiter

	// MaxRetries is the number of times a failed request is retried.
	// Client errors (4xx) are never retried.
	MaxRetries uint64

	// RetryInterval is the initial wait before a retry.
	RetryInterval time.Duration

	// Limit is the maximum number of candidates requested.
	Limit int

	// Outline requests place outlines along with bounding boxes.
	Outline bool

	Log logrus.FieldLogger
}

// NewNominatim returns a client for the service at u that sends at most
// perSecond requests per second.
func NewNominatim(u string, perSecond float64) *Nominatim {
	if u == "" {
		u = DefaultURL
	}
	return &Nominatim{
		URL:           u,
		UserAgent:     "seekmap",
		Client:        http.DefaultClient,
		Limiter:       rate.NewLimiter(rate.Limit(perSecond), 1),
		MaxRetries:    3,
		RetryInterval: 500 * time.Millisecond,
		Limit:         5,
		Log:           logrus.StandardLogger(),
	}
}

type place struct {
	DisplayName string            `json:"display_name"`
	BoundingBox []string          `json:"boundingbox"`
	Importance  float64           `json:"importance"`
	GeoJSON     *geojson.Geometry `json:"geojson"`
}

// statusError is a non-200 response from the service.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// Search implements Lookup.
func (n *Nominatim) Search(ctx context.Context, query string) ([]Candidate, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("format", "jsonv2")
	v.Set("limit", strconv.Itoa(n.Limit))
	if n.Outline {
		v.Set("polygon_geojson", "1")
	}
	u := n.URL + "?" + v.Encode()

	var places []place
	var permanent error
	op := func() error {
		if n.Limiter != nil {
			if err := n.Limiter.Wait(ctx); err != nil {
				permanent = err
				return nil
			}
		}
		start := time.Now()
		ps, err := n.get(ctx, u)
		metrics.BoundaryLookupSeconds.Observe(time.Since(start).Seconds())
		var se *statusError
		switch {
		case errors.As(err, &se) && se.code >= 400 && se.code < 500:
			metrics.BoundaryLookups.WithLabelValues("rejected").Inc()
			permanent = err
			return nil
		case err != nil:
			metrics.BoundaryLookups.WithLabelValues("error").Inc()
			return err
		}
		metrics.BoundaryLookups.WithLabelValues("ok").Inc()
		places = ps
		return nil
	}
	b := backoff.NewExponentialBackOff()
	if n.RetryInterval > 0 {
		b.InitialInterval = n.RetryInterval
	}
	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(b, n.MaxRetries), ctx),
		func(err error, d time.Duration) {
			n.log().WithFields(logrus.Fields{"query": query, "wait": d}).Warnf("boundary: %v: retrying", err)
		},
	)
	if err == nil {
		err = permanent
	}
	if err != nil {
		return nil, fmt.Errorf("boundary: searching %q: %v", query, err)
	}

	o := make([]Candidate, 0, len(places))
	for _, p := range places {
		c, err := p.candidate()
		if err != nil {
			n.log().WithField("query", query).Warnf("boundary: skipping %q: %v", p.DisplayName, err)
			continue
		}
		o = append(o, c)
	}
	return o, nil
}

func (n *Nominatim) get(ctx context.Context, u string) ([]place, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := ctxhttp.Do(ctx, client, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > 200 {
			body = body[:200]
		}
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}
	var ps []place
	if err := json.Unmarshal(body, &ps); err != nil {
		return nil, fmt.Errorf("decoding response: %v", err)
	}
	return ps, nil
}

func (p place) candidate() (Candidate, error) {
	if len(p.BoundingBox) != 4 {
		return Candidate{}, fmt.Errorf("bounding box has %d values", len(p.BoundingBox))
	}
	var bb [4]float64
	for i, s := range p.BoundingBox {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Candidate{}, fmt.Errorf("bounding box: %v", err)
		}
		bb[i] = f
	}
	c := Candidate{
		Name:       p.DisplayName,
		South:      bb[0],
		North:      bb[1],
		West:       bb[2],
		East:       bb[3],
		Importance: p.Importance,
	}
	if !(c.South < c.North && c.West < c.East) {
		return Candidate{}, fmt.Errorf("degenerate bounding box %v", bb)
	}
	if p.GeoJSON != nil {
		// Point and line outlines are ignored.
		if outline, err := geo.FromGeoJSON(p.GeoJSON); err == nil {
			c.Outline = outline
		}
	}
	return c, nil
}

func (n *Nominatim) log() logrus.FieldLogger {
	if n.Log == nil {
		return logrus.StandardLogger()
	}
	return n.Log
}
