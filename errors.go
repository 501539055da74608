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

// Package seekmap derives the region where a hidden player can be, given a
// playable area and a list of answered location questions.
//
// A derivation starts from a base polygon and folds every question, in
// order, into the working region. Each question kind (Radius, Thermometer,
// Tentacle, Matching and Measuring) turns its parameters and answer into a
// boolean geometry operation. The result is the feasible region together
// with its mask, the complement of the feasible region within the world
// frame, which is used to shade eliminated area.
//
// Engine runs derivations one at a time and memoizes their results. Inputs
// are passed as an immutable Snapshot, so the engine holds no game state of
// its own.
package seekmap

import (
	"errors"
	"fmt"

	"github.com/spatialmodel/seekmap/geo"
)

// NoKey is used where no question key applies.
const NoKey = geo.NoKey

// GeometryError reports a malformed or degenerate geometry, with the key of
// the question whose geometry was at fault.
type GeometryError = geo.GeometryError

// SchemaError reports a malformed question or input record. Key is the
// offending question's key, or NoKey when it is not known.
type SchemaError struct {
	Key    int
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Key == NoKey {
		return fmt.Sprintf("seekmap: invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("seekmap: question %d: invalid %s: %s", e.Key, e.Field, e.Reason)
}

func schemaErrorf(field, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Key: NoKey, Field: field, Reason: fmt.Sprintf(format, args...)}
}

var (
	// ErrBusy is returned by TryDerive while another derivation is running.
	ErrBusy = errors.New("seekmap: a derivation is already running")

	// ErrSuperseded is delivered to a submitted derivation that was
	// replaced by a newer submission before it started.
	ErrSuperseded = errors.New("seekmap: derivation superseded by a newer request")

	// errUnanswerable is returned by evaluators whose question cannot be
	// evaluated because every relevant point of interest is disabled.
	errUnanswerable = errors.New("seekmap: no active points of interest")
)
