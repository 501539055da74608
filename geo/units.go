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
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/unit"
)

// Units is a unit of length.
type Units string

// Supported length units.
const (
	Miles      Units = "miles"
	Kilometers Units = "kilometers"
	Meters     Units = "meters"
	Feet       Units = "feet"
)

var metersPer = map[Units]float64{
	Miles:      1609.344,
	Kilometers: 1000,
	Meters:     1,
	Feet:       0.3048,
}

var unitAliases = map[string]Units{
	"mi":         Miles,
	"mile":       Miles,
	"miles":      Miles,
	"km":         Kilometers,
	"kilometer":  Kilometers,
	"kilometers": Kilometers,
	"m":          Meters,
	"meter":      Meters,
	"meters":     Meters,
	"ft":         Feet,
	"foot":       Feet,
	"feet":       Feet,
}

// ParseUnits returns the length unit named by s. Common abbreviations are
// accepted.
func ParseUnits(s string) (Units, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("geo: invalid length unit %q", s)
	}
	return u, nil
}

// Length returns the distance v expressed in units u as a unit-checked
// length in meters.
func Length(v float64, u Units) (*unit.Unit, error) {
	f, ok := metersPer[u]
	if !ok {
		return nil, fmt.Errorf("geo: invalid length unit %q", u)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, fmt.Errorf("geo: invalid distance %g %s", v, u)
	}
	return unit.New(v*f, unit.Meter), nil
}

// ToMeters converts v in units u to meters.
func ToMeters(v float64, u Units) (float64, error) {
	l, err := Length(v, u)
	if err != nil {
		return 0, err
	}
	if err := l.Check(unit.Meter); err != nil {
		return 0, err
	}
	return l.Value(), nil
}

// FromMeters converts m meters to units u.
func FromMeters(m float64, u Units) (float64, error) {
	f, ok := metersPer[u]
	if !ok {
		return 0, fmt.Errorf("geo: invalid length unit %q", u)
	}
	return m / f, nil
}
