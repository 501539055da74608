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

// Package hash computes stable fingerprints of Go values for use as cache
// keys.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Keyer is implemented by values that already carry a unique key.
type Keyer interface {
	Key() string
}

// Hash returns a hex-encoded 128-bit FNV-1a fingerprint of object.
// Values implementing Keyer are returned as their key. The value is
// gob-encoded when possible; values gob cannot encode, such as
// unregistered interface values, are printed with spew instead, with map
// keys sorted so the result is deterministic.
func Hash(object interface{}) string {
	if k, ok := object.(Keyer); ok {
		return k.Key()
	}
	h := fnv.New128a()
	if err := gob.NewEncoder(h).Encode(object); err == nil {
		return fmt.Sprintf("%x", h.Sum(nil))
	}
	h.Reset()
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", object)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Bytes returns the fingerprint of a byte slice.
func Bytes(b []byte) string {
	h := fnv.New128a()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}
