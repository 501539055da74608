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

package hash

import (
	"math"
	"testing"
)

type keyed string

func (k keyed) Key() string { return "key:" + string(k) }

func TestHash(t *testing.T) {
	type pair struct {
		A string
		B float64
	}
	a := Hash(pair{"x", 1})
	if len(a) != 32 {
		t.Errorf("length: have %d, want 32", len(a))
	}
	if b := Hash(pair{"x", 1}); a != b {
		t.Errorf("have %s, want %s", b, a)
	}
	if b := Hash(pair{"x", 2}); a == b {
		t.Error("different values should hash differently")
	}
	if h := Hash(keyed("q")); h != "key:q" {
		t.Errorf("have %s, want key:q", h)
	}
	n1, n2 := Hash(pair{"x", math.NaN()}), Hash(pair{"x", math.NaN()})
	if n1 != n2 || len(n1) != 32 {
		t.Errorf("NaN: have %s and %s", n1, n2)
	}
	type wrapped struct{ V interface{} }
	f1, f2 := Hash(wrapped{struct{ X int }{1}}), Hash(wrapped{struct{ X int }{1}})
	if f1 != f2 || len(f1) != 32 {
		t.Errorf("spew fallback: have %s and %s", f1, f2)
	}
	if Bytes([]byte("abc")) == Bytes([]byte("abd")) {
		t.Error("different bytes should hash differently")
	}
}
