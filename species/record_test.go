/*
Copyright © 2020 the atmos authors.
This file is part of atmos.

atmos is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

atmos is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with atmos.  If not, see <http://www.gnu.org/licenses/>.
*/

package species

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseRecordLongLived(t *testing.T) {
	r, err := ParseRecord("H2O LL 1 0 0 0 0 0 1.0 0.0 0.0 0.0 0.0 0.0 0.0")
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "H2O" {
		t.Errorf("name: have %q", r.Name)
	}
	if r.Category != LongLived {
		t.Errorf("category: have %v, want %v", r.Category, LongLived)
	}
	for field, want := range map[string]string{"long_lived": "LL", "O": "1", "lbound": "1.0", "smflux": "0.0"} {
		if have, ok := r.Get(field); !ok || have != want {
			t.Errorf("%s: have %q (%v), want %q", field, have, ok, want)
		}
	}
	if len(r.Fields()) != 14 {
		t.Errorf("have %d fields, want 14", len(r.Fields()))
	}
	if _, ok := r.Get("veff0"); ok {
		t.Error("veff0 should not be present")
	}
}

func TestParseRecordTruncated(t *testing.T) {
	r, err := ParseRecord("CO   SL 1 0 1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"long_lived", "O", "H", "C"}
	if !reflect.DeepEqual(r.Fields(), want) {
		t.Errorf("have fields %v, want %v", r.Fields(), want)
	}
	if _, ok := r.Get("S"); ok {
		t.Error("S should not be present")
	}
	if v, _ := r.Get("C"); v != "1" {
		t.Errorf("C: have %q, want 1", v)
	}
}

func TestParseRecordCategory(t *testing.T) {
	tests := []struct {
		line   string
		want   Category
		fields int
	}{
		{line: "CO2 IN 2 0 1 0 0 0 3.5E-4", want: Inert, fields: 8},
		{line: "O1D SL 1 0 0 0 0 0", want: ShortLived, fields: 7},
		{line: "HE  XX 0 0 0 0 0 0", want: ShortLived, fields: 7},
		{line: "AR  IN 0 0 0 0 0 0 0 0. 9.3E-3 0. 0. 0 0. 0.", want: LongLived, fields: 15},
		{line: "NE  SL 0 0 0 0 0 0 0 0. 1.8E-5 0. 0. 0 0. 0.", want: LongLived, fields: 15},
		{line: "KR  LL 0 0 0 0 0 0", want: LongLived, fields: 7},
	}
	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			r, err := ParseRecord(test.line)
			if err != nil {
				t.Fatal(err)
			}
			if r.Category != test.want {
				t.Errorf("have %v, want %v", r.Category, test.want)
			}
			if len(r.Fields()) != test.fields {
				t.Errorf("have %d fields, want %d", len(r.Fields()), test.fields)
			}
		})
	}
}

func TestParseRecordInertFixedMR(t *testing.T) {
	r, err := ParseRecord("CO2        IN  2 0 1 0 0 0    3.5E-4")
	if err != nil {
		t.Fatal(err)
	}
	v, err := r.Float("fixedmr")
	if err != nil {
		t.Fatal(err)
	}
	if v != 3.5e-4 {
		t.Errorf("have %g, want 3.5e-4", v)
	}
}

func TestParseRecordMalformed(t *testing.T) {
	for _, line := range []string{"H2O", "  H2O  "} {
		if _, err := ParseRecord(line); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("%q: have error %v, want %v", line, err, ErrMalformedRecord)
		}
	}
}

func TestRecordSet(t *testing.T) {
	const line = "O2         LL  2 0 0 0 0 0    1     0.      0.21    0.      0.    0   0.   0."
	tests := []struct {
		value, want string
	}{
		{value: "0.10", want: "O2         LL  2 0 0 0 0 0    1     0.      0.10    0.      0.    0   0.   0."},
		{value: "2.1E-01", want: "O2         LL  2 0 0 0 0 0    1     0.      2.1E-01 0.      0.    0   0.   0."},
		{value: "1.2345678E-01", want: "O2         LL  2 0 0 0 0 0    1     0.      1.2345678E-01 0.      0.    0   0.   0."},
	}
	for _, test := range tests {
		t.Run(test.value, func(t *testing.T) {
			r, err := ParseRecord(line)
			if err != nil {
				t.Fatal(err)
			}
			if err := r.Set("fixedmr", test.value); err != nil {
				t.Fatal(err)
			}
			have, err := r.Render()
			if err != nil {
				t.Fatal(err)
			}
			if have != test.want {
				t.Errorf("have %q\nwant %q", have, test.want)
			}
		})
	}
}

func TestRecordSetInvalid(t *testing.T) {
	r, err := ParseRecord("O1D SL 1 0 0 0 0 0")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Set("fixedmr", "1.0"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("have error %v, want %v", err, ErrUnknownField)
	}
	for _, v := range []string{"", "1 2", "1!", "1\v2", "1\u00a02", "1\u0085"} {
		if err := r.Set("O", v); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("%q: have error %v, want %v", v, err, ErrInvalidValue)
		}
	}
	if _, err := r.Float("lbound"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("have error %v, want %v", err, ErrUnknownField)
	}
}
