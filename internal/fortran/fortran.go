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

// Package fortran parses numeric literals as written by Fortran
// list-directed and formatted output.
package fortran

import (
	"strconv"
	"strings"
)

// ParseFloat parses s as a 64-bit float. In addition to the forms accepted by
// strconv.ParseFloat it accepts D exponents (1.0D-05) and the three-digit
// exponent form in which Fortran drops the exponent letter (1.234-100).
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return v, nil
	}
	if f, ok := normalize(s); ok {
		if v, err2 := strconv.ParseFloat(f, 64); err2 == nil {
			return v, nil
		}
	}
	return 0, err
}

func normalize(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if strings.ContainsAny(s, "dD") {
		return strings.NewReplacer("d", "e", "D", "E").Replace(s), true
	}
	// Find a sign that is neither leading nor directly after an exponent letter.
	for i := len(s) - 1; i > 0; i-- {
		c := s[i]
		if c != '+' && c != '-' {
			continue
		}
		prev := s[i-1]
		if prev == 'e' || prev == 'E' {
			return "", false
		}
		if prev >= '0' && prev <= '9' || prev == '.' {
			return s[:i] + "E" + s[i:], true
		}
		return "", false
	}
	return "", false
}
