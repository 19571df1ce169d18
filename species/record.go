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
	"fmt"
	"strings"
	"unicode"

	"github.com/atmos-tools/atmos/internal/fortran"
)

var (
	// ErrMalformedRecord is returned for a data line without a category
	// discriminator.
	ErrMalformedRecord = errors.New("malformed species record")

	// ErrDuplicateSpecies is returned when a species is defined on more
	// than one line.
	ErrDuplicateSpecies = errors.New("duplicate species")

	// ErrUnknownSpecies is returned when a data line refers to a species
	// that is not in the table.
	ErrUnknownSpecies = errors.New("unknown species")

	// ErrUnknownField is returned when accessing a field a record does
	// not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrFieldCount is returned when the number of values does not match
	// the number of layout columns.
	ErrFieldCount = errors.New("field count does not match layout")

	// ErrInvalidValue is returned for values that could not be written
	// back as a single token.
	ErrInvalidValue = errors.New("invalid field value")
)

// Category is the kind of chemical species a record describes.
type Category int

// The species categories, selected by the second column of a record.
const (
	ShortLived Category = iota
	LongLived
	Inert
)

func (c Category) String() string {
	switch c {
	case LongLived:
		return "long-lived"
	case Inert:
		return "inert"
	default:
		return "short-lived"
	}
}

// Field names for each category. The first name holds the category
// discriminator itself.
var (
	LongLivedFields = []string{"long_lived", "O", "H", "C", "S", "N", "CL",
		"lbound", "vdep0", "fixedmr", "sgflux", "disth", "mbound", "smflux", "veff0"}
	ShortLivedFields = []string{"long_lived", "O", "H", "C", "S", "N", "CL"}
	InertFields      = []string{"long_lived", "O", "H", "C", "S", "N", "CL", "fixedmr"}
)

// categorize picks the header for the tokens following the species name.
// A record whose token count equals the long-lived header length uses the
// long-lived header regardless of its discriminator.
func categorize(tokens []string) (Category, []string) {
	switch {
	case tokens[0] == "LL":
		return LongLived, LongLivedFields
	case len(tokens) == len(LongLivedFields):
		return LongLived, LongLivedFields
	case tokens[0] == "IN":
		return Inert, InertFields
	default:
		return ShortLived, ShortLivedFields
	}
}

// Record is one species line.
type Record struct {
	// Name is the species name, the first token on the line.
	Name string

	Category Category

	// Layout is used to write the record back in its original columns.
	Layout Layout

	fields []string
	values []string
}

// ParseRecord parses a data line with any inline comment already removed.
func ParseRecord(line string) (*Record, error) {
	tokens := fields(line)
	if len(tokens) < 2 {
		return nil, fmt.Errorf("species: %q: %w", line, ErrMalformedRecord)
	}
	cat, header := categorize(tokens[1:])
	n := len(tokens) - 1
	if n > len(header) {
		n = len(header)
	}
	return &Record{
		Name:     tokens[0],
		Category: cat,
		Layout:   InferLayout(line),
		fields:   header[:n],
		values:   tokens[1:],
	}, nil
}

// Fields returns the names of the fields present in r, in column order.
func (r *Record) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Values returns every value after the species name, in column order,
// including any trailing values the category header has no name for.
func (r *Record) Values() []string {
	return append([]string(nil), r.values...)
}

func (r *Record) index(field string) int {
	for i, f := range r.fields {
		if f == field {
			return i
		}
	}
	return -1
}

// Get returns the value of the named field.
func (r *Record) Get(field string) (string, bool) {
	i := r.index(field)
	if i < 0 {
		return "", false
	}
	return r.values[i], true
}

// Float returns the value of the named field as a number.
func (r *Record) Float(field string) (float64, error) {
	v, ok := r.Get(field)
	if !ok {
		return 0, fmt.Errorf("species: %s.%s: %w", r.Name, field, ErrUnknownField)
	}
	f, err := fortran.ParseFloat(v)
	if err != nil {
		return 0, fmt.Errorf("species: %s.%s: %v", r.Name, field, err)
	}
	return f, nil
}

// Set changes the value of an existing field. Fields cannot be added,
// so the record always renders with the columns it was read with.
func (r *Record) Set(field, value string) error {
	i := r.index(field)
	if i < 0 {
		return fmt.Errorf("species: %s.%s: %w", r.Name, field, ErrUnknownField)
	}
	if value == "" || strings.IndexFunc(value, invalidRune) >= 0 {
		return fmt.Errorf("species: %s.%s=%q: %w", r.Name, field, value, ErrInvalidValue)
	}
	r.values[i] = value
	return nil
}

// invalidRune reports whether r cannot appear in a field value.
func invalidRune(r rune) bool { return r == '!' || unicode.IsSpace(r) }

// Render writes the record in its layout, species name first.
func (r *Record) Render() (string, error) {
	s, err := r.Layout.Render(append([]string{r.Name}, r.values...))
	if err != nil {
		return "", fmt.Errorf("species: %s: %w", r.Name, err)
	}
	return s, nil
}
