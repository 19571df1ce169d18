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
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// whitespace matches the same runes as unicode.IsSpace.
var whitespace = regexp.MustCompile(`[\s\v\x{85}\p{Z}]+`)

// fields splits s into tokens separated by whitespace.
func fields(s string) []string {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if s == "" {
		return nil
	}
	return whitespace.Split(s, -1)
}

// Layout describes the columns of one fixed-width line. Each column holds a
// token together with the run of whitespace that follows it, so the widths
// of a layout add up (with the indent) to the length of the line it was
// inferred from.
type Layout struct {
	// Indent is any whitespace preceding the first token.
	Indent string

	// Widths holds the total width of each column.
	Widths []int

	// Separators holds the whitespace that followed each token in the
	// source line. The last separator may be empty.
	Separators []string
}

// InferLayout measures the columns of line. Line terminators should be
// removed beforehand.
func InferLayout(line string) Layout {
	var l Layout
	pos := 0
	for _, loc := range whitespace.FindAllStringIndex(line, -1) {
		if loc[0] == 0 {
			l.Indent = line[:loc[1]]
			pos = loc[1]
			continue
		}
		l.Widths = append(l.Widths, loc[1]-pos)
		l.Separators = append(l.Separators, line[loc[0]:loc[1]])
		pos = loc[1]
	}
	if pos < len(line) {
		l.Widths = append(l.Widths, len(line)-pos)
		l.Separators = append(l.Separators, "")
	}
	return l
}

// Len returns the number of columns in the layout.
func (l Layout) Len() int { return len(l.Widths) }

// Render left-justifies each value in its column. A value that fits the
// original token exactly is followed by the original separator, so rendering
// the tokens a layout was inferred from reproduces the source line. A value
// too long for its column is written whole, followed by a single space
// unless it is in the last column.
func (l Layout) Render(values []string) (string, error) {
	if len(values) != len(l.Widths) {
		return "", fmt.Errorf("species: rendering %d values with a %d-column layout: %w",
			len(values), len(l.Widths), ErrFieldCount)
	}
	var b strings.Builder
	b.WriteString(l.Indent)
	for i, v := range values {
		sep := l.Separators[i]
		b.WriteString(v)
		switch token := l.Widths[i] - len(sep); {
		case len(v) == token:
			b.WriteString(sep)
		case len(v) < l.Widths[i]:
			b.WriteString(strings.Repeat(" ", l.Widths[i]-len(v)))
		case i < len(values)-1:
			b.WriteByte(' ')
		}
	}
	return b.String(), nil
}
