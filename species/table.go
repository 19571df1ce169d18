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

// Package species reads and rewrites the fixed-width species data file
// (species.dat) used by the PHOTOCHEM model. Records are edited in memory and
// written back in the exact column layout of the original file, leaving
// comment lines untouched.
package species

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// rename commits a rewritten file. It is a variable so tests can
// simulate failures at the commit point.
var rename = os.Rename

// Table holds the species records of a species data file in file order.
type Table struct {
	names   []string
	records map[string]*Record
}

// line is one line of a species file with its terminator split off.
type line struct {
	text, term string
}

func splitLines(data string) []line {
	var lines []line
	for len(data) > 0 {
		i := strings.IndexByte(data, '\n')
		if i < 0 {
			lines = append(lines, line{text: data})
			break
		}
		l := line{text: data[:i], term: "\n"}
		if strings.HasSuffix(l.text, "\r") {
			l.text, l.term = l.text[:len(l.text)-1], "\r\n"
		}
		lines = append(lines, l)
		data = data[i+1:]
	}
	return lines
}

// record returns the part of l that holds record data, or false if l is
// a comment or blank line.
func (l line) record() (string, bool) {
	if strings.HasPrefix(l.text, "*") {
		return "", false
	}
	s := l.text
	if i := strings.IndexByte(s, '!'); i >= 0 {
		s = s[:i]
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Load reads the species data file at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("species: %w", err)
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses species data from r. Lines starting with '*' are comments and
// text after '!' is an inline comment. Any malformed line fails the whole read.
func Read(r io.Reader) (*Table, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("species: reading: %w", err)
	}
	t := &Table{records: make(map[string]*Record)}
	for i, l := range splitLines(string(b)) {
		s, ok := l.record()
		if !ok {
			continue
		}
		rec, err := ParseRecord(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if _, ok := t.records[rec.Name]; ok {
			return nil, fmt.Errorf("species: line %d: %s: %w", i+1, rec.Name, ErrDuplicateSpecies)
		}
		t.names = append(t.names, rec.Name)
		t.records[rec.Name] = rec
	}
	return t, nil
}

// Names returns the species names in file order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Get returns the record for the named species.
func (t *Table) Get(name string) (*Record, bool) {
	r, ok := t.records[name]
	return r, ok
}

// Len returns the number of species in the table.
func (t *Table) Len() int { return len(t.names) }

// Render copies src to dst, replacing each data line with the current
// contents of its record. Comment and blank lines are copied unchanged.
// Inline comments on data lines are not carried over.
func (t *Table) Render(src io.Reader, dst io.Writer) error {
	b, err := ioutil.ReadAll(src)
	if err != nil {
		return fmt.Errorf("species: reading: %w", err)
	}
	for i, l := range splitLines(string(b)) {
		text := l.text
		if s, ok := l.record(); ok {
			name := fields(s)[0]
			rec, ok := t.records[name]
			if !ok {
				return fmt.Errorf("species: line %d: %s: %w", i+1, name, ErrUnknownSpecies)
			}
			if text, err = rec.Render(); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
		}
		if _, err := io.WriteString(dst, text+l.term); err != nil {
			return fmt.Errorf("species: writing: %w", err)
		}
	}
	return nil
}

// Save rewrites the species data file at path with the contents of t.
// The new contents are written to a temporary file in the same directory,
// which takes the permissions of the original and is then renamed over it.
// If Save fails the original file is left as it was.
func (t *Table) Save(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("species: %w", err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("species: %w", err)
	}

	tmp, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path)+".")
	if err != nil {
		return fmt.Errorf("species: creating temporary file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := t.Render(src, w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("species: writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("species: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("species: %w", err)
	}
	if err := rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("species: replacing %s: %w", path, err)
	}
	committed = true
	return nil
}
