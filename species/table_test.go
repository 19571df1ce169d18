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
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

const testSpecies = `*   Species data file
*   LL  O H C S N CL  LBOUND  VDEP0   FIXEDMR  SGFLUX   DISTH MBOUND SMFLUX VEFF0
O          LL  1 0 0 0 0 0    0     0.      0.      0.      0.    0   0.   0.
O2         LL  2 0 0 0 0 0    1     0.      0.21    0.      0.    0   0.   0.
H2O        LL  1 2 0 0 0 0    1     0.      1.E-2   0.      0.    0   0.   0.   ! water

*   Inert species
CO2        IN  2 0 1 0 0 0    3.5E-4
N2         IN  0 0 0 0 2 0    0.78
O1D        SL  1 0 0 0 0 0
`

// writeSpecies writes contents to a species file in a new temporary
// directory and returns its path.
func writeSpecies(t *testing.T, contents string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "species")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "species.dat")
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRead(t *testing.T) {
	tbl, err := Read(strings.NewReader(testSpecies))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"O", "O2", "H2O", "CO2", "N2", "O1D"}
	if !reflect.DeepEqual(tbl.Names(), want) {
		t.Errorf("have names %v, want %v", tbl.Names(), want)
	}
	if tbl.Len() != len(want) {
		t.Errorf("have length %d, want %d", tbl.Len(), len(want))
	}
	h2o, ok := tbl.Get("H2O")
	if !ok {
		t.Fatal("missing H2O")
	}
	if v, _ := h2o.Get("fixedmr"); v != "1.E-2" {
		t.Errorf("H2O fixedmr: have %q", v)
	}
	if v, _ := h2o.Get("veff0"); v != "0." {
		t.Errorf("H2O veff0: have %q", v)
	}
	co2, _ := tbl.Get("CO2")
	if co2.Category != Inert {
		t.Errorf("CO2 category: have %v", co2.Category)
	}
	if _, ok := tbl.Get("water"); ok {
		t.Error("inline comment parsed as a species")
	}
}

func TestReadMalformed(t *testing.T) {
	tbl, err := Read(strings.NewReader("* comment\nO2 LL 2 0 0 0 0 0\nH2O\n"))
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("have error %v, want %v", err, ErrMalformedRecord)
	}
	if err != nil && !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error %q does not name the line", err)
	}
	if tbl != nil {
		t.Error("table returned with error")
	}
}

func TestReadDuplicate(t *testing.T) {
	_, err := Read(strings.NewReader("O2 LL 2 0 0 0 0 0\nO2 LL 2 0 0 0 0 0\n"))
	if !errors.Is(err, ErrDuplicateSpecies) {
		t.Errorf("have error %v, want %v", err, ErrDuplicateSpecies)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(os.TempDir(), "does-not-exist", "species.dat"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("have error %v, want a not-exist error", err)
	}
}

func TestSaveUnchanged(t *testing.T) {
	path := writeSpecies(t, testSpecies)
	defer os.RemoveAll(filepath.Dir(path))

	tbl, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Save(path); err != nil {
		t.Fatal(err)
	}
	// Only the inline comment is lost.
	want := strings.Replace(testSpecies, "! water", "", 1)
	if have := readFile(t, path); have != want {
		t.Errorf("have:\n%s\nwant:\n%s", have, want)
	}

	tbl2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(values(tbl), values(tbl2)); len(diff) > 0 {
		t.Errorf("reloaded table differs: %v", diff)
	}
	if !reflect.DeepEqual(tbl, tbl2) {
		t.Error("reloaded table layouts differ")
	}
}

// values returns the field values of every record in t.
func values(t *Table) map[string][]string {
	o := make(map[string][]string)
	for _, name := range t.Names() {
		r, _ := t.Get(name)
		o[name] = r.Values()
	}
	return o
}

func TestSaveModified(t *testing.T) {
	path := writeSpecies(t, testSpecies)
	defer os.RemoveAll(filepath.Dir(path))

	tbl, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	o2, _ := tbl.Get("O2")
	if err := o2.Set("fixedmr", "2.1E-01"); err != nil {
		t.Fatal(err)
	}
	n2, _ := tbl.Get("N2")
	if err := n2.Set("fixedmr", "0.79"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Save(path); err != nil {
		t.Fatal(err)
	}
	have := strings.Split(readFile(t, path), "\n")
	want := strings.Split(strings.Replace(testSpecies, "! water", "", 1), "\n")
	want[3] = "O2         LL  2 0 0 0 0 0    1     0.      2.1E-01 0.      0.    0   0.   0."
	want[8] = "N2         IN  0 0 0 0 2 0    0.79"
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have:\n%s\nwant:\n%s", strings.Join(have, "\n"), strings.Join(want, "\n"))
	}
	for _, i := range []int{0, 1, 5, 6} {
		if have[i] != want[i] {
			t.Errorf("line %d changed: %q", i+1, have[i])
		}
	}
}

func TestSavePermissions(t *testing.T) {
	path := writeSpecies(t, testSpecies)
	defer os.RemoveAll(filepath.Dir(path))
	if err := os.Chmod(path, 0640); err != nil {
		t.Fatal(err)
	}
	tbl, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Save(path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("have mode %v, want %v", info.Mode().Perm(), os.FileMode(0640))
	}
}

func TestSaveAtomic(t *testing.T) {
	path := writeSpecies(t, testSpecies)
	dir := filepath.Dir(path)
	defer os.RemoveAll(dir)

	tbl, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	o2, _ := tbl.Get("O2")
	if err := o2.Set("fixedmr", "0.50"); err != nil {
		t.Fatal(err)
	}

	failure := fmt.Errorf("disk full")
	rename = func(oldpath, newpath string) error { return failure }
	defer func() { rename = os.Rename }()

	if err := tbl.Save(path); !errors.Is(err, failure) {
		t.Errorf("have error %v, want %v", err, failure)
	}
	if have := readFile(t, path); have != testSpecies {
		t.Errorf("original file changed:\n%s", have)
	}
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("temporary file left behind: %d files in directory", len(files))
	}
}

func TestRenderUnknownSpecies(t *testing.T) {
	tbl, err := Read(strings.NewReader("O2 LL 2 0 0 0 0 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	err = tbl.Render(strings.NewReader("O3 LL 3 0 0 0 0 0\n"), &b)
	if !errors.Is(err, ErrUnknownSpecies) {
		t.Errorf("have error %v, want %v", err, ErrUnknownSpecies)
	}
}

func TestRenderLineEndings(t *testing.T) {
	const src = "* comment\r\nO2  LL 2 0 0 0 0 0\r\n\r\nO3  LL 3 0 0 0 0 0"
	tbl, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := tbl.Render(strings.NewReader(src), &b); err != nil {
		t.Fatal(err)
	}
	if b.String() != src {
		t.Errorf("have %q, want %q", b.String(), src)
	}
}

func TestSaveUnicodeSpace(t *testing.T) {
	const src = "O2 LL\v2 0 0 0 0 0\nN2\u00a0IN 0 0 0 0 2 0  0.78\n"
	path := writeSpecies(t, src)
	defer os.RemoveAll(filepath.Dir(path))

	tbl, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	r, _ := tbl.Get("N2")
	if v, _ := r.Get("fixedmr"); v != "0.78" {
		t.Errorf("have fixedmr %q, want 0.78", v)
	}
	if err := tbl.Save(path); err != nil {
		t.Fatal(err)
	}
	if have := readFile(t, path); have != src {
		t.Errorf("have %q, want %q", have, src)
	}
}
