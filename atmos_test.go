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

package atmos

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atmos-tools/atmos/species"
)

const testSpecies = `*   Species data file
O          LL  1 0 0 0 0 0    0     0.      0.      0.      0.    0   0.   0.
O2         LL  2 0 0 0 0 0    1     0.      0.21    0.      0.    0   0.   0.
CH4        LL  0 4 1 0 0 0    1     0.      1.8E-6  0.      0.    0   0.   0.
N2         IN  0 0 0 0 2 0    0.78
`

const testProfile = `     Alt          Temp          O2           CH4
  1  0.500E+05  2.880E+02  2.100E-01  1.800E-06
  2  1.500E+05  2.810E+02  2.100E-01  1.700E-06
`

const testClima = `    J    P        ALT        T
1  1.000E-04  9.950E+01  1.800E+02
2  1.000E+00  0.000E+00  2.880E+02
`

// newTree creates a model tree with a "test" template and output fixtures
// in a temporary directory.
func newTree(t *testing.T) Tree {
	t.Helper()
	dir, err := ioutil.TempDir("", "atmos")
	if err != nil {
		t.Fatal(err)
	}
	tree := Tree{Root: dir}
	tmpl := tree.TemplateDir("test")
	if err := os.MkdirAll(tmpl, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	for _, f := range TemplateFiles {
		contents := "! " + f.Name + "\n"
		if f.Name == "species.dat" {
			contents = testSpecies
		}
		if err := ioutil.WriteFile(filepath.Join(tmpl, f.Name), []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for name, contents := range map[string]string{"profile.fixture": testProfile, "clima.fixture": testClima} {
		if err := ioutil.WriteFile(filepath.Join(dir, name), []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return tree
}

// fakeCommands copy output fixtures into place instead of running a model.
var (
	fakePhotochem = Commands{
		Clean: Command{"true"},
		Build: Command{"sh", "-c", "echo building photochem"},
		Run:   Command{"sh", "-c", "mkdir -p PHOTOCHEM/OUTPUT && cp profile.fixture PHOTOCHEM/OUTPUT/profile.pt"},
	}
	fakeClima = Commands{
		Clean: Command{"true"},
		Build: Command{"true"},
		Run:   Command{"sh", "-c", "mkdir -p CLIMA/IO && cp clima.fixture CLIMA/IO/clima_last.tab"},
	}
)

func TestStage(t *testing.T) {
	tree := newTree(t)
	defer os.RemoveAll(tree.Root)

	if err := tree.Stage("test", nil); err != nil {
		t.Fatal(err)
	}
	for _, f := range TemplateFiles {
		if _, err := os.Stat(tree.Path(f.Dest, f.Name)); err != nil {
			t.Error(err)
		}
	}
	b, err := ioutil.ReadFile(tree.SpeciesFile())
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != testSpecies {
		t.Errorf("species file not copied: %q", b)
	}
}

func TestStageMissing(t *testing.T) {
	tree := newTree(t)
	defer os.RemoveAll(tree.Root)

	if err := tree.Stage("missing", nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("have error %v, want a not-exist error", err)
	}
	if err := os.Remove(filepath.Join(tree.TemplateDir("test"), "planet.dat")); err != nil {
		t.Fatal(err)
	}
	if err := tree.Stage("test", nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("have error %v, want a not-exist error", err)
	}
}

func TestRunner(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Dir: os.TempDir(), Output: &out}
	ctx := context.Background()
	if err := r.Run(ctx, "echo", Command{"sh", "-c", "echo hello"}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hello\n" {
		t.Errorf("have output %q", out.String())
	}
	err := r.Run(ctx, "fail", Command{"sh", "-c", "echo compile error >&2; exit 2"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "compile error") {
		t.Errorf("error %q does not include command output", err)
	}
	if err := r.Run(ctx, "empty", nil); err == nil {
		t.Error("expected an error for an empty command")
	}
}

func TestTail(t *testing.T) {
	if have := tail("a\nb\nc\n", 2); have != "b\nc" {
		t.Errorf("have %q", have)
	}
	if have := tail("a", 2); have != "a" {
		t.Errorf("have %q", have)
	}
}

func TestModelRun(t *testing.T) {
	tree := newTree(t)
	defer os.RemoveAll(tree.Root)
	if err := tree.Stage("test", nil); err != nil {
		t.Fatal(err)
	}

	m, err := NewModel(tree.Root)
	if err != nil {
		t.Fatal(err)
	}
	m.Photochem = fakePhotochem
	m.Clima = fakeClima
	m.RunClima = true
	m.Clean = true
	ch4, _ := m.Species.Get("CH4")
	if err := ch4.Set("fixedmr", "1.0E-4"); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	s, err := species.Load(tree.SpeciesFile())
	if err != nil {
		t.Fatal(err)
	}
	ch4, _ = s.Get("CH4")
	if v, _ := ch4.Get("fixedmr"); v != "1.0E-4" {
		t.Errorf("species file not updated: fixedmr=%q", v)
	}

	res, err := m.Results()
	if err != nil {
		t.Fatal(err)
	}
	if res.Photochem.Len() != 2 || res.Clima == nil || res.Clima.Len() != 2 {
		t.Errorf("unexpected results: %+v", res)
	}
}

func TestModelRunFailure(t *testing.T) {
	tree := newTree(t)
	defer os.RemoveAll(tree.Root)
	if err := tree.Stage("test", nil); err != nil {
		t.Fatal(err)
	}
	m, err := NewModel(tree.Root)
	if err != nil {
		t.Fatal(err)
	}
	m.Photochem = fakePhotochem
	m.Photochem.Build = Command{"false"}
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(tree.PhotochemOutput()); !os.IsNotExist(err) {
		t.Error("model ran after a failed build")
	}
}
