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

// Package atmos drives the PHOTOCHEM photochemistry and CLIMA climate models.
// It stages template input files into a model tree, edits the species data
// file, builds and runs the models, and collects their output.
package atmos

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Version is the version of this program.
const Version = "0.1.0"

// Tree is an installation of the models. All paths are relative to Root.
type Tree struct {
	Root string
}

// Path joins elem to the tree root.
func (t Tree) Path(elem ...string) string {
	return filepath.Join(append([]string{t.Root}, elem...)...)
}

// SpeciesFile is the species data file read by PHOTOCHEM.
func (t Tree) SpeciesFile() string {
	return t.Path("PHOTOCHEM", "INPUTFILES", "species.dat")
}

// TemplateDir is the directory holding the named input file template.
func (t Tree) TemplateDir(name string) string {
	return t.Path("PHOTOCHEM", "INPUTFILES", "TEMPLATES", name)
}

// PhotochemOutput is the profile written by PHOTOCHEM.
func (t Tree) PhotochemOutput() string {
	return t.Path("PHOTOCHEM", "OUTPUT", "profile.pt")
}

// ClimaOutput is the final state table written by CLIMA.
func (t Tree) ClimaOutput() string {
	return t.Path("CLIMA", "IO", "clima_last.tab")
}

// TemplateFiles are the files copied from a template directory, with the
// directory (relative to the tree root) each is copied to.
var TemplateFiles = []struct {
	Name string
	Dest string
}{
	{Name: "species.dat", Dest: filepath.Join("PHOTOCHEM", "INPUTFILES")},
	{Name: "reactions.rx", Dest: filepath.Join("PHOTOCHEM", "INPUTFILES")},
	{Name: "planet.dat", Dest: filepath.Join("PHOTOCHEM", "INPUTFILES")},
	{Name: "input_photchem.dat", Dest: filepath.Join("PHOTOCHEM", "INPUTFILES")},
	{Name: "parameters.inc", Dest: filepath.Join("PHOTOCHEM", "DATA", "INCLUDE")},
}

// Stage copies the input files of the named template into place.
func (t Tree) Stage(template string, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	dir := t.TemplateDir(template)
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("atmos: template %s: %w", template, err)
	} else if !info.IsDir() {
		return fmt.Errorf("atmos: template %s: %s is not a directory", template, dir)
	}
	for _, f := range TemplateFiles {
		src := filepath.Join(dir, f.Name)
		dst := t.Path(f.Dest, f.Name)
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("atmos: staging template %s: %w", template, err)
		}
		log.WithFields(logrus.Fields{"template": template, "file": f.Name, "dest": dst}).Debug("staged")
	}
	log.WithField("template", template).Info("staged template")
	return nil
}

// copyFile copies src to dst, creating the destination directory if needed
// and giving dst the permissions of src.
func copyFile(src, dst string) error {
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	info, err := r.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	w, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm())
}
