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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/atmos-tools/atmos/cloud"
	"github.com/atmos-tools/atmos/output"
	"github.com/atmos-tools/atmos/plots"
	"github.com/atmos-tools/atmos/species"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// ModelSpec describes one model run within an experiment.
type ModelSpec struct {
	// Name identifies the run and names its output directory.
	Name string

	// Template, if set, overrides the experiment template.
	Template string

	// Clima specifies whether to run CLIMA after PHOTOCHEM.
	Clima bool

	// Species holds field edits to apply to the species data, keyed by
	// species name and then field name.
	Species map[string]map[string]interface{}
}

// Experiment is a sequence of model runs that share a model tree.
// Experiments are usually read from a TOML file, for example:
//
//	Root = "${HOME}/atmos"
//	Template = "ModernEarth"
//	OutputDir = "results"
//
//	[[Model]]
//	Name = "baseline"
//
//	[[Model]]
//	Name = "high_ch4"
//	Clima = true
//	[Model.Species.CH4]
//	fixedmr = "1.0E-4"
type Experiment struct {
	// Root is the directory the models are installed in.
	Root string

	// Template is the input file template staged before each run.
	// If empty, the input files in the tree are used as they are.
	Template string

	// OutputDir is the directory results are copied to. Each model's
	// results go in a subdirectory with the model's name.
	OutputDir string

	// Clean specifies whether to clean before each build.
	Clean bool

	// PlotFormat is the image file extension for plots. The default
	// is ".jpg".
	PlotFormat string

	// Archive, if set, is a blob storage location results are uploaded to.
	Archive string

	PhotochemCommands Commands
	ClimaCommands     Commands

	Models []ModelSpec `toml:"Model"`

	Log logrus.FieldLogger `toml:"-"`
}

// LoadExperiment reads an experiment from a TOML file. Environment
// variables in paths are expanded.
func LoadExperiment(path string) (*Experiment, error) {
	var e Experiment
	md, err := toml.DecodeFile(path, &e)
	if err != nil {
		return nil, fmt.Errorf("atmos: reading experiment %s: %v", path, err)
	}
	if u := md.Undecoded(); len(u) > 0 {
		keys := make([]string, len(u))
		for i, k := range u {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("atmos: experiment %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	e.Root = os.ExpandEnv(e.Root)
	e.OutputDir = os.ExpandEnv(e.OutputDir)
	e.Archive = os.ExpandEnv(e.Archive)
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// AddModel appends a model run to the experiment.
func (e *Experiment) AddModel(m ModelSpec) {
	e.Models = append(e.Models, m)
}

func (e *Experiment) validate() error {
	if e.Root == "" {
		return fmt.Errorf("atmos: experiment Root is not specified")
	}
	if e.OutputDir == "" {
		return fmt.Errorf("atmos: experiment OutputDir is not specified")
	}
	if len(e.Models) == 0 {
		return fmt.Errorf("atmos: experiment has no models")
	}
	names := make(map[string]bool)
	for i, m := range e.Models {
		if m.Name == "" {
			return fmt.Errorf("atmos: experiment model %d has no name", i)
		}
		if strings.ContainsAny(m.Name, `/\`) {
			return fmt.Errorf("atmos: experiment model name %q contains a path separator", m.Name)
		}
		if names[m.Name] {
			return fmt.Errorf("atmos: experiment model name %q is used more than once", m.Name)
		}
		names[m.Name] = true
	}
	return nil
}

func (e *Experiment) log() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

// Run runs each model in turn. The first failure stops the experiment.
func (e *Experiment) Run(ctx context.Context) error {
	if err := e.validate(); err != nil {
		return err
	}
	for _, m := range e.Models {
		log := e.log().WithField("model", m.Name)
		log.Info("starting model")
		files, err := e.runModel(ctx, m, log)
		if err != nil {
			return fmt.Errorf("atmos: model %s: %w", m.Name, err)
		}
		if e.Archive != "" {
			dest := strings.TrimRight(e.Archive, "/") + "/" + m.Name
			if _, err := cloud.Archive(ctx, dest, files, log); err != nil {
				return fmt.Errorf("atmos: model %s: %w", m.Name, err)
			}
		}
		log.Info("finished model")
	}
	return nil
}

// runModel runs one model and returns the paths of the result files.
func (e *Experiment) runModel(ctx context.Context, spec ModelSpec, log logrus.FieldLogger) ([]string, error) {
	tree := Tree{Root: e.Root}
	template := spec.Template
	if template == "" {
		template = e.Template
	}
	if template != "" {
		if err := tree.Stage(template, log); err != nil {
			return nil, err
		}
	}
	s, err := species.Load(tree.SpeciesFile())
	if err != nil {
		return nil, err
	}
	if err := ApplyEdits(s, spec.Species); err != nil {
		return nil, err
	}
	m := &Model{
		Tree:      tree,
		Species:   s,
		Photochem: e.PhotochemCommands,
		Clima:     e.ClimaCommands,
		RunClima:  spec.Clima,
		Clean:     e.Clean,
		Log:       log,
	}
	if err := m.Run(ctx); err != nil {
		return nil, err
	}
	res, err := m.Results()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(e.OutputDir, spec.Name)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("atmos: %w", err)
	}
	copies := []string{tree.SpeciesFile(), tree.PhotochemOutput()}
	if spec.Clima {
		copies = append(copies, tree.ClimaOutput())
	}
	var files []string
	for _, src := range copies {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("atmos: saving results: %w", err)
		}
		files = append(files, dst)
	}

	ext := e.PlotFormat
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	sheets := []output.Sheet{{Name: "photochem", Table: res.Photochem}}
	plotFile := filepath.Join(dir, "photochem"+ext)
	if err := plots.PhotochemGrid.Draw(res.Photochem, plotFile); err != nil {
		return nil, err
	}
	files = append(files, plotFile)
	if res.Clima != nil {
		sheets = append(sheets, output.Sheet{Name: "clima", Table: res.Clima})
		plotFile = filepath.Join(dir, "clima"+ext)
		if err := plots.ClimaGrid.Draw(res.Clima, plotFile); err != nil {
			return nil, err
		}
		files = append(files, plotFile)
	}
	xlsxFile := filepath.Join(dir, "results.xlsx")
	if err := output.WriteXLSX(xlsxFile, sheets...); err != nil {
		return nil, err
	}
	files = append(files, xlsxFile)
	log.WithField("dir", dir).Info("saved results")
	return files, nil
}

// ApplyEdits sets species fields. edits is keyed by species name and then
// field name; values that are not strings are converted to strings.
// Edits are applied in sorted order so the first error is deterministic.
func ApplyEdits(t *species.Table, edits map[string]map[string]interface{}) error {
	names := make([]string, 0, len(edits))
	for name := range edits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r, ok := t.Get(name)
		if !ok {
			return fmt.Errorf("atmos: editing %s: %w", name, species.ErrUnknownSpecies)
		}
		fields := make([]string, 0, len(edits[name]))
		for f := range edits[name] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			v, err := cast.ToStringE(edits[name][f])
			if err != nil {
				return fmt.Errorf("atmos: editing %s.%s: %v", name, f, err)
			}
			if err := r.Set(f, v); err != nil {
				return err
			}
		}
	}
	return nil
}
