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
	"io"

	"github.com/atmos-tools/atmos/output"
	"github.com/atmos-tools/atmos/species"
	"github.com/sirupsen/logrus"
)

// Model is one PHOTOCHEM run, optionally followed by a CLIMA run.
type Model struct {
	Tree Tree

	// Species, if not nil, is written to the tree's species file before
	// the model is built.
	Species *species.Table

	Photochem Commands
	Clima     Commands

	// RunClima specifies whether to build and run CLIMA after PHOTOCHEM.
	RunClima bool

	// Clean specifies whether to run the clean commands before building.
	Clean bool

	// Output, if not nil, receives the output of the model commands.
	Output io.Writer

	Log logrus.FieldLogger
}

// NewModel returns a model for the tree at root with the default commands
// and the species data currently in the tree.
func NewModel(root string) (*Model, error) {
	t := Tree{Root: root}
	s, err := species.Load(t.SpeciesFile())
	if err != nil {
		return nil, fmt.Errorf("atmos: loading species: %w", err)
	}
	return &Model{
		Tree:      t,
		Species:   s,
		Photochem: PhotochemCommands,
		Clima:     ClimaCommands,
		Log:       logrus.StandardLogger(),
	}, nil
}

func (m *Model) log() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

// Run writes the species data, then builds and runs the models in order.
// The first failure stops the run.
func (m *Model) Run(ctx context.Context) error {
	if m.Species != nil {
		if err := m.Species.Save(m.Tree.SpeciesFile()); err != nil {
			return fmt.Errorf("atmos: writing species data: %w", err)
		}
		m.log().WithField("file", m.Tree.SpeciesFile()).Info("wrote species data")
	}
	r := &Runner{Dir: m.Tree.Root, Output: m.Output, Log: m.log()}
	if err := m.run(ctx, r, "photochem", m.Photochem.withDefaults(PhotochemCommands)); err != nil {
		return err
	}
	if m.RunClima {
		return m.run(ctx, r, "clima", m.Clima.withDefaults(ClimaCommands))
	}
	return nil
}

func (m *Model) run(ctx context.Context, r *Runner, name string, c Commands) error {
	if m.Clean {
		if err := r.Run(ctx, name+" clean", c.Clean); err != nil {
			return err
		}
	}
	if err := r.Run(ctx, name+" build", c.Build); err != nil {
		return err
	}
	return r.Run(ctx, name+" run", c.Run)
}

// Results holds the output tables of a run. Clima is nil if CLIMA
// was not run.
type Results struct {
	Photochem *output.Table
	Clima     *output.Table
}

// Results loads the model output from the tree.
func (m *Model) Results() (*Results, error) {
	var r Results
	var err error
	if r.Photochem, err = output.LoadPhotochem(m.Tree.PhotochemOutput()); err != nil {
		return nil, err
	}
	if m.RunClima {
		if r.Clima, err = output.LoadClima(m.Tree.ClimaOutput()); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
