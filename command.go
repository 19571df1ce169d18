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
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Command is a program and its arguments.
type Command []string

func (c Command) String() string { return strings.Join(c, " ") }

// Commands are the steps used to build and run one model.
type Commands struct {
	Clean Command
	Build Command
	Run   Command
}

var (
	// PhotochemCommands are the default PHOTOCHEM build and run commands.
	PhotochemCommands = Commands{
		Clean: Command{"make", "-f", "PhotoMake", "clean"},
		Build: Command{"make", "-f", "PhotoMake"},
		Run:   Command{"./Photo.run"},
	}

	// ClimaCommands are the default CLIMA build and run commands.
	ClimaCommands = Commands{
		Clean: Command{"make", "-f", "ClimaMake", "clean"},
		Build: Command{"make", "-f", "ClimaMake"},
		Run:   Command{"./Clima.run"},
	}
)

// withDefaults fills in any unset commands from d.
func (c Commands) withDefaults(d Commands) Commands {
	if len(c.Clean) == 0 {
		c.Clean = d.Clean
	}
	if len(c.Build) == 0 {
		c.Build = d.Build
	}
	if len(c.Run) == 0 {
		c.Run = d.Run
	}
	return c
}

// outputTail is the number of output lines included in errors.
const outputTail = 20

// Runner runs commands in a model tree.
type Runner struct {
	// Dir is the working directory for commands.
	Dir string

	// Output, if not nil, receives a copy of the combined output of
	// each command.
	Output io.Writer

	Log logrus.FieldLogger
}

// Run runs c, waiting for it to finish. The error returned for a failed
// command includes the last lines of its output.
func (r *Runner) Run(ctx context.Context, step string, c Command) error {
	if len(c) == 0 {
		return fmt.Errorf("atmos: %s: empty command", step)
	}
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"step": step, "cmd": c.String()})

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, c[0], c[1:]...)
	cmd.Dir = r.Dir
	if r.Output != nil {
		cmd.Stdout = io.MultiWriter(&out, r.Output)
	} else {
		cmd.Stdout = &out
	}
	cmd.Stderr = cmd.Stdout

	log.Info("starting")
	start := time.Now()
	if err := cmd.Run(); err != nil {
		log.WithField("elapsed", time.Since(start)).Error("failed")
		return fmt.Errorf("atmos: %s: running %q: %v\n%s", step, c.String(), err, tail(out.String(), outputTail))
	}
	log.WithField("elapsed", time.Since(start)).Info("finished")
	return nil
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
