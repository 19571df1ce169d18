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

package atmosutil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/atmos-tools/atmos"
	"github.com/atmos-tools/atmos/cloud"
	"github.com/atmos-tools/atmos/output"
	"github.com/atmos-tools/atmos/plots"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// setConfig reads in the configuration file, if one is specified.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("atmos: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// logFile is the currently open log file, if any.
var logFile *os.File

// setLogging sets the level and destination of the standard logger.
func setLogging() error {
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("atmos: invalid LogLevel: %v", err)
	}
	logrus.SetLevel(level)

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	f := os.ExpandEnv(Cfg.GetString("LogFile"))
	if f == "" {
		logrus.SetOutput(os.Stderr)
		return nil
	}
	logFile, err = os.Create(f)
	if err != nil {
		return fmt.Errorf("atmos: problem creating log file: %v", err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, logFile))
	return nil
}

// tree returns the model tree given by the root configuration variable.
func tree() atmos.Tree {
	return atmos.Tree{Root: os.ExpandEnv(Cfg.GetString("root"))}
}

// commandFromConfig returns the command stored in the given configuration
// variable, which may be either a string or a list of arguments.
func commandFromConfig(name string) (atmos.Command, error) {
	switch v := Cfg.Get(name).(type) {
	case nil:
		return nil, nil
	case string:
		return atmos.Command(expandStringSlice(strings.Fields(v))), nil
	default:
		s, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("atmos: invalid command %s: %v", name, err)
		}
		return atmos.Command(expandStringSlice(s)), nil
	}
}

// commandsFromConfig returns the clean, build, and run commands stored
// under the given configuration prefix.
func commandsFromConfig(prefix string) (atmos.Commands, error) {
	var c atmos.Commands
	var err error
	if c.Clean, err = commandFromConfig(prefix + ".Clean"); err != nil {
		return c, err
	}
	if c.Build, err = commandFromConfig(prefix + ".Build"); err != nil {
		return c, err
	}
	if c.Run, err = commandFromConfig(prefix + ".Run"); err != nil {
		return c, err
	}
	return c, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// model returns a model set up from the configuration. Command output is
// written to w.
func model(w io.Writer) (*atmos.Model, error) {
	m, err := atmos.NewModel(tree().Root)
	if err != nil {
		return nil, err
	}
	if m.Photochem, err = commandsFromConfig("Photochem"); err != nil {
		return nil, err
	}
	if m.Clima, err = commandsFromConfig("Clima"); err != nil {
		return nil, err
	}
	m.RunClima = Cfg.GetBool("clima")
	m.Clean = Cfg.GetBool("clean")
	m.Output = w
	return m, nil
}

// results loads the output of the most recent model run.
func results() (*atmos.Results, error) {
	t := tree()
	var r atmos.Results
	var err error
	if r.Photochem, err = output.LoadPhotochem(t.PhotochemOutput()); err != nil {
		return nil, err
	}
	if Cfg.GetBool("clima") {
		if r.Clima, err = output.LoadClima(t.ClimaOutput()); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// sheets returns one spreadsheet page per output table.
func sheets(r *atmos.Results) []output.Sheet {
	s := []output.Sheet{{Name: "photochem", Table: r.Photochem}}
	if r.Clima != nil {
		s = append(s, output.Sheet{Name: "clima", Table: r.Clima})
	}
	return s
}

// outputDir creates and returns the output directory.
func outputDir() (string, error) {
	dir := os.ExpandEnv(Cfg.GetString("OutputDir"))
	if dir == "" {
		return "", fmt.Errorf("atmos: OutputDir is not specified")
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("atmos: problem creating OutputDir: %v", err)
	}
	return dir, nil
}

// plotResults plots the output of the most recent model run and returns
// the names of the plot files.
func plotResults() ([]string, error) {
	r, err := results()
	if err != nil {
		return nil, err
	}
	dir, err := outputDir()
	if err != nil {
		return nil, err
	}
	ext := Cfg.GetString("PlotFormat")
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f := filepath.Join(dir, "photochem"+ext)
	if err := plots.PhotochemGrid.Draw(r.Photochem, f); err != nil {
		return nil, err
	}
	files := []string{f}
	if r.Clima != nil {
		f = filepath.Join(dir, "clima"+ext)
		if err := plots.ClimaGrid.Draw(r.Clima, f); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// bucket returns the blob storage location given by the configuration.
func bucket() (string, error) {
	b := os.ExpandEnv(Cfg.GetString("bucket"))
	if !cloud.IsBlob(b) {
		return "", fmt.Errorf("atmos: bucket must be in the form provider://name, but is %q", b)
	}
	if r := Cfg.GetString("AWSRegion"); r != "" {
		cloud.AWSRegion = r
	}
	return b, nil
}

// archive uploads the species data and model output to the bucket given
// by the configuration.
func archive(ctx context.Context) ([]string, error) {
	dest, err := bucket()
	if err != nil {
		return nil, err
	}
	t := tree()
	files := []string{t.SpeciesFile(), t.PhotochemOutput()}
	if Cfg.GetBool("clima") {
		files = append(files, t.ClimaOutput())
	}
	return cloud.Archive(ctx, dest, files, logrus.StandardLogger())
}

// fetch downloads the given keys from the bucket given by the configuration
// into the output directory and returns the paths of the downloaded files.
func fetch(ctx context.Context, keys []string) ([]string, error) {
	src, err := bucket()
	if err != nil {
		return nil, err
	}
	dir, err := outputDir()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, key := range keys {
		b, err := cloud.Fetch(ctx, src, key)
		if err != nil {
			return files, err
		}
		f := filepath.Join(dir, path.Base(key))
		if err := ioutil.WriteFile(f, b, 0644); err != nil {
			return files, fmt.Errorf("atmos: %v", err)
		}
		logrus.WithFields(logrus.Fields{"key": key, "file": f}).Info("fetched")
		files = append(files, f)
	}
	return files, nil
}
