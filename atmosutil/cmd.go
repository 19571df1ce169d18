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

// Package atmosutil contains the atmos command-line interface and its
// configuration.
package atmosutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/atmos-tools/atmos"
	"github.com/atmos-tools/atmos/cloud"
	"github.com/atmos-tools/atmos/output"
	"github.com/atmos-tools/atmos/species"
	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to atmos.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "root",
			usage: `
              root is the directory the PHOTOCHEM and CLIMA models are installed in.
              It should contain the PHOTOCHEM and CLIMA directories and the
              model makefiles.`,
			shorthand:  "r",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "template",
			usage: `
              template is the name of the input file template to stage, i.e. a
              directory in PHOTOCHEM/INPUTFILES/TEMPLATES.`,
			shorthand:  "t",
			defaultVal: "ModernEarth",
			flagsets:   []*pflag.FlagSet{stageCmd.Flags()},
		},
		{
			name: "clima",
			usage: `
              clima specifies whether to build and run the CLIMA climate model
              after PHOTOCHEM, and whether to include CLIMA output in plots,
              summaries, exports and archives.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags(), summaryCmd.Flags(), exportCmd.Flags(), archiveCmd.Flags()},
		},
		{
			name: "clean",
			usage: `
              clean specifies whether to run the clean step of each makefile
              before building.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory plots and spreadsheets are written to.`,
			shorthand:  "o",
			defaultVal: "results",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags(), exportCmd.Flags(), fetchCmd.Flags()},
		},
		{
			name: "PlotFormat",
			usage: `
              PlotFormat is the image file extension for plots: .png, .jpg, or .tif.`,
			defaultVal: ".jpg",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "bucket",
			usage: `
              bucket is the blob storage location model output is archived to,
              in the form provider://bucket/path. Accepted providers are
              file, gs, and s3.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{archiveCmd.Flags(), fetchCmd.Flags()},
		},
		{
			name: "AWSRegion",
			usage: `
              AWSRegion is the region s3 buckets are opened in. The AWS_REGION
              environment variable takes precedence if it is set.`,
			defaultVal: cloud.AWSRegion,
			flagsets:   []*pflag.FlagSet{archiveCmd.Flags(), fetchCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is a file log messages are copied to, in addition to
              standard error. If empty, messages are only written to standard error.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages to print: debug, info,
              warning, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Photochem.Clean",
			usage: `
              Photochem.Clean is the command that cleans the PHOTOCHEM build.`,
			defaultVal: atmos.PhotochemCommands.Clean.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Photochem.Build",
			usage: `
              Photochem.Build is the command that builds PHOTOCHEM.`,
			defaultVal: atmos.PhotochemCommands.Build.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Photochem.Run",
			usage: `
              Photochem.Run is the command that runs PHOTOCHEM.`,
			defaultVal: atmos.PhotochemCommands.Run.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Clima.Clean",
			usage: `
              Clima.Clean is the command that cleans the CLIMA build.`,
			defaultVal: atmos.ClimaCommands.Clean.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Clima.Build",
			usage: `
              Clima.Build is the command that builds CLIMA.`,
			defaultVal: atmos.ClimaCommands.Build.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Clima.Run",
			usage: `
              Clima.Run is the command that runs CLIMA.`,
			defaultVal: atmos.ClimaCommands.Run.String(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("ATMOS")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(stageCmd)
	Root.AddCommand(speciesCmd)
	speciesCmd.AddCommand(speciesShowCmd)
	speciesCmd.AddCommand(speciesSetCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(plotCmd)
	Root.AddCommand(summaryCmd)
	Root.AddCommand(exportCmd)
	Root.AddCommand(archiveCmd)
	Root.AddCommand(fetchCmd)
	Root.AddCommand(experimentCmd)
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "atmos",
	Short: "A driver for the PHOTOCHEM and CLIMA atmosphere models.",
	Long: `atmos stages model input files, edits species data, builds and runs the
PHOTOCHEM photochemistry and CLIMA climate models, and plots and exports
their output. Use the subcommands specified below to access this functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'ATMOS_var' where 'var' is the
name of the variable to be set. Paths may contain environment variables.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if err := setConfig(); err != nil {
			return err
		}
		return setLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of atmos.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "atmos v%s\n", atmos.Version)
	},
	DisableAutoGenTag: true,
}

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Copy a template's input files into place",
	Long: `stage copies the input files of the template given by --template
(species.dat, reactions.rx, planet.dat, input_photchem.dat, and parameters.inc)
into the model tree, replacing the current input files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tree().Stage(os.ExpandEnv(Cfg.GetString("template")), nil)
	},
	DisableAutoGenTag: true,
}

var speciesCmd = &cobra.Command{
	Use:   "species",
	Short: "View and edit the species data file",
	Long: `species views and edits PHOTOCHEM/INPUTFILES/species.dat. Edits keep
the column layout of the file; comment lines are left as they are.`,
	DisableAutoGenTag: true,
}

var speciesShowCmd = &cobra.Command{
	Use:   "show [species...]",
	Short: "Print species data",
	Long: `show prints the fields of the given species, or of all species if none
are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := species.Load(tree().SpeciesFile())
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			names = s.Names()
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		for _, name := range names {
			r, ok := s.Get(name)
			if !ok {
				return fmt.Errorf("atmos: %s: %w", name, species.ErrUnknownSpecies)
			}
			fields := r.Fields()
			kv := make([]string, len(fields))
			for i, f := range fields {
				v, _ := r.Get(f)
				kv[i] = f + "=" + v
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Category, strings.Join(kv, " "))
		}
		return w.Flush()
	},
	DisableAutoGenTag: true,
}

var speciesSetCmd = &cobra.Command{
	Use:   "set species field=value...",
	Short: "Change species data",
	Long: `set changes fields of one species and rewrites the species data file.
For example:

	atmos species set CH4 fixedmr=1.0E-4 lbound=1

Only fields the species already has can be set.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edits := make(map[string]interface{})
		for _, a := range args[1:] {
			kv := strings.SplitN(a, "=", 2)
			if len(kv) != 2 {
				return fmt.Errorf("atmos: invalid edit %q; edits should be in the form field=value", a)
			}
			edits[kv[0]] = kv[1]
		}
		path := tree().SpeciesFile()
		s, err := species.Load(path)
		if err != nil {
			return err
		}
		if err := atmos.ApplyEdits(s, map[string]map[string]interface{}{args[0]: edits}); err != nil {
			return err
		}
		return s.Save(path)
	},
	DisableAutoGenTag: true,
}

// runCmd builds and runs the models.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and run the models",
	Long: `run builds and runs PHOTOCHEM and, if --clima is set, CLIMA, using
the input files currently in the model tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := model(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return m.Run(context.Background())
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot model output",
	Long: `plot draws vertical profiles of PHOTOCHEM output (and CLIMA output if
--clima is set) and saves them in OutputDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := plotResults()
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize model output",
	Long: `summary prints the minimum, maximum, mean, and standard deviation
of each column of PHOTOCHEM output (and CLIMA output if --clima is set).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := results()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', tabwriter.AlignRight)
		for _, s := range sheets(res) {
			fmt.Fprintf(w, "%s\tmin\tmax\tmean\tstd\t\n", s.Name)
			for _, c := range output.Summarize(s.Table) {
				fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t\n", c.Column, c.Min, c.Max, c.Mean, c.Std)
			}
		}
		return w.Flush()
	},
	DisableAutoGenTag: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export model output to a spreadsheet",
	Long: `export writes PHOTOCHEM output (and CLIMA output if --clima is set)
to OutputDir/results.xlsx, one worksheet per model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := results()
		if err != nil {
			return err
		}
		dir, err := outputDir()
		if err != nil {
			return err
		}
		return output.WriteXLSX(filepath.Join(dir, "results.xlsx"), sheets(res)...)
	},
	DisableAutoGenTag: true,
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Upload model output to blob storage",
	Long: `archive uploads the species data file and the model output files
to the blob storage location given by --bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := archive(context.Background())
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch key...",
	Short: "Download archived model output",
	Long: `fetch downloads the given keys from the blob storage location given by
--bucket into OutputDir. Keys are as printed by archive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := fetch(context.Background(), args)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var experimentCmd = &cobra.Command{
	Use:   "experiment file.toml",
	Short: "Run an experiment",
	Long: `experiment runs each model in the given experiment file in turn,
staging the template, applying species edits, running the models, and saving
output, plots, and spreadsheets. See the documentation of atmos.Experiment
for the file format.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := atmos.LoadExperiment(os.ExpandEnv(args[0]))
		if err != nil {
			return err
		}
		return e.Run(context.Background())
	},
	DisableAutoGenTag: true,
}
