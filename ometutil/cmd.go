/*
Copyright © 2018 the OMET authors.
This file is part of OMET.

OMET is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

OMET is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with OMET.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package ometutil contains the command-line interface to OMET.
package ometutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/omet-research/omet"
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
	diagFlags := []*pflag.FlagSet{ohcCmd.Flags(), psiCmd.Flags(), statsCmd.Flags(), allCmd.Flags()}

	// Options are the configuration options available to OMET.
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
			name: "Dataset",
			usage: `
              Dataset is the name of the reanalysis product profile that
              describes the input files, for example ORAS4, GLORYS2V3 or
              SODA3. Run 'omet profiles' to list the available profiles.`,
			shorthand:  "d",
			defaultVal: "ORAS4",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ProfileFile",
			usage: `
              ProfileFile is the path to a TOML file with additional
              dataset profiles. Profiles in this file replace built-in
              profiles with the same name.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-level",
			usage: `
              log-level sets the minimum severity of the log messages that
              are printed: debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MeshMask",
			usage: `
              MeshMask is the path to the NEMO mesh mask file that holds
              the grid metrics, land-sea masks and bathymetry.`,
			shorthand:  "m",
			defaultVal: "",
			flagsets:   diagFlags,
		},
		{
			name: "BasinMask",
			usage: `
              BasinMask maps sub-basin short names to the files and
              variables holding their masks in the format "file:variable".
              If the variable is left out, the dataset profile's variable
              for that basin is used. For example:
              {"atl":"basinmask.nc:tmaskatl"}`,
			defaultVal: map[string]string{},
			flagsets:   diagFlags,
		},
		{
			name: "Input.Dir",
			usage: `
              Input.Dir is the directory holding the input files. It is
              joined with relative input file templates.`,
			defaultVal: "",
			flagsets:   diagFlags,
		},
		{
			name: "Input.Theta",
			usage: `
              Input.Theta is the file template for potential temperature.
              [DATE] is replaced by the date of the first record in each
              file, in the dataset's date format, and glob patterns must
              match exactly one file. If empty, the dataset profile's
              template is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{ohcCmd.Flags(), statsCmd.Flags(), allCmd.Flags()},
		},
		{
			name: "Input.U",
			usage: `
              Input.U is the file template for zonal velocity. If empty,
              the dataset profile's template is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{statsCmd.Flags(), allCmd.Flags()},
		},
		{
			name: "Input.V",
			usage: `
              Input.V is the file template for meridional velocity. If
              empty, the dataset profile's template is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{psiCmd.Flags(), statsCmd.Flags(), allCmd.Flags()},
		},
		{
			name: "StartYear",
			usage: `
              StartYear is the first year to process.`,
			defaultVal: 1979,
			flagsets:   diagFlags,
		},
		{
			name: "EndYear",
			usage: `
              EndYear is the last year to process (inclusive).`,
			defaultVal: 2014,
			flagsets:   diagFlags,
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the NetCDF file where the
              diagnostics are written.`,
			shorthand:  "o",
			defaultVal: "omet_output.nc",
			flagsets:   append(diagFlags, whitenCmd.Flags()),
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. If
              empty, the log is written next to OutputFile with a .log
              extension.`,
			defaultVal: "",
			flagsets:   diagFlags,
		},
		{
			name: "workers",
			usage: `
              workers is the number of months that are processed at the
              same time. Zero means one per CPU.`,
			defaultVal: 0,
			flagsets:   diagFlags,
		},
		{
			name: "FillBound",
			usage: `
              FillBound is the largest field magnitude allowed at sea
              cells. Larger values are treated as unhandled fill values.`,
			defaultVal: omet.DefaultFillBound,
			flagsets:   diagFlags,
		},
		{
			name: "ClampBathymetry",
			usage: `
              ClampBathymetry specifies whether columns whose bathymetry
              index is outside of the grid are treated as land instead of
              causing an error.`,
			defaultVal: false,
			flagsets:   diagFlags,
		},
		{
			name: "BandDepths",
			usage: `
              BandDepths are the depths [m] separating the layer bands that
              heat content is summed over. They are only used when the
              dataset profile does not give band level indices.`,
			defaultVal: []int{500, 1000, 2000},
			flagsets:   []*pflag.FlagSet{ohcCmd.Flags(), allCmd.Flags()},
		},
		{
			name: "Rho",
			usage: `
              Rho is the sea water density [kg/m3].`,
			defaultVal: omet.DefaultConstants.Rho,
			flagsets:   []*pflag.FlagSet{ohcCmd.Flags(), allCmd.Flags()},
		},
		{
			name: "Cp",
			usage: `
              Cp is the specific heat capacity of sea water [J/(kg K)].`,
			defaultVal: omet.DefaultConstants.Cp,
			flagsets:   []*pflag.FlagSet{ohcCmd.Flags(), allCmd.Flags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to a file created by OMET.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{whitenCmd.Flags(), seriesCmd.Flags(), budgetCmd.Flags()},
		},
		{
			name: "Variable",
			usage: `
              Variable is the name of the output variable to print.`,
			defaultVal: "OHC_glo_vert",
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags(), budgetCmd.Flags()},
		},
		{
			name: "Index",
			usage: `
              Index gives the position of the series in the dimensions
              that follow (year, month), for example j,i for a map.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags()},
		},
		{
			name: "Window",
			usage: `
              Window is the length of the running mean in months. Zero
              disables the running mean.`,
			defaultVal: 60,
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags()},
		},
		{
			name: "Rows",
			usage: `
              Rows gives the first row and the row after the last one of the
              band that the heat budget is calculated for, for example 150,180.
              If empty, all rows are used.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{budgetCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("OMET")
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
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(bytes.TrimSpace(b.Bytes()))
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
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
	Root.AddCommand(ohcCmd)
	Root.AddCommand(psiCmd)
	Root.AddCommand(statsCmd)
	Root.AddCommand(allCmd)
	Root.AddCommand(whitenCmd)
	Root.AddCommand(seriesCmd)
	Root.AddCommand(budgetCmd)
	Root.AddCommand(profilesCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("omet: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "omet",
	Short: "Ocean heat content and meridional transport diagnostics.",
	Long: `OMET calculates ocean heat content and meridional mass transport from
monthly ocean reanalysis output on NEMO ORCA grids.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'OMET_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of OMET.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("OMET v%s (data format v%s)\n", omet.Version, omet.DataVersion)
	},
	DisableAutoGenTag: true,
}

// diagnose runs the given diagnostics using the settings in Cfg.
func diagnose(cmd *cobra.Command, diags ...Diagnostic) error {
	rc, err := RunConfigFromViper(Cfg)
	if err != nil {
		return err
	}
	log, closeLog, err := setupLog(cmd.OutOrStdout(), rc.LogFile, Cfg.GetString("log-level"))
	if err != nil {
		return err
	}
	err = Diagnose(context.Background(), rc, log, diags...)
	if cerr := closeLog(); err == nil {
		err = cerr
	}
	return err
}

var ohcCmd = &cobra.Command{
	Use:   "ohc",
	Short: "Calculate ocean heat content.",
	Long: `ohc calculates the zonally and vertically integrated ocean heat content
of every month between StartYear and EndYear, globally and for each sub-basin
in BasinMask, together with the vertical integrals over each layer band.
Results are in tera joules.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return diagnose(cmd, HeatContent)
	},
	DisableAutoGenTag: true,
}

var psiCmd = &cobra.Command{
	Use:   "psi",
	Short: "Calculate meridional mass transport.",
	Long: `psi calculates the zonally and vertically integrated meridional mass
transport of every month between StartYear and EndYear, globally and for each
sub-basin in BasinMask. Results are in Sverdrups.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return diagnose(cmd, MassTransport)
	},
	DisableAutoGenTag: true,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Calculate mean temperature and velocity fields.",
	Long: `stats calculates the vertical and zonal means of potential temperature,
zonal velocity and meridional velocity for every month between StartYear and
EndYear.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return diagnose(cmd, FieldStats)
	},
	DisableAutoGenTag: true,
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Calculate all diagnostics.",
	Long: `all calculates heat content, mass transport and field statistics in a
single pass over the input files and writes them to one output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return diagnose(cmd, HeatContent, MassTransport, FieldStats)
	},
	DisableAutoGenTag: true,
}

var whitenCmd = &cobra.Command{
	Use:   "whiten",
	Short: "Remove the seasonal cycle from an output file.",
	Long: `whiten subtracts the mean seasonal cycle from every monthly variable in
InputFile and writes the result to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inFile, err := checkInputFile("InputFile", Cfg.GetString("InputFile"))
		if err != nil {
			return err
		}
		outFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		if outFile == inFile {
			return fmt.Errorf("omet: OutputFile must be different from InputFile")
		}
		log, closeLog, err := setupLog(cmd.OutOrStdout(), "", Cfg.GetString("log-level"))
		if err != nil {
			return err
		}
		defer closeLog()
		return WhitenFile(inFile, outFile, log)
	},
	DisableAutoGenTag: true,
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Print a monthly time series from an output file.",
	Long: `series prints the monthly values of Variable at Index from InputFile,
together with the values after removing the seasonal cycle, after also
removing the linear trend, and their running mean over Window months.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inFile, err := checkInputFile("InputFile", Cfg.GetString("InputFile"))
		if err != nil {
			return err
		}
		index, err := toIntSliceE(Cfg.Get("Index"))
		if err != nil {
			return fmt.Errorf("omet: Index: %v", err)
		}
		return PrintSeries(cmd.OutOrStdout(), inFile, os.ExpandEnv(Cfg.GetString("Variable")),
			index, Cfg.GetInt("Window"))
	},
	DisableAutoGenTag: true,
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Print the regional heat budget from an output file.",
	Long: `budget sums the heat content Variable in InputFile over the band of
grid rows given by Rows and prints it for every month, together with its
tendency in peta watts. The tendency is the change in heat content from one
month to the next divided by a 30-day month.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inFile, err := checkInputFile("InputFile", Cfg.GetString("InputFile"))
		if err != nil {
			return err
		}
		rows, err := toIntSliceE(Cfg.Get("Rows"))
		if err != nil {
			return fmt.Errorf("omet: Rows: %v", err)
		}
		return PrintHeatBudget(cmd.OutOrStdout(), inFile, os.ExpandEnv(Cfg.GetString("Variable")), rows)
	},
	DisableAutoGenTag: true,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the dataset profiles.",
	Long: `profiles prints the dataset profiles that can be selected with the
Dataset option, including any in ProfileFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := Profiles(os.ExpandEnv(Cfg.GetString("ProfileFile")))
		if err != nil {
			return err
		}
		PrintProfiles(cmd.OutOrStdout(), p)
		return nil
	},
	DisableAutoGenTag: true,
}
