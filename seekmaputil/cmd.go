/*
Copyright © 2026 the SeekMap authors.
This file is part of SeekMap.

SeekMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SeekMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SeekMap.  If not, see <http://www.gnu.org/licenses/>.*/

package seekmaputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/seekmap"
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
	// Options are the configuration options available to SeekMap.
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
			name: "LogLevel",
			usage: `
              LogLevel sets the minimum level of log messages: debug, info,
              warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Base",
			usage: `
              Base is the path to a GeoJSON file holding the playable area
              as a FeatureCollection, Feature, Polygon or MultiPolygon.
              Either Base or Place must be set.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags()},
		},
		{
			name: "Place",
			usage: `
              Place is the name of the place to use as the playable area.
              It is resolved with the boundary service.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags()},
		},
		{
			name: "Questions",
			usage: `
              Questions is the path to a JSON question list as written by
              the question export.`,
			shorthand:  "q",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "Planning",
			usage: `
              Planning leaves questions that are not finalized out of the
              feasible region and reports them in a separate preview.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to write the derived regions to. Paths
              ending in .shp are written as shapefiles; anything else as
              GeoJSON. The default writes GeoJSON to standard output.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags()},
		},
		{
			name: "POIFile",
			usage: `
              POIFile is the path to a TOML or GeoJSON file listing the points
              of interest used by matching and measuring questions.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Disabled",
			usage: `
              Disabled lists the identifiers of points of interest to leave
              out.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "MemoSize",
			usage: `
              MemoSize is the number of derivation results to keep in memory.
              Zero disables memoization.`,
			defaultVal: 64,
			flagsets:   []*pflag.FlagSet{serveCmd.Flags()},
		},
		{
			name: "Addr",
			usage: `
              Addr is the address the HTTP API listens on.`,
			defaultVal: "localhost:7272",
			flagsets:   []*pflag.FlagSet{serveCmd.Flags()},
		},
		{
			name: "Boundary.URL",
			usage: `
              Boundary.URL is the place search endpoint.`,
			defaultVal: "https://nominatim.openstreetmap.org/search",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Boundary.UserAgent",
			usage: `
              Boundary.UserAgent identifies this program to the place search
              service.`,
			defaultVal: "seekmap/" + seekmap.Version,
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Boundary.RequestsPerSecond",
			usage: `
              Boundary.RequestsPerSecond limits the rate of place searches.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Boundary.MaxRetries",
			usage: `
              Boundary.MaxRetries is the number of times a failed place search
              is retried.`,
			defaultVal: 3,
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Boundary.UseOutline",
			usage: `
              Boundary.UseOutline uses the outline of a place instead of its
              bounding box when the search service returns one.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Boundary.CacheSize",
			usage: `
              Boundary.CacheSize is the number of resolved places to keep in
              memory.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Boundary.CacheDir",
			usage: `
              Boundary.CacheDir is a directory to keep resolved places in
              between runs. It can contain environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Redis.Addr",
			usage: `
              Redis.Addr is the address of a Redis server used to share
              resolved places between processes. Empty disables it.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Redis.Password",
			usage: `
              Redis.Password is the Redis password.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Redis.DB",
			usage: `
              Redis.DB is the Redis database number.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
		{
			name: "Redis.TTL",
			usage: `
              Redis.TTL is how long places are kept in Redis, for example
              "24h".`,
			defaultVal: "168h",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), resolveCmd.Flags(), serveCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SEEKMAP")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
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
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
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
	Root.AddCommand(deriveCmd)
	Root.AddCommand(boundaryCmd)
	boundaryCmd.AddCommand(resolveCmd)
	Root.AddCommand(questionsCmd)
	questionsCmd.AddCommand(validateCmd)
	Root.AddCommand(serveCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("seekmap: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("seekmap: %v", err)
	}
	logrus.SetLevel(level)
	if level >= logrus.DebugLevel {
		if v, err := optionValues(); err == nil {
			logrus.Debugf("seekmap: configuration:\n%s", v)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "seekmap",
	Short: "Derive where a hidden player can be.",
	Long: `seekmap derives the region of a playable area that is consistent with
every answered location question about a hidden player.
Use the subcommands specified below to access its functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SEEKMAP_var' where 'var' is
the name of the variable to be set, with dots replaced by underscores.
Paths are allowed to contain environment variables.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of SeekMap.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("SeekMap v%s\n", seekmap.Version)
	},
	DisableAutoGenTag: true,
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive the feasible region",
	Long: `derive folds the questions in the Questions file into the playable area
given by Base or Place and writes the feasible region, its mask and, in
planning mode, the preview region to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := Derive(context.Background(), Cfg)
		if err != nil {
			return err
		}
		area, err := writeResult(r, os.ExpandEnv(Cfg.GetString("OutputFile")), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"area_sq_mi":  area,
			"fingerprint": r.Fingerprint,
		}).Info("seekmap: derived")
		if r.EmptyAt != seekmap.NoKey {
			logrus.WithField("key", r.EmptyAt).Warn("seekmap: no location is consistent with every answer")
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var boundaryCmd = &cobra.Command{
	Use:               "boundary",
	Short:             "Work with place boundaries",
	DisableAutoGenTag: true,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [place name]",
	Short: "Resolve a place name",
	Long: `resolve looks up a place name with the boundary service and prints the
resulting base polygon as GeoJSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := NewResolver(Cfg)
		if err != nil {
			return err
		}
		p, err := res.ResolveByName(context.Background(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return writeGeometry(cmd.OutOrStdout(), p)
	},
	DisableAutoGenTag: true,
}

var questionsCmd = &cobra.Command{
	Use:               "questions",
	Short:             "Work with question lists",
	DisableAutoGenTag: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a question list",
	Long: `validate checks the Questions file against the question schema and the
parameter rules of each question kind.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := readQuestions(os.ExpandEnv(Cfg.GetString("Questions")))
		if err != nil {
			return err
		}
		answered := 0
		for _, q := range qs {
			if q.Answered() {
				answered++
			}
		}
		cmd.Printf("%d questions, %d answered, next key %d\n", len(qs), answered, seekmap.NextKey(qs))
		return nil
	},
	DisableAutoGenTag: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `serve starts an HTTP API for deriving regions, resolving places and
managing the disabled points of interest. Prometheus metrics are served at
/metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := NewServer(Cfg)
		if err != nil {
			return err
		}
		return s.ListenAndServe(Cfg.GetString("Addr"))
	},
	DisableAutoGenTag: true,
}

// optionValues returns the current value of every option, for display.
func optionValues() (string, error) {
	config := make(map[string]interface{})
	for _, option := range options {
		config[option.name] = Cfg.Get(option.name)
	}
	b := bytes.NewBuffer(nil)
	e := json.NewEncoder(b)
	e.SetIndent("", "  ")
	if err := e.Encode(config); err != nil {
		return "", err
	}
	return b.String(), nil
}
