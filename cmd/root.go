package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Version of this software - set with -ldflags at build time.
	Version string
	// BuildTime of this software - set with -ldflags at build time.
	BuildTime string
)

func setupVersionBuild() {
	if Version == "" {
		Version = "v0.0.0"
	}
	if BuildTime == "" {
		BuildTime = "not recorded"
	}
}

var subcommandFns = map[string]func(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command{}

// NewRootCommand reads the map of subcommandFns and creates a top level cobra
// command with each of them as subcommands.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	setupVersionBuild()
	rc := &cobra.Command{
		Use:   "lasprep",
		Short: "lasprep - prepare LIDAR tiles for machine learning",
		Long: `Colorizes airborne LIDAR tiles with the matching orthoimages,
optionally cuts them into square sub-tiles, and assigns every tile to
a train, val or test split recorded in dataset_split.csv.

Every flag can also be given as a LASPREP_<FLAG> environment variable
or in the TOML file named by --config.

Version: ` + Version + `
Build Time: ` + BuildTime + "\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			return setAllConfig(v, cmd.Flags(), "LASPREP")
		},
	}
	rc.PersistentFlags().StringP(configFlag, "c", "", "Configuration file to read from (TOML).")
	for _, subcomFn := range subcommandFns {
		rc.AddCommand(subcomFn(stdin, stdout, stderr))
	}
	rc.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "lasprep %s, built %s\n", Version, BuildTime)
		},
	})
	rc.SetOutput(stderr)
	return rc
}

// configFlag names the flag holding the path of the TOML configuration file.
const configFlag = "config"

// setAllConfig applies configuration to every flag in flags which was not
// given on the command line. Values come from the environment first, then
// from the TOML file named by --config, then the flag default. Since each
// flag holds a pointer into a Main struct, this fills in that struct.
//
// Environment variables are the flag names upper-cased, dashes replaced by
// underscores, prefixed with envPrefix and an underscore: --train-frac is
// LASPREP_TRAIN_FRAC. Keys in the configuration file are flag names; a key
// which names no flag is an error, so a typo can't silently leave a default
// in place.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return errors.Wrap(err, "binding flags")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, flags); err != nil {
		return err
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		// Changed flags were set on the command line, which wins.
		if flagErr != nil || f.Changed || f.Name == configFlag {
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			flagErr = errors.Wrapf(err, "setting %s from environment or config file", f.Name)
		}
	})
	return flagErr
}

// readConfigFile loads the TOML file given by --config or LASPREP_CONFIG, if
// any, and checks that it only sets known flags.
func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	path := v.GetString(configFlag)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading configuration file '%s'", path)
	}
	for _, key := range v.AllKeys() {
		if flags.Lookup(key) == nil {
			return errors.Errorf("unknown key %q in configuration file '%s'", key, path)
		}
	}
	return nil
}
