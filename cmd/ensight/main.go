// Command ensight inspects, converts and samples EnSight Gold cases.
//
// Every flag can also come from a config file (--config) or from the
// environment with prefix ENSIGHT_, dashes replaced by underscores, for
// example ENSIGHT_LOG_LEVEL=debug.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notargets/goensight/mesh"
)

// app carries the state shared by the commands of one invocation
type app struct {
	cfg *viper.Viper
	log *logrus.Logger
	out io.Writer
}

func newApp(out, errOut io.Writer) *app {
	l := logrus.New()
	l.SetOutput(errOut)
	return &app{cfg: viper.New(), log: l, out: out}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ensight",
		Short:         "Inspect, convert and sample EnSight Gold cases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "configuration file (toml, yaml, json)")
	pf.String("log-level", "info", "logging level: trace, debug, info, warn, error")
	pf.Bool("log-json", false, "log in JSON format")

	root.AddCommand(
		a.infoCommand(),
		a.convertCommand(),
		a.importCommand(),
		a.probeCommand(),
		a.plotCommand(),
		a.partitionCommand(),
	)
	return root
}

// configure merges flags, environment and config file for cmd and sets up
// logging
func (a *app) configure(cmd *cobra.Command) error {
	v := a.cfg
	v.SetEnvPrefix("ENSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.InheritedFlags()} {
		if err := v.BindPFlags(fs); err != nil {
			return err
		}
	}
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.log.SetLevel(level)
	if v.GetBool("log-json") {
		a.log.SetFormatter(&logrus.JSONFormatter{})
	}
	mesh.SetLogger(a.log)
	return nil
}

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := a.rootCommand().Execute(); err != nil {
		a.log.Error(err)
		os.Exit(1)
	}
}
