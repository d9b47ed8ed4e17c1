package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/notargets/goensight/mesh"
	"github.com/notargets/goensight/readers"
	"github.com/notargets/goensight/writers"
)

func (a *app) infoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info CASE",
		Short: "Print the parts, variables, constants and time values of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := a.readCase(args[0])
			if err != nil {
				return err
			}
			return obj.Print(a.out)
		},
	}
	cmd.Flags().Int("step", -1, "read only this time step (0 based), -1 reads all")
	return cmd
}

func (a *app) convertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert IN.case OUT.case",
		Short: "Rewrite a case, optionally as binary, single file or one step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := readers.Read(args[0])
			if err != nil {
				return err
			}
			if err := a.overrideConstants(obj); err != nil {
				return err
			}
			return a.write(obj, args[1], a.cfg.GetInt("step"))
		},
	}
	f := cmd.Flags()
	f.Bool("binary", false, "write C binary files")
	f.Bool("single-file", false, "write every time step into one file per variable")
	f.Int("step", -1, "write only this time step (0 based), -1 writes all")
	f.StringSlice("constant", nil, "replace a constant, name=value (repeatable)")
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import MESH OUT.case",
		Short: "Convert a Gambit (.neu), Gmsh (.msh) or SU2 (.su2) mesh to a case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := readers.Import(args[0])
			if err != nil {
				return err
			}
			return a.write(obj, args[1], -1)
		},
	}
	cmd.Flags().Bool("binary", false, "write C binary files")
	return cmd
}

// readCase reads the case at path, honoring the step setting
func (a *app) readCase(path string) (*mesh.Object, error) {
	var (
		obj *mesh.Object
		err error
	)
	if step := a.cfg.GetInt("step"); step >= 0 {
		obj, err = readers.ReadStep(path, step)
	} else {
		obj, err = readers.Read(path)
	}
	if err != nil {
		return nil, err
	}
	a.log.WithFields(obj.Fields()).WithField("case", path).Info("read case")
	return obj, nil
}

func (a *app) write(obj *mesh.Object, path string, step int) error {
	opts := writers.Options{
		Binary:     a.cfg.GetBool("binary"),
		SingleFile: a.cfg.GetBool("single-file"),
		Step:       step,
	}
	if err := writers.WriteOptions(obj, path, opts); err != nil {
		return err
	}
	a.log.WithFields(obj.Fields()).WithField("case", path).Info("wrote case")
	return nil
}

// overrideConstants applies the constant flags and the constants table of
// the config file, flags last
func (a *app) overrideConstants(obj *mesh.Object) error {
	values := make(map[string]float64)
	table := a.cfg.GetStringMap("constants")
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, err := cast.ToFloat64E(table[name])
		if err != nil {
			return fmt.Errorf("constant %s: %w", name, err)
		}
		values[name] = v
	}
	for _, kv := range a.cfg.GetStringSlice("constant") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("constant %q: expected name=value", kv)
		}
		v, err := cast.ToFloat64E(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("constant %s: %w", name, err)
		}
		values[strings.TrimSpace(name)] = v
	}
	if len(values) == 0 {
		return nil
	}
	obj.BeginEdit()
	if err := obj.ReplaceConstants(values); err != nil {
		return err
	}
	return obj.EndEdit()
}
