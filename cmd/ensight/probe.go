package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/notargets/goensight/mesh"
	"github.com/notargets/goensight/runner"
)

func (a *app) probeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe CASE",
		Short: "Interpolate variables at points, tab separated output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := a.probePoints(cmd)
			if err != nil {
				return err
			}
			res, err := a.runProbe(args[0], points)
			if err != nil {
				return err
			}
			a.printSamples(res)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArray("point", nil, "probe position x,y[,z] (repeatable)")
	f.String("points", "", "file with one whitespace separated x y [z] position per line")
	addRunnerFlags(cmd)
	return cmd
}

func (a *app) plotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot CASE",
		Short: "Plot a variable along a straight segment into a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.plotSegment(args[0])
		},
	}
	f := cmd.Flags()
	f.String("from", "", "segment start x,y[,z]")
	f.String("to", "", "segment end x,y[,z]")
	f.Int("samples", 200, "number of points along the segment")
	f.String("variable", "", "variable to plot")
	f.Int("component", -1, "vector component, -1 plots the magnitude")
	f.String("output", "plot.png", "output image, the extension selects the format")
	f.Float64("width", 6, "image width in inches")
	f.Float64("height", 4, "image height in inches")
	addRunnerFlags(cmd)
	return cmd
}

func addRunnerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSlice("variables", nil, "variables to sample, default all")
	f.Float64("time", 0, "solution time for transient cases")
	f.Int("workers", 0, "concurrent workers, 0 uses every CPU")
}

func (a *app) runProbe(path string, points []r3.Vec) (*runner.Result, error) {
	obj, err := a.readCase(path)
	if err != nil {
		return nil, err
	}
	r, err := runner.NewRunner(obj, runner.Config{
		Workers:   a.cfg.GetInt("workers"),
		Variables: a.cfg.GetStringSlice("variables"),
		Time:      a.cfg.GetFloat64("time"),
	})
	if err != nil {
		return nil, err
	}
	res, err := r.Run(context.Background(), points)
	if err != nil {
		return nil, err
	}
	for _, st := range res.Stats {
		a.log.WithField("variable", st.ID.Name).
			Infof("%d samples, min %v max %v mean %v", st.Count, st.Min, st.Max, st.Mean)
	}
	return res, nil
}

func (a *app) printSamples(res *runner.Result) {
	header := []string{"x", "y", "z"}
	for _, id := range res.Variables {
		if id.Type.Dim() == 1 {
			header = append(header, id.Name)
			continue
		}
		for c := 0; c < id.Type.Dim(); c++ {
			header = append(header, fmt.Sprintf("%s[%d]", id.Name, c))
		}
	}
	fmt.Fprintln(a.out, strings.Join(header, "\t"))
	for _, s := range res.Samples {
		row := []string{fmtFloat(s.Position.X), fmtFloat(s.Position.Y), fmtFloat(s.Position.Z)}
		for vi, id := range res.Variables {
			for c := 0; c < id.Type.Dim(); c++ {
				if !s.Found || s.Values[vi] == nil {
					row = append(row, "-")
					continue
				}
				row = append(row, fmtFloat(s.Values[vi][c]))
			}
		}
		fmt.Fprintln(a.out, strings.Join(row, "\t"))
	}
}

func fmtFloat(v float64) string { return fmt.Sprintf("%.10g", v) }

// probePoints collects the --point flags and the --points file. The point
// flags are read from cmd, viper would split them at the commas.
func (a *app) probePoints(cmd *cobra.Command) ([]r3.Vec, error) {
	flagPoints, err := cmd.Flags().GetStringArray("point")
	if err != nil {
		return nil, err
	}
	var points []r3.Vec
	for _, s := range flagPoints {
		p, err := parseVec(strings.Split(s, ","))
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if file := a.cfg.GetString("points"); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, mesh.IOError(file, err)
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for line := 1; sc.Scan(); line++ {
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
				continue
			}
			p, err := parseVec(fields)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", file, line, err)
			}
			points = append(points, p)
		}
		if err := sc.Err(); err != nil {
			return nil, mesh.IOError(file, err)
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no probe points, use --point or --points")
	}
	return points, nil
}

func parseVec(fields []string) (r3.Vec, error) {
	if len(fields) < 2 || len(fields) > 3 {
		return r3.Vec{}, fmt.Errorf("position %q: expected 2 or 3 coordinates", strings.Join(fields, ","))
	}
	var c [3]float64
	for i, s := range fields {
		v, err := cast.ToFloat64E(strings.TrimSpace(s))
		if err != nil {
			return r3.Vec{}, fmt.Errorf("position %q: %w", strings.Join(fields, ","), err)
		}
		c[i] = v
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// XYs implements the gonum.org/v1/plot/plotter.XYer interface.
type XYs []XY

// XY is an x and y value.
type XY struct{ X, Y float64 }

func (xys XYs) Len() int                    { return len(xys) }
func (xys XYs) XY(i int) (float64, float64) { return xys[i].X, xys[i].Y }

// plotSegment samples one variable along --from/--to and saves the line
// plot. Samples outside the mesh split the line.
func (a *app) plotSegment(path string) error {
	from, err := parseVec(strings.Split(a.cfg.GetString("from"), ","))
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseVec(strings.Split(a.cfg.GetString("to"), ","))
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	name := a.cfg.GetString("variable")
	if name == "" {
		return fmt.Errorf("--variable is required")
	}
	a.cfg.Set("variables", []string{name})

	points := runner.Segment(from, to, a.cfg.GetInt("samples"))
	res, err := a.runProbe(path, points)
	if err != nil {
		return err
	}
	comp := a.cfg.GetInt("component")
	if comp >= res.Variables[0].Type.Dim() {
		return fmt.Errorf("variable %s has %d components, asked for %d", name, res.Variables[0].Type.Dim(), comp)
	}

	var runs []XYs
	var cur XYs
	for _, s := range res.Samples {
		if !s.Found || s.Values[0] == nil {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		y := floats.Norm(s.Values[0], 2)
		if comp >= 0 {
			y = s.Values[0][comp]
		}
		cur = append(cur, XY{X: r3.Norm(r3.Sub(s.Position, from)), Y: y})
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	if len(runs) == 0 {
		return fmt.Errorf("segment %v to %v does not cross the mesh", from, to)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s along %v - %v", name, from, to)
	p.X.Label.Text = "distance"
	p.Y.Label.Text = name
	if comp >= 0 {
		p.Y.Label.Text = fmt.Sprintf("%s[%d]", name, comp)
	}
	p.Add(plotter.NewGrid())
	for _, run := range runs {
		l, err := plotter.NewLine(run)
		if err != nil {
			return err
		}
		p.Add(l)
	}
	out := a.cfg.GetString("output")
	w := vg.Length(a.cfg.GetFloat64("width")) * vg.Inch
	h := vg.Length(a.cfg.GetFloat64("height")) * vg.Inch
	if err := p.Save(w, h, out); err != nil {
		return mesh.IOError(out, err)
	}
	a.log.WithField("output", out).Info("saved plot")
	return nil
}
