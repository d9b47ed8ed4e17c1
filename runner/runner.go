// Package runner evaluates mesh variables at batches of probe positions,
// spreading the point location and interpolation work over goroutines.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goensight/mesh"
	"github.com/notargets/goensight/spatial"
)

// Runner probes a closed object. The object must not be edited while a
// Run is in progress.
type Runner struct {
	obj  *mesh.Object
	cfg  Config
	vars []mesh.VariableID
	log  logrus.FieldLogger
}

// NewRunner checks the configuration against obj and builds the
// subdivision tree with default options when obj has no valid one
func NewRunner(obj *mesh.Object, cfg Config) (*Runner, error) {
	if obj.IsEditing() {
		return nil, fmt.Errorf("runner needs a closed object: %w", mesh.ErrEditing)
	}
	r := &Runner{obj: obj, cfg: cfg, log: mesh.Logger().WithField("component", "runner")}
	if len(cfg.Variables) == 0 {
		r.vars = obj.Variables()
	}
	for _, name := range cfg.Variables {
		id, ok := obj.Variable(name)
		if !ok {
			return nil, mesh.Structuralf("variable %q not defined", name)
		}
		r.vars = append(r.vars, id)
	}
	if !obj.SubdivTree().Valid(obj) {
		if err := obj.CreateSubdivTree(spatial.DefaultOptions()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Variables returns the variables every sample carries, in order
func (r *Runner) Variables() []mesh.VariableID { return r.vars }

// Run probes every point. Points outside the mesh are reported with Found
// false; any other failure cancels the remaining work.
func (r *Runner) Run(ctx context.Context, points []r3.Vec) (*Result, error) {
	res := &Result{
		Variables: r.vars,
		Samples:   make([]Sample, len(points)),
	}
	workers := r.cfg.workers(len(points))
	chunk := (len(points) + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(points); start += chunk {
		end := min(start+chunk, len(points))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				s, err := r.probe(points[i])
				if err != nil {
					return fmt.Errorf("point %d %v: %w", i, points[i], err)
				}
				res.Samples[i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, s := range res.Samples {
		if s.Found {
			res.Found++
		}
	}
	res.summarize()
	r.log.WithFields(logrus.Fields{
		"points":  len(points),
		"found":   res.Found,
		"workers": workers,
	}).Debug("probe run complete")
	return res, nil
}

func (r *Runner) probe(pos r3.Vec) (Sample, error) {
	s := Sample{Position: pos}
	cell, b, err := r.obj.Interpolate(pos)
	if errors.Is(err, mesh.ErrNoCell) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	s.Found, s.Cell = true, cell
	s.Values = make([][]float64, len(r.vars))
	for vi, id := range r.vars {
		v, err := r.obj.EvaluateVariable(cell, b, pos, id.Name, r.cfg.Time)
		if err != nil {
			// Variable missing on the containing part
			r.log.WithField("variable", id.Name).Debugf("no value at %v: %v", pos, err)
			continue
		}
		s.Values[vi] = v
	}
	return s, nil
}
