// Package readers loads EnSight Gold case files and their ASCII or C binary
// geometry and variable files into mesh objects.
package readers

import (
	"github.com/notargets/goensight/mesh"
)

// Read loads every time step of the case file at path
func Read(path string) (*mesh.Object, error) {
	return read(path, -1)
}

// ReadStep loads the single time step step of the case file at path into
// a static object carrying the time value of that step
func ReadStep(path string, step int) (*mesh.Object, error) {
	if step < 0 {
		return nil, mesh.Structuralf("time step must be >= 0, got %d", step)
	}
	return read(path, step)
}

type reader struct {
	c      *Case
	ft     FileType
	geo    *source
	counts map[int]map[int]int // Vertex count per part id per file step
}

func read(path string, only int) (*mesh.Object, error) {
	c, err := ParseCaseFile(path)
	if err != nil {
		return nil, err
	}
	return ReadCase(c, only)
}

// ReadCase loads the data files of a parsed case, all steps for a negative
// step
func ReadCase(c *Case, step int) (*mesh.Object, error) {
	n := c.NumSteps()
	if step >= n {
		return nil, mesh.Structuralf("requested time step %d (index %d) but file contains only %d time steps.",
			step+1, step, n)
	}
	steps := []int{step}
	if step < 0 {
		steps = make([]int, n)
		for i := range steps {
			steps[i] = i
		}
	}

	obj := mesh.NewObject()
	if c.Time != nil {
		times := c.Times()
		if step >= 0 {
			times = times[step : step+1]
		}
		if err := obj.SetTransient(times); err != nil {
			return nil, err
		}
	}
	for _, k := range c.Constants {
		if err := obj.AddConstant(k.Name, k.Value); err != nil {
			return nil, err
		}
	}

	first, err := c.Resolve(c.Model, steps[0])
	if err != nil {
		return nil, err
	}
	ft, err := DetectFileType(first)
	if err != nil {
		return nil, err
	}
	rd := &reader{c: c, ft: ft, counts: make(map[int]map[int]int)}
	rd.geo = newSource(c, c.Model, ft, true)
	defer rd.geo.close()

	log := logger().WithField("case", c.Path).WithField("type", ft)
	for objStep, st := range steps {
		g, err := rd.geometry(st)
		if err != nil {
			return nil, err
		}
		if err := applyGeometry(obj, g, objStep); err != nil {
			return nil, err
		}
		log.WithField("step", st).Debugf("geometry with %d parts", len(g.parts))
	}

	for _, ve := range c.Variables {
		if err := obj.CreateVariable(ve.ID.Name, ve.ID.Type); err != nil {
			return nil, err
		}
		src := newSource(c, ve.FileEntry, ft, false)
		for objStep, st := range steps {
			vb, err := rd.variable(src, ve, st)
			if err != nil {
				src.close()
				return nil, err
			}
			if err := applyVariable(obj, ve.ID.Name, vb, objStep); err != nil {
				src.close()
				return nil, err
			}
		}
		src.close()
		log.WithField("variable", ve.ID.Name).Debug("variable read")
	}

	if err := obj.EndEdit(); err != nil {
		return nil, err
	}
	log.WithFields(obj.Fields()).Debug("case read")
	return obj, nil
}

func (rd *reader) geometry(step int) (*geometryBlock, error) {
	var out *geometryBlock
	err := rd.geo.read(step, func(st int) error {
		g, err := rd.geo.geometry()
		if err != nil {
			return err
		}
		rd.counts[st] = g.counts()
		if st == step {
			out = g
		}
		return nil
	})
	return out, err
}

// countsAt returns the part vertex counts of step, reading its geometry
// when it was not seen yet
func (rd *reader) countsAt(step int) (map[int]int, error) {
	if c, ok := rd.counts[step]; ok {
		return c, nil
	}
	if _, err := rd.geometry(step); err != nil {
		return nil, err
	}
	return rd.counts[step], nil
}

func (rd *reader) variable(src *source, ve VariableEntry, step int) (*variableBlock, error) {
	var out *variableBlock
	err := src.read(step, func(st int) error {
		counts, err := rd.countsAt(st)
		if err != nil {
			return err
		}
		v, err := src.variable(ve.ID.Dim(), counts)
		if err != nil {
			return err
		}
		if st == step {
			out = v
		}
		return nil
	})
	return out, err
}
