package readers

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/mesh"
)

// Node and element id handling of a geometry header
type idMode uint8

const (
	idOff idMode = iota
	idGiven
	idAssign
	idIgnore
)

// present reports whether explicit ids follow counts in the file
func (m idMode) present() bool { return m == idGiven || m == idIgnore }

func parseIDMode(line, what string) (idMode, error) {
	fields := map[string]idMode{"off": idOff, "given": idGiven, "assign": idAssign, "ignore": idIgnore}
	if rest, ok := strings.CutPrefix(line, what+" id "); ok {
		if m, ok := fields[strings.TrimSpace(rest)]; ok {
			return m, nil
		}
	}
	return idOff, mesh.Parsef("invalid %s id line %q", what, line)
}

// Decoded geometry of one time step, before it is applied to an object
type geometryBlock struct {
	parts []*partBlock
}

type partBlock struct {
	id       int
	name     string
	vertices *mat.Dense
	cells    []cellBlock
}

type cellBlock struct {
	cellType element.CellType
	indices  []int // zero based
}

// counts returns the vertex count per part id
func (g *geometryBlock) counts() map[int]int {
	out := make(map[int]int, len(g.parts))
	for _, p := range g.parts {
		out[p.id] = 0
		if p.vertices != nil {
			_, out[p.id] = p.vertices.Dims()
		}
	}
	return out
}

// Decoded values of one variable at one time step
type variableBlock struct {
	parts []partValues
}

type partValues struct {
	id     int
	values *mat.Dense // nil for parts without vertices
}

// applyGeometry creates the parts of g at step 0, later steps must repeat
// the parts by name and id
func applyGeometry(obj *mesh.Object, g *geometryBlock, step int) error {
	for _, pb := range g.parts {
		var p *mesh.Part
		if step == 0 {
			var err error
			if p, err = obj.CreatePart(pb.name, pb.id); err != nil {
				return err
			}
		} else {
			p = obj.PartByName(pb.name)
			if p == nil || p.ID != pb.id {
				return mesh.Structuralf("mismatch between time steps and part name / id for part %q (id %d) at step %d",
					pb.name, pb.id, step)
			}
		}
		if pb.vertices != nil {
			if err := p.SetVertices(step, pb.vertices); err != nil {
				return err
			}
		}
		for _, cb := range pb.cells {
			if err := p.SetCells(step, cb.cellType, cb.indices); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyVariable(obj *mesh.Object, name string, v *variableBlock, step int) error {
	for _, pv := range v.parts {
		p := obj.PartByID(pv.id)
		if p == nil {
			return mesh.Structuralf("variable %q references unknown part id %d", name, pv.id)
		}
		if pv.values == nil {
			continue
		}
		if err := p.SetVariable(step, name, pv.values); err != nil {
			return err
		}
	}
	return nil
}
