package mesh

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/utils"
)

// Part is a named, numbered sub mesh. Vertices, cells and variables are
// kept per time step, indexed directly by the step.
type Part struct {
	Name string
	ID   int

	owner     *Object
	vertices  []*mat.Dense // 3 x N per step, nil when unset
	bounds    []utils.Bbox
	cells     [][]*CellList
	variables [][]*Variable
}

func newPart(owner *Object, name string, id, steps int) *Part {
	p := &Part{Name: name, ID: id, owner: owner}
	p.resize(steps)
	return p
}

func (p *Part) resize(steps int) {
	grow := func(n int) int {
		if n > steps {
			return steps
		}
		return n
	}
	vertices := make([]*mat.Dense, steps)
	bounds := make([]utils.Bbox, steps)
	cells := make([][]*CellList, steps)
	variables := make([][]*Variable, steps)
	copy(vertices, p.vertices[:grow(len(p.vertices))])
	copy(bounds, p.bounds[:grow(len(p.bounds))])
	copy(cells, p.cells[:grow(len(p.cells))])
	copy(variables, p.variables[:grow(len(p.variables))])
	for i := len(p.bounds); i < steps; i++ {
		bounds[i] = utils.NewBbox()
	}
	p.vertices, p.bounds, p.cells, p.variables = vertices, bounds, cells, variables
}

// NumTimesteps returns the number of steps the part holds slots for
func (p *Part) NumTimesteps() int { return len(p.vertices) }

func (p *Part) checkMutation(op string, step int) error {
	if p.owner != nil && !p.owner.editing {
		return fmt.Errorf("%s: %w", op, ErrNotEditing)
	}
	if step < 0 {
		return Structuralf("%s: time step must be >= 0, for static data use 0", op)
	}
	if step >= p.NumTimesteps() {
		return Structuralf("%s: time step %d is not defined for part %q", op, step, p.Name)
	}
	return nil
}

// SetVertices copies a 3 x N coordinate matrix for step. A part without
// vertices at step is left unset.
func (p *Part) SetVertices(step int, vertices mat.Matrix) error {
	if err := p.checkMutation("SetVertices", step); err != nil {
		return err
	}
	if vertices == nil {
		return Structuralf("SetVertices: the matrix must be 3xN, leave an empty part unset")
	}
	if r, c := vertices.Dims(); r != 3 || c == 0 {
		return Structuralf("SetVertices: the matrix must be 3xN, got %dx%d", r, c)
	}
	v := mat.DenseCopyOf(vertices)
	_, n := v.Dims()
	b := utils.NewBbox()
	for i := 0; i < n; i++ {
		b.Extend(r3.Vec{X: v.At(0, i), Y: v.At(1, i), Z: v.At(2, i)})
	}
	p.vertices[step] = v
	p.bounds[step] = b
	return nil
}

// SetCells registers a cell list for step, at most one per topology
func (p *Part) SetCells(step int, ct element.CellType, indices []int) error {
	if err := p.checkMutation("SetCells", step); err != nil {
		return err
	}
	if p.HasCellType(ct, step) {
		return Structuralf("SetCells: part %q has %s cells already defined for time step %d",
			p.Name, ct, step)
	}
	cl, err := NewCellList(ct, indices)
	if err != nil {
		return fmt.Errorf("SetCells: %w", err)
	}
	p.cells[step] = append(p.cells[step], cl)
	return nil
}

// SetVariable stores values (Dim x N) of a declared variable for step. An
// empty matrix is accepted and stores nothing.
func (p *Part) SetVariable(step int, name string, values mat.Matrix) error {
	if err := p.checkMutation("SetVariable", step); err != nil {
		return err
	}
	if p.owner == nil {
		return Structuralf("SetVariable: part %q belongs to no mesh", p.Name)
	}
	id, ok := p.owner.Variable(name)
	if !ok {
		return Structuralf("SetVariable: variable %q is not defined, call CreateVariable first", name)
	}
	if id.Type == ConstantPerCase {
		return Structuralf("SetVariable: %q is a constant, use AddConstant", name)
	}
	if values == nil {
		return nil
	}
	r, c := values.Dims()
	if r != id.Dim() {
		return Structuralf("SetVariable: variable %q of type %s needs %d values per node, got %d",
			name, id.Type, id.Dim(), r)
	}
	if p.HasVariable(name, step) {
		return Structuralf("SetVariable: part %q already has variable %q for time step %d",
			p.Name, name, step)
	}
	if c == 0 {
		return nil
	}
	v, err := NewVariable(id, values)
	if err != nil {
		return err
	}
	p.variables[step] = append(p.variables[step], v)
	return nil
}

// Clean drops vertices, cells and variables of step
func (p *Part) Clean(step int) {
	if step < 0 || step >= p.NumTimesteps() {
		return
	}
	p.vertices[step] = nil
	p.bounds[step] = utils.NewBbox()
	p.cells[step] = nil
	p.variables[step] = nil
}

// Vertices returns the 3 x N coordinates of step, nil when none were set
func (p *Part) Vertices(step int) *mat.Dense {
	if step < 0 || step >= p.NumTimesteps() {
		return nil
	}
	return p.vertices[step]
}

// VertexCount returns N of the vertex matrix of step
func (p *Part) VertexCount(step int) int {
	v := p.Vertices(step)
	if v == nil {
		return 0
	}
	_, n := v.Dims()
	return n
}

// Vertex returns vertex i of step
func (p *Part) Vertex(step, i int) r3.Vec {
	v := p.vertices[step]
	return r3.Vec{X: v.At(0, i), Y: v.At(1, i), Z: v.At(2, i)}
}

// Cells returns the cell lists of step in registration order
func (p *Part) Cells(step int) []*CellList {
	if step < 0 || step >= p.NumTimesteps() {
		return nil
	}
	return p.cells[step]
}

// CellList returns the list of topology ct at step, nil if absent
func (p *Part) CellList(step int, ct element.CellType) *CellList {
	for _, cl := range p.Cells(step) {
		if cl.Type() == ct {
			return cl
		}
	}
	return nil
}

// HasCellType reports whether cells of ct exist at step, any step for -1
func (p *Part) HasCellType(ct element.CellType, step int) bool {
	if step >= 0 {
		return p.CellList(step, ct) != nil
	}
	for s := range p.cells {
		if p.CellList(s, ct) != nil {
			return true
		}
	}
	return false
}

// NumCells returns the number of cells of all topologies at step
func (p *Part) NumCells(step int) int {
	n := 0
	for _, cl := range p.Cells(step) {
		n += cl.Len()
	}
	return n
}

// Variables returns the variables set at step
func (p *Part) Variables(step int) []*Variable {
	if step < 0 || step >= p.NumTimesteps() {
		return nil
	}
	return p.variables[step]
}

// Variable returns the variable name at step, nil if not set
func (p *Part) Variable(name string, step int) *Variable {
	for _, v := range p.Variables(step) {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// HasVariable reports whether name is set at step, any step for -1
func (p *Part) HasVariable(name string, step int) bool {
	if step >= 0 {
		return p.Variable(name, step) != nil
	}
	for s := range p.variables {
		if p.Variable(name, s) != nil {
			return true
		}
	}
	return false
}

// GeometryBounds returns the vertex bounds of step, of all steps for -1
func (p *Part) GeometryBounds(step int) utils.Bbox {
	if step >= 0 {
		if step >= p.NumTimesteps() {
			return utils.NewBbox()
		}
		return p.bounds[step]
	}
	b := utils.NewBbox()
	for _, sb := range p.bounds {
		b.ExtendBox(sb)
	}
	return b
}

// VariableBounds returns the bounds of name at step, combined over all steps
// for -1. Nil when the variable is not set.
func (p *Part) VariableBounds(name string, step int) *mat.Dense {
	if step >= 0 {
		v := p.Variable(name, step)
		if v == nil {
			return nil
		}
		return mat.DenseCopyOf(v.Bounds())
	}
	var acc *mat.Dense
	for s := range p.variables {
		if v := p.Variable(name, s); v != nil {
			acc = mergeBounds(acc, v.Bounds())
		}
	}
	return acc
}

// validate checks cell indices and variable sizes of every step
func (p *Part) validate(ids []VariableID) error {
	for step := range p.vertices {
		n := p.VertexCount(step)
		for _, cl := range p.cells[step] {
			lo, hi := cl.MinMaxIndex()
			if cl.Len() == 0 {
				continue
			}
			if lo < 0 {
				return Structuralf("referencing vertex with index %d in part %q at time step %d for %s cells",
					lo, p.Name, step, cl.Type())
			}
			if hi >= n {
				return Structuralf("referencing vertex with index %d in part %q at time step %d for %s cells, part has %d vertices",
					hi, p.Name, step, cl.Type(), n)
			}
		}
		for _, id := range ids {
			v := p.Variable(id.Name, step)
			if v == nil {
				continue
			}
			if v.Len() != n {
				return Structuralf("variable %q in part %q at time step %d: %d vertices, %d values",
					id.Name, p.Name, step, n, v.Len())
			}
		}
	}
	return nil
}

func (p *Part) print(w io.Writer) {
	fmt.Fprintf(w, "Part %q, id=%d\n", p.Name, p.ID)
	for step := range p.vertices {
		fmt.Fprintf(w, "  T=%d: %d vertices, bounds %v\n", step, p.VertexCount(step), p.bounds[step])
		for _, cl := range p.cells[step] {
			fmt.Fprintf(w, "    cells %-8s %d\n", cl.Type().Keyword(), cl.Len())
		}
		for _, v := range p.variables[step] {
			b := v.Bounds()
			fmt.Fprintf(w, "    variable %s (dim=%d) range [%g, %g]\n",
				v.Name, v.Dim(), b.At(0, 0), b.At(0, 1))
		}
	}
}
