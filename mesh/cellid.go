package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/utils"
)

// CellID is a handle to one cell: indices into the owning mesh arenas plus
// the mesh generation it was taken in. Any BeginEdit on the mesh makes
// existing handles stale, Valid reports that.
type CellID struct {
	obj    *Object
	gen    uint64
	part   int // Index into the mesh parts
	step   int
	list   int // Index into the part cell lists of step
	index  int // Cell index within the list
	bounds utils.Bbox
}

// Cell returns a handle to cell index of the list of topology ct in the
// part at partIndex
func (o *Object) Cell(partIndex, step int, ct element.CellType, index int) (CellID, error) {
	if partIndex < 0 || partIndex >= len(o.parts) {
		return CellID{}, fmt.Errorf("part index %d out of range [0, %d)", partIndex, len(o.parts))
	}
	p := o.parts[partIndex]
	for li, cl := range p.Cells(step) {
		if cl.Type() != ct {
			continue
		}
		if index < 0 || index >= cl.Len() {
			return CellID{}, fmt.Errorf("%s cell %d out of range [0, %d) in part %q",
				ct, index, cl.Len(), p.Name)
		}
		return o.newCellID(partIndex, step, li, index), nil
	}
	return CellID{}, fmt.Errorf("part %q has no %s cells at time step %d", p.Name, ct, step)
}

func (o *Object) newCellID(part, step, list, index int) CellID {
	id := CellID{obj: o, gen: o.gen, part: part, step: step, list: list, index: index}
	id.bounds = utils.NewBbox()
	for _, v := range id.Vertices() {
		id.bounds.Extend(v)
	}
	return id
}

// Valid reports whether the handle still refers to the mesh state it was
// taken from
func (c CellID) Valid() bool {
	return c.obj != nil && c.gen == c.obj.gen
}

func (c CellID) Part() *Part         { return c.obj.parts[c.part] }
func (c CellID) PartIndex() int      { return c.part }
func (c CellID) Step() int           { return c.step }
func (c CellID) Index() int          { return c.index }
func (c CellID) CellList() *CellList { return c.Part().cells[c.step][c.list] }

func (c CellID) Type() element.CellType { return c.CellList().Type() }

// Nodes returns the part vertex indices of the cell in local order
func (c CellID) Nodes() []int { return c.CellList().Cell(c.index) }

// Vertices returns the cell vertex coordinates in local order
func (c CellID) Vertices() []r3.Vec {
	p := c.Part()
	nodes := c.Nodes()
	out := make([]r3.Vec, len(nodes))
	for i, n := range nodes {
		out[i] = p.Vertex(c.step, n)
	}
	return out
}

// Bounds returns the tight box around the cell vertices
func (c CellID) Bounds() utils.Bbox { return c.bounds }

// Centroid returns the mean of the cell vertices
func (c CellID) Centroid() r3.Vec {
	var sum r3.Vec
	verts := c.Vertices()
	for _, v := range verts {
		sum = r3.Add(sum, v)
	}
	return r3.Scale(1/float64(len(verts)), sum)
}

// Volume returns length, area or volume depending on the cell dimension
func (c CellID) Volume() float64 {
	return element.Volume(c.Type(), c.Vertices())
}

// Barycentric computes the coordinates of pos with respect to the cell
func (c CellID) Barycentric(pos r3.Vec, ignore2d bool) (element.Barycentric, error) {
	return element.Compute(c.Type(), c.Vertices(), pos, ignore2d)
}

// Locate reports whether pos is inside the cell within element.InsideTolerance
func (c CellID) Locate(pos r3.Vec, ignore2d bool) bool {
	b, err := c.Barycentric(pos, ignore2d)
	return err == nil && b.IsInside()
}

// Evaluate interpolates variable name of the cell's part and step with the
// given coordinates
func (c CellID) Evaluate(b element.Barycentric, name string) ([]float64, error) {
	v := c.Part().Variable(name, c.step)
	if v == nil {
		return nil, fmt.Errorf("variable %q not set on part %q at time step %d",
			name, c.Part().Name, c.step)
	}
	return b.Evaluate(v.Values(), c.Nodes()), nil
}

// Values returns the Dim x M values of variable name at the cell nodes, nil
// when not set
func (c CellID) Values(name string) *mat.Dense {
	v := c.Part().Variable(name, c.step)
	if v == nil {
		return nil
	}
	nodes := c.Nodes()
	out := mat.NewDense(v.Dim(), len(nodes), nil)
	for j, n := range nodes {
		out.SetCol(j, v.Value(n))
	}
	return out
}

func (c CellID) String() string {
	if c.obj == nil {
		return "CellID{}"
	}
	return fmt.Sprintf("CellID{part: %q, step: %d, %s #%d}",
		c.Part().Name, c.step, c.Type(), c.index)
}
