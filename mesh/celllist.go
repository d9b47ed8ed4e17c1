package mesh

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/utils"
)

// CellList is an immutable list of cells sharing one topology. Indices are
// 0-based into the owning part's vertices for the same time step. Neighbors
// and boundaries are derived once, on construction.
type CellList struct {
	cellType element.CellType
	indices  []int
	conn     *utils.FaceConnector
}

// NewCellList copies indices, stored cell after cell with NumNodes entries
// each, and derives the face connectivity
func NewCellList(ct element.CellType, indices []int) (*CellList, error) {
	if !ct.IsValid() {
		return nil, Structuralf("invalid cell type %d", ct)
	}
	m := ct.NumNodes()
	if len(indices)%m != 0 {
		return nil, Structuralf("%d indices is not a multiple of %d nodes per %s cell",
			len(indices), m, ct)
	}
	cl := &CellList{
		cellType: ct,
		indices:  append([]int(nil), indices...),
	}
	conn, err := utils.NewFaceConnector(m, cl.indices, ct.Faces())
	if err != nil {
		return nil, Structuralf("%s cells: %v", ct, err)
	}
	cl.conn = conn
	return cl, nil
}

// NewCellListFromMatrix takes an M x N index matrix, one column per cell
func NewCellListFromMatrix(ct element.CellType, m mat.Matrix) (*CellList, error) {
	if !ct.IsValid() {
		return nil, Structuralf("invalid cell type %d", ct)
	}
	r, c := m.Dims()
	if r != ct.NumNodes() {
		return nil, Structuralf("%s cells need %d rows, got %d", ct, ct.NumNodes(), r)
	}
	indices := make([]int, 0, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			indices = append(indices, int(m.At(i, j)))
		}
	}
	return NewCellList(ct, indices)
}

func (cl *CellList) Type() element.CellType { return cl.cellType }

// Len returns the number of cells
func (cl *CellList) Len() int { return len(cl.indices) / cl.cellType.NumNodes() }

// Cell returns the vertex indices of cell i, sharing storage with the list
func (cl *CellList) Cell(i int) []int {
	m := cl.cellType.NumNodes()
	return cl.indices[i*m : (i+1)*m : (i+1)*m]
}

// Indices returns all indices cell after cell, sharing storage
func (cl *CellList) Indices() []int { return cl.indices }

// Matrix returns the M x N index matrix as floats, for viewers
func (cl *CellList) Matrix() *mat.Dense {
	m, n := cl.cellType.NumNodes(), cl.Len()
	if n == 0 {
		return nil
	}
	out := mat.NewDense(m, n, nil)
	for j := 0; j < n; j++ {
		for i, v := range cl.Cell(j) {
			out.Set(i, j, float64(v))
		}
	}
	return out
}

// MinMaxIndex returns the smallest and largest vertex index in use, (0, -1)
// when the list is empty
func (cl *CellList) MinMaxIndex() (min, max int) {
	if len(cl.indices) == 0 {
		return 0, -1
	}
	min, max = cl.indices[0], cl.indices[0]
	for _, v := range cl.indices[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Neighbors returns, per cell and local face, the adjacent cell or -1
func (cl *CellList) Neighbors() [][]int { return cl.conn.Neighbors }

// BoundaryFaces returns (cell, local face) pairs without a neighbor
func (cl *CellList) BoundaryFaces() [][2]int { return cl.conn.BoundaryFaces }

// BoundaryVertices returns the sorted vertex indices on boundary faces
func (cl *CellList) BoundaryVertices() []int { return cl.conn.BoundaryVertices }

// Connectivity exposes the face connector the list was built with
func (cl *CellList) Connectivity() *utils.FaceConnector { return cl.conn }
