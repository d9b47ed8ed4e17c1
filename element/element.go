package element

import (
	"fmt"
	"strings"
)

// Dimensionality represents the spatial dimension of a cell
type Dimensionality uint8

const (
	D0 Dimensionality = iota // points
	D1                       // bars
	D2                       // triangles, quadrangles
	D3                       // tetrahedra, pyramids, wedges, hexahedra
)

// CellType identifies the topology of a cell
type CellType uint8

const (
	Point CellType = iota
	Bar
	Triangle
	Quadrangle
	Tetrahedron
	Pyramid
	Wedge
	Hexahedron

	NumCellTypes = 8
)

// CellProperties describes one cell topology
type CellProperties struct {
	Name       string
	Keyword    string // Token in geometry files
	NumNodes   int
	Faces      [][]int // Local nodes of each face, edges for 2D cells
	Dimensions Dimensionality
}

var cellTable = [NumCellTypes]CellProperties{
	Point: {
		Name: "Point", Keyword: "point", NumNodes: 1, Dimensions: D0,
	},
	Bar: {
		Name: "Bar", Keyword: "bar2", NumNodes: 2, Dimensions: D1,
	},
	Triangle: {
		Name: "Triangle", Keyword: "tria3", NumNodes: 3, Dimensions: D2,
		Faces: [][]int{{0, 1}, {1, 2}, {2, 0}},
	},
	Quadrangle: {
		Name: "Quadrangle", Keyword: "quad4", NumNodes: 4, Dimensions: D2,
		Faces: [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
	},
	Tetrahedron: {
		Name: "Tetrahedron", Keyword: "tetra4", NumNodes: 4, Dimensions: D3,
		Faces: [][]int{{0, 1, 2}, {0, 3, 1}, {2, 3, 0}, {1, 3, 2}},
	},
	Pyramid: {
		Name: "Pyramid", Keyword: "pyramid5", NumNodes: 5, Dimensions: D3,
		Faces: [][]int{{0, 1, 2, 3}, {0, 4, 1}, {1, 4, 2}, {2, 4, 3}, {3, 4, 0}},
	},
	Wedge: {
		Name: "Wedge", Keyword: "penta6", NumNodes: 6, Dimensions: D3,
		Faces: [][]int{{0, 1, 2}, {3, 5, 4}, {0, 3, 4, 1}, {1, 4, 5, 2}, {2, 5, 3, 0}},
	},
	Hexahedron: {
		Name: "Hexahedron", Keyword: "hexa8", NumNodes: 8, Dimensions: D3,
		Faces: [][]int{{0, 1, 2, 3}, {4, 7, 6, 5}, {0, 4, 5, 1}, {6, 7, 3, 2}, {5, 6, 2, 1}, {7, 4, 0, 3}},
	},
}

// AllCellTypes lists the topologies in file order
var AllCellTypes = [NumCellTypes]CellType{
	Point, Bar, Triangle, Quadrangle, Tetrahedron, Pyramid, Wedge, Hexahedron,
}

// IsValid reports whether c is one of the eight supported topologies
func (c CellType) IsValid() bool { return c < NumCellTypes }

// Properties returns the topology description of c
func (c CellType) Properties() CellProperties {
	if !c.IsValid() {
		panic(fmt.Sprintf("invalid cell type %d", c))
	}
	return cellTable[c]
}

func (c CellType) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("CellType(%d)", c)
	}
	return cellTable[c].Name
}

// Keyword returns the geometry file token for c, e.g. "hexa8"
func (c CellType) Keyword() string { return c.Properties().Keyword }

// NumNodes returns the number of vertices of one cell
func (c CellType) NumNodes() int { return c.Properties().NumNodes }

// NumFaces returns the number of faces (edges for 2D cells)
func (c CellType) NumFaces() int { return len(c.Properties().Faces) }

// Faces returns the local node lists of all faces
func (c CellType) Faces() [][]int { return c.Properties().Faces }

// Dimensions returns the topological dimension of c
func (c CellType) Dimensions() Dimensionality { return c.Properties().Dimensions }

// CellTypeFromKeyword maps a geometry file token to its topology
func CellTypeFromKeyword(keyword string) (CellType, bool) {
	keyword = strings.TrimSpace(keyword)
	for i := range cellTable {
		if cellTable[i].Keyword == keyword {
			return CellType(i), true
		}
	}
	return 0, false
}
