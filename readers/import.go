package readers

import (
	"fmt"
	"sort"

	gmesh "github.com/notargets/gocfd/DG3D/mesh"
	greaders "github.com/notargets/gocfd/DG3D/mesh/readers"
	gutils "github.com/notargets/gocfd/utils"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/mesh"
)

var importCellTypes = map[gutils.ElementType]element.CellType{
	gutils.Line:     element.Bar,
	gutils.Triangle: element.Triangle,
	gutils.Quad:     element.Quadrangle,
	gutils.Tet:      element.Tetrahedron,
	gutils.Pyramid:  element.Pyramid,
	gutils.Prism:    element.Wedge,
	gutils.Hex:      element.Hexahedron,
}

// Import reads a Gambit (.neu), Gmsh (.msh) or SU2 (.su2) mesh into a
// closed static object
func Import(path string) (*mesh.Object, error) {
	m, err := greaders.ReadMeshFile(path)
	if err != nil {
		return nil, mesh.IOError(path, err)
	}
	return FromMesh(m)
}

// FromMesh converts a mesh into a closed static object with one part per
// element tag. Parts are numbered from 1 in tag order and named after the
// element group of the tag when there is one.
func FromMesh(m *gmesh.Mesh) (*mesh.Object, error) {
	if len(m.EtoV) != len(m.ElementTypes) {
		return nil, mesh.Structuralf("%d element connectivities for %d element types",
			len(m.EtoV), len(m.ElementTypes))
	}
	byTag := make(map[int][]int)
	for e := range m.EtoV {
		tag := 0
		if e < len(m.ElementTags) && len(m.ElementTags[e]) > 0 {
			tag = m.ElementTags[e][0]
		}
		byTag[tag] = append(byTag[tag], e)
	}
	tags := make([]int, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Ints(tags)

	obj := mesh.NewObject()
	for i, tag := range tags {
		name := fmt.Sprintf("tag %d", tag)
		if g, ok := m.ElementGroups[tag]; ok && g != nil && g.Name != "" {
			name = g.Name
		}
		p, err := obj.CreatePart(name, i+1)
		if err != nil {
			return nil, err
		}
		if err := fillPart(p, m, byTag[tag]); err != nil {
			return nil, err
		}
	}
	if err := obj.EndEdit(); err != nil {
		return nil, err
	}
	logger().WithFields(obj.Fields()).Debug("imported mesh")
	return obj, nil
}

// fillPart copies the vertices used by elems, renumbered in order of first
// use, and groups the elements by cell type
func fillPart(p *mesh.Part, m *gmesh.Mesh, elems []int) error {
	local := make(map[int]int)
	var used []int
	cells := make(map[element.CellType][]int)
	for _, e := range elems {
		ct, ok := importCellTypes[m.ElementTypes[e]]
		if !ok {
			return mesh.Structuralf("element %d: unsupported element type %v", e, m.ElementTypes[e])
		}
		if len(m.EtoV[e]) != ct.NumNodes() {
			return mesh.Structuralf("element %d: %d vertices for %s", e, len(m.EtoV[e]), ct)
		}
		for _, v := range m.EtoV[e] {
			if v < 0 || v >= len(m.Vertices) {
				return mesh.Structuralf("element %d references vertex %d of %d", e, v, len(m.Vertices))
			}
			li, seen := local[v]
			if !seen {
				li = len(used)
				local[v] = li
				used = append(used, v)
			}
			cells[ct] = append(cells[ct], li)
		}
	}
	verts := mat.NewDense(3, len(used), nil)
	for j, v := range used {
		for k := 0; k < 3 && k < len(m.Vertices[v]); k++ {
			verts.Set(k, j, m.Vertices[v][k])
		}
	}
	if err := p.SetVertices(0, verts); err != nil {
		return err
	}
	for _, ct := range element.AllCellTypes {
		if idx, ok := cells[ct]; ok {
			if err := p.SetCells(0, ct, idx); err != nil {
				return err
			}
		}
	}
	return nil
}
