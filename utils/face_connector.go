package utils

import (
	"fmt"
	"sort"
)

// FaceConnector derives cell-to-cell adjacency for a list of cells that all
// share one topology. Two cell faces are neighbors when they are built from
// the same set of vertex indices, in any order.
type FaceConnector struct {
	NumCells     int
	NodesPerCell int
	Nfaces       int // Faces per cell

	// Neighbors[cell][face] is the adjacent cell, or -1 on the boundary
	Neighbors [][]int

	// BoundaryFaces holds (cell, local face) pairs without a neighbor,
	// sorted by cell then face
	BoundaryFaces [][2]int

	// BoundaryVertices is the sorted union of the boundary face vertices
	BoundaryVertices []int
}

type faceRef struct {
	cell, face int
	verts      []int
}

// NewFaceConnector builds the connectivity of numCells cells stored as
// consecutive runs of nodesPerCell vertex indices. faces lists, per local
// face, the local node numbers forming it.
func NewFaceConnector(nodesPerCell int, indices []int, faces [][]int) (*FaceConnector, error) {
	if nodesPerCell <= 0 {
		return nil, fmt.Errorf("invalid nodes per cell: %d", nodesPerCell)
	}
	if len(indices)%nodesPerCell != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of %d nodes per cell",
			len(indices), nodesPerCell)
	}
	for f, face := range faces {
		for _, n := range face {
			if n < 0 || n >= nodesPerCell {
				return nil, fmt.Errorf("face %d references local node %d, cell has %d nodes",
					f, n, nodesPerCell)
			}
		}
	}

	fc := &FaceConnector{
		NumCells:     len(indices) / nodesPerCell,
		NodesPerCell: nodesPerCell,
		Nfaces:       len(faces),
	}
	fc.Neighbors = make([][]int, fc.NumCells)
	for c := range fc.Neighbors {
		fc.Neighbors[c] = make([]int, fc.Nfaces)
		for f := range fc.Neighbors[c] {
			fc.Neighbors[c][f] = -1
		}
	}
	if fc.Nfaces == 0 {
		return fc, nil
	}

	// Faces are bucketed by the sum of their vertex indices, collisions are
	// resolved by an exact set comparison
	open := make(map[int][]faceRef)
	for c := 0; c < fc.NumCells; c++ {
		cell := indices[c*nodesPerCell : (c+1)*nodesPerCell]
		for f, face := range faces {
			verts := make([]int, len(face))
			hash := 0
			for i, n := range face {
				verts[i] = cell[n]
				hash += cell[n]
			}
			bucket := open[hash]
			matched := -1
			for i, other := range bucket {
				if other.cell != c && sameVertexSet(other.verts, verts) {
					matched = i
					break
				}
			}
			if matched < 0 {
				open[hash] = append(bucket, faceRef{cell: c, face: f, verts: verts})
				continue
			}
			other := bucket[matched]
			fc.Neighbors[c][f] = other.cell
			fc.Neighbors[other.cell][other.face] = c
			open[hash] = append(bucket[:matched], bucket[matched+1:]...)
		}
	}

	vertexSet := make(map[int]struct{})
	for _, bucket := range open {
		for _, ref := range bucket {
			fc.BoundaryFaces = append(fc.BoundaryFaces, [2]int{ref.cell, ref.face})
			for _, v := range ref.verts {
				vertexSet[v] = struct{}{}
			}
		}
	}
	sort.Slice(fc.BoundaryFaces, func(i, j int) bool {
		if fc.BoundaryFaces[i][0] != fc.BoundaryFaces[j][0] {
			return fc.BoundaryFaces[i][0] < fc.BoundaryFaces[j][0]
		}
		return fc.BoundaryFaces[i][1] < fc.BoundaryFaces[j][1]
	})
	fc.BoundaryVertices = make([]int, 0, len(vertexSet))
	for v := range vertexSet {
		fc.BoundaryVertices = append(fc.BoundaryVertices, v)
	}
	sort.Ints(fc.BoundaryVertices)

	return fc, nil
}

// sameVertexSet reports whether every vertex of a appears in b
func sameVertexSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for _, va := range a {
		found := false
		for _, vb := range b {
			if va == vb {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NumInteriorFaces returns the number of matched face pairs
func (fc *FaceConnector) NumInteriorFaces() int {
	return (fc.NumCells*fc.Nfaces - len(fc.BoundaryFaces)) / 2
}

// Verify checks that the neighbor relation is symmetric and that every face
// is either matched or on the boundary
func (fc *FaceConnector) Verify() error {
	for c := 0; c < fc.NumCells; c++ {
		for f := 0; f < fc.Nfaces; f++ {
			nb := fc.Neighbors[c][f]
			if nb < 0 {
				continue
			}
			if nb >= fc.NumCells {
				return fmt.Errorf("cell %d face %d: neighbor %d out of range (max %d)",
					c, f, nb, fc.NumCells-1)
			}
			back := false
			for _, x := range fc.Neighbors[nb] {
				if x == c {
					back = true
					break
				}
			}
			if !back {
				return fmt.Errorf("cell %d face %d: neighbor %d does not point back", c, f, nb)
			}
		}
	}

	matched := 0
	for c := 0; c < fc.NumCells; c++ {
		for f := 0; f < fc.Nfaces; f++ {
			if fc.Neighbors[c][f] >= 0 {
				matched++
			}
		}
	}
	if matched+len(fc.BoundaryFaces) != fc.NumCells*fc.Nfaces {
		return fmt.Errorf("conservation error: %d matched + %d boundary != %d faces",
			matched, len(fc.BoundaryFaces), fc.NumCells*fc.Nfaces)
	}
	return nil
}
