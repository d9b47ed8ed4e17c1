package element

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Volume returns the measure of a cell: 0 for points, length for bars, area
// for 2D cells and volume for 3D cells. Pyramids and wedges are summed from
// tetrahedra, hexahedra are taken as the parallelepiped spanned at node 0.
func Volume(ct CellType, v []r3.Vec) float64 {
	if len(v) != ct.NumNodes() {
		return 0
	}
	switch ct {
	case Bar:
		return r3.Norm(r3.Sub(v[1], v[0]))
	case Triangle:
		return r3.Norm(r3.Cross(r3.Sub(v[1], v[0]), r3.Sub(v[2], v[0]))) / 2
	case Quadrangle:
		return r3.Norm(r3.Cross(r3.Sub(v[3], v[0]), r3.Sub(v[1], v[0])))
	case Tetrahedron:
		return tetVolume(v[0], v[3], v[1], v[2])
	case Pyramid:
		return tetVolume(v[0], v[4], v[1], v[3]) + tetVolume(v[2], v[4], v[3], v[1])
	case Wedge:
		return tetVolume(v[0], v[1], v[2], v[3]) +
			tetVolume(v[5], v[1], v[3], v[2]) +
			tetVolume(v[4], v[3], v[5], v[1])
	case Hexahedron:
		return 6 * tetVolume(v[0], v[4], v[1], v[3])
	}
	return 0
}

// tetVolume is |P.(QxR)|/6 with P, Q, R measured from o
func tetVolume(o, p, q, r r3.Vec) float64 {
	P, Q, R := r3.Sub(p, o), r3.Sub(q, o), r3.Sub(r, o)
	return math.Abs(r3.Dot(P, r3.Cross(Q, R))) / 6
}
