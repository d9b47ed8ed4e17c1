package element

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// InsideTolerance is the lower bound every coordinate must exceed (as its
// negative) for a point to count as inside a cell. Points slightly outside a
// cell are accepted so that points on a face shared by two cells are never
// rejected by both.
const InsideTolerance = 5e-2

// Barycentric holds the coordinates of a point with respect to one cell.
// Coords has one weight per cell vertex in local order and sums to one.
type Barycentric struct {
	Coords   []float64
	Pos      r3.Vec
	computed bool
}

// IsValid reports whether the coordinates were computed. Points and bars are
// never computed, neither are 2D cells when they were ignored.
func (b Barycentric) IsValid() bool { return b.computed }

// IsInside reports whether every coordinate is above -InsideTolerance
func (b Barycentric) IsInside() bool {
	if !b.computed {
		return false
	}
	for _, c := range b.Coords {
		if !(c > -InsideTolerance) {
			return false
		}
	}
	return true
}

// Compute returns the barycentric coordinates of pos in the cell of type ct
// spanned by verts (local order). 2D cells are assumed to lie in a plane of
// constant Z; when ignore2d is set they are not computed at all, which is
// what 3D geometry needs.
func Compute(ct CellType, verts []r3.Vec, pos r3.Vec, ignore2d bool) (Barycentric, error) {
	if !ct.IsValid() {
		return Barycentric{}, fmt.Errorf("invalid cell type %d", ct)
	}
	if len(verts) != ct.NumNodes() {
		return Barycentric{}, fmt.Errorf("%s needs %d vertices, got %d", ct, ct.NumNodes(), len(verts))
	}
	s := solver{
		verts:  verts,
		pos:    pos,
		coords: make([]float64, len(verts)),
	}
	local := make([]int, len(verts))
	for i := range local {
		local[i] = i
	}

	switch ct {
	case Tetrahedron:
		s.tetra(local)
	case Pyramid:
		s.pyramid(local)
	case Wedge:
		s.wedge(local)
	case Hexahedron:
		s.hexa(local)
	case Triangle:
		if ignore2d {
			return Barycentric{Coords: s.coords, Pos: pos}, nil
		}
		s.tri(local)
	case Quadrangle:
		if ignore2d {
			return Barycentric{Coords: s.coords, Pos: pos}, nil
		}
		s.quad(local)
	default:
		return Barycentric{Coords: s.coords, Pos: pos}, nil
	}
	return Barycentric{Coords: s.coords, Pos: pos, computed: true}, nil
}

// Evaluate interpolates data (dim x vertexCount, one column per part vertex)
// at the point. nodes are the part vertex indices of the cell in local order.
// An invalid coordinate set evaluates to zeros.
func (b Barycentric) Evaluate(data mat.Matrix, nodes []int) []float64 {
	dim, _ := data.Dims()
	value := make([]float64, dim)
	if !b.computed {
		return value
	}
	for i, w := range b.Coords {
		for r := 0; r < dim; r++ {
			value[r] += w * data.At(r, nodes[i])
		}
	}
	return value
}

// Reproduces checks that the weighted cell vertices give back the point
func (b Barycentric) Reproduces(verts []r3.Vec, tol float64) bool {
	if !b.computed || len(verts) != len(b.Coords) {
		return false
	}
	var p r3.Vec
	for i, w := range b.Coords {
		p = r3.Add(p, r3.Scale(w, verts[i]))
	}
	return r3.Norm(r3.Sub(p, b.Pos)) < tol
}

// BlendUnsteady interpolates linearly in time between value0 at t0 and
// value1 at t1. When only one side is valid it is returned unchanged.
func BlendUnsteady(value0, value1 []float64, valid0, valid1 bool, t0, t1, t float64) ([]float64, error) {
	switch {
	case valid0 && valid1:
		if len(value0) != len(value1) {
			return nil, fmt.Errorf("value dimensions differ: %d != %d", len(value0), len(value1))
		}
		lambda := 1.0
		if t1 != t0 {
			lambda = (t1 - t) / (t1 - t0)
		}
		out := make([]float64, len(value0))
		for i := range out {
			out[i] = lambda*value0[i] + (1-lambda)*value1[i]
		}
		return out, nil
	case valid0:
		return append([]float64(nil), value0...), nil
	case valid1:
		return append([]float64(nil), value1...), nil
	}
	return nil, fmt.Errorf("no valid value to interpolate at time %g", t)
}

// solver writes coordinates of sub cells back to the parent cell slots.
// Every sub cell is given as a list of parent local node numbers.
type solver struct {
	verts  []r3.Vec
	pos    r3.Vec
	coords []float64
}

func (s *solver) tetra(sub []int) {
	v0 := s.verts[sub[0]]
	q2 := r3.Sub(s.verts[sub[1]], v0)
	q3 := r3.Sub(s.verts[sub[2]], v0)
	q4 := r3.Sub(s.verts[sub[3]], v0)
	d := r3.Sub(s.pos, v0)

	det := r3.Dot(q2, r3.Cross(q3, q4))
	l1 := r3.Dot(d, r3.Cross(q3, q4)) / det
	l2 := r3.Dot(d, r3.Cross(q4, q2)) / det
	l3 := r3.Dot(d, r3.Cross(q2, q3)) / det

	s.coords[sub[1]] = l1
	s.coords[sub[2]] = l2
	s.coords[sub[3]] = l3
	s.coords[sub[0]] = 1 - l1 - l2 - l3
}

// Split by the plane through base nodes 0, 2 and the apex
func (s *solver) pyramid(sub []int) {
	if s.sameSideOfPlane(sub[3], sub[0], sub[2], sub[4]) {
		s.tetra(pick(sub, 0, 2, 3, 4))
	} else {
		s.tetra(pick(sub, 0, 1, 2, 4))
	}
}

// Split by the plane through nodes 0, 1, 5 into a tet and a pyramid
func (s *solver) wedge(sub []int) {
	if s.sameSideOfPlane(sub[2], sub[0], sub[1], sub[5]) {
		s.tetra(pick(sub, 0, 1, 2, 5))
	} else {
		s.pyramid(pick(sub, 3, 4, 1, 0, 5))
	}
}

// Split into two tets and two pyramids sharing the diagonal 1-7
func (s *solver) hexa(sub []int) {
	if s.sameSideOfPlane(sub[6], sub[1], sub[5], sub[7]) {
		if s.sameSideOfPlane(sub[5], sub[1], sub[6], sub[7]) {
			s.tetra(pick(sub, 1, 6, 7, 5))
			return
		}
	} else if s.sameSideOfPlane(sub[5], sub[1], sub[7], sub[4]) {
		s.tetra(pick(sub, 1, 7, 4, 5))
		return
	}

	if s.sameSideOfPlane(sub[2], sub[1], sub[7], sub[3]) {
		s.pyramid(pick(sub, 3, 2, 6, 7, 1))
	} else {
		s.pyramid(pick(sub, 0, 3, 7, 4, 1))
	}
}

func (s *solver) tri(sub []int) {
	a := s.verts[sub[0]]
	v0 := r3.Sub(s.verts[sub[1]], a)
	v1 := r3.Sub(s.verts[sub[2]], a)
	v2 := r3.Sub(s.pos, a)

	d00 := r3.Dot(v0, v0)
	d01 := r3.Dot(v0, v1)
	d11 := r3.Dot(v1, v1)
	d20 := r3.Dot(v2, v0)
	d21 := r3.Dot(v2, v1)
	denom := d00*d11 - d01*d01

	l1 := (d11*d20 - d01*d21) / denom
	l2 := (d00*d21 - d01*d20) / denom
	s.coords[sub[1]] = l1
	s.coords[sub[2]] = l2
	s.coords[sub[0]] = 1 - l1 - l2
}

// Split by the diagonal 0-2
func (s *solver) quad(sub []int) {
	if s.sameSideOfLine(sub[3], sub[0], sub[2]) {
		s.tri(pick(sub, 0, 2, 3))
	} else {
		s.tri(pick(sub, 0, 1, 2))
	}
}

// sameSideOfPlane reports whether the query point lies on the same side of
// the plane through a, b, c as the vertex ref. Points on the plane count as
// the positive side.
func (s *solver) sameSideOfPlane(ref, a, b, c int) bool {
	v0, v1, v2 := s.verts[a], s.verts[b], s.verts[c]
	n := r3.Cross(r3.Sub(v0, v1), r3.Sub(v2, v1))
	return (r3.Dot(n, r3.Sub(s.pos, v0)) >= 0) == (r3.Dot(n, r3.Sub(s.verts[ref], v0)) >= 0)
}

// sameSideOfLine is the XY plane version of sameSideOfPlane for the line a-b
func (s *solver) sameSideOfLine(ref, a, b int) bool {
	v0 := s.verts[a]
	diag := r3.Sub(s.verts[b], v0)
	n := r3.Vec{X: -diag.Y, Y: diag.X}
	return (r3.Dot(n, r3.Sub(s.pos, v0)) >= 0) == (r3.Dot(n, r3.Sub(s.verts[ref], v0)) >= 0)
}

func pick(sub []int, idx ...int) []int {
	out := make([]int, len(idx))
	for i, k := range idx {
		out[i] = sub[k]
	}
	return out
}
