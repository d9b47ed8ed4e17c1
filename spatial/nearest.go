package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ kdtree.Interface  = centroids{}
	_ kdtree.Comparable = centroid{}
)

// NearestIndex finds the closest of a fixed set of points, used to report
// the nearest cell when a point lies in no cell at all
type NearestIndex struct {
	tree *kdtree.Tree
}

// NewNearestIndex indexes points, the returned indices refer to this slice
func NewNearestIndex(points []r3.Vec) *NearestIndex {
	if len(points) == 0 {
		return &NearestIndex{}
	}
	cs := make(centroids, len(points))
	for i, p := range points {
		cs[i] = centroid{pos: p, index: i}
	}
	return &NearestIndex{tree: kdtree.New(cs, false)}
}

// Nearest returns the index of the closest point and its distance
func (n *NearestIndex) Nearest(pos r3.Vec) (int, float64, bool) {
	if n.tree == nil {
		return -1, 0, false
	}
	got, d2 := n.tree.Nearest(centroid{pos: pos, index: -1})
	if got == nil {
		return -1, 0, false
	}
	return got.(centroid).index, math.Sqrt(d2), true
}

type centroid struct {
	pos   r3.Vec
	index int
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
func (a centroid) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	q := b.(centroid)
	switch d {
	case 0:
		return a.pos.X - q.pos.X
	case 1:
		return a.pos.Y - q.pos.Y
	case 2:
		return a.pos.Z - q.pos.Z
	}
	panic("unreachable")
}

func (a centroid) Dims() int { return 3 }

// Distance returns the squared Euclidean distance
func (a centroid) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.pos, b.(centroid).pos))
}

type centroids []centroid

func (c centroids) Index(i int) kdtree.Comparable { return c[i] }
func (c centroids) Len() int                      { return len(c) }
func (c centroids) Slice(start, end int) kdtree.Interface {
	return c[start:end]
}

// Pivot partitions the list based on the dimension specified.
func (c centroids) Pivot(d kdtree.Dim) int {
	p := plane{dim: d, centroids: c}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

type plane struct {
	dim       kdtree.Dim
	centroids centroids
}

func (p plane) Less(i, j int) bool {
	return p.centroids[i].Compare(p.centroids[j], p.dim) < 0
}
func (p plane) Swap(i, j int) {
	p.centroids[i], p.centroids[j] = p.centroids[j], p.centroids[i]
}
func (p plane) Len() int {
	return len(p.centroids)
}
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.centroids = p.centroids[start:end]
	return p
}
