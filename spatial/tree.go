package spatial

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goensight/utils"
)

// Kind selects the fan-out of a subdivision tree
type Kind uint8

const (
	Quadtree Kind = iota // 4 children split in X and Y, for planar data
	Octree               // 8 children split in X, Y and Z
)

func (k Kind) String() string {
	switch k {
	case Quadtree:
		return "Quadtree"
	case Octree:
		return "Octree"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Fanout returns the number of children of an interior node
func (k Kind) Fanout() int {
	if k == Quadtree {
		return 4
	}
	return 8
}

// Options controls tree construction
type Options struct {
	MaxLevel        int     // Depth at which leaves stop splitting
	MaxCellsPerLeaf int     // Leaf capacity below MaxLevel
	SizeOffset      float64 // Padding of bar and triangle cell boxes
}

// DefaultOptions returns MaxLevel 10, MaxCellsPerLeaf 8 and no padding
func DefaultOptions() Options {
	return Options{MaxLevel: 10, MaxCellsPerLeaf: 8}
}

// Validate checks the build parameters
func (o Options) Validate() error {
	if o.MaxLevel < 0 {
		return fmt.Errorf("invalid max level %d", o.MaxLevel)
	}
	if o.MaxCellsPerLeaf < 1 {
		return fmt.Errorf("invalid max cells per leaf %d", o.MaxCellsPerLeaf)
	}
	if o.SizeOffset < 0 {
		return fmt.Errorf("invalid size offset %g", o.SizeOffset)
	}
	return nil
}

// Cell is anything the tree can index: it has a bounding box and can decide
// whether it really contains a point.
type Cell interface {
	Bounds() utils.Bbox
	Locate(pos r3.Vec, ignore2d bool) bool
}

type node struct {
	bounds utils.Bbox
	level  int
	first  int   // Arena index of the first child, -1 for leaves
	cells  []int // Cell arena indices, leaves only
}

// Tree is a bounding volume subdivision tree over cells. Nodes and cells are
// kept in flat arenas and refer to each other by index. The tree does not
// support removal.
type Tree struct {
	kind  Kind
	opts  Options
	nodes []node
	cells []Cell
	boxes []utils.Bbox
}

// New creates an empty tree covering bounds
func New(kind Kind, bounds utils.Bbox, opts Options) (*Tree, error) {
	if kind != Quadtree && kind != Octree {
		return nil, fmt.Errorf("invalid tree kind %d", kind)
	}
	if bounds.IsEmpty() {
		return nil, fmt.Errorf("cannot build %s over empty bounds", kind)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Tree{
		kind:  kind,
		opts:  opts,
		nodes: []node{{bounds: bounds, first: -1}},
	}, nil
}

func (t *Tree) Kind() Kind       { return t.kind }
func (t *Tree) Options() Options { return t.opts }
func (t *Tree) Bounds() utils.Bbox {
	return t.nodes[0].bounds
}

// Len returns the number of inserted cells
func (t *Tree) Len() int { return len(t.cells) }

// Cell returns the cell stored at arena index i
func (t *Tree) Cell(i int) Cell { return t.cells[i] }

// Insert adds c under the box box (usually c.Bounds(), possibly padded) and
// returns its arena index
func (t *Tree) Insert(c Cell, box utils.Bbox) int {
	ci := len(t.cells)
	t.cells = append(t.cells, c)
	t.boxes = append(t.boxes, box)
	t.insert(0, ci)
	return ci
}

func (t *Tree) insert(ni, ci int) {
	n := &t.nodes[ni]
	if n.first < 0 {
		if len(n.cells) < t.opts.MaxCellsPerLeaf || n.level >= t.opts.MaxLevel {
			n.cells = append(n.cells, ci)
			return
		}
		t.split(ni)
	}
	first := t.nodes[ni].first
	for k := 0; k < t.kind.Fanout(); k++ {
		if t.nodes[first+k].bounds.Intersects(t.boxes[ci]) {
			t.insert(first+k, ci)
		}
	}
}

// split turns leaf ni into an interior node and hands its cells down to
// every child they intersect
func (t *Tree) split(ni int) {
	parent := t.nodes[ni]
	first := len(t.nodes)
	for k := 0; k < t.kind.Fanout(); k++ {
		t.nodes = append(t.nodes, node{
			bounds: t.childBounds(parent.bounds, k),
			level:  parent.level + 1,
			first:  -1,
		})
	}
	t.nodes[ni].first = first
	t.nodes[ni].cells = nil
	for _, ci := range parent.cells {
		for k := 0; k < t.kind.Fanout(); k++ {
			if t.nodes[first+k].bounds.Intersects(t.boxes[ci]) {
				t.insert(first+k, ci)
			}
		}
	}
}

// childBounds splits b at its midpoint. Quadtree children keep the full Z
// extent of the parent.
func (t *Tree) childBounds(b utils.Bbox, k int) utils.Bbox {
	half := r3.Scale(0.5, b.Diagonal())
	min := b.Min
	switch t.kind {
	case Quadtree:
		if k&2 != 0 {
			min.X += half.X
		}
		if k&1 != 0 {
			min.Y += half.Y
		}
		max := r3.Vec{X: min.X + half.X, Y: min.Y + half.Y, Z: b.Max.Z}
		return utils.BboxFromCorners(min, max)
	default:
		if k&4 != 0 {
			min.X += half.X
		}
		if k&2 != 0 {
			min.Y += half.Y
		}
		if k&1 != 0 {
			min.Z += half.Z
		}
		return utils.BboxFromCorners(min, r3.Add(min, half))
	}
}

// findChild returns the child of interior node n whose box holds pos,
// decided by comparing against the node center per axis
func (t *Tree) findChild(n *node, pos r3.Vec) int {
	c := n.bounds.Center()
	k := 0
	switch t.kind {
	case Quadtree:
		if pos.X >= c.X {
			k |= 2
		}
		if pos.Y >= c.Y {
			k |= 1
		}
	default:
		if pos.X >= c.X {
			k |= 4
		}
		if pos.Y >= c.Y {
			k |= 2
		}
		if pos.Z >= c.Z {
			k |= 1
		}
	}
	return n.first + k
}

func (t *Tree) leaf(pos r3.Vec) (*node, bool) {
	n := &t.nodes[0]
	if !n.bounds.Contains(pos) {
		return nil, false
	}
	for n.first >= 0 {
		n = &t.nodes[t.findChild(n, pos)]
	}
	return n, true
}

// Search returns the arena index of the first cell in the leaf holding pos
// that really contains pos. Planar cells are skipped in octrees.
func (t *Tree) Search(pos r3.Vec) (int, bool) {
	n, ok := t.leaf(pos)
	if !ok {
		return -1, false
	}
	ignore2d := t.kind == Octree
	for _, ci := range n.cells {
		if t.boxes[ci].Contains(pos) && t.cells[ci].Locate(pos, ignore2d) {
			return ci, true
		}
	}
	return -1, false
}

// SearchAll returns every cell of the leaf holding pos whose box contains pos
func (t *Tree) SearchAll(pos r3.Vec) []int {
	n, ok := t.leaf(pos)
	if !ok {
		return nil
	}
	var found []int
	for _, ci := range n.cells {
		if t.boxes[ci].Contains(pos) {
			found = append(found, ci)
		}
	}
	return found
}

// NodeInfo describes one tree node, for debug rendering
type NodeInfo struct {
	Bounds   utils.Bbox
	Level    int
	Leaf     bool
	NumCells int
}

// Nodes lists all nodes in arena order, the root first
func (t *Tree) Nodes() []NodeInfo {
	out := make([]NodeInfo, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = NodeInfo{
			Bounds:   n.bounds,
			Level:    n.level,
			Leaf:     n.first < 0,
			NumCells: len(n.cells),
		}
	}
	return out
}

// Depth returns the deepest node level
func (t *Tree) Depth() int {
	d := 0
	for _, n := range t.nodes {
		if n.level > d {
			d = n.level
		}
	}
	return d
}
