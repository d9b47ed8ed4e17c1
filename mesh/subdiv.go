package mesh

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/spatial"
)

// ErrNoCell is returned by point queries that hit no cell
var ErrNoCell = errors.New("no cell contains the point")

// SubdivTree is the spatial index of a closed mesh: a quadtree for flat
// geometry, an octree otherwise, over the cells of time step 0.
type SubdivTree struct {
	*spatial.Tree
	gen     uint64
	nearest *spatial.NearestIndex
}

// Valid reports whether the tree was built after the last BeginEdit of obj
func (t *SubdivTree) Valid(obj *Object) bool { return t != nil && t.gen == obj.gen }

// CellAt returns the cell stored at tree arena index i
func (t *SubdivTree) CellAt(i int) CellID { return t.Cell(i).(CellID) }

// CreateSubdivTree indexes the cells of step 0 of every part not named in
// exclude. Parts holding bar or triangle cells have their cell boxes padded
// by opts.SizeOffset.
func (o *Object) CreateSubdivTree(opts spatial.Options, exclude ...string) error {
	if o.editing {
		return fmt.Errorf("CreateSubdivTree: %w", ErrEditing)
	}
	const step = 0
	bounds := o.GeometryBounds(-1, exclude...)
	kind := spatial.Octree
	if bounds.IsFlat(math.Nextafter(1, 2) - 1) {
		kind = spatial.Quadtree
	}
	tree, err := spatial.New(kind, bounds, opts)
	if err != nil {
		return fmt.Errorf("CreateSubdivTree: %w", err)
	}
	st := &SubdivTree{Tree: tree, gen: o.gen}

	var centroids []r3.Vec
	for pi, p := range o.parts {
		if contains(exclude, p.Name) {
			continue
		}
		offset := 0.0
		if p.HasCellType(element.Triangle, step) || p.HasCellType(element.Bar, step) {
			offset = opts.SizeOffset
		}
		for li, cl := range p.Cells(step) {
			for i := 0; i < cl.Len(); i++ {
				id := o.newCellID(pi, step, li, i)
				box := id.Bounds()
				box.IncreaseBy(offset)
				st.Insert(id, box)
				centroids = append(centroids, id.Centroid())
			}
		}
	}
	st.nearest = spatial.NewNearestIndex(centroids)
	o.tree = st
	log.WithFields(o.Fields()).WithField("kind", kind).
		Debugf("subdivision tree with %d cells, depth %d", st.Len(), st.Depth())
	return nil
}

// SubdivTree returns the tree of the last CreateSubdivTree, nil if none
func (o *Object) SubdivTree() *SubdivTree { return o.tree }

func (o *Object) validTree() (*SubdivTree, error) {
	if o.tree == nil {
		return nil, fmt.Errorf("no subdivision tree, call CreateSubdivTree first")
	}
	if !o.tree.Valid(o) {
		return nil, Structuralf("subdivision tree is stale, rebuild it after editing")
	}
	return o.tree, nil
}

// Interpolate locates the cell containing pos and returns it together with
// the barycentric coordinates of pos in it
func (o *Object) Interpolate(pos r3.Vec) (CellID, element.Barycentric, error) {
	t, err := o.validTree()
	if err != nil {
		return CellID{}, element.Barycentric{}, err
	}
	ci, ok := t.Search(pos)
	if !ok {
		return CellID{}, element.Barycentric{}, ErrNoCell
	}
	cell := t.CellAt(ci)
	b, err := cell.Barycentric(pos, t.Kind() == spatial.Octree)
	if err != nil {
		return CellID{}, element.Barycentric{}, err
	}
	return cell, b, nil
}

// SearchAll returns every cell whose box contains pos
func (o *Object) SearchAll(pos r3.Vec) ([]CellID, error) {
	t, err := o.validTree()
	if err != nil {
		return nil, err
	}
	var out []CellID
	for _, ci := range t.SearchAll(pos) {
		out = append(out, t.CellAt(ci))
	}
	return out, nil
}

// NearestCell returns the cell whose centroid is closest to pos and the
// distance to that centroid
func (o *Object) NearestCell(pos r3.Vec) (CellID, float64, error) {
	t, err := o.validTree()
	if err != nil {
		return CellID{}, 0, err
	}
	i, d, ok := t.nearest.Nearest(pos)
	if !ok {
		return CellID{}, 0, ErrNoCell
	}
	return t.CellAt(i), d, nil
}

// InterpolateVariable evaluates variable name at pos and time t. For
// transient objects the values of the two steps bracketing t are blended
// linearly, t outside the time range uses the nearest end step.
func (o *Object) InterpolateVariable(pos r3.Vec, name string, t float64) ([]float64, error) {
	if !o.HasVariable(name) {
		return nil, fmt.Errorf("variable %q not defined", name)
	}
	cell, b, err := o.Interpolate(pos)
	if err != nil {
		return nil, err
	}
	return o.EvaluateVariable(cell, b, pos, name, t)
}

// EvaluateVariable is InterpolateVariable for a cell and barycentrics
// already found by Interpolate at pos
func (o *Object) EvaluateVariable(cell CellID, b element.Barycentric, pos r3.Vec, name string, t float64) ([]float64, error) {
	if !o.HasVariable(name) {
		return nil, fmt.Errorf("variable %q not defined", name)
	}
	if !o.IsTransient() {
		return cell.Evaluate(b, name)
	}
	s0, s1 := o.bracket(t)
	ignore2d := o.tree.Kind() == spatial.Octree
	v0, ok0 := o.evaluateAt(cell, s0, pos, name, ignore2d)
	v1, ok1 := o.evaluateAt(cell, s1, pos, name, ignore2d)
	return element.BlendUnsteady(v0, v1, ok0, ok1, o.times[s0], o.times[s1], t)
}

func (o *Object) bracket(t float64) (int, int) {
	n := len(o.times)
	if t <= o.times[0] {
		return 0, 0
	}
	if t >= o.times[n-1] {
		return n - 1, n - 1
	}
	i := sort.SearchFloat64s(o.times, t)
	if o.times[i] == t {
		return i, i
	}
	return i - 1, i
}

// evaluateAt evaluates the cell with the same position in its list at step
func (o *Object) evaluateAt(cell CellID, step int, pos r3.Vec, name string, ignore2d bool) ([]float64, bool) {
	c, err := o.Cell(cell.part, step, cell.Type(), cell.index)
	if err != nil {
		return nil, false
	}
	b, err := c.Barycentric(pos, ignore2d)
	if err != nil || !b.IsValid() {
		return nil, false
	}
	v, err := c.Evaluate(b, name)
	if err != nil {
		return nil, false
	}
	return v, true
}
