package mesh

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/element"
)

// quadGrid returns the vertices (3 x (n+1)^2, unit spacing at z=0) and the
// quad indices of an n x n grid
func quadGrid(n int) (*mat.Dense, []int) {
	nv := (n + 1) * (n + 1)
	verts := mat.NewDense(3, nv, nil)
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			k := j*(n+1) + i
			verts.Set(0, k, float64(i))
			verts.Set(1, k, float64(j))
		}
	}
	var cells []int
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v := j*(n+1) + i
			cells = append(cells, v, v+1, v+n+2, v+n+1)
		}
	}
	return verts, cells
}

// linearField samples f(x,y,z) = x + 2y + 3z at every vertex
func linearField(verts mat.Matrix, scale float64) *mat.Dense {
	_, n := verts.Dims()
	f := mat.NewDense(1, n, nil)
	for i := 0; i < n; i++ {
		f.Set(0, i, scale*(verts.At(0, i)+2*verts.At(1, i)+3*verts.At(2, i)))
	}
	return f
}

// quadObject builds a closed static object with one n x n quad part and
// the scalar "f"
func quadObject(t *testing.T, n int) *Object {
	t.Helper()
	obj := NewObject()
	p, err := obj.CreatePart("grid", 1)
	require.NoError(t, err)
	verts, cells := quadGrid(n)
	require.NoError(t, p.SetVertices(0, verts))
	require.NoError(t, p.SetCells(0, element.Quadrangle, cells))
	require.NoError(t, obj.CreateVariable("f", ScalarPerNode))
	require.NoError(t, p.SetVariable(0, "f", linearField(verts, 1)))
	require.NoError(t, obj.EndEdit())
	return obj
}

func TestEditGate(t *testing.T) {
	obj := quadObject(t, 2)
	assert.False(t, obj.IsEditing())
	p := obj.Part(0)
	verts, cells := quadGrid(2)

	errs := []error{
		func() error { _, err := obj.CreatePart("other", 2); return err }(),
		p.SetVertices(0, verts),
		p.SetCells(0, element.Triangle, []int{0, 1, 2}),
		obj.CreateVariable("g", ScalarPerNode),
		p.SetVariable(0, "f", linearField(verts, 2)),
		obj.AddConstant("c", 1),
		obj.RemoveConstant("c"),
		obj.ReplaceConstants(map[string]float64{"c": 1}),
		obj.SetStatic(),
		obj.SetTransient([]float64{0, 1}),
		obj.Clean(0),
	}
	for i, err := range errs {
		assert.ErrorIs(t, err, ErrNotEditing, "mutator %d", i)
		assert.ErrorIs(t, err, ErrStructural, "mutator %d", i)
	}
	assert.Equal(t, 1, obj.NumParts())
	assert.Equal(t, 1, obj.NumTimesteps())
	assert.Len(t, obj.Variables(), 1)
	assert.Len(t, p.Cells(0), 1)
	assert.Equal(t, cells, p.CellList(0, element.Quadrangle).Indices())

	obj.BeginEdit()
	obj.BeginEdit()
	assert.True(t, obj.IsEditing())
	_, err := obj.CreatePart("other", 2)
	assert.NoError(t, err)
}

func TestEndEditIndexOutOfRange(t *testing.T) {
	obj := NewObject()
	p, err := obj.CreatePart("tri", 0)
	require.NoError(t, err)
	require.NoError(t, p.SetVertices(0, mat.NewDense(3, 3, []float64{0, 1, 0, 0, 0, 1, 0, 0, 0})))
	require.NoError(t, p.SetCells(0, element.Triangle, []int{0, 1, 3}))

	err = obj.EndEdit()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructural)
	assert.Contains(t, err.Error(), "index 3")
	assert.True(t, obj.IsEditing())

	obj2 := NewObject()
	p2, err := obj2.CreatePart("neg", 0)
	require.NoError(t, err)
	require.NoError(t, p2.SetVertices(0, mat.NewDense(3, 3, nil)))
	require.NoError(t, p2.SetCells(0, element.Triangle, []int{0, -1, 2}))
	assert.Error(t, obj2.EndEdit())
}

func TestEndEditVariableMismatch(t *testing.T) {
	obj := NewObject()
	p, err := obj.CreatePart("grid", 0)
	require.NoError(t, err)
	verts, cells := quadGrid(1)
	require.NoError(t, p.SetVertices(0, verts))
	require.NoError(t, p.SetCells(0, element.Quadrangle, cells))
	require.NoError(t, obj.CreateVariable("v", VectorPerNode))
	require.NoError(t, p.SetVariable(0, "v", mat.NewDense(3, 3, nil)))

	err = obj.EndEdit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `variable "v"`)
	assert.True(t, obj.IsEditing())

	// A part without the variable is fine
	obj3 := NewObject()
	p3, err := obj3.CreatePart("grid", 0)
	require.NoError(t, err)
	require.NoError(t, p3.SetVertices(0, verts))
	require.NoError(t, obj3.CreateVariable("v", VectorPerNode))
	assert.NoError(t, obj3.EndEdit())
}

func TestCreatePartAndVariableErrors(t *testing.T) {
	obj := NewObject()
	_, err := obj.CreatePart("a", 1)
	require.NoError(t, err)
	_, err = obj.CreatePart("a", 2)
	assert.ErrorIs(t, err, ErrStructural)
	_, err = obj.CreatePart("b", 1)
	assert.ErrorIs(t, err, ErrStructural)
	_, err = obj.CreatePart("b", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, obj.MaxID())
	assert.Equal(t, "b", obj.PartByID(7).Name)
	assert.Nil(t, obj.PartByName("c"))

	require.NoError(t, obj.CreateVariable("s", ScalarPerNode))
	assert.Error(t, obj.CreateVariable("s", VectorPerNode))
	assert.Error(t, obj.CreateVariable("k", ConstantPerCase))

	p := obj.PartByName("a")
	assert.ErrorIs(t, p.SetVertices(0, nil), ErrStructural)
	require.NoError(t, p.SetVertices(0, mat.NewDense(3, 2, nil)))
	assert.Error(t, p.SetVertices(0, mat.NewDense(2, 2, nil)))
	assert.Error(t, p.SetVertices(1, mat.NewDense(3, 2, nil)))
	assert.Error(t, p.SetVertices(-1, mat.NewDense(3, 2, nil)))

	require.NoError(t, p.SetCells(0, element.Bar, []int{0, 1}))
	assert.Error(t, p.SetCells(0, element.Bar, []int{1, 0}))
	assert.Error(t, p.SetCells(0, element.Triangle, []int{0, 1}))

	assert.Error(t, p.SetVariable(0, "missing", mat.NewDense(1, 2, nil)))
	assert.Error(t, p.SetVariable(0, "s", mat.NewDense(3, 2, nil)))
	require.NoError(t, p.SetVariable(0, "s", mat.NewDense(1, 2, []float64{1, 2})))
	assert.Error(t, p.SetVariable(0, "s", mat.NewDense(1, 2, []float64{1, 2})))
	require.NoError(t, obj.EndEdit())
	assert.Zero(t, obj.PartByName("b").VertexCount(0))
	assert.Equal(t, -1, NewObject().MaxID())
}

func TestConstants(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	SetLogger(logger)
	defer SetLogger(nil)

	obj := NewObject()
	require.NoError(t, obj.AddConstant("mach", 0.8))
	require.NoError(t, obj.AddConstant("re", 1e6))
	assert.Error(t, obj.AddConstant("mach", 1))

	require.NoError(t, obj.ReplaceConstants(map[string]float64{"mach": 0.5, "alpha": 3}))
	v, ok := obj.Constant("mach")
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)
	assert.False(t, obj.HasConstant("alpha"))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "alpha", hook.LastEntry().Data["constant"])

	require.NoError(t, obj.RemoveConstant("mach"))
	assert.Error(t, obj.RemoveConstant("mach"))
	assert.Equal(t, []Constant{{Name: "re", Value: 1e6}}, obj.Constants())
}

func TestTransientResize(t *testing.T) {
	obj := NewObject()
	p, err := obj.CreatePart("p", 0)
	require.NoError(t, err)
	verts, _ := quadGrid(1)
	require.NoError(t, p.SetVertices(0, verts))
	assert.False(t, obj.IsTransient())

	require.NoError(t, obj.SetTransient([]float64{0, 0.5, 1}))
	assert.True(t, obj.IsTransient())
	assert.Equal(t, 3, p.NumTimesteps())
	assert.Equal(t, 4, p.VertexCount(0))
	assert.Equal(t, 0, p.VertexCount(2))
	require.NoError(t, p.SetVertices(2, verts))
	assert.Equal(t, []float64{0, 0.5, 1}, obj.Times())
	assert.Equal(t, 0.5, obj.TimesVec().AtVec(1))

	require.NoError(t, obj.Clean(0))
	assert.Nil(t, p.Vertices(0))
	assert.True(t, p.GeometryBounds(0).IsEmpty())

	require.NoError(t, obj.SetStatic())
	assert.Equal(t, 1, p.NumTimesteps())
	assert.Error(t, obj.SetTransient(nil))
}

func TestBounds(t *testing.T) {
	obj := NewObject()
	require.NoError(t, obj.SetTransient([]float64{0, 1}))
	a, err := obj.CreatePart("a", 1)
	require.NoError(t, err)
	b, err := obj.CreatePart("b", 2)
	require.NoError(t, err)
	require.NoError(t, a.SetVertices(0, mat.NewDense(3, 2, []float64{0, 1, 0, 1, 0, 1})))
	require.NoError(t, a.SetVertices(1, mat.NewDense(3, 2, []float64{0, 2, 0, 1, 0, 1})))
	require.NoError(t, b.SetVertices(0, mat.NewDense(3, 1, []float64{-5, 0, 0})))
	require.NoError(t, obj.CreateVariable("u", VectorPerNode))
	require.NoError(t, a.SetVariable(0, "u", mat.NewDense(3, 2, []float64{3, 0, 0, 0, 4, 0})))
	require.NoError(t, a.SetVariable(1, "u", mat.NewDense(3, 2, []float64{-1, 0, 0, 0, 0, 0})))

	assert.Equal(t, 1.0, a.GeometryBounds(0).Max.X)
	assert.Equal(t, 2.0, a.GeometryBounds(-1).Max.X)
	assert.Equal(t, -5.0, obj.GeometryBounds(0).Min.X)
	assert.Equal(t, 0.0, obj.GeometryBounds(0, "b").Min.X)

	ub := obj.VariableBounds("u", 0)
	require.NotNil(t, ub)
	r, c := ub.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []float64{0, 3}, mat.Row(nil, 0, ub))
	assert.Equal(t, []float64{0, 5}, mat.Row(nil, 3, ub))

	all := a.VariableBounds("u", -1)
	assert.Equal(t, []float64{-1, 3}, mat.Row(nil, 0, all))
	assert.Equal(t, []float64{0, 5}, mat.Row(nil, 3, all))
	assert.Nil(t, b.VariableBounds("u", 0))
	assert.True(t, a.HasVariable("u", -1))
	assert.False(t, b.HasVariable("u", -1))
}

func TestPrint(t *testing.T) {
	obj := NewObject()
	assert.ErrorIs(t, obj.Print(&bytes.Buffer{}), ErrEditing)

	obj = quadObject(t, 2)
	obj.BeginEdit()
	require.NoError(t, obj.AddConstant("gamma", 1.4))
	require.NoError(t, obj.EndEdit())
	var buf bytes.Buffer
	require.NoError(t, obj.Print(&buf))
	out := buf.String()
	assert.Contains(t, out, `Part "grid", id=1`)
	assert.Contains(t, out, "quad4")
	assert.Contains(t, out, "f (scalar per node, dim=1)")
	assert.Contains(t, out, "gamma = 1.4")
	assert.Equal(t, out, obj.String())
}

func TestCellListConnectivity(t *testing.T) {
	_, cells := quadGrid(3)
	cl, err := NewCellList(element.Quadrangle, cells)
	require.NoError(t, err)
	assert.Equal(t, 9, cl.Len())
	assert.Equal(t, []int{5, 6, 10, 9}, cl.Cell(4))
	// The center cell has four neighbors
	for _, nb := range cl.Neighbors()[4] {
		assert.GreaterOrEqual(t, nb, 0)
	}
	assert.Len(t, cl.BoundaryFaces(), 12)
	assert.Len(t, cl.BoundaryVertices(), 12)
	assert.NoError(t, cl.Connectivity().Verify())

	m := cl.Matrix()
	r, c := m.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 9, c)
	assert.Equal(t, 10.0, m.At(2, 4))

	back, err := NewCellListFromMatrix(element.Quadrangle, m)
	require.NoError(t, err)
	assert.Equal(t, cells, back.Indices())

	_, err = NewCellList(element.Triangle, []int{0, 1})
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestCellIDVolume(t *testing.T) {
	obj := quadObject(t, 2)
	c, err := obj.Cell(0, 0, element.Quadrangle, 3)
	require.NoError(t, err)
	assert.True(t, c.Valid())
	assert.InDelta(t, 1.0, c.Volume(), 1e-12)
	assert.Equal(t, 1.5, c.Centroid().X)
	assert.Equal(t, 1.5, c.Centroid().Y)
	assert.Equal(t, 2.0, c.Bounds().Max.X)

	vals := c.Values("f")
	require.NotNil(t, vals)
	assert.Equal(t, []float64{3, 4, 6, 5}, mat.Row(nil, 0, vals))

	_, err = obj.Cell(0, 0, element.Quadrangle, 4)
	assert.Error(t, err)
	_, err = obj.Cell(0, 0, element.Triangle, 0)
	assert.Error(t, err)
	_, err = obj.Cell(1, 0, element.Quadrangle, 0)
	assert.Error(t, err)

	obj.BeginEdit()
	assert.False(t, c.Valid())
}
