package writers

import (
	"bufio"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/mesh"
	"github.com/notargets/goensight/readers"
)

// gridObject builds an n x n quadrangle grid on [0,1]^2 with a scalar and a
// vector variable per step, plus a bar part without variables
func gridObject(t *testing.T, n int, times []float64) *mesh.Object {
	t.Helper()
	obj := mesh.NewObject()
	if len(times) > 1 {
		require.NoError(t, obj.SetTransient(times))
	}
	require.NoError(t, obj.AddConstant("gamma", 1.4))
	require.NoError(t, obj.AddConstant("mach", 0.123456789))
	require.NoError(t, obj.CreateVariable("f", mesh.ScalarPerNode))
	require.NoError(t, obj.CreateVariable("u", mesh.VectorPerNode))
	grid, err := obj.CreatePart("grid", 1)
	require.NoError(t, err)
	wall, err := obj.CreatePart("wall", 4)
	require.NoError(t, err)

	m := n + 1
	h := 1 / float64(n)
	verts := mat.NewDense(3, m*m, nil)
	for j := 0; j < m; j++ {
		for i := 0; i < m; i++ {
			verts.Set(0, j*m+i, float64(i)*h)
			verts.Set(1, j*m+i, float64(j)*h)
		}
	}
	var quads []int
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v := j*m + i
			quads = append(quads, v, v+1, v+m+1, v+m)
		}
	}
	for step := range obj.Times() {
		require.NoError(t, grid.SetVertices(step, verts))
		require.NoError(t, grid.SetCells(step, element.Quadrangle, quads))
		f := mat.NewDense(1, m*m, nil)
		u := mat.NewDense(3, m*m, nil)
		for k := 0; k < m*m; k++ {
			x, y := verts.At(0, k), verts.At(1, k)
			f.Set(0, k, x+2*y+float64(step))
			u.Set(0, k, x)
			u.Set(1, k, -y)
			u.Set(2, k, float64(step))
		}
		require.NoError(t, grid.SetVariable(step, "f", f))
		require.NoError(t, grid.SetVariable(step, "u", u))

		require.NoError(t, wall.SetVertices(step, mat.NewDense(3, 2, []float64{0, 1, -1, -1, 0, 0})))
		require.NoError(t, wall.SetCells(step, element.Bar, []int{0, 1}))
	}
	require.NoError(t, obj.EndEdit())
	return obj
}

func assertMatrixNear(t *testing.T, want, got mat.Matrix, tol float64, msg string) {
	t.Helper()
	require.NotNil(t, got, msg)
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, []int{wr, wc}, []int{gr, gc}, msg)
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			w := want.At(i, j)
			assert.InDelta(t, w, got.At(i, j), tol*math.Max(1, math.Abs(w)), "%s (%d,%d)", msg, i, j)
		}
	}
}

func assertSameObject(t *testing.T, want, got *mesh.Object, tol float64) {
	t.Helper()
	assert.Equal(t, want.Times(), got.Times())
	assert.Equal(t, want.Variables(), got.Variables())
	require.Equal(t, len(want.Constants()), len(got.Constants()))
	for i, c := range want.Constants() {
		assert.Equal(t, c.Name, got.Constants()[i].Name)
		assert.InDelta(t, c.Value, got.Constants()[i].Value, 1e-15)
	}
	require.Equal(t, want.NumParts(), got.NumParts())
	for pi, wp := range want.Parts() {
		gp := got.Part(pi)
		assert.Equal(t, wp.Name, gp.Name)
		assert.Equal(t, wp.ID, gp.ID)
		for step := 0; step < want.NumTimesteps(); step++ {
			assertMatrixNear(t, wp.Vertices(step), gp.Vertices(step), tol, wp.Name+" vertices")
			require.Equal(t, len(wp.Cells(step)), len(gp.Cells(step)))
			for li, cl := range wp.Cells(step) {
				assert.Equal(t, cl.Type(), gp.Cells(step)[li].Type())
				assert.Equal(t, cl.Indices(), gp.Cells(step)[li].Indices())
			}
			for _, v := range want.Variables() {
				wv := wp.Variable(v.Name, step)
				if wv == nil {
					assert.False(t, gp.HasVariable(v.Name, step))
					continue
				}
				assertMatrixNear(t, wv.Values(), gp.Variable(v.Name, step).Values(), tol, v.Name)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		times  []float64
		opts   Options
		tol    float64
		prefix string
	}{
		{"static ascii", nil, Options{Step: -1}, 1e-5, ""},
		{"static binary", nil, Options{Step: -1, Binary: true}, 1e-6, ""},
		{"transient ascii", []float64{0, 0.5, 1}, Options{Step: -1}, 1e-5, ""},
		{"transient binary", []float64{0, 0.5, 1}, Options{Step: -1, Binary: true}, 1e-6, ""},
		{"single file ascii", []float64{0, 0.25}, Options{Step: -1, SingleFile: true}, 1e-5, ""},
		{"single file binary", []float64{0, 0.25}, Options{Step: -1, SingleFile: true, Binary: true}, 1e-6, ""},
		{"nested directory", nil, Options{Step: -1}, 1e-5, "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := gridObject(t, 10, tt.times)
			path := filepath.Join(t.TempDir(), tt.prefix, "grid.case")
			require.NoError(t, WriteOptions(obj, path, tt.opts))

			got, err := readers.Read(path)
			require.NoError(t, err)
			assertSameObject(t, obj, got, tt.tol)

			grid := got.PartByName("grid")
			assert.Equal(t, 121, grid.VertexCount(0))
			assert.Equal(t, 100, grid.NumCells(0))
		})
	}
}

func TestWriteFileNames(t *testing.T) {
	times := make([]float64, 12)
	for i := range times {
		times[i] = float64(i)
	}
	obj := gridObject(t, 2, times)
	dir := t.TempDir()
	path := filepath.Join(dir, "run.case")
	require.NoError(t, Write(obj, path, false, -1))

	for _, name := range []string{"run.case", "run.geo00", "run.geo11", "run.f05", "run.u11"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(text), "run.geo**\n")
	assert.Contains(t, string(text), "number of steps:       12\n")

	c, err := readers.ParseCaseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "run.geo**", c.Model.Name)
	assert.Equal(t, 1, c.Model.TimeSet)
	assert.Equal(t, times, c.Times())
	assert.Equal(t, "run.f**", c.Variables[0].Name)
}

func TestWriteSingleStep(t *testing.T) {
	obj := gridObject(t, 2, []float64{0, 1, 2})
	dir := t.TempDir()
	path := filepath.Join(dir, "run.case")

	require.NoError(t, Write(obj, path, true, 2))
	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "run.geo2"))
	assert.NoFileExists(t, filepath.Join(dir, "run.geo0"))

	require.NoError(t, Write(obj, path, true, 0))
	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "run.f0"))

	require.NoError(t, Write(obj, path, true, 1))
	got, err := readers.ReadStep(path, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, got.Times())
	assert.Equal(t, []float64{0, 0, 1}, got.PartByName("grid").Variable("u", 0).Value(0))
}

func TestWriteErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.case")

	editing := mesh.NewObject()
	assert.ErrorIs(t, Write(editing, path, false, -1), mesh.ErrEditing)

	obj := gridObject(t, 1, []float64{0, 1})
	assert.ErrorIs(t, Write(obj, path, false, 2), mesh.ErrStructural)
	assert.ErrorIs(t, Write(obj, path, false, -2), mesh.ErrStructural)
	err := WriteOptions(obj, path, Options{Step: 1, SingleFile: true})
	assert.ErrorIs(t, err, mesh.ErrStructural)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestBinaryWriteErrorAtFlush(t *testing.T) {
	obj := gridObject(t, 2, nil)
	bw := bufio.NewWriterSize(failingWriter{}, 16)
	binaryGeometry(bw, obj, 0)
	binaryVariable(bw, obj, mesh.VariableID{Name: "f", Type: mesh.ScalarPerNode}, 0)
	assert.EqualError(t, bw.Flush(), "disk full")
}

func TestCaseFileLayout(t *testing.T) {
	obj := gridObject(t, 1, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "static.case")
	require.NoError(t, Write(obj, path, false, -1))
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(text), "\n")
	assert.Equal(t, "FORMAT", lines[0])
	assert.Equal(t, "type:      ensight gold", lines[1])
	assert.Equal(t, "model:            static.geo", lines[4])
	assert.NotContains(t, string(text), "TIME")
	assert.Contains(t, string(text), "constant per case:                    gamma               1.4\n")
}
