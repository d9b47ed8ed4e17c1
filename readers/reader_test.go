package readers

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/mesh"
)

const squareGeo = `square geometry
made by hand
node id assign
element id given
extents
 0.00000e+00 1.00000e+00
 0.00000e+00 1.00000e+00
 0.00000e+00 0.00000e+00
part
         1
square
coordinates
         4
 0.00000e+00
 1.00000e+00
 1.00000e+00
 0.00000e+00
 0.00000e+00
 0.00000e+00
 1.00000e+00
 1.00000e+00
 0.00000e+00
 0.00000e+00
 0.00000e+00
 0.00000e+00
tria3
         2
       101
       102
         1         2         3
         1         3         4
part
         2
empty
`

const squarePressure = `pressure
part
         1
coordinates
 1.00000e+00
 2.00000e+00
 3.00000e+00
 4.00000e+00
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	return dir
}

func TestReadStaticASCII(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"square.case": "FORMAT\ntype: ensight gold\nGEOMETRY\nmodel: square.geo\n" +
			"VARIABLE\nconstant per case: gamma 1.4\nscalar per node: pressure square.p\n",
		"square.geo": squareGeo,
		"square.p":   squarePressure,
	})
	obj, err := Read(filepath.Join(dir, "square.case"))
	require.NoError(t, err)
	assert.False(t, obj.IsEditing())
	assert.False(t, obj.IsTransient())

	gamma, ok := obj.Constant("gamma")
	assert.True(t, ok)
	assert.Equal(t, 1.4, gamma)

	require.Equal(t, 2, obj.NumParts())
	p := obj.PartByID(1)
	require.NotNil(t, p)
	assert.Equal(t, "square", p.Name)
	assert.Equal(t, 4, p.VertexCount(0))
	assert.Equal(t, 1.0, p.Vertex(0, 2).X)
	assert.Equal(t, 1.0, p.Vertex(0, 2).Y)
	cl := p.CellList(0, element.Triangle)
	require.NotNil(t, cl)
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3}, cl.Indices())

	empty := obj.PartByName("empty")
	require.NotNil(t, empty)
	assert.Equal(t, 0, empty.VertexCount(0))

	v := p.Variable("pressure", 0)
	require.NotNil(t, v)
	assert.Equal(t, []float64{3}, v.Value(2))
	assert.False(t, empty.HasVariable("pressure", 0))

	_, err = ReadStep(filepath.Join(dir, "square.case"), 0)
	assert.NoError(t, err)
	_, err = ReadStep(filepath.Join(dir, "square.case"), 1)
	assert.ErrorIs(t, err, mesh.ErrStructural)
}

func TestReadTransientASCII(t *testing.T) {
	scaled := func(s string) string {
		return "pressure\npart\n1\ncoordinates\n" + s
	}
	dir := writeFiles(t, map[string]string{
		"flow.case": `FORMAT
type: ensight gold
GEOMETRY
model: 1 flow.geo*
VARIABLE
scalar per node: 1 pressure flow.p*
vector per node: velocity flow.v
TIME
time set: 1
number of steps: 2
filename start number: 1
filename increment: 2
time values: 0.0 0.5
`,
		"flow.geo1": squareGeo,
		"flow.geo3": squareGeo,
		"flow.p1":   scaled("1\n2\n3\n4\n"),
		"flow.p3":   scaled("10\n20\n30\n40\n"),
		"flow.v":    "velocity\npart\n1\ncoordinates\n1\n1\n1\n1\n0\n0\n0\n0\n2\n2\n2\n2\n",
	})
	path := filepath.Join(dir, "flow.case")
	obj, err := Read(path)
	require.NoError(t, err)
	assert.True(t, obj.IsTransient())
	assert.Equal(t, []float64{0, 0.5}, obj.Times())

	p := obj.PartByName("square")
	assert.Equal(t, []float64{4}, p.Variable("pressure", 0).Value(3))
	assert.Equal(t, []float64{40}, p.Variable("pressure", 1).Value(3))
	assert.Equal(t, []float64{1, 0, 2}, p.Variable("velocity", 1).Value(0))

	one, err := ReadStep(path, 1)
	require.NoError(t, err)
	assert.False(t, one.IsTransient())
	assert.Equal(t, []float64{0.5}, one.Times())
	assert.Equal(t, []float64{10}, one.PartByName("square").Variable("pressure", 0).Value(0))

	_, err = ReadStep(path, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requested time step 3 (index 2) but file contains only 2 time steps.")
}

func TestReadSingleFileASCII(t *testing.T) {
	block := func(body string) string { return "BEGIN TIME STEP\n" + body + "END TIME STEP\n" }
	pressure := func(a, b, c, d string) string {
		return "pressure\npart\n1\ncoordinates\n" + a + "\n" + b + "\n" + c + "\n" + d + "\n"
	}
	dir := writeFiles(t, map[string]string{
		"flow.case": `FORMAT
type: ensight gold
GEOMETRY
model: 1 1 flow.geo
VARIABLE
scalar per node: 1 1 pressure flow.p
TIME
time set: 1
number of steps: 3
filename start number: 0
filename increment: 1
time values: 0 1 2
FILE
file set: 1
number of steps: 3
`,
		"flow.geo": block(squareGeo) + block(squareGeo) + block(squareGeo),
		"flow.p": block(pressure("1", "2", "3", "4")) + block(pressure("5", "6", "7", "8")) +
			block(pressure("9", "10", "11", "12")),
	})
	path := filepath.Join(dir, "flow.case")
	obj, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, 3, obj.NumTimesteps())
	for step, want := range []float64{1, 5, 9} {
		assert.Equal(t, []float64{want}, obj.PartByID(1).Variable("pressure", step).Value(0))
	}

	last, err := ReadStep(path, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{12}, last.PartByID(1).Variable("pressure", 0).Value(3))
}

func TestReadPartMismatch(t *testing.T) {
	renamed := bytes.Replace([]byte(squareGeo), []byte("square\n"), []byte("other\n"), 1)
	dir := writeFiles(t, map[string]string{
		"m.case":  "FORMAT\ntype: ensight gold\nGEOMETRY\nmodel: 1 m.geo*\nTIME\ntime set: 1\nnumber of steps: 2\nfilename start number: 0\nfilename increment: 1\ntime values: 0 1\n",
		"m.geo0": squareGeo,
		"m.geo1": string(renamed),
	})
	_, err := Read(filepath.Join(dir, "m.case"))
	assert.ErrorIs(t, err, mesh.ErrStructural)
}

func TestReadGeometryErrors(t *testing.T) {
	header := "a\nb\nnode id off\nelement id off\n"
	tests := []struct {
		name string
		geo  string
		want error
	}{
		{"unknown cell", header + "part\n1\np\ncoordinates\n1\n0\n0\n0\nnsided\n1\n", mesh.ErrParse},
		{"coordinates first", header + "coordinates\n1\n0\n0\n0\n", mesh.ErrParse},
		{"truncated", header + "part\n1\np\ncoordinates\n2\n0\n0\n", mesh.ErrParse},
		{"index out of range", header + "part\n1\np\ncoordinates\n1\n0\n0\n0\npoint\n1\n2\n", mesh.ErrStructural},
		{"bad id line", "a\nb\nnode id maybe\nelement id off\n", mesh.ErrParse},
		{"negative vertex count", header + "part\n1\np\ncoordinates\n-1\n", mesh.ErrParse},
		{"negative cell count", header + "part\n1\np\ncoordinates\n1\n0\n0\n0\ntria3\n-2\n", mesh.ErrParse},
		{"vertex count past the end", header + "part\n1\np\ncoordinates\n2000000000\n0\n0\n0\n", mesh.ErrParse},
		{"vertex count overflow", header + "part\n1\np\ncoordinates\n9000000000000000000\n", mesh.ErrParse},
		{"cell count past the end", header + "part\n1\np\ncoordinates\n1\n0\n0\n0\ntria3\n1000000000\n1 1 1\n", mesh.ErrParse},
		{"binary negative vertex count", binaryPart(func(w *binaryWriter) {
			w.record("coordinates")
			w.ints(-1)
		}), mesh.ErrParse},
		{"binary negative cell count", binaryPart(func(w *binaryWriter) {
			w.record("coordinates")
			w.ints(1)
			w.floats(0, 0, 0)
			w.record("tria3")
			w.ints(-2)
		}), mesh.ErrParse},
		{"binary vertex count past the end", binaryPart(func(w *binaryWriter) {
			w.record("coordinates")
			w.ints(2000000000)
			w.floats(0, 0, 0)
		}), mesh.ErrParse},
		{"binary cell count past the end", binaryPart(func(w *binaryWriter) {
			w.record("coordinates")
			w.ints(1)
			w.floats(0, 0, 0)
			w.record("tria3")
			w.ints(1 << 30)
			w.ints(1, 1, 1)
		}), mesh.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{
				"m.case": "FORMAT\ntype: ensight gold\nGEOMETRY\nmodel: m.geo\n",
				"m.geo":  tt.geo,
			})
			var err error
			assert.NotPanics(t, func() { _, err = Read(filepath.Join(dir, "m.case")) })
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"m.case": "FORMAT\ntype: ensight gold\nGEOMETRY\nmodel: m.geo\n",
	})
	_, err := Read(filepath.Join(dir, "m.case"))
	assert.ErrorIs(t, err, mesh.ErrIO)
}

// binaryWriter builds C binary test files
type binaryWriter struct{ bytes.Buffer }

func (w *binaryWriter) record(s string) {
	var rec [RecordLength]byte
	copy(rec[:], s)
	w.Write(rec[:])
}

func (w *binaryWriter) ints(v ...int32)     { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *binaryWriter) floats(v ...float32) { _ = binary.Write(w, binary.LittleEndian, v) }

func squareBinary(w *binaryWriter) {
	w.record("description 1")
	w.record("description 2")
	w.record("node id given")
	w.record("element id off")
	w.record("extents")
	w.floats(0, 1, 0, 1, 0, 0)
	w.record("part")
	w.ints(7)
	w.record("square")
	w.record("coordinates")
	w.ints(4)
	w.ints(11, 12, 13, 14)
	w.floats(0, 1, 1, 0, 0, 0, 1, 1, 0, 0, 0, 0)
	w.record("quad4")
	w.ints(1)
	w.ints(1, 2, 3, 4)
}

// binaryPart returns a C binary geometry file opening part 1, body writes
// the rest
func binaryPart(body func(w *binaryWriter)) string {
	var w binaryWriter
	w.record(BinaryHeader)
	w.record("a")
	w.record("b")
	w.record("node id off")
	w.record("element id off")
	w.record("part")
	w.ints(1)
	w.record("p")
	body(&w)
	return w.String()
}

func TestReadBinary(t *testing.T) {
	var geo, vel binaryWriter
	geo.record(BinaryHeader)
	squareBinary(&geo)
	vel.record("velocity")
	vel.record("part")
	vel.ints(7)
	vel.record("coordinates")
	vel.floats(1, 2, 3, 4, 0, 0, 0, 0, -1, -1, -1, -1)

	dir := writeFiles(t, map[string]string{
		"b.case": "FORMAT\ntype: ensight gold\nGEOMETRY\nmodel: b.geo\nVARIABLE\nvector per node: velocity b.vel\n",
		"b.geo":  geo.String(),
		"b.vel":  vel.String(),
	})
	ft, err := DetectFileType(filepath.Join(dir, "b.geo"))
	require.NoError(t, err)
	assert.Equal(t, CBinary, ft)

	obj, err := Read(filepath.Join(dir, "b.case"))
	require.NoError(t, err)
	p := obj.PartByID(7)
	require.NotNil(t, p)
	assert.Equal(t, []int{0, 1, 2, 3}, p.CellList(0, element.Quadrangle).Indices())
	assert.Equal(t, 1.0, p.Vertex(0, 1).X)
	assert.Equal(t, []float64{4, 0, -1}, p.Variable("velocity", 0).Value(3))
}

func TestReadBinarySingleFile(t *testing.T) {
	var geo binaryWriter
	geo.record(BinaryHeader)
	for i := 0; i < 2; i++ {
		geo.record(beginTimeStep)
		squareBinary(&geo)
		geo.record(endTimeStep)
	}
	var p binaryWriter
	for i := 0; i < 2; i++ {
		f := float32(i)
		p.record(beginTimeStep)
		p.record("p")
		p.record("part")
		p.ints(7)
		p.record("coordinates")
		p.floats(f, f, f, f)
		p.record(endTimeStep)
	}
	dir := writeFiles(t, map[string]string{
		"b.case": "FORMAT\ntype: ensight gold\nGEOMETRY\nmodel: 1 1 b.geo\nVARIABLE\nscalar per node: 1 1 p b.p\n" +
			"TIME\ntime set: 1\nnumber of steps: 2\nfilename start number: 0\nfilename increment: 1\ntime values: 0 1\n" +
			"FILE\nfile set: 1\nnumber of steps: 2\n",
		"b.geo": geo.String(),
		"b.p":   p.String(),
	})
	obj, err := Read(filepath.Join(dir, "b.case"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, obj.PartByID(7).Variable("p", 1).Value(2))

	one, err := ReadStep(filepath.Join(dir, "b.case"), 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, one.PartByID(7).Variable("p", 0).Value(0))
}

func TestDetectFortran(t *testing.T) {
	var geo binaryWriter
	geo.record("Fortran Binary")
	dir := writeFiles(t, map[string]string{"f.geo": geo.String()})
	_, err := DetectFileType(filepath.Join(dir, "f.geo"))
	assert.ErrorIs(t, err, mesh.ErrParse)

	dir = writeFiles(t, map[string]string{"a.geo": "short\n"})
	ft, err := DetectFileType(filepath.Join(dir, "a.geo"))
	require.NoError(t, err)
	assert.Equal(t, ASCII, ft)
}
