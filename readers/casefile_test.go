package readers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/goensight/mesh"
)

const transientCase = `# written by hand
FORMAT
type:  ensight gold   # trailing comment

GEOMETRY
model: 1 flow.geo**

VARIABLE
constant per case:   gamma 1.4
constant per case: 1 mach 0.8 0.9
scalar per node:   1  pressure flow.p**
vector per node:   velocity flow.v

TIME
time set: 1
number of steps: 3
filename start number: 1
filename increment: 2
time values: 0.0
 0.5
 1.0
`

func TestParseCase(t *testing.T) {
	c, err := ParseCase(strings.NewReader(transientCase))
	require.NoError(t, err)

	assert.Equal(t, FileEntry{Name: "flow.geo**", TimeSet: 1}, c.Model)
	assert.Equal(t, []mesh.Constant{{Name: "gamma", Value: 1.4}, {Name: "mach", Value: 0.8}}, c.Constants)
	require.Len(t, c.Variables, 2)
	assert.Equal(t, mesh.VariableID{Name: "pressure", Type: mesh.ScalarPerNode}, c.Variables[0].ID)
	assert.Equal(t, FileEntry{Name: "flow.p**", TimeSet: 1}, c.Variables[0].FileEntry)
	assert.Equal(t, mesh.VariableID{Name: "velocity", Type: mesh.VectorPerNode}, c.Variables[1].ID)
	assert.Equal(t, 0, c.Variables[1].TimeSet)

	assert.Equal(t, 3, c.NumSteps())
	assert.True(t, c.IsTransient())
	assert.Equal(t, []float64{0, 0.5, 1}, c.Times())
	assert.Equal(t, 5, c.FileNumber(2))

	c.Path = "/data/flow.case"
	p, err := c.Resolve(c.Model, 1)
	require.NoError(t, err)
	assert.Equal(t, "/data/flow.geo03", p)
	p, err = c.Resolve(c.Variables[1].FileEntry, 2)
	require.NoError(t, err)
	assert.Equal(t, "/data/flow.v", p)
}

func TestParseCaseFileSet(t *testing.T) {
	text := `FORMAT
type: ensight gold
GEOMETRY
model: 1 1 flow.geo
VARIABLE
scalar per node: 1 1 p flow.p
TIME
time set: 1
number of steps: 2
filename start number: 0
filename increment: 1
time values: 0 1
FILE
file set: 1
number of steps: 2
`
	c, err := ParseCase(strings.NewReader(text))
	require.NoError(t, err)
	assert.True(t, c.Model.SingleFile())
	assert.True(t, c.Variables[0].SingleFile())
	assert.Equal(t, &FileSet{ID: 1, Steps: 2}, c.Files)
}

func TestParseCaseErrors(t *testing.T) {
	const (
		format   = "FORMAT\ntype: ensight gold\n"
		geometry = "GEOMETRY\nmodel: m.geo\n"
		timeHead = "TIME\ntime set: 1\nnumber of steps: 2\nfilename start number: 0\nfilename increment: 1\n"
	)
	tests := []struct {
		name string
		text string
	}{
		{"no geometry", format},
		{"wrong format", "FORMAT\ntype: ensight\n" + geometry},
		{"missing type", "FORMAT\n" + geometry},
		{"bad model line", format + "GEOMETRY\nmeasured: m.geo\n"},
		{"unsupported variable", format + geometry + "VARIABLE\ntensor symm per node: t m.t\n"},
		{"missing colon", format + geometry + "VARIABLE\nscalar per node p m.p\n"},
		{"too few values", format + geometry + timeHead + "time values: 0\n"},
		{"too many values", format + geometry + timeHead + "time values: 0 1 2\n"},
		{"time set 2", format + geometry + "TIME\ntime set: 2\nnumber of steps: 1\nfilename start number: 0\nfilename increment: 1\ntime values: 0\n"},
		{"field order", format + geometry + "TIME\nnumber of steps: 1\ntime set: 1\n"},
		{"undefined time set", format + "GEOMETRY\nmodel: 1 m.geo*\n"},
		{"file set steps", format + "GEOMETRY\nmodel: 1 1 m.geo\n" + timeHead + "time values: 0 1\nFILE\nfile set: 1\nnumber of steps: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCase(strings.NewReader(tt.text))
			assert.ErrorIs(t, err, mesh.ErrParse)
		})
	}
}

func TestParseCaseFileMissing(t *testing.T) {
	_, err := ParseCaseFile("/nonexistent/x.case")
	assert.ErrorIs(t, err, mesh.ErrIO)
}
