package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// VarType is the kind of a case variable
type VarType uint8

const (
	ScalarPerNode VarType = iota
	VectorPerNode
	ConstantPerCase
)

var varTypeKeywords = [...]string{
	ScalarPerNode:   "scalar per node",
	VectorPerNode:   "vector per node",
	ConstantPerCase: "constant per case",
}

// Keyword returns the case file keyword, e.g. "scalar per node"
func (t VarType) Keyword() string {
	if int(t) < len(varTypeKeywords) {
		return varTypeKeywords[t]
	}
	return fmt.Sprintf("VarType(%d)", t)
}

func (t VarType) String() string { return t.Keyword() }

// Dim returns the number of components per value: 1, 3, 1
func (t VarType) Dim() int {
	if t == VectorPerNode {
		return 3
	}
	return 1
}

// VarTypeFromKeyword is the inverse of Keyword
func VarTypeFromKeyword(keyword string) (VarType, bool) {
	for t, kw := range varTypeKeywords {
		if kw == keyword {
			return VarType(t), true
		}
	}
	return 0, false
}

// VariableID names a mesh variable and its type
type VariableID struct {
	Name string
	Type VarType
}

func (v VariableID) Dim() int { return v.Type.Dim() }

// Variable holds the per vertex values of one variable on one part at one
// time step
type Variable struct {
	VariableID
	values *mat.Dense
	bounds *mat.Dense
}

// NewVariable copies values (Dim x N, N > 0) and derives the bounds
func NewVariable(id VariableID, values mat.Matrix) (*Variable, error) {
	if values == nil {
		return nil, Structuralf("variable %q: no values", id.Name)
	}
	r, c := values.Dims()
	if r != id.Dim() {
		return nil, Structuralf("variable %q of type %s needs %d rows, got %d",
			id.Name, id.Type, id.Dim(), r)
	}
	if c == 0 {
		return nil, Structuralf("variable %q: no values", id.Name)
	}
	v := &Variable{VariableID: id, values: mat.DenseCopyOf(values)}
	v.bounds = valueBounds(v.values)
	return v, nil
}

// Values returns the Dim x N value matrix, not a copy
func (v *Variable) Values() *mat.Dense { return v.values }

// Len returns the number of values (columns)
func (v *Variable) Len() int {
	_, c := v.values.Dims()
	return c
}

// Value returns the components of value i
func (v *Variable) Value(i int) []float64 {
	return mat.Col(nil, i, v.values)
}

// Bounds returns min (column 0) and max (column 1) per component. Vector
// variables carry a fourth row with the magnitude range.
func (v *Variable) Bounds() *mat.Dense { return v.bounds }

func valueBounds(values *mat.Dense) *mat.Dense {
	r, c := values.Dims()
	rows := r
	if r == 3 {
		rows = 4
	}
	bounds := mat.NewDense(rows, 2, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, values)
		bounds.Set(i, 0, floats.Min(row))
		bounds.Set(i, 1, floats.Max(row))
	}
	if r == 3 {
		for j := 0; j < c; j++ {
			x, y, z := values.At(0, j), values.At(1, j), values.At(2, j)
			row[j] = math.Sqrt(x*x + y*y + z*z)
		}
		bounds.Set(3, 0, floats.Min(row))
		bounds.Set(3, 1, floats.Max(row))
	}
	return bounds
}

// mergeBounds widens acc by b in place, acc nil returns a copy of b
func mergeBounds(acc, b *mat.Dense) *mat.Dense {
	if acc == nil {
		return mat.DenseCopyOf(b)
	}
	r, _ := acc.Dims()
	for i := 0; i < r; i++ {
		acc.Set(i, 0, math.Min(acc.At(i, 0), b.At(i, 0)))
		acc.Set(i, 1, math.Max(acc.At(i, 1), b.At(i, 1)))
	}
	return acc
}

// Constant is a named scalar stored at mesh scope
type Constant struct {
	Name  string
	Value float64
}
