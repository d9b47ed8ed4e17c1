package writers

import (
	"bufio"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/mesh"
)

// ASCII layout: integers in 10 wide fields, floats as %12.5e, one value
// per line except cell connectivity which has one cell per line.
const (
	intFormat   = "%10d"
	floatFormat = "%12.5e\n"
)

func asciiGeometry(bw *bufio.Writer, obj *mesh.Object, step int) {
	fmt.Fprintln(bw, "EnSight Gold geometry")
	fmt.Fprintf(bw, "time step %d\n", step)
	fmt.Fprintln(bw, "node id assign")
	fmt.Fprintln(bw, "element id assign")
	for _, p := range obj.Parts() {
		fmt.Fprintln(bw, "part")
		fmt.Fprintf(bw, intFormat+"\n", p.ID)
		fmt.Fprintln(bw, p.Name)
		n := p.VertexCount(step)
		if n == 0 {
			continue
		}
		fmt.Fprintln(bw, "coordinates")
		fmt.Fprintf(bw, intFormat+"\n", n)
		writeASCIIRows(bw, rowMajor(p.Vertices(step)))
		for _, cl := range p.Cells(step) {
			fmt.Fprintln(bw, cl.Type().Keyword())
			fmt.Fprintf(bw, intFormat+"\n", cl.Len())
			for i := 0; i < cl.Len(); i++ {
				for _, v := range cl.Cell(i) {
					fmt.Fprintf(bw, intFormat, v+1)
				}
				fmt.Fprintln(bw)
			}
		}
	}
}

// asciiVariable writes the parts holding v at step, others are left out
func asciiVariable(bw *bufio.Writer, obj *mesh.Object, v mesh.VariableID, step int) {
	fmt.Fprintln(bw, v.Name)
	for _, p := range obj.Parts() {
		pv := p.Variable(v.Name, step)
		if pv == nil {
			continue
		}
		fmt.Fprintln(bw, "part")
		fmt.Fprintf(bw, intFormat+"\n", p.ID)
		fmt.Fprintln(bw, "coordinates")
		writeASCIIRows(bw, rowMajor(pv.Values()))
	}
}

func writeASCIIRows(bw *bufio.Writer, data []float64) {
	for _, v := range data {
		fmt.Fprintf(bw, floatFormat, v)
	}
}

// rowMajor flattens m row by row. For 3 x N coordinates and dim x N values
// this is the component major order of the file formats.
func rowMajor(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
