package writers

import (
	"bufio"
	"encoding/binary"

	"github.com/notargets/goensight/mesh"
)

const (
	recordLength = 80
	binaryHeader = "C Binary"
)

// The binary encoders write through bw and ignore its errors, bufio keeps
// the first one and Flush returns it.

// writeRecord writes s NUL padded to a full record, longer text is cut
func writeRecord(bw *bufio.Writer, s string) {
	var rec [recordLength]byte
	copy(rec[:], s)
	bw.Write(rec[:])
}

func writeInts(bw *bufio.Writer, v ...int32) {
	_ = binary.Write(bw, binary.LittleEndian, v)
}

func writeFloats(bw *bufio.Writer, data []float64) {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v)
	}
	_ = binary.Write(bw, binary.LittleEndian, out)
}

// binaryGeometry writes a geometry file after its C Binary header record
func binaryGeometry(bw *bufio.Writer, obj *mesh.Object, step int) {
	writeRecord(bw, "EnSight Gold geometry")
	writeRecord(bw, "written by goensight")
	writeRecord(bw, "node id assign")
	writeRecord(bw, "element id assign")
	for _, p := range obj.Parts() {
		writeRecord(bw, "part")
		writeInts(bw, int32(p.ID))
		writeRecord(bw, p.Name)
		n := p.VertexCount(step)
		if n == 0 {
			continue
		}
		writeRecord(bw, "coordinates")
		writeInts(bw, int32(n))
		writeFloats(bw, rowMajor(p.Vertices(step)))
		for _, cl := range p.Cells(step) {
			writeRecord(bw, cl.Type().Keyword())
			writeInts(bw, int32(cl.Len()))
			idx := make([]int32, len(cl.Indices()))
			for i, v := range cl.Indices() {
				idx[i] = int32(v + 1)
			}
			writeInts(bw, idx...)
		}
	}
}

// binaryVariable writes the parts holding v at step, others are left out
func binaryVariable(bw *bufio.Writer, obj *mesh.Object, v mesh.VariableID, step int) {
	writeRecord(bw, v.Name)
	for _, p := range obj.Parts() {
		pv := p.Variable(v.Name, step)
		if pv == nil {
			continue
		}
		writeRecord(bw, "part")
		writeInts(bw, int32(p.ID))
		writeRecord(bw, "coordinates")
		writeFloats(bw, rowMajor(pv.Values()))
	}
}
