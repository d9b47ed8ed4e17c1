package readers

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/mesh"
)

// RecordLength is the size of a binary string record
const RecordLength = 80

// BinaryHeader is the first record of a C binary geometry file
const BinaryHeader = "C Binary"

func trimRecord(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(string(b), " \t\r\n")
}

type recordReader struct {
	r    *bufio.Reader
	path string
}

func newRecordReader(r io.Reader, path string) *recordReader {
	return &recordReader{r: bufio.NewReaderSize(r, 1<<16), path: path}
}

func (r *recordReader) truncated(what string) error {
	return mesh.Parsef("%s: unexpected end of file reading %s", r.path, what)
}

// record reads a string record, io.EOF when the input ends before it
func (r *recordReader) record() (string, error) {
	var buf [RecordLength]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		switch {
		case err == io.EOF:
			return "", io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return "", r.truncated("string record")
		}
		return "", mesh.IOError(r.path, err)
	}
	return trimRecord(buf[:]), nil
}

func (r *recordReader) need(what string) (string, error) {
	s, err := r.record()
	if err == io.EOF {
		return "", r.truncated(what)
	}
	return s, err
}

func (r *recordReader) read(data interface{}, what string) error {
	if err := binary.Read(r.r, binary.LittleEndian, data); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return r.truncated(what)
		}
		return mesh.IOError(r.path, err)
	}
	return nil
}

func (r *recordReader) int(what string) (int, error) {
	var v int32
	err := r.read(&v, what)
	return int(v), err
}

// count reads a vertex or cell count
func (r *recordReader) count(what string) (int, error) {
	n, err := r.int(what)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, mesh.Parsef("%s: negative %s %d", r.path, what, n)
	}
	return n, nil
}

// readChunk bounds the values read per call, so a count larger than the
// file fails at its end instead of allocating up front
const readChunk = 1 << 16

func (r *recordReader) ints(n int, what string) ([]int32, error) {
	out := make([]int32, 0, min(n, readChunk))
	buf := make([]int32, min(n, readChunk))
	for len(out) < n {
		b := buf[:min(n-len(out), readChunk)]
		if err := r.read(b, what); err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (r *recordReader) floats(n int, what string) ([]float64, error) {
	out := make([]float64, 0, min(n, readChunk))
	buf := make([]float32, min(n, readChunk))
	for len(out) < n {
		b := buf[:min(n-len(out), readChunk)]
		if err := r.read(b, what); err != nil {
			return nil, err
		}
		for _, v := range b {
			out = append(out, float64(v))
		}
	}
	return out, nil
}

func (r *recordReader) expectHeader() error {
	head, err := r.need("header")
	if err != nil {
		return err
	}
	if !strings.EqualFold(head, BinaryHeader) {
		return mesh.Parsef("%s: %q expected, found %q", r.path, BinaryHeader, head)
	}
	return nil
}

func (r *recordReader) expectBegin() error {
	rec, err := r.need(beginTimeStep)
	if err != nil {
		return err
	}
	if rec != beginTimeStep {
		return mesh.Parsef("%s: %q expected, found %q", r.path, beginTimeStep, rec)
	}
	return nil
}

// decodeBinaryGeometry reads a C binary geometry file without its header
// record, or one time step block of a single file when block is set
func decodeBinaryGeometry(r *recordReader, block bool) (*geometryBlock, error) {
	for i := 0; i < 2; i++ {
		if _, err := r.need("description"); err != nil {
			return nil, err
		}
	}
	var modes [2]idMode
	for i, what := range []string{"node", "element"} {
		rec, err := r.need(what + " id record")
		if err != nil {
			return nil, err
		}
		if modes[i], err = parseIDMode(rec, what); err != nil {
			return nil, err
		}
	}
	nodeIDs, elementIDs := modes[0], modes[1]

	g := &geometryBlock{}
	var cur *partBlock
	for {
		kw, err := r.record()
		if err == io.EOF {
			if block {
				return nil, r.truncated(endTimeStep)
			}
			return g, nil
		}
		if err != nil {
			return nil, err
		}
		switch kw {
		case endTimeStep:
			if !block {
				return nil, mesh.Parsef("%s: %q outside of a time step block", r.path, kw)
			}
			return g, nil
		case "extents":
			if _, err := r.floats(6, "extents"); err != nil {
				return nil, err
			}
		case "part":
			id, err := r.int("part id")
			if err != nil {
				return nil, err
			}
			name, err := r.need("part name")
			if err != nil {
				return nil, err
			}
			cur = &partBlock{id: id, name: name}
			g.parts = append(g.parts, cur)
		case "coordinates":
			if cur == nil {
				return nil, mesh.Parsef("%s: coordinates before the first part", r.path)
			}
			n, err := r.count("vertex count")
			if err != nil {
				return nil, err
			}
			if nodeIDs.present() {
				if _, err := r.ints(n, "node ids"); err != nil {
					return nil, err
				}
			}
			vals, err := r.floats(3*n, "coordinates")
			if err != nil {
				return nil, err
			}
			if n > 0 {
				cur.vertices = mat.NewDense(3, n, vals)
			}
		default:
			ct, ok := element.CellTypeFromKeyword(kw)
			if !ok {
				return nil, mesh.Parsef("%s: unknown cell type %q", r.path, kw)
			}
			if cur == nil {
				return nil, mesh.Parsef("%s: %s cells before the first part", r.path, kw)
			}
			n, err := r.count("cell count")
			if err != nil {
				return nil, err
			}
			if elementIDs.present() {
				if _, err := r.ints(n, "element ids"); err != nil {
					return nil, err
				}
			}
			raw, err := r.ints(n*ct.NumNodes(), kw+" connectivity")
			if err != nil {
				return nil, err
			}
			indices := make([]int, len(raw))
			for i, v := range raw {
				indices[i] = int(v) - 1
			}
			cur.cells = append(cur.cells, cellBlock{cellType: ct, indices: indices})
		}
	}
}

// decodeBinaryVariable reads a C binary per node variable file
func decodeBinaryVariable(r *recordReader, dim int, counts map[int]int, block bool) (*variableBlock, error) {
	if _, err := r.need("description"); err != nil {
		return nil, err
	}
	v := &variableBlock{}
	for {
		kw, err := r.record()
		if err == io.EOF {
			if block {
				return nil, r.truncated(endTimeStep)
			}
			return v, nil
		}
		if err != nil {
			return nil, err
		}
		switch kw {
		case endTimeStep:
			if !block {
				return nil, mesh.Parsef("%s: %q outside of a time step block", r.path, kw)
			}
			return v, nil
		case "part":
			id, err := r.int("part id")
			if err != nil {
				return nil, err
			}
			n, known := counts[id]
			if !known {
				return nil, mesh.Structuralf("%s: variable data for unknown part id %d", r.path, id)
			}
			kind, err := r.need("coordinates")
			if err != nil {
				return nil, err
			}
			if err := checkCoordinates(kind); err != nil {
				return nil, err
			}
			vals, err := r.floats(dim*n, "variable values")
			if err != nil {
				return nil, err
			}
			pv := partValues{id: id}
			if n > 0 {
				pv.values = mat.NewDense(dim, n, vals)
			}
			v.parts = append(v.parts, pv)
		default:
			return nil, mesh.Parsef("%s: unexpected record %q in variable file", r.path, kw)
		}
	}
}
