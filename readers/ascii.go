package readers

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/mesh"
)

const (
	beginTimeStep = "BEGIN TIME STEP"
	endTimeStep   = "END TIME STEP"
	fieldWidth    = 10 // Width of integer fields in ASCII files
)

type lineReader struct {
	sc   *bufio.Scanner
	path string
	line int
}

func newLineReader(r io.Reader, path string) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &lineReader{sc: sc, path: path}
}

// next returns the next raw line, false at the end of the input
func (r *lineReader) next() (string, bool, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", false, mesh.IOError(r.path, err)
		}
		return "", false, nil
	}
	r.line++
	return r.sc.Text(), true, nil
}

func (r *lineReader) errorf(format string, args ...interface{}) error {
	args = append([]interface{}{r.path, r.line}, args...)
	return mesh.Parsef("%s:%d: "+format, args...)
}

// need returns the next line trimmed, the input must not end
func (r *lineReader) need(what string) (string, error) {
	line, ok, err := r.next()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", r.errorf("unexpected end of file, %s expected", what)
	}
	return strings.TrimSpace(line), nil
}

// nextKeyword skips blank lines
func (r *lineReader) nextKeyword() (string, bool, error) {
	for {
		line, ok, err := r.next()
		if err != nil || !ok {
			return "", ok, err
		}
		if kw := strings.TrimSpace(line); kw != "" {
			return kw, true, nil
		}
	}
}

func (r *lineReader) int(what string) (int, error) {
	s, err := r.need(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, r.errorf("invalid %s %q", what, s)
	}
	return v, nil
}

// count reads a vertex or cell count
func (r *lineReader) count(what string) (int, error) {
	n, err := r.int(what)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxInt32 {
		return 0, r.errorf("%s %d out of range", what, n)
	}
	return n, nil
}

func (r *lineReader) skip(n int, what string) error {
	for i := 0; i < n; i++ {
		if _, err := r.need(what); err != nil {
			return err
		}
	}
	return nil
}

// floats reads n values, whitespace separated over one or more lines
func (r *lineReader) floats(n int, what string) ([]float64, error) {
	out := make([]float64, 0, min(n, readChunk))
	for len(out) < n {
		s, err := r.need(what)
		if err != nil {
			return nil, err
		}
		for _, tok := range strings.Fields(s) {
			if len(out) == n {
				return nil, r.errorf("too many %s values on line", what)
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, r.errorf("invalid %s value %q", what, tok)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// cellFields splits a connectivity line into n fields. Separated fields are
// accepted, otherwise the line is cut into fixed width columns.
func cellFields(line string, n int) ([]string, bool) {
	if fields := strings.Fields(line); len(fields) == n {
		return fields, true
	}
	line = strings.TrimRight(line, " \t\r")
	if len(line) < n*fieldWidth {
		return nil, false
	}
	fields := make([]string, n)
	for i := range fields {
		fields[i] = strings.TrimSpace(line[i*fieldWidth : (i+1)*fieldWidth])
	}
	return fields, true
}

// expectBegin consumes the BEGIN TIME STEP line of a single file block
func (r *lineReader) expectBegin() error {
	kw, ok, err := r.nextKeyword()
	if err != nil {
		return err
	}
	if !ok || kw != beginTimeStep {
		return r.errorf("%q expected", beginTimeStep)
	}
	return nil
}

// decodeASCIIGeometry reads a geometry file, or one time step block of a
// single file when block is set
func decodeASCIIGeometry(r *lineReader, block bool) (*geometryBlock, error) {
	if err := r.skip(2, "description line"); err != nil {
		return nil, err
	}
	var modes [2]idMode
	for i, what := range []string{"node", "element"} {
		line, err := r.need(what + " id line")
		if err != nil {
			return nil, err
		}
		if modes[i], err = parseIDMode(line, what); err != nil {
			return nil, err
		}
	}
	nodeIDs, elementIDs := modes[0], modes[1]

	g := &geometryBlock{}
	var cur *partBlock
	for {
		kw, ok, err := r.nextKeyword()
		if err != nil {
			return nil, err
		}
		if !ok {
			if block {
				return nil, r.errorf("unexpected end of file, %q expected", endTimeStep)
			}
			return g, nil
		}
		switch kw {
		case endTimeStep:
			if !block {
				return nil, r.errorf("%q outside of a time step block", kw)
			}
			return g, nil
		case "extents":
			if err := r.skip(3, "extents"); err != nil {
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
				return nil, r.errorf("coordinates before the first part")
			}
			n, err := r.count("vertex count")
			if err != nil {
				return nil, err
			}
			if nodeIDs.present() {
				if err := r.skip(n, "node id"); err != nil {
					return nil, err
				}
			}
			vals, err := r.floats(3*n, "coordinate")
			if err != nil {
				return nil, err
			}
			if n > 0 {
				cur.vertices = mat.NewDense(3, n, vals)
			}
		default:
			ct, ok := element.CellTypeFromKeyword(kw)
			if !ok {
				return nil, r.errorf("unknown cell type %q", kw)
			}
			if cur == nil {
				return nil, r.errorf("%s cells before the first part", kw)
			}
			n, err := r.count("cell count")
			if err != nil {
				return nil, err
			}
			if elementIDs.present() {
				if err := r.skip(n, "element id"); err != nil {
					return nil, err
				}
			}
			nn := ct.NumNodes()
			indices := make([]int, 0, min(n*nn, readChunk))
			for c := 0; c < n; c++ {
				line, ok, err := r.next()
				if err != nil {
					return nil, err
				}
				fields, fine := cellFields(line, nn)
				if !ok || !fine {
					return nil, r.errorf("%d vertex indices expected for %s cell %d", nn, kw, c)
				}
				for _, f := range fields {
					v, err := strconv.Atoi(f)
					if err != nil {
						return nil, r.errorf("invalid vertex index %q", f)
					}
					indices = append(indices, v-1)
				}
			}
			cur.cells = append(cur.cells, cellBlock{cellType: ct, indices: indices})
		}
	}
}

// decodeASCIIVariable reads the values of a per node variable with dim
// components. counts gives the vertex count of each part id.
func decodeASCIIVariable(r *lineReader, dim int, counts map[int]int, block bool) (*variableBlock, error) {
	if _, err := r.need("description line"); err != nil {
		return nil, err
	}
	v := &variableBlock{}
	for {
		kw, ok, err := r.nextKeyword()
		if err != nil {
			return nil, err
		}
		if !ok {
			if block {
				return nil, r.errorf("unexpected end of file, %q expected", endTimeStep)
			}
			return v, nil
		}
		switch kw {
		case endTimeStep:
			if !block {
				return nil, r.errorf("%q outside of a time step block", kw)
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
				return nil, r.errorf("%v", err)
			}
			vals, err := r.floats(dim*n, "variable")
			if err != nil {
				return nil, err
			}
			pv := partValues{id: id}
			if n > 0 {
				pv.values = mat.NewDense(dim, n, vals)
			}
			v.parts = append(v.parts, pv)
		default:
			return nil, r.errorf("unexpected line %q in variable file", kw)
		}
	}
}

func checkCoordinates(kind string) error {
	switch {
	case kind == "coordinates":
		return nil
	case strings.HasPrefix(kind, "coordinates") &&
		(strings.Contains(kind, "undef") || strings.Contains(kind, "partial")):
		return mesh.Parsef("%q: undefined and partial values are not supported", kind)
	}
	return mesh.Parsef("%q: coordinates expected", kind)
}
