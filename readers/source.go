package readers

import (
	"os"

	"github.com/notargets/goensight/mesh"
)

// source reads the time step data of one case file entry, either from one
// file per step or from the blocks of a single file
type source struct {
	path   func(step int) (string, error)
	single bool
	binary bool
	header bool // Binary geometry files open with a C Binary record

	f    *os.File
	lr   *lineReader
	rr   *recordReader
	next int // Next block of a single file
}

func newSource(c *Case, e FileEntry, ft FileType, header bool) *source {
	return &source{
		path:   func(step int) (string, error) { return c.Resolve(e, step) },
		single: e.SingleFile(),
		binary: ft == CBinary,
		header: header,
	}
}

func (s *source) open(step int) error {
	s.close()
	path, err := s.path(step)
	if err != nil {
		return err
	}
	logger().WithField("file", path).Debug("reading")
	f, err := os.Open(path)
	if err != nil {
		return mesh.IOError(path, err)
	}
	s.f, s.next = f, 0
	if !s.binary {
		s.lr = newLineReader(f, path)
		return nil
	}
	s.rr = newRecordReader(f, path)
	if s.header {
		return s.rr.expectHeader()
	}
	return nil
}

func (s *source) close() {
	if s.f != nil {
		s.f.Close()
	}
	s.f, s.lr, s.rr = nil, nil, nil
}

// read positions the source at step and calls decode. In a single file
// every block from the current position up to step is decoded in order,
// decode is told which step each block belongs to.
func (s *source) read(step int, decode func(step int) error) error {
	if !s.single {
		defer s.close()
		if err := s.open(step); err != nil {
			return err
		}
		return decode(step)
	}
	if s.f == nil || s.next > step {
		if err := s.open(step); err != nil {
			return err
		}
	}
	for ; s.next <= step; s.next++ {
		if err := s.expectBegin(); err != nil {
			return err
		}
		if err := decode(s.next); err != nil {
			return err
		}
	}
	return nil
}

func (s *source) expectBegin() error {
	if s.binary {
		return s.rr.expectBegin()
	}
	return s.lr.expectBegin()
}

func (s *source) geometry() (*geometryBlock, error) {
	if s.binary {
		return decodeBinaryGeometry(s.rr, s.single)
	}
	return decodeASCIIGeometry(s.lr, s.single)
}

func (s *source) variable(dim int, counts map[int]int) (*variableBlock, error) {
	if s.binary {
		return decodeBinaryVariable(s.rr, dim, counts, s.single)
	}
	return decodeASCIIVariable(s.lr, dim, counts, s.single)
}
