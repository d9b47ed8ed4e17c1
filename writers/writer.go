// Package writers stores mesh objects as EnSight Gold case files with ASCII
// or C binary geometry and variable files.
package writers

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/notargets/goensight/mesh"
)

const (
	beginTimeStep = "BEGIN TIME STEP"
	endTimeStep   = "END TIME STEP"
)

// Options control the output encoding and which steps are written
type Options struct {
	Binary     bool // C binary instead of ASCII data files
	Step       int  // Single step to write, -1 for all
	SingleFile bool // All steps of a transient object in one file per entry
}

// DefaultOptions writes all steps as ASCII, one file per step
func DefaultOptions() Options { return Options{Step: -1} }

// Write stores obj at path, the case file name. With step >= 0 only the
// data files of that step are written, the case file only for steps 0 and
// -1.
func Write(obj *mesh.Object, path string, binary bool, step int) error {
	return WriteOptions(obj, path, Options{Binary: binary, Step: step})
}

// WriteOptions is Write with all output options
func WriteOptions(obj *mesh.Object, path string, opts Options) error {
	if obj.IsEditing() {
		return fmt.Errorf("Write: %w", mesh.ErrEditing)
	}
	n := obj.NumTimesteps()
	if opts.Step < -1 || opts.Step >= n {
		return mesh.Structuralf("Write: time step %d out of range, object has %d", opts.Step, n)
	}
	single := opts.SingleFile && obj.IsTransient()
	if single && opts.Step >= 0 {
		return mesh.Structuralf("Write: single file output writes all time steps")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mesh.IOError(dir, err)
	}

	w := &writer{
		obj:    obj,
		dir:    dir,
		name:   baseName(path),
		single: single,
		binary: opts.Binary,
		log:    mesh.Logger().WithField("case", path),
	}
	if obj.IsTransient() && !single {
		w.width = len(strconv.Itoa(n))
	}
	if opts.Step <= 0 {
		if err := w.writeCase(path); err != nil {
			return err
		}
	}
	steps := []int{opts.Step}
	if opts.Step < 0 {
		steps = make([]int, n)
		for i := range steps {
			steps[i] = i
		}
	}

	if err := w.writeFiles(w.name+".geo", steps, w.geometry); err != nil {
		return err
	}
	for _, v := range obj.Variables() {
		err := w.writeFiles(w.name+"."+v.Name, steps, func(bw *bufio.Writer, step int) {
			w.variable(bw, v, step)
		})
		if err != nil {
			return err
		}
	}
	w.log.WithFields(obj.Fields()).Debug("case written")
	return nil
}

// baseName strips the directory and the last extension
func baseName(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

type writer struct {
	obj    *mesh.Object
	dir    string
	name   string
	single bool
	binary bool
	width  int // Digits of the step suffix, 0 for static objects
	log    logrus.FieldLogger
}

// wildcards returns the run of '*' matching the step suffix
func (w *writer) wildcards() string { return strings.Repeat("*", w.width) }

func (w *writer) fileName(base string, step int) string {
	if w.width == 0 {
		return base
	}
	return fmt.Sprintf("%s%0*d", base, w.width, step)
}

// writeFiles writes base for every step, into one file per step or into
// time step blocks of a single file
func (w *writer) writeFiles(base string, steps []int, encode func(*bufio.Writer, int)) error {
	isGeometry := strings.HasSuffix(base, ".geo")
	if w.single {
		return w.create(base, func(bw *bufio.Writer) {
			if w.binary && isGeometry {
				writeRecord(bw, binaryHeader)
			}
			for _, step := range steps {
				w.marker(bw, beginTimeStep)
				encode(bw, step)
				w.marker(bw, endTimeStep)
			}
		})
	}
	for _, step := range steps {
		err := w.create(w.fileName(base, step), func(bw *bufio.Writer) {
			if w.binary && isGeometry {
				writeRecord(bw, binaryHeader)
			}
			encode(bw, step)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) create(name string, fill func(*bufio.Writer)) error {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return mesh.IOError(path, err)
	}
	bw := bufio.NewWriterSize(f, 1<<16)
	fill(bw)
	if err := bw.Flush(); err != nil {
		f.Close()
		return mesh.IOError(path, err)
	}
	if err := f.Close(); err != nil {
		return mesh.IOError(path, err)
	}
	w.log.WithField("file", path).Debug("written")
	return nil
}

func (w *writer) marker(bw *bufio.Writer, s string) {
	if w.binary {
		writeRecord(bw, s)
		return
	}
	fmt.Fprintln(bw, s)
}

func (w *writer) geometry(bw *bufio.Writer, step int) {
	if w.binary {
		binaryGeometry(bw, w.obj, step)
		return
	}
	asciiGeometry(bw, w.obj, step)
}

func (w *writer) variable(bw *bufio.Writer, v mesh.VariableID, step int) {
	if w.binary {
		binaryVariable(bw, w.obj, v, step)
		return
	}
	asciiVariable(bw, w.obj, v, step)
}
