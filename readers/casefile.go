package readers

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notargets/goensight/mesh"
)

// FileEntry is a file reference of the GEOMETRY or VARIABLE section. Zero
// TimeSet / FileSet mean the reference carries none.
type FileEntry struct {
	Name    string
	TimeSet int
	FileSet int
}

// SingleFile reports whether all steps live in one file
func (e FileEntry) SingleFile() bool { return e.FileSet > 0 }

// VariableEntry declares a per node variable and its file
type VariableEntry struct {
	FileEntry
	ID mesh.VariableID
}

// TimeSet is the TIME section
type TimeSet struct {
	ID                int
	Steps             int
	FilenameStart     int
	FilenameIncrement int
	Values            []float64
}

// FileSet is the FILE section
type FileSet struct {
	ID    int
	Steps int
}

// Case is the parsed case (master) file
type Case struct {
	Path      string // Case file location, data files are relative to its directory
	Model     FileEntry
	Variables []VariableEntry
	Constants []mesh.Constant
	Time      *TimeSet
	Files     *FileSet
}

// NumSteps returns the number of time steps, 1 without a TIME section
func (c *Case) NumSteps() int {
	if c.Time == nil {
		return 1
	}
	return c.Time.Steps
}

// Times returns the time values, {0} without a TIME section
func (c *Case) Times() []float64 {
	if c.Time == nil {
		return []float64{0}
	}
	return append([]float64(nil), c.Time.Values...)
}

// IsTransient reports whether the case has more than one step
func (c *Case) IsTransient() bool { return c.NumSteps() > 1 }

// FileNumber returns the number substituted into wildcards for step
func (c *Case) FileNumber(step int) int {
	if c.Time == nil {
		return step
	}
	return c.Time.FilenameStart + step*c.Time.FilenameIncrement
}

// Resolve returns the path of e for step. Entries with a time set have
// their wildcards expanded, single file entries and entries without a time
// set name the same file for every step and must not contain wildcards.
func (c *Case) Resolve(e FileEntry, step int) (string, error) {
	name := e.Name
	var err error
	if e.TimeSet > 0 && !e.SingleFile() {
		name, err = ExpandWildcards(name, c.FileNumber(step))
	} else {
		err = CheckWildcards(name, -1)
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(c.Path), name), nil
}

var sectionKeywords = []string{"FORMAT", "GEOMETRY", "VARIABLE", "TIME", "FILE"}

func isSection(line string) bool {
	for _, s := range sectionKeywords {
		if line == s {
			return true
		}
	}
	return false
}

var timeSetFields = []string{
	"time set", "number of steps", "filename start number", "filename increment", "time values",
}

// ParseCaseFile reads and parses the case file at path
func ParseCaseFile(path string) (*Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mesh.IOError(path, err)
	}
	defer f.Close()
	c, err := ParseCase(f)
	if err != nil {
		return nil, err
	}
	c.Path = path
	logger().WithField("file", path).Debug("parsed case file")
	return c, nil
}

// ParseCase parses case file text. Comments and blank lines are dropped
// first, lines outside known sections are ignored.
func ParseCase(r io.Reader) (*Case, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, mesh.IOError("case", err)
	}

	p := &caseParser{lines: lines, c: &Case{}}
	for p.more() {
		var err error
		switch p.take() {
		case "FORMAT":
			err = p.format()
		case "GEOMETRY":
			err = p.geometry()
		case "VARIABLE":
			err = p.variables()
		case "TIME":
			err = p.timeSet()
		case "FILE":
			err = p.fileSet()
		}
		if err != nil {
			return nil, err
		}
	}
	if err := p.c.validate(); err != nil {
		return nil, err
	}
	return p.c, nil
}

type caseParser struct {
	lines []string
	pos   int
	c     *Case
}

func (p *caseParser) more() bool { return p.pos < len(p.lines) }

func (p *caseParser) take() string {
	line := p.lines[p.pos]
	p.pos++
	return line
}

// field takes the next line, which must start with key, and returns the
// text after its colon
func (p *caseParser) field(section, key string) (string, error) {
	if !p.more() || isSection(p.lines[p.pos]) {
		return "", mesh.Parsef("%s section: %q expected", section, key)
	}
	line := p.take()
	i := strings.Index(line, ":")
	if !strings.HasPrefix(line, key) || i < 0 {
		return "", mesh.Parsef("%s section: unknown keyword or missing ':' in line %q, %q expected",
			section, line, key)
	}
	return strings.TrimSpace(line[i+1:]), nil
}

func (p *caseParser) format() error {
	value, err := p.field("FORMAT", "type")
	if err != nil {
		return err
	}
	if value != "ensight gold" {
		return mesh.Parsef("unknown format %q, only \"ensight gold\" is supported", value)
	}
	return nil
}

func (p *caseParser) geometry() error {
	value, err := p.field("GEOMETRY", "model")
	if err != nil {
		return err
	}
	if strings.Contains(value, "change_coords_only") {
		return mesh.Parsef("GEOMETRY section: change_coords_only is not supported")
	}
	e, rest, err := splitSets(strings.Fields(value), 1)
	if err != nil {
		return mesh.Parsef("GEOMETRY section, line %q: %v", value, err)
	}
	e.Name = strings.Join(rest, " ")
	p.c.Model = e
	return nil
}

// splitSets consumes up to two leading integer tokens as time set and file
// set while more than keep tokens remain
func splitSets(tokens []string, keep int) (FileEntry, []string, error) {
	var e FileEntry
	if len(tokens) < keep {
		return e, nil, mesh.Parsef("at least %d fields expected", keep)
	}
	for _, dst := range []*int{&e.TimeSet, &e.FileSet} {
		if len(tokens) <= keep {
			break
		}
		v, err := strconv.Atoi(tokens[0])
		if err != nil {
			break
		}
		*dst = v
		tokens = tokens[1:]
	}
	if len(tokens) != keep {
		return e, nil, mesh.Parsef("%d fields expected after the sets, got %d", keep, len(tokens))
	}
	return e, tokens, nil
}

func (p *caseParser) variables() error {
	for p.more() && !isSection(p.lines[p.pos]) {
		line := p.take()
		i := strings.Index(line, ":")
		if i < 0 {
			return mesh.Parsef("VARIABLE section: missing ':' in line %q", line)
		}
		vt, ok := mesh.VarTypeFromKeyword(strings.TrimSpace(line[:i]))
		if !ok {
			return mesh.Parsef("VARIABLE section: unsupported variable type in line %q", line)
		}
		tokens := strings.Fields(line[i+1:])
		if vt == mesh.ConstantPerCase {
			if len(tokens) < 2 {
				return mesh.Parsef("VARIABLE section: name and value expected in line %q", line)
			}
			offset := 0
			if len(tokens) > 2 {
				offset = 1
			}
			value, err := strconv.ParseFloat(tokens[offset+1], 64)
			if err != nil {
				return mesh.Parsef("VARIABLE section: invalid constant value in line %q", line)
			}
			p.c.Constants = append(p.c.Constants, mesh.Constant{Name: tokens[offset], Value: value})
			continue
		}
		e, rest, err := splitSets(tokens, 2)
		if err != nil {
			return mesh.Parsef("VARIABLE section, line %q: %v", line, err)
		}
		e.Name = rest[1]
		p.c.Variables = append(p.c.Variables, VariableEntry{
			FileEntry: e,
			ID:        mesh.VariableID{Name: rest[0], Type: vt},
		})
	}
	return nil
}

func (p *caseParser) timeSet() error {
	ts := &TimeSet{}
	ints := []*int{&ts.ID, &ts.Steps, &ts.FilenameStart, &ts.FilenameIncrement}
	for k, key := range timeSetFields {
		value, err := p.field("TIME", key)
		if err != nil {
			return err
		}
		if k < len(ints) {
			v, err := strconv.Atoi(value)
			if err != nil {
				return mesh.Parsef("TIME section: invalid %s %q", key, value)
			}
			*ints[k] = v
			continue
		}
		if ts.ID != 1 {
			return mesh.Parsef("TIME section: only time set 1 is supported, got %d", ts.ID)
		}
		if ts.Steps < 1 {
			return mesh.Parsef("TIME section: invalid number of steps %d", ts.Steps)
		}
		ts.Values = make([]float64, 0, ts.Steps)
		tokens := strings.Fields(value)
		for {
			for _, tok := range tokens {
				if len(ts.Values) == ts.Steps {
					return mesh.Parsef("TIME section: more than %d time values", ts.Steps)
				}
				v, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return mesh.Parsef("TIME section: invalid time value %q", tok)
				}
				ts.Values = append(ts.Values, v)
			}
			if len(ts.Values) == ts.Steps {
				break
			}
			if !p.more() || isSection(p.lines[p.pos]) {
				return mesh.Parsef("TIME section: %d time values expected, found %d",
					ts.Steps, len(ts.Values))
			}
			tokens = strings.Fields(p.take())
		}
	}
	p.c.Time = ts
	return nil
}

func (p *caseParser) fileSet() error {
	fs := &FileSet{}
	for _, f := range []struct {
		key string
		dst *int
	}{{"file set", &fs.ID}, {"number of steps", &fs.Steps}} {
		value, err := p.field("FILE", f.key)
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			return mesh.Parsef("FILE section: invalid %s %q", f.key, value)
		}
		*f.dst = v
	}
	if fs.ID != 1 {
		return mesh.Parsef("FILE section: only file set 1 is supported, got %d", fs.ID)
	}
	// Optional per file set lines such as "filename index" are skipped
	for p.more() && !isSection(p.lines[p.pos]) {
		p.take()
	}
	p.c.Files = fs
	return nil
}

func (c *Case) validate() error {
	if c.Model.Name == "" {
		return mesh.Parsef("GEOMETRY section not found")
	}
	if c.Files != nil {
		if c.Time == nil {
			return mesh.Parsef("FILE section without TIME section")
		}
		if c.Files.Steps != c.Time.Steps {
			return mesh.Parsef("file set has %d steps, time set has %d", c.Files.Steps, c.Time.Steps)
		}
	}
	entries := []FileEntry{c.Model}
	for _, v := range c.Variables {
		entries = append(entries, v.FileEntry)
	}
	for _, e := range entries {
		if e.TimeSet != 0 && (c.Time == nil || e.TimeSet != c.Time.ID) {
			return mesh.Parsef("%q references undefined time set %d", e.Name, e.TimeSet)
		}
		if e.FileSet != 0 && (c.Files == nil || e.FileSet != c.Files.ID) {
			return mesh.Parsef("%q references undefined file set %d", e.Name, e.FileSet)
		}
	}
	return nil
}
