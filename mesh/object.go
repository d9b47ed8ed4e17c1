package mesh

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/goensight/utils"
)

// Object is an EnSight data set: parts, declared variables, constants and
// the time values. It starts in edit mode; structural mutation is only
// accepted between BeginEdit and a successful EndEdit.
type Object struct {
	parts     []*Part
	variables []VariableID
	constants []Constant
	times     []float64

	editing bool
	gen     uint64 // Bumped by BeginEdit, stales CellIDs and trees

	tree *SubdivTree
}

// NewObject returns an empty static object in edit mode
func NewObject() *Object {
	return &Object{times: []float64{0}, editing: true}
}

// BeginEdit enters edit mode. Calling it while editing is harmless.
func (o *Object) BeginEdit() {
	if !o.editing {
		o.gen++
	}
	o.editing = true
}

// EndEdit validates every part and leaves edit mode. On failure the object
// stays in edit mode and the first problem found is returned.
func (o *Object) EndEdit() error {
	if !o.editing {
		return nil
	}
	for _, p := range o.parts {
		if err := p.validate(o.variables); err != nil {
			return err
		}
	}
	o.editing = false
	return nil
}

// IsEditing reports whether the object is in edit mode
func (o *Object) IsEditing() bool { return o.editing }

func (o *Object) checkEditing(op string) error {
	if !o.editing {
		return fmt.Errorf("%s: %w", op, ErrNotEditing)
	}
	return nil
}

// CreatePart appends a part, name and id must be unique
func (o *Object) CreatePart(name string, id int) (*Part, error) {
	if err := o.checkEditing("CreatePart"); err != nil {
		return nil, err
	}
	if o.PartByName(name) != nil {
		return nil, Structuralf("part with name %q already exists", name)
	}
	if o.PartByID(id) != nil {
		return nil, Structuralf("part with id %d already exists", id)
	}
	p := newPart(o, name, id, len(o.times))
	o.parts = append(o.parts, p)
	return p, nil
}

func (o *Object) NumParts() int     { return len(o.parts) }
func (o *Object) Part(i int) *Part  { return o.parts[i] }
func (o *Object) Parts() []*Part    { return o.parts }
func (o *Object) NumTimesteps() int { return len(o.times) }

// PartByName returns the part called name or nil
func (o *Object) PartByName(name string) *Part {
	for _, p := range o.parts {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PartByID returns the part with id or nil
func (o *Object) PartByID(id int) *Part {
	for _, p := range o.parts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// MaxID returns the largest part id, -1 without parts
func (o *Object) MaxID() int {
	max := -1
	for _, p := range o.parts {
		if p.ID > max {
			max = p.ID
		}
	}
	return max
}

// SetStatic sets a single time value of 0
func (o *Object) SetStatic() error {
	if err := o.checkEditing("SetStatic"); err != nil {
		return err
	}
	o.setTimes([]float64{0})
	return nil
}

// SetTransient sets the time values, one per step. Existing parts are
// resized, data of dropped steps is discarded.
func (o *Object) SetTransient(times []float64) error {
	if err := o.checkEditing("SetTransient"); err != nil {
		return err
	}
	if len(times) == 0 {
		return Structuralf("SetTransient: no time values")
	}
	o.setTimes(append([]float64(nil), times...))
	return nil
}

// SetTransientVec is SetTransient for a gonum vector
func (o *Object) SetTransientVec(times mat.Vector) error {
	vals := make([]float64, times.Len())
	for i := range vals {
		vals[i] = times.AtVec(i)
	}
	return o.SetTransient(vals)
}

func (o *Object) setTimes(times []float64) {
	o.times = times
	for _, p := range o.parts {
		p.resize(len(times))
	}
}

// IsTransient reports whether there is more than one time step
func (o *Object) IsTransient() bool { return len(o.times) > 1 }

// Times returns a copy of the time values
func (o *Object) Times() []float64 { return append([]float64(nil), o.times...) }

// TimesVec returns the time values as a gonum vector
func (o *Object) TimesVec() *mat.VecDense {
	return mat.NewVecDense(len(o.times), o.Times())
}

// Clean drops all data of step from every part
func (o *Object) Clean(step int) error {
	if err := o.checkEditing("Clean"); err != nil {
		return err
	}
	for _, p := range o.parts {
		p.Clean(step)
	}
	return nil
}

// CreateVariable declares a per node variable. Constants are added with
// AddConstant.
func (o *Object) CreateVariable(name string, vt VarType) error {
	if err := o.checkEditing("CreateVariable"); err != nil {
		return err
	}
	if vt != ScalarPerNode && vt != VectorPerNode {
		return Structuralf("CreateVariable: %q: unsupported type %s", name, vt)
	}
	if o.HasVariable(name) {
		return Structuralf("CreateVariable: variable %q already exists", name)
	}
	o.variables = append(o.variables, VariableID{Name: name, Type: vt})
	return nil
}

// Variables returns the declared variables in creation order
func (o *Object) Variables() []VariableID {
	return append([]VariableID(nil), o.variables...)
}

// Variable returns the declaration of name
func (o *Object) Variable(name string) (VariableID, bool) {
	for _, v := range o.variables {
		if v.Name == name {
			return v, true
		}
	}
	return VariableID{}, false
}

func (o *Object) HasVariable(name string) bool {
	_, ok := o.Variable(name)
	return ok
}

// AddConstant adds a new named constant
func (o *Object) AddConstant(name string, value float64) error {
	if err := o.checkEditing("AddConstant"); err != nil {
		return err
	}
	if o.HasConstant(name) {
		return Structuralf("AddConstant: constant %q already defined", name)
	}
	o.constants = append(o.constants, Constant{Name: name, Value: value})
	return nil
}

// RemoveConstant removes an existing constant
func (o *Object) RemoveConstant(name string) error {
	if err := o.checkEditing("RemoveConstant"); err != nil {
		return err
	}
	for i, c := range o.constants {
		if c.Name == name {
			o.constants = append(o.constants[:i], o.constants[i+1:]...)
			return nil
		}
	}
	return Structuralf("RemoveConstant: constant %q not defined", name)
}

// ReplaceConstants sets new values for existing constants. Unknown names
// are logged and skipped.
func (o *Object) ReplaceConstants(values map[string]float64) error {
	if err := o.checkEditing("ReplaceConstants"); err != nil {
		return err
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		i := o.constantIndex(name)
		if i < 0 {
			log.WithField("constant", name).Warn("cannot replace unknown constant")
			continue
		}
		o.constants[i].Value = values[name]
	}
	return nil
}

func (o *Object) constantIndex(name string) int {
	for i, c := range o.constants {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (o *Object) HasConstant(name string) bool { return o.constantIndex(name) >= 0 }

// Constant returns the value of name
func (o *Object) Constant(name string) (float64, bool) {
	i := o.constantIndex(name)
	if i < 0 {
		return 0, false
	}
	return o.constants[i].Value, true
}

// Constants returns all constants in insertion order
func (o *Object) Constants() []Constant {
	return append([]Constant(nil), o.constants...)
}

// GeometryBounds returns the vertex bounds of all parts at step (all steps
// for -1), skipping parts named in exclude
func (o *Object) GeometryBounds(step int, exclude ...string) utils.Bbox {
	b := utils.NewBbox()
	for _, p := range o.parts {
		if contains(exclude, p.Name) {
			continue
		}
		b.ExtendBox(p.GeometryBounds(step))
	}
	return b
}

// VariableBounds combines the bounds of name over all parts at step (all
// steps for -1). Nil when no part has the variable.
func (o *Object) VariableBounds(name string, step int) *mat.Dense {
	var acc *mat.Dense
	for _, p := range o.parts {
		if b := p.VariableBounds(name, step); b != nil {
			acc = mergeBounds(acc, b)
		}
	}
	return acc
}

// String summarizes the object, see Print
func (o *Object) String() string {
	var sb strings.Builder
	if err := o.Print(&sb); err != nil {
		return err.Error()
	}
	return sb.String()
}

// Print writes a summary of times, constants, variables and parts. Objects
// in edit mode may be inconsistent and are refused.
func (o *Object) Print(w io.Writer) error {
	if o.editing {
		return fmt.Errorf("Print: %w", ErrEditing)
	}
	rule := strings.Repeat("-", 50)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "TIMESTEPS")
	fmt.Fprintf(w, "%v\n\n", o.times)
	fmt.Fprintln(w, "CONSTANTS")
	for _, c := range o.constants {
		fmt.Fprintf(w, "%s = %g\n", c.Name, c.Value)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "VARIABLES")
	for _, v := range o.variables {
		fmt.Fprintf(w, "%s (%s, dim=%d)", v.Name, v.Type, v.Dim())
		if b := o.VariableBounds(v.Name, -1); b != nil {
			fmt.Fprintf(w, " range [%g, %g]", b.At(0, 0), b.At(0, 1))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PARTS")
	for _, p := range o.parts {
		p.print(w)
	}
	fmt.Fprintln(w, rule)
	return nil
}

// Fields returns logrus fields describing the object size
func (o *Object) Fields() logrus.Fields {
	return logrus.Fields{
		"parts":     len(o.parts),
		"variables": len(o.variables),
		"constants": len(o.constants),
		"steps":     len(o.times),
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
