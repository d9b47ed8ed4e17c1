// File: runner/types.go
package runner

import (
	"runtime"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goensight/mesh"
)

// Config controls a probe run
type Config struct {
	Workers   int      // Concurrent goroutines, <= 0 means runtime.NumCPU()
	Variables []string // Variables to sample, empty means every declared variable
	Time      float64  // Solution time for transient objects
}

// DefaultConfig samples every variable at time 0 with one worker per CPU
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

func (c Config) workers(points int) int {
	w := c.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if w > points {
		w = points
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Sample is the probe result at one position
type Sample struct {
	Position r3.Vec
	Found    bool        // False when no cell contains Position
	Cell     mesh.CellID // Containing cell, valid when Found
	Values   [][]float64 // Per Result.Variables entry, Dim values each
}

// VariableStats summarizes one variable over the found samples, per component
type VariableStats struct {
	ID    mesh.VariableID
	Count int
	Min   []float64
	Max   []float64
	Mean  []float64
}

// Result holds the samples of a run in input order
type Result struct {
	Variables []mesh.VariableID
	Samples   []Sample
	Found     int
	Stats     []VariableStats // Per Variables entry
}

// Column returns component comp of variable v for every sample, found or
// not, with missing samples reported through ok
func (r *Result) Column(v, comp int) (values []float64, ok []bool) {
	values = make([]float64, len(r.Samples))
	ok = make([]bool, len(r.Samples))
	for i, s := range r.Samples {
		if !s.Found || s.Values[v] == nil {
			continue
		}
		values[i] = s.Values[v][comp]
		ok[i] = true
	}
	return
}

func (r *Result) summarize() {
	r.Stats = make([]VariableStats, len(r.Variables))
	for vi, id := range r.Variables {
		st := VariableStats{ID: id}
		dim := id.Type.Dim()
		for comp := 0; comp < dim; comp++ {
			col, ok := r.Column(vi, comp)
			found := col[:0]
			for i, v := range col {
				if ok[i] {
					found = append(found, v)
				}
			}
			st.Count = len(found)
			if len(found) == 0 {
				continue
			}
			st.Min = append(st.Min, floats.Min(found))
			st.Max = append(st.Max, floats.Max(found))
			st.Mean = append(st.Mean, floats.Sum(found)/float64(len(found)))
		}
		r.Stats[vi] = st
	}
}

// Segment returns n evenly spaced points from a to b inclusive
func Segment(a, b r3.Vec, n int) []r3.Vec {
	if n < 2 {
		return []r3.Vec{a}
	}
	pts := make([]r3.Vec, n)
	d := r3.Sub(b, a)
	for i := range pts {
		pts[i] = r3.Add(a, r3.Scale(float64(i)/float64(n-1), d))
	}
	return pts
}
