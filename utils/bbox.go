package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Bbox is an axis aligned 3D bounding box. The zero value is not empty,
// use NewBbox for an empty box.
type Bbox struct {
	Min, Max r3.Vec
}

// NewBbox returns an empty box (Min = +Inf, Max = -Inf)
func NewBbox() Bbox {
	inf := math.Inf(1)
	return Bbox{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// BboxFromCorners returns the box spanned by min and max as given
func BboxFromCorners(min, max r3.Vec) Bbox {
	return Bbox{Min: min, Max: max}
}

// IsEmpty reports whether any Min component exceeds its Max component
func (b Bbox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Contains checks if p lies in the box, boundary included
func (b Bbox) Contains(p r3.Vec) bool {
	return b.Min.X <= p.X && p.X <= b.Max.X &&
		b.Min.Y <= p.Y && p.Y <= b.Max.Y &&
		b.Min.Z <= p.Z && p.Z <= b.Max.Z
}

// Intersects checks if both boxes share at least one point, touching counts
func (b Bbox) Intersects(o Bbox) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y &&
		b.Min.Z <= o.Max.Z && o.Min.Z <= b.Max.Z
}

// Extend grows the box to include p
func (b *Bbox) Extend(p r3.Vec) {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
}

// ExtendBox grows the box to include o. Empty boxes are ignored.
func (b *Bbox) ExtendBox(o Bbox) {
	if o.IsEmpty() {
		return
	}
	b.Extend(o.Min)
	b.Extend(o.Max)
}

// IncreaseBy widens a non-empty box by d on every side. An empty box stays empty.
func (b *Bbox) IncreaseBy(d float64) {
	if b.IsEmpty() {
		return
	}
	off := r3.Vec{X: d, Y: d, Z: d}
	b.Min = r3.Sub(b.Min, off)
	b.Max = r3.Add(b.Max, off)
}

// Center returns (Min+Max)/2
func (b Bbox) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Diagonal returns Max-Min
func (b Bbox) Diagonal() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// IsFlat reports whether the Z extent of the box is at most eps
func (b Bbox) IsFlat(eps float64) bool {
	return math.Abs(b.Max.Z-b.Min.Z) <= eps
}

func (b Bbox) String() string {
	if b.IsEmpty() {
		return "Bbox{empty}"
	}
	return fmt.Sprintf("Bbox{min: [%g %g %g], max: [%g %g %g]}",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
