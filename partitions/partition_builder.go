package partitions

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/goensight/element"
	"github.com/notargets/goensight/mesh"
	"github.com/notargets/goensight/utils"
)

// PartitionBuilder constructs partitions of one cell list
type PartitionBuilder struct {
	// Cells to partition and their centroids, one per cell
	Cells     *mesh.CellList
	Centroids []r3.Vec

	// Partitioning parameters
	TargetPartitionSize int // Desired cells per partition
	Strategy            PartitionStrategy
}

// PartitionStrategy defines how cells are grouped
type PartitionStrategy int

const (
	// Simple strategies
	BlockPartition PartitionStrategy = iota // Consecutive cells
	RoundRobin                              // Distribute cyclically

	// Geometric strategies, use the cell centroids
	CoordinateBisection // Recursive bisection along the longest extent
	SpaceFillingCurve   // Morton curve ordering
)

var strategyNames = map[PartitionStrategy]string{
	BlockPartition:      "block",
	RoundRobin:          "roundrobin",
	CoordinateBisection: "rcb",
	SpaceFillingCurve:   "morton",
}

func (s PartitionStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// ParseStrategy maps a strategy name as printed by String back to it
func ParseStrategy(name string) (PartitionStrategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return BlockPartition, fmt.Errorf("unknown partition strategy %q", name)
}

// NewPartitionBuilder prepares the cells of type ct of part partIndex at
// step of a closed object
func NewPartitionBuilder(obj *mesh.Object, partIndex, step int, ct element.CellType,
	target int, strategy PartitionStrategy) (*PartitionBuilder, error) {
	if partIndex < 0 || partIndex >= obj.NumParts() {
		return nil, fmt.Errorf("part index %d out of range, object has %d parts", partIndex, obj.NumParts())
	}
	cl := obj.Part(partIndex).CellList(step, ct)
	if cl == nil {
		return nil, fmt.Errorf("part %q has no %s cells at step %d", obj.Part(partIndex).Name, ct, step)
	}
	pb := &PartitionBuilder{
		Cells:               cl,
		Centroids:           make([]r3.Vec, cl.Len()),
		TargetPartitionSize: target,
		Strategy:            strategy,
	}
	for i := range pb.Centroids {
		c, err := obj.Cell(partIndex, step, ct, i)
		if err != nil {
			return nil, err
		}
		pb.Centroids[i] = c.Centroid()
	}
	return pb, nil
}

// BuildPartitions creates a partition layout of the cell list
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.TargetPartitionSize < 1 {
		return nil, fmt.Errorf("invalid target partition size %d", pb.TargetPartitionSize)
	}
	numCells := pb.Cells.Len()
	if numCells == 0 {
		return nil, fmt.Errorf("no cells to partition")
	}
	if (pb.Strategy == CoordinateBisection || pb.Strategy == SpaceFillingCurve) &&
		len(pb.Centroids) != numCells {
		return nil, fmt.Errorf("%s needs %d centroids, got %d", pb.Strategy, numCells, len(pb.Centroids))
	}

	// Determine number of partitions needed
	numPartitions := pb.calculateNumPartitions()

	// Partition the cells
	cToP := pb.partitionCells(numPartitions)

	// Create partition structures
	partitions := pb.createPartitions(cToP, numPartitions)

	kpartMax := calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxCells = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalCells:    numCells,
		NumPartitions: numPartitions,
		CToP:          cToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	mesh.Logger().WithField("strategy", pb.Strategy).
		Debugf("%d cells in %d partitions, KpartMax %d", numCells, numPartitions, kpartMax)
	return layout, nil
}

// Statistics builds the layout and measures it against the neighbor
// matrix of the cell list
func (pb *PartitionBuilder) Statistics(layout *PartitionLayout) PartitionStats {
	return layout.PartitionStatistics(pb.Cells.Connectivity())
}

// calculateNumPartitions determines the partition count
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := int(math.Ceil(float64(pb.Cells.Len()) / float64(pb.TargetPartitionSize)))
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions
}

// partitionCells assigns cells to partitions
func (pb *PartitionBuilder) partitionCells(numPartitions int) []int {
	n := pb.Cells.Len()
	cToP := make([]int, n)

	switch pb.Strategy {
	case RoundRobin:
		for i := 0; i < n; i++ {
			cToP[i] = i % numPartitions
		}

	case CoordinateBisection:
		order := identity(n)
		pb.bisect(order, numPartitions, 0, cToP)

	case SpaceFillingCurve:
		blockAssign(pb.mortonOrder(), numPartitions, cToP)

	default:
		blockAssign(identity(n), numPartitions, cToP)
	}
	return cToP
}

func identity(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

// blockAssign gives consecutive runs of order to consecutive partitions
func blockAssign(order []int, numPartitions int, cToP []int) {
	per := int(math.Ceil(float64(len(order)) / float64(numPartitions)))
	for i, c := range order {
		p := i / per
		if p >= numPartitions {
			p = numPartitions - 1
		}
		cToP[c] = p
	}
}

// bisect splits cells into parts partitions numbered from first. Each cut
// is normal to the longest extent of the centroid box and keeps the cell
// counts proportional to the partition counts on either side.
func (pb *PartitionBuilder) bisect(cells []int, parts, first int, cToP []int) {
	if parts == 1 {
		for _, c := range cells {
			cToP[c] = first
		}
		return
	}
	box := utils.NewBbox()
	for _, c := range cells {
		box.Extend(pb.Centroids[c])
	}
	axis := longestAxis(box.Diagonal())
	sort.SliceStable(cells, func(i, j int) bool {
		return component(pb.Centroids[cells[i]], axis) < component(pb.Centroids[cells[j]], axis)
	})
	left := parts / 2
	nLeft := len(cells) * left / parts
	pb.bisect(cells[:nLeft], left, first, cToP)
	pb.bisect(cells[nLeft:], parts-left, first+left, cToP)
}

func longestAxis(d r3.Vec) int {
	axis := 0
	if d.Y > d.X {
		axis = 1
	}
	if d.Z > math.Max(d.X, d.Y) {
		axis = 2
	}
	return axis
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	return v.X
}

// mortonBits is the resolution per axis of the Morton curve
const mortonBits = 10

// mortonOrder sorts the cells by the Morton code of their centroid,
// quantized to the centroid box
func (pb *PartitionBuilder) mortonOrder() []int {
	box := utils.NewBbox()
	for _, c := range pb.Centroids {
		box.Extend(c)
	}
	d := box.Diagonal()
	scale := float64(int(1)<<mortonBits - 1)
	quantize := func(v, lo, extent float64) uint64 {
		if extent <= 0 {
			return 0
		}
		return uint64(math.Floor((v - lo) / extent * scale))
	}
	codes := make([]uint64, len(pb.Centroids))
	for i, c := range pb.Centroids {
		x := quantize(c.X, box.Min.X, d.X)
		y := quantize(c.Y, box.Min.Y, d.Y)
		z := quantize(c.Z, box.Min.Z, d.Z)
		var code uint64
		for b := mortonBits - 1; b >= 0; b-- {
			code = code<<3 | (x>>b&1)<<2 | (y>>b&1)<<1 | z>>b&1
		}
		codes[i] = code
	}
	order := identity(len(codes))
	sort.SliceStable(order, func(i, j int) bool { return codes[order[i]] < codes[order[j]] })
	return order
}

// createPartitions builds partition structures from cell assignments
func (pb *PartitionBuilder) createPartitions(cToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Cells: make([]int, 0)}
	}
	for cell, part := range cToP {
		partitions[part].Cells = append(partitions[part].Cells, cell)
		partitions[part].NumCells++
	}
	return partitions
}

// calculateKpartMax finds maximum cells across all partitions
func calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumCells > kpartMax {
			kpartMax = p.NumCells
		}
	}
	return kpartMax
}
