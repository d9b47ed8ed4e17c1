package partitions

import (
	"fmt"
	"math"

	"github.com/notargets/goensight/utils"
)

// Partition represents a collection of cells of one cell list that are
// processed together as a unit
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Cell membership
	Cells    []int // Cell indices in the list, ascending
	NumCells int   // Actual number of cells
	MaxCells int   // Padded size, KpartMax of the layout
}

// PartitionLayout manages the complete decomposition of a cell list
type PartitionLayout struct {
	// All partitions of the list
	Partitions []Partition

	// Global sizing information
	KpartMax      int // max(NumCells) across all partitions
	TotalCells    int // Sum of all cells across partitions
	NumPartitions int // Total number of partitions

	// Cell to partition mapping
	CToP []int // Length TotalCells: cell k belongs to partition CToP[k]
}

// CutFace is a face shared by cells of two different partitions. Every
// shared face is reported once, from the cell with the lower index.
type CutFace struct {
	Cell              int
	Face              int // Local face of Cell
	Neighbor          int
	Partition         int
	NeighborPartition int
}

// GetPartition returns the partition containing cell k
func (pl *PartitionLayout) GetPartition(cell int) int {
	if cell < 0 || cell >= len(pl.CToP) {
		return -1
	}
	return pl.CToP[cell]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	// Verify KpartMax
	actualMax := 0
	for _, p := range pl.Partitions {
		if p.NumCells > actualMax {
			actualMax = p.NumCells
		}
		if p.MaxCells != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxCells %d != KpartMax %d",
				p.ID, p.MaxCells, pl.KpartMax)
		}
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}

	// Every cell lives in exactly the partition CToP names
	seen := make([]bool, pl.TotalCells)
	for _, p := range pl.Partitions {
		for _, c := range p.Cells {
			if c < 0 || c >= pl.TotalCells {
				return fmt.Errorf("partition %d: cell %d out of range", p.ID, c)
			}
			if seen[c] {
				return fmt.Errorf("cell %d assigned twice", c)
			}
			if pl.CToP[c] != p.ID {
				return fmt.Errorf("cell %d: CToP says %d, found in %d", c, pl.CToP[c], p.ID)
			}
			seen[c] = true
		}
	}
	for c, ok := range seen {
		if !ok {
			return fmt.Errorf("cell %d not assigned", c)
		}
	}
	return nil
}

// CutFaces lists the faces whose two cells lie in different partitions
func (pl *PartitionLayout) CutFaces(conn *utils.FaceConnector) []CutFace {
	var cuts []CutFace
	for c := 0; c < conn.NumCells && c < len(pl.CToP); c++ {
		for f, nb := range conn.Neighbors[c] {
			// Skip boundary faces and the second visit of a shared face
			if nb < 0 || nb < c {
				continue
			}
			p, q := pl.CToP[c], pl.GetPartition(nb)
			if q >= 0 && p != q {
				cuts = append(cuts, CutFace{
					Cell: c, Face: f, Neighbor: nb,
					Partition: p, NeighborPartition: q,
				})
			}
		}
	}
	return cuts
}

// PartitionStatistics computes load balance and cut metrics
func (pl *PartitionLayout) PartitionStatistics(conn *utils.FaceConnector) PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinCells:      math.MaxInt32,
		MaxCells:      0,
		AvgCells:      float64(pl.TotalCells) / float64(pl.NumPartitions),
	}

	for _, p := range pl.Partitions {
		if p.NumCells < stats.MinCells {
			stats.MinCells = p.NumCells
		}
		if p.NumCells > stats.MaxCells {
			stats.MaxCells = p.NumCells
		}
	}
	stats.Imbalance = float64(stats.MaxCells) / stats.AvgCells

	if conn != nil {
		neighbors := make(map[[2]int]struct{})
		for _, cf := range pl.CutFaces(conn) {
			stats.CutFaces++
			a, b := cf.Partition, cf.NeighborPartition
			if a > b {
				a, b = b, a
			}
			neighbors[[2]int{a, b}] = struct{}{}
		}
		stats.NeighborPairs = len(neighbors)
		stats.InteriorFaces = conn.NumInteriorFaces()
		stats.BoundaryFaces = len(conn.BoundaryFaces)
	}
	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinCells      int
	MaxCells      int
	AvgCells      float64
	Imbalance     float64 // MaxCells / AvgCells

	CutFaces      int // Interior faces between partitions
	NeighborPairs int // Partition pairs sharing at least one face
	InteriorFaces int
	BoundaryFaces int
}

func (s PartitionStats) String() string {
	return fmt.Sprintf("%d partitions, cells min %d max %d avg %.1f (imbalance %.3f), "+
		"cut faces %d of %d interior, %d neighbor pairs",
		s.NumPartitions, s.MinCells, s.MaxCells, s.AvgCells, s.Imbalance,
		s.CutFaces, s.InteriorFaces, s.NeighborPairs)
}
