package partitions

import (
	"errors"
	"fmt"
)

var ErrNotContiguous = errors.New("partition cells are not contiguous")

// Partition is a group of cells that execute together as one @outer
// iteration of a device kernel, or one block of a CPU executor
type Partition struct {
	ID int

	Cells    []int // Global cell indices in this partition
	NumCells int   // Actual number of active cells
	MaxCells int   // Padded size for @inner loop uniformity
}

// PartitionLayout is the complete decomposition of the cells of a mesh
type PartitionLayout struct {
	Partitions []Partition

	KpartMax      int // max(NumCells) across all partitions
	TotalCells    int
	NumPartitions int

	// CellToPartition[k] is the partition owning cell k
	CellToPartition []int
}

// PartitionedArray holds per-cell data laid out partition by partition, each
// partition starting at its own (possibly aligned) offset
// Layout: [Partition 0 Data][pad][Partition 1 Data][pad]...
type PartitionedArray struct {
	GlobalData []float64

	// Partition p's data starts at GlobalData[Offsets[p]]. The final entry
	// is the total allocated length.
	Offsets []int

	// Number of values per cell
	Stride int
}

// GetPartition returns the partition containing the cell, or -1
func (pl *PartitionLayout) GetPartition(cell int) int {
	if cell < 0 || cell >= len(pl.CellToPartition) {
		return -1
	}
	return pl.CellToPartition[cell]
}

// K returns the number of active cells per partition
func (pl *PartitionLayout) K() []int {
	k := make([]int, len(pl.Partitions))
	for i, p := range pl.Partitions {
		k[i] = p.NumCells
	}
	return k
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	actualMax, total := 0, 0
	for _, p := range pl.Partitions {
		if p.NumCells != len(p.Cells) {
			return fmt.Errorf("partition %d: NumCells %d != len(Cells) %d",
				p.ID, p.NumCells, len(p.Cells))
		}
		if p.NumCells > actualMax {
			actualMax = p.NumCells
		}
		if p.MaxCells != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxCells %d != KpartMax %d",
				p.ID, p.MaxCells, pl.KpartMax)
		}
		for _, c := range p.Cells {
			if pl.GetPartition(c) != p.ID {
				return fmt.Errorf("cell %d listed in partition %d but mapped to %d",
					c, p.ID, pl.GetPartition(c))
			}
		}
		total += p.NumCells
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	if total != pl.TotalCells {
		return fmt.Errorf("partitions hold %d cells, layout has %d", total, pl.TotalCells)
	}
	return nil
}

// Ranges returns [lo, hi) cell ranges per partition. It fails unless every
// partition holds an ascending run of consecutive cells.
func (pl *PartitionLayout) Ranges() ([][2]int, error) {
	ranges := make([][2]int, len(pl.Partitions))
	for i, p := range pl.Partitions {
		if p.NumCells == 0 {
			continue
		}
		lo := p.Cells[0]
		for j, c := range p.Cells {
			if c != lo+j {
				return nil, fmt.Errorf("partition %d: %w", p.ID, ErrNotContiguous)
			}
		}
		ranges[i] = [2]int{lo, lo + p.NumCells}
	}
	return ranges, nil
}

// Scatter lays out host data (stride values per cell, in cell order) at the
// given per-partition offsets. offsets has NumPartitions+1 entries, the last
// being the total size, as produced by the kernel builder.
func (pl *PartitionLayout) Scatter(host []float64, stride int, offsets []int) (*PartitionedArray, error) {
	if len(host) != pl.TotalCells*stride {
		return nil, fmt.Errorf("scatter: got %d values for %d cells of stride %d",
			len(host), pl.TotalCells, stride)
	}
	if len(offsets) != pl.NumPartitions+1 {
		return nil, fmt.Errorf("scatter: got %d offsets for %d partitions",
			len(offsets), pl.NumPartitions)
	}
	pa := &PartitionedArray{
		GlobalData: make([]float64, offsets[pl.NumPartitions]),
		Offsets:    append([]int(nil), offsets...),
		Stride:     stride,
	}
	for p, part := range pl.Partitions {
		if offsets[p]+part.NumCells*stride > offsets[p+1] {
			return nil, fmt.Errorf("scatter: partition %d overflows its offset range", p)
		}
		dst := pa.GlobalData[offsets[p]:]
		for i, c := range part.Cells {
			copy(dst[i*stride:(i+1)*stride], host[c*stride:(c+1)*stride])
		}
	}
	return pa, nil
}

// Gather is the inverse of Scatter, writing partitioned data back to host
// order
func (pl *PartitionLayout) Gather(pa *PartitionedArray, host []float64) error {
	if len(host) != pl.TotalCells*pa.Stride {
		return fmt.Errorf("gather: host holds %d values for %d cells of stride %d",
			len(host), pl.TotalCells, pa.Stride)
	}
	for p, part := range pl.Partitions {
		src := pa.GetPartitionData(p)
		s := pa.Stride
		for i, c := range part.Cells {
			copy(host[c*s:(c+1)*s], src[i*s:(i+1)*s])
		}
	}
	return nil
}

// GetPartitionData returns the slice holding partition p's data, padding
// included
func (pa *PartitionedArray) GetPartitionData(partitionID int) []float64 {
	if partitionID < 0 || partitionID >= len(pa.Offsets)-1 {
		return nil
	}
	return pa.GlobalData[pa.Offsets[partitionID]:pa.Offsets[partitionID+1]]
}
