package partitions

import (
	"fmt"
	"math"
)

// PartitionBuilder groups mesh cells into partitions
type PartitionBuilder struct {
	NumCells            int
	TargetPartitionSize int // Desired cells per partition
	Strategy            PartitionStrategy
}

// PartitionStrategy defines how cells are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive cells
	RoundRobin                              // Distribute cyclically
)

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round-robin"
	default:
		return fmt.Sprintf("PartitionStrategy(%d)", int(s))
	}
}

// BuildPartitions creates a validated partition layout
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.NumCells < 1 {
		return nil, fmt.Errorf("cannot partition %d cells", pb.NumCells)
	}
	if pb.TargetPartitionSize < 1 {
		return nil, fmt.Errorf("invalid target partition size %d", pb.TargetPartitionSize)
	}
	numPartitions := pb.calculateNumPartitions()

	cToP, err := pb.partitionCells(numPartitions)
	if err != nil {
		return nil, err
	}
	partitions := pb.createPartitions(cToP, numPartitions)

	kpartMax := calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxCells = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:      partitions,
		KpartMax:        kpartMax,
		TotalCells:      pb.NumCells,
		NumPartitions:   numPartitions,
		CellToPartition: cToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

func (pb *PartitionBuilder) calculateNumPartitions() int {
	n := int(math.Ceil(float64(pb.NumCells) / float64(pb.TargetPartitionSize)))
	if n < 1 {
		n = 1
	}
	return n
}

// partitionCells assigns cells to partitions. Blocks are balanced so sizes
// differ by at most one.
func (pb *PartitionBuilder) partitionCells(numPartitions int) ([]int, error) {
	cToP := make([]int, pb.NumCells)
	switch pb.Strategy {
	case BlockPartition:
		for p := 0; p < numPartitions; p++ {
			lo, hi := p*pb.NumCells/numPartitions, (p+1)*pb.NumCells/numPartitions
			for c := lo; c < hi; c++ {
				cToP[c] = p
			}
		}
	case RoundRobin:
		for c := range cToP {
			cToP[c] = c % numPartitions
		}
	default:
		return nil, fmt.Errorf("unsupported partition strategy %v", pb.Strategy)
	}
	return cToP, nil
}

func (pb *PartitionBuilder) createPartitions(cToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i].ID = i
	}
	for c, p := range cToP {
		partitions[p].Cells = append(partitions[p].Cells, c)
		partitions[p].NumCells++
	}
	return partitions
}

func calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumCells > kpartMax {
			kpartMax = p.NumCells
		}
	}
	return kpartMax
}

// NewBlockLayout builds the layout of consecutive cell blocks with the given
// per-partition sizes, as used by a kernel runner configured from K
func NewBlockLayout(k []int) (*PartitionLayout, error) {
	total := 0
	for p, n := range k {
		if n < 0 {
			return nil, fmt.Errorf("partition %d has negative size %d", p, n)
		}
		total += n
	}
	if total < 1 {
		return nil, fmt.Errorf("cannot lay out %d cells", total)
	}
	cToP := make([]int, 0, total)
	for p, n := range k {
		for i := 0; i < n; i++ {
			cToP = append(cToP, p)
		}
	}
	partitions := (&PartitionBuilder{NumCells: total}).createPartitions(cToP, len(k))
	kpartMax := calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxCells = kpartMax
	}
	layout := &PartitionLayout{
		Partitions:      partitions,
		KpartMax:        kpartMax,
		TotalCells:      total,
		NumPartitions:   len(k),
		CellToPartition: cToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid block layout: %w", err)
	}
	return layout, nil
}
