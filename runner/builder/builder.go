package builder

import (
	"fmt"
	"strings"
)

// DataType represents the precision of numerical data
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	INT32
	INT64
)

func (d DataType) Size() int64 {
	switch d {
	case Float32, INT32:
		return 4
	default:
		return 8
	}
}

// AlignmentType specifies memory alignment requirements
type AlignmentType int

const (
	NoAlignment    AlignmentType = 1
	CacheLineAlign AlignmentType = 64
	WarpAlign      AlignmentType = 128
	PageAlign      AlignmentType = 4096
)

// ArraySpec defines a per-cell device array
type ArraySpec struct {
	Name      string
	Size      int64 // total bytes across all partitions, padding excluded
	Alignment AlignmentType
	DataType  DataType
	IsOutput  bool
}

// Builder holds the partition configuration and generates the kernel
// preamble shared by all kernels of a runner
type Builder struct {
	NumPartitions int
	K             []int
	KpartMax      int // Maximum K value across all partitions

	FloatType DataType
	IntType   DataType

	// Array tracking for macro generation
	AllocatedArrays []string

	KernelPreamble string
}

// Config holds configuration for creating a Builder
type Config struct {
	K         []int
	FloatType DataType
	IntType   DataType
}

// NewBuilder creates a new Builder instance
func NewBuilder(cfg Config) *Builder {
	if len(cfg.K) == 0 {
		panic("K array cannot be empty")
	}
	kpartMax := 0
	for _, k := range cfg.K {
		if k > kpartMax {
			kpartMax = k
		}
	}
	floatType := cfg.FloatType
	if floatType == 0 {
		floatType = Float64
	}
	intType := cfg.IntType
	if intType == 0 {
		intType = INT64
	}
	kb := &Builder{
		NumPartitions: len(cfg.K),
		K:             make([]int, len(cfg.K)),
		KpartMax:      kpartMax,
		FloatType:     floatType,
		IntType:       intType,
	}
	copy(kb.K, cfg.K)
	return kb
}

// GetTotalElements returns sum of all K values
func (kb *Builder) GetTotalElements() int {
	total := 0
	for _, k := range kb.K {
		total += k
	}
	return total
}

// GetIntSize returns the size of the integer type in bytes
func (kb *Builder) GetIntSize() int {
	return int(kb.IntType.Size())
}

// CalculateAlignedOffsetsAndSize computes per-partition offsets, in values,
// with each partition starting on an aligned byte boundary. The final offset
// is the padded total and the returned size is in bytes.
func (kb *Builder) CalculateAlignedOffsetsAndSize(spec ArraySpec) ([]int64, int64) {
	offsets := make([]int64, kb.NumPartitions+1)
	valueSize := spec.DataType.Size()
	bytesPerElement := spec.Size / int64(kb.GetTotalElements())
	valuesPerElement := bytesPerElement / valueSize

	alignment := int64(spec.Alignment)
	if alignment == 0 {
		alignment = int64(NoAlignment)
	}
	align := func(b int64) int64 {
		return ((b + alignment - 1) / alignment) * alignment
	}

	current := int64(0)
	for i := 0; i < kb.NumPartitions; i++ {
		current = align(current)
		// Offsets are in values so kernels can use ptr + offset
		offsets[i] = current / valueSize
		current += int64(kb.K[i]) * valuesPerElement * valueSize
	}
	current = align(current)
	offsets[kb.NumPartitions] = current / valueSize
	return offsets, offsets[kb.NumPartitions] * valueSize
}

// GeneratePreamble generates type definitions, partition constants and one
// access macro per allocated array
func (kb *Builder) GeneratePreamble() string {
	var sb strings.Builder
	sb.WriteString(kb.generateTypeDefinitions())
	sb.WriteString(kb.generatePartitionMacros())
	kb.KernelPreamble = sb.String()
	return kb.KernelPreamble
}

func (kb *Builder) generateTypeDefinitions() string {
	var sb strings.Builder

	floatTypeStr, floatSuffix := "double", ""
	if kb.FloatType == Float32 {
		floatTypeStr, floatSuffix = "float", "f"
	}
	intTypeStr := "long"
	if kb.IntType == INT32 {
		intTypeStr = "int"
	}

	sb.WriteString(fmt.Sprintf("typedef %s real_t;\n", floatTypeStr))
	sb.WriteString(fmt.Sprintf("typedef %s int_t;\n", intTypeStr))
	sb.WriteString(fmt.Sprintf("#define REAL_ZERO 0.0%s\n", floatSuffix))
	sb.WriteString(fmt.Sprintf("#define REAL_ONE 1.0%s\n", floatSuffix))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("#define NPART %d\n", kb.NumPartitions))
	sb.WriteString(fmt.Sprintf("#define KpartMax %d\n", kb.KpartMax))
	sb.WriteString("\n")
	return sb.String()
}

func (kb *Builder) generatePartitionMacros() string {
	var sb strings.Builder
	sb.WriteString("// Partition access macros\n")
	for _, arrayName := range kb.AllocatedArrays {
		sb.WriteString(fmt.Sprintf("#define %s_PART(part) (%s_global + %s_offsets[part])\n",
			arrayName, arrayName, arrayName))
	}
	if len(kb.AllocatedArrays) > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}
