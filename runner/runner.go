package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/FVKernel/partitions"
	"github.com/notargets/FVKernel/runner/builder"
	"github.com/notargets/gocca"
	"go.uber.org/zap"
)

// Runner orchestrates kernel compilation and execution over partitioned
// per-cell arrays
type Runner struct {
	*builder.Builder
	Device       *gocca.OCCADevice
	Kernels      map[string]*gocca.OCCAKernel
	PooledMemory map[string]*gocca.OCCAMemory

	Bindings      map[string]*DeviceBinding
	KernelConfigs map[string]*KernelConfig
	IsAllocated   bool

	bindingOrder []string
	layout       *partitions.PartitionLayout
	hostOffsets  map[string][]int // Per-array offsets in values
	logger       *zap.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger used for kernel builds
func WithLogger(l *zap.Logger) Option {
	return func(kr *Runner) {
		if l != nil {
			kr.logger = l
		}
	}
}

// NewRunner creates a new Runner instance. Cells are laid out in consecutive
// blocks of Config.K cells, one block per partition.
func NewRunner(device *gocca.OCCADevice, cfg builder.Config, opts ...Option) *Runner {
	if device == nil {
		panic("runner needs a device")
	}
	bld := builder.NewBuilder(cfg)

	if bld.KpartMax > 1048576 { // 2^20 elements
		panic(fmt.Sprintf("KpartMax exceeds 2^20 (1048576), usually caused by unbalanced workloads.\n"+
			"Found KpartMax=%d. Please balance K values or increase partition count.", bld.KpartMax))
	}
	layout, err := partitions.NewBlockLayout(bld.K)
	if err != nil {
		panic(err)
	}

	kr := &Runner{
		Builder:       bld,
		Device:        device,
		Kernels:       make(map[string]*gocca.OCCAKernel),
		PooledMemory:  make(map[string]*gocca.OCCAMemory),
		Bindings:      make(map[string]*DeviceBinding),
		KernelConfigs: make(map[string]*KernelConfig),
		layout:        layout,
		hostOffsets:   make(map[string][]int),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(kr)
	}
	kr.PooledMemory["K"] = kr.mallocInts(bld.K)
	return kr
}

// Layout returns the partition layout of the runner's cells
func (kr *Runner) Layout() *partitions.PartitionLayout {
	return kr.layout
}

// mallocInts allocates and fills a device array of int_t
func (kr *Runner) mallocInts(values []int) *gocca.OCCAMemory {
	if kr.IntType == builder.INT32 {
		v32 := make([]int32, len(values))
		for i, v := range values {
			v32[i] = int32(v)
		}
		return kr.Device.Malloc(int64(len(v32)*4), unsafe.Pointer(&v32[0]), nil)
	}
	v64 := make([]int64, len(values))
	for i, v := range values {
		v64[i] = int64(v)
	}
	return kr.Device.Malloc(int64(len(v64)*8), unsafe.Pointer(&v64[0]), nil)
}

// BuildKernel compiles and registers a kernel, prefixed with the preamble
func (kr *Runner) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	kr.GeneratePreamble()
	fullSource := kr.KernelPreamble + "\n" + kernelSource

	var (
		kernel *gocca.OCCAKernel
		err    error
	)
	if kr.Device.Mode() == "OpenMP" {
		// Workaround for OCCA bug: OpenMP doesn't get default -O3 flag
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, props)
	} else {
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}
	kr.Kernels[kernelName] = kernel
	kr.logger.Debug("built kernel",
		zap.String("kernel", kernelName),
		zap.String("mode", kr.Device.Mode()),
		zap.Int("partitions", kr.NumPartitions),
		zap.Int("kpartMax", kr.KpartMax))
	return kernel, nil
}

// GetMemory returns the device memory for a named array
func (kr *Runner) GetMemory(arrayName string) *gocca.OCCAMemory {
	return kr.PooledMemory[arrayName+"_global"]
}

// GetOffsets returns the offset memory for a named array
func (kr *Runner) GetOffsets(arrayName string) *gocca.OCCAMemory {
	return kr.PooledMemory[arrayName+"_offsets"]
}

// Free releases all kernels and device memory
func (kr *Runner) Free() {
	for _, kernel := range kr.Kernels {
		kernel.Free()
	}
	for _, mem := range kr.PooledMemory {
		mem.Free()
	}
	kr.Kernels = make(map[string]*gocca.OCCAKernel)
	kr.PooledMemory = make(map[string]*gocca.OCCAMemory)
}
