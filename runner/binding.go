package runner

import (
	"fmt"

	"github.com/notargets/FVKernel/runner/builder"
)

// DeviceBinding represents a host↔device data binding
type DeviceBinding struct {
	Name string

	HostArray  []float64 // Stride values per cell, in cell order
	HostScalar interface{}

	DataType builder.DataType // Element type on device
	Stride   int

	IsScalar  bool
	IsOutput  bool // Whether the kernel may write it
	Alignment builder.AlignmentType

	Spec builder.ParamSpec
}

// DefineBindings establishes host↔device data relationships. Bindings are
// defined once, before AllocateDevice.
func (kr *Runner) DefineBindings(params ...*builder.ParamBuilder) error {
	if kr.IsAllocated {
		return fmt.Errorf("bindings cannot be defined after AllocateDevice has been called")
	}
	for i, p := range params {
		spec := p.Spec
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("parameter %d: %w", i, err)
		}
		binding, err := kr.createBinding(spec)
		if err != nil {
			return fmt.Errorf("failed to create binding for %s: %w", spec.Name, err)
		}
		if _, exists := kr.Bindings[spec.Name]; !exists {
			kr.bindingOrder = append(kr.bindingOrder, spec.Name)
		}
		kr.Bindings[spec.Name] = binding
	}
	return nil
}

func (kr *Runner) createBinding(spec builder.ParamSpec) (*DeviceBinding, error) {
	binding := &DeviceBinding{
		Name:      spec.Name,
		Spec:      spec,
		Alignment: spec.Alignment,
		IsOutput:  !spec.IsConst(),
	}
	if spec.Direction == builder.DirectionScalar {
		binding.IsScalar = true
		binding.HostScalar = spec.HostScalar
		binding.DataType = spec.DataType
		return binding, nil
	}

	total := kr.GetTotalElements()
	if len(spec.HostArray)%total != 0 {
		return nil, fmt.Errorf("%d values do not divide into %d cells",
			len(spec.HostArray), total)
	}
	binding.HostArray = spec.HostArray
	binding.Stride = len(spec.HostArray) / total
	binding.DataType = kr.FloatType
	return binding, nil
}

// GetBinding returns the named binding, or nil
func (kr *Runner) GetBinding(name string) *DeviceBinding {
	return kr.Bindings[name]
}

// HasBinding reports whether the name is bound
func (kr *Runner) HasBinding(name string) bool {
	_, ok := kr.Bindings[name]
	return ok
}

// AllocateDevice allocates partitioned device memory for every array
// binding, in definition order
func (kr *Runner) AllocateDevice() error {
	if kr.IsAllocated {
		return fmt.Errorf("device memory already allocated")
	}
	for _, name := range kr.bindingOrder {
		binding := kr.Bindings[name]
		if binding.IsScalar {
			continue
		}
		if err := kr.allocateArray(binding); err != nil {
			return fmt.Errorf("failed to allocate %s: %w", name, err)
		}
	}
	kr.IsAllocated = true
	return nil
}

func (kr *Runner) allocateArray(binding *DeviceBinding) error {
	spec := builder.ArraySpec{
		Name:      binding.Name,
		Size:      int64(len(binding.HostArray)) * binding.DataType.Size(),
		Alignment: binding.Alignment,
		DataType:  binding.DataType,
		IsOutput:  binding.IsOutput,
	}
	offsets, totalSize := kr.CalculateAlignedOffsetsAndSize(spec)

	hostOffsets := make([]int, len(offsets))
	for i, o := range offsets {
		hostOffsets[i] = int(o)
	}
	kr.PooledMemory[spec.Name+"_global"] = kr.Device.Malloc(totalSize, nil, nil)
	kr.PooledMemory[spec.Name+"_offsets"] = kr.mallocInts(hostOffsets)
	kr.hostOffsets[spec.Name] = hostOffsets
	kr.AllocatedArrays = append(kr.AllocatedArrays, spec.Name)
	return nil
}
