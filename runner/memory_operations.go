package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/FVKernel/partitions"
	"github.com/notargets/FVKernel/runner/builder"
	"github.com/notargets/gocca"
)

// CopyToDevice copies a single bound array from host to device
func (kr *Runner) CopyToDevice(name string) error {
	binding := kr.GetBinding(name)
	if binding == nil {
		return fmt.Errorf("no binding found for %s", name)
	}
	return kr.copyToDevice(binding)
}

// CopyFromDevice copies a single bound array from device to host
func (kr *Runner) CopyFromDevice(name string) error {
	binding := kr.GetBinding(name)
	if binding == nil {
		return fmt.Errorf("no binding found for %s", name)
	}
	return kr.copyFromDevice(binding)
}

// copyToDevice scatters the host array into partition order, padding
// included, and copies it in one transfer
func (kr *Runner) copyToDevice(binding *DeviceBinding) error {
	if binding.IsScalar {
		return nil
	}
	mem := kr.GetMemory(binding.Name)
	if mem == nil {
		return fmt.Errorf("no device memory allocated for %s", binding.Name)
	}
	pa, err := kr.layout.Scatter(binding.HostArray, binding.Stride, kr.hostOffsets[binding.Name])
	if err != nil {
		return err
	}
	if len(pa.GlobalData) == 0 {
		return nil
	}
	if binding.DataType == builder.Float32 {
		data := make([]float32, len(pa.GlobalData))
		for i, v := range pa.GlobalData {
			data[i] = float32(v)
		}
		mem.CopyFrom(unsafe.Pointer(&data[0]), int64(len(data)*4))
		return nil
	}
	mem.CopyFrom(unsafe.Pointer(&pa.GlobalData[0]), int64(len(pa.GlobalData)*8))
	return nil
}

// copyFromDevice is the inverse of copyToDevice
func (kr *Runner) copyFromDevice(binding *DeviceBinding) error {
	if binding.IsScalar {
		return nil
	}
	mem := kr.GetMemory(binding.Name)
	if mem == nil {
		return fmt.Errorf("no device memory allocated for %s", binding.Name)
	}
	pa, err := kr.readPartitioned(mem, binding)
	if err != nil {
		return err
	}
	return kr.layout.Gather(pa, binding.HostArray)
}

func (kr *Runner) readPartitioned(mem *gocca.OCCAMemory, binding *DeviceBinding) (*partitions.PartitionedArray, error) {
	offsets, ok := kr.hostOffsets[binding.Name]
	if !ok {
		return nil, fmt.Errorf("no offsets recorded for %s", binding.Name)
	}
	pa := &partitions.PartitionedArray{
		GlobalData: make([]float64, offsets[len(offsets)-1]),
		Offsets:    offsets,
		Stride:     binding.Stride,
	}
	if len(pa.GlobalData) == 0 {
		return pa, nil
	}
	if binding.DataType == builder.Float32 {
		data := make([]float32, len(pa.GlobalData))
		mem.CopyTo(unsafe.Pointer(&data[0]), int64(len(data)*4))
		for i, v := range data {
			pa.GlobalData[i] = float64(v)
		}
		return pa, nil
	}
	mem.CopyTo(unsafe.Pointer(&pa.GlobalData[0]), int64(len(pa.GlobalData)*8))
	return pa, nil
}
