package runner

import (
	"fmt"

	"github.com/notargets/FVKernel/runner/builder"
)

// ExecuteKernel runs a configured kernel. Scalar values are taken
// positionally from scalarValues, falling back to the bound host values.
func (kr *Runner) ExecuteKernel(name string, scalarValues ...interface{}) error {
	config, exists := kr.KernelConfigs[name]
	if !exists {
		return fmt.Errorf("kernel %s not configured - use ConfigureKernel first", name)
	}
	kernel, exists := kr.Kernels[name]
	if !exists {
		return fmt.Errorf("kernel %s not compiled - use BuildKernel first", name)
	}

	for _, param := range config.Parameters {
		if param.HasAction(CopyTo) {
			if err := kr.copyToDevice(param.Binding); err != nil {
				return fmt.Errorf("pre-kernel copy failed: %w", err)
			}
		}
	}

	args, err := kr.buildKernelArguments(config, scalarValues)
	if err != nil {
		return fmt.Errorf("failed to build arguments: %w", err)
	}
	if err := kernel.RunWithArgs(args...); err != nil {
		return fmt.Errorf("kernel execution failed: %w", err)
	}
	kr.Device.Finish()

	for _, param := range config.Parameters {
		if param.HasAction(CopyBack) {
			if err := kr.copyFromDevice(param.Binding); err != nil {
				return fmt.Errorf("post-kernel copy failed: %w", err)
			}
		}
	}
	return nil
}

// buildKernelArguments orders arguments as GenerateKernelSignature declares
// them: K, then each array's data and offsets, then scalars
func (kr *Runner) buildKernelArguments(config *KernelConfig, scalarValues []interface{}) ([]interface{}, error) {
	args := []interface{}{kr.PooledMemory["K"]}
	for _, p := range config.Parameters {
		if p.Binding.IsScalar {
			continue
		}
		globalMem := kr.GetMemory(p.Binding.Name)
		if globalMem == nil {
			return nil, fmt.Errorf("memory for %s not found", p.Binding.Name)
		}
		offsetMem := kr.GetOffsets(p.Binding.Name)
		if offsetMem == nil {
			return nil, fmt.Errorf("offsets for %s not found", p.Binding.Name)
		}
		args = append(args, globalMem, offsetMem)
	}

	scalarIdx := 0
	for _, p := range config.Parameters {
		if !p.Binding.IsScalar {
			continue
		}
		var value interface{}
		switch {
		case scalarIdx < len(scalarValues):
			value = scalarValues[scalarIdx]
			scalarIdx++
		case p.Binding.HostScalar != nil:
			value = p.Binding.HostScalar
		default:
			return nil, fmt.Errorf("no value provided for scalar %s", p.Binding.Name)
		}
		args = append(args, kr.scalarArgument(value))
	}
	if scalarIdx < len(scalarValues) {
		return nil, fmt.Errorf("%d scalar values given, kernel %s takes %d",
			len(scalarValues), config.Name, scalarIdx)
	}
	return args, nil
}

// scalarArgument converts floating point scalars to the device real_t
func (kr *Runner) scalarArgument(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		if kr.FloatType == builder.Float32 {
			return float32(v)
		}
	case float32:
		if kr.FloatType == builder.Float64 {
			return float64(v)
		}
	case int:
		if kr.IntType == builder.INT32 {
			return int32(v)
		}
		return int64(v)
	case int64:
		if kr.IntType == builder.INT32 {
			return int32(v)
		}
	case int32:
		if kr.IntType == builder.INT64 {
			return int64(v)
		}
	}
	return value
}
