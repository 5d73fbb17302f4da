package runner

import (
	"fmt"
)

// CopyArrayToHost reads an allocated array back into a fresh host slice in
// cell order, without touching its bound host array
func (kr *Runner) CopyArrayToHost(name string) ([]float64, error) {
	binding := kr.GetBinding(name)
	if binding == nil || binding.IsScalar {
		return nil, fmt.Errorf("array %s not found", name)
	}
	mem := kr.GetMemory(name)
	if mem == nil {
		return nil, fmt.Errorf("memory for %s not found", name)
	}
	pa, err := kr.readPartitioned(mem, binding)
	if err != nil {
		return nil, err
	}
	result := make([]float64, len(binding.HostArray))
	if err := kr.layout.Gather(pa, result); err != nil {
		return nil, err
	}
	return result, nil
}
