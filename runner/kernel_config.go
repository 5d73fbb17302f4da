package runner

import (
	"fmt"

	"github.com/notargets/FVKernel/runner/builder"
)

// ActionFlags represents the memory operations to perform for a parameter
type ActionFlags int

const (
	NoAction ActionFlags = 0
	// Copy from host to device before kernel execution
	CopyTo ActionFlags = 1 << iota
	// Copy from device to host after kernel execution
	CopyBack
	Copy = CopyTo | CopyBack
)

// ParameterUsage represents how a binding is used by one kernel
type ParameterUsage struct {
	Binding *DeviceBinding
	Actions ActionFlags
}

// HasAction checks if a specific action is set
func (pu *ParameterUsage) HasAction(action ActionFlags) bool {
	return pu.Actions&action != 0
}

// KernelConfig lists the bindings a kernel takes, in argument order, with
// the copies to perform around each execution
type KernelConfig struct {
	Name       string
	Parameters []ParameterUsage
}

// ParamConfig is a lightweight builder for configuring parameter actions
type ParamConfig struct {
	name    string
	binding *DeviceBinding
	actions ActionFlags
}

// Param creates a parameter configuration for a named binding
func (kr *Runner) Param(name string) *ParamConfig {
	return &ParamConfig{name: name, binding: kr.GetBinding(name)}
}

// CopyTo sets the parameter to copy from host to device
func (pc *ParamConfig) CopyTo() *ParamConfig {
	pc.actions |= CopyTo
	return pc
}

// CopyBack sets the parameter to copy from device to host
func (pc *ParamConfig) CopyBack() *ParamConfig {
	pc.actions |= CopyBack
	return pc
}

// ConfigureKernel records the parameters of a kernel
func (kr *Runner) ConfigureKernel(name string, params ...*ParamConfig) (*KernelConfig, error) {
	if !kr.IsAllocated {
		return nil, fmt.Errorf("device memory not allocated - call AllocateDevice first")
	}
	config := &KernelConfig{
		Name:       name,
		Parameters: make([]ParameterUsage, 0, len(params)),
	}
	for _, param := range params {
		if param == nil {
			continue
		}
		if param.binding == nil {
			return nil, fmt.Errorf("parameter %s has no binding", param.name)
		}
		if param.binding.IsScalar && param.actions != NoAction {
			return nil, fmt.Errorf("scalar %s cannot have copy operations", param.name)
		}
		config.Parameters = append(config.Parameters, ParameterUsage{
			Binding: param.binding,
			Actions: param.actions,
		})
	}
	kr.KernelConfigs[name] = config
	return config, nil
}

// GetKernelSignatureForConfig generates the parameter list matching the
// arguments ExecuteKernel passes
func (kr *Runner) GetKernelSignatureForConfig(name string) (string, error) {
	config, exists := kr.KernelConfigs[name]
	if !exists {
		return "", fmt.Errorf("kernel %s not configured", name)
	}
	specs := make([]builder.ParamSpec, len(config.Parameters))
	for i, p := range config.Parameters {
		specs[i] = p.Binding.Spec
	}
	return builder.GenerateKernelSignature(specs), nil
}
