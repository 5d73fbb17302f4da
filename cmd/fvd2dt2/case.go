package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Case describes one oscillator run: every cell integrates
//
//	ρ ∂²φ/∂t² + ρω²φ = 0,  φ(0) = amplitude, ∂φ/∂t(0) = 0
//
// with the implicit d2dt2 operator, on a mesh that may breathe in time
type Case struct {
	Name    string      `yaml:"name"`
	Mesh    MeshConfig  `yaml:"mesh"`
	Time    TimeConfig  `yaml:"time"`
	Physics Physics     `yaml:"physics"`
	Device  DeviceSetup `yaml:"device"`
	Output  Output      `yaml:"output"`
}

type MeshConfig struct {
	// File is a Gambit neutral or Gmsh tet mesh. When empty a box is built.
	File   string     `yaml:"file,omitempty"`
	Box    BoxConfig  `yaml:"box"`
	Motion MeshMotion `yaml:"motion"`
}

type BoxConfig struct {
	NX int     `yaml:"nx"`
	NY int     `yaml:"ny"`
	NZ int     `yaml:"nz"`
	LX float64 `yaml:"lx"`
	LY float64 `yaml:"ly"`
	LZ float64 `yaml:"lz"`
}

// MeshMotion scales the mesh by 1 + amplitude·sin(2π·frequency·t) in each
// direction. Zero amplitude keeps the mesh static.
type MeshMotion struct {
	Amplitude float64 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"`
}

type TimeConfig struct {
	Start    float64    `yaml:"start"`
	End      float64    `yaml:"end"`
	DeltaT   float64    `yaml:"dt"`
	Schedule []StepRule `yaml:"schedule,omitempty"`
}

// StepRule switches the step size once time reaches At
type StepRule struct {
	At     float64 `yaml:"at"`
	DeltaT float64 `yaml:"dt"`
}

type Physics struct {
	Omega     float64 `yaml:"omega"`
	Density   float64 `yaml:"density"`
	Amplitude float64 `yaml:"amplitude"`
	// DensityField carries the density as a field with its own history
	// instead of a uniform value
	DensityField bool `yaml:"densityField"`
}

type DeviceSetup struct {
	Enabled       bool     `yaml:"enabled"`
	Backends      []string `yaml:"backends,omitempty"`
	PartitionSize int      `yaml:"partitionSize"`
	// Workers sizes the CPU pool when the device is not used
	Workers int `yaml:"workers"`
}

type Output struct {
	Plot  string `yaml:"plot,omitempty"`
	Every int    `yaml:"every"`
}

// DefaultCase is a static unit box oscillating at 1 Hz for two periods
func DefaultCase() Case {
	return Case{
		Name: "oscillator",
		Mesh: MeshConfig{Box: BoxConfig{NX: 4, NY: 4, NZ: 4, LX: 1, LY: 1, LZ: 1}},
		Time: TimeConfig{End: 2, DeltaT: 0.005},
		Physics: Physics{
			Omega:     6.283185307179586,
			Density:   1,
			Amplitude: 1,
		},
		Device: DeviceSetup{PartitionSize: 256, Workers: 4},
		Output: Output{Every: 1},
	}
}

// LoadCase reads a YAML case file over DefaultCase. Unknown fields are
// rejected.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	return ParseCase(bytes.NewReader(data))
}

func ParseCase(r io.Reader) (*Case, error) {
	c := DefaultCase()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}
	sort.Slice(c.Time.Schedule, func(i, j int) bool {
		return c.Time.Schedule[i].At < c.Time.Schedule[j].At
	})
	return &c, nil
}

func (c *Case) Validate() error {
	if c.Time.DeltaT <= 0 {
		return fmt.Errorf("time.dt must be positive, got %g", c.Time.DeltaT)
	}
	if c.Time.End <= c.Time.Start {
		return fmt.Errorf("time.end %g must be after time.start %g", c.Time.End, c.Time.Start)
	}
	for i, rule := range c.Time.Schedule {
		if rule.DeltaT <= 0 {
			return fmt.Errorf("time.schedule[%d].dt must be positive, got %g", i, rule.DeltaT)
		}
	}
	if c.Physics.Density <= 0 {
		return fmt.Errorf("physics.density must be positive, got %g", c.Physics.Density)
	}
	if c.Physics.Omega < 0 {
		return fmt.Errorf("physics.omega must not be negative, got %g", c.Physics.Omega)
	}
	if c.Mesh.File == "" {
		b := c.Mesh.Box
		if b.NX < 1 || b.NY < 1 || b.NZ < 1 || b.LX <= 0 || b.LY <= 0 || b.LZ <= 0 {
			return fmt.Errorf("invalid mesh.box %+v", b)
		}
	}
	if a := c.Mesh.Motion.Amplitude; a < 0 || a >= 1 {
		return fmt.Errorf("mesh.motion.amplitude must be in [0, 1), got %g", a)
	}
	if c.Device.Enabled && c.Device.PartitionSize < 1 {
		return fmt.Errorf("device.partitionSize must be positive, got %d", c.Device.PartitionSize)
	}
	if c.Output.Every < 1 {
		c.Output.Every = 1
	}
	return nil
}
