// Package config loads the skinning engine's YAML configuration and turns it into constructor options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"

	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("config: invalid value")

// Defaults applied to zero-valued fields.
const (
	DefaultJointsPerVertex  = 4
	DefaultWorkers          = 4
	DefaultQueueSize        = 256
	DefaultIdleTimeout      = time.Second
	DefaultProfilerInterval = time.Second
)

// Config is the root of the YAML document.
type Config struct {
	Skinning SkinningConfig `yaml:"skinning"`
	Layout   LayoutConfig   `yaml:"layout"`
	Budget   BudgetConfig   `yaml:"budget"`
	Scene    SceneConfig    `yaml:"scene"`
	Profiler ProfilerConfig `yaml:"profiler"`
}

// SkinningConfig selects the skinning backend and condensation policy.
type SkinningConfig struct {
	// ForceCPU disables GPU skinning for every animation set built from this config.
	ForceCPU bool `yaml:"force_cpu"`

	// JointsPerVertex is the influence count used for procedurally built rigs.
	JointsPerVertex int `yaml:"joints_per_vertex"`

	// UseCondensedIndices is "auto", "on" or "off".
	UseCondensedIndices string `yaml:"use_condensed_indices"`
}

// LayoutConfig describes the constant register layout. The matrix stride is derived.
type LayoutConfig struct {
	ScalarsPerRegister int `yaml:"scalars_per_register"`
	RegistersPerJoint  int `yaml:"registers_per_joint"`
}

// BudgetConfig holds the GPU limits used by the compatibility test.
type BudgetConfig struct {
	MaxVertexRegisters    int `yaml:"max_vertex_registers"`
	MaxGPUJointsPerVertex int `yaml:"max_gpu_joints_per_vertex"`
}

// SceneConfig sizes the worker pool that advances animators each frame.
type SceneConfig struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// ProfilerConfig controls how often the profiler reports.
type ProfilerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns a fully populated configuration.
func Default() *Config {
	c := &Config{}
	c.Coalesce()
	return c
}

// Load reads and validates a YAML configuration file.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - *Config: the configuration with defaults applied
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML bytes
//
// Returns:
//   - *Config: the configuration with defaults applied
//   - error: error if the document cannot be parsed or validated
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.SetStrict(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	c.Coalesce()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Coalesce replaces zero-valued fields with their defaults.
func (c *Config) Coalesce() {
	layout := skinning.DefaultConstantLayout()
	budget := skinning.DefaultBudget()

	c.Skinning.JointsPerVertex = common.Coalesce(c.Skinning.JointsPerVertex, DefaultJointsPerVertex)
	c.Skinning.UseCondensedIndices = common.Coalesce(c.Skinning.UseCondensedIndices, animator.CondenseAuto.String())
	c.Layout.ScalarsPerRegister = common.Coalesce(c.Layout.ScalarsPerRegister, layout.ScalarsPerRegister)
	c.Layout.RegistersPerJoint = common.Coalesce(c.Layout.RegistersPerJoint, layout.RegistersPerJoint)
	c.Budget.MaxVertexRegisters = common.Coalesce(c.Budget.MaxVertexRegisters, budget.MaxVertexRegisters)
	c.Budget.MaxGPUJointsPerVertex = common.Coalesce(c.Budget.MaxGPUJointsPerVertex, budget.MaxGPUJointsPerVertex)
	c.Scene.Workers = common.Coalesce(c.Scene.Workers, DefaultWorkers)
	c.Scene.QueueSize = common.Coalesce(c.Scene.QueueSize, DefaultQueueSize)
	c.Scene.IdleTimeout = common.Coalesce(c.Scene.IdleTimeout, DefaultIdleTimeout)
	c.Profiler.Interval = common.Coalesce(c.Profiler.Interval, DefaultProfilerInterval)
}

// Validate checks every field that Coalesce cannot repair.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig or skinning.ErrInvalidLayout, or nil
func (c *Config) Validate() error {
	if err := c.ConstantLayout().Validate(); err != nil {
		return fmt.Errorf("config: layout: %w", err)
	}
	if _, err := c.CondenseMode(); err != nil {
		return fmt.Errorf("config: skinning.use_condensed_indices: %w", err)
	}

	checks := []struct {
		name  string
		value int
	}{
		{"skinning.joints_per_vertex", c.Skinning.JointsPerVertex},
		{"budget.max_vertex_registers", c.Budget.MaxVertexRegisters},
		{"budget.max_gpu_joints_per_vertex", c.Budget.MaxGPUJointsPerVertex},
		{"scene.workers", c.Scene.Workers},
		{"scene.queue_size", c.Scene.QueueSize},
	}
	for _, chk := range checks {
		if chk.value <= 0 {
			return fmt.Errorf("%w: %s = %d", ErrInvalidConfig, chk.name, chk.value)
		}
	}
	if c.Scene.IdleTimeout <= 0 || c.Profiler.Interval <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	}
	return nil
}

// ConstantLayout returns the configured register layout.
func (c *Config) ConstantLayout() skinning.ConstantLayout {
	return skinning.ConstantLayout{
		ScalarsPerRegister: c.Layout.ScalarsPerRegister,
		RegistersPerJoint:  c.Layout.RegistersPerJoint,
		MatrixStride:       c.Layout.ScalarsPerRegister * c.Layout.RegistersPerJoint,
	}
}

// SkinningBudget returns the configured GPU budget.
func (c *Config) SkinningBudget() skinning.Budget {
	return skinning.Budget{
		MaxVertexRegisters:    c.Budget.MaxVertexRegisters,
		MaxGPUJointsPerVertex: c.Budget.MaxGPUJointsPerVertex,
	}
}

// CondenseMode parses the condensation policy.
func (c *Config) CondenseMode() (animator.CondenseMode, error) {
	return animator.ParseCondenseMode(c.Skinning.UseCondensedIndices)
}

// AnimationSetOptions converts the skinning, layout and budget sections into animation set options.
//
// Returns:
//   - []animator.AnimationSetOption: options for animator.NewAnimationSet or Rig.NewAnimationSet
func (c *Config) AnimationSetOptions() []animator.AnimationSetOption {
	mode, err := c.CondenseMode()
	if err != nil {
		mode = animator.CondenseAuto
	}
	return []animator.AnimationSetOption{
		animator.WithForceCPU(c.Skinning.ForceCPU),
		animator.WithConstantLayout(c.ConstantLayout()),
		animator.WithBudget(c.SkinningBudget()),
		animator.WithCondenseMode(mode),
	}
}
