package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "empty document uses defaults",
			yaml: "",
			check: func(t *testing.T, c *Config) {
				if c.ConstantLayout() != skinning.DefaultConstantLayout() {
					t.Errorf("layout = %+v, want default", c.ConstantLayout())
				}
				if c.SkinningBudget() != skinning.DefaultBudget() {
					t.Errorf("budget = %+v, want default", c.SkinningBudget())
				}
				if c.Scene.Workers != DefaultWorkers || c.Profiler.Interval != DefaultProfilerInterval {
					t.Errorf("scene/profiler = %+v / %+v, want defaults", c.Scene, c.Profiler)
				}
			},
		},
		{
			name: "explicit values",
			yaml: `
skinning:
  force_cpu: true
  joints_per_vertex: 2
  use_condensed_indices: "on"
budget:
  max_vertex_registers: 256
scene:
  workers: 8
  idle_timeout: 250ms
profiler:
  interval: 5s
`,
			check: func(t *testing.T, c *Config) {
				if !c.Skinning.ForceCPU || c.Skinning.JointsPerVertex != 2 {
					t.Errorf("skinning = %+v", c.Skinning)
				}
				if mode, _ := c.CondenseMode(); mode != animator.CondenseOn {
					t.Errorf("CondenseMode = %v, want on", mode)
				}
				if c.Budget.MaxVertexRegisters != 256 || c.Budget.MaxGPUJointsPerVertex != 4 {
					t.Errorf("budget = %+v, want 256 registers and default joints", c.Budget)
				}
				if c.Scene.Workers != 8 || c.Scene.IdleTimeout != 250*time.Millisecond {
					t.Errorf("scene = %+v", c.Scene)
				}
				if c.Profiler.Interval != 5*time.Second {
					t.Errorf("profiler interval = %v, want 5s", c.Profiler.Interval)
				}
			},
		},
		{
			name:    "layout stride too small",
			yaml:    "layout:\n  scalars_per_register: 2\n",
			wantErr: skinning.ErrInvalidLayout,
		},
		{
			name:    "negative workers",
			yaml:    "scene:\n  workers: -1\n",
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	inputs := map[string]string{
		"unknown key":    "skinning:\n  force_gpu: true\n",
		"bad condense":   "skinning:\n  use_condensed_indices: sometimes\n",
		"malformed yaml": "skinning: [",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(in)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", in)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skin.yaml")
	if err := os.WriteFile(path, []byte("skinning:\n  force_cpu: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Skinning.ForceCPU {
		t.Error("force_cpu not loaded")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded, want error")
	}
}

func TestAnimationSetOptions(t *testing.T) {
	c, err := Parse([]byte("skinning:\n  force_cpu: true\n  use_condensed_indices: \"off\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	set, err := animator.NewAnimationSet(c.Skinning.JointsPerVertex, c.AnimationSetOptions()...)
	if err != nil {
		t.Fatalf("NewAnimationSet: %v", err)
	}
	if !set.UsesCPU() {
		t.Error("UsesCPU = false, want true")
	}
	if set.CondenseMode() != animator.CondenseOff {
		t.Errorf("CondenseMode = %v, want off", set.CondenseMode())
	}
	if set.Layout() != c.ConstantLayout() || set.Budget() != c.SkinningBudget() {
		t.Errorf("layout/budget = %+v / %+v, want config values", set.Layout(), set.Budget())
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
