package animator

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/skinning"
)

func TestAnimationSetNames(t *testing.T) {
	set, err := NewAnimationSet(4)
	if err != nil {
		t.Fatalf("NewAnimationSet: %v", err)
	}
	set.AddAnimation("b", fakeFactory("b", pose.SpaceLocal))
	set.AddAnimation("a", fakeFactory("a", pose.SpaceLocal))
	set.AddAnimation("b", fakeFactory("b2", pose.SpaceLocal))

	if got := set.AnimationNames(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("AnimationNames = %v, want [b a]", got)
	}
	if !set.HasAnimation("a") || set.HasAnimation("c") {
		t.Error("HasAnimation mismatch")
	}
	f, _ := set.factory("b")
	s, _ := f(nil)
	if s.Name() != "b2" {
		t.Errorf("re-registered factory not used, got %q", s.Name())
	}
}

func TestNewAnimationSetOptions(t *testing.T) {
	_, err := NewAnimationSet(4, WithConstantLayout(skinning.ConstantLayout{ScalarsPerRegister: 4, RegistersPerJoint: 3, MatrixStride: 16}))
	if !errors.Is(err, skinning.ErrInvalidLayout) {
		t.Errorf("err = %v, want ErrInvalidLayout", err)
	}

	wide, err := NewAnimationSet(8)
	if err != nil {
		t.Fatalf("NewAnimationSet: %v", err)
	}
	if !wide.UsesCPU() {
		t.Error("8 joints per vertex should force cpu skinning")
	}

	forced, err := NewAnimationSet(4, WithForceCPU(true))
	if err != nil {
		t.Fatalf("NewAnimationSet: %v", err)
	}
	if !forced.UsesCPU() || forced.TestGPUCompatibility(0, 1) {
		t.Error("forced cpu set should never pass the gpu test")
	}
}

func TestTestGPUCompatibility(t *testing.T) {
	tests := []struct {
		name   string
		mode   CondenseMode
		used   int
		joints int
		wantOK bool
	}{
		{"fits", CondenseOff, 8, 40, true},
		{"overflow", CondenseOff, 9, 40, false},
		{"overflow condensed", CondenseAuto, 9, 40, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewAnimationSet(4, WithCondenseMode(tt.mode))
			if err != nil {
				t.Fatalf("NewAnimationSet: %v", err)
			}
			if got := set.TestGPUCompatibility(tt.used, tt.joints); got != tt.wantOK {
				t.Errorf("TestGPUCompatibility = %v, want %v", got, tt.wantOK)
			}
			if set.UsesCPU() == tt.wantOK {
				t.Errorf("UsesCPU = %v after test returned %v", set.UsesCPU(), tt.wantOK)
			}
		})
	}
}

func TestParseCondenseMode(t *testing.T) {
	for in, want := range map[string]CondenseMode{"": CondenseAuto, "auto": CondenseAuto, "on": CondenseOn, "off": CondenseOff} {
		got, err := ParseCondenseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseCondenseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseCondenseMode("sometimes"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}
