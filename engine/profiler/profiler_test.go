package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestTickReportsAtInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	stats := animator.Stats{}
	p := NewProfiler(
		WithInterval(2*time.Second),
		WithClock(clock.now),
		WithStatsSource(func() animator.Stats { return stats }),
	)

	for i := range 9 {
		clock.t = clock.t.Add(200 * time.Millisecond)
		stats.GlobalRecomputes += 2
		stats.MeshBlends++
		if p.Tick() {
			t.Fatalf("Tick %d reported before the interval elapsed", i)
		}
	}

	clock.t = clock.t.Add(200 * time.Millisecond)
	stats.GlobalRecomputes += 2
	stats.MeshBlends++
	if !p.Tick() {
		t.Fatal("Tick did not report after the interval elapsed")
	}

	r := p.Last()
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"fps", r.FPS, 5},
		{"recomputes", r.RecomputesPerSec, 10},
		{"blends", r.BlendsPerSec, 5},
		{"condensed", r.CondensedPerSec, 0},
	}
	for _, tt := range tests {
		if diff := tt.got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestTickWithoutStatsSource(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(-time.Second))

	clock.t = clock.t.Add(time.Second)
	if !p.Tick() {
		t.Fatal("Tick did not report at the default interval")
	}
	if r := p.Last(); r.RecomputesPerSec != 0 || r.FPS != 1 {
		t.Errorf("report = %+v, want fps 1 and no skinning rates", r)
	}
}
