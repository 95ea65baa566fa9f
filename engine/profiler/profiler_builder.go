package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
)

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(p *Profiler)

// WithInterval sets how often Tick logs a report. Non-positive values are ignored.
//
// Parameters:
//   - d: the report interval
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithStatsSource sets a function returning cumulative skinning counters, usually a Scene's Stats.
//
// Parameters:
//   - source: the stats source
//
// Returns:
//   - ProfilerOption: option function to apply
func WithStatsSource(source func() animator.Stats) ProfilerOption {
	return func(p *Profiler) {
		p.stats = source
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}
