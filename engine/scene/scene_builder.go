package scene

import (
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/config"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithWorkers sets the number of worker goroutines used during the parallel
// prepare phase of Update. Higher values help scenes with many animators;
// lower values reduce scheduling overhead for small scenes.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithQueueSize sets the capacity of the worker task queue.
//
// Parameters:
//   - n: the queue capacity (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithQueueSize(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.queueSize = n
	}
}

// WithIdleTimeout sets the worker idle timeout.
//
// Parameters:
//   - d: the idle timeout
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithIdleTimeout(d time.Duration) SceneBuilderOption {
	return func(s *scene) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithConfig applies the scene section of a loaded configuration.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg config.Config) SceneBuilderOption {
	return func(s *scene) {
		WithWorkers(cfg.Scene.Workers)(s)
		WithQueueSize(cfg.Scene.QueueSize)(s)
		WithIdleTimeout(cfg.Scene.IdleTimeout)(s)
	}
}

// InstanceOption is a functional option for configuring an instance added to a Scene.
type InstanceOption func(inst *instance)

// WithConstantOffset sets the first constant register the instance's matrices are uploaded to.
func WithConstantOffset(offset int) InstanceOption {
	return func(inst *instance) {
		inst.constantOffset = offset
	}
}

// WithStreamOffset sets the first vertex stream slot for the instance's joint streams.
func WithStreamOffset(offset int) InstanceOption {
	return func(inst *instance) {
		inst.streamOffset = offset
	}
}
