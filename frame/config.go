// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import "runtime"

// Config configures a Scheduler.
type Config struct {
	// WorkerCount is the number of parallel Setup/Execute
	// workers.
	//
	// Default is runtime.GOMAXPROCS(0).
	WorkerCount int

	// MaxParallelRecord bounds how many tasks may be
	// recording concurrently during the Record pass.
	//
	// Default is WorkerCount.
	MaxParallelRecord int

	// FailureColor is the RGBA color the failure screen
	// clears the back buffer to.
	//
	// Default is opaque magenta, [1, 0, 1, 1].
	FailureColor [4]float32
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	n := runtime.GOMAXPROCS(0)
	return Config{
		WorkerCount:       n,
		MaxParallelRecord: n,
		FailureColor:      [4]float32{1, 0, 1, 1},
	}
}

// normalize fills in zero-valued fields of c with their
// Config defaults, so a partially-specified configuration
// is accepted.
func (c Config) normalize() Config {
	dfl := DefaultConfig()
	if c.WorkerCount <= 0 {
		c.WorkerCount = dfl.WorkerCount
	}
	if c.MaxParallelRecord <= 0 {
		c.MaxParallelRecord = c.WorkerCount
	}
	if c.FailureColor == ([4]float32{}) {
		c.FailureColor = dfl.FailureColor
	}
	return c
}
