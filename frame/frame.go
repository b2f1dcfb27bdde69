// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package frame implements the engine's frame scheduler.
//
// Each frame, the scheduler walks a Pipeline - a DAG of TaskNodes -
// and turns it into a correctly ordered, correctly synchronized
// stream of driver.CmdBuffer submissions. It runs TaskNode.Setup in
// parallel to gather every resource usage up front, computes a
// deterministic Schedule, injects the minimum necessary barriers
// between tasks, and records/submits command buffers in parallel
// wherever the ParallelCompatibilityOracle allows it.
package frame

import (
	"fmt"
)

func newFrameErr(s string) error { return fmt.Errorf("frame: %s", s) }
