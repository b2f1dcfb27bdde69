// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"errors"
	"strconv"
)

// ErrPipelineBusy means a Pipeline lifecycle operation
// (SetPipeline, ReleasePipeline, ReleaseResources) was
// requested while a frame was in flight. The operation is
// rejected but the frame continues unaffected.
var ErrPipelineBusy = errors.New("frame: pipeline busy")

// ErrSubmissionFailure means the driver rejected a command
// buffer at Commit time. It is treated like a SetupFailure
// or ExecuteFailure (the frame aborts and the failure screen
// renders) but, unlike those, it marks the Scheduler's
// pipeline unrecoverable: no further frames will be
// scheduled until SetPipeline replaces it.
var ErrSubmissionFailure = errors.New("frame: submission failure")

// taskError wraps an error returned by user task code
// (Setup or Execute) with the NodeID that produced it, so
// the failure path and any surfaced diagnostics can identify
// which task aborted the frame.
type taskError struct {
	node  NodeID
	phase string // "setup", "execute" or "assemble"
	err   error
}

func (e *taskError) Error() string {
	return "frame: " + e.phase + " failed for node " + strconv.Itoa(int(e.node)) + ": " + e.err.Error()
}

func (e *taskError) Unwrap() error { return e.err }
