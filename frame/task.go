// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"gviegas/neo3/driver"
)

// TaskNode is an opaque graphics task in a Pipeline.
//
// A task is split into two phases on purpose: Setup lets the
// scheduler gather every task's resource usage before any
// command buffer recording begins, so barriers can be
// computed and batched globally instead of being interleaved
// with task-local recording.
type TaskNode interface {
	// Setup declares every resource the task will touch in
	// Execute by appending to the UsageRecords returned from
	// subsequent calls to Usage, with accurate FirstState,
	// LastState and MultipleUse. It may also acquire
	// transient descriptor/constant allocations from the
	// SetupContext.
	//
	// Setup must be pure with respect to the GPU: no command
	// buffer recording, no mutation of any resource's real or
	// shadowed state beyond what SetupContext itself hands
	// back for later use in Execute.
	Setup(*SetupContext) error

	// Usage returns the task's usage list for the current
	// frame. It is only valid to call after Setup returns,
	// and the scheduler sorts the slice by resource identity
	// as soon as Setup returns.
	Usage() []UsageRecord

	// Execute records a single command buffer using the
	// allocator and scratch space in ctx.
	//
	// The first call to ctx.CmdBuffer().Transition for a
	// given (resource, subresource) inside Execute must not
	// be relied upon to have emitted a real barrier - the
	// BarrierInjector has already ensured the resource is in
	// UsageRecord.FirstState by the time Execute begins.
	// Subsequent transitions inside Execute are the task's
	// own responsibility.
	Execute(*RenderContext) error
}

// SetupContext is passed to TaskNode.Setup.
type SetupContext struct {
	// FrameIndex is the index of the frame currently being
	// scheduled (the Scheduler's frame counter, as in
	// FrameContext.FrameIndex).
	FrameIndex int

	// Frame carries the engine-supplied per-frame inputs
	// (back-buffer target, queues, upload descriptions, ...).
	Frame *FrameContext
}

// RenderContext is passed to TaskNode.Execute.
type RenderContext struct {
	// FrameIndex is the index of the frame currently being
	// recorded (the Scheduler's frame counter, as in
	// FrameContext.FrameIndex).
	FrameIndex int

	// Frame carries the engine-supplied per-frame inputs.
	Frame *FrameContext

	cb driver.CmdBuffer
}

// CmdBuffer returns the command buffer the task must record
// into. It is already past Begin when Execute is called and
// must not be ended or reset by the task itself.
func (c *RenderContext) CmdBuffer() driver.CmdBuffer { return c.cb }

// BaseTask is an embeddable helper that implements the
// Usage method of TaskNode by storing the slice appended to
// by Setup. Task implementations that do not need custom
// usage-list storage can embed BaseTask and call
// AppendUsage from within their own Setup method.
type BaseTask struct {
	usage []UsageRecord
}

// AppendUsage appends u to the task's usage list. It is
// meant to be called from Setup.
func (b *BaseTask) AppendUsage(u UsageRecord) { b.usage = append(b.usage, u) }

// Usage implements TaskNode.
func (b *BaseTask) Usage() []UsageRecord { return b.usage }

// resetUsage clears the usage list so Setup can be run again
// next frame without leaking the previous frame's records.
func (b *BaseTask) resetUsage() { b.usage = b.usage[:0] }
