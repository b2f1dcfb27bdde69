// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import "gviegas/neo3/driver"

// UploadDesc describes a single CPU-to-GPU data upload that
// must complete before any task that reads the destination
// resource records its commands.
type UploadDesc struct {
	Data []byte

	// Dst identifies the destination resource for state
	// tracking and barrier injection.
	Dst Resource

	// DstState is the state the destination resource must be
	// left in once the upload has completed, e.g.
	// StateShaderResource for a texture that will be sampled
	// afterward, or StateCopySrc for a buffer a later task
	// still reads from as a copy source.
	DstState ResourceState

	// DstImage/DstView set means an image upload, copied
	// into the subresource named by DstLayer/DstLevel/
	// DstSize. DstImage nil means a buffer upload, through
	// DstBuffer at DstOffset, instead.
	DstImage driver.Image
	DstView  driver.ImageView
	DstLayer int
	DstLevel int
	DstSize  driver.Dim3D

	// DstBuffer/DstOffset apply only to buffer uploads.
	DstBuffer driver.Buffer
	DstOffset int64
}

// FrameContext carries everything a TaskNode's Setup and
// Execute methods need to do their work for a single frame:
// the frame's ordinal, its target, the resource pools it may
// draw from, and the uploads the caller wants applied before
// any task reads their destinations.
//
// A Scheduler constructs one FrameContext per Execute call
// and passes it down through SetupContext and RenderContext;
// TaskNode implementations never construct their own.
type FrameContext struct {
	// FrameIndex is a monotonically increasing counter,
	// starting at 0, identifying this frame's position in
	// the submission sequence.
	FrameIndex int

	// BackBuffer is the frame's presentation target.
	BackBuffer driver.ImageView

	// BackBufferFmt/BackBufferSize describe BackBuffer's
	// image, so the failure screen can build (and cache) a
	// render pass/framebuffer pair for it without the
	// scheduler needing any other knowledge of presentation.
	BackBufferFmt  driver.PixelFmt
	BackBufferSize driver.Dim3D

	// GPU submits and creates resources. The scheduler
	// assumes a single implicit queue, matching the
	// driver.GPU.Commit contract; there is no separate
	// queue handle to select between.
	GPU driver.GPU

	// CmdBuffers pools command buffers across tasks.
	CmdBuffers *CmdBufferPool

	// Scratch pools per-frame transient buffer space for
	// constant data a task writes during Execute.
	Scratch *ScratchPool

	// Uploads lists the data transfers the implicit upload
	// task (see upload.go) must perform before the rest of
	// the pipeline executes.
	Uploads []UploadDesc
}
