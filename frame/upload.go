// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"gviegas/neo3/driver"
	"gviegas/neo3/internal/bitm"
)

// uploadBlock is the granularity at which UploadTask reserves
// space in its staging buffer. Texture uploads usually need
// large contiguous ranges, so a large block keeps the free
// list small; a single bitm word covers one 1024x1024 32-bit
// image with no mip levels.
const (
	uploadBlock = 131072
	uploadNBit  = 32
)

// UploadTask is the implicit first TaskNode of every frame: it
// copies FrameContext.Uploads into their destination resources
// before any other task records. It folds its destination
// transitions into the same BarrierInjector pipeline every
// other TaskNode uses, rather than hand-writing its own
// barriers the way a one-off staging routine would.
//
// It owns a single host-visible buffer sized on demand and
// grown as needed, reusing the allocated capacity across
// frames via a bitm.Bitm free list - the same allocation
// strategy engine's staging buffer uses for texture uploads,
// generalized here to cover both image and buffer
// destinations.
type UploadTask struct {
	BaseTask

	gpu driver.GPU
	buf driver.Buffer
	bm  bitm.Bitm[uint32]

	offsets []int64
	blocks  []int
}

// NewUploadTask creates an UploadTask that allocates its
// staging buffer from gpu.
func NewUploadTask(gpu driver.GPU) *UploadTask {
	return &UploadTask{gpu: gpu}
}

// Setup reserves staging space for every upload queued in
// ctx.Frame.Uploads and declares the corresponding usage
// records so BarrierInjector transitions each destination into
// StateCopyDst before Execute runs.
func (t *UploadTask) Setup(ctx *SetupContext) error {
	t.resetUsage()
	t.offsets = t.offsets[:0]
	t.blocks = t.blocks[:0]

	for _, u := range ctx.Frame.Uploads {
		off, nblk, err := t.reserve(len(u.Data))
		if err != nil {
			return err
		}
		copy(t.buf.Bytes()[off:], u.Data)
		t.offsets = append(t.offsets, off)
		t.blocks = append(t.blocks, nblk)

		sub := 0
		if u.DstImage != nil {
			sub = u.DstLayer
		}
		t.AppendUsage(UsageRecord{
			Resource:    u.Dst,
			Subresource: sub,
			FirstState:  StateCopyDst,
			LastState:   u.DstState,
			// An upload always transitions its destination at
			// least twice (into StateCopyDst, then into
			// DstState), so it never qualifies for
			// parallel-compatible merging with another user of
			// the same resource.
			MultipleUse: true,
			View:        u.DstView,
		})
	}
	return nil
}

// Execute records the copy commands for every queued upload.
// By the time Execute runs, BarrierInjector has already
// transitioned every destination into StateCopyDst.
func (t *UploadTask) Execute(ctx *RenderContext) error {
	cb := ctx.CmdBuffer()
	if len(ctx.Frame.Uploads) == 0 {
		return nil
	}
	cb.BeginBlit(false)
	defer cb.EndBlit()
	for i, u := range ctx.Frame.Uploads {
		off := t.offsets[i]
		if u.DstImage != nil {
			cb.CopyBufToImg(&driver.BufImgCopy{
				Buf:    t.buf,
				BufOff: off,
				Stride: [2]int64{int64(u.DstSize.Width), int64(u.DstSize.Height)},
				Img:    u.DstImage,
				ImgOff: driver.Off3D{},
				Layer:  u.DstLayer,
				Level:  u.DstLevel,
				Size:   u.DstSize,
			})
		} else {
			cb.CopyBuffer(&driver.BufferCopy{
				From:    t.buf,
				FromOff: off,
				To:      u.DstBuffer,
				ToOff:   u.DstOffset,
				Size:    int64(len(u.Data)),
			})
		}
	}
	return nil
}

// reserve reserves n contiguous bytes (rounded up to whole
// blocks) in the staging buffer, growing it if necessary.
// It returns the byte offset and the number of blocks
// consumed, so Release can unreserve the exact range once the
// upload has been read back by the GPU.
func (t *UploadTask) reserve(n int) (off int64, nblk int, err error) {
	nblk = (n + uploadBlock - 1) / uploadBlock
	idx, ok := t.bm.SearchRange(nblk)
	if !ok {
		if err = t.grow(nblk); err != nil {
			return
		}
		idx, ok = t.bm.SearchRange(nblk)
		if !ok {
			return 0, 0, newFrameErr("upload buffer exhausted after growth")
		}
	}
	for i := 0; i < nblk; i++ {
		t.bm.Set(idx + i)
	}
	off = int64(idx) * uploadBlock
	return
}

// grow enlarges the staging buffer by at least nblk blocks,
// replacing t.buf with a new, larger allocation. The old
// buffer's contents are copied into the new one, since Setup
// may already have reserved and filled ranges for earlier
// uploads of the same frame when a later one needs growth.
func (t *UploadTask) grow(nblk int) error {
	words := (nblk + uploadNBit - 1) / uploadNBit
	cur := t.bm.Cap()
	newCap := cur + words*uploadNBit
	size := int64(newCap) * uploadBlock

	buf, err := t.gpu.NewBuffer(size, true, 0)
	if err != nil {
		return err
	}
	if t.buf != nil {
		copy(buf.Bytes(), t.buf.Bytes())
		t.buf.Destroy()
	}
	t.buf = buf
	t.bm.Grow(words)
	return nil
}

// Release returns the staging space consumed by the frame
// that has just finished executing, so it may be reused by a
// later frame's uploads.
func (t *UploadTask) Release() {
	for i, off := range t.offsets {
		idx := int(off / uploadBlock)
		for b := 0; b < t.blocks[i]; b++ {
			t.bm.Unset(idx + b)
		}
	}
	t.offsets = t.offsets[:0]
	t.blocks = t.blocks[:0]
}

// Destroy releases the staging buffer's GPU resources.
func (t *UploadTask) Destroy() {
	if t.buf != nil {
		t.buf.Destroy()
		t.buf = nil
	}
	t.bm = bitm.Bitm[uint32]{}
}
