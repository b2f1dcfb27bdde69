// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"sync"

	"gviegas/neo3/driver"
	"gviegas/neo3/internal/bitm"
)

// CmdBufferPool is an arena-like pool of driver.CmdBuffer
// values. Each frame draws command buffers from the pool and
// returns them once the GPU signals that the submission they
// were part of has completed - never before, since a command
// buffer cannot be reset for reuse while the GPU may still be
// reading from it.
//
// This generalizes the acquire/release-on-completion pattern
// already used by engine's staging buffer (see
// engine/staging.go's stagingWk channel), which performs the
// same dance for a single command buffer; CmdBufferPool does
// it for an arbitrary number of pooled buffers shared across
// every TaskNode in a frame.
type CmdBufferPool struct {
	gpu  driver.GPU
	mu   sync.Mutex
	free []driver.CmdBuffer
}

// NewCmdBufferPool creates an empty pool backed by gpu.
func NewCmdBufferPool(gpu driver.GPU) *CmdBufferPool {
	return &CmdBufferPool{gpu: gpu}
}

// Acquire returns a command buffer ready for Begin, creating
// a new one if the pool is empty.
func (p *CmdBufferPool) Acquire() (driver.CmdBuffer, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		cb := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return cb, nil
	}
	p.mu.Unlock()
	return p.gpu.NewCmdBuffer()
}

// Release resets every command buffer in cbs and returns it
// to the pool. The caller must not call this until the GPU has
// signaled that the buffers finished execution - never while
// they may still be read from.
func (p *CmdBufferPool) Release(cbs []driver.CmdBuffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cb := range cbs {
		cb.Reset()
		p.free = append(p.free, cb)
	}
}

// Destroy destroys every pooled command buffer.
// Precondition: no frame in flight and no outstanding
// submission awaiting completion (i.e. called only from
// ReleaseResources, which already requires this).
func (p *CmdBufferPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cb := range p.free {
		cb.Destroy()
	}
	p.free = nil
}

// ScratchPool is an arena of transient buffer space for
// per-task constant data, allocated in fixed-size blocks and
// tracked with a bitm.Bitm free list - the same approach
// engine/staging.go uses to track space in its staging
// buffer, generalized here for any per-frame scratch use
// rather than just texture upload staging.
type ScratchPool struct {
	buf   driver.Buffer
	block int64
	bm    bitm.Bitm[uint64]
	mu    sync.Mutex
}

// NewScratchPool creates a pool over buf, a host-visible
// driver.Buffer, dividing it into fixed-size blocks.
// block must evenly divide buf.Cap() and be a multiple of
// 256 bytes, matching the constant-buffer-range alignment
// driver.DescHeap.SetBuffer requires.
func NewScratchPool(buf driver.Buffer, block int64) *ScratchPool {
	p := &ScratchPool{buf: buf, block: block}
	nblk := int(buf.Cap() / block)
	p.bm.Grow((nblk + 63) / 64)
	// Bits past the last whole block do not map to buffer
	// space, so they are kept permanently reserved.
	for i := nblk; i < p.bm.Cap(); i++ {
		p.bm.Set(i)
	}
	return p
}

// Reserve reserves n contiguous blocks and returns the byte
// offset of the first one. It fails if the pool has no
// contiguous run of n free blocks.
func (p *ScratchPool) Reserve(n int) (offset int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.bm.SearchRange(n)
	if !ok {
		return 0, newFrameErr("scratch pool exhausted")
	}
	for i := 0; i < n; i++ {
		p.bm.Set(idx + i)
	}
	return int64(idx) * p.block, nil
}

// Release frees the n blocks starting at offset, as
// returned by a previous call to Reserve.
func (p *ScratchPool) Release(offset int64, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := int(offset / p.block)
	for i := 0; i < n; i++ {
		p.bm.Unset(idx + i)
	}
}

// Bytes returns the backing buffer's memory, for the caller
// to write constant data into at a reserved offset.
func (p *ScratchPool) Bytes() []byte { return p.buf.Bytes() }
