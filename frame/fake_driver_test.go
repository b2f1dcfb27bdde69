// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"sync"

	"gviegas/neo3/driver"
)

// fakeGPU is a minimal, in-memory stand-in for a driver.GPU
// used throughout the package's tests. It records a snapshot
// of every Commit call's command buffers (so a later Reset by
// the pool does not erase what was submitted) and completes
// it immediately and successfully, unless failNext or
// failAlways has been armed.
type fakeGPU struct {
	mu sync.Mutex

	commits    [][]driver.CmdBuffer
	failNext   bool
	failAlways bool
}

func newFakeGPU() *fakeGPU { return &fakeGPU{} }

func (g *fakeGPU) Driver() driver.Driver { return nil }

func (g *fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	snap := make([]driver.CmdBuffer, len(cb))
	for i, c := range cb {
		if f, ok := c.(*fakeCmdBuffer); ok {
			cp := *f
			snap[i] = &cp
		} else {
			snap[i] = c
		}
	}
	g.mu.Lock()
	g.commits = append(g.commits, snap)
	fail := g.failAlways || g.failNext
	g.failNext = false
	g.mu.Unlock()

	if fail {
		ch <- newFrameErr("fake commit failure")
		return
	}
	ch <- nil
}

func (g *fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &fakeCmdBuffer{}, nil
}

func (g *fakeGPU) NewRenderPass(att []driver.Attachment, sub []driver.Subpass) (driver.RenderPass, error) {
	return &fakeRenderPass{}, nil
}

func (g *fakeGPU) NewShaderCode(data []byte) (driver.ShaderCode, error) { return nil, nil }

func (g *fakeGPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) { return nil, nil }

func (g *fakeGPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) { return nil, nil }

func (g *fakeGPU) NewPipeline(state any) (driver.Pipeline, error) { return nil, nil }

func (g *fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return newFakeBuffer(size), nil
}

func (g *fakeGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return &fakeImage{}, nil
}

func (g *fakeGPU) NewSampler(spln *driver.Sampling) (driver.Sampler, error) { return nil, nil }

func (g *fakeGPU) Limits() driver.Limits { return driver.Limits{} }

// fakeCmdBuffer records the sequence of calls made to it so
// tests can assert on recording order without a real backend.
type fakeCmdBuffer struct {
	began     bool
	ended     bool
	reset     int
	blits     int
	passes    int
	copies    []driver.BufferCopy
	imgCopies []driver.BufImgCopy
	barriers  [][]driver.Barrier
	transit   [][]driver.Transition
}

func (c *fakeCmdBuffer) Destroy() {}

func (c *fakeCmdBuffer) Begin() error {
	c.began = true
	c.ended = false
	return nil
}

func (c *fakeCmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear []driver.ClearValue) {
	c.passes++
}
func (c *fakeCmdBuffer) NextSubpass() {}
func (c *fakeCmdBuffer) EndPass()     {}

func (c *fakeCmdBuffer) BeginWork(wait bool) {}
func (c *fakeCmdBuffer) EndWork()            {}

func (c *fakeCmdBuffer) BeginBlit(wait bool) { c.blits++ }
func (c *fakeCmdBuffer) EndBlit()            {}

func (c *fakeCmdBuffer) SetPipeline(pl driver.Pipeline)                                  {}
func (c *fakeCmdBuffer) SetViewport(vp []driver.Viewport)                                {}
func (c *fakeCmdBuffer) SetScissor(sciss []driver.Scissor)                               {}
func (c *fakeCmdBuffer) SetBlendColor(r, g, b, a float32)                                {}
func (c *fakeCmdBuffer) SetStencilRef(value uint32)                                      {}
func (c *fakeCmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64)        {}
func (c *fakeCmdBuffer) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64) {}
func (c *fakeCmdBuffer) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int) {
}
func (c *fakeCmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
}

func (c *fakeCmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int)               {}
func (c *fakeCmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {}
func (c *fakeCmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int)                    {}

func (c *fakeCmdBuffer) CopyBuffer(param *driver.BufferCopy) { c.copies = append(c.copies, *param) }
func (c *fakeCmdBuffer) CopyImage(param *driver.ImageCopy)   {}
func (c *fakeCmdBuffer) CopyBufToImg(param *driver.BufImgCopy) {
	c.imgCopies = append(c.imgCopies, *param)
}
func (c *fakeCmdBuffer) CopyImgToBuf(param *driver.BufImgCopy) {}
func (c *fakeCmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {}

func (c *fakeCmdBuffer) Barrier(b []driver.Barrier)       { c.barriers = append(c.barriers, b) }
func (c *fakeCmdBuffer) Transition(t []driver.Transition) { c.transit = append(c.transit, t) }

func (c *fakeCmdBuffer) End() error {
	c.ended = true
	return nil
}

func (c *fakeCmdBuffer) Reset() error {
	c.reset++
	c.began = false
	c.ended = false
	c.copies = nil
	c.imgCopies = nil
	c.barriers = nil
	c.transit = nil
	return nil
}

// fakeBuffer is a host-visible buffer backed by a plain slice.
type fakeBuffer struct {
	data []byte
}

func newFakeBuffer(size int64) *fakeBuffer { return &fakeBuffer{data: make([]byte, size)} }

func (b *fakeBuffer) Destroy()        {}
func (b *fakeBuffer) Visible() bool   { return true }
func (b *fakeBuffer) Bytes() []byte   { return b.data }
func (b *fakeBuffer) Cap() int64      { return int64(len(b.data)) }

// fakeImage and fakeImageView are opaque identities only;
// no test reads pixel data back from them.
type fakeImage struct{}

func (i *fakeImage) Destroy() {}

func (i *fakeImage) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	return &fakeImageView{}, nil
}

type fakeImageView struct{}

func (v *fakeImageView) Destroy() {}

type fakeRenderPass struct{}

func (p *fakeRenderPass) Destroy() {}

func (p *fakeRenderPass) NewFB(iv []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	return &fakeFramebuf{}, nil
}

type fakeFramebuf struct{}

func (f *fakeFramebuf) Destroy() {}

// fakeResource returns a Resource with a stable identity
// distinct from any other call's, backed by a heap-allocated
// int so reflect.ValueOf(ptr).Pointer() never collides.
func fakeResource(nsub int) Resource {
	p := new(int)
	return NewResource(p, nsub)
}
