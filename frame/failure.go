// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import "gviegas/neo3/driver"

// failureScreen records a minimal command buffer that clears
// the back buffer to a fixed color. It is what a Scheduler
// falls back to when Setup, Record, Assemble or Submit fails,
// so the GPU's completion-channel chain stays intact and the
// next frame can proceed normally.
//
// The render pass depends only on the back buffer's pixel
// format, so it is built once and reused; the framebuffer
// depends on the specific ImageView, so one is cached per view
// the caller has presented so far (typically one per
// swapchain image).
type failureScreen struct {
	gpu   driver.GPU
	color [4]float32

	pass driver.RenderPass
	fb   map[driver.ImageView]driver.Framebuf
}

func newFailureScreen(gpu driver.GPU, color [4]float32) *failureScreen {
	return &failureScreen{gpu: gpu, color: color, fb: make(map[driver.ImageView]driver.Framebuf)}
}

// render records and returns a command buffer that clears
// view to the failure color. The caller is responsible for
// ending and submitting it.
func (f *failureScreen) render(cb driver.CmdBuffer, view driver.ImageView, fmt driver.PixelFmt, size driver.Dim3D) error {
	pass, err := f.renderPass(fmt)
	if err != nil {
		return err
	}
	fb, err := f.framebuf(pass, view, size)
	if err != nil {
		return err
	}
	if err := cb.Begin(); err != nil {
		return err
	}
	cb.BeginPass(pass, fb, []driver.ClearValue{{Color: f.color}})
	cb.EndPass()
	return cb.End()
}

func (f *failureScreen) renderPass(fmt driver.PixelFmt) (driver.RenderPass, error) {
	if f.pass != nil {
		return f.pass, nil
	}
	pass, err := f.gpu.NewRenderPass(
		[]driver.Attachment{{
			Format:  fmt,
			Samples: 1,
			Load:    [2]driver.LoadOp{driver.LClear, driver.LDontCare},
			Store:   [2]driver.StoreOp{driver.SStore, driver.SDontCare},
		}},
		[]driver.Subpass{{Color: []int{0}, DS: -1}},
	)
	if err != nil {
		return nil, err
	}
	f.pass = pass
	return pass, nil
}

func (f *failureScreen) framebuf(pass driver.RenderPass, view driver.ImageView, size driver.Dim3D) (driver.Framebuf, error) {
	if fb, ok := f.fb[view]; ok {
		return fb, nil
	}
	fb, err := pass.NewFB([]driver.ImageView{view}, size.Width, size.Height, 1)
	if err != nil {
		return nil, err
	}
	f.fb[view] = fb
	return fb, nil
}

// destroy releases every GPU resource the failure screen
// owns.
func (f *failureScreen) destroy() {
	for _, fb := range f.fb {
		fb.Destroy()
	}
	f.fb = make(map[driver.ImageView]driver.Framebuf)
	if f.pass != nil {
		f.pass.Destroy()
		f.pass = nil
	}
}
