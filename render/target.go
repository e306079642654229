// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/internal/gpu"
)

// SurfaceConfig describes how a SurfaceAdapter configures its surface.
type SurfaceConfig struct {
	// Format is the surface texture format. When undefined the handle's
	// SurfaceFormat is used, falling back to BGRA8Unorm.
	Format gputypes.TextureFormat

	// PresentMode defaults to Fifo.
	PresentMode gputypes.PresentMode

	// AlphaMode is passed through; the zero value is Auto.
	AlphaMode gputypes.CompositeAlphaMode
}

// SurfaceAdapter keeps a window surface's backing resolution in step with
// the window's logical size and scale factor.
//
// The backing size is floor(client * scale) per axis. When it changes the
// surface is reconfigured and the depth target recreated. A zero area
// unconfigures the surface and leaves the adapter empty until the window
// grows again.
//
// SurfaceAdapter is not safe for concurrent use; it belongs to the render
// loop goroutine.
type SurfaceAdapter struct {
	device  hal.Device
	queue   hal.Queue
	surface hal.Surface
	window  gpucontext.WindowProvider
	cfg     SurfaceConfig

	width      uint32
	height     uint32
	configured bool
	stale      bool
	depth      gpu.DepthTarget
	viewport   gpu.Viewport
	clear      *gpu.FrameEncoder
}

// NewSurfaceAdapter creates an adapter for surface, sized from window.
// No configuration happens until the first Reconcile or Sync.
func NewSurfaceAdapter(handle DeviceHandle, surface hal.Surface, window gpucontext.WindowProvider, cfg SurfaceConfig) (*SurfaceAdapter, error) {
	if surface == nil || window == nil {
		return nil, ErrNilSurface
	}
	device, queue, err := HALDevice(handle)
	if err != nil {
		return nil, err
	}
	if cfg.Format == gputypes.TextureFormatUndefined {
		cfg.Format = handle.SurfaceFormat()
	}
	if cfg.Format == gputypes.TextureFormatUndefined {
		cfg.Format = gputypes.TextureFormatBGRA8Unorm
	}
	if cfg.PresentMode == gputypes.PresentModeUndefined {
		cfg.PresentMode = hal.PresentModeFifo
	}
	enc, err := gpu.NewFrameEncoder(device, queue)
	if err != nil {
		return nil, err
	}
	return &SurfaceAdapter{
		device:  device,
		queue:   queue,
		surface: surface,
		window:  window,
		cfg:     cfg,
		clear:   enc,
	}, nil
}

// backingSize converts a logical window size to device pixels.
func backingSize(w, h int, scale float64) (uint32, uint32) {
	if scale <= 0 {
		scale = 1
	}
	bw := math.Floor(float64(w) * scale)
	bh := math.Floor(float64(h) * scale)
	if bw <= 0 || bh <= 0 {
		return 0, 0
	}
	return uint32(bw), uint32(bh) //nolint:gosec // window sizes fit uint32
}

// Sync brings the backing size in line with the window and re-applies the
// viewport. It reports whether the backing size changed.
func (a *SurfaceAdapter) Sync() (bool, error) {
	w, h := a.window.Size()
	tw, th := backingSize(w, h, a.window.ScaleFactor())

	resized := false
	if tw != a.width || th != a.height || a.stale {
		if err := a.resize(tw, th); err != nil {
			return false, err
		}
		resized = true
	}

	a.viewport = gpu.Viewport{
		Width:    float32(a.width),
		Height:   float32(a.height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	return resized, nil
}

// Reconcile runs Sync and then clears the surface to transparent black with
// a standalone presented pass.
func (a *SurfaceAdapter) Reconcile() (bool, error) {
	resized, err := a.Sync()
	if err != nil {
		return resized, err
	}
	if a.Empty() {
		return resized, nil
	}

	frame, err := a.Acquire()
	if err != nil {
		return resized, err
	}
	target := gpu.FrameTarget{Color: frame.View, Viewport: a.viewport}
	if err := a.clear.Encode(target, gputypes.Color{}, nil); err != nil {
		frame.Discard()
		return resized, fmt.Errorf("clear surface: %w", err)
	}
	if err := frame.Present(); err != nil {
		return resized, err
	}
	return resized, nil
}

func (a *SurfaceAdapter) resize(w, h uint32) error {
	a.stale = false
	if w == 0 || h == 0 {
		if a.configured {
			a.surface.Unconfigure(a.device)
			a.configured = false
		}
		a.depth.Destroy(a.device)
		a.width, a.height = 0, 0
		slogger().Debug("surface empty, unconfigured")
		return nil
	}

	err := a.surface.Configure(a.device, &hal.SurfaceConfiguration{
		Width:       w,
		Height:      h,
		Format:      a.cfg.Format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: a.cfg.PresentMode,
		AlphaMode:   a.cfg.AlphaMode,
	})
	if err != nil {
		return fmt.Errorf("configure surface %dx%d: %w", w, h, err)
	}
	a.configured = true

	if err := a.depth.Ensure(a.device, w, h, "surface"); err != nil {
		return err
	}
	a.width, a.height = w, h
	slogger().Debug("surface resized", "width", w, "height", h)
	return nil
}

// SurfaceFrame is one acquired surface texture.
type SurfaceFrame struct {
	View hal.TextureView

	adapter *SurfaceAdapter
	texture hal.SurfaceTexture
	done    bool
}

// Acquire returns the next surface texture and a view onto it. The caller
// must Present or Discard the frame.
func (a *SurfaceAdapter) Acquire() (*SurfaceFrame, error) {
	if a.Empty() {
		return nil, fmt.Errorf("acquire surface texture: %w", hal.ErrZeroArea)
	}
	acquired, err := a.surface.AcquireTexture(nil)
	if err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) {
			a.stale = true
		}
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	if acquired.Suboptimal {
		a.stale = true
	}
	view, err := a.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label: "surface_view",
	})
	if err != nil {
		a.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("create surface view: %w", err)
	}
	return &SurfaceFrame{View: view, adapter: a, texture: acquired.Texture}, nil
}

// Present queues the frame for display and releases the view.
func (f *SurfaceFrame) Present() error {
	if f.done {
		return nil
	}
	f.done = true
	a := f.adapter
	err := a.queue.Present(a.surface, f.texture, nil)
	a.device.DestroyTextureView(f.View)
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// Discard releases the frame without presenting it.
func (f *SurfaceFrame) Discard() {
	if f.done {
		return
	}
	f.done = true
	f.adapter.device.DestroyTextureView(f.View)
	f.adapter.surface.DiscardTexture(f.texture)
}

// Viewport returns the full-surface viewport with depth range [0, 1].
func (a *SurfaceAdapter) Viewport() gpu.Viewport { return a.viewport }

// Stale reports whether the last acquire found the surface outdated or
// suboptimal. The next Sync reconfigures it.
func (a *SurfaceAdapter) Stale() bool { return a.stale }

// BackingSize returns the configured surface size in device pixels.
func (a *SurfaceAdapter) BackingSize() (uint32, uint32) { return a.width, a.height }

// Aspect returns width/height of the backing size, or 1 when empty.
func (a *SurfaceAdapter) Aspect() float32 {
	if a.Empty() {
		return 1
	}
	return float32(a.width) / float32(a.height)
}

// DepthView returns the depth attachment view, or nil when empty.
func (a *SurfaceAdapter) DepthView() hal.TextureView { return a.depth.View() }

// Format returns the surface texture format.
func (a *SurfaceAdapter) Format() gputypes.TextureFormat { return a.cfg.Format }

// Empty reports whether the surface has zero area.
func (a *SurfaceAdapter) Empty() bool { return a.width == 0 || a.height == 0 }

// Surface returns the wrapped HAL surface.
func (a *SurfaceAdapter) Surface() hal.Surface { return a.surface }

// Destroy frees the clear pass buffers, the depth target and unconfigures
// the surface. Safe to call multiple times.
func (a *SurfaceAdapter) Destroy() {
	a.clear.Destroy()
	a.depth.Destroy(a.device)
	if a.configured {
		a.surface.Unconfigure(a.device)
		a.configured = false
	}
	a.width, a.height = 0, 0
}
