// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides the integration layer between the cube renderer
// and the host that owns the GPU device and the window.
//
// # Key Principle
//
// The renderer RECEIVES a GPU device from the host application, it does
// NOT create its own. The host passes a DeviceHandle (an alias for
// gpucontext.DeviceProvider) that also exposes the HAL device and queue,
// and a gpucontext.WindowProvider that reports the logical window size and
// DPI scale.
//
// # Core Types
//
//   - DeviceHandle: GPU device access from the host application
//   - HALDevice: extracts hal.Device and hal.Queue from a DeviceHandle
//   - SurfaceAdapter: keeps the surface backing size, depth target and
//     viewport in step with the window
//   - SurfaceFrame: one acquired surface texture, presented or discarded
//
// # Usage
//
//	handle := render.NewHALDeviceHandle(device, queue, format, info)
//	adapter, err := render.NewSurfaceAdapter(handle, surface, window, render.SurfaceConfig{})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Destroy()
//
//	if _, err := adapter.Reconcile(); err != nil {
//	    return err
//	}
//
// # Backing Size
//
// The backing size is floor(client * scale) per axis. A window with zero
// area unconfigures the surface; Empty reports true until it grows again.
package render
