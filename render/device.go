// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DeviceHandle provides GPU device access from the host application.
//
// The cube renderer RECEIVES the device from the host, it does not create
// one. A host such as a gogpu.App implements DeviceHandle and additionally
// exposes the underlying HAL objects through HalDevice and HalQueue:
//
//	type hostHandle struct{ dev hal.Device; q hal.Queue }
//
//	func (h *hostHandle) HalDevice() any { return h.dev }
//	func (h *hostHandle) HalQueue() any  { return h.q }
//
// DeviceHandle is an alias for gpucontext.DeviceProvider so any provider
// from the gpucontext ecosystem can be passed directly.
type DeviceHandle = gpucontext.DeviceProvider

// HALProvider is implemented by device handles that expose their HAL
// device and queue.
type HALProvider interface {
	HalDevice() any
	HalQueue() any
}

// HALDevice extracts the HAL device and queue from handle. It returns
// ErrNoHAL when the handle is nil, does not implement HALProvider, or
// returns values of the wrong type.
func HALDevice(handle DeviceHandle) (hal.Device, hal.Queue, error) {
	if handle == nil {
		return nil, nil, ErrNoHAL
	}
	p, ok := handle.(HALProvider)
	if !ok {
		return nil, nil, ErrNoHAL
	}
	device, ok := p.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, ErrNoHAL
	}
	queue, ok := p.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, ErrNoHAL
	}
	return device, queue, nil
}

// halDeviceHandle is a DeviceHandle over an already opened HAL device.
type halDeviceHandle struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	info   gpucontext.AdapterInfo
}

// NewHALDeviceHandle wraps an opened HAL device and queue as a DeviceHandle
// for hosts that do not bring their own provider, such as the cubeview
// command and tests.
func NewHALDeviceHandle(device hal.Device, queue hal.Queue, format gputypes.TextureFormat, info gpucontext.AdapterInfo) DeviceHandle {
	return &halDeviceHandle{device: device, queue: queue, format: format, info: info}
}

func (h *halDeviceHandle) Device() gpucontext.Device             { return h.device }
func (h *halDeviceHandle) Queue() gpucontext.Queue               { return h.queue }
func (h *halDeviceHandle) Adapter() gpucontext.Adapter           { return nil }
func (h *halDeviceHandle) SurfaceFormat() gputypes.TextureFormat { return h.format }
func (h *halDeviceHandle) AdapterInfo() gpucontext.AdapterInfo   { return h.info }
func (h *halDeviceHandle) HalDevice() any                        { return h.device }
func (h *halDeviceHandle) HalQueue() any                         { return h.queue }

// AdapterInfoFrom converts a HAL adapter description into the summary a
// DeviceHandle reports. Virtual GPUs and unrecognized device types map to
// AdapterTypeUnknown.
func AdapterInfoFrom(info gputypes.AdapterInfo) gpucontext.AdapterInfo {
	out := gpucontext.AdapterInfo{Name: info.Name, Type: gpucontext.AdapterTypeUnknown}
	switch info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		out.Type = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		out.Type = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		out.Type = gpucontext.AdapterTypeSoftware
	}
	return out
}

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// It never yields a HAL device.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo reports an unknown adapter.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// Ensure handles implement DeviceHandle.
var (
	_ DeviceHandle = NullDeviceHandle{}
	_ DeviceHandle = (*halDeviceHandle)(nil)
	_ HALProvider  = (*halDeviceHandle)(nil)
)
