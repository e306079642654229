package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Viewport is the rectangle a render pass draws into, in backing pixels.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// FrameTarget describes the attachments of one render pass.
type FrameTarget struct {
	// Color is the surface texture view to render into.
	Color hal.TextureView
	// Depth is the depth attachment. When nil the pass has no depth buffer.
	Depth hal.TextureView
	// Viewport is applied at the start of the pass when non-zero.
	Viewport Viewport
}

type inflight struct {
	index uint64
	cmd   hal.CommandBuffer
}

// FrameEncoder records and submits one render pass per call. Command
// buffers are freed once the queue reports their submission completed.
type FrameEncoder struct {
	device  hal.Device
	queue   hal.Queue
	pending []inflight
	frames  uint64
}

// NewFrameEncoder creates an encoder for device and queue.
func NewFrameEncoder(device hal.Device, queue hal.Queue) (*FrameEncoder, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &FrameEncoder{device: device, queue: queue}, nil
}

// Encode records a pass that clears target to clear, applies the viewport
// and lets draw record into it, then submits the result.
func (e *FrameEncoder) Encode(target FrameTarget, clear gputypes.Color, draw func(hal.RenderPassEncoder)) error {
	e.frames++
	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(fmt.Sprintf("frame_%d", e.frames)); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}

	rpDesc := &hal.RenderPassDescriptor{
		Label: "frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target.Color,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear,
		}},
	}
	if target.Depth != nil {
		rpDesc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            target.Depth,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	rp := encoder.BeginRenderPass(rpDesc)
	if vp := target.Viewport; vp.Width > 0 && vp.Height > 0 {
		rp.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	}
	if draw != nil {
		draw(rp)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}

	index, err := e.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		e.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit: %w", err)
	}
	e.pending = append(e.pending, inflight{index: index, cmd: cmdBuf})
	e.Reclaim()
	return nil
}

// Reclaim frees command buffers whose submissions have completed.
func (e *FrameEncoder) Reclaim() {
	done := e.queue.PollCompleted()
	keep := e.pending[:0]
	for _, p := range e.pending {
		if p.index <= done {
			e.device.FreeCommandBuffer(p.cmd)
			continue
		}
		keep = append(keep, p)
	}
	e.pending = keep
}

// Pending returns the number of submitted command buffers not yet freed.
func (e *FrameEncoder) Pending() int { return len(e.pending) }

// Destroy waits for the device to go idle and frees every outstanding
// command buffer. Safe to call multiple times.
func (e *FrameEncoder) Destroy() {
	if len(e.pending) == 0 {
		return
	}
	if err := e.device.WaitIdle(); err != nil {
		slogger().Warn("wait idle failed", "err", err)
	}
	for _, p := range e.pending {
		e.device.FreeCommandBuffer(p.cmd)
	}
	e.pending = nil
}
