package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DepthTarget is a single-sample Depth24Plus texture and its view, sized to
// the surface backing resolution.
type DepthTarget struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

// Ensure (re)creates the depth texture when the requested size differs from
// the current one. A zero dimension releases the target.
func (d *DepthTarget) Ensure(device hal.Device, w, h uint32, labelPrefix string) error {
	if d.width == w && d.height == h && d.tex != nil {
		return nil
	}
	d.Destroy(device)
	if w == 0 || h == 0 {
		return nil
	}

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         labelPrefix + "_depth",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	d.tex = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: labelPrefix + "_depth_view",
	})
	if err != nil {
		d.Destroy(device)
		return fmt.Errorf("create depth view: %w", err)
	}
	d.view = view
	d.width = w
	d.height = h

	slogger().Debug("depth target created", "width", w, "height", h)
	return nil
}

// View returns the depth attachment view, or nil when no target exists.
func (d *DepthTarget) View() hal.TextureView { return d.view }

// Size returns the current target dimensions.
func (d *DepthTarget) Size() (uint32, uint32) { return d.width, d.height }

// Destroy releases the view and texture. Safe to call multiple times.
func (d *DepthTarget) Destroy(device hal.Device) {
	if d.view != nil {
		device.DestroyTextureView(d.view)
		d.view = nil
	}
	if d.tex != nil {
		device.DestroyTexture(d.tex)
		d.tex = nil
	}
	d.width, d.height = 0, 0
}
