package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// vertexComponents is the float count per vertex for both positions and
// colors.
const vertexComponents = 3

// vertexStride is the byte stride of one position or color element.
const vertexStride = vertexComponents * 4

// Attribute names a per-vertex input stream.
type Attribute int

const (
	// AttribPosition is the vertex position stream (a_position).
	AttribPosition Attribute = iota
	// AttribColor is the per-vertex color stream (a_color).
	AttribColor
)

// Name returns the shader input name bound to the attribute.
func (a Attribute) Name() string {
	switch a {
	case AttribPosition:
		return "a_position"
	case AttribColor:
		return "a_color"
	default:
		return ""
	}
}

// VertexData is a mesh as two parallel float streams, three floats per
// vertex each. Colors may be empty for meshes whose shader derives color.
type VertexData struct {
	Positions []float32
	Colors    []float32
}

// Count returns the number of vertices.
func (v VertexData) Count() int {
	return len(v.Positions) / vertexComponents
}

// Validate checks the stream lengths.
func (v VertexData) Validate() error {
	if len(v.Positions) == 0 {
		return ErrEmptyGeometry
	}
	if len(v.Positions)%vertexComponents != 0 {
		return fmt.Errorf("%w: %d position floats is not a multiple of %d",
			ErrGeometryMismatch, len(v.Positions), vertexComponents)
	}
	if len(v.Colors) != 0 && len(v.Colors) != len(v.Positions) {
		return fmt.Errorf("%w: %d color floats for %d position floats",
			ErrGeometryMismatch, len(v.Colors), len(v.Positions))
	}
	return nil
}

// GeometryBuffer holds a mesh uploaded once to GPU vertex buffers.
// It is never updated in place; upload a new one to change the mesh.
type GeometryBuffer struct {
	device    hal.Device
	positions hal.Buffer
	colors    hal.Buffer
	count     uint32
}

// Upload validates data and copies it to freshly created vertex buffers.
func Upload(device hal.Device, queue hal.Queue, data VertexData) (*GeometryBuffer, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	g := &GeometryBuffer{device: device, count: uint32(data.Count())} //nolint:gosec // count bounded by slice length

	var err error
	g.positions, err = uploadFloats(device, queue, "geometry_positions", data.Positions)
	if err != nil {
		return nil, fmt.Errorf("upload positions: %w", err)
	}
	if len(data.Colors) > 0 {
		g.colors, err = uploadFloats(device, queue, "geometry_colors", data.Colors)
		if err != nil {
			g.Destroy()
			return nil, fmt.Errorf("upload colors: %w", err)
		}
	}

	slogger().Debug("geometry uploaded",
		"vertices", g.count,
		"colors", g.colors != nil,
	)
	return g, nil
}

func uploadFloats(device hal.Device, queue hal.Queue, label string, values []float32) (hal.Buffer, error) {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write %s: %w", label, err)
	}
	return buf, nil
}

// Count returns the number of vertices in the mesh.
func (g *GeometryBuffer) Count() uint32 { return g.count }

// Buffer returns the vertex buffer holding the given stream, or nil when the
// mesh has no such stream.
func (g *GeometryBuffer) Buffer(a Attribute) hal.Buffer {
	switch a {
	case AttribPosition:
		return g.positions
	case AttribColor:
		return g.colors
	default:
		return nil
	}
}

// Destroy releases the vertex buffers. Safe to call multiple times.
func (g *GeometryBuffer) Destroy() {
	if g.device == nil {
		return
	}
	if g.colors != nil {
		g.device.DestroyBuffer(g.colors)
		g.colors = nil
	}
	if g.positions != nil {
		g.device.DestroyBuffer(g.positions)
		g.positions = nil
	}
}
