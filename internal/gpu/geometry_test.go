//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/internal/gputest"
)

func TestVertexDataValidate(t *testing.T) {
	tests := []struct {
		name string
		data VertexData
		want error
	}{
		{"positions only", VertexData{Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}}, nil},
		{"positions and colors", VertexData{
			Positions: []float32{0, 0, 0},
			Colors:    []float32{1, 0, 0},
		}, nil},
		{"empty", VertexData{}, ErrEmptyGeometry},
		{"ragged positions", VertexData{Positions: []float32{0, 0}}, ErrGeometryMismatch},
		{"short colors", VertexData{
			Positions: []float32{0, 0, 0, 1, 1, 1},
			Colors:    []float32{1, 0, 0},
		}, ErrGeometryMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUploadWritesStreams(t *testing.T) {
	env := gputest.NewNoop(t)
	data := VertexData{
		Positions: []float32{-0.5, -0.5, 0, 0.5, -0.5, 0, 0, 0.3, 0},
		Colors:    []float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
	}

	g, err := Upload(env.Device, env.Queue, data)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer g.Destroy()

	if g.Count() != 3 {
		t.Errorf("Count() = %d, want 3", g.Count())
	}

	for _, tc := range []struct {
		attr Attribute
		want []float32
	}{
		{AttribPosition, data.Positions},
		{AttribColor, data.Colors},
	} {
		buf := g.Buffer(tc.attr)
		if buf == nil {
			t.Fatalf("Buffer(%s) is nil", tc.attr.Name())
		}
		writes := env.Queue.WritesTo(buf)
		if len(writes) != 1 {
			t.Fatalf("writes to %s = %d, want 1", tc.attr.Name(), len(writes))
		}
		raw := writes[0].Data
		if len(raw) != len(tc.want)*4 {
			t.Fatalf("%s: wrote %d bytes, want %d", tc.attr.Name(), len(raw), len(tc.want)*4)
		}
		for i, v := range tc.want {
			got := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
			if got != v {
				t.Errorf("%s[%d] = %v, want %v", tc.attr.Name(), i, got, v)
			}
		}
	}
}

func TestUploadWithoutColors(t *testing.T) {
	env := gputest.NewNoop(t)
	g, err := Upload(env.Device, env.Queue, VertexData{Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer g.Destroy()

	if g.Buffer(AttribColor) != nil {
		t.Error("expected nil color buffer")
	}
	if got := env.Device.Created(gputest.KindBuffer); got != 1 {
		t.Errorf("created %d buffers, want 1", got)
	}
}

func TestUploadRejectsInvalidData(t *testing.T) {
	env := gputest.NewNoop(t)
	_, err := Upload(env.Device, env.Queue, VertexData{Positions: []float32{1, 2}})
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("error = %v, want ErrGeometryMismatch", err)
	}
	if got := env.Device.Created(gputest.KindBuffer); got != 0 {
		t.Errorf("created %d buffers for invalid data, want 0", got)
	}
}

func TestUploadNilDevice(t *testing.T) {
	if _, err := Upload(nil, nil, VertexData{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("error = %v, want ErrNilDevice", err)
	}
}

func TestUploadColorFailureReleasesPositions(t *testing.T) {
	env := gputest.NewNoop(t)
	data := VertexData{
		Positions: []float32{0, 0, 0},
		Colors:    []float32{1, 1, 1},
	}

	// Let the position buffer through, fail the color buffer.
	failing := &failAfter{Device: env.Device, allow: 1}
	if _, err := Upload(failing, env.Queue, data); !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("error = %v, want injected failure", err)
	}
	if got := env.Device.Created(gputest.KindBuffer); got != 1 {
		t.Errorf("created %d buffers before failure, want 1", got)
	}
	if got := env.Device.Live(gputest.KindBuffer); got != 0 {
		t.Errorf("live buffers = %d after failed upload, want 0", got)
	}
}

func TestGeometryDestroyIdempotent(t *testing.T) {
	env := gputest.NewNoop(t)
	g, err := Upload(env.Device, env.Queue, VertexData{
		Positions: []float32{0, 0, 0},
		Colors:    []float32{1, 1, 1},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	g.Destroy()
	g.Destroy()

	if got := env.Device.Destroyed(gputest.KindBuffer); got != 2 {
		t.Errorf("destroyed %d buffers, want 2", got)
	}
	if g.Buffer(AttribPosition) != nil || g.Buffer(AttribColor) != nil {
		t.Error("expected nil buffers after Destroy")
	}
}

// failAfter arms a buffer creation failure once allow buffers were created.
type failAfter struct {
	*gputest.Device
	allow int
}

func (f *failAfter) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if f.allow == 0 {
		f.Device.FailNext(gputest.KindBuffer)
	}
	f.allow--
	return f.Device.CreateBuffer(desc)
}
