package native

import (
	"testing"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/internal/gputest"
)

func TestSPIRVWords(t *testing.T) {
	words, err := SPIRVWords([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("SPIRVWords failed: %v", err)
	}
	if len(words) != 2 || words[0] != 0x07230203 || words[1] != 1 {
		t.Errorf("SPIRVWords = %#x, want [0x7230203 0x1]", words)
	}

	for _, bad := range [][]byte{nil, {1, 2, 3}} {
		if _, err := SPIRVWords(bad); err == nil {
			t.Errorf("SPIRVWords(%v) should fail", bad)
		}
	}
}

func TestCreateShaderModule(t *testing.T) {
	env := gputest.NewNoop(t)
	m, err := CreateShaderModule(env.Device, "test", "@vertex fn main() {}", []uint32{0x07230203})
	if err != nil {
		t.Fatalf("CreateShaderModule failed: %v", err)
	}
	if m == nil {
		t.Fatal("nil module")
	}
	env.Device.DestroyShaderModule(m)
	if env.Device.LiveTotal() != 0 {
		t.Errorf("live objects = %d, want 0", env.Device.LiveTotal())
	}
}

func TestRenderResourcesDestroy(t *testing.T) {
	env := gputest.NewNoop(t)
	dev := env.Device

	layout, _ := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: "layout"})
	group, _ := dev.CreateBindGroup(&hal.BindGroupDescriptor{Label: "group", Layout: layout})
	plLayout, _ := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: "pl"})
	buf, _ := dev.CreateBuffer(&hal.BufferDescriptor{Label: "uniform", Size: 64})

	res := RenderResources{
		Device:         dev,
		PipelineLayout: plLayout,
		BindGroup:      group,
		BindLayout:     layout,
		Buffers:        []hal.Buffer{buf, nil},
	}
	res.Destroy()
	res.Destroy()

	if got := dev.LiveTotal(); got != 0 {
		t.Errorf("live objects = %d after Destroy, want 0", got)
	}
	if got := dev.Destroyed(gputest.KindBuffer); got != 1 {
		t.Errorf("destroyed buffers = %d, want 1", got)
	}

	var empty RenderResources
	empty.Destroy()
}
