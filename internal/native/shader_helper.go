package native

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// SPIRVWords converts SPIR-V bytes to the uint32 word slice HAL expects.
// SPIR-V is little-endian 32-bit words.
func SPIRVWords(spirvBytes []byte) ([]uint32, error) {
	if len(spirvBytes) == 0 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("spir-v length %d is not a positive multiple of 4", len(spirvBytes))
	}

	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return spirvCode, nil
}

// CreateShaderModule creates a HAL shader module carrying both the WGSL
// text and its SPIR-V translation, so that SPIR-V and WGSL consuming
// backends can both use it.
func CreateShaderModule(device hal.Device, label, wgsl string, spirvCode []uint32) (hal.ShaderModule, error) {
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			WGSL:  wgsl,
			SPIRV: spirvCode,
		},
	})
}

// RenderResources groups the GPU objects behind one render pipeline so
// they can be released together.
type RenderResources struct {
	Device         hal.Device
	Pipeline       hal.RenderPipeline
	PipelineLayout hal.PipelineLayout
	BindGroup      hal.BindGroup
	BindLayout     hal.BindGroupLayout
	Buffers        []hal.Buffer
}

// Destroy cleans up all GPU resources in reverse creation order.
// Fields are cleared as they are released, so Destroy may be called again.
func (r *RenderResources) Destroy() {
	if r.Device == nil {
		return
	}

	// Destroy pipeline first
	if r.Pipeline != nil {
		r.Device.DestroyRenderPipeline(r.Pipeline)
		r.Pipeline = nil
	}

	if r.PipelineLayout != nil {
		r.Device.DestroyPipelineLayout(r.PipelineLayout)
		r.PipelineLayout = nil
	}

	if r.BindGroup != nil {
		r.Device.DestroyBindGroup(r.BindGroup)
		r.BindGroup = nil
	}

	if r.BindLayout != nil {
		r.Device.DestroyBindGroupLayout(r.BindLayout)
		r.BindLayout = nil
	}

	for i := len(r.Buffers) - 1; i >= 0; i-- {
		if r.Buffers[i] != nil {
			r.Device.DestroyBuffer(r.Buffers[i])
		}
	}
	r.Buffers = nil
}
