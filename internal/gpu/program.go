package gpu

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/internal/native"
)

// Uniform names resolved on every program.
const (
	// UniformModel is the model matrix uniform.
	UniformModel = "u_cube"
	// UniformCamera is the camera (projection * view) matrix uniform.
	UniformCamera = "u_camera"
)

// NotFound is the location of a name the program does not declare.
const NotFound = -1

// mat4Size is the byte size of a mat4x4<f32> uniform.
const mat4Size = 64

// DepthFormat is the depth attachment format every program is linked for.
const DepthFormat = gputypes.TextureFormatDepth24Plus

// resolvedNames lists the names whose locations are looked up after link.
var resolvedNames = []string{UniformModel, UniformCamera, AttribPosition.Name(), AttribColor.Name()}

// LinkerConfig describes the render target the programs will draw into.
type LinkerConfig struct {
	// ColorFormat is the surface texture format. Defaults to BGRA8Unorm.
	ColorFormat gputypes.TextureFormat
}

// Linker builds render pipelines out of vertex/fragment shader pairs.
type Linker struct {
	device hal.Device
	format gputypes.TextureFormat
	seq    int
}

// NewLinker creates a linker for device.
func NewLinker(device hal.Device, cfg LinkerConfig) (*Linker, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if cfg.ColorFormat == gputypes.TextureFormatUndefined {
		cfg.ColorFormat = gputypes.TextureFormatBGRA8Unorm
	}
	return &Linker{device: device, format: cfg.ColorFormat}, nil
}

type attribSlot struct {
	attr     Attribute
	slot     uint32
	location uint32
}

// Program is a linked render pipeline together with its uniform buffers and
// resolved locations. A Program returned by Link is always complete.
type Program struct {
	label     string
	res       native.RenderResources
	uniforms  map[string]hal.Buffer
	sizes     map[string]uint32
	attribs   []attribSlot
	locations map[string]int
	warnings  []MissingLocationWarning
}

// Link combines vs and fs into a program. Both shaders must be unreleased
// and of the right kind. On failure every object created along the way is
// destroyed and a *LinkError is returned.
func (l *Linker) Link(vs, fs *Shader) (*Program, error) {
	l.seq++
	label := fmt.Sprintf("program_%d", l.seq)

	if err := checkShader(vs, ShaderVertex); err != nil {
		return nil, &LinkError{Label: label, Log: err.Error(), Err: err}
	}
	if err := checkShader(fs, ShaderFragment); err != nil {
		return nil, &LinkError{Label: label, Log: err.Error(), Err: err}
	}

	problems := matchInterface(vs, fs)
	uniforms, uproblems := mergeUniforms(vs, fs)
	problems = append(problems, uproblems...)
	for _, name := range []string{UniformModel, UniformCamera} {
		if u, ok := uniforms[name]; ok && !u.mat4 {
			problems = append(problems, fmt.Sprintf("uniform %q must be mat4x4<f32>", name))
		}
	}
	for _, u := range sortedUniforms(uniforms) {
		if u.size == 0 {
			problems = append(problems, fmt.Sprintf("uniform %q has no host-shareable size", u.name))
		}
	}
	if len(problems) > 0 {
		lerr := &LinkError{Label: label, Log: strings.Join(problems, "\n")}
		slogger().Error("program link failed", "program", label, "log", lerr.Log)
		return nil, lerr
	}

	p := &Program{
		label:     label,
		res:       native.RenderResources{Device: l.device},
		uniforms:  make(map[string]hal.Buffer),
		sizes:     make(map[string]uint32),
		locations: make(map[string]int, len(resolvedNames)),
	}
	p.resolve(vs, uniforms)

	if err := l.build(p, vs, fs, sortedUniforms(uniforms)); err != nil {
		p.Destroy()
		lerr := &LinkError{Label: label, Log: err.Error(), Err: err}
		slogger().Error("program link failed", "program", label, "log", lerr.Log)
		return nil, lerr
	}

	slogger().Debug("program linked",
		"program", label,
		"uniforms", len(p.uniforms),
		"attributes", len(p.attribs),
	)
	return p, nil
}

func checkShader(s *Shader, want ShaderKind) error {
	if s == nil {
		return fmt.Errorf("%w: nil %s shader", ErrInvalidShader, want)
	}
	if s.kind != want {
		return fmt.Errorf("%w: got %s shader, want %s", ErrInvalidShader, s.kind, want)
	}
	if s.Released() {
		return fmt.Errorf("%w: %s shader %s", ErrShaderReleased, want, s.label)
	}
	return nil
}

// resolve fills the location map and assigns vertex buffer slots in
// attribute order.
func (p *Program) resolve(vs *Shader, uniforms map[string]uniformVar) {
	inputs := make(map[string]uint32)
	for _, in := range vs.inputs() {
		inputs[in.name] = in.location
	}

	for _, name := range []string{UniformModel, UniformCamera} {
		p.locations[name] = NotFound
		if u, ok := uniforms[name]; ok {
			p.locations[name] = int(u.binding)
		}
	}

	slot := uint32(0)
	for _, attr := range []Attribute{AttribPosition, AttribColor} {
		loc, ok := inputs[attr.Name()]
		if !ok {
			p.locations[attr.Name()] = NotFound
			continue
		}
		p.locations[attr.Name()] = int(loc)
		p.attribs = append(p.attribs, attribSlot{attr: attr, slot: slot, location: loc})
		slot++
	}

	for _, name := range resolvedNames {
		if p.locations[name] == NotFound {
			w := MissingLocationWarning{Program: p.label, Name: name}
			p.warnings = append(p.warnings, w)
			slogger().Warn("location not found", "program", p.label, "name", name)
		}
	}
}

// build creates the uniform buffers, bind group, layouts and pipeline.
func (l *Linker) build(p *Program, vs, fs *Shader, uniforms []uniformVar) error {
	var (
		layoutEntries []gputypes.BindGroupLayoutEntry
		groupEntries  []gputypes.BindGroupEntry
	)
	for _, u := range uniforms {
		size := uniformBufferSize(u.size)
		buf, err := l.device.CreateBuffer(&hal.BufferDescriptor{
			Label: p.label + "_" + u.name,
			Size:  size,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer %s: %w", u.name, err)
		}
		p.res.Buffers = append(p.res.Buffers, buf)
		p.uniforms[u.name] = buf
		p.sizes[u.name] = u.size

		layoutEntries = append(layoutEntries, gputypes.BindGroupLayoutEntry{
			Binding:    u.binding,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
		groupEntries = append(groupEntries, gputypes.BindGroupEntry{
			Binding:  u.binding,
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size},
		})
	}

	var bindLayouts []hal.BindGroupLayout
	if len(layoutEntries) > 0 {
		layout, err := l.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   p.label + "_uniform_layout",
			Entries: layoutEntries,
		})
		if err != nil {
			return fmt.Errorf("create bind group layout: %w", err)
		}
		p.res.BindLayout = layout

		group, err := l.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   p.label + "_uniforms",
			Layout:  layout,
			Entries: groupEntries,
		})
		if err != nil {
			return fmt.Errorf("create bind group: %w", err)
		}
		p.res.BindGroup = group
		bindLayouts = append(bindLayouts, layout)
	}

	pipeLayout, err := l.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label + "_pipe_layout",
		BindGroupLayouts: bindLayouts,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.res.PipelineLayout = pipeLayout

	pipeline, err := l.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  p.label + "_pipeline",
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: vs.entry,
			Buffers:    p.vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.entry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    l.format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0xFF,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	p.res.Pipeline = pipeline
	return nil
}

// vertexLayout returns one buffer layout per resolved attribute, in slot
// order.
func (p *Program) vertexLayout() []gputypes.VertexBufferLayout {
	layouts := make([]gputypes.VertexBufferLayout, 0, len(p.attribs))
	for _, a := range p.attribs {
		layouts = append(layouts, gputypes.VertexBufferLayout{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: a.location},
			},
		})
	}
	return layouts
}

// Label returns the program's debug label.
func (p *Program) Label() string { return p.label }

// Location returns the resolved location of a uniform or attribute name,
// or NotFound.
func (p *Program) Location(name string) int {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	return NotFound
}

// Locations returns a copy of the resolved location map.
func (p *Program) Locations() map[string]int {
	return maps.Clone(p.locations)
}

// Warnings returns the names that could not be resolved at link time.
func (p *Program) Warnings() []MissingLocationWarning {
	return p.warnings
}

// SetMatrix uploads a column-major 4x4 matrix to the named uniform.
// Writing to a name the program does not declare is a no-op.
func (p *Program) SetMatrix(queue hal.Queue, name string, m [16]float32) error {
	var data [mat4Size]byte
	for i, v := range m {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return p.SetUniform(queue, name, data[:])
}

// SetUniform writes raw little-endian bytes to the start of the named
// uniform. data may not be larger than the uniform's declared size.
// Writing to a name the program does not declare is a no-op.
func (p *Program) SetUniform(queue hal.Queue, name string, data []byte) error {
	buf, ok := p.uniforms[name]
	if !ok {
		return nil
	}
	if size := p.sizes[name]; uint32(len(data)) > size { //nolint:gosec // len checked against a uint32 size
		return fmt.Errorf("write uniform %s: %d bytes exceed declared size %d", name, len(data), size)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		return fmt.Errorf("write uniform %s: %w", name, err)
	}
	return nil
}

// UniformSize returns the declared byte size of the named uniform, or 0
// when the program does not declare it.
func (p *Program) UniformSize(name string) uint32 { return p.sizes[name] }

// uniformBufferSize rounds a uniform's type size up to the 16-byte
// granularity of uniform buffer bindings.
func uniformBufferSize(size uint32) uint64 {
	return (uint64(size) + 15) &^ 15
}

// Check reports whether g carries every vertex stream the program reads.
func (p *Program) Check(g *GeometryBuffer) error {
	if g == nil {
		return fmt.Errorf("program %s: %w: no geometry", p.label, ErrMissingStream)
	}
	for _, a := range p.attribs {
		if g.Buffer(a.attr) == nil {
			return fmt.Errorf("program %s reads %s: %w", p.label, a.attr.Name(), ErrMissingStream)
		}
	}
	return nil
}

// Draw records the program's pipeline, uniforms and vertex streams into
// pass and draws every vertex of g as a triangle list. Nothing is drawn when
// g fails Check.
func (p *Program) Draw(pass hal.RenderPassEncoder, g *GeometryBuffer) {
	if p.res.Pipeline == nil || g == nil || g.count == 0 || p.Check(g) != nil {
		return
	}
	pass.SetPipeline(p.res.Pipeline)
	if p.res.BindGroup != nil {
		pass.SetBindGroup(0, p.res.BindGroup, nil)
	}
	for _, a := range p.attribs {
		pass.SetVertexBuffer(a.slot, g.Buffer(a.attr), 0)
	}
	pass.Draw(g.count, 1, 0, 0)
}

// Destroy releases the pipeline and its resources. Safe to call multiple
// times.
func (p *Program) Destroy() {
	p.res.Destroy()
	clear(p.uniforms)
	clear(p.sizes)
}
