//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/internal/gputest"
)

type linkFixture struct {
	env      *gputest.Env
	compiler *Compiler
	linker   *Linker
}

func newLinkFixture(t *testing.T) *linkFixture {
	t.Helper()
	env := gputest.NewNoop(t)
	c, err := NewCompiler(env.Device)
	if err != nil {
		t.Fatalf("NewCompiler failed: %v", err)
	}
	l, err := NewLinker(env.Device, LinkerConfig{})
	if err != nil {
		t.Fatalf("NewLinker failed: %v", err)
	}
	return &linkFixture{env: env, compiler: c, linker: l}
}

func (f *linkFixture) pair(t *testing.T, sources func() (ShaderSource, ShaderSource)) (*Shader, *Shader) {
	t.Helper()
	vs, fs := sources()
	return compileStock(t, f.compiler, vs), compileStock(t, f.compiler, fs)
}

func TestLinkCubeProgram(t *testing.T) {
	f := newLinkFixture(t)
	vs, fs := f.pair(t, CubeShaders)

	p, err := f.linker.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	defer p.Destroy()

	want := map[string]int{
		UniformModel:          0,
		UniformCamera:         1,
		AttribPosition.Name(): 0,
		AttribColor.Name():    1,
	}
	for name, loc := range want {
		if got := p.Location(name); got != loc {
			t.Errorf("Location(%q) = %d, want %d", name, got, loc)
		}
	}
	if len(p.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", p.Warnings())
	}
	if p.Location("u_missing") != NotFound {
		t.Error("expected NotFound for an undeclared name")
	}

	pipes := f.env.Device.Pipelines()
	if len(pipes) != 1 {
		t.Fatalf("created %d pipelines, want 1", len(pipes))
	}
	desc := pipes[0]
	if desc.Primitive.Topology != gputypes.PrimitiveTopologyTriangleList {
		t.Errorf("topology = %v, want TriangleList", desc.Primitive.Topology)
	}
	if desc.DepthStencil == nil || desc.DepthStencil.Format != DepthFormat {
		t.Error("expected Depth24Plus depth state")
	} else if desc.DepthStencil.DepthCompare != gputypes.CompareFunctionLess || !desc.DepthStencil.DepthWriteEnabled {
		t.Error("expected depth test Less with writes enabled")
	}
	if got := len(desc.Vertex.Buffers); got != 2 {
		t.Fatalf("vertex buffers = %d, want 2", got)
	}
	for i, b := range desc.Vertex.Buffers {
		if b.ArrayStride != vertexStride {
			t.Errorf("buffer %d stride = %d, want %d", i, b.ArrayStride, vertexStride)
		}
		if b.Attributes[0].ShaderLocation != uint32(i) {
			t.Errorf("buffer %d shader location = %d, want %d", i, b.Attributes[0].ShaderLocation, i)
		}
	}
	if desc.Fragment.Targets[0].Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("color format = %v, want BGRA8Unorm", desc.Fragment.Targets[0].Format)
	}
}

func TestLinkLocationsAreCopies(t *testing.T) {
	f := newLinkFixture(t)
	vs, fs := f.pair(t, CubeShaders)
	p, err := f.linker.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	defer p.Destroy()

	locs := p.Locations()
	locs[UniformModel] = 42
	if p.Location(UniformModel) != 0 {
		t.Error("mutating Locations() result changed the program")
	}
}

func TestLinkTriangleReportsMissingNames(t *testing.T) {
	f := newLinkFixture(t)
	vs, fs := f.pair(t, TriangleShaders)

	p, err := f.linker.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	defer p.Destroy()

	missing := make(map[string]bool)
	for _, w := range p.Warnings() {
		missing[w.Name] = true
	}
	for _, name := range []string{UniformModel, UniformCamera, AttribColor.Name()} {
		if !missing[name] {
			t.Errorf("expected warning for %q", name)
		}
		if p.Location(name) != NotFound {
			t.Errorf("Location(%q) = %d, want NotFound", name, p.Location(name))
		}
	}
	if p.Location(AttribPosition.Name()) != 0 {
		t.Errorf("Location(a_position) = %d, want 0", p.Location(AttribPosition.Name()))
	}

	// No uniforms means no bind group.
	if got := f.env.Device.Created(gputest.KindBindGroup); got != 0 {
		t.Errorf("created %d bind groups, want 0", got)
	}

	// Writing a missing uniform is a silent no-op.
	if err := p.SetMatrix(f.env.Queue, UniformModel, [16]float32{}); err != nil {
		t.Errorf("SetMatrix on missing uniform: %v", err)
	}
	if len(f.env.Queue.Writes()) != 0 {
		t.Error("SetMatrix on missing uniform wrote to the queue")
	}
}

func TestLinkInvalidShaders(t *testing.T) {
	f := newLinkFixture(t)
	vs, fs := f.pair(t, CubeShaders)
	released, _ := f.pair(t, CubeShaders)
	released.Release()

	tests := []struct {
		name   string
		vs, fs *Shader
		want   error
	}{
		{"nil vertex", nil, fs, ErrInvalidShader},
		{"nil fragment", vs, nil, ErrInvalidShader},
		{"swapped kinds", fs, vs, ErrInvalidShader},
		{"released vertex", released, fs, ErrShaderReleased},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.linker.Link(tt.vs, tt.fs)
			if p != nil {
				t.Error("expected nil program")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var lerr *LinkError
			if !errors.As(err, &lerr) {
				t.Errorf("error %T is not *LinkError", err)
			}
		})
	}
}

func TestLinkInterfaceMismatch(t *testing.T) {
	f := newLinkFixture(t)
	triVS, _ := TriangleShaders()

	// The vertex stage only writes location 0.
	fsSrc := `
@fragment
fn fs_main(@location(3) v_extra: vec4<f32>) -> @location(0) vec4<f32> {
    return v_extra;
}`
	vs := compileStock(t, f.compiler, triVS)
	fs := compileStock(t, f.compiler, ShaderSource{Kind: ShaderFragment, Text: fsSrc})

	before := f.env.Device.LiveTotal()
	p, err := f.linker.Link(vs, fs)
	if err == nil {
		p.Destroy()
		t.Fatal("expected link error")
	}
	var lerr *LinkError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %T is not *LinkError", err)
	}
	if !strings.Contains(lerr.Log, "v_extra") {
		t.Errorf("log %q does not name the unmatched input", lerr.Log)
	}
	if got := f.env.Device.LiveTotal(); got != before {
		t.Errorf("live objects %d after failed link, want %d", got, before)
	}
}

func TestLinkAcceptsNonMatrixUniform(t *testing.T) {
	f := newLinkFixture(t)
	cubeVS, _ := CubeShaders()
	fsSrc := `
@group(0) @binding(2)
var<uniform> u_tint: vec4<f32>;

@fragment
fn fs_main(@location(0) v_color: vec3<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(v_color, 1.0) * u_tint;
}`
	vs := compileStock(t, f.compiler, cubeVS)
	fs := compileStock(t, f.compiler, ShaderSource{Kind: ShaderFragment, Text: fsSrc})

	p, err := f.linker.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	defer p.Destroy()

	if got := p.UniformSize("u_tint"); got != 16 {
		t.Errorf("UniformSize(u_tint) = %d, want 16", got)
	}
	if got := p.UniformSize(UniformModel); got != mat4Size {
		t.Errorf("UniformSize(u_cube) = %d, want %d", got, mat4Size)
	}
	sizes := make(map[string]uint64)
	for _, d := range f.env.Device.Buffers() {
		sizes[d.Label] = d.Size
	}
	if got := sizes[p.Label()+"_u_tint"]; got != 16 {
		t.Errorf("u_tint buffer size = %d, want 16", got)
	}
	if got := sizes[p.Label()+"_"+UniformCamera]; got != mat4Size {
		t.Errorf("u_camera buffer size = %d, want %d", got, mat4Size)
	}

	tint := make([]byte, 16)
	if err := p.SetUniform(f.env.Queue, "u_tint", tint); err != nil {
		t.Errorf("SetUniform(u_tint) failed: %v", err)
	}
	if err := p.SetMatrix(f.env.Queue, "u_tint", [16]float32{}); err == nil {
		t.Error("SetMatrix into a vec4 uniform should fail")
	}
}

func TestLinkRejectsNonMatrixTransform(t *testing.T) {
	f := newLinkFixture(t)
	vsSrc := `
@group(0) @binding(0)
var<uniform> u_cube: vec4<f32>;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) v_color: vec4<f32>,
}

@vertex
fn vs_main(@location(0) a_position: vec3<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = vec4<f32>(a_position, 1.0) + u_cube;
    out.v_color = vec4<f32>(1.0);
    return out;
}`
	_, fsSrc := TriangleShaders()
	vs := compileStock(t, f.compiler, ShaderSource{Kind: ShaderVertex, Text: vsSrc})
	fs := compileStock(t, f.compiler, fsSrc)

	before := f.env.Device.LiveTotal()
	p, err := f.linker.Link(vs, fs)
	if err == nil {
		p.Destroy()
		t.Fatal("expected link error for vec4 u_cube")
	}
	var lerr *LinkError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %T is not *LinkError", err)
	}
	if !strings.Contains(lerr.Log, "u_cube") {
		t.Errorf("log %q does not name the uniform", lerr.Log)
	}
	if got := f.env.Device.LiveTotal(); got != before {
		t.Errorf("live objects %d after failed link, want %d", got, before)
	}
}

func TestLinkFailureReleasesEverything(t *testing.T) {
	kinds := []string{
		gputest.KindBuffer,
		gputest.KindBindGroupLayout,
		gputest.KindBindGroup,
		gputest.KindPipelineLayout,
		gputest.KindRenderPipeline,
	}
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			f := newLinkFixture(t)
			vs, fs := f.pair(t, CubeShaders)
			before := f.env.Device.LiveTotal()

			f.env.Device.FailNext(kind)
			p, err := f.linker.Link(vs, fs)
			if err == nil {
				p.Destroy()
				t.Fatal("expected link error")
			}
			if !errors.Is(err, gputest.ErrInjected) {
				t.Errorf("error = %v, want injected failure", err)
			}
			if got := f.env.Device.LiveTotal(); got != before {
				t.Errorf("live objects = %d after failed link, want %d", got, before)
			}
		})
	}
}

func TestProgramDestroyReleasesEverything(t *testing.T) {
	f := newLinkFixture(t)
	vs, fs := f.pair(t, CubeShaders)
	p, err := f.linker.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	vs.Release()
	fs.Release()

	p.Destroy()
	p.Destroy()

	if got := f.env.Device.LiveTotal(); got != 0 {
		t.Errorf("live objects = %d after Destroy, want 0", got)
	}
}

func TestProgramCheckMissingStream(t *testing.T) {
	f := newLinkFixture(t)
	vs, fs := f.pair(t, CubeShaders)
	p, err := f.linker.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	defer p.Destroy()

	tri := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	plain, err := Upload(f.env.Device, f.env.Queue, VertexData{Positions: tri})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer plain.Destroy()
	colored, err := Upload(f.env.Device, f.env.Queue, VertexData{Positions: tri, Colors: tri})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer colored.Destroy()

	err = p.Check(plain)
	if !errors.Is(err, ErrMissingStream) {
		t.Fatalf("Check(positions only) = %v, want ErrMissingStream", err)
	}
	if !strings.Contains(err.Error(), AttribColor.Name()) {
		t.Errorf("error %q does not name %s", err, AttribColor.Name())
	}
	if err := p.Check(colored); err != nil {
		t.Errorf("Check(colored) = %v, want nil", err)
	}
	if err := p.Check(nil); !errors.Is(err, ErrMissingStream) {
		t.Errorf("Check(nil) = %v, want ErrMissingStream", err)
	}

	enc, _ := NewFrameEncoder(f.env.Device, f.env.Queue)
	defer enc.Destroy()
	color, _ := f.env.Device.CreateTextureView(nil, nil)
	if err := enc.Encode(FrameTarget{Color: color}, gputypes.Color{}, func(pass hal.RenderPassEncoder) {
		p.Draw(pass, plain)
	}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := len(f.env.Device.Draws()); got != 0 {
		t.Errorf("draws with a missing stream = %d, want 0", got)
	}
}

func TestSetMatrixUploadsColumnMajor(t *testing.T) {
	f := newLinkFixture(t)
	vs, fs := f.pair(t, CubeShaders)
	p, err := f.linker.Link(vs, fs)
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	defer p.Destroy()

	var m [16]float32
	for i := range m {
		m[i] = float32(i) + 0.5
	}
	if err := p.SetMatrix(f.env.Queue, UniformCamera, m); err != nil {
		t.Fatalf("SetMatrix failed: %v", err)
	}

	writes := f.env.Queue.WritesTo(p.uniforms[UniformCamera])
	if len(writes) != 1 {
		t.Fatalf("writes to u_camera = %d, want 1", len(writes))
	}
	data := writes[0].Data
	if len(data) != mat4Size {
		t.Fatalf("wrote %d bytes, want %d", len(data), mat4Size)
	}
	for i := range m {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if got != m[i] {
			t.Errorf("element %d = %v, want %v", i, got, m[i])
		}
	}
}

func TestNewLinkerNilDevice(t *testing.T) {
	if _, err := NewLinker(nil, LinkerConfig{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewLinker(nil) error = %v, want ErrNilDevice", err)
	}
}
