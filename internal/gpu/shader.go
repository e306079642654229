package gpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/cube/internal/native"
)

// ShaderKind is the pipeline stage a shader source is written for.
type ShaderKind int

const (
	// ShaderVertex is a vertex stage shader.
	ShaderVertex ShaderKind = iota
	// ShaderFragment is a fragment stage shader.
	ShaderFragment
)

// String returns the stage name.
func (k ShaderKind) String() string {
	switch k {
	case ShaderVertex:
		return "vertex"
	case ShaderFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderKind(%d)", int(k))
	}
}

func (k ShaderKind) stage() (ir.ShaderStage, bool) {
	switch k {
	case ShaderVertex:
		return ir.StageVertex, true
	case ShaderFragment:
		return ir.StageFragment, true
	default:
		return 0, false
	}
}

// ShaderSource is a WGSL source text tagged with its stage.
type ShaderSource struct {
	Kind ShaderKind
	Text string
}

// Shader is a compiled shader module. It keeps the validated IR so the
// linker can match interfaces and resolve locations without recompiling.
type Shader struct {
	device hal.Device
	kind   ShaderKind
	label  string
	entry  string
	module hal.ShaderModule
	ir     *ir.Module
}

// Kind returns the stage the shader was compiled for.
func (s *Shader) Kind() ShaderKind { return s.kind }

// EntryPoint returns the name of the shader's entry point for its stage.
func (s *Shader) EntryPoint() string { return s.entry }

// Module returns the HAL shader module, or nil once released.
func (s *Shader) Module() hal.ShaderModule { return s.module }

// Released reports whether Release has been called.
func (s *Shader) Released() bool { return s.module == nil }

// Release destroys the shader module. A linked program does not need its
// shaders any more. Safe to call multiple times.
func (s *Shader) Release() {
	if s.module == nil {
		return
	}
	s.device.DestroyShaderModule(s.module)
	s.module = nil
}

// Compiler turns WGSL sources into shader modules on a single device.
type Compiler struct {
	device hal.Device
	seq    int
}

// NewCompiler creates a compiler bound to device.
func NewCompiler(device hal.Device) (*Compiler, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &Compiler{device: device}, nil
}

// Compile parses, validates and translates source, then creates a shader
// module of the given kind.
//
// A source the compiler rejects returns a *CompileError and allocates
// nothing on the device.
func (c *Compiler) Compile(kind ShaderKind, source string) (*Shader, error) {
	stage, ok := kind.stage()
	if !ok {
		return nil, &CompileError{Kind: kind, Log: "unknown shader kind", Err: ErrInvalidShader}
	}

	module, entry, spirvCode, err := translate(stage, source)
	if err != nil {
		cerr := &CompileError{Kind: kind, Log: diagnostics(err), Err: err}
		slogger().Error("shader compile failed", "kind", kind.String(), "log", cerr.Log)
		return nil, cerr
	}

	c.seq++
	label := fmt.Sprintf("%s_shader_%d", kind, c.seq)
	handle, err := native.CreateShaderModule(c.device, label, source, spirvCode)
	if err != nil {
		return nil, &CompileError{Kind: kind, Log: err.Error(), Err: fmt.Errorf("create shader module: %w", err)}
	}

	slogger().Debug("shader compiled",
		"label", label,
		"entry", entry,
		"spirv_words", len(spirvCode),
	)

	return &Shader{
		device: c.device,
		kind:   kind,
		label:  label,
		entry:  entry,
		module: handle,
		ir:     module,
	}, nil
}

// translate runs the naga front end and SPIR-V back end on source and picks
// the first entry point of the requested stage.
func translate(stage ir.ShaderStage, source string) (*ir.Module, string, []uint32, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, "", nil, err
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, "", nil, fmt.Errorf("lowering error: %w", err)
	}

	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, "", nil, fmt.Errorf("validation error: %w", err)
	}
	if len(verrs) > 0 {
		return nil, "", nil, validationErrors(verrs)
	}

	entry := ""
	for i := range module.EntryPoints {
		if module.EntryPoints[i].Stage == stage {
			entry = module.EntryPoints[i].Name
			break
		}
	}
	if entry == "" {
		return nil, "", nil, fmt.Errorf("no %s entry point", stageName(stage))
	}

	spirvBytes, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, "", nil, err
	}
	words, err := native.SPIRVWords(spirvBytes)
	if err != nil {
		return nil, "", nil, err
	}
	return module, entry, words, nil
}

func validationErrors(verrs []ir.ValidationError) error {
	errs := make([]error, len(verrs))
	for i := range verrs {
		errs[i] = verrs[i]
	}
	return errors.Join(errs...)
}

// diagnostics flattens err into a newline separated compiler log.
func diagnostics(err error) string {
	return strings.TrimSpace(err.Error())
}

func stageName(stage ir.ShaderStage) string {
	switch stage {
	case ir.StageVertex:
		return "vertex"
	case ir.StageFragment:
		return "fragment"
	default:
		return "compute"
	}
}
