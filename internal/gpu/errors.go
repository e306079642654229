package gpu

import (
	"errors"
	"fmt"
)

// Package errors.
var (
	// ErrNilDevice is returned when a component is constructed without a device.
	ErrNilDevice = errors.New("gpu: nil device")

	// ErrInvalidShader is returned by Link when a shader is nil or of the wrong kind.
	ErrInvalidShader = errors.New("gpu: invalid shader")

	// ErrShaderReleased is returned by Link when a shader was already released.
	ErrShaderReleased = errors.New("gpu: shader released")

	// ErrEmptyGeometry is returned by Upload for vertex data with no positions.
	ErrEmptyGeometry = errors.New("gpu: empty geometry")

	// ErrGeometryMismatch is returned by Upload when positions and colors disagree.
	ErrGeometryMismatch = errors.New("gpu: geometry mismatch")

	// ErrMissingStream is returned by Program.Check when geometry lacks a
	// vertex stream the program reads.
	ErrMissingStream = errors.New("gpu: missing vertex stream")
)

// CompileError reports a shader source rejected by the compiler.
// Log holds the compiler diagnostics, one message per line.
type CompileError struct {
	Kind ShaderKind
	Log  string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpu: compile %s shader: %s", e.Kind, e.Log)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LinkError reports a vertex/fragment pair that could not be linked into a
// program.
type LinkError struct {
	Label string
	Log   string
	Err   error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("gpu: link %s: %s", e.Label, e.Log)
}

func (e *LinkError) Unwrap() error { return e.Err }

// MissingLocationWarning records a uniform or attribute name that the linked
// program does not declare. Writes to it are skipped.
type MissingLocationWarning struct {
	Program string
	Name    string
}

func (w MissingLocationWarning) Error() string {
	return fmt.Sprintf("gpu: %s: location %q not found", w.Program, w.Name)
}
