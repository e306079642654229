package cube

import (
	"errors"

	"github.com/gogpu/cube/internal/gpu"
)

var (
	// ErrUnknownScene is returned for a scene name with no preset.
	ErrUnknownScene = errors.New("cube: unknown scene")

	// ErrNotRunning is returned by Frame before Init or after Stop.
	ErrNotRunning = errors.New("cube: render loop not running")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("cube: invalid config")

	// ErrUnsupportedConfigFormat is returned for config files that are
	// neither YAML nor TOML.
	ErrUnsupportedConfigFormat = errors.New("cube: unsupported config format")

	// ErrUnsupportedSnapshotFormat is returned by WriteSnapshot for formats
	// other than png and bmp.
	ErrUnsupportedSnapshotFormat = errors.New("cube: unsupported snapshot format")

	// ErrMissingStream is reported by Err when the scene's mesh lacks a
	// vertex stream its shaders read.
	ErrMissingStream = gpu.ErrMissingStream
)

// CompileError reports a shader source the compiler rejected.
type CompileError = gpu.CompileError

// LinkError reports a shader pair that could not be linked.
type LinkError = gpu.LinkError

// MissingLocationWarning records a uniform or attribute a program does not
// declare.
type MissingLocationWarning = gpu.MissingLocationWarning
