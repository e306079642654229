// Package gpu holds the HAL-level half of the cube pipeline: WGSL shader
// compilation, program linking, static vertex geometry and per-frame
// command encoding.
//
// Everything here talks to a [hal.Device] and [hal.Queue] directly. The
// package never creates a device itself; the caller (cube.RenderLoop, or a
// test using the noop backend) hands one in.
//
// # Pipeline
//
//	WGSL source -> Compiler.Compile -> *Shader (vertex)   \
//	                                                       Linker.Link -> *Program
//	WGSL source -> Compiler.Compile -> *Shader (fragment) /
//
//	VertexData -> Upload -> *GeometryBuffer
//
//	FrameEncoder.Encode(target, clear, func(pass) { program.Draw(pass, geometry) })
//
// Shader compilation runs entirely on the CPU through naga (parse, lower,
// validate, SPIR-V). A source that fails any of those stages is rejected
// before a GPU handle is allocated.
//
// # Locations
//
// WGSL has no glGetUniformLocation. A uniform's location is its binding
// index in group 0, and an attribute's location is its @location on the
// vertex entry point. Both are resolved from naga IR after a successful link.
// A name the shaders do not declare resolves to -1 and is skipped on write.
package gpu
