// Package cube renders a rotating, colored mesh into a host-provided
// surface.
//
// # Overview
//
// cube is a small render pipeline on top of gogpu/wgpu. A host hands it a
// GPU device (render.DeviceHandle) and a window surface; cube compiles a
// WGSL shader pair with naga, links it into a render pipeline, uploads a
// mesh once and then redraws it every tick while advancing a rotation.
//
// # Quick Start
//
//	handle := render.NewHALDeviceHandle(device, queue, format, info)
//	surface, err := render.NewSurfaceAdapter(handle, halSurface, window, render.SurfaceConfig{})
//	if err != nil {
//	    return err
//	}
//
//	loop, err := cube.NewRenderLoop(handle, surface, cube.WithScene("cube"))
//	if err != nil {
//	    return err
//	}
//	defer loop.Close()
//
//	return loop.Run(ctx)
//
// # Scenes
//
// Three presets are built in:
//   - cube: 36 vertices, one flat color per face, rotating about Y
//   - pyramid: 12 vertices, four colored faces, rotating about Y
//   - triangle: 3 vertices, color derived from position, no transform
//
// # Transforms
//
// TransformState holds a perspective camera and a model matrix. Each frame
// the model is rotated about Y by elapsed-milliseconds / 1000 radians,
// applied relative to the current matrix. Matrices use mathgl's mgl32
// (column-major), which matches the WGSL mat4x4<f32> uniform layout.
//
// # Errors
//
// Shader compile and program link failures are reported as *CompileError
// and *LinkError values. The render loop logs them, exposes them through
// RenderLoop.Err and keeps running without drawing.
//
// # Logging
//
// cube is silent by default. Call SetLogger to route its log/slog output.
package cube
