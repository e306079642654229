package gpu

import _ "embed"

// Embedded WGSL shader sources.

//go:embed shaders/cube_vertex.wgsl
var cubeVertexSource string

//go:embed shaders/cube_fragment.wgsl
var cubeFragmentSource string

//go:embed shaders/triangle_vertex.wgsl
var triangleVertexSource string

//go:embed shaders/triangle_fragment.wgsl
var triangleFragmentSource string

// CubeShaders returns the vertex/fragment pair for colored, transformed
// meshes. The vertex stage reads a_position and a_color and the u_cube and
// u_camera matrices.
func CubeShaders() (vertex, fragment ShaderSource) {
	return ShaderSource{Kind: ShaderVertex, Text: cubeVertexSource},
		ShaderSource{Kind: ShaderFragment, Text: cubeFragmentSource}
}

// TriangleShaders returns the pass-through pair. It reads a_position only
// and declares no uniforms.
func TriangleShaders() (vertex, fragment ShaderSource) {
	return ShaderSource{Kind: ShaderVertex, Text: triangleVertexSource},
		ShaderSource{Kind: ShaderFragment, Text: triangleFragmentSource}
}
