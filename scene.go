package cube

import (
	"fmt"
	"slices"

	"github.com/gogpu/cube/internal/gpu"
)

// Scene preset names.
const (
	SceneCube     = "cube"
	ScenePyramid  = "pyramid"
	SceneTriangle = "triangle"
)

// Scene bundles a mesh with the shader pair that draws it.
type Scene struct {
	Name string
	Mesh Mesh

	// Animate enables the model rotation and camera uniforms. Scenes whose
	// shaders declare no uniforms leave it off.
	Animate bool

	vertex   gpu.ShaderSource
	fragment gpu.ShaderSource
}

var scenes = map[string]func() Scene{
	SceneCube: func() Scene {
		vs, fs := gpu.CubeShaders()
		return Scene{Name: SceneCube, Mesh: CubeMesh(), Animate: true, vertex: vs, fragment: fs}
	},
	ScenePyramid: func() Scene {
		vs, fs := gpu.CubeShaders()
		return Scene{Name: ScenePyramid, Mesh: PyramidMesh(), Animate: true, vertex: vs, fragment: fs}
	},
	SceneTriangle: func() Scene {
		vs, fs := gpu.TriangleShaders()
		return Scene{Name: SceneTriangle, Mesh: TriangleMesh(), vertex: vs, fragment: fs}
	},
}

// NewScene builds a scene from a mesh and a WGSL shader pair. The vertex
// stage reads a_position (and a_color when present); an animated scene's
// vertex stage also declares the u_cube and u_camera mat4x4<f32> uniforms.
func NewScene(name string, mesh Mesh, vertexWGSL, fragmentWGSL string, animate bool) Scene {
	return Scene{
		Name:     name,
		Mesh:     mesh,
		Animate:  animate,
		vertex:   gpu.ShaderSource{Kind: gpu.ShaderVertex, Text: vertexWGSL},
		fragment: gpu.ShaderSource{Kind: gpu.ShaderFragment, Text: fragmentWGSL},
	}
}

// LookupScene returns a fresh copy of the named preset.
func LookupScene(name string) (Scene, error) {
	build, ok := scenes[name]
	if !ok {
		return Scene{}, fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	return build(), nil
}

// SceneNames returns the preset names in sorted order.
func SceneNames() []string {
	names := make([]string, 0, len(scenes))
	for name := range scenes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
