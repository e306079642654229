package cube

import "github.com/gogpu/cube/internal/gpu"

// Mesh is a triangle list as parallel position and color streams, three
// floats per vertex each. Colors may be empty when the shader derives the
// color itself.
type Mesh struct {
	Positions []float32
	Colors    []float32
}

// Count returns the number of vertices.
func (m Mesh) Count() int { return len(m.Positions) / 3 }

func (m Mesh) vertexData() gpu.VertexData {
	return gpu.VertexData{Positions: m.Positions, Colors: m.Colors}
}

type vec3 [3]float32

// Face colors shared by the cube and pyramid presets.
var (
	colorFront  = vec3{1, 0.5, 0.5}
	colorBottom = vec3{0.5, 0.7, 1}
	colorLeft   = vec3{0.3, 1, 0.3}
	colorRight  = vec3{0.7, 1, 0.3}
	colorBack   = vec3{1, 0.8, 0.3}
	colorTop    = vec3{0.8, 0.5, 1}
)

// meshBuilder accumulates flat-shaded triangles.
type meshBuilder struct {
	m Mesh
}

func (b *meshBuilder) triangle(a, c, d, color vec3) {
	for _, v := range []vec3{a, c, d} {
		b.m.Positions = append(b.m.Positions, v[0], v[1], v[2])
		b.m.Colors = append(b.m.Colors, color[0], color[1], color[2])
	}
}

// quad adds the face p0 p1 p2 p3 (in winding order) as two triangles.
func (b *meshBuilder) quad(p0, p1, p2, p3, color vec3) {
	b.triangle(p0, p1, p2, color)
	b.triangle(p0, p2, p3, color)
}

// CubeMesh returns the unit cube spanning [0,1] on every axis: 6 faces, 12
// triangles, 36 vertices, one flat color per face.
func CubeMesh() Mesh {
	var (
		v000 = vec3{0, 0, 0}
		v100 = vec3{1, 0, 0}
		v110 = vec3{1, 1, 0}
		v010 = vec3{0, 1, 0}
		v001 = vec3{0, 0, 1}
		v101 = vec3{1, 0, 1}
		v111 = vec3{1, 1, 1}
		v011 = vec3{0, 1, 1}
	)
	var b meshBuilder
	b.quad(v001, v101, v111, v011, colorFront)
	b.quad(v000, v100, v101, v001, colorBottom)
	b.quad(v000, v001, v011, v010, colorLeft)
	b.quad(v101, v100, v110, v111, colorRight)
	b.quad(v100, v000, v010, v110, colorBack)
	b.quad(v011, v111, v110, v010, colorTop)
	return b.m
}

// PyramidMesh returns four triangular faces meeting at the apex
// (0.5, 1, 0.5) over the unit square base: 12 vertices.
func PyramidMesh() Mesh {
	apex := vec3{0.5, 1, 0.5}
	var (
		b00 = vec3{0, 0, 0}
		b10 = vec3{1, 0, 0}
		b11 = vec3{1, 0, 1}
		b01 = vec3{0, 0, 1}
	)
	var b meshBuilder
	b.triangle(b00, apex, b10, colorFront)
	b.triangle(b10, apex, b11, colorBottom)
	b.triangle(b11, apex, b01, colorLeft)
	b.triangle(b01, apex, b00, colorRight)
	return b.m
}

// TriangleMesh returns a single flat triangle in clip space with no color
// stream.
func TriangleMesh() Mesh {
	return Mesh{Positions: []float32{
		-0.5, -0.5, 0,
		0.5, -0.5, 0,
		0, 0.3, 0,
	}}
}
