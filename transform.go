package cube

import (
	"github.com/go-gl/mathgl/mgl32"
)

// glToWebGPUDepth maps GL clip-space depth [-w, w] onto WebGPU's [0, w]:
// z' = (z + w) / 2. Column-major.
var glToWebGPUDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// TransformState owns the camera and model matrices. It has no GPU state.
type TransformState struct {
	proj   Projection
	aspect float32
	camera mgl32.Mat4
	model  mgl32.Mat4
	angle  float64
}

// NewTransformState builds the camera for proj at the given aspect ratio and
// sets the model to identity.
func NewTransformState(proj Projection, aspect float32) *TransformState {
	t := &TransformState{proj: proj, model: mgl32.Ident4()}
	t.SetAspect(aspect)
	return t
}

// SetAspect recomputes the camera for a new aspect ratio. Non-positive
// values are ignored.
func (t *TransformState) SetAspect(aspect float32) {
	if aspect <= 0 {
		if t.aspect > 0 {
			return
		}
		aspect = 1
	}
	t.aspect = aspect
	t.camera = mgl32.Perspective(t.proj.FovY, aspect, t.proj.Near, t.proj.Far).
		Mul4(mgl32.Translate3D(0, 0, -t.proj.Distance))
}

// Advance rotates the model about Y by deltaMillis/1000 radians, relative
// to its current orientation.
func (t *TransformState) Advance(deltaMillis float64) {
	if deltaMillis == 0 {
		return
	}
	rad := deltaMillis / 1000
	t.model = t.model.Mul4(mgl32.HomogRotate3DY(float32(rad)))
	t.angle += rad
}

// Angle returns the total rotation applied so far, in radians.
func (t *TransformState) Angle() float64 { return t.angle }

// Aspect returns the aspect ratio the camera was built for.
func (t *TransformState) Aspect() float32 { return t.aspect }

// Camera returns projection * view.
func (t *TransformState) Camera() mgl32.Mat4 { return t.camera }

// Model returns the model rotation.
func (t *TransformState) Model() mgl32.Mat4 { return t.model }

// ClipCamera returns the camera with GL depth remapped to WebGPU's [0, 1]
// clip range. This is what the vertex stage receives as u_camera.
func (t *TransformState) ClipCamera() mgl32.Mat4 {
	return glToWebGPUDepth.Mul4(t.camera)
}
