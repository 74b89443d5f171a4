package unwrap

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/hullmap/internal/camera"
	"github.com/Faultbox/hullmap/internal/mesh"
	"github.com/Faultbox/hullmap/pkg/math"
)

// orthoScale is the view-space extent mapped to one UV unit for orthographic cameras.
// It has no derivation; orthographic projection is a placeholder.
const orthoScale float32 = 10.0

// centerUV is assigned to loops that fall behind a perspective camera.
var centerUV = math.Vec2{X: 0.5, Y: 0.5}

// Projector maps world-space points to camera UVs.
// Camera-dependent terms are computed once in NewProjector.
type Projector struct {
	cam       *camera.Camera
	view      math.Mat4
	fovFactor float32 // tan(fov/2)
	aspect    float32
}

// NewProjector precomputes the view matrix, field of view and aspect ratio of cam.
// Zero focal length or sensor size is a precondition violation and yields Inf/NaN UVs.
func NewProjector(cam *camera.Camera) *Projector {
	p := &Projector{
		cam:  cam,
		view: cam.InverseWorld(),
	}
	if cam.Type == camera.Perspective {
		p.fovFactor = math32.Tan(cam.FOV() / 2)
		p.aspect = cam.AspectRatio()
	}
	return p
}

// ViewSpace returns the camera-space position of a world point.
func (p *Projector) ViewSpace(world math.Vec3) math.Vec3 {
	return p.view.TransformVec3(world)
}

// UV projects a world-space point to a texture coordinate.
func (p *Projector) UV(world math.Vec3) math.Vec2 {
	return p.ViewUV(p.ViewSpace(world))
}

// ViewUV maps a camera-space position to a texture coordinate.
func (p *Projector) ViewUV(view math.Vec3) math.Vec2 {
	if p.cam.Type == camera.Orthographic {
		return math.Vec2{
			X: 0.5 + view.X/orthoScale,
			Y: 0.5 + view.Y/orthoScale,
		}
	}

	// The camera looks down -Z; only points with negative depth are in front.
	if !(view.Z < 0) {
		return centerUV
	}
	screenX := view.X / -view.Z
	screenY := view.Y / -view.Z
	return math.Vec2{
		X: 0.5 + screenX/(2*p.fovFactor*p.aspect),
		Y: 0.5 + screenY/(2*p.fovFactor),
	}
}

// Project writes camera-projected UVs to every loop of the given faces and
// returns the number of loops written. Loops of other faces are not touched.
func Project(m *mesh.Mesh, world math.Mat4, faces FaceSet, cam *camera.Camera) int {
	p := NewProjector(cam)

	loops := 0
	for _, fi := range faces.ids {
		if fi < 0 || fi >= len(m.Faces) {
			continue
		}
		f := &m.Faces[fi]
		for corner, vid := range f.Verts {
			f.UVs[corner] = p.UV(world.TransformVec3(m.Vertices[vid]))
			loops++
		}
	}
	return loops
}
