// Package mesh provides the polygon mesh, per-loop UVs, material slots and object transform.
package mesh

import "github.com/Faultbox/hullmap/pkg/math"

// Face is a polygon referencing mesh vertices in winding order.
// UVs[i] is the texture coordinate of the loop at corner i, so a vertex
// shared by several faces can carry a different UV on each of them.
type Face struct {
	Verts    []int
	Normal   math.Vec3 // local space, unit length or zero for degenerate faces
	Material int       // material slot index
	UVs      []math.Vec2
}

// Transform is the object's local-to-world placement.
type Transform struct {
	Location math.Vec3
	Rotation math.Euler
	Scale    math.Vec3
}

// IdentityTransform returns a transform at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: math.Vec3{X: 1, Y: 1, Z: 1}}
}

// Matrix returns the local-to-world matrix.
func (t Transform) Matrix() math.Mat4 {
	return math.Compose(t.Location, t.Rotation, t.Scale)
}

// WithRotation returns a copy of t with its rotation replaced.
func (t Transform) WithRotation(r math.Euler) Transform {
	t.Rotation = r
	return t
}

// Mesh holds polygon geometry with its transform and material slots.
type Mesh struct {
	Name          string
	Vertices      []math.Vec3
	Faces         []Face
	Transform     Transform
	MaterialSlots []string
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Size returns the box extent on each axis.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the box center.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Stats summarizes mesh topology.
type Stats struct {
	Vertices  int
	Faces     int
	Loops     int
	Triangles int
	Materials int
}
