package mesh

import "github.com/Faultbox/hullmap/pkg/math"

// Box builds an axis-aligned box with outward-facing quads.
// Face order: +Z (top), -Z, +X, -X, +Y, -Y.
func Box(name string, min, max math.Vec3) *Mesh {
	m := &Mesh{
		Name: name,
		Vertices: []math.Vec3{
			{X: min.X, Y: min.Y, Z: min.Z}, // 0
			{X: max.X, Y: min.Y, Z: min.Z}, // 1
			{X: max.X, Y: max.Y, Z: min.Z}, // 2
			{X: min.X, Y: max.Y, Z: min.Z}, // 3
			{X: min.X, Y: min.Y, Z: max.Z}, // 4
			{X: max.X, Y: min.Y, Z: max.Z}, // 5
			{X: max.X, Y: max.Y, Z: max.Z}, // 6
			{X: min.X, Y: max.Y, Z: max.Z}, // 7
		},
		Transform: IdentityTransform(),
	}
	m.AddFace(4, 5, 6, 7)
	m.AddFace(0, 3, 2, 1)
	m.AddFace(1, 2, 6, 5)
	m.AddFace(0, 4, 7, 3)
	m.AddFace(3, 7, 6, 2)
	m.AddFace(0, 1, 5, 4)
	return m
}

// Cube builds a box of the given edge length centered at the origin.
func Cube(size float32) *Mesh {
	h := size / 2
	return Box("Cube", math.Vec3{X: -h, Y: -h, Z: -h}, math.Vec3{X: h, Y: h, Z: h})
}
