package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/hullmap/pkg/formats"
	"github.com/Faultbox/hullmap/pkg/math"
)

// ErrInput marks meshes that cannot be processed: no geometry or broken topology.
var ErrInput = errors.New("invalid input mesh")

// FromModel builds a mesh from parsed model geometry.
// Faces with fewer than 3 corners are dropped; out-of-range indices are an error.
func FromModel(m *formats.Model) (*Mesh, error) {
	if m == nil || len(m.Vertices) == 0 {
		return nil, fmt.Errorf("%w: model has no vertices", ErrInput)
	}

	out := &Mesh{
		Name:      m.Name,
		Vertices:  make([]math.Vec3, len(m.Vertices)),
		Faces:     make([]Face, 0, len(m.Faces)),
		Transform: IdentityTransform(),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}

	for fi, f := range m.Faces {
		if len(f) < 3 {
			continue
		}
		verts := make([]int, len(f))
		for i, vid := range f {
			if int(vid) >= len(out.Vertices) {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d", ErrInput, fi, vid, len(out.Vertices))
			}
			verts[i] = int(vid)
		}
		out.AddFace(verts...)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// AddFace appends a polygon, computing its normal and allocating its loop UVs.
func (m *Mesh) AddFace(verts ...int) int {
	f := Face{
		Verts: verts,
		UVs:   make([]math.Vec2, len(verts)),
	}
	f.Normal = m.faceNormal(verts)
	m.Faces = append(m.Faces, f)
	return len(m.Faces) - 1
}

// faceNormal returns the Newell normal of a polygon, normalized.
// Collinear or repeated corners give a zero vector.
func (m *Mesh) faceNormal(verts []int) math.Vec3 {
	pts := make([]math.Vec3, len(verts))
	for i, vid := range verts {
		pts[i] = m.Vertices[vid]
	}
	return math.Newell(pts)
}

// Validate checks that the mesh has geometry and consistent loops.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 {
		return fmt.Errorf("%w: no vertices", ErrInput)
	}
	if len(m.Faces) == 0 {
		return fmt.Errorf("%w: no faces", ErrInput)
	}
	for fi, f := range m.Faces {
		if len(f.UVs) != len(f.Verts) {
			return fmt.Errorf("%w: face %d has %d loops but %d UVs", ErrInput, fi, len(f.Verts), len(f.UVs))
		}
		for _, vid := range f.Verts {
			if vid < 0 || vid >= len(m.Vertices) {
				return fmt.Errorf("%w: face %d references vertex %d of %d", ErrInput, fi, vid, len(m.Vertices))
			}
		}
	}
	return nil
}

// EnsureMaterialSlots grows the slot list to at least n entries.
// New slots are unnamed; existing names are kept.
func (m *Mesh) EnsureMaterialSlots(n int) {
	for len(m.MaterialSlots) < n {
		m.MaterialSlots = append(m.MaterialSlots, "")
	}
}

// WorldBounds returns the bounding box of all vertices under the given matrix.
func (m *Mesh) WorldBounds(world math.Mat4) Bounds {
	if len(m.Vertices) == 0 {
		return Bounds{}
	}
	first := world.TransformVec3(m.Vertices[0])
	b := Bounds{Min: first, Max: first}
	for _, v := range m.Vertices[1:] {
		updateBounds(&b, world.TransformVec3(v))
	}
	return b
}

// Stats returns vertex, face, loop and triangle counts.
func (m *Mesh) Stats() Stats {
	s := Stats{
		Vertices:  len(m.Vertices),
		Faces:     len(m.Faces),
		Materials: len(m.MaterialSlots),
	}
	for _, f := range m.Faces {
		s.Loops += len(f.Verts)
		s.Triangles += len(f.Verts) - 2
	}
	return s
}

// MaterialCounts returns the number of faces assigned to each slot.
func (m *Mesh) MaterialCounts() map[int]int {
	counts := make(map[int]int)
	for _, f := range m.Faces {
		counts[f.Material]++
	}
	return counts
}

// Triangle is one fan triangle of a face, given as corner (loop) indices.
type Triangle struct {
	Face    int
	Corners [3]int
}

// Triangulate fan-triangulates every face.
func (m *Mesh) Triangulate() []Triangle {
	var tris []Triangle
	for fi, f := range m.Faces {
		for c := 1; c+1 < len(f.Verts); c++ {
			tris = append(tris, Triangle{Face: fi, Corners: [3]int{0, c, c + 1}})
		}
	}
	return tris
}

func updateBounds(b *Bounds, p math.Vec3) {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
	}
}
