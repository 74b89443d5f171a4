// Package unwrap selects mesh faces per camera view and computes camera-projective UVs.
package unwrap

import (
	"fmt"
	"sort"

	"github.com/Faultbox/hullmap/internal/mesh"
	"github.com/Faultbox/hullmap/pkg/math"
)

// Extremum picks which end of the axis a view selects.
type Extremum int

const (
	Max Extremum = iota
	Min
)

// String returns "max" or "min".
func (e Extremum) String() string {
	if e == Min {
		return "min"
	}
	return "max"
}

// ParseExtremum converts a config string into an Extremum.
func ParseExtremum(s string) (Extremum, error) {
	switch s {
	case "", "max":
		return Max, nil
	case "min":
		return Min, nil
	default:
		return 0, fmt.Errorf("unknown extremum %q", s)
	}
}

// SelectionRule defines which faces belong to one camera view.
type SelectionRule struct {
	Axis         math.Axis
	Extremum     Extremum
	Epsilon      float32
	TargetNormal math.Vec3
}

// FaceSet is an ordered set of face indices.
type FaceSet struct {
	ids    []int
	member map[int]struct{}
}

// NewFaceSet builds a set from face indices. Duplicates are dropped.
func NewFaceSet(ids ...int) FaceSet {
	s := FaceSet{member: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		if _, ok := s.member[id]; ok {
			continue
		}
		s.member[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	sort.Ints(s.ids)
	return s
}

// Len returns the number of faces.
func (s FaceSet) Len() int { return len(s.ids) }

// Contains reports whether face id is in the set.
func (s FaceSet) Contains(id int) bool {
	_, ok := s.member[id]
	return ok
}

// IDs returns the face indices in ascending order.
func (s FaceSet) IDs() []int {
	out := make([]int, len(s.ids))
	copy(out, s.ids)
	return out
}

// Classify returns the faces that lie at the rule's extremum along its axis
// and whose world normal agrees in sign with the target normal on that axis.
//
// The extremum is taken over every vertex of the mesh, not only vertices used by faces.
// A face qualifies positionally only if ALL its vertices are within Epsilon of the extremum.
// The direction test compares only the selection-axis component of the normals;
// faces with a zero normal never pass it.
func Classify(m *mesh.Mesh, world math.Mat4, rule SelectionRule) FaceSet {
	if len(m.Vertices) == 0 || len(m.Faces) == 0 {
		return NewFaceSet()
	}

	axis := rule.Axis
	coords := make([]float32, len(m.Vertices))
	extreme := world.TransformVec3(m.Vertices[0]).Get(axis)
	for i, v := range m.Vertices {
		c := world.TransformVec3(v).Get(axis)
		coords[i] = c
		if rule.Extremum == Max && c > extreme {
			extreme = c
		} else if rule.Extremum == Min && c < extreme {
			extreme = c
		}
	}

	target := rule.TargetNormal.Get(axis)
	var selected []int
	for fi := range m.Faces {
		f := &m.Faces[fi]

		inRange := true
		for _, vid := range f.Verts {
			c := coords[vid]
			if rule.Extremum == Max && !(c >= extreme-rule.Epsilon) {
				inRange = false
				break
			}
			if rule.Extremum == Min && !(c <= extreme+rule.Epsilon) {
				inRange = false
				break
			}
		}
		if !inRange {
			continue
		}

		worldNormal := world.TransformDirection(f.Normal)
		if worldNormal.Get(axis)*target > 0 {
			selected = append(selected, fi)
		}
	}

	return NewFaceSet(selected...)
}
