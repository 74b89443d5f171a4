// Package camera provides the fixed scene cameras used for projective UV mapping.
package camera

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/hullmap/pkg/math"
)

// Type is the camera projection model.
type Type int

const (
	Perspective Type = iota
	Orthographic
)

// String returns the projection name.
func (t Type) String() string {
	switch t {
	case Perspective:
		return "perspective"
	case Orthographic:
		return "orthographic"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// ParseType converts a config string into a camera type.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "perspective", "persp":
		return Perspective, nil
	case "orthographic", "ortho":
		return Orthographic, nil
	default:
		return 0, fmt.Errorf("unknown camera type %q", s)
	}
}

// Default intrinsics, in millimetres.
const (
	DefaultSensorWidth  float32 = 36
	DefaultSensorHeight float32 = 24
	DefaultFocalLength  float32 = 50
)

// ErrDegenerateIntrinsics is returned by Validate for cameras whose FOV or aspect would divide by zero.
var ErrDegenerateIntrinsics = errors.New("degenerate camera intrinsics")

// Camera is a scene camera fixed in world space. It looks down its local -Z axis.
type Camera struct {
	Name     string
	Type     Type
	Location math.Vec3
	Rotation math.Euler

	// Intrinsics
	SensorWidth  float32
	SensorHeight float32
	FocalLength  float32
}

// New creates a perspective camera with default intrinsics.
func New(name string, location math.Vec3, rotation math.Euler) *Camera {
	return &Camera{
		Name:         name,
		Type:         Perspective,
		Location:     location,
		Rotation:     rotation,
		SensorWidth:  DefaultSensorWidth,
		SensorHeight: DefaultSensorHeight,
		FocalLength:  DefaultFocalLength,
	}
}

// WorldMatrix returns the camera-to-world matrix.
func (c *Camera) WorldMatrix() math.Mat4 {
	return math.Compose(c.Location, c.Rotation, math.Vec3{X: 1, Y: 1, Z: 1})
}

// InverseWorld returns the world-to-camera (view) matrix.
func (c *Camera) InverseWorld() math.Mat4 {
	return c.WorldMatrix().Inverse()
}

// Forward returns the world-space viewing direction.
func (c *Camera) Forward() math.Vec3 {
	return c.WorldMatrix().TransformDirection(math.Vec3{Z: -1}).Normalize()
}

// FOV returns the horizontal field of view in radians.
func (c *Camera) FOV() float32 {
	return 2 * math32.Atan(c.SensorWidth/(2*c.FocalLength))
}

// AspectRatio returns sensor width over sensor height.
func (c *Camera) AspectRatio() float32 {
	return c.SensorWidth / c.SensorHeight
}

// Validate reports intrinsics that make the perspective projection undefined.
// Orthographic cameras ignore intrinsics and always validate.
func (c *Camera) Validate() error {
	if c.Type != Perspective {
		return nil
	}
	if !(c.FocalLength > 0) {
		return fmt.Errorf("%w: camera %s focal length %v", ErrDegenerateIntrinsics, c.Name, c.FocalLength)
	}
	if !(c.SensorWidth > 0) || !(c.SensorHeight > 0) {
		return fmt.Errorf("%w: camera %s sensor %vx%v", ErrDegenerateIntrinsics, c.Name, c.SensorWidth, c.SensorHeight)
	}
	return nil
}
