package camera

import (
	"errors"
	"math"
	"testing"

	hm "github.com/Faultbox/hullmap/pkg/math"
)

func TestFOVAndAspect(t *testing.T) {
	c := New("Camera_Top", hm.Vec3{Z: 16}, hm.Euler{Z: float32(math.Pi / 2)})

	wantFOV := 2 * math.Atan(36.0/100.0)
	if math.Abs(float64(c.FOV())-wantFOV) > 1e-5 {
		t.Errorf("FOV: got %v, want %v", c.FOV(), wantFOV)
	}
	if c.AspectRatio() != 1.5 {
		t.Errorf("aspect: got %v, want 1.5", c.AspectRatio())
	}
}

func TestInverseWorldMapsCameraToOrigin(t *testing.T) {
	c := New("Camera_Side", hm.Vec3{X: 14, Z: 1.3}, hm.Euler{X: float32(math.Pi / 2), Z: float32(math.Pi / 2)})

	got := c.InverseWorld().TransformVec3(c.Location)
	if got.Length() > 1e-4 {
		t.Errorf("camera location in view space should be origin, got %v", got)
	}

	// A point straight ahead lands on the view -Z axis.
	ahead := c.InverseWorld().TransformVec3(hm.Vec3{X: 4, Z: 1.3})
	if math.Abs(float64(ahead.X)) > 1e-4 || math.Abs(float64(ahead.Y)) > 1e-4 || math.Abs(float64(ahead.Z+10)) > 1e-4 {
		t.Errorf("point ahead: got %v, want (0, 0, -10)", ahead)
	}
}

func TestForward(t *testing.T) {
	c := New("down", hm.Vec3{Z: 10}, hm.Euler{})
	if f := c.Forward(); f != (hm.Vec3{Z: -1}) {
		t.Errorf("forward: got %v, want (0, 0, -1)", f)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Camera)
		wantErr bool
	}{
		{"default", func(c *Camera) {}, false},
		{"zero focal", func(c *Camera) { c.FocalLength = 0 }, true},
		{"negative sensor", func(c *Camera) { c.SensorWidth = -1 }, true},
		{"zero sensor height", func(c *Camera) { c.SensorHeight = 0 }, true},
		{"nan focal", func(c *Camera) { c.FocalLength = float32(math.NaN()) }, true},
		{"orthographic ignores intrinsics", func(c *Camera) { c.Type = Orthographic; c.FocalLength = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("cam", hm.Vec3{}, hm.Euler{})
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDegenerateIntrinsics) {
				t.Errorf("expected ErrDegenerateIntrinsics, got %v", err)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"": Perspective, "persp": Perspective, "ortho": Orthographic, "orthographic": Orthographic} {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Errorf("ParseType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseType("fisheye"); err == nil {
		t.Error("expected error for unknown type")
	}
}
