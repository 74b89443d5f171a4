package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/hullmap/internal/camera"
	"github.com/Faultbox/hullmap/internal/pipeline"
	"github.com/Faultbox/hullmap/internal/unwrap"
	"github.com/Faultbox/hullmap/pkg/math"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Validate checks camera views, download and logging settings.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Cameras) == 0 {
		errs = append(errs, errors.New("no cameras configured"))
	}
	seen := make(map[string]bool)
	for i, cc := range c.Cameras {
		if cc.Name == "" {
			errs = append(errs, fmt.Errorf("camera %d: missing name", i))
		} else if seen[cc.Name] {
			errs = append(errs, fmt.Errorf("camera %d: duplicate name %s", i, cc.Name))
		}
		seen[cc.Name] = true

		if _, err := cc.Configuration(nil); err != nil {
			errs = append(errs, fmt.Errorf("camera %s: %w", cc.Name, err))
		}
		if cc.Texture < 0 || (len(c.Input.Textures) > 0 && cc.Texture >= len(c.Input.Textures)) {
			errs = append(errs, fmt.Errorf("camera %s: texture index %d out of range", cc.Name, cc.Texture))
		}
	}

	if c.Output.MaxTextureSize < 0 {
		errs = append(errs, fmt.Errorf("max texture size %d is negative", c.Output.MaxTextureSize))
	}
	if c.Fetch.Retries < 0 {
		errs = append(errs, fmt.Errorf("fetch retries %d is negative", c.Fetch.Retries))
	}
	if c.Fetch.Timeout < 0 {
		errs = append(errs, fmt.Errorf("fetch timeout %v is negative", c.Fetch.Timeout))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Camera builds the scene camera. Zero intrinsics fall back to the camera defaults.
func (cc CameraConfig) Camera() (*camera.Camera, error) {
	cam := camera.New(cc.Name, vec3(cc.Location), degrees(cc.Rotation))

	t, err := camera.ParseType(cc.Type)
	if err != nil {
		return nil, err
	}
	cam.Type = t
	if cc.SensorWidth != 0 {
		cam.SensorWidth = cc.SensorWidth
	}
	if cc.SensorHeight != 0 {
		cam.SensorHeight = cc.SensorHeight
	}
	if cc.FocalLength != 0 {
		cam.FocalLength = cc.FocalLength
	}
	if err := cam.Validate(); err != nil {
		return nil, err
	}
	return cam, nil
}

// SelectionRule builds the face selection rule.
func (cc CameraConfig) SelectionRule() (unwrap.SelectionRule, error) {
	axis, err := math.ParseAxis(cc.Rule.Axis)
	if err != nil {
		return unwrap.SelectionRule{}, err
	}
	ext, err := unwrap.ParseExtremum(cc.Rule.Extremum)
	if err != nil {
		return unwrap.SelectionRule{}, err
	}
	if cc.Rule.Epsilon < 0 {
		return unwrap.SelectionRule{}, fmt.Errorf("epsilon %v is negative", cc.Rule.Epsilon)
	}
	normal := vec3(cc.Rule.Normal)
	if normal.Get(axis) == 0 {
		return unwrap.SelectionRule{}, fmt.Errorf("normal %v has no %s component; no face could match", cc.Rule.Normal, axis)
	}
	return unwrap.SelectionRule{
		Axis:         axis,
		Extremum:     ext,
		Epsilon:      cc.Rule.Epsilon,
		TargetNormal: normal,
	}, nil
}

// Configuration converts the view into a pipeline configuration, taking its
// texture from textures by index. A nil or short textures list leaves Texture empty.
func (cc CameraConfig) Configuration(textures []string) (pipeline.Configuration, error) {
	cam, err := cc.Camera()
	if err != nil {
		return pipeline.Configuration{}, err
	}
	rule, err := cc.SelectionRule()
	if err != nil {
		return pipeline.Configuration{}, err
	}

	material := cc.Material
	if material == "" {
		material = "Material_" + cc.Name
	}
	var tex string
	if cc.Texture >= 0 && cc.Texture < len(textures) {
		tex = textures[cc.Texture]
	}

	return pipeline.Configuration{
		Name:          cc.Name,
		Camera:        cam,
		Rule:          rule,
		ModelRotation: degrees(cc.ModelRotation),
		Material:      material,
		Texture:       tex,
	}, nil
}

// Configurations converts every camera view in order.
func (c *Config) Configurations(textures []string) ([]pipeline.Configuration, error) {
	out := make([]pipeline.Configuration, 0, len(c.Cameras))
	for _, cc := range c.Cameras {
		pc, err := cc.Configuration(textures)
		if err != nil {
			return nil, fmt.Errorf("%w: camera %s: %w", ErrInvalid, cc.Name, err)
		}
		out = append(out, pc)
	}
	return out, nil
}

// TexturesNeeded returns how many input textures the camera views reference.
func (c *Config) TexturesNeeded() int {
	n := 0
	for _, cc := range c.Cameras {
		if cc.Texture+1 > n {
			n = cc.Texture + 1
		}
	}
	return n
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

func degrees(a [3]float32) math.Euler {
	return math.EulerDegrees(a[0], a[1], a[2])
}
