// Package pipeline runs camera configurations over a mesh in order:
// pose the model, classify faces, assign the material slot, project UVs.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/hullmap/internal/camera"
	"github.com/Faultbox/hullmap/internal/logger"
	"github.com/Faultbox/hullmap/internal/mesh"
	"github.com/Faultbox/hullmap/internal/texture"
	"github.com/Faultbox/hullmap/internal/unwrap"
	"github.com/Faultbox/hullmap/pkg/math"
)

// ErrNoConfigurations is returned by Run when there is nothing to do.
var ErrNoConfigurations = errors.New("no camera configurations")

// Configuration pairs a fixed camera with the model pose and face rule for its view.
type Configuration struct {
	Name          string
	Camera        *camera.Camera
	Rule          unwrap.SelectionRule
	ModelRotation math.Euler
	Material      string
	Texture       string // local path, already fetched
}

// PassResult reports one configuration pass.
type PassResult struct {
	Config   string
	Rule     unwrap.SelectionRule
	Rotation [3]float32 // model rotation for the pass, degrees
	Slot     int
	Faces    unwrap.FaceSet
	Loops    int
	FOV      float32 // degrees
	Aspect   float32
	Distance float32 // camera to the center of the posed model's bounds
}

// Result is the outcome of a full run.
type Result struct {
	Passes []PassResult
}

// Faces returns the total number of faces selected across passes.
// Faces selected by several passes are counted once per pass.
func (r *Result) Faces() int {
	n := 0
	for _, p := range r.Passes {
		n += p.Faces.Len()
	}
	return n
}

// Process runs one configuration against the mesh posed at baseline with
// its rotation replaced by the configuration's model rotation.
// The mesh is left in that pose; callers restore it.
func Process(m *mesh.Mesh, baseline mesh.Transform, cfg Configuration, slot int) PassResult {
	m.Transform = baseline.WithRotation(cfg.ModelRotation)
	world := m.Transform.Matrix()

	faces := unwrap.Classify(m, world, cfg.Rule)
	for _, fi := range faces.IDs() {
		m.Faces[fi].Material = slot
	}
	loops := unwrap.Project(m, world, faces, cfg.Camera)
	center := m.WorldBounds(world).Center()

	return PassResult{
		Config:   cfg.Name,
		Rule:     cfg.Rule,
		Rotation: cfg.ModelRotation.Degrees(),
		Slot:     slot,
		Faces:    faces,
		Loops:    loops,
		FOV:      cfg.Camera.FOV() * 180 / math32.Pi,
		Aspect:   cfg.Camera.AspectRatio(),
		Distance: cfg.Camera.WorldMatrix().Translation().Distance(center),
	}
}

// Runner executes configuration lists. A zero Runner logs nothing and binds no textures.
type Runner struct {
	Binder texture.Binder
	Log    *zap.Logger

	// MaxTextureSize downsizes bound textures larger than this many pixels
	// on either side. Zero keeps them as loaded.
	MaxTextureSize int
}

// New creates a runner that binds textures through b.
func New(b texture.Binder) *Runner {
	return &Runner{Binder: b, Log: logger.Named("pipeline")}
}

// Run processes configurations strictly in order. Each pass starts from the
// transform the mesh had on entry; that transform is restored before Run returns,
// including on error. Configuration i writes material slot i; faces no
// configuration selects keep the slot they had, normally 0.
func (r *Runner) Run(ctx context.Context, m *mesh.Mesh, configs []Configuration) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: no mesh", mesh.ErrInput)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, ErrNoConfigurations
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	original := m.Transform
	defer func() { m.Transform = original }()

	m.EnsureMaterialSlots(len(configs))

	res := &Result{Passes: make([]PassResult, 0, len(configs))}
	for i, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("before %s: %w", cfg.Name, err)
		}
		if cfg.Camera == nil {
			return nil, fmt.Errorf("configuration %s: no camera", cfg.Name)
		}

		slot := i
		if cfg.Material != "" {
			m.MaterialSlots[slot] = cfg.Material
		}

		pass := Process(m, original, cfg, slot)
		res.Passes = append(res.Passes, pass)
		log.Info("pass complete",
			zap.String("config", cfg.Name),
			zap.Float32s("model_rotation_deg", pass.Rotation[:]),
			zap.Int("faces", pass.Faces.Len()),
			zap.Int("loops", pass.Loops),
			zap.Float32("fov_deg", pass.FOV),
			zap.Float32("aspect", pass.Aspect),
			zap.Float32("distance", pass.Distance),
		)
		if pass.Faces.Len() == 0 {
			log.Warn("no faces selected", zap.String("config", cfg.Name))
		}

		// Restore between passes, not just at the end.
		m.Transform = original

		if err := r.bind(cfg); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (r *Runner) bind(cfg Configuration) error {
	if r.Binder == nil || cfg.Texture == "" {
		return nil
	}
	img, err := texture.Load(cfg.Texture)
	if err != nil {
		return fmt.Errorf("configuration %s: %w", cfg.Name, err)
	}
	img = img.Fit(r.MaxTextureSize)
	if err := r.Binder.BindTexture(cfg.Material, img); err != nil {
		return fmt.Errorf("configuration %s: %w", cfg.Name, err)
	}
	return nil
}
