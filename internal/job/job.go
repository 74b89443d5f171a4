// Package job runs a complete texture mapping request: fetch inputs, import
// the model, run every camera view and export the result.
package job

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/hullmap/internal/config"
	"github.com/Faultbox/hullmap/internal/export"
	"github.com/Faultbox/hullmap/internal/fetch"
	"github.com/Faultbox/hullmap/internal/logger"
	"github.com/Faultbox/hullmap/internal/mesh"
	"github.com/Faultbox/hullmap/internal/pipeline"
	"github.com/Faultbox/hullmap/internal/texture"
	"github.com/Faultbox/hullmap/pkg/formats"
)

// ErrTextures is returned when a request has fewer textures than the camera views use.
var ErrTextures = errors.New("not enough textures")

// Request names the inputs of one run. Model and textures may be local paths or http(s) URLs.
type Request struct {
	Model    string
	Textures []string
	Output   string // explicit output path; generated under the configured dir when empty
}

// Outcome describes a finished run.
type Outcome struct {
	Path   string // written .glb
	Name   string // base name of Path
	Size   int64
	Stats  mesh.Stats
	Result *pipeline.Result
}

// Runner executes requests against one configuration.
type Runner struct {
	cfg     *config.Config
	fetcher *fetch.Fetcher
	now     func() time.Time
	log     *zap.Logger
}

// New creates a runner using the config's camera views, fetch and output settings.
func New(cfg *config.Config) *Runner {
	return &Runner{
		cfg: cfg,
		fetcher: fetch.New(fetch.Options{
			Timeout:    cfg.Fetch.Timeout,
			Retries:    cfg.Fetch.Retries,
			RetryDelay: cfg.Fetch.RetryDelay,
			TempDir:    cfg.Fetch.TempDir,
		}),
		now: time.Now,
		log: logger.Named("job"),
	}
}

// Run processes one request. Downloaded inputs are removed before Run returns.
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	start := r.now()
	if need := r.cfg.TexturesNeeded(); len(req.Textures) < need {
		return nil, fmt.Errorf("%w: got %d, camera views use %d", ErrTextures, len(req.Textures), need)
	}

	m, err := r.importModel(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	locals := make([]string, len(req.Textures))
	for i, src := range req.Textures {
		local, cleanup, err := r.fetcher.Resolve(ctx, src)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		locals[i] = local
	}

	configs, err := r.cfg.Configurations(locals)
	if err != nil {
		return nil, err
	}

	lib := texture.NewLibrary()
	pl := pipeline.New(lib)
	pl.MaxTextureSize = r.cfg.Output.MaxTextureSize
	res, err := pl.Run(ctx, m, configs)
	if err != nil {
		return nil, err
	}

	out := req.Output
	if out == "" {
		date := start.Format("20060102")
		if len(req.Textures) > 0 {
			date = export.TextureDate(req.Textures[0], start)
		}
		out = filepath.Join(r.cfg.Output.Dir, export.OutputName(m.Name, date, start))
	}

	size, err := export.WriteGLB(out, m, lib)
	if err != nil {
		return nil, err
	}

	r.log.Info("job complete",
		zap.String("model", m.Name),
		zap.String("output", out),
		zap.Int64("bytes", size),
		zap.Int("faces_mapped", res.Faces()),
		zap.Duration("elapsed", r.now().Sub(start)),
	)
	return &Outcome{
		Path:   out,
		Name:   filepath.Base(out),
		Size:   size,
		Stats:  m.Stats(),
		Result: res,
	}, nil
}

// Import resolves and loads a model without processing it.
func (r *Runner) Import(ctx context.Context, model string) (*mesh.Mesh, error) {
	return r.importModel(ctx, model)
}

// importModel loads the model and names the mesh after the source file.
// A downloaded model file is deleted once parsed.
func (r *Runner) importModel(ctx context.Context, src string) (*mesh.Mesh, error) {
	local, cleanup, err := r.fetcher.Resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	model, err := formats.LoadModel(local)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", mesh.ErrInput, src, err)
	}
	m, err := mesh.FromModel(model)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	m.Name = export.ModelName(src)

	st := m.Stats()
	r.log.Info("model imported",
		zap.String("model", m.Name),
		zap.Int("vertices", st.Vertices),
		zap.Int("faces", st.Faces),
	)
	return m, nil
}
