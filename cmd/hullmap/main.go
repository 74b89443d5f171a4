// hullmap textures polygon ship models from fixed camera views and exports GLB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/hullmap/internal/config"
	"github.com/Faultbox/hullmap/internal/job"
	"github.com/Faultbox/hullmap/internal/logger"
	"github.com/Faultbox/hullmap/internal/pipeline"
	"github.com/Faultbox/hullmap/internal/server"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "run":
		err = cmdRun(ctx, cfg, args)
	case "inspect", "info":
		err = cmdInspect(ctx, cfg, args)
	case "classify":
		err = cmdClassify(ctx, cfg, args)
	case "serve":
		err = cmdServe(ctx, cfg)
	case "config":
		err = cmdConfig(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error(command+" failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hullmap - camera-projected texture mapping for ship models

Usage:
  hullmap [flags] <command> [arguments]

Commands:
  run [model] [texture...] [out.glb]  Map textures and export GLB
  inspect <model>                     Show mesh counts and bounds
  classify <model>                    Show faces selected per camera view
  serve                               Start the HTTP service
  config                              Print the effective configuration
  help                                Show this help

Flags:
  -config <file>    Config file (default: ./hullmap.yaml, ./config.yaml, user config dir)
  -debug            Debug logging
  -out <file>       Output .glb path
  -out-dir <dir>    Directory for generated output names
  -timeout <dur>    Download timeout per attempt
  -retries <n>      Extra download attempts after a failure
  -listen <addr>    HTTP listen address

Models may be .ply or .obj; models and textures may be http(s) URLs.

Examples:
  hullmap run ship.ply top.jpg side.jpg
  hullmap -out-dir ./models run https://data.example/ship.obj https://data.example/pan/20240115/top.tif side.png
  hullmap classify ship.ply
  hullmap -listen :9000 serve`)
}

// cmdRun accepts the model, textures in camera view order and an optional
// trailing .glb output, falling back to the config input section.
func cmdRun(ctx context.Context, cfg *config.Config, args []string) error {
	req := job.Request{
		Model:    cfg.Input.Model,
		Textures: cfg.Input.Textures,
		Output:   cfg.Output.Path,
	}
	if len(args) > 0 && strings.EqualFold(lastExt(args[len(args)-1]), ".glb") {
		req.Output = args[len(args)-1]
		args = args[:len(args)-1]
	}
	if len(args) > 0 {
		req.Model = args[0]
	}
	if len(args) > 1 {
		req.Textures = args[1:]
	}
	if req.Model == "" {
		return fmt.Errorf("no model given; pass one or set input.model")
	}

	logger.Info("=== hullmap run ===",
		zap.String("model", req.Model),
		zap.Strings("textures", req.Textures),
	)
	out, err := job.New(cfg).Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Output:   %s\n", out.Path)
	fmt.Printf("Size:     %.2f KB\n", float64(out.Size)/1024)
	fmt.Printf("Faces:    %d\n", out.Stats.Faces)
	for _, p := range out.Result.Passes {
		fmt.Printf("  %-14s %6d faces  %6d loops\n", p.Config, p.Faces.Len(), p.Loops)
	}
	return nil
}

func cmdInspect(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: hullmap inspect <model>")
	}
	m, err := job.New(cfg).Import(ctx, args[0])
	if err != nil {
		return err
	}

	st := m.Stats()
	b := m.WorldBounds(m.Transform.Matrix())
	size := b.Size()
	fmt.Printf("Model:     %s\n", m.Name)
	fmt.Printf("Vertices:  %d\n", st.Vertices)
	fmt.Printf("Faces:     %d\n", st.Faces)
	fmt.Printf("Loops:     %d\n", st.Loops)
	fmt.Printf("Triangles: %d\n", st.Triangles)
	fmt.Printf("Bounds:    (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	fmt.Printf("Size:      %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)

	// Polygon size histogram
	sides := make(map[int]int)
	for _, f := range m.Faces {
		sides[len(f.Verts)]++
	}
	keys := make([]int, 0, len(sides))
	for k := range sides {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fmt.Println()
	fmt.Println("Faces by corner count:")
	for _, k := range keys {
		fmt.Printf("  %-4d %d\n", k, sides[k])
	}
	return nil
}

// cmdClassify runs every camera view without textures or export.
func cmdClassify(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: hullmap classify <model>")
	}
	m, err := job.New(cfg).Import(ctx, args[0])
	if err != nil {
		return err
	}
	configs, err := cfg.Configurations(nil)
	if err != nil {
		return err
	}
	res, err := pipeline.New(nil).Run(ctx, m, configs)
	if err != nil {
		return err
	}

	fmt.Printf("Model: %s (%d faces)\n\n", m.Name, len(m.Faces))
	for _, p := range res.Passes {
		r := p.Rule
		fmt.Printf("%-14s %s %s eps=%g  rot=%v  %6d faces  fov=%.1f°  dist=%.2f\n",
			p.Config, r.Extremum, r.Axis, r.Epsilon, p.Rotation, p.Faces.Len(), p.FOV, p.Distance)
	}
	fmt.Println()
	fmt.Println("Faces per material slot:")
	counts := m.MaterialCounts()
	for slot, name := range m.MaterialSlots {
		fmt.Printf("  %d %-16s %d\n", slot, name, counts[slot])
	}
	return nil
}

func cmdServe(ctx context.Context, cfg *config.Config) error {
	logger.Info("=== hullmap service ===")
	return server.New(cfg, job.New(cfg)).ListenAndServe(ctx)
}

func cmdConfig(cfg *config.Config) error {
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	return nil
}

func lastExt(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 && !strings.ContainsAny(p[i:], `/\`) {
		return p[i:]
	}
	return ""
}
