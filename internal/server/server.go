// Package server exposes texture mapping over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/hullmap/internal/config"
	"github.com/Faultbox/hullmap/internal/job"
	"github.com/Faultbox/hullmap/internal/logger"
)

// MappingRequest is the body of POST /api/ship/texture-mapping.
// TextureDate lists texture paths or URLs in camera view order.
type MappingRequest struct {
	ShipModel   string   `json:"shipModel"`
	TextureDate []string `json:"textureDate"`
}

// MappingResponse is the reply to a texture mapping request.
type MappingResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ModelURL string `json:"modelUrl,omitempty"`
}

// HealthResponse is the reply to GET /api/ship/health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	ServerBaseURL *string `json:"serverBaseUrl"`
}

// Runner executes one texture mapping job.
type Runner interface {
	Run(ctx context.Context, req job.Request) (*job.Outcome, error)
}

// Server handles HTTP requests. Mapping jobs run one at a time.
type Server struct {
	cfg    *config.Config
	runner Runner
	mux    *http.ServeMux
	log    *zap.Logger

	mu sync.Mutex // serializes jobs
}

// New creates a server that runs jobs with r and serves outputs from cfg.Output.Dir.
func New(cfg *config.Config, r Runner) *Server {
	s := &Server{
		cfg:    cfg,
		runner: r,
		mux:    http.NewServeMux(),
		log:    logger.Named("server"),
	}
	s.mux.HandleFunc("GET /api/ship/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/ship/texture-mapping", s.handleMapping)
	s.mux.Handle("GET /models/", http.StripPrefix("/models/", noCache(http.FileServer(http.Dir(cfg.Output.Dir)))))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cors(w, r) {
		return
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on cfg.Server.Listen until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.Output.Dir, 0755); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", srv.Addr), zap.String("models", s.cfg.Output.Dir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("health check")
	resp := HealthResponse{Status: "UP", Message: "service is running"}
	if s.cfg.Server.BaseURL != "" {
		resp.ServerBaseURL = &s.cfg.Server.BaseURL
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	var req MappingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, MappingResponse{Message: "invalid request body: " + err.Error()})
		return
	}
	if req.ShipModel == "" {
		writeJSON(w, http.StatusBadRequest, MappingResponse{Message: "shipModel is required"})
		return
	}
	if need := max(2, s.cfg.TexturesNeeded()); len(req.TextureDate) < need {
		writeJSON(w, http.StatusBadRequest, MappingResponse{Message: "textureDate needs at least " + strconv.Itoa(need) + " textures"})
		return
	}

	s.log.Info("texture mapping request",
		zap.String("model", req.ShipModel),
		zap.Int("textures", len(req.TextureDate)),
	)

	s.mu.Lock()
	out, err := s.runner.Run(r.Context(), job.Request{Model: req.ShipModel, Textures: req.TextureDate})
	s.mu.Unlock()
	if err != nil {
		s.log.Error("texture mapping failed", zap.String("model", req.ShipModel), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, MappingResponse{Message: "processing failed: " + err.Error()})
		return
	}

	s.log.Info("texture mapping complete", zap.String("output", out.Name))
	writeJSON(w, http.StatusOK, MappingResponse{
		Success:  true,
		Message:  "texture mapping complete",
		ModelURL: "/models/" + out.Name,
	})
}

// cors sets CORS headers for allowed origins and answers preflight requests.
// It reports whether the request was fully handled.
func (s *Server) cors(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || !slices.Contains(s.cfg.Server.AllowedOrigins, origin) {
		return false
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Add("Vary", "Origin")
	if r.Method != http.MethodOptions {
		return false
	}
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	}
	h.Set("Access-Control-Max-Age", "3600")
	w.WriteHeader(http.StatusNoContent)
	return true
}

func noCache(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
