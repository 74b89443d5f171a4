package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Faultbox/hullmap/internal/config"
	"github.com/Faultbox/hullmap/internal/job"
)

type fakeRunner struct {
	dir  string
	err  error
	reqs []job.Request

	mu      sync.Mutex
	active  atomic.Int32
	overlap atomic.Bool
}

func (f *fakeRunner) Run(ctx context.Context, req job.Request) (*job.Outcome, error) {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	name := "ship_20240101_20240101_120000.glb"
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, []byte("glTF"), 0644); err != nil {
		return nil, err
	}
	return &job.Outcome{Path: path, Name: name, Size: 4}, nil
}

func newTestServer(t *testing.T, r *fakeRunner) (*Server, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	r.dir = cfg.Output.Dir
	return New(cfg, r), cfg
}

func post(t *testing.T, s http.Handler, body string) (*httptest.ResponseRecorder, MappingResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ship/texture-mapping", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var resp MappingResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	s, cfg := newTestServer(t, &fakeRunner{})

	for _, base := range []string{"", "http://maps.example:8080"} {
		cfg.Server.BaseURL = base
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ship/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: %d", rec.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["status"] != "UP" {
			t.Errorf("status field: %v", body["status"])
		}
		got, present := body["serverBaseUrl"]
		if !present {
			t.Error("serverBaseUrl should always be present")
		}
		if base == "" && got != nil {
			t.Errorf("serverBaseUrl: got %v, want null", got)
		}
		if base != "" && got != base {
			t.Errorf("serverBaseUrl: got %v, want %s", got, base)
		}
	}
}

func TestMapping(t *testing.T) {
	r := &fakeRunner{}
	s, _ := newTestServer(t, r)

	rec, resp := post(t, s, `{"shipModel":"/data/ship.ply","textureDate":["/pan/20240101/a.png","/sar/20240101/b.png"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", rec.Code, resp.Message)
	}
	if !resp.Success || resp.ModelURL != "/models/ship_20240101_20240101_120000.glb" {
		t.Errorf("response: %+v", resp)
	}
	if len(r.reqs) != 1 || r.reqs[0].Model != "/data/ship.ply" || len(r.reqs[0].Textures) != 2 {
		t.Errorf("runner requests: %+v", r.reqs)
	}

	// The generated file is served under /models/.
	get := httptest.NewRecorder()
	s.ServeHTTP(get, httptest.NewRequest(http.MethodGet, resp.ModelURL, nil))
	if get.Code != http.StatusOK || get.Body.String() != "glTF" {
		t.Errorf("model fetch: %d %q", get.Code, get.Body.String())
	}
	if get.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("cache-control: %q", get.Header().Get("Cache-Control"))
	}
}

func TestMappingBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"shipModel":`},
		{"no model", `{"textureDate":["a.png","b.png"]}`},
		{"no textures", `{"shipModel":"ship.ply"}`},
		{"one texture", `{"shipModel":"ship.ply","textureDate":["a.png"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			s, _ := newTestServer(t, r)
			rec, resp := post(t, s, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rec.Code)
			}
			if resp.Success || resp.Message == "" {
				t.Errorf("response: %+v", resp)
			}
			if len(r.reqs) != 0 {
				t.Error("runner should not be called")
			}
		})
	}
}

func TestMappingFailure(t *testing.T) {
	s, _ := newTestServer(t, &fakeRunner{err: errors.New("model has no faces")})
	rec, resp := post(t, s, `{"shipModel":"ship.ply","textureDate":["a.png","b.png"]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
	if resp.Success || !strings.Contains(resp.Message, "model has no faces") || resp.ModelURL != "" {
		t.Errorf("response: %+v", resp)
	}
}

func TestMappingSerialized(t *testing.T) {
	r := &fakeRunner{}
	s, _ := newTestServer(t, r)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/ship/texture-mapping",
				strings.NewReader(`{"shipModel":"ship.ply","textureDate":["a.png","b.png"]}`))
			s.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	if r.overlap.Load() {
		t.Error("jobs ran concurrently")
	}
	if len(r.reqs) != 4 {
		t.Errorf("requests: %d", len(r.reqs))
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, &fakeRunner{})

	pre := httptest.NewRequest(http.MethodOptions, "/api/ship/texture-mapping", nil)
	pre.Header.Set("Origin", "http://localhost:5173")
	pre.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, pre)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status: %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("allow-origin: %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Headers") != "content-type" {
		t.Errorf("allow-headers: %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}

	other := httptest.NewRequest(http.MethodGet, "/api/ship/health", nil)
	other.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, other)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin should not get CORS headers")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status: %d", rec.Code)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s, cfg := newTestServer(t, &fakeRunner{})
	cfg.Server.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
