package job

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/hullmap/internal/config"
	"github.com/Faultbox/hullmap/internal/mesh"
)

const cubeOBJ = `o hull
v -1 -1 -1
v 1 -1 -1
v 1 1 -1
v -1 1 -1
v -1 -1 1
v 1 -1 1
v 1 1 1
v -1 1 1
f 1 4 3 2
f 5 6 7 8
f 1 2 6 5
f 2 3 7 6
f 3 4 8 7
f 4 1 5 8
`

func pngBytes(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Fetch.TempDir = t.TempDir()
	r := New(cfg)
	r.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	return r, cfg.Output.Dir
}

func TestRunLocal(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, filepath.Join(dir, "ship.obj"), []byte(cubeOBJ))
	top := writeFile(t, filepath.Join(dir, "top.png"), pngBytes(t, color.RGBA{R: 255, A: 255}))
	side := writeFile(t, filepath.Join(dir, "side.png"), pngBytes(t, color.RGBA{B: 255, A: 255}))

	r, outDir := testRunner(t)
	out, err := r.Run(context.Background(), Request{Model: model, Textures: []string{top, side}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantName := "ship_20240309_20240309_140507.glb"
	if out.Name != wantName {
		t.Errorf("name: got %s, want %s", out.Name, wantName)
	}
	if out.Path != filepath.Join(outDir, wantName) {
		t.Errorf("path: %s", out.Path)
	}
	if out.Size <= 0 {
		t.Errorf("size: %d", out.Size)
	}
	if out.Stats.Vertices != 8 || out.Stats.Faces != 6 {
		t.Errorf("stats: %+v", out.Stats)
	}
	if len(out.Result.Passes) != 2 {
		t.Fatalf("passes: %d", len(out.Result.Passes))
	}

	doc, err := gltf.Open(out.Path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(doc.Images) == 0 {
		t.Error("expected embedded textures")
	}
}

func TestRunRemote(t *testing.T) {
	top := pngBytes(t, color.RGBA{G: 255, A: 255})
	side := pngBytes(t, color.RGBA{R: 255, G: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.HasSuffix(req.URL.Path, ".obj"):
			w.Write([]byte(cubeOBJ))
		case strings.HasSuffix(req.URL.Path, "top.png"):
			w.Write(top)
		case strings.HasSuffix(req.URL.Path, "side.png"):
			w.Write(side)
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	r, _ := testRunner(t)
	out, err := r.Run(context.Background(), Request{
		Model:    srv.URL + "/models/frigate.obj",
		Textures: []string{srv.URL + "/tex/20231124/top.png", srv.URL + "/tex/20231124/side.png"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "frigate_20231124_20240309_140507.glb"; out.Name != want {
		t.Errorf("name: got %s, want %s", out.Name, want)
	}

	// Downloads are removed once the run is done.
	entries, err := os.ReadDir(r.cfg.Fetch.TempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned: %d entries", len(entries))
	}
}

func TestRunExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, filepath.Join(dir, "ship.obj"), []byte(cubeOBJ))
	tex := writeFile(t, filepath.Join(dir, "t.png"), pngBytes(t, color.RGBA{A: 255}))

	r, _ := testRunner(t)
	r.cfg.Output.MaxTextureSize = 2
	want := filepath.Join(dir, "nested", "result.glb")
	out, err := r.Run(context.Background(), Request{Model: model, Textures: []string{tex, tex}, Output: want})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Path != want || out.Name != "result.glb" {
		t.Errorf("output: %s %s", out.Path, out.Name)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, filepath.Join(dir, "ship.obj"), []byte(cubeOBJ))
	tex := writeFile(t, filepath.Join(dir, "t.png"), pngBytes(t, color.RGBA{A: 255}))
	bogus := writeFile(t, filepath.Join(dir, "ship.stl"), []byte("solid"))
	empty := writeFile(t, filepath.Join(dir, "empty.obj"), []byte("# nothing\n"))

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"one texture", Request{Model: model, Textures: []string{tex}}, ErrTextures},
		{"unsupported model", Request{Model: bogus, Textures: []string{tex, tex}}, mesh.ErrInput},
		{"empty model", Request{Model: empty, Textures: []string{tex, tex}}, mesh.ErrInput},
		{"missing texture", Request{Model: model, Textures: []string{tex, filepath.Join(dir, "nope.png")}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, outDir := testRunner(t)
			_, err := r.Run(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if _, statErr := os.Stat(outDir); statErr == nil {
				entries, _ := os.ReadDir(outDir)
				if len(entries) != 0 {
					t.Errorf("failed run left %d files", len(entries))
				}
			}
		})
	}
}

func TestImport(t *testing.T) {
	model := writeFile(t, filepath.Join(t.TempDir(), "hull_v2.obj"), []byte(cubeOBJ))
	r, _ := testRunner(t)
	m, err := r.Import(context.Background(), model)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if m.Name != "hull_v2" || len(m.Faces) != 6 {
		t.Errorf("mesh: %s with %d faces", m.Name, len(m.Faces))
	}
}
