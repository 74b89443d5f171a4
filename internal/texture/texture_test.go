package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func encode(t *testing.T, format string, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "bmp":
		err = bmp.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

// tga builds a 2x2 bottom-up TGA: red, green on the bottom row; blue, white on top.
func tga(rle bool) []byte {
	hdr := make([]byte, 18)
	hdr[2] = tgaTypeUncompressed
	if rle {
		hdr[2] = tgaTypeRLE
	}
	hdr[12], hdr[14], hdr[16] = 2, 2, 24

	red := []byte{0, 0, 255}
	green := []byte{0, 255, 0}
	blue := []byte{255, 0, 0}
	white := []byte{255, 255, 255}

	var body []byte
	if rle {
		// Raw packet of 2, then a run of 1 blue and a run of 1 white.
		body = append(body, 0x01)
		body = append(body, red...)
		body = append(body, green...)
		body = append(body, 0x80)
		body = append(body, blue...)
		body = append(body, 0x80)
		body = append(body, white...)
	} else {
		for _, p := range [][]byte{red, green, blue, white} {
			body = append(body, p...)
		}
	}
	return append(hdr, body...)
}

func TestDecodeFormats(t *testing.T) {
	src := checker(4, 3)

	tests := []struct {
		name string
		data []byte
	}{
		{"png", encode(t, "png", src)},
		{"jpeg", encode(t, "jpeg", src)},
		{"bmp", encode(t, "bmp", src)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Format != tt.name {
				t.Errorf("format: got %s, want %s", img.Format, tt.name)
			}
			if img.Width() != 4 || img.Height() != 3 {
				t.Errorf("size: got %dx%d, want 4x3", img.Width(), img.Height())
			}
		})
	}
}

func TestDecodeTGA(t *testing.T) {
	for _, rle := range []bool{false, true} {
		img, err := Decode(tga(rle))
		if err != nil {
			t.Fatalf("rle=%v: Decode: %v", rle, err)
		}
		if img.Format != "tga" {
			t.Errorf("rle=%v: format %s", rle, img.Format)
		}
		rgba := img.Img.(*image.RGBA)
		// Bottom-up: first file row lands at y=1.
		want := map[[2]int]color.RGBA{
			{0, 1}: {R: 255, A: 255},
			{1, 1}: {G: 255, A: 255},
			{0, 0}: {B: 255, A: 255},
			{1, 0}: {R: 255, G: 255, B: 255, A: 255},
		}
		for p, c := range want {
			if got := rgba.RGBAAt(p[0], p[1]); got != c {
				t.Errorf("rle=%v: pixel %v = %v, want %v", rle, p, got, c)
			}
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	truncated := tga(false)
	truncated = truncated[:len(truncated)-2]

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not an image at all, just text")},
		{"truncated tga", truncated},
		{"truncated png", encode(t, "png", checker(2, 2))[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Decode([]byte("plain text")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoadSetsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ship_top_20240115.png")
	if err := os.WriteFile(path, encode(t, "png", checker(2, 2)), 0644); err != nil {
		t.Fatal(err)
	}
	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Name != "ship_top_20240115.png" || img.BaseName() != "ship_top_20240115" {
		t.Errorf("names: %q %q", img.Name, img.BaseName())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEncodedForGLTF(t *testing.T) {
	pngData := encode(t, "png", checker(2, 2))
	img, err := Decode(pngData)
	if err != nil {
		t.Fatal(err)
	}
	out, err := img.Encoded()
	if err != nil || !bytes.Equal(out, pngData) {
		t.Errorf("png should pass through unchanged")
	}
	if img.MIMEType() != "image/png" {
		t.Errorf("mime: %s", img.MIMEType())
	}

	// BMP is not a glTF image type and must be re-encoded.
	img, err = Decode(encode(t, "bmp", checker(2, 2)))
	if err != nil {
		t.Fatal(err)
	}
	out, err = img.Encoded()
	if err != nil {
		t.Fatalf("Encoded: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("re-encoded bmp is not png: %v", err)
	}
	if img.MIMEType() != "image/png" {
		t.Errorf("mime: %s", img.MIMEType())
	}
}

func TestLibrary(t *testing.T) {
	lib := NewLibrary()
	top, _ := Decode(encode(t, "png", checker(2, 2)))
	side, _ := Decode(tga(false))

	if err := lib.BindTexture("Material_Top", top); err != nil {
		t.Fatal(err)
	}
	if err := lib.BindTexture("Material_Side", side); err != nil {
		t.Fatal(err)
	}
	// Rebinding replaces without changing order.
	if err := lib.BindTexture("Material_Top", side); err != nil {
		t.Fatal(err)
	}

	if got := lib.Materials(); len(got) != 2 || got[0] != "Material_Top" || got[1] != "Material_Side" {
		t.Errorf("materials: %v", got)
	}
	if img, ok := lib.Texture("Material_Top"); !ok || img != side {
		t.Error("Material_Top should be rebound to the side image")
	}

	if err := lib.BindTexture("", top); !errors.Is(err, ErrBind) {
		t.Errorf("empty material: got %v", err)
	}
	if err := lib.BindTexture("Material_X", nil); !errors.Is(err, ErrBind) {
		t.Errorf("nil image: got %v", err)
	}
	if lib.Len() != 2 {
		t.Errorf("len: %d", lib.Len())
	}
}

func TestFit(t *testing.T) {
	img, err := Decode(encode(t, "jpeg", checker(40, 20)))
	if err != nil {
		t.Fatal(err)
	}

	if same := img.Fit(0); same != img {
		t.Error("Fit(0) should return the image unchanged")
	}
	if same := img.Fit(64); same != img {
		t.Error("Fit above the image size should return it unchanged")
	}

	small := img.Fit(10)
	if small.Width() != 10 || small.Height() != 5 {
		t.Errorf("fit size: got %dx%d, want 10x5", small.Width(), small.Height())
	}
	if small.MIMEType() != "image/png" {
		t.Errorf("resized image mime: %s", small.MIMEType())
	}
	data, err := small.Encoded()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("resized image does not encode as png: %v", err)
	}
}
