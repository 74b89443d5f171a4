// Package texture loads color textures and binds them to material slots.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// Errors returned by Decode.
var (
	ErrUnknownFormat = errors.New("unknown image format")
	ErrEmptyImage    = errors.New("image has no pixels")
)

// Image is a decoded texture together with its source bytes.
type Image struct {
	Name   string // source file base name
	Format string // jpeg, png, gif, bmp, webp, tiff or tga
	Img    image.Image
	Raw    []byte
}

// Width returns the image width in pixels.
func (i *Image) Width() int { return i.Img.Bounds().Dx() }

// Height returns the image height in pixels.
func (i *Image) Height() int { return i.Img.Bounds().Dy() }

// Load reads and decodes an image file.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read texture: %w", err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}
	img.Name = filepath.Base(path)
	return img, nil
}

// Decode detects the image format from its leading bytes and decodes it.
// TGA has no magic number and is tried last.
func Decode(data []byte) (*Image, error) {
	format := sniff(data)

	var (
		img image.Image
		err error
	)
	rd := bytes.NewReader(data)
	switch format {
	case "jpeg":
		img, err = jpeg.Decode(rd)
	case "png":
		img, err = png.Decode(rd)
	case "gif":
		img, err = gif.Decode(rd)
	case "bmp":
		img, err = bmp.Decode(rd)
	case "webp":
		img, err = webp.Decode(rd)
	case "tiff":
		img, err = tiff.Decode(rd)
	default:
		format = "tga"
		img, err = DecodeTGA(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	return &Image{Format: format, Img: img, Raw: data}, nil
}

func sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return "gif"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "tiff"
	default:
		return ""
	}
}

// MIMEType returns the glTF image MIME type used when embedding i.
// Only JPEG and PNG are valid in glTF; everything else is re-encoded as PNG.
func (i *Image) MIMEType() string {
	if i.Format == "jpeg" {
		return "image/jpeg"
	}
	return "image/png"
}

// Encoded returns bytes suitable for embedding in a glTF buffer.
// JPEG and PNG sources are passed through unchanged.
func (i *Image) Encoded() ([]byte, error) {
	if (i.Format == "jpeg" || i.Format == "png") && len(i.Raw) > 0 {
		return i.Raw, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, i.Img); err != nil {
		return nil, fmt.Errorf("encode %s as png: %w", i.Name, err)
	}
	return buf.Bytes(), nil
}

// BaseName returns the image name without extension, used for glTF image names.
func (i *Image) BaseName() string {
	return strings.TrimSuffix(i.Name, filepath.Ext(i.Name))
}

// Fit returns a copy scaled down to fit within size x size pixels, keeping the
// aspect ratio. Images already within bounds, or size <= 0, are returned as is.
func (i *Image) Fit(size int) *Image {
	if size <= 0 || (i.Width() <= size && i.Height() <= size) {
		return i
	}
	return &Image{
		Name:   i.Name,
		Format: "png",
		Img:    imaging.Fit(i.Img, size, size, imaging.Lanczos),
	}
}
