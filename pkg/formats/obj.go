// Wavefront OBJ parser (geometry only).
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/hullmap/pkg/encoding"
)

// OBJ format errors.
var (
	ErrInvalidOBJVertex = errors.New("invalid OBJ vertex")
	ErrInvalidOBJFace   = errors.New("invalid OBJ face")
)

// OBJ holds the geometry read from an OBJ file.
// Texture coordinates and normals in the file are ignored; faces index Vertices.
type OBJ struct {
	Name     string
	Vertices [][3]float32
	Faces    [][]uint32
}

// LoadOBJ reads and parses an OBJ file from disk.
func LoadOBJ(path string) (*OBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(data)
}

// ParseOBJ parses OBJ data from a byte slice.
func ParseOBJ(data []byte) (*OBJ, error) {
	obj := &OBJ{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		ident, val := fields[0], fields[1:]

		switch ident {
		case "v":
			if len(val) < 3 {
				return nil, fmt.Errorf("line %d: %w", lineNo, ErrInvalidOBJVertex)
			}
			var pos [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(val[i], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w: %v", lineNo, ErrInvalidOBJVertex, err)
				}
				pos[i] = float32(f)
			}
			obj.Vertices = append(obj.Vertices, pos)
		case "f":
			if len(val) < 3 {
				return nil, fmt.Errorf("line %d: %w: fewer than 3 corners", lineNo, ErrInvalidOBJFace)
			}
			face := make([]uint32, 0, len(val))
			for _, s := range val {
				// v, v/vt, v//vn, v/vt/vn
				ref := s
				if slash := strings.IndexByte(s, '/'); slash >= 0 {
					ref = s[:slash]
				}
				idx, err := strconv.Atoi(ref)
				if err != nil || idx == 0 {
					return nil, fmt.Errorf("line %d: %w: %q", lineNo, ErrInvalidOBJFace, s)
				}
				// Negative indices are relative to the vertices read so far.
				if idx < 0 {
					idx = len(obj.Vertices) + idx + 1
				}
				if idx < 1 {
					return nil, fmt.Errorf("line %d: %w: %q out of range", lineNo, ErrInvalidOBJFace, s)
				}
				face = append(face, uint32(idx-1))
			}
			obj.Faces = append(obj.Faces, face)
		case "o":
			if obj.Name == "" && len(val) > 0 {
				obj.Name = encoding.StringToUTF8(strings.Join(val, " "))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning OBJ data: %w", err)
	}

	return obj, nil
}

// Model is format-neutral polygon geometry.
type Model struct {
	Name     string
	Vertices [][3]float32
	Faces    [][]uint32
}

// ErrUnsupportedModel is returned for file extensions without a reader.
var ErrUnsupportedModel = errors.New("unsupported model format")

// LoadModel reads a model file, choosing the parser by extension (.ply or .obj).
func LoadModel(path string) (*Model, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ply":
		ply, err := LoadPLY(path)
		if err != nil {
			return nil, err
		}
		return &Model{Name: name, Vertices: ply.Vertices, Faces: ply.Faces}, nil
	case ".obj":
		obj, err := LoadOBJ(path)
		if err != nil {
			return nil, err
		}
		if obj.Name != "" {
			name = obj.Name
		}
		return &Model{Name: name, Vertices: obj.Vertices, Faces: obj.Faces}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, filepath.Ext(path))
	}
}
