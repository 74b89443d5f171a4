// Package export writes textured meshes as binary glTF.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/hullmap/internal/logger"
	"github.com/Faultbox/hullmap/internal/mesh"
	"github.com/Faultbox/hullmap/internal/texture"
	"github.com/Faultbox/hullmap/pkg/math"
)

// ErrExport marks output that could not be written or came out empty.
var ErrExport = errors.New("export failed")

// Error carries the failing export step and output path.
type Error struct {
	Op   string // mkdir, writable, build, save, verify
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrExport and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	return []error{ErrExport, e.Err}
}

// Textures looks up the color texture bound to a material.
type Textures interface {
	Texture(material string) (*texture.Image, bool)
}

// WriteGLB builds a glTF document from m and saves it as a .glb file at path.
// It returns the size of the written file.
func WriteGLB(path string, m *mesh.Mesh, tex Textures) (int64, error) {
	log := logger.Named("export")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, &Error{Op: "mkdir", Path: dir, Err: err}
	}
	if err := checkWritable(dir); err != nil {
		return 0, &Error{Op: "writable", Path: dir, Err: err}
	}

	doc, err := Build(m, tex)
	if err != nil {
		return 0, &Error{Op: "build", Path: path, Err: err}
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return 0, &Error{Op: "save", Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, &Error{Op: "verify", Path: path, Err: err}
	}
	if info.Size() == 0 {
		return 0, &Error{Op: "verify", Path: path, Err: errors.New("file is empty")}
	}

	log.Info("model exported",
		zap.String("path", path),
		zap.Int64("bytes", info.Size()),
		zap.Int("materials", len(doc.Materials)),
		zap.Int("images", len(doc.Images)),
	)
	return info.Size(), nil
}

// checkWritable creates and removes a scratch file in dir.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".hullmap-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// primitive collects the split vertex stream of one material slot.
type primitive struct {
	positions [][3]float32
	normals   [][3]float32
	uvs       [][2]float32
	indices   []uint32
}

// Build converts m into a glTF document. The object transform is baked into
// the vertex positions and Z-up coordinates are converted to glTF's Y-up.
// Vertices are split per loop so every corner keeps its own UV; polygons are
// fan-triangulated. Each used material slot becomes one primitive.
func Build(m *mesh.Mesh, tex Textures) (*gltf.Document, error) {
	if m == nil || len(m.Faces) == 0 {
		return nil, fmt.Errorf("%w: nothing to export", mesh.ErrInput)
	}

	world := m.Transform.Matrix()
	slots := len(m.MaterialSlots)
	for _, f := range m.Faces {
		if f.Material+1 > slots {
			slots = f.Material + 1
		}
	}

	prims := make([]*primitive, slots)
	for _, f := range m.Faces {
		if len(f.Verts) < 3 {
			continue
		}
		p := prims[f.Material]
		if p == nil {
			p = &primitive{}
			prims[f.Material] = p
		}

		corners := make([]math.Vec3, len(f.Verts))
		for c, vid := range f.Verts {
			corners[c] = world.TransformVec3(m.Vertices[vid])
		}
		n := yUp(math.Newell(corners))

		base := uint32(len(p.positions))
		for c := range corners {
			p.positions = append(p.positions, yUp(corners[c]))
			p.normals = append(p.normals, n)
			uv := f.UVs[c]
			// glTF puts the texture origin at the top left.
			p.uvs = append(p.uvs, [2]float32{uv.X, 1 - uv.Y})
		}
		for c := 1; c+1 < len(corners); c++ {
			p.indices = append(p.indices, base, base+uint32(c), base+uint32(c+1))
		}
	}

	doc := gltf.NewDocument()
	gm := &gltf.Mesh{Name: m.Name}

	for slot, p := range prims {
		if p == nil {
			continue
		}
		matIdx, err := addMaterial(doc, slotName(m, slot), tex)
		if err != nil {
			return nil, err
		}
		gm.Primitives = append(gm.Primitives, &gltf.Primitive{
			Attributes: map[string]uint32{
				gltf.POSITION:   modeler.WritePosition(doc, p.positions),
				gltf.NORMAL:     modeler.WriteNormal(doc, p.normals),
				gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, p.uvs),
			},
			Indices:  gltf.Index(modeler.WriteIndices(doc, p.indices)),
			Material: gltf.Index(matIdx),
		})
	}

	doc.Meshes = append(doc.Meshes, gm)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: m.Name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	return doc, nil
}

func slotName(m *mesh.Mesh, slot int) string {
	if slot < len(m.MaterialSlots) && m.MaterialSlots[slot] != "" {
		return m.MaterialSlots[slot]
	}
	return fmt.Sprintf("Material_%d", slot)
}

// addMaterial appends a double-sided PBR material, with the bound texture as base color if any.
func addMaterial(doc *gltf.Document, name string, tex Textures) (uint32, error) {
	metallic := float32(0)
	roughness := float32(0.5)
	mat := &gltf.Material{
		Name:        name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}

	if tex != nil {
		if img, ok := tex.Texture(name); ok {
			data, err := img.Encoded()
			if err != nil {
				return 0, err
			}
			imgIdx, err := modeler.WriteImage(doc, img.BaseName(), img.MIMEType(), bytes.NewReader(data))
			if err != nil {
				return 0, fmt.Errorf("embed image for %s: %w", name, err)
			}
			doc.Samplers = append(doc.Samplers, &gltf.Sampler{
				WrapS: gltf.WrapClampToEdge,
				WrapT: gltf.WrapClampToEdge,
			})
			doc.Textures = append(doc.Textures, &gltf.Texture{
				Source:  gltf.Index(imgIdx),
				Sampler: gltf.Index(uint32(len(doc.Samplers) - 1)),
			})
			mat.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
				Index: uint32(len(doc.Textures) - 1),
			}
		}
	}

	doc.Materials = append(doc.Materials, mat)
	return uint32(len(doc.Materials) - 1), nil
}

// yUp converts a Z-up vector to glTF's Y-up frame.
func yUp(v math.Vec3) [3]float32 {
	return [3]float32{v.X, v.Z, -v.Y}
}
