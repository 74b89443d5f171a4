package texture

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBind is returned when a texture cannot be bound to a material.
var ErrBind = errors.New("texture bind failed")

// Binder attaches a color texture to a material.
type Binder interface {
	BindTexture(material string, img *Image) error
}

// Library is a Binder that keeps material textures in memory for export.
type Library struct {
	mu       sync.RWMutex
	bound    map[string]*Image
	material []string // bind order
}

// NewLibrary creates an empty texture library.
func NewLibrary() *Library {
	return &Library{bound: make(map[string]*Image)}
}

// BindTexture sets the color texture of a material, replacing any earlier binding.
func (l *Library) BindTexture(material string, img *Image) error {
	if material == "" {
		return fmt.Errorf("%w: empty material name", ErrBind)
	}
	if img == nil || img.Img == nil {
		return fmt.Errorf("%w: material %s: no image", ErrBind, material)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.bound[material]; !ok {
		l.material = append(l.material, material)
	}
	l.bound[material] = img
	return nil
}

// Texture returns the image bound to a material.
func (l *Library) Texture(material string) (*Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	img, ok := l.bound[material]
	return img, ok
}

// Materials returns bound material names in bind order.
func (l *Library) Materials() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.material))
	copy(out, l.material)
	return out
}

// Len returns the number of bound materials.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.bound)
}
