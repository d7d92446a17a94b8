package uniform

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// MapSource is the basic mutable ParameterSource backed by maps.
// It is safe for concurrent reads and writes, though proxies normally
// mutate it only from the consuming context.
type MapSource struct {
	mu       sync.RWMutex
	vectors  map[string]mgl32.Vec4
	scalars  map[string]float32
	textures map[string]*Texture
}

// NewMapSource creates an empty parameter source.
func NewMapSource() *MapSource {
	return &MapSource{
		vectors:  make(map[string]mgl32.Vec4),
		scalars:  make(map[string]float32),
		textures: make(map[string]*Texture),
	}
}

// SetVector stores a vector parameter value.
func (m *MapSource) SetVector(name string, v mgl32.Vec4) {
	m.mu.Lock()
	m.vectors[name] = v
	m.mu.Unlock()
}

// SetScalar stores a scalar parameter value.
func (m *MapSource) SetScalar(name string, v float32) {
	m.mu.Lock()
	m.scalars[name] = v
	m.mu.Unlock()
}

// SetTexture stores a texture parameter value. A nil texture clears it.
func (m *MapSource) SetTexture(name string, t *Texture) {
	m.mu.Lock()
	if t == nil {
		delete(m.textures, name)
	} else {
		m.textures[name] = t
	}
	m.mu.Unlock()
}

func (m *MapSource) VectorValue(name string) (mgl32.Vec4, bool) {
	m.mu.RLock()
	v, ok := m.vectors[name]
	m.mu.RUnlock()
	return v, ok
}

func (m *MapSource) ScalarValue(name string) (float32, bool) {
	m.mu.RLock()
	v, ok := m.scalars[name]
	m.mu.RUnlock()
	return v, ok
}

func (m *MapSource) TextureValue(name string) (*Texture, bool) {
	m.mu.RLock()
	t, ok := m.textures[name]
	m.mu.RUnlock()
	return t, ok
}

// ColoredSource overrides one named vector parameter with a fixed color and
// delegates everything else to its parent.
type ColoredSource struct {
	Parent ParameterSource
	Name   string
	Color  mgl32.Vec4
}

func (s *ColoredSource) VectorValue(name string) (mgl32.Vec4, bool) {
	if name == s.Name {
		return s.Color, true
	}
	return s.Parent.VectorValue(name)
}

func (s *ColoredSource) ScalarValue(name string) (float32, bool) {
	return s.Parent.ScalarValue(name)
}

func (s *ColoredSource) TextureValue(name string) (*Texture, bool) {
	return s.Parent.TextureValue(name)
}

// SelectionColorName is the parameter name overridden by SelectionColorSource.
const SelectionColorName = "SelectionColor"

// SelectionColorSource overrides the selection color used by editor
// highlighting, delegating all other lookups to its parent.
type SelectionColorSource struct {
	Parent         ParameterSource
	SelectionColor mgl32.Vec4
}

func (s *SelectionColorSource) VectorValue(name string) (mgl32.Vec4, bool) {
	if name == SelectionColorName {
		return s.SelectionColor, true
	}
	return s.Parent.VectorValue(name)
}

func (s *SelectionColorSource) ScalarValue(name string) (float32, bool) {
	return s.Parent.ScalarValue(name)
}

func (s *SelectionColorSource) TextureValue(name string) (*Texture, bool) {
	return s.Parent.TextureValue(name)
}

// TexturedSource overrides one named texture parameter and delegates
// everything else to its parent.
type TexturedSource struct {
	Parent  ParameterSource
	Name    string
	Texture *Texture
}

func (s *TexturedSource) VectorValue(name string) (mgl32.Vec4, bool) {
	return s.Parent.VectorValue(name)
}

func (s *TexturedSource) ScalarValue(name string) (float32, bool) {
	return s.Parent.ScalarValue(name)
}

func (s *TexturedSource) TextureValue(name string) (*Texture, bool) {
	if name == s.Name {
		return s.Texture, true
	}
	return s.Parent.TextureValue(name)
}
