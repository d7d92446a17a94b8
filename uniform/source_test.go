package uniform

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestMapSourceClearTexture(t *testing.T) {
	src := NewMapSource()
	tex := NewTexture("t", 32, 32)
	src.SetTexture("Albedo", tex)
	if _, ok := src.TextureValue("Albedo"); !ok {
		t.Fatal("texture not stored")
	}
	src.SetTexture("Albedo", nil)
	_, ok := src.TextureValue("Albedo")
	assert.False(t, ok)
}

func TestColoredSourceOverride(t *testing.T) {
	parent := NewMapSource()
	parent.SetVector("Tint", mgl32.Vec4{1, 1, 1, 1})
	parent.SetScalar("Roughness", 0.5)

	src := &ColoredSource{Parent: parent, Name: "Tint", Color: mgl32.Vec4{1, 0, 0, 1}}

	v, ok := src.VectorValue("Tint")
	assert.True(t, ok)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, v)

	// Everything else delegates.
	_, ok = src.VectorValue("Other")
	assert.False(t, ok)
	s, ok := src.ScalarValue("Roughness")
	assert.True(t, ok)
	assert.Equal(t, float32(0.5), s)
}

func TestSelectionColorSourceOverride(t *testing.T) {
	parent := NewMapSource()
	src := &SelectionColorSource{Parent: parent, SelectionColor: mgl32.Vec4{0, 0, 1, 1}}

	v, ok := src.VectorValue(SelectionColorName)
	assert.True(t, ok)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, v)

	_, ok = src.VectorValue("Tint")
	assert.False(t, ok)
}

func TestTexturedSourceOverride(t *testing.T) {
	parent := NewMapSource()
	fallback := NewTexture("fallback", 16, 16)
	parent.SetTexture("Other", fallback)

	override := NewTexture("override", 64, 64)
	src := &TexturedSource{Parent: parent, Name: "Albedo", Texture: override}

	tex, ok := src.TextureValue("Albedo")
	assert.True(t, ok)
	assert.Same(t, override, tex)

	tex, ok = src.TextureValue("Other")
	assert.True(t, ok)
	assert.Same(t, fallback, tex)
}

func TestSourceWrappersStack(t *testing.T) {
	parent := NewMapSource()
	tex := NewTexture("t", 8, 8)
	src := &SelectionColorSource{
		Parent: &TexturedSource{Parent: parent, Name: "Albedo", Texture: tex},
		SelectionColor: mgl32.Vec4{1, 1, 0, 1},
	}

	got, ok := src.TextureValue("Albedo")
	assert.True(t, ok)
	assert.Same(t, tex, got)
	v, ok := src.VectorValue(SelectionColorName)
	assert.True(t, ok)
	assert.Equal(t, mgl32.Vec4{1, 1, 0, 1}, v)
}
