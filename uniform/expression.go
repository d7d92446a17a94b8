package uniform

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ParameterSource answers parameter lookups during expression evaluation.
// The second result reports whether the source owns the queried name;
// wrapper sources delegate to a parent when they do not.
type ParameterSource interface {
	VectorValue(name string) (mgl32.Vec4, bool)
	ScalarValue(name string) (float32, bool)
	TextureValue(name string) (*Texture, bool)
}

// VectorExpression produces one four-component vector value.
type VectorExpression interface {
	EvaluateVector(src ParameterSource) mgl32.Vec4
	describe() string
}

// ScalarExpression produces one scalar value.
type ScalarExpression interface {
	EvaluateScalar(src ParameterSource) float32
	describe() string
}

// TextureExpression produces one texture reference. A nil result is a valid
// outcome and yields an empty binding, not an error.
type TextureExpression interface {
	EvaluateTexture(src ParameterSource) *Texture
	describe() string
}

// VectorConstant is a vector expression with a fixed value.
type VectorConstant struct {
	Value mgl32.Vec4
}

func (e VectorConstant) EvaluateVector(ParameterSource) mgl32.Vec4 { return e.Value }
func (e VectorConstant) describe() string                          { return fmt.Sprintf("vc(%v)", e.Value) }

// VectorParameter reads a named vector parameter, falling back to Default
// when the source does not provide the name.
type VectorParameter struct {
	Name    string
	Default mgl32.Vec4
}

func (e VectorParameter) EvaluateVector(src ParameterSource) mgl32.Vec4 {
	if v, ok := src.VectorValue(e.Name); ok {
		return v
	}
	return e.Default
}
func (e VectorParameter) describe() string { return fmt.Sprintf("vp(%s,%v)", e.Name, e.Default) }

// ScalarConstant is a scalar expression with a fixed value.
type ScalarConstant struct {
	Value float32
}

func (e ScalarConstant) EvaluateScalar(ParameterSource) float32 { return e.Value }
func (e ScalarConstant) describe() string                       { return fmt.Sprintf("sc(%g)", e.Value) }

// ScalarParameter reads a named scalar parameter with a default.
type ScalarParameter struct {
	Name    string
	Default float32
}

func (e ScalarParameter) EvaluateScalar(src ParameterSource) float32 {
	if v, ok := src.ScalarValue(e.Name); ok {
		return v
	}
	return e.Default
}
func (e ScalarParameter) describe() string { return fmt.Sprintf("sp(%s,%g)", e.Name, e.Default) }

// TextureParameter reads a named texture parameter. Resolving to no texture
// is not an error; the binding stays empty.
type TextureParameter struct {
	Name string
}

func (e TextureParameter) EvaluateTexture(src ParameterSource) *Texture {
	if t, ok := src.TextureValue(e.Name); ok {
		return t
	}
	return nil
}
func (e TextureParameter) describe() string { return fmt.Sprintf("tp(%s)", e.Name) }

// TextureStack declares one dynamic multi-layer texture binding assembled
// from several texture-valued expressions.
//
// A preallocated stack is bound directly to an externally managed texture
// (first layer); its allocation is looked up, never owned. A regular stack
// is allocated from the union of its layers' tile parameters and owned by
// the evaluating cache.
type TextureStack struct {
	Preallocated bool
	Layers       []TextureExpression
}

// MaxStackLayers bounds the number of layers in one texture stack.
const MaxStackLayers = 8

// ExpressionSet is the uniform-expression set attached to a finalized
// shader map. It is immutable after the owning artifact finalizes; the
// evaluation side only reads it.
type ExpressionSet struct {
	Vectors  []VectorExpression
	Scalars  []ScalarExpression
	Textures []TextureExpression
	Stacks   []TextureStack
}

// vectorSlot is the byte size of one packed vector (or scalar group) slot.
const vectorSlot = 16

// BufferSize returns the packed buffer size in bytes: one 16-byte slot per
// vector, scalars packed four per slot.
func (s *ExpressionSet) BufferSize() int {
	return vectorSlot*len(s.Vectors) + vectorSlot*((len(s.Scalars)+3)/4)
}

// IsEmpty reports whether the set declares nothing to evaluate.
func (s *ExpressionSet) IsEmpty() bool {
	return len(s.Vectors) == 0 && len(s.Scalars) == 0 &&
		len(s.Textures) == 0 && len(s.Stacks) == 0
}

// FillBuffer evaluates every vector and scalar expression against src and
// writes the packed little-endian result into buf. buf must be at least
// BufferSize() bytes.
func (s *ExpressionSet) FillBuffer(src ParameterSource, buf []byte) {
	off := 0
	for _, e := range s.Vectors {
		v := e.EvaluateVector(src)
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v[i]))
			off += 4
		}
	}
	for _, e := range s.Scalars {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(e.EvaluateScalar(src)))
		off += 4
	}
	// Zero the tail padding of a partial scalar group so identical inputs
	// always produce byte-identical buffers.
	for off < s.BufferSize() {
		binary.LittleEndian.PutUint32(buf[off:], 0)
		off += 4
	}
}

// EvaluateTextures resolves every standalone texture expression. Entries may
// be nil for expressions that resolve to no texture.
func (s *ExpressionSet) EvaluateTextures(src ParameterSource) []*Texture {
	if len(s.Textures) == 0 {
		return nil
	}
	out := make([]*Texture, len(s.Textures))
	for i, e := range s.Textures {
		out[i] = e.EvaluateTexture(src)
	}
	return out
}

// Hash returns a content hash of the set's structure: expression kinds,
// names, defaults and stack declarations. Two sets with equal hashes declare
// the same layout and the same evaluation behavior.
func (s *ExpressionSet) Hash() uint64 {
	h := fnv.New64a()
	for _, e := range s.Vectors {
		_, _ = h.Write([]byte(e.describe()))
	}
	_, _ = h.Write([]byte{0})
	for _, e := range s.Scalars {
		_, _ = h.Write([]byte(e.describe()))
	}
	_, _ = h.Write([]byte{0})
	for _, e := range s.Textures {
		_, _ = h.Write([]byte(e.describe()))
	}
	_, _ = h.Write([]byte{0})
	for _, st := range s.Stacks {
		if st.Preallocated {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{2})
		}
		for _, e := range st.Layers {
			_, _ = h.Write([]byte(e.describe()))
		}
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
