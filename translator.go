package shadermap

import "github.com/gogpu/shadermap/uniform"

// TranslationResult is the artifact the expression-graph compiler hands to
// this layer: shader source text, the uniform-expression set, and the
// per-property usage discovered while translating the graph.
type TranslationResult struct {
	// Source is the shader source unit all of the fingerprint's targets
	// compile from.
	Source string

	// Expressions is the uniform-expression set attached to the
	// resulting shader map.
	Expressions *uniform.ExpressionSet

	// UsesSceneColor and friends feed environment defines for features
	// discovered during translation rather than declared on the
	// material.
	UsesSceneColor     bool
	UsesPixelDepth     bool
	UsesVertexPosition bool
}

// Translator is the expression-graph compiler collaborator. It is invoked
// exactly once per compile attempt; any reported failure fails the attempt.
//
// Implementations must be safe for concurrent use: translation runs on
// compile worker goroutines.
type Translator interface {
	Translate(m *Material, platform Platform) (*TranslationResult, error)
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(m *Material, platform Platform) (*TranslationResult, error)

// Translate implements Translator.
func (f TranslatorFunc) Translate(m *Material, platform Platform) (*TranslationResult, error) {
	return f(m, platform)
}
