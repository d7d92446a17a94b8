package shadermap

import (
	"github.com/gogpu/shadermap/uniform"
)

// Properties are the authored material attributes that shape compilation:
// each maps to a fixed set of environment defines (see EnvironmentDefines)
// and participates in dependency predicates.
type Properties struct {
	BlendMode             BlendMode
	Domain                MaterialDomain
	Refraction            RefractionMode
	Tessellation          TessellationMode
	TranslucencyLighting  TranslucencyLightingMode
	DecalResponseMask     uint8
	TwoSided              bool
	TangentSpaceNormal    bool
	DitheredLODTransition bool
}

// MaterialConfig configures a new Material.
type MaterialConfig struct {
	Properties Properties
	Usage      Usage
	Quality    QualityLevel
	Feature    FeatureLevel

	// ContentHash is the structural hash of the material's expression
	// graph, owned by the authoring side. A zero hash is legal (broken
	// or empty content) and still fingerprints.
	ContentHash Digest

	// ReferencedTextures lists the identities of textures the graph
	// references, in any order.
	ReferencedTextures []string

	// Default designates the process-wide fallback material. Compile
	// failure of a default material is unrecoverable.
	Default bool

	// Required marks a material that must have a complete artifact in
	// ArchiveOnly mode; a miss is unrecoverable instead of falling back.
	// Default materials are implicitly required.
	Required bool

	// RequiresSyncCompile forces a blocking compile even in LiveAsync
	// mode, for materials with no acceptable degraded behavior.
	RequiresSyncCompile bool

	// Fallback is the material substituted while this one has no
	// complete artifact. Usually the designated default. Nil on the
	// default itself.
	Fallback *Material
}

// Material is one logical material resource for a platform, quality and
// feature level combination.
//
// A material holds two shader map references with distinct owners: the
// producer-visible reference, read and written only by the loading and
// compilation side, and the consumer-visible reference, swapped only
// through the RenderQueue and read only by the rendering side.
type Material struct {
	name string
	cfg  MaterialConfig

	state       CompileState
	compileErrs []string

	// producerMap is the producing-context reference. Never read from
	// the consuming context.
	producerMap *ShaderMap

	// consumerMap is the consuming-context reference. Only ever swapped
	// to a finalized map, inside a RenderQueue drain.
	consumerMap *ShaderMap
}

// NewMaterial creates a material in the NoArtifact state.
func NewMaterial(name string, cfg MaterialConfig) *Material {
	return &Material{name: name, cfg: cfg}
}

// Name returns the material's debug name.
func (m *Material) Name() string { return m.name }

// Properties returns the authored attributes.
func (m *Material) Properties() Properties { return m.cfg.Properties }

// Usage returns the shader map usage context.
func (m *Material) Usage() Usage { return m.cfg.Usage }

// Quality returns the material quality level.
func (m *Material) Quality() QualityLevel { return m.cfg.Quality }

// FeatureLevel returns the targeted feature level.
func (m *Material) FeatureLevel() FeatureLevel { return m.cfg.Feature }

// ContentHash returns the structural content hash.
func (m *Material) ContentHash() Digest { return m.cfg.ContentHash }

// ReferencedTextures returns the referenced-texture identity list.
func (m *Material) ReferencedTextures() []string { return m.cfg.ReferencedTextures }

// IsDefault reports whether this is the designated fallback material.
func (m *Material) IsDefault() bool { return m.cfg.Default }

// IsRequired reports whether a missing artifact is unrecoverable for this
// material in ArchiveOnly mode.
func (m *Material) IsRequired() bool { return m.cfg.Required || m.cfg.Default }

// RequiresSyncCompile reports whether the material must compile blocking.
func (m *Material) RequiresSyncCompile() bool { return m.cfg.RequiresSyncCompile }

// Fallback returns the material substituted while no artifact is complete.
func (m *Material) Fallback() *Material { return m.cfg.Fallback }

// State returns the compile state. Producing context only.
func (m *Material) State() CompileState { return m.state }

// CompileErrors returns the messages from the last failed compile attempt.
func (m *Material) CompileErrors() []string { return m.compileErrs }

// SetContent replaces the structural content hash and referenced-texture
// list after an edit. The caller must invalidate through the scheduler
// before requesting a new fingerprint, so stale artifacts are never
// silently reused.
func (m *Material) SetContent(hash Digest, referencedTextures []string) {
	m.cfg.ContentHash = hash
	m.cfg.ReferencedTextures = referencedTextures
}

// ProducerShaderMap returns the producer-visible reference. Producing
// context only.
func (m *Material) ProducerShaderMap() *ShaderMap { return m.producerMap }

// HasValidProducerMap reports whether the producer-visible reference holds
// a finalized map.
func (m *Material) HasValidProducerMap() bool {
	return m.producerMap != nil && m.producerMap.IsFinalized()
}

// setProducerMap swaps the producer-visible reference, adjusting reference
// counts. Producing context only.
func (m *Material) setProducerMap(sm *ShaderMap) {
	if sm == m.producerMap {
		return
	}
	if sm != nil {
		sm.AddRef()
	}
	if m.producerMap != nil {
		m.producerMap.Release()
	}
	m.producerMap = sm
}

// SetInlineShaderMap installs a map loaded from an archive as the
// producer-visible reference, e.g. after deserialization. Producing
// context only.
func (m *Material) SetInlineShaderMap(sm *ShaderMap) {
	m.setProducerMap(sm)
	if sm != nil && sm.IsFinalized() {
		m.state = StateComplete
	}
}

// RenderingShaderMap returns the consumer-visible reference. Consuming
// context only.
func (m *Material) RenderingShaderMap() *ShaderMap { return m.consumerMap }

// setConsumerMap swaps the consumer-visible reference. Runs inside a
// RenderQueue drain only. Swapping in an unfinalized map is a hand-off
// protocol bug and panics.
func (m *Material) setConsumerMap(sm *ShaderMap) {
	if sm != nil && !sm.IsFinalized() {
		panic("shadermap: consumer-visible reference must be finalized")
	}
	if sm == m.consumerMap {
		if sm != nil {
			// The enqueue took a reference for the hand-off; drop it.
			sm.Release()
		}
		return
	}
	if m.consumerMap != nil {
		m.consumerMap.Release()
	}
	m.consumerMap = sm
}

// ArtifactForRendering resolves the map used to draw with this material at
// a feature level, substituting the fallback chain while this material has
// no complete artifact. Consuming context only.
//
// A material serves exactly one feature level, its configured one; every
// other level resolves to nil so per-level caches and texture stacks are
// only ever populated for the level actually drawn. The fallback chain is
// walked regardless of the fallbacks' own feature levels: a substitute
// renders wherever the material it stands in for would.
func (m *Material) ArtifactForRendering(level FeatureLevel) *ShaderMap {
	if level != m.cfg.Feature {
		return nil
	}
	for mat := m; mat != nil; mat = mat.cfg.Fallback {
		if sm := mat.consumerMap; sm != nil {
			return sm
		}
	}
	return nil
}

// ArtifactProvider adapts ArtifactForRendering to the evaluation layer's
// provider contract, avoiding a typed-nil artifact interface.
func (m *Material) ArtifactProvider() uniform.ArtifactProvider {
	return func(level int) uniform.Artifact {
		if sm := m.ArtifactForRendering(FeatureLevel(level)); sm != nil {
			return sm
		}
		return nil
	}
}

// AttachProxy binds a render proxy to this material's artifact chain.
// Consuming context only.
func (m *Material) AttachProxy(p *uniform.RenderProxy) {
	p.BindArtifacts(m.ArtifactProvider())
}

// releaseMaps drops both references. The consumer-side release must run on
// the consuming context; Scheduler.DestroyMaterial routes it through the
// queue.
func (m *Material) releaseProducerMap() {
	m.setProducerMap(nil)
}
