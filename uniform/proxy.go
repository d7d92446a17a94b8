package uniform

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// NumFeatureLevels is the number of feature levels a proxy caches for.
const NumFeatureLevels = 4

// Artifact is the narrow view of a finalized shader map needed for
// evaluation: its uniform-expression set. The root package's ShaderMap
// implements it.
type Artifact interface {
	Expressions() *ExpressionSet
}

// ArtifactProvider resolves the artifact currently in use for rendering at
// a feature level, already including any fallback-material substitution.
// Returning nil means nothing can be evaluated for that level yet.
type ArtifactProvider func(level int) Artifact

// ExpressionCache holds the evaluated state of one proxy at one feature
// level: the packed parameter buffer, resolved texture bindings and dynamic
// stack allocations, plus the artifact they were evaluated against.
//
// Invariant: when Valid() is true the buffer reflects the artifact and the
// parameter values as of the last evaluation. Any event that could change
// either clears validity before the next read.
type ExpressionCache struct {
	valid    bool
	artifact Artifact
	buffer   []byte
	textures []*Texture
	stacks   []*AllocatedStack
	owned    []*AllocatedStack
}

// Valid reports whether the cache is up to date.
func (c *ExpressionCache) Valid() bool { return c.valid }

// Buffer returns the packed parameter buffer from the last evaluation.
func (c *ExpressionCache) Buffer() []byte { return c.buffer }

// Textures returns the standalone texture bindings; entries may be nil.
func (c *ExpressionCache) Textures() []*Texture { return c.textures }

// Stacks returns the dynamic texture stack allocations, one entry per
// declared stack; entries may be nil.
func (c *ExpressionCache) Stacks() []*AllocatedStack { return c.stacks }

// Artifact returns the artifact the cache was last evaluated against.
func (c *ExpressionCache) Artifact() Artifact { return c.artifact }

// reset drops validity and releases owned stack allocations. External
// allocations are only dereferenced. When recreateBuffer is set the packed
// buffer is dropped too (required when the artifact's layout changed).
func (c *ExpressionCache) reset(alloc StackAllocator, recreateBuffer bool) {
	c.valid = false
	c.artifact = nil
	if alloc != nil {
		for _, s := range c.owned {
			alloc.Release(s)
		}
		alloc.RemoveDestroyedCallbacks(c)
	}
	c.owned = nil
	c.stacks = nil
	c.textures = nil
	if recreateBuffer {
		c.buffer = nil
	}
}

// RenderProxy is the consumer-side handle a renderable entity holds on a
// material. It owns one ExpressionCache per feature level and the parameter
// state the expressions are evaluated against.
//
// All methods are consuming-context only unless documented otherwise.
type RenderProxy struct {
	id     uuid.UUID
	name   string
	params *MapSource
	source ParameterSource
	alloc  StackAllocator

	provider ArtifactProvider
	caches   [NumFeatureLevels]ExpressionCache

	eval     *Evaluator
	released bool
}

// NewProxy creates a proxy with an empty MapSource as its parameter state.
// Register it with an Evaluator before use.
func NewProxy(name string, alloc StackAllocator) *RenderProxy {
	params := NewMapSource()
	return &RenderProxy{
		id:     uuid.New(),
		name:   name,
		params: params,
		source: params,
		alloc:  alloc,
	}
}

// ID returns the proxy's stable identity.
func (p *RenderProxy) ID() uuid.UUID { return p.id }

// Name returns the proxy's debug name.
func (p *RenderProxy) Name() string { return p.name }

// Params returns the proxy's base parameter state.
func (p *RenderProxy) Params() *MapSource { return p.params }

// Source returns the effective parameter source, including any wrappers
// installed with SetSource.
func (p *RenderProxy) Source() ParameterSource { return p.source }

// SetSource replaces the effective parameter source, typically with a
// wrapper such as ColoredSource delegating to Params(). Invalidates the
// caches.
func (p *RenderProxy) SetSource(src ParameterSource) {
	if src == nil {
		src = p.params
	}
	p.source = src
	p.Invalidate(false)
}

// BindArtifacts installs the provider resolving the artifact to evaluate
// against per feature level. Invalidates the caches.
func (p *RenderProxy) BindArtifacts(provider ArtifactProvider) {
	p.provider = provider
	p.Invalidate(false)
}

// SetVector mutates a vector parameter and marks the caches stale.
func (p *RenderProxy) SetVector(name string, v mgl32.Vec4) {
	p.params.SetVector(name, v)
	p.Invalidate(false)
}

// SetScalar mutates a scalar parameter and marks the caches stale.
func (p *RenderProxy) SetScalar(name string, v float32) {
	p.params.SetScalar(name, v)
	p.Invalidate(false)
}

// SetTexture mutates a texture parameter and marks the caches stale.
func (p *RenderProxy) SetTexture(name string, t *Texture) {
	p.params.SetTexture(name, t)
	p.Invalidate(false)
}

// Cache returns the expression cache for a feature level. The returned
// cache is only coherent after the frame's deferred drain has completed.
func (p *RenderProxy) Cache(level int) *ExpressionCache {
	return &p.caches[level]
}

// Invalidate clears validity on every feature level's cache and enqueues
// the proxy for deferred recache. recreateBuffer additionally drops the
// packed buffers, required when the artifact is being recompiled and its
// layout may change.
func (p *RenderProxy) Invalidate(recreateBuffer bool) {
	if p.released {
		return
	}
	for i := range p.caches {
		p.caches[i].reset(p.alloc, recreateBuffer)
	}
	if p.eval != nil {
		p.eval.enqueue(p)
	}
}

// EvaluateIfStale recomputes the cache for one feature level if and only if
// it is invalid or was evaluated against a different artifact than the one
// currently in use. A no-op when no provider or artifact is available.
func (p *RenderProxy) EvaluateIfStale(level int) {
	if p.released || p.provider == nil || level < 0 || level >= NumFeatureLevels {
		return
	}
	art := p.provider(level)
	if art == nil {
		return
	}
	c := &p.caches[level]
	if c.valid && c.artifact == art {
		return
	}
	p.evaluate(c, art)
}

// evaluate recomputes one cache against art. Validity is published last so
// a reader never observes a valid cache with stale contents.
func (p *RenderProxy) evaluate(c *ExpressionCache, art Artifact) {
	set := art.Expressions()

	c.reset(p.alloc, false)

	if len(set.Stacks) > 0 {
		c.stacks = make([]*AllocatedStack, len(set.Stacks))
		for i, st := range set.Stacks {
			stack, owned := p.allocateStack(c, st)
			c.stacks[i] = stack
			if owned && stack != nil {
				c.owned = append(c.owned, stack)
			}
		}
	}

	c.textures = set.EvaluateTextures(p.source)

	size := set.BufferSize()
	if cap(c.buffer) < size {
		c.buffer = make([]byte, size)
	}
	c.buffer = c.buffer[:size]
	set.FillBuffer(p.source, c.buffer)

	c.artifact = art
	c.valid = true
}

// allocateStack resolves one declared texture stack. Preallocated stacks
// are looked up from the texture system and never owned; regular stacks are
// allocated from the union of the resolved virtual layers. Layers resolving
// to no texture yield empty bindings; a stack with no valid layer yields no
// allocation at all.
func (p *RenderProxy) allocateStack(c *ExpressionCache, st TextureStack) (*AllocatedStack, bool) {
	if len(st.Layers) == 0 {
		return nil, false
	}

	if st.Preallocated {
		tex := st.Layers[0].EvaluateTexture(p.source)
		if tex == nil {
			return nil, false
		}
		stack := p.alloc.Preallocated(tex)
		if stack != nil {
			p.watchTexture(c, tex)
		}
		return stack, false
	}

	numLayers := len(st.Layers)
	if numLayers > MaxStackLayers {
		logger().Warn("texture stack exceeds max layers, truncating",
			"proxy", p.name, "layers", numLayers, "max", MaxStackLayers)
		numLayers = MaxStackLayers
	}
	desc := StackDesc{NumLayers: numLayers}
	found := false
	for i, layer := range st.Layers[:numLayers] {
		tex := layer.EvaluateTexture(p.source)
		if tex == nil || !tex.Virtual {
			continue
		}
		if found && (desc.TileSize != tex.TileSize || desc.TileBorder != tex.TileBorder) {
			logger().Warn("texture stack layer tile parameters mismatch",
				"proxy", p.name, "texture", tex.Name)
			continue
		}
		desc.TileSize = tex.TileSize
		desc.TileBorder = tex.TileBorder
		desc.Width = max(desc.Width, tex.Width)
		desc.Height = max(desc.Height, tex.Height)
		desc.Producers[i] = tex.ID
		p.watchTexture(c, tex)
		found = true
	}
	if !found {
		return nil, false
	}
	return p.alloc.Allocate(desc), true
}

// watchTexture registers for the texture's destruction so the referencing
// cache is invalidated when the streaming system drops the resource.
func (p *RenderProxy) watchTexture(c *ExpressionCache, tex *Texture) {
	p.alloc.AddDestroyedCallback(tex.ID, c, func() {
		p.Invalidate(false)
	})
}

// Release destroys the proxy: caches are reset, owned allocations and
// destroyed-texture callbacks dropped, and the proxy removed from its
// evaluator's registry and pending queue. Further use is a no-op.
func (p *RenderProxy) Release() {
	if p.released {
		return
	}
	for i := range p.caches {
		p.caches[i].reset(p.alloc, true)
	}
	if p.eval != nil {
		p.eval.unregister(p)
	}
	p.released = true
}

// Released reports whether Release has run.
func (p *RenderProxy) Released() bool { return p.released }
