package shadermap

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/shadermap/backend"
)

// ShaderType describes one compilable shader kind. The ShouldCompile
// predicate belongs to the expression-graph collaborators; nil means
// "compile for every material".
type ShaderType struct {
	Name string
	// Stage is the pipeline stage the type compiles for. Vertex-stage
	// types compile once per vertex factory; other stages compile once.
	Stage backend.Stage
	// Permutations is the number of static permutations; 0 means 1.
	Permutations int32
	// ShouldCompile decides whether the type applies to a material on a
	// platform.
	ShouldCompile func(m *Material, p Platform) bool
}

func (t *ShaderType) permutationCount() int32 {
	if t.Permutations <= 0 {
		return 1
	}
	return t.Permutations
}

func (t *ShaderType) shouldCompile(m *Material, p Platform) bool {
	return t.ShouldCompile == nil || t.ShouldCompile(m, p)
}

// VertexFactoryType describes one mesh input layout shaders can bind.
type VertexFactoryType struct {
	Name          string
	ShouldCompile func(m *Material, p Platform) bool
}

func (t *VertexFactoryType) shouldCompile(m *Material, p Platform) bool {
	return t.ShouldCompile == nil || t.ShouldCompile(m, p)
}

// PipelineType groups shader types into one linked pipeline. A pipeline is
// part of a fingerprint only when every stage's predicate passes.
type PipelineType struct {
	Name   string
	Stages []string // shader type names
}

// TypeRegistry is the process-scoped catalog of shader, vertex-factory and
// pipeline types. It is populated at renderer startup and read-only after;
// registration and enumeration are safe to interleave regardless.
type TypeRegistry struct {
	mu        sync.RWMutex
	shaders   map[string]*ShaderType
	factories map[string]*VertexFactoryType
	pipelines map[string]*PipelineType
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		shaders:   make(map[string]*ShaderType),
		factories: make(map[string]*VertexFactoryType),
		pipelines: make(map[string]*PipelineType),
	}
}

// RegisterShaderType adds a shader type. Duplicate names are rejected.
func (r *TypeRegistry) RegisterShaderType(t *ShaderType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shaders[t.Name]; ok {
		return fmt.Errorf("shadermap: shader type %q already registered", t.Name)
	}
	r.shaders[t.Name] = t
	return nil
}

// RegisterVertexFactory adds a vertex factory type. Duplicate names are
// rejected.
func (r *TypeRegistry) RegisterVertexFactory(t *VertexFactoryType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[t.Name]; ok {
		return fmt.Errorf("shadermap: vertex factory %q already registered", t.Name)
	}
	r.factories[t.Name] = t
	return nil
}

// RegisterPipeline adds a pipeline type. Every referenced stage must be a
// registered shader type.
func (r *TypeRegistry) RegisterPipeline(t *PipelineType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pipelines[t.Name]; ok {
		return fmt.Errorf("shadermap: pipeline %q already registered", t.Name)
	}
	for _, stage := range t.Stages {
		if _, ok := r.shaders[stage]; !ok {
			return fmt.Errorf("shadermap: pipeline %q references unregistered shader type %q", t.Name, stage)
		}
	}
	r.pipelines[t.Name] = t
	return nil
}

// ShaderTypeByName looks up a registered shader type.
func (r *TypeRegistry) ShaderTypeByName(name string) (*ShaderType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.shaders[name]
	return t, ok
}

// BuildFingerprint derives the shader map fingerprint for a material on a
// platform: every shader type × permutation and vertex factory whose
// predicate passes, plus every pipeline whose full stage set passes. The
// lists come out sorted by stable name.
//
// A material with broken content still produces a fingerprint from
// whatever dependency set is visible; downstream lookup failure then reads
// as "shader map incomplete", never as a builder error.
func (r *TypeRegistry) BuildFingerprint(m *Material, platform Platform) *ShaderMapID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := &ShaderMapID{
		ContentHash: m.ContentHash(),
		Usage:       m.Usage(),
		Quality:     m.Quality(),
		Feature:     m.FeatureLevel(),
		TextureHash: HashStrings(m.ReferencedTextures()),
	}

	for _, t := range r.shaders {
		if !t.shouldCompile(m, platform) {
			continue
		}
		for perm := int32(0); perm < t.permutationCount(); perm++ {
			id.ShaderDependencies = append(id.ShaderDependencies, ShaderDependency{
				ShaderType:  t.Name,
				Permutation: perm,
			})
		}
	}
	for _, t := range r.factories {
		if t.shouldCompile(m, platform) {
			id.VertexFactories = append(id.VertexFactories, t.Name)
		}
	}
	for _, t := range r.pipelines {
		if r.pipelineCompiles(t, m, platform) {
			id.Pipelines = append(id.Pipelines, t.Name)
		}
	}

	id.normalize()
	return id
}

// pipelineCompiles reports whether every stage of a pipeline passes its
// predicate. Caller holds the read lock.
func (r *TypeRegistry) pipelineCompiles(t *PipelineType, m *Material, platform Platform) bool {
	if len(t.Stages) == 0 {
		return false
	}
	for _, stage := range t.Stages {
		st, ok := r.shaders[stage]
		if !ok || !st.shouldCompile(m, platform) {
			return false
		}
	}
	return true
}

// CompileTargets expands a fingerprint into the concrete compile targets a
// backend must produce: vertex-stage types compile once per vertex factory,
// all other stages compile once. Output order is deterministic.
func (r *TypeRegistry) CompileTargets(id *ShaderMapID) []backend.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var targets []backend.Target
	for _, dep := range id.ShaderDependencies {
		st, ok := r.shaders[dep.ShaderType]
		if !ok {
			// Type vanished since fingerprinting; the map will simply
			// come out incomplete for it.
			continue
		}
		if st.Stage == backend.StageVertex && len(id.VertexFactories) > 0 {
			for _, vf := range id.VertexFactories {
				targets = append(targets, backend.Target{
					ShaderType:    dep.ShaderType,
					Permutation:   dep.Permutation,
					VertexFactory: vf,
					Stage:         st.Stage,
				})
			}
			continue
		}
		targets = append(targets, backend.Target{
			ShaderType:  dep.ShaderType,
			Permutation: dep.Permutation,
			Stage:       st.Stage,
		})
	}

	sort.Slice(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if a.ShaderType != b.ShaderType {
			return a.ShaderType < b.ShaderType
		}
		if a.Permutation != b.Permutation {
			return a.Permutation < b.Permutation
		}
		return a.VertexFactory < b.VertexFactory
	})
	return targets
}
