// Package shadermap provides the shader-variant compilation cache and the
// per-draw uniform-parameter evaluation layer of a real-time material system.
//
// # Overview
//
// The package answers two questions for a renderer:
//
//  1. Does a compiled, platform-specific shader program set already exist for
//     a material configuration, and if not, how is one built asynchronously
//     without stalling rendering?
//  2. Given a material and its current parameter values, what is the packed
//     uniform buffer and the set of texture bindings for this frame's draws?
//
// # Quick Start
//
//	types := shadermap.NewTypeRegistry()
//	types.RegisterShaderType(&shadermap.ShaderType{Name: "BasePass", Stage: backend.StageFragment})
//	types.RegisterVertexFactory(&shadermap.VertexFactoryType{Name: "LocalVertexFactory"})
//
//	sched, err := shadermap.NewScheduler(shadermap.Config{Mode: shadermap.LiveAsync},
//	    types, translator, nagaBackend)
//
//	mat := shadermap.NewMaterial("Wood", cfg)
//	if err := sched.CacheShaders(mat); err != nil { ... }
//
//	// Per frame: finalize finished compiles on the producing side,
//	// then drain the hand-off queue on the consuming side.
//	sched.ProcessFinished()
//	sched.DrainFrame()
//
// # Architecture
//
// The module is organized into:
//   - Root package: material identity (fingerprints), the ShaderMap artifact
//     and its registry, the compile scheduler, and the producer/consumer
//     hand-off queue.
//   - uniform: uniform-expression sets, per-proxy evaluation caches, and the
//     deferred recache queue.
//   - archive: the persisted container format for finalized shader maps.
//   - backend: shader compile backends (backend/naga compiles WGSL).
//   - cache: the sharded concurrent map shared by registry and backends.
//
// # Concurrency
//
// Two execution contexts cooperate: the producing context (loading, authoring,
// compile kick-off) and the consuming context (rendering). Each context owns
// one shader-map reference per material. The consumer-visible reference is
// only ever swapped to a finalized artifact, through the single-direction
// RenderQueue, so the consumer never observes a half-built artifact.
package shadermap
