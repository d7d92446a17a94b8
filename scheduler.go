package shadermap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gogpu/shadermap/backend"
	"github.com/gogpu/shadermap/uniform"
)

// compileJob is one in-flight compile for a fingerprint. Materials with an
// equal fingerprint join the job instead of starting a duplicate; all
// dependents receive the same finalized artifact.
type compileJob struct {
	id      uuid.UUID
	fp      *ShaderMapID
	digest  Digest
	targets []backend.Target

	// owner is the material translation runs against. It stays fixed for
	// the life of the job even if the owning material later detaches:
	// equal fingerprints translate identically, so any dependent's
	// translation serves all of them. dependents holds every material
	// attached to the job, owner included at creation.
	owner      *Material
	dependents []*Material

	// target is the artifact under construction. The job holds one
	// reference until finalization, so the artifact cannot be destroyed
	// while the flight is active.
	target *ShaderMap

	ctx    context.Context
	cancel context.CancelFunc

	done chan struct{}

	// finalized guards against double finalization: a job can be reached
	// both through the finished list and through a direct wait in
	// FinishCompilation.
	finalized atomic.Bool

	// Results, written by the worker before done closes, read only
	// after done closes.
	programs []backend.Program
	exprs    *uniform.ExpressionSet
	err      error
}

func (j *compileJob) cancelled() bool { return j.ctx.Err() != nil }

// Scheduler resolves shader maps for materials: a cached complete artifact
// is preferred, an equal-fingerprint in-flight job is joined, and otherwise
// a new compile is started according to the configured CompileMode.
//
// CacheShaders, ProcessFinished, FinishCompilation, CancelCompilation,
// Invalidate and DestroyMaterial are producing-context operations. The
// compile jobs themselves run on an internal worker pool; their completion
// is observed through ProcessFinished, never by a worker writing shared
// state directly.
type Scheduler struct {
	cfg        Config
	types      *TypeRegistry
	translator Translator
	backend    backend.Backend

	registry *Registry
	queue    *RenderQueue
	eval     *uniform.Evaluator

	mu       sync.Mutex
	jobs     map[Digest]*compileJob
	finished []*compileJob
	sem      chan struct{}

	defaultMaterial *Material
}

// NewScheduler creates a scheduler with its own artifact registry, render
// queue and uniform evaluator.
func NewScheduler(cfg Config, types *TypeRegistry, translator Translator, bk backend.Backend) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if types == nil {
		return nil, fmt.Errorf("shadermap: type registry is required")
	}
	if cfg.Mode != ArchiveOnly {
		if translator == nil {
			return nil, fmt.Errorf("shadermap: translator is required in %s mode", cfg.Mode)
		}
		if bk == nil {
			return nil, fmt.Errorf("shadermap: backend is required in %s mode", cfg.Mode)
		}
	}
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:        cfg,
		types:      types,
		translator: translator,
		backend:    bk,
		registry:   NewRegistry(),
		queue:      NewRenderQueue(),
		eval:       uniform.NewEvaluator(cfg.DeferUniformCaching),
		jobs:       make(map[Digest]*compileJob),
		sem:        make(chan struct{}, cfg.Workers),
	}, nil
}

// Registry returns the fingerprint-to-artifact registry.
func (s *Scheduler) Registry() *Registry { return s.registry }

// RenderQueue returns the producer-to-consumer hand-off queue.
func (s *Scheduler) RenderQueue() *RenderQueue { return s.queue }

// Evaluator returns the uniform-expression evaluator service.
func (s *Scheduler) Evaluator() *uniform.Evaluator { return s.eval }

// SetDefaultMaterial designates the process-wide fallback material.
func (s *Scheduler) SetDefaultMaterial(m *Material) {
	s.defaultMaterial = m
}

// DefaultMaterial returns the designated fallback material, or nil.
func (s *Scheduler) DefaultMaterial() *Material { return s.defaultMaterial }

// CacheShaders resolves a shader map for the material: use a complete
// registered artifact, join an equal-fingerprint in-flight compile, or
// start a new one. Asynchronous unless the mode or the material forces a
// blocking compile.
//
// On return the material is Complete (artifact published), CompileInFlight
// (rendering uses the fallback until the job lands), NoArtifact
// (ArchiveOnly miss, fallback substituted) or Failed (synchronous compile
// error). Only unrecoverable conditions return an error.
func (s *Scheduler) CacheShaders(m *Material) error {
	fp := s.types.BuildFingerprint(m, s.cfg.Platform)
	digest := fp.Digest()
	targets := s.types.CompileTargets(fp)

	// Prefer a complete, render-valid cached artifact. An artifact that
	// is registered but incomplete for these targets counts as absent.
	if sm := s.registry.Find(digest); sm != nil && sm.IsCompleteFor(targets) {
		s.adopt(m, sm)
		Logger().Debug("shader map cache hit",
			"material", m.Name(), "fingerprint", digest.String())
		return nil
	}

	// An inline-loaded map that matches and is complete can be used
	// directly; register it so equal materials share it.
	if sm := m.ProducerShaderMap(); sm != nil && sm.IsFinalized() &&
		sm.Digest() == digest && sm.IsCompleteFor(targets) {
		shared := s.registry.Register(sm)
		s.adopt(m, shared)
		return nil
	}

	if s.cfg.Mode == ArchiveOnly {
		return s.archiveMiss(m, digest)
	}

	blocking := s.cfg.Mode == LiveSync || m.RequiresSyncCompile()

	s.mu.Lock()
	if job, ok := s.jobs[digest]; ok {
		// Join the in-flight compile instead of duplicating it.
		job.dependents = append(job.dependents, m)
		s.mu.Unlock()
		m.setProducerMap(nil)
		m.state = StateCompileInFlight
		Logger().Debug("joined in-flight compile",
			"material", m.Name(), "fingerprint", digest.String())
		if blocking {
			return s.finalizeJob(job)
		}
		return nil
	}
	job := s.newJob(fp, digest, targets, m)
	s.jobs[digest] = job
	s.mu.Unlock()

	m.setProducerMap(nil)
	m.state = StateCompileInFlight
	Logger().Info("compiling shader map",
		"material", m.Name(), "fingerprint", digest.String(),
		"targets", len(targets), "blocking", blocking)

	if blocking {
		s.runJob(job)
		return s.finalizeJob(job)
	}

	go func() {
		s.sem <- struct{}{}
		s.runJob(job)
		<-s.sem
		s.mu.Lock()
		s.finished = append(s.finished, job)
		s.mu.Unlock()
	}()
	return nil
}

// adopt publishes an already-complete artifact to a material.
func (s *Scheduler) adopt(m *Material, sm *ShaderMap) {
	m.setProducerMap(sm)
	m.state = StateComplete
	m.compileErrs = nil
	s.publish(m, sm)
}

// archiveMiss handles ArchiveOnly mode finding no complete artifact.
func (s *Scheduler) archiveMiss(m *Material, digest Digest) error {
	m.setProducerMap(nil)
	m.state = StateNoArtifact
	if m.IsRequired() {
		return fmt.Errorf("shadermap: material %q (fingerprint %s): %w",
			m.Name(), digest.String(), ErrRequiredArtifactMissing)
	}
	Logger().Warn("no archived shader map, substituting fallback",
		"material", m.Name(), "fingerprint", digest.String())
	return nil
}

func (s *Scheduler) newJob(fp *ShaderMapID, digest Digest, targets []backend.Target, owner *Material) *compileJob {
	ctx, cancel := context.WithCancel(context.Background())
	return &compileJob{
		id:         uuid.New(),
		fp:         fp,
		digest:     digest,
		targets:    targets,
		owner:      owner,
		dependents: []*Material{owner},
		target:     NewShaderMap(fp, s.cfg.Platform),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// runJob executes one compile attempt: exactly one translator call, then
// one backend call for the job's target set.
func (s *Scheduler) runJob(job *compileJob) {
	defer close(job.done)

	if job.cancelled() {
		job.err = ErrJobCancelled
		return
	}

	tr, err := s.translator.Translate(job.owner, s.cfg.Platform)
	if err != nil {
		job.err = &CompileError{
			Material: job.owner.Name(),
			Platform: s.cfg.Platform,
			Errs:     []string{err.Error()},
			cause:    err,
		}
		return
	}

	defines := EnvironmentDefines(job.owner, tr)
	programs, err := s.backend.Compile(job.ctx, tr.Source, defines, job.targets)
	if err != nil {
		if job.cancelled() {
			job.err = ErrJobCancelled
			return
		}
		job.err = &CompileError{
			Material: job.owner.Name(),
			Platform: s.cfg.Platform,
			Errs:     []string{err.Error()},
			cause:    err,
		}
		return
	}

	job.programs = programs
	job.exprs = tr.Expressions
}

// ProcessFinished finalizes every compile job whose worker has completed:
// successful artifacts are registered and handed off to their dependents'
// consumer-visible references, failures clear the producer-visible
// reference so the fallback renders instead. Producing context only.
//
// The returned error aggregates per-job failures; a failed designated
// default material yields ErrDefaultMaterialCompile, which is fatal.
func (s *Scheduler) ProcessFinished() error {
	s.mu.Lock()
	var batch []*compileJob
	pending := s.finished[:0]
	for _, job := range s.finished {
		select {
		case <-job.done:
			batch = append(batch, job)
		default:
			pending = append(pending, job)
		}
	}
	s.finished = pending
	s.mu.Unlock()

	var errs []error
	for _, job := range batch {
		if err := s.finalizeJob(job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// finalizeJob consumes a completed job's outputs on the producing context.
// Idempotent: only the first call for a job does anything.
func (s *Scheduler) finalizeJob(job *compileJob) error {
	<-job.done
	if !job.finalized.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	if s.jobs[job.digest] == job {
		delete(s.jobs, job.digest)
	}
	dependents := job.dependents
	job.dependents = nil
	s.mu.Unlock()

	job.cancel()

	if errors.Is(job.err, ErrJobCancelled) || (job.err == nil && len(dependents) == 0) {
		// Cancelled or fully detached: discard the outputs.
		job.target.Release()
		for _, m := range dependents {
			m.state = StateNoArtifact
		}
		return nil
	}

	if job.err != nil {
		var fatal error
		for _, m := range dependents {
			m.state = StateFailed
			var ce *CompileError
			if errors.As(job.err, &ce) {
				m.compileErrs = ce.Errs
			}
			m.setProducerMap(nil)
			Logger().Warn("shader map compile failed, substituting fallback",
				"material", m.Name(), "error", job.err.Error())
			if m.IsDefault() {
				fatal = fmt.Errorf("%w: %v", ErrDefaultMaterialCompile, job.err)
			}
		}
		job.target.Release()
		if fatal != nil {
			return fatal
		}
		return job.err
	}

	sm := job.target
	for _, p := range job.programs {
		sm.AddProgram(p)
	}
	sm.SetExpressions(job.exprs)
	sm.Finalize()

	registered := s.registry.Register(sm)
	if registered != sm {
		// A concurrent job for the same fingerprint won the race;
		// share its artifact and discard ours.
		sm.Release()
		sm = registered
	} else {
		// Transfer the job's construction reference to the adopters
		// below; the registry holds its own.
		defer sm.Release()
	}

	for _, m := range dependents {
		m.setProducerMap(sm)
		m.state = StateComplete
		m.compileErrs = nil
		s.publish(m, sm)
	}

	Logger().Info("shader map compile finished",
		"fingerprint", job.digest.String(),
		"programs", len(job.programs),
		"materials", len(dependents))
	return nil
}

// publish hands a finalized artifact off to the material's consumer-visible
// reference through the render queue. The queue entry owns one reference
// until the swap runs.
func (s *Scheduler) publish(m *Material, sm *ShaderMap) {
	sm.AddRef()
	s.queue.Enqueue(func() {
		m.setConsumerMap(sm)
	})
}

// jobOf returns the in-flight job a material is attached to, or nil.
func (s *Scheduler) jobOf(m *Material) *compileJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		for _, dep := range job.dependents {
			if dep == m {
				return job
			}
		}
	}
	return nil
}

// IsCompilationFinished reports whether the material has no outstanding
// compile job.
func (s *Scheduler) IsCompilationFinished(m *Material) bool {
	return s.jobOf(m) == nil
}

// FinishCompilation blocks until the material's outstanding job (if any)
// completes and is finalized, then finalizes any other finished jobs.
// Producing context only.
func (s *Scheduler) FinishCompilation(m *Material) error {
	if job := s.jobOf(m); job != nil {
		if err := s.finalizeJob(job); err != nil {
			return err
		}
	}
	return s.ProcessFinished()
}

// FinishAllCompilation blocks until every in-flight job completes, then
// finalizes them. Producing context only.
func (s *Scheduler) FinishAllCompilation() error {
	for {
		s.mu.Lock()
		var job *compileJob
		for _, j := range s.jobs {
			job = j
			break
		}
		s.mu.Unlock()
		if job == nil {
			return s.ProcessFinished()
		}
		if err := s.finalizeJob(job); err != nil {
			return err
		}
	}
}

// CancelCompilation detaches the material from its in-flight job. When the
// last dependent detaches the job itself is cancelled and its outputs are
// discarded at finalization. The material reverts to NoArtifact and never
// references the half-built artifact.
func (s *Scheduler) CancelCompilation(m *Material) {
	s.mu.Lock()
	for _, job := range s.jobs {
		for i, dep := range job.dependents {
			if dep != m {
				continue
			}
			job.dependents = append(job.dependents[:i], job.dependents[i+1:]...)
			if len(job.dependents) == 0 {
				job.cancel()
			}
			break
		}
	}
	s.mu.Unlock()
	if m.state == StateCompileInFlight {
		m.state = StateNoArtifact
	}
}

// Invalidate transitions a material back to NoArtifact after an edit or a
// settings change: the producer-visible reference is dropped immediately
// and the consumer-visible reference is cleared through the queue, before
// any new fingerprint is requested. Producing context only.
func (s *Scheduler) Invalidate(m *Material) {
	s.CancelCompilation(m)
	m.setProducerMap(nil)
	m.state = StateNoArtifact
	m.compileErrs = nil
	s.queue.Enqueue(func() {
		m.setConsumerMap(nil)
	})
}

// DestroyMaterial detaches the material from any in-flight compile and
// drops both artifact references. Producing context only; the consumer
// side releases on the next drain.
func (s *Scheduler) DestroyMaterial(m *Material) {
	s.CancelCompilation(m)
	m.releaseProducerMap()
	s.queue.Enqueue(func() {
		m.setConsumerMap(nil)
	})
}

// DrainFrame runs one consuming-context frame boundary: pending hand-offs
// first, then the deferred uniform recache pass. Consuming context only.
func (s *Scheduler) DrainFrame() {
	s.queue.DrainFrame()
	s.eval.Drain()
}

// Shutdown cancels all in-flight jobs, waits for their workers, drains the
// hand-off queue and clears the registry.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	jobs := make([]*compileJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		j.cancel()
		jobs = append(jobs, j)
	}
	s.mu.Unlock()
	for _, j := range jobs {
		_ = s.finalizeJob(j)
	}
	_ = s.ProcessFinished()
	s.queue.DrainFrame()
	s.registry.Clear()
}
