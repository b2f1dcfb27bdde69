// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package frame

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"gviegas/neo3/driver"
)

// Scheduler is the façade that owns a Pipeline and turns each
// per-frame Execute call into a correctly barriered, minimally
// synchronized sequence of GPU command buffers.
//
// A Scheduler is safe for concurrent use by multiple
// goroutines calling its lifecycle methods (SetPipeline,
// GetPipeline, ReleasePipeline, ReleaseResources), but Execute
// itself is not reentrant: a second call made while a frame is
// in flight fails with ErrPipelineBusy.
type Scheduler struct {
	gpu driver.GPU
	cfg Config

	mu       sync.Mutex
	pipeline *Pipeline
	busy     bool
	broken   bool

	table   *ResourceStateTable
	cmdPool *CmdBufferPool
	builder ScheduleBuilder
	inj     BarrierInjector
	upload  *UploadTask
	fail    *failureScreen

	setupSem  *semaphore.Weighted
	recordSem *semaphore.Weighted

	frameIndex int
}

// New creates a Scheduler that submits work to gpu.
// A zero Config selects DefaultConfig's values.
func New(gpu driver.GPU, cfg Config) *Scheduler {
	cfg = cfg.normalize()
	return &Scheduler{
		gpu:       gpu,
		cfg:       cfg,
		table:     NewResourceStateTable(),
		cmdPool:   NewCmdBufferPool(gpu),
		upload:    NewUploadTask(gpu),
		fail:      newFailureScreen(gpu, cfg.FailureColor),
		setupSem:  semaphore.NewWeighted(int64(cfg.WorkerCount)),
		recordSem: semaphore.NewWeighted(int64(cfg.MaxParallelRecord)),
	}
}

// SetPipeline validates p and installs it as the Scheduler's
// current pipeline. It fails with ErrPipelineBusy if a frame
// is in flight, or with ErrPipelineInvalid if p's DAG is
// malformed.
func (s *Scheduler) SetPipeline(p *Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrPipelineBusy
	}
	s.pipeline = p
	s.broken = false
	return nil
}

// GetPipeline returns the Scheduler's current pipeline, or
// nil if none is set.
func (s *Scheduler) GetPipeline() *Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline
}

// ReleasePipeline detaches the current pipeline. It fails with
// ErrPipelineBusy if a frame is in flight.
func (s *Scheduler) ReleasePipeline() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrPipelineBusy
	}
	s.pipeline = nil
	return nil
}

// ReleaseResources drops every cached command buffer, staging
// allocation and failure-screen resource the Scheduler holds.
// It fails with ErrPipelineBusy if a frame is in flight.
// Call this before resizing or replacing the swap chain, so
// stale back-buffer framebuffers are not reused.
func (s *Scheduler) ReleaseResources() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrPipelineBusy
	}
	s.cmdPool.Destroy()
	s.upload.Destroy()
	s.fail.destroy()
	s.table = NewResourceStateTable()
	s.cmdPool = NewCmdBufferPool(s.gpu)
	s.upload = NewUploadTask(s.gpu)
	s.fail = newFailureScreen(s.gpu, s.cfg.FailureColor)
	return nil
}

// Execute runs one frame: Setup, Schedule, Record, Assemble
// and Submit, in that order. fc.FrameIndex is overwritten with
// the Scheduler's own frame counter.
//
// On any failure, the frame's partial work is discarded, the
// ResourceStateTable is rolled back to what it was before this
// call, and a minimal command buffer that clears fc.BackBuffer
// to the configured failure color is submitted in its place,
// so the completion-channel chain stays intact for the next
// frame.
func (s *Scheduler) Execute(fc *FrameContext) error {
	s.mu.Lock()
	if s.pipeline == nil {
		s.mu.Unlock()
		return newFrameErr("no pipeline set")
	}
	if s.busy {
		s.mu.Unlock()
		return ErrPipelineBusy
	}
	if s.broken {
		s.mu.Unlock()
		return ErrSubmissionFailure
	}
	p := s.pipeline
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	fc.FrameIndex = s.frameIndex
	snapshot := s.table.Clone()

	err := s.runFrame(p, fc)
	if err != nil {
		s.table.Restore(snapshot)
		s.upload.Release()
		if ferr := s.renderFailure(fc); ferr != nil {
			return ferr
		}
		if _, ok := err.(*submissionError); ok {
			s.mu.Lock()
			s.broken = true
			s.mu.Unlock()
		}
	}
	s.frameIndex++
	return err
}

// submissionError marks ErrSubmissionFailure so Execute can
// tell it apart from an ordinary task error without relying
// on string comparison.
type submissionError struct{ err error }

func (e *submissionError) Error() string { return e.err.Error() }
func (e *submissionError) Unwrap() error { return e.err }

func (s *Scheduler) runFrame(p *Pipeline, fc *FrameContext) error {
	if err := s.setupPass(p, fc); err != nil {
		return err
	}
	sched := s.builder.Build(p)
	cbs, err := s.recordPass(p, sched, fc)
	if err != nil {
		return err
	}
	submission, err := s.assemble(p, sched, cbs, fc)
	if err != nil {
		return err
	}
	return s.submit(submission)
}

// setupPass runs every task's Setup method - plus the implicit
// upload task's - in parallel over the worker pool, bounded by
// cfg.WorkerCount. Setup has no DAG ordering requirement: every
// task declares its usage list independently of every other.
func (s *Scheduler) setupPass(p *Pipeline, fc *FrameContext) error {
	if err := s.upload.Setup(&SetupContext{FrameIndex: fc.FrameIndex, Frame: fc}); err != nil {
		return &taskError{node: -1, phase: "setup", err: err}
	}
	sortUsage(s.upload.Usage())

	n := p.NodeCount()
	g, gctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		id := NodeID(i)
		if err := s.setupSem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer s.setupSem.Release(1)
			t := p.Task(id)
			// Clear the previous frame's records of tasks
			// that embed BaseTask.
			if r, ok := t.(interface{ resetUsage() }); ok {
				r.resetUsage()
			}
			if err := t.Setup(&SetupContext{FrameIndex: fc.FrameIndex, Frame: fc}); err != nil {
				return &taskError{node: id, phase: "setup", err: err}
			}
			sortUsage(t.Usage())
			return nil
		})
	}
	return g.Wait()
}

// recordPass dispatches every task's Execute method, admitting
// a task as soon as its DAG predecessors have finished and it
// is parallel-compatible with every task currently recording,
// bounded by cfg.MaxParallelRecord.
func (s *Scheduler) recordPass(p *Pipeline, sched *Schedule, fc *FrameContext) ([]driver.CmdBuffer, error) {
	n := p.NodeCount()
	cbs := make([]driver.CmdBuffer, n)
	pred := p.predecessors()

	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	done := make([]bool, n)
	running := make(map[NodeID][]UsageRecord)

	ready := func(id NodeID) bool {
		for _, d := range pred[id] {
			if !done[d] {
				return false
			}
		}
		usage := p.Task(id).Usage()
		for other, u := range running {
			if other == id {
				continue
			}
			if !s.builder.Oracle.Compatible(usage, u) {
				return false
			}
		}
		return true
	}

	g, gctx := errgroup.WithContext(context.Background())
	for _, id := range sched.Order {
		id := id

		mu.Lock()
		for !ready(id) {
			if gctx.Err() != nil {
				mu.Unlock()
				err := g.Wait()
				s.releaseRecorded(cbs)
				return nil, err
			}
			cond.Wait()
		}
		running[id] = p.Task(id).Usage()
		mu.Unlock()

		if err := s.recordSem.Acquire(gctx, 1); err != nil {
			mu.Lock()
			delete(running, id)
			cond.Broadcast()
			mu.Unlock()
			break
		}

		g.Go(func() error {
			defer func() {
				s.recordSem.Release(1)
				mu.Lock()
				delete(running, id)
				done[id] = true
				cond.Broadcast()
				mu.Unlock()
			}()

			cb, err := s.cmdPool.Acquire()
			if err != nil {
				return &taskError{node: id, phase: "execute", err: err}
			}
			if err := cb.Begin(); err != nil {
				return &taskError{node: id, phase: "execute", err: err}
			}
			rc := &RenderContext{FrameIndex: fc.FrameIndex, Frame: fc, cb: cb}
			if err := p.Task(id).Execute(rc); err != nil {
				cb.Reset()
				return &taskError{node: id, phase: "execute", err: err}
			}
			if err := cb.End(); err != nil {
				return &taskError{node: id, phase: "execute", err: err}
			}
			cbs[id] = cb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.releaseRecorded(cbs)
		return nil, err
	}
	return cbs, nil
}

// releaseRecorded resets and returns to the pool every
// non-nil command buffer in cbs. Used to discard the
// command lists siblings already recorded by the time one
// task in the same Record pass fails: per-task allocators
// must not leak out of the pool just because the frame as a
// whole is being abandoned.
func (s *Scheduler) releaseRecorded(cbs []driver.CmdBuffer) {
	recorded := cbs[:0:0]
	for _, cb := range cbs {
		if cb != nil {
			recorded = append(recorded, cb)
		}
	}
	if len(recorded) > 0 {
		s.cmdPool.Release(recorded)
	}
}

// assemble walks the schedule in order, computing the minimal
// barrier batch that must precede each task's command buffer
// and advancing the ResourceStateTable accordingly, then
// returns the final ordered submission list (including the
// implicit upload task's buffer first).
func (s *Scheduler) assemble(p *Pipeline, sched *Schedule, cbs []driver.CmdBuffer, fc *FrameContext) ([]driver.CmdBuffer, error) {
	submission := make([]driver.CmdBuffer, 0, len(cbs)*2+2)

	uploadCBs, err := s.recordUpload(fc)
	if err != nil {
		return nil, &taskError{node: -1, phase: "assemble", err: err}
	}
	submission = append(submission, uploadCBs...)

	// Every task's barrier batch is computed in schedule
	// order, regardless of Schedule.Compatible: a compatible
	// pair shares the same FirstState on every resource they
	// have in common (the oracle requires it), so the first
	// task's Inject call already leaves the table exactly
	// where the second one needs it, and Inject's own
	// no-redundant-barrier rule naturally emits nothing for
	// the second. Compatible only describes what was true
	// for Record-pass dispatch, not what Assemble must do.
	for _, id := range sched.Order {
		usage := p.Task(id).Usage()
		batch := s.inj.Inject(usage, s.table)
		if !batch.Empty() {
			barrierCB, err := s.recordBarrierCB(batch)
			if err != nil {
				return nil, &taskError{node: id, phase: "assemble", err: err}
			}
			submission = append(submission, barrierCB)
		}
		submission = append(submission, cbs[id])
	}
	return submission, nil
}

// recordUpload computes and records the barrier batch for the
// implicit upload task's usage list, then records and returns
// the command buffer that performs the actual copies - the
// upload task is not part of the user-supplied Pipeline's
// schedule, so it is recorded here rather than in recordPass.
func (s *Scheduler) recordUpload(fc *FrameContext) ([]driver.CmdBuffer, error) {
	usage := s.upload.Usage()
	if len(usage) == 0 {
		return nil, nil
	}

	var cbs []driver.CmdBuffer

	batch := s.inj.Inject(usage, s.table)
	if !batch.Empty() {
		barrierCB, err := s.recordBarrierCB(batch)
		if err != nil {
			return nil, err
		}
		cbs = append(cbs, barrierCB)
	}

	cb, err := s.cmdPool.Acquire()
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(); err != nil {
		return nil, err
	}
	rc := &RenderContext{FrameIndex: fc.FrameIndex, Frame: fc, cb: cb}
	if err := s.upload.Execute(rc); err != nil {
		cb.Reset()
		return nil, err
	}
	if err := cb.End(); err != nil {
		return nil, err
	}
	cbs = append(cbs, cb)

	return cbs, nil
}

// recordBarrierCB records a Batch's transitions and barriers into
// a dedicated command buffer, ready for submission immediately
// before the task it guards.
func (s *Scheduler) recordBarrierCB(batch Batch) (driver.CmdBuffer, error) {
	cb, err := s.cmdPool.Acquire()
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(); err != nil {
		return nil, err
	}
	if len(batch.Transitions) > 0 {
		cb.Transition(batch.Transitions)
	}
	if len(batch.Barriers) > 0 {
		cb.Barrier(batch.Barriers)
	}
	if err := cb.End(); err != nil {
		return nil, err
	}
	return cb, nil
}

// submit commits the submission list to the GPU and blocks
// until it completes, then returns every command buffer in it
// to the pool and releases the upload task's staging space -
// the same ordering engine/staging.go's commit uses: release
// only after the GPU has actually signaled completion.
func (s *Scheduler) submit(submission []driver.CmdBuffer) error {
	if len(submission) == 0 {
		return nil
	}
	ch := make(chan error, 1)
	s.gpu.Commit(submission, ch)
	err := <-ch
	s.cmdPool.Release(submission)
	s.upload.Release()
	if err != nil {
		return &submissionError{err: err}
	}
	return nil
}

// renderFailure records and submits the failure screen's clear
// command buffer for the current frame, blocking until the GPU
// has signaled completion so the command buffer can be reused.
func (s *Scheduler) renderFailure(fc *FrameContext) error {
	cb, err := s.cmdPool.Acquire()
	if err != nil {
		return err
	}
	if err := s.fail.render(cb, fc.BackBuffer, fc.BackBufferFmt, fc.BackBufferSize); err != nil {
		return err
	}
	ch := make(chan error, 1)
	s.gpu.Commit([]driver.CmdBuffer{cb}, ch)
	err = <-ch
	s.cmdPool.Release([]driver.CmdBuffer{cb})
	return err
}
