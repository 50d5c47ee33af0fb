// Package reactive is a small transparent reactive runtime: atoms record who
// reads them, reactions re-run when an atom they read reports a change and
// batches coalesce changes so every stale reaction runs once per batch.
//
// A Runtime also owns a next-tick task queue. Tasks never run on their own;
// the goroutine that drives the Runtime calls Tick or RunUntilIdle. A Runtime
// is not safe for concurrent use, except for NextTick and Task.Cancel, which
// other goroutines use to hand work to the driving goroutine.
package reactive

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrCycle is reported when reactions keep invalidating each other for more
// than the configured number of passes.
var ErrCycle = errors.New("reaction cycle detected")

const defaultMaxIterations = 100

var runtimeIDs atomic.Uint64

// Runtime schedules reactions and next-tick tasks.
type Runtime struct {
	id            uint64
	logger        *slog.Logger
	onError       func(*Reaction, error)
	maxIterations int

	batchDepth int
	running    bool
	pending    []*Reaction
	tracking   *Reaction

	// mu guards tasks and their state. It is the only state of a Runtime
	// that other goroutines may touch.
	mu    sync.Mutex
	tasks []*Task
}

// NewRuntime creates a Runtime configured by opts.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		id:            runtimeIDs.Add(1),
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = slog.Default()
	}
	rt.logger = rt.logger.With("runtime", rt.id)
	if rt.onError == nil {
		rt.onError = rt.logError
	}
	return rt
}

func (rt *Runtime) logError(r *Reaction, err error) {
	rt.logger.Error("reaction failed", "reaction", r.name, "error", err)
}

// Batch runs fn as a transaction. Reactions invalidated inside fn run once,
// when the outermost batch returns.
func (rt *Runtime) Batch(fn func()) {
	rt.batchDepth++
	defer func() {
		rt.batchDepth--
		if rt.batchDepth == 0 {
			rt.runPending()
		}
	}()

	fn()
}

// InBatch reports whether a batch is open.
func (rt *Runtime) InBatch() bool {
	return rt.batchDepth > 0
}

// Untracked runs fn without recording the atoms it reads as dependencies of
// the running reaction.
func (rt *Runtime) Untracked(fn func()) {
	prev := rt.tracking
	rt.tracking = nil
	defer func() { rt.tracking = prev }()

	fn()
}

// Tracking reports whether a reaction is currently collecting dependencies.
func (rt *Runtime) Tracking() bool {
	return rt.tracking != nil
}

func (rt *Runtime) schedule(r *Reaction) {
	if r.disposed || r.scheduled {
		return
	}
	r.scheduled = true
	rt.pending = append(rt.pending, r)
}

// runPending runs stale reactions until none are left. Reactions invalidated
// while it runs are picked up by the next pass.
func (rt *Runtime) runPending() {
	if rt.running {
		return
	}
	rt.running = true
	defer func() { rt.running = false }()

	for pass := 0; len(rt.pending) > 0; pass++ {
		if pass >= rt.maxIterations {
			stuck := rt.pending
			rt.pending = nil
			for _, r := range stuck {
				r.scheduled = false
				err := fmt.Errorf("%w: reaction %q still stale after %d passes", ErrCycle, r.name, rt.maxIterations)
				r.err = err
				rt.onError(r, err)
			}
			return
		}

		batch := rt.pending
		rt.pending = nil
		for _, r := range batch {
			r.scheduled = false
			r.run()
		}
	}
}
