package reactive

import (
	"fmt"
	"slices"
)

// Reaction runs a function and re-runs it whenever an atom read during the
// previous run reports a change.
type Reaction struct {
	rt   *Runtime
	name string
	fn   func(*Reaction) error

	// deps are the atoms this reaction is registered with.
	deps []*Atom
	// next collects the atoms read during the current run.
	next []*Atom

	scheduled bool
	running   bool
	disposed  bool
	runs      int
	err       error

	onDispose []func()
}

// Autorun creates a reaction and runs it. Inside a batch the first run
// happens when the outermost batch returns.
func (rt *Runtime) Autorun(name string, fn func(*Reaction) error) *Reaction {
	r := &Reaction{rt: rt, name: name, fn: fn}
	rt.Batch(func() {
		rt.schedule(r)
	})
	return r
}

// Name returns the reaction's name.
func (r *Reaction) Name() string {
	return r.name
}

// Err returns the error of the last run.
func (r *Reaction) Err() error {
	return r.err
}

// Runs returns how many times the reaction has run.
func (r *Reaction) Runs() int {
	return r.runs
}

// Disposed reports whether Dispose was called.
func (r *Reaction) Disposed() bool {
	return r.disposed
}

// OnDispose registers fn to run once when the reaction is disposed. On an
// already disposed reaction fn runs immediately.
func (r *Reaction) OnDispose(fn func()) {
	if r.disposed && !r.running {
		fn()
		return
	}
	r.onDispose = append(r.onDispose, fn)
}

// Dispose stops the reaction and releases its dependencies. It is safe to
// call more than once and from inside the reaction's own run, in which case
// the release happens when the run returns.
func (r *Reaction) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	if r.running {
		return
	}
	r.release()
}

func (r *Reaction) release() {
	deps := r.deps
	r.deps = nil
	r.next = nil
	for _, a := range deps {
		a.removeObserver(r)
	}

	hooks := r.onDispose
	r.onDispose = nil
	for _, fn := range hooks {
		fn()
	}
}

func (r *Reaction) track(a *Atom) {
	if !slices.Contains(r.next, a) {
		r.next = append(r.next, a)
	}
	if !slices.Contains(r.deps, a) {
		r.deps = append(r.deps, a)
		a.addObserver(r)
	}
}

func (r *Reaction) run() {
	if r.disposed {
		return
	}

	prev := r.rt.tracking
	r.rt.tracking = r
	r.running = true
	r.next = nil

	err := r.invoke()

	r.rt.tracking = prev
	r.running = false
	r.runs++
	r.err = err

	if r.disposed {
		r.release()
	} else {
		r.bind()
	}

	if err != nil {
		r.rt.onError(r, err)
	}
}

func (r *Reaction) invoke() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reaction %q panicked: %v", r.name, p)
		}
	}()
	return r.fn(r)
}

// bind drops the atoms that were not read during the last run.
func (r *Reaction) bind() {
	var stale []*Atom
	kept := r.deps[:0]
	for _, a := range r.deps {
		if slices.Contains(r.next, a) {
			kept = append(kept, a)
		} else {
			stale = append(stale, a)
		}
	}
	r.deps = kept
	r.next = nil

	for _, a := range stale {
		a.removeObserver(r)
	}
}
