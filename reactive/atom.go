package reactive

import "slices"

// Atom is the smallest observable unit. It holds no value; owners call
// ReportObserved when their state is read and ReportChanged when it changes.
type Atom struct {
	rt        *Runtime
	name      string
	observers []*Reaction

	onObserved   func()
	onUnobserved func()
}

// NewAtom creates an Atom bound to rt.
func (rt *Runtime) NewAtom(name string, opts ...AtomOption) *Atom {
	a := &Atom{rt: rt, name: name}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the atom's name.
func (a *Atom) Name() string {
	return a.name
}

// ReportObserved records the atom as a dependency of the running reaction.
// It returns false when no reaction is tracking.
func (a *Atom) ReportObserved() bool {
	r := a.rt.tracking
	if r == nil || r.disposed {
		return false
	}
	r.track(a)
	return true
}

// ReportChanged marks every observing reaction stale. Outside a batch the
// reactions run before ReportChanged returns.
func (a *Atom) ReportChanged() {
	a.rt.Batch(func() {
		for _, r := range a.observers {
			a.rt.schedule(r)
		}
	})
}

// Observed reports whether at least one reaction depends on the atom.
func (a *Atom) Observed() bool {
	return len(a.observers) > 0
}

func (a *Atom) addObserver(r *Reaction) {
	if slices.Contains(a.observers, r) {
		return
	}
	a.observers = append(a.observers, r)
	if len(a.observers) == 1 && a.onObserved != nil {
		a.onObserved()
	}
}

func (a *Atom) removeObserver(r *Reaction) {
	i := slices.Index(a.observers, r)
	if i < 0 {
		return
	}
	a.observers = slices.Delete(a.observers, i, i+1)
	if len(a.observers) == 0 && a.onUnobserved != nil {
		a.onUnobserved()
	}
}
