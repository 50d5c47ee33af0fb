package deepwatch

import "github.com/brunoga/deepwatch/reactive"

// ChangeSignal connects a collection to the reactive runtime. Every read path
// calls MarkObserved and every write path calls MarkChanged once the write is
// applied.
type ChangeSignal struct {
	atom *reactive.Atom
}

// NewChangeSignal creates a signal backed by a new atom of rt.
func NewChangeSignal(rt *reactive.Runtime, name string, opts ...reactive.AtomOption) *ChangeSignal {
	return &ChangeSignal{atom: rt.NewAtom(name, opts...)}
}

// MarkObserved records a dependency of the running reaction on the signal and
// reports whether one was running.
func (s *ChangeSignal) MarkObserved() bool {
	return s.atom.ReportObserved()
}

// MarkChanged invalidates every reaction that depends on the signal.
func (s *ChangeSignal) MarkChanged() {
	s.atom.ReportChanged()
}

// Observed reports whether any reaction depends on the signal.
func (s *ChangeSignal) Observed() bool {
	return s.atom.Observed()
}
