package deepwatch

import "github.com/brunoga/deepwatch/reactive"

type handle uint64

// registry counts live subscribers. It never owns subscriber resources, it
// only hands out handles. Its count is observable so the fanout reaction
// re-runs when subscribers come and go.
type registry struct {
	atom      *reactive.Atom
	last      handle
	diff      map[handle]struct{}
	reactions map[handle]*reactive.Reaction
}

func newRegistry(rt *reactive.Runtime, name string) *registry {
	return &registry{
		atom:      rt.NewAtom(name + "/subscribers"),
		diff:      make(map[handle]struct{}),
		reactions: make(map[handle]*reactive.Reaction),
	}
}

func (r *registry) next() handle {
	r.last++
	return r.last
}

func (r *registry) addDiff() handle {
	h := r.next()
	r.diff[h] = struct{}{}
	r.atom.ReportChanged()
	return h
}

// removeDiff reports whether h was registered. Removing twice is a no-op.
func (r *registry) removeDiff(h handle) bool {
	if _, ok := r.diff[h]; !ok {
		return false
	}
	delete(r.diff, h)
	r.atom.ReportChanged()
	return true
}

func (r *registry) addReactive(rx *reactive.Reaction) handle {
	h := r.next()
	r.reactions[h] = rx
	r.atom.ReportChanged()
	return h
}

func (r *registry) removeReactive(h handle) bool {
	if _, ok := r.reactions[h]; !ok {
		return false
	}
	delete(r.reactions, h)
	r.atom.ReportChanged()
	return true
}

// Count returns the number of live subscribers of both kinds and records a
// dependency on it.
func (r *registry) Count() int {
	r.atom.ReportObserved()
	return len(r.diff) + len(r.reactions)
}
