// Package deepwatch implements an observable collection: an ordered list of
// items whose changes are tracked by a reactive runtime and published to
// subscribers as JSON Patch documents.
//
// Reading the items inside a reaction (see reactive.Runtime.Autorun) makes the
// reaction re-run whenever the collection changes. Observing the collection
// opens a patch stream: the first subscriber lazily creates a shared pipeline
// that keeps one snapshot of the items, diffs it against the live items on
// every change and writes the resulting patch to all subscribers. The
// pipeline is torn down one tick after its last subscriber leaves.
//
// Items are opaque. Mutations made through Add, Remove and Mutate are
// signalled automatically; code that changes items behind the collection's
// back must call Touch.
package deepwatch

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/brunoga/deepwatch/internal/core"
	"github.com/brunoga/deepwatch/reactive"
	"github.com/brunoga/deepwatch/snapshot"
)

var collectionIDs atomic.Uint64

// Collection is an observable ordered list of items. Like the Runtime it
// belongs to, it is not safe for concurrent use.
type Collection[T any] struct {
	rt       *reactive.Runtime
	name     string
	logger   *slog.Logger
	cloner   snapshot.Cloner
	signal   *ChangeSignal
	registry *registry
	items    []T
	fanout   *fanout[T]
}

// New creates a collection holding items. Nil pointer and interface items are
// skipped. The initial items are added in a single batch.
func New[T any](rt *reactive.Runtime, items []T, opts ...Option) *Collection[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = fmt.Sprintf("collection-%d", collectionIDs.Add(1))
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.cloner == nil {
		o.cloner = snapshot.Copy
	}

	var atomOpts []reactive.AtomOption
	if o.onObserved != nil {
		atomOpts = append(atomOpts, reactive.OnBecomeObserved(o.onObserved))
	}
	if o.onUnobserved != nil {
		atomOpts = append(atomOpts, reactive.OnBecomeUnobserved(o.onUnobserved))
	}

	c := &Collection[T]{
		rt:       rt,
		name:     o.name,
		logger:   o.logger.With("collection", o.name),
		cloner:   o.cloner,
		signal:   NewChangeSignal(rt, o.name, atomOpts...),
		registry: newRegistry(rt, o.name),
		items:    []T{},
	}

	rt.Batch(func() {
		for _, item := range items {
			if core.IsNil(item) {
				continue
			}
			c.Add(item)
		}
	})
	return c
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Runtime returns the runtime the collection belongs to.
func (c *Collection[T]) Runtime() *reactive.Runtime {
	return c.rt
}

// Signal returns the collection's change signal.
func (c *Collection[T]) Signal() *ChangeSignal {
	return c.signal
}

// Add appends item and returns the collection.
func (c *Collection[T]) Add(item T) *Collection[T] {
	c.items = append(c.items, item)
	c.signal.MarkChanged()
	return c
}

// Remove deletes the first item structurally equal to item and returns the
// collection. Nothing is signalled when no item matches.
func (c *Collection[T]) Remove(item T) *Collection[T] {
	i := slices.IndexFunc(c.items, func(v T) bool {
		return core.Equal(v, item)
	})
	if i < 0 {
		return c
	}
	c.items = slices.Delete(c.items, i, i+1)
	c.signal.MarkChanged()
	return c
}

// Mutate calls fn with the live items and then signals a change. fn may
// modify the items in place but must not retain the slice.
func (c *Collection[T]) Mutate(fn func(items []T)) {
	c.rt.Batch(func() {
		fn(c.items)
		c.signal.MarkChanged()
	})
}

// Touch signals a change made to the items without going through the
// collection.
func (c *Collection[T]) Touch() {
	c.signal.MarkChanged()
}

// Batch runs fn so that all changes made inside it are flushed once, after
// the outermost batch returns.
func (c *Collection[T]) Batch(fn func()) {
	c.rt.Batch(fn)
}

// Items returns the live items and records a dependency of the running
// reaction on the collection. Callers must not modify the returned slice.
func (c *Collection[T]) Items() []T {
	c.signal.MarkObserved()
	return c.items
}

// Len returns the number of items and records a dependency on the collection.
func (c *Collection[T]) Len() int {
	c.signal.MarkObserved()
	return len(c.items)
}

// Peek returns a shallow copy of the items without recording a dependency.
func (c *Collection[T]) Peek() []T {
	return slices.Clone(c.items)
}

// SubscriberCount returns the number of live subscribers without recording a
// dependency.
func (c *Collection[T]) SubscriberCount() int {
	n := 0
	c.rt.Untracked(func() {
		n = c.registry.Count()
	})
	return n
}

// Active reports whether the shared patch pipeline exists, including while
// it drains.
func (c *Collection[T]) Active() bool {
	return c.fanout != nil
}

// Flush diffs and publishes pending changes immediately. It is a no-op when
// nothing observes the collection.
func (c *Collection[T]) Flush() error {
	if c.fanout == nil {
		return nil
	}
	return c.fanout.flushUntracked()
}

// ensureFanout returns the shared pipeline, creating it if needed. The
// returned bool is true when the pipeline is new and must be started.
func (c *Collection[T]) ensureFanout() (*fanout[T], bool, error) {
	if c.fanout != nil {
		return c.fanout, false, nil
	}

	f, err := newFanout(c)
	if err != nil {
		return nil, false, err
	}
	c.fanout = f
	return f, true, nil
}
