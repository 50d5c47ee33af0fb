package stream

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Multi writes every value to all of its writers. It is safe for concurrent
// use.
type Multi[T any] struct {
	mu        sync.Mutex
	writers   []Writer[T]
	destroyed bool
}

// NewMulti creates a Multi writing to ws.
func NewMulti[T any](ws ...Writer[T]) *Multi[T] {
	return &Multi[T]{writers: slices.Clone(ws)}
}

// Add appends w to the writers. Adding a writer twice has no effect.
func (m *Multi[T]) Add(w Writer[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return ErrDestroyed
	}
	if !slices.Contains(m.writers, w) {
		m.writers = append(m.writers, w)
	}
	return nil
}

// Remove detaches w and reports whether it was attached.
func (m *Multi[T]) Remove(w Writer[T]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.writers, w)
	if i < 0 {
		return false
	}
	m.writers = slices.Delete(m.writers, i, i+1)
	return true
}

// Write delivers v to every writer in the order they were added. A failing
// or panicking writer does not stop delivery to the others; all failures are
// returned joined.
func (m *Multi[T]) Write(v T) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return ErrDestroyed
	}
	writers := slices.Clone(m.writers)
	m.mu.Unlock()

	var errs []error
	for i, w := range writers {
		if err := writeOne(w, v); err != nil {
			errs = append(errs, fmt.Errorf("writer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func writeOne[T any](w Writer[T], v T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, p)
		}
	}()
	return w.Write(v)
}

// Destroy detaches every writer. Later writes return ErrDestroyed.
func (m *Multi[T]) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.destroyed = true
	m.writers = nil
}

// Destroyed reports whether Destroy was called.
func (m *Multi[T]) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

// Len returns the number of attached writers.
func (m *Multi[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writers)
}
