package deepwatch

import (
	"cmp"
	"slices"

	"github.com/brunoga/deepwatch/internal/core"
)

// The helpers below read the collection through Items, so calling them inside
// a reaction makes it depend on the collection.

// Each calls fn for every item in order.
func Each[T any](c *Collection[T], fn func(i int, item T)) {
	for i, item := range c.Items() {
		fn(i, item)
	}
}

// Filter returns the items for which keep returns true.
func Filter[T any](c *Collection[T], keep func(T) bool) []T {
	var out []T
	for _, item := range c.Items() {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Reject returns the items for which drop returns false.
func Reject[T any](c *Collection[T], drop func(T) bool) []T {
	return Filter(c, func(item T) bool { return !drop(item) })
}

// Find returns the first item matching pred.
func Find[T any](c *Collection[T], pred func(T) bool) (T, bool) {
	for _, item := range c.Items() {
		if pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Map returns fn applied to every item.
func Map[T, U any](c *Collection[T], fn func(T) U) []U {
	items := c.Items()
	out := make([]U, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

// Reduce folds the items into an accumulator, left to right.
func Reduce[T, A any](c *Collection[T], init A, fn func(acc A, item T) A) A {
	acc := init
	for _, item := range c.Items() {
		acc = fn(acc, item)
	}
	return acc
}

// Some reports whether any item matches pred.
func Some[T any](c *Collection[T], pred func(T) bool) bool {
	_, ok := Find(c, pred)
	return ok
}

// Every reports whether all items match pred. It is true for an empty
// collection.
func Every[T any](c *Collection[T], pred func(T) bool) bool {
	for _, item := range c.Items() {
		if !pred(item) {
			return false
		}
	}
	return true
}

// GroupBy groups the items by key, keeping their order within each group.
func GroupBy[T any, K comparable](c *Collection[T], key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, item := range c.Items() {
		k := key(item)
		out[k] = append(out[k], item)
	}
	return out
}

// CountBy counts the items per key.
func CountBy[T any, K comparable](c *Collection[T], key func(T) K) map[K]int {
	out := make(map[K]int)
	for _, item := range c.Items() {
		out[key(item)]++
	}
	return out
}

// KeyBy indexes the items by key. Later items win on duplicate keys.
func KeyBy[T any, K comparable](c *Collection[T], key func(T) K) map[K]T {
	out := make(map[K]T)
	for _, item := range c.Items() {
		out[key(item)] = item
	}
	return out
}

// SortBy returns the items stably sorted by key.
func SortBy[T any, K cmp.Ordered](c *Collection[T], key func(T) K) []T {
	out := slices.Clone(c.Items())
	slices.SortStableFunc(out, func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	})
	return out
}

// IndexOf returns the index of the first item structurally equal to item, or
// -1.
func IndexOf[T any](c *Collection[T], item T) int {
	return slices.IndexFunc(c.Items(), func(v T) bool {
		return core.Equal(v, item)
	})
}

// First returns the first item.
func First[T any](c *Collection[T]) (T, bool) {
	items := c.Items()
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[0], true
}

// Last returns the last item.
func Last[T any](c *Collection[T]) (T, bool) {
	items := c.Items()
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[len(items)-1], true
}

// IsEmpty reports whether the collection has no items.
func IsEmpty[T any](c *Collection[T]) bool {
	return c.Len() == 0
}
