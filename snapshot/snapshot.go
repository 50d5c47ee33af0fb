// Package snapshot takes fully independent copies of item lists so later
// mutations of the live items cannot leak into a previously taken snapshot.
package snapshot

import (
	"fmt"
	"sort"

	"github.com/barkimedes/go-deepcopy"
	"github.com/huandu/go-clone"
	"github.com/mitchellh/copystructure"

	"github.com/brunoga/deepwatch/internal/core"
)

// Cloner returns a deep copy of src with the same dynamic type.
type Cloner func(src any) (any, error)

// Copy clones with the built-in reflective copier. Shared and cyclic pointers
// are preserved, unexported fields are copied shallowly and non-nil
// functions or channels are rejected with core.ErrUnsupported.
func Copy(src any) (any, error) {
	return core.Copy(src)
}

// GoClone clones with github.com/huandu/go-clone. Cyclic pointers are
// preserved and unexported fields are copied deeply.
func GoClone(src any) (any, error) {
	return clone.Slowly(src), nil
}

// Copystructure clones with github.com/mitchellh/copystructure. It does not
// support cyclic values.
func Copystructure(src any) (any, error) {
	return copystructure.Copy(src)
}

// Deepcopy clones with github.com/barkimedes/go-deepcopy.
func Deepcopy(src any) (any, error) {
	return deepcopy.Anything(src)
}

var cloners = map[string]Cloner{
	"copy":          Copy,
	"goclone":       GoClone,
	"copystructure": Copystructure,
	"deepcopy":      Deepcopy,
}

// Lookup returns the cloner registered under name.
func Lookup(name string) (Cloner, bool) {
	c, ok := cloners[name]
	return c, ok
}

// Names returns the registered cloner names in sorted order.
func Names() []string {
	names := make([]string, 0, len(cloners))
	for name := range cloners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Take returns a deep copy of items made with c, or with Copy when c is nil.
// The result never aliases items.
func Take[T any](items []T, c Cloner) ([]T, error) {
	if len(items) == 0 {
		return []T{}, nil
	}
	if c == nil {
		c = Copy
	}

	out, err := c(items)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	s, ok := out.([]T)
	if !ok {
		return nil, fmt.Errorf("snapshot: cloner returned %T, want %T", out, items)
	}
	return s, nil
}
