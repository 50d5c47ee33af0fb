// Package patch implements JSON Patch (RFC 6902) documents over Go values:
// building them, computing them as the difference between two values and
// applying them back.
package patch

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/brunoga/deepwatch/internal/core"
)

// Patch is a slice of Operations that transforms a value of type T.
type Patch[T any] []Operation

// New creates a new empty Patch.
func New[T any]() Patch[T] {
	return Patch[T]{}
}

// validatePath validates if a path is valid for type T. If valueType is not
// nil, it also checks if the type at the path can accept a value of valueType.
// Returns the reflect.Type at the specified path or an error if validation
// fails.
func validatePath[T any](path string, valueType reflect.Type) (reflect.Type, error) {
	rootType := reflect.TypeOf((*T)(nil)).Elem()

	segments, err := core.ParsePointer(path)
	if err != nil {
		return nil, err
	}

	currentType := rootType
	for i, segment := range segments {
		for currentType.Kind() == reflect.Pointer {
			// Dereference pointers
			currentType = currentType.Elem()
		}

		// Handle special "-" segment for slices (append)
		if segment == "-" {
			if i != len(segments)-1 {
				return nil, fmt.Errorf("'-' can only be used as the last segment in a path")
			}
			if currentType.Kind() != reflect.Slice {
				return nil, fmt.Errorf("'-' can only be used with slices, got %v", currentType)
			}
			currentType = currentType.Elem()
			continue
		}

		switch currentType.Kind() {
		case reflect.Struct:
			field, found := core.GetTypeInfo(currentType).Field(segment)
			if !found {
				return nil, fmt.Errorf("field %q not found in struct %v", segment, currentType)
			}
			currentType = currentType.Field(field.Index).Type

		case reflect.Map:
			if _, err := core.ParseMapKey(segment, currentType.Key()); err != nil {
				return nil, err
			}
			currentType = currentType.Elem()

		case reflect.Array, reflect.Slice:
			if _, err := core.ParseIndex(segment, int(^uint(0)>>1), false); err != nil {
				return nil, fmt.Errorf("invalid array/slice index %q", segment)
			}
			currentType = currentType.Elem()

		case reflect.Interface:
			// We can't validate beyond an interface statically
			return nil, nil

		default:
			return nil, fmt.Errorf("cannot navigate into %v using path segment %q", currentType, segment)
		}
	}

	// Check if the provided value type is compatible with the target type
	if valueType != nil && !valueType.AssignableTo(currentType) {
		return nil, fmt.Errorf("type mismatch at %q: cannot assign %v to %v", path, valueType, currentType)
	}

	return currentType, nil
}

// Add creates a new operation to add a value at the specified path.
func (p Patch[T]) Add(path string, value any) Patch[T] {
	if _, err := validatePath[T](path, reflect.TypeOf(value)); err != nil {
		panic(fmt.Sprintf("invalid Add operation: %v", err))
	}

	return append(p, Operation{Op: OperationTypeAdd, Path: path, Value: value})
}

// Remove creates a new operation to remove the value at the specified path.
func (p Patch[T]) Remove(path string) Patch[T] {
	if _, err := validatePath[T](path, nil); err != nil {
		panic(fmt.Sprintf("invalid Remove operation: %v", err))
	}

	return append(p, Operation{Op: OperationTypeRemove, Path: path})
}

// Replace creates a new operation to replace the value at the specified path.
func (p Patch[T]) Replace(path string, value any) Patch[T] {
	if _, err := validatePath[T](path, reflect.TypeOf(value)); err != nil {
		panic(fmt.Sprintf("invalid Replace operation: %v", err))
	}

	return append(p, Operation{Op: OperationTypeReplace, Path: path, Value: value})
}

// Move creates a new operation to move a value from one path to another.
func (p Patch[T]) Move(from, to string) Patch[T] {
	fromType, err := validatePath[T](from, nil)
	if err != nil {
		panic(fmt.Sprintf("invalid Move operation source: %v", err))
	}
	if _, err := validatePath[T](to, fromType); err != nil {
		panic(fmt.Sprintf("invalid Move operation destination: %v", err))
	}

	return append(p, Operation{Op: OperationTypeMove, Path: to, From: from})
}

// Copy creates a new operation to copy a value from one path to another.
func (p Patch[T]) Copy(from, to string) Patch[T] {
	fromType, err := validatePath[T](from, nil)
	if err != nil {
		panic(fmt.Sprintf("invalid Copy operation source: %v", err))
	}
	if _, err := validatePath[T](to, fromType); err != nil {
		panic(fmt.Sprintf("invalid Copy operation destination: %v", err))
	}

	return append(p, Operation{Op: OperationTypeCopy, Path: to, From: from})
}

// Test creates a new operation to test the value at the specified path.
func (p Patch[T]) Test(path string, value any) Patch[T] {
	if _, err := validatePath[T](path, reflect.TypeOf(value)); err != nil {
		panic(fmt.Sprintf("invalid Test operation: %v", err))
	}

	return append(p, Operation{Op: OperationTypeTest, Path: path, Value: value})
}

// Apply applies the patch to the given target, operation by operation. It
// returns an error if an operation is not valid or if a test operation fails;
// operations before the failing one stay applied.
func (p Patch[T]) Apply(target *T) error {
	if target == nil {
		return fmt.Errorf("target must be a non-nil pointer")
	}

	root := reflect.ValueOf(target).Elem()
	for i, op := range p {
		if err := applyOperation(root, op); err != nil {
			return fmt.Errorf("operation %d (%s %s): %w", i, op.Op, op.Path, err)
		}
	}
	return nil
}

// String returns the operations one per line.
func (p Patch[T]) String() string {
	var b strings.Builder
	for i, op := range p {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(op.String())
	}
	return b.String()
}
