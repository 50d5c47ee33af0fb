package core

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnsupported is returned when a value holds something that cannot be
// copied or compared structurally (non-nil functions, channels and unsafe
// pointers).
var ErrUnsupported = errors.New("unsupported value")

type pointerKey struct {
	ptr uintptr
	typ reflect.Type
}

// Copy creates a deep copy of src. It returns the copy and a nil error in case
// of success and the zero value for the type and a non-nil error on failure.
//
// Pointer cycles and shared pointers are preserved in the copy. Unexported
// fields are copied shallowly.
func Copy[T any](src T) (T, error) {
	var t T
	dst, err := CopyValue(reflect.ValueOf(&src).Elem())
	if err != nil {
		return t, err
	}

	// The assertion is unchecked so a nil interface T yields its zero value.
	out, _ := dst.Interface().(T)
	return out, nil
}

// CopyValue creates a deep copy of v. The returned value has the same type as
// v.
func CopyValue(v reflect.Value) (reflect.Value, error) {
	return recursiveCopy(v, make(map[pointerKey]reflect.Value))
}

func recursiveCopy(v reflect.Value, pointers map[pointerKey]reflect.Value) (reflect.Value, error) {
	if !v.IsValid() {
		return v, nil
	}

	switch v.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128, reflect.String:
		// Primitive type, just copy it.
		return v, nil
	case reflect.Array:
		return recursiveCopyArray(v, pointers)
	case reflect.Map:
		return recursiveCopyMap(v, pointers)
	case reflect.Pointer:
		return recursiveCopyPtr(v, pointers)
	case reflect.Interface:
		return recursiveCopyInterface(v, pointers)
	case reflect.Slice:
		return recursiveCopySlice(v, pointers)
	case reflect.Struct:
		return recursiveCopyStruct(v, pointers)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			// If we have a nil function, unsafe pointer or channel, then we
			// can copy it.
			return v, nil
		}
		return reflect.Value{}, fmt.Errorf("%w: non-nil %v", ErrUnsupported, v.Type())
	default:
		return reflect.Value{}, fmt.Errorf("%w: %v", ErrUnsupported, v.Type())
	}
}

func recursiveCopyArray(v reflect.Value, pointers map[pointerKey]reflect.Value) (reflect.Value, error) {
	dst := reflect.New(v.Type()).Elem()

	for i := 0; i < v.Len(); i++ {
		elemDst, err := recursiveCopy(v.Index(i), pointers)
		if err != nil {
			return reflect.Value{}, err
		}
		dst.Index(i).Set(elemDst)
	}

	return dst, nil
}

func recursiveCopyMap(v reflect.Value, pointers map[pointerKey]reflect.Value) (reflect.Value, error) {
	if v.IsNil() {
		return reflect.Zero(v.Type()), nil
	}

	dst := reflect.MakeMapWithSize(v.Type(), v.Len())

	iter := v.MapRange()
	for iter.Next() {
		elemDst, err := recursiveCopy(iter.Value(), pointers)
		if err != nil {
			return reflect.Value{}, err
		}
		dst.SetMapIndex(iter.Key(), elemDst)
	}

	return dst, nil
}

func recursiveCopyPtr(v reflect.Value, pointers map[pointerKey]reflect.Value) (reflect.Value, error) {
	// If the pointer is nil, just return its zero value.
	if v.IsNil() {
		return reflect.Zero(v.Type()), nil
	}

	// If the pointer is already in the pointers map, return it.
	key := pointerKey{v.Pointer(), v.Type()}
	if dst, ok := pointers[key]; ok {
		return dst, nil
	}

	// Otherwise, create a new pointer and add it to the pointers map before
	// descending so cycles resolve to it.
	dst := reflect.New(v.Type().Elem())
	pointers[key] = dst

	elemDst, err := recursiveCopy(v.Elem(), pointers)
	if err != nil {
		return reflect.Value{}, err
	}

	dst.Elem().Set(elemDst)

	return dst, nil
}

func recursiveCopyInterface(v reflect.Value, pointers map[pointerKey]reflect.Value) (reflect.Value, error) {
	if v.IsNil() {
		return reflect.Zero(v.Type()), nil
	}

	elemDst, err := recursiveCopy(v.Elem(), pointers)
	if err != nil {
		return reflect.Value{}, err
	}

	dst := reflect.New(v.Type()).Elem()
	dst.Set(elemDst)

	return dst, nil
}

func recursiveCopySlice(v reflect.Value, pointers map[pointerKey]reflect.Value) (reflect.Value, error) {
	if v.IsNil() {
		return reflect.Zero(v.Type()), nil
	}

	dst := reflect.MakeSlice(v.Type(), v.Len(), v.Len())

	for i := 0; i < v.Len(); i++ {
		elemDst, err := recursiveCopy(v.Index(i), pointers)
		if err != nil {
			return reflect.Value{}, err
		}
		dst.Index(i).Set(elemDst)
	}

	return dst, nil
}

func recursiveCopyStruct(v reflect.Value, pointers map[pointerKey]reflect.Value) (reflect.Value, error) {
	// Start from a shallow copy so unexported fields keep their values, then
	// replace every exported field with its deep copy.
	dst := reflect.New(v.Type()).Elem()
	dst.Set(v)

	info := GetTypeInfo(v.Type())
	for _, fInfo := range info.Fields {
		elemDst, err := recursiveCopy(v.Field(fInfo.Index), pointers)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", fInfo.Name, err)
		}
		dst.Field(fInfo.Index).Set(elemDst)
	}

	return dst, nil
}
