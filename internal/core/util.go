package core

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ConvertValue converts v so it can be stored in a location of targetType.
// Besides plain assignability and Go conversions it understands the shapes
// encoding/json produces: float64 numbers and map[string]any objects.
func ConvertValue(v reflect.Value, targetType reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(targetType), nil
	}

	if v.Type().AssignableTo(targetType) {
		return v, nil
	}

	// Unwrap interfaces holding a concrete value.
	if v.Kind() == reflect.Interface && !v.IsNil() {
		return ConvertValue(v.Elem(), targetType)
	}

	// Handle JSON numbers.
	if v.Kind() == reflect.Float64 {
		switch targetType.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return reflect.ValueOf(int64(v.Float())).Convert(targetType), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return reflect.ValueOf(uint64(v.Float())).Convert(targetType), nil
		case reflect.Float32:
			return reflect.ValueOf(float32(v.Float())).Convert(targetType), nil
		}
	}

	if v.Kind() != reflect.String && v.Type().ConvertibleTo(targetType) &&
		v.Kind() != reflect.Slice && v.Kind() != reflect.Map {
		return v.Convert(targetType), nil
	}

	// Handle pointer wrapping.
	if targetType.Kind() == reflect.Pointer {
		elem, err := ConvertValue(v, targetType.Elem())
		if err == nil {
			ptr := reflect.New(targetType.Elem())
			ptr.Elem().Set(elem)
			return ptr, nil
		}
	}

	// Composite JSON values (objects, arrays) are converted with a round trip
	// through encoding/json.
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.String:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %v to %v: %w", v.Type(), targetType, err)
		}
		dst := reflect.New(targetType)
		if err := json.Unmarshal(data, dst.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %v to %v: %w", v.Type(), targetType, err)
		}
		return dst.Elem(), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot convert %v to %v", v.Type(), targetType)
}

// IsNil reports whether v is a nil pointer, interface, map, slice, func or
// channel. Other values are never nil.
func IsNil[T any](v T) bool {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
