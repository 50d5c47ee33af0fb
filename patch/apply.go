package patch

import (
	"fmt"
	"reflect"

	"github.com/brunoga/deepwatch/internal/core"
)

// edit is a single structural change addressed by the last token of a path.
type edit struct {
	op    OperationType
	value reflect.Value
}

// applyOperation applies a single patch operation to the target value.
func applyOperation(target reflect.Value, op Operation) error {
	switch op.Op {
	case OperationTypeAdd, OperationTypeReplace:
		// The same patch may be applied to several targets.
		value, err := core.CopyValue(reflect.ValueOf(op.Value))
		if err != nil {
			return err
		}
		return applyEdit(target, op.Path, edit{op: op.Op, value: value})
	case OperationTypeRemove:
		return applyEdit(target, op.Path, edit{op: op.Op})
	case OperationTypeMove:
		return applyMove(target, op.From, op.Path)
	case OperationTypeCopy:
		return applyCopy(target, op.From, op.Path)
	case OperationTypeTest:
		return applyTest(target, op.Path, op.Value)
	default:
		return fmt.Errorf("invalid operation type: %s", op.Op)
	}
}

func applyEdit(target reflect.Value, path string, e edit) error {
	tokens, err := core.ParsePointer(path)
	if err != nil {
		return err
	}

	updated, err := update(target, tokens, e)
	if err != nil {
		return err
	}
	target.Set(updated)
	return nil
}

// update returns v with e applied at the location addressed by tokens. Values
// that are not addressable (map entries, interface contents) are rebuilt on
// the way back up, so the result must be stored where v came from.
func update(v reflect.Value, tokens []string, e edit) (reflect.Value, error) {
	if len(tokens) == 0 {
		switch e.op {
		case OperationTypeAdd, OperationTypeReplace:
			return core.ConvertValue(e.value, v.Type())
		default:
			return reflect.Value{}, fmt.Errorf("cannot remove the root value")
		}
	}

	segment, rest := tokens[0], tokens[1:]

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil pointer in path")
		}
		elem, err := update(v.Elem(), tokens, e)
		if err != nil {
			return reflect.Value{}, err
		}
		v.Elem().Set(elem)
		return v, nil

	case reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil interface in path")
		}
		inner, err := update(v.Elem(), tokens, e)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out, nil

	case reflect.Struct:
		field, ok := core.GetTypeInfo(v.Type()).Field(segment)
		if !ok {
			return reflect.Value{}, fmt.Errorf("field %q not found in struct %v", segment, v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		f := out.Field(field.Index)

		var nv reflect.Value
		var err error
		switch {
		case len(rest) > 0:
			nv, err = update(f, rest, e)
		case e.op == OperationTypeRemove:
			nv = reflect.Zero(f.Type())
		default:
			nv, err = core.ConvertValue(e.value, f.Type())
		}
		if err != nil {
			return reflect.Value{}, err
		}
		f.Set(nv)
		return out, nil

	case reflect.Map:
		return updateMap(v, segment, rest, e)

	case reflect.Slice:
		return updateSlice(v, segment, rest, e)

	case reflect.Array:
		idx, err := core.ParseIndex(segment, v.Len(), false)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(rest) == 0 && e.op != OperationTypeReplace {
			return reflect.Value{}, fmt.Errorf("cannot %s array elements", e.op)
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		var nv reflect.Value
		if len(rest) > 0 {
			nv, err = update(out.Index(idx), rest, e)
		} else {
			nv, err = core.ConvertValue(e.value, v.Type().Elem())
		}
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(idx).Set(nv)
		return out, nil

	default:
		return reflect.Value{}, fmt.Errorf("cannot traverse into %v", v.Type())
	}
}

func updateMap(v reflect.Value, segment string, rest []string, e edit) (reflect.Value, error) {
	key, err := core.ParseMapKey(segment, v.Type().Key())
	if err != nil {
		return reflect.Value{}, err
	}

	current := v.MapIndex(key)

	if len(rest) > 0 {
		if !current.IsValid() {
			return reflect.Value{}, fmt.Errorf("map key %q not found", segment)
		}
		nv, err := update(current, rest, e)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetMapIndex(key, nv)
		return v, nil
	}

	switch e.op {
	case OperationTypeRemove:
		if !current.IsValid() {
			return reflect.Value{}, fmt.Errorf("map key %q not found", segment)
		}
		v.SetMapIndex(key, reflect.Value{}) // Delete the key
		return v, nil
	case OperationTypeReplace:
		if !current.IsValid() {
			return reflect.Value{}, fmt.Errorf("map key %q not found", segment)
		}
	}

	nv, err := core.ConvertValue(e.value, v.Type().Elem())
	if err != nil {
		return reflect.Value{}, err
	}
	if v.IsNil() {
		v = reflect.MakeMap(v.Type())
	}
	v.SetMapIndex(key, nv)
	return v, nil
}

func updateSlice(v reflect.Value, segment string, rest []string, e edit) (reflect.Value, error) {
	allowEnd := len(rest) == 0 && e.op == OperationTypeAdd
	idx, err := core.ParseIndex(segment, v.Len(), allowEnd)
	if err != nil {
		return reflect.Value{}, err
	}

	if len(rest) > 0 || e.op == OperationTypeReplace {
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(out, v)

		var nv reflect.Value
		if len(rest) > 0 {
			nv, err = update(out.Index(idx), rest, e)
		} else {
			nv, err = core.ConvertValue(e.value, v.Type().Elem())
		}
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(idx).Set(nv)
		return out, nil
	}

	if e.op == OperationTypeRemove {
		// Create a new slice with the element removed
		out := reflect.MakeSlice(v.Type(), 0, v.Len()-1)
		out = reflect.AppendSlice(out, v.Slice(0, idx))
		out = reflect.AppendSlice(out, v.Slice(idx+1, v.Len()))
		return out, nil
	}

	nv, err := core.ConvertValue(e.value, v.Type().Elem())
	if err != nil {
		return reflect.Value{}, err
	}

	// Copy elements before the insert point, the new element, then the rest.
	out := reflect.MakeSlice(v.Type(), 0, v.Len()+1)
	out = reflect.AppendSlice(out, v.Slice(0, idx))
	out = reflect.Append(out, nv)
	out = reflect.AppendSlice(out, v.Slice(idx, v.Len()))
	return out, nil
}

// getValueAtPath returns the reflect.Value at the specified path.
func getValueAtPath(v reflect.Value, path string) (reflect.Value, error) {
	tokens, err := core.ParsePointer(path)
	if err != nil {
		return reflect.Value{}, err
	}

	current := v
	for _, segment := range tokens {
		for current.Kind() == reflect.Pointer || current.Kind() == reflect.Interface {
			if current.IsNil() {
				return reflect.Value{}, fmt.Errorf("nil value in path")
			}
			current = current.Elem()
		}

		switch current.Kind() {
		case reflect.Struct:
			field, ok := core.GetTypeInfo(current.Type()).Field(segment)
			if !ok {
				return reflect.Value{}, fmt.Errorf("field %q not found in struct %v", segment, current.Type())
			}
			current = current.Field(field.Index)

		case reflect.Map:
			key, err := core.ParseMapKey(segment, current.Type().Key())
			if err != nil {
				return reflect.Value{}, err
			}
			mapVal := current.MapIndex(key)
			if !mapVal.IsValid() {
				return reflect.Value{}, fmt.Errorf("map key %q not found", segment)
			}
			current = mapVal

		case reflect.Slice, reflect.Array:
			idx, err := core.ParseIndex(segment, current.Len(), false)
			if err != nil {
				return reflect.Value{}, err
			}
			current = current.Index(idx)

		default:
			return reflect.Value{}, fmt.Errorf("cannot traverse into %v", current.Type())
		}
	}

	return current, nil
}

// applyMove implements the "move" operation.
func applyMove(target reflect.Value, from, to string) error {
	fromVal, err := getValueAtPath(target, from)
	if err != nil {
		return fmt.Errorf("source path error: %w", err)
	}

	// Store a copy of the value
	valueCopy, err := core.CopyValue(fromVal)
	if err != nil {
		return fmt.Errorf("copying source: %w", err)
	}

	if err := applyEdit(target, from, edit{op: OperationTypeRemove}); err != nil {
		return fmt.Errorf("removing from source: %w", err)
	}

	if err := applyEdit(target, to, edit{op: OperationTypeAdd, value: valueCopy}); err != nil {
		return fmt.Errorf("adding to destination: %w", err)
	}

	return nil
}

// applyCopy implements the "copy" operation.
func applyCopy(target reflect.Value, from, to string) error {
	fromVal, err := getValueAtPath(target, from)
	if err != nil {
		return fmt.Errorf("source path error: %w", err)
	}

	valueCopy, err := core.CopyValue(fromVal)
	if err != nil {
		return fmt.Errorf("copying source: %w", err)
	}

	if err := applyEdit(target, to, edit{op: OperationTypeAdd, value: valueCopy}); err != nil {
		return fmt.Errorf("adding to destination: %w", err)
	}

	return nil
}

// applyTest implements the "test" operation.
func applyTest(target reflect.Value, path string, value any) error {
	current, err := getValueAtPath(target, path)
	if err != nil {
		return err
	}
	for current.Kind() == reflect.Interface && !current.IsNil() {
		current = current.Elem()
	}

	want, err := core.ConvertValue(reflect.ValueOf(value), current.Type())
	if err != nil {
		return err
	}

	if !core.ValueEqual(current, want) {
		return fmt.Errorf("test failed: values are not equal")
	}
	return nil
}
