package patch

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/brunoga/deepwatch/internal/core"
)

var (
	// ErrCyclic is returned by Diff when either value references itself.
	ErrCyclic = errors.New("cyclic value")

	// ErrUnsupported is returned by Diff when a value holds something that has
	// no JSON Patch representation (non-nil functions, channels and unsafe
	// pointers, or maps with keys that cannot be written as path tokens).
	ErrUnsupported = core.ErrUnsupported
)

// Diff compares a and b and returns the patch that transforms a into b. The
// result is empty when both values are structurally equal (see core.Equal
// semantics: nil and empty containers are equal, unexported fields and fields
// tagged `deep:"-"` are ignored).
//
// Diff is pure: it never modifies its inputs and values carried by the
// returned operations are deep copies. Struct fields are addressed by their
// JSON name when they have one. Map keys are visited in sorted order, so equal
// inputs always produce the same patch.
//
// Slices are diffed with an edit script. Operations are emitted in ascending
// index order with indices already shifted by the inserts and removals that
// precede them, so applying the patch sequentially to a reproduces b.
func Diff[T any](a, b T) (Patch[T], error) {
	va := reflect.ValueOf(&a).Elem()
	vb := reflect.ValueOf(&b).Elem()

	for _, v := range []reflect.Value{va, vb} {
		if err := checkValue(v, make(map[refKey]bool)); err != nil {
			return nil, err
		}
	}

	d := &differ{}
	if err := d.diff(va, vb, ""); err != nil {
		return nil, err
	}
	return Patch[T](d.ops), nil
}

// MustDiff is like Diff but panics on error.
func MustDiff[T any](a, b T) Patch[T] {
	p, err := Diff(a, b)
	if err != nil {
		panic(err)
	}
	return p
}

type refKey struct {
	ptr uintptr
	len int
	typ reflect.Type
}

// checkValue walks v once and rejects cycles and unsupported values before
// any operation is produced.
func checkValue(v reflect.Value, stack map[refKey]bool) error {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
		key := refKey{ptr: v.Pointer(), typ: v.Type()}
		if v.Kind() == reflect.Slice {
			key.len = v.Len()
		}
		if stack[key] {
			return fmt.Errorf("%w: %v references itself", ErrCyclic, v.Type())
		}
		stack[key] = true
		defer delete(stack, key)
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return checkValue(v.Elem(), stack)
	case reflect.Struct:
		for _, fInfo := range core.GetTypeInfo(v.Type()).Fields {
			if fInfo.Tag.Ignore {
				continue
			}
			if err := checkValue(v.Field(fInfo.Index), stack); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := checkValue(v.Index(i), stack); err != nil {
				return err
			}
		}
	case reflect.Map:
		switch v.Type().Key().Kind() {
		case reflect.String, reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
			reflect.Float32, reflect.Float64:
		default:
			return fmt.Errorf("%w: map key type %v", ErrUnsupported, v.Type().Key())
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := checkValue(iter.Value(), stack); err != nil {
				return err
			}
		}
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if !v.IsNil() {
			return fmt.Errorf("%w: non-nil %v", ErrUnsupported, v.Type())
		}
	}
	return nil
}

type differ struct {
	ops []Operation
}

func (d *differ) emit(op OperationType, path string, v reflect.Value) error {
	o := Operation{Op: op, Path: path}
	if v.IsValid() {
		c, err := core.CopyValue(v)
		if err != nil {
			return err
		}
		o.Value = c.Interface()
	}
	d.ops = append(d.ops, o)
	return nil
}

func (d *differ) diff(a, b reflect.Value, path string) error {
	if !a.IsValid() && !b.IsValid() {
		return nil
	}
	if !a.IsValid() || !b.IsValid() || a.Type() != b.Type() {
		return d.emit(OperationTypeReplace, path, b)
	}

	switch a.Kind() {
	case reflect.Pointer:
		if a.IsNil() && b.IsNil() {
			return nil
		}
		if a.IsNil() || b.IsNil() {
			return d.emit(OperationTypeReplace, path, b)
		}
		return d.diff(a.Elem(), b.Elem(), path)

	case reflect.Interface:
		if a.IsNil() && b.IsNil() {
			return nil
		}
		if a.IsNil() || b.IsNil() || a.Elem().Type() != b.Elem().Type() {
			return d.emit(OperationTypeReplace, path, b)
		}
		return d.diff(a.Elem(), b.Elem(), path)

	case reflect.Struct:
		return d.diffStruct(a, b, path)

	case reflect.Map:
		return d.diffMap(a, b, path)

	case reflect.Slice:
		return d.diffSlice(a, b, path)

	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if err := d.diff(a.Index(i), b.Index(i), core.JoinIndex(path, i)); err != nil {
				return err
			}
		}
		return nil

	default:
		if !core.ValueEqual(a, b) {
			return d.emit(OperationTypeReplace, path, b)
		}
		return nil
	}
}

func (d *differ) diffStruct(a, b reflect.Value, path string) error {
	for _, fInfo := range core.GetTypeInfo(a.Type()).Fields {
		if fInfo.Tag.Ignore {
			continue
		}

		fA := a.Field(fInfo.Index)
		fB := b.Field(fInfo.Index)
		fieldPath := core.JoinPath(path, fInfo.PathName)

		if fInfo.Tag.Atomic {
			if !core.ValueEqual(fA, fB) {
				if err := d.emit(OperationTypeReplace, fieldPath, fB); err != nil {
					return err
				}
			}
			continue
		}

		if err := d.diff(fA, fB, fieldPath); err != nil {
			return err
		}
	}
	return nil
}

func (d *differ) diffMap(a, b reflect.Value, path string) error {
	if a.Len() == 0 && b.Len() == 0 {
		return nil
	}

	type entry struct {
		token string
		key   reflect.Value
	}

	seen := make(map[string]bool, a.Len()+b.Len())
	var keys []entry
	for _, m := range []reflect.Value{a, b} {
		iter := m.MapRange()
		for iter.Next() {
			token := core.FormatMapKey(iter.Key())
			if !seen[token] {
				seen[token] = true
				keys = append(keys, entry{token: token, key: iter.Key()})
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].token < keys[j].token
	})

	for _, k := range keys {
		vA := a.MapIndex(k.key)
		vB := b.MapIndex(k.key)
		keyPath := core.JoinPath(path, k.token)

		var err error
		switch {
		case !vB.IsValid():
			err = d.emit(OperationTypeRemove, keyPath, reflect.Value{})
		case !vA.IsValid():
			err = d.emit(OperationTypeAdd, keyPath, vB)
		default:
			err = d.diff(vA, vB, keyPath)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type sliceOpKind int

const (
	opAdd sliceOpKind = iota
	opDel
	opMod
)

// sliceOp is one step of an edit script. Index addresses the original slice
// (for opAdd it is the position the new element is inserted before) and
// BIndex addresses the target slice.
type sliceOp struct {
	Kind   sliceOpKind
	Index  int
	BIndex int
}

func (d *differ) diffSlice(a, b reflect.Value, path string) error {
	lenA := a.Len()
	lenB := b.Len()

	// 1. Identify common prefix
	prefix := 0
	for prefix < lenA && prefix < lenB && core.ValueEqual(a.Index(prefix), b.Index(prefix)) {
		prefix++
	}

	// 2. Identify common suffix
	suffix := 0
	for suffix < lenA-prefix && suffix < lenB-prefix &&
		core.ValueEqual(a.Index(lenA-1-suffix), b.Index(lenB-1-suffix)) {
		suffix++
	}

	// 3. Diff the middle part
	ops := computeSliceEdits(a, b, prefix, lenA-suffix, prefix, lenB-suffix)

	shift := 0
	for _, op := range ops {
		elemPath := core.JoinIndex(path, op.Index+shift)

		var err error
		switch op.Kind {
		case opAdd:
			err = d.emit(OperationTypeAdd, elemPath, b.Index(op.BIndex))
			shift++
		case opDel:
			err = d.emit(OperationTypeRemove, elemPath, reflect.Value{})
			shift--
		case opMod:
			err = d.diff(a.Index(op.Index), b.Index(op.BIndex), elemPath)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// maxEditCells bounds the edit-distance table. Larger middles are diffed
// position by position.
var maxEditCells = 1 << 20

// computeSliceEdits uses dynamic programming to find the shortest edit script
// for the middle portion of two slices. Substituting an element counts as a
// single edit so changed elements are diffed in place instead of being
// removed and added back. The returned ops are in ascending Index order.
func computeSliceEdits(a, b reflect.Value, aStart, aEnd, bStart, bEnd int) []sliceOp {
	n := aEnd - aStart
	m := bEnd - bStart
	if n <= 0 && m <= 0 {
		return nil
	}
	if n*m > maxEditCells {
		return positionalSliceEdits(aStart, aEnd, bStart, bEnd)
	}

	equal := make([][]bool, n+1)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
		equal[i] = make([]bool, m+1)
	}

	for i := 0; i <= n; i++ {
		dp[i][0] = i
	}
	for j := 0; j <= m; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			equal[i][j] = core.ValueEqual(a.Index(aStart+i-1), b.Index(bStart+j-1))

			cost := 1
			if equal[i][j] {
				cost = 0
			}

			best := dp[i-1][j] + 1
			if ins := dp[i][j-1] + 1; ins < best {
				best = ins
			}
			if sub := dp[i-1][j-1] + cost; sub < best {
				best = sub
			}
			dp[i][j] = best
		}
	}

	var ops []sliceOp
	i, j := n, m
	for i > 0 || j > 0 {
		if i > 0 && j > 0 {
			cost := 1
			if equal[i][j] {
				cost = 0
			}

			if dp[i][j] == dp[i-1][j-1]+cost {
				if cost == 1 {
					ops = append(ops, sliceOp{
						Kind:   opMod,
						Index:  aStart + i - 1,
						BIndex: bStart + j - 1,
					})
				}
				i--
				j--
				continue
			}
		}

		if i > 0 && dp[i][j] == dp[i-1][j]+1 {
			ops = append(ops, sliceOp{
				Kind:  opDel,
				Index: aStart + i - 1,
			})
			i--
			continue
		}

		ops = append(ops, sliceOp{
			Kind:   opAdd,
			Index:  aStart + i,
			BIndex: bStart + j - 1,
		})
		j--
	}

	for k := 0; k < len(ops)/2; k++ {
		ops[k], ops[len(ops)-1-k] = ops[len(ops)-1-k], ops[k]
	}

	return ops
}

// positionalSliceEdits pairs elements by position: the shared length is
// diffed in place, then the surplus is removed or appended. It is linear in
// the slice lengths.
func positionalSliceEdits(aStart, aEnd, bStart, bEnd int) []sliceOp {
	n := aEnd - aStart
	m := bEnd - bStart
	common := min(n, m)

	ops := make([]sliceOp, 0, max(n, m))
	for k := 0; k < common; k++ {
		ops = append(ops, sliceOp{Kind: opMod, Index: aStart + k, BIndex: bStart + k})
	}
	for k := common; k < n; k++ {
		ops = append(ops, sliceOp{Kind: opDel, Index: aStart + k})
	}
	for k := common; k < m; k++ {
		ops = append(ops, sliceOp{Kind: opAdd, Index: aStart + n, BIndex: bStart + k})
	}
	return ops
}
