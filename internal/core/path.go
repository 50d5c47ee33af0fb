package core

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ParsePointer splits a JSON Pointer (RFC 6901) into its unescaped tokens.
// The empty pointer addresses the root and yields no tokens; "/" addresses
// the empty key.
func ParsePointer(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("invalid pointer %q: must start with '/'", path)
	}

	tokens := strings.Split(path[1:], "/")
	for i, token := range tokens {
		tokens[i] = UnescapeKey(token)
	}
	return tokens, nil
}

// EscapeKey escapes a single reference token.
func EscapeKey(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	key = strings.ReplaceAll(key, "/", "~1")
	return key
}

// UnescapeKey reverses EscapeKey.
func UnescapeKey(key string) string {
	key = strings.ReplaceAll(key, "~1", "/")
	key = strings.ReplaceAll(key, "~0", "~")
	return key
}

// JoinPath appends an unescaped token to a pointer.
func JoinPath(parent, token string) string {
	return parent + "/" + EscapeKey(token)
}

// JoinIndex appends a slice index to a pointer.
func JoinIndex(parent string, idx int) string {
	return parent + "/" + strconv.Itoa(idx)
}

// FormatMapKey renders a map key as a pointer token.
func FormatMapKey(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(k.Float(), 'g', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(k.Bool())
	default:
		return fmt.Sprintf("%v", k.Interface())
	}
}

// ParseMapKey converts a pointer token into a key of the given map key type.
func ParseMapKey(segment string, keyType reflect.Type) (reflect.Value, error) {
	key := reflect.New(keyType).Elem()

	switch keyType.Kind() {
	case reflect.String:
		key.SetString(segment)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(segment, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid map key %q: %v", segment, err)
		}
		key.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(segment, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid map key %q: %v", segment, err)
		}
		key.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(segment, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid map key %q: %v", segment, err)
		}
		key.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(segment)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid map key %q: %v", segment, err)
		}
		key.SetBool(b)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported map key type: %v", keyType)
	}

	return key, nil
}

// ParseIndex converts a pointer token into a slice index. "-" is accepted only
// when allowEnd is set and yields length.
func ParseIndex(segment string, length int, allowEnd bool) (int, error) {
	if segment == "-" {
		if !allowEnd {
			return 0, fmt.Errorf("'-' can only be used with add operation")
		}
		return length, nil
	}

	idx, err := strconv.Atoi(segment)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %v", segment, err)
	}

	limit := length
	if allowEnd {
		limit = length + 1
	}
	if idx < 0 || idx >= limit {
		return 0, fmt.Errorf("index %d out of bounds [0:%d]", idx, length)
	}
	return idx, nil
}
