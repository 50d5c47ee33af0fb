package core

import (
	"reflect"
	"sync"
)

// FieldInfo describes one exported struct field as seen by paths and diffs.
type FieldInfo struct {
	Index int
	Name  string
	// PathName is the segment used for the field in JSON Pointer paths: the
	// JSON name when the field has one, the Go name otherwise.
	PathName string
	Tag      StructTag
}

// TypeInfo caches the exported fields of a struct type.
type TypeInfo struct {
	Fields []FieldInfo
	byPath map[string]int
}

var (
	typeCache sync.Map // map[reflect.Type]*TypeInfo
)

// GetTypeInfo returns the cached field information for typ. Unexported fields
// are not part of the returned information.
func GetTypeInfo(typ reflect.Type) *TypeInfo {
	if info, ok := typeCache.Load(typ); ok {
		return info.(*TypeInfo)
	}

	info := &TypeInfo{
		byPath: make(map[string]int),
	}
	if typ.Kind() == reflect.Struct {
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			pathName := jsonName(field)
			if pathName == "" {
				pathName = field.Name
			}
			info.byPath[pathName] = len(info.Fields)
			info.Fields = append(info.Fields, FieldInfo{
				Index:    i,
				Name:     field.Name,
				PathName: pathName,
				Tag:      ParseTag(field),
			})
		}
	}

	actual, _ := typeCache.LoadOrStore(typ, info)
	return actual.(*TypeInfo)
}

// Field looks a field up by path segment. The JSON name wins over the Go name
// so that both encoded and hand written paths resolve.
func (info *TypeInfo) Field(segment string) (FieldInfo, bool) {
	if i, ok := info.byPath[segment]; ok {
		return info.Fields[i], true
	}
	for _, f := range info.Fields {
		if f.Name == segment {
			return f, true
		}
	}
	return FieldInfo{}, false
}
