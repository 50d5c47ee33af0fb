package core

import (
	"reflect"
	"strings"
)

// StructTag holds the per-field options that influence snapshots and diffs.
type StructTag struct {
	// Ignore excludes the field from equality checks and diffs.
	Ignore bool
	// Atomic makes diffs replace the field as a whole instead of descending
	// into it.
	Atomic bool
}

// ParseTag reads the `deep` tag of a struct field. A `json:"-"` tag also
// marks the field as ignored so paths and JSON encoding agree.
func ParseTag(field reflect.StructField) StructTag {
	st := StructTag{}
	if field.Tag.Get("json") == "-" {
		st.Ignore = true
	}

	tag := field.Tag.Get("deep")
	if tag == "" {
		return st
	}

	for _, part := range strings.Split(tag, ",") {
		switch strings.TrimSpace(part) {
		case "-":
			st.Ignore = true
		case "atomic":
			st.Atomic = true
		}
	}

	return st
}

// jsonName returns the name encoding/json would use for field, or "" when the
// tag does not rename it.
func jsonName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}
