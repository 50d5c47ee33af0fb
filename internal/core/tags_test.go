package core

import (
	"reflect"
	"testing"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag      string
		expected StructTag
	}{
		{`deep:"-"`, StructTag{Ignore: true}},
		{`deep:"atomic"`, StructTag{Atomic: true}},
		{`deep:"atomic, -"`, StructTag{Ignore: true, Atomic: true}},
		{`json:"-"`, StructTag{Ignore: true}},
		{`deep:"-" json:"foo"`, StructTag{Ignore: true}},
		{`json:"foo"`, StructTag{}},
		{`deep:"unknown"`, StructTag{}},
	}

	for _, tt := range tests {
		field := reflect.StructField{Tag: reflect.StructTag(tt.tag)}
		got := ParseTag(field)
		if got != tt.expected {
			t.Errorf("ParseTag(%s) = %+v, want %+v", tt.tag, got, tt.expected)
		}
	}
}

func TestJSONName(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{`json:"name"`, "name"},
		{`json:"name,omitempty"`, "name"},
		{`json:",omitempty"`, ""},
		{`json:"-"`, ""},
		{``, ""},
	}

	for _, tt := range tests {
		field := reflect.StructField{Tag: reflect.StructTag(tt.tag)}
		if got := jsonName(field); got != tt.want {
			t.Errorf("jsonName(%s) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
