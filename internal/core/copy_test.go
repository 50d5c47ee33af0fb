package core

import (
	"errors"
	"testing"
)

type copyItem struct {
	Name     string
	Tags     []string
	Children []*copyItem
	Attrs    map[string]any
	Any      any
	hidden   int
}

func TestCopy(t *testing.T) {
	src := &copyItem{
		Name:     "root",
		Tags:     []string{"a", "b"},
		Children: []*copyItem{{Name: "child"}},
		Attrs:    map[string]any{"n": 1.0, "list": []any{"x"}},
		Any:      map[string]any{"k": "v"},
		hidden:   7,
	}

	dst, err := Copy(src)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	if dst == src {
		t.Fatalf("Copy returned the same pointer")
	}
	if !Equal(src, dst) {
		t.Errorf("copy is not equal to source: %+v", dst)
	}
	if dst.hidden != 7 {
		t.Errorf("unexported field not preserved, got %d", dst.hidden)
	}

	// Mutating the copy must not touch the source.
	dst.Tags[0] = "changed"
	dst.Children[0].Name = "changed"
	dst.Attrs["list"].([]any)[0] = "changed"
	dst.Any.(map[string]any)["k"] = "changed"

	if src.Tags[0] != "a" || src.Children[0].Name != "child" ||
		src.Attrs["list"].([]any)[0] != "x" || src.Any.(map[string]any)["k"] != "v" {
		t.Errorf("source was modified through the copy: %+v", src)
	}
}

func TestCopy_Cycle(t *testing.T) {
	src := &copyItem{Name: "loop"}
	src.Children = []*copyItem{src}

	dst, err := Copy(src)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if dst.Children[0] != dst {
		t.Errorf("cycle not preserved in copy")
	}
}

func TestCopy_Unsupported(t *testing.T) {
	type withFunc struct {
		Fn func()
	}

	if _, err := Copy(withFunc{}); err != nil {
		t.Errorf("nil func should copy, got %v", err)
	}

	_, err := Copy(withFunc{Fn: func() {}})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	_, err = Copy(make(chan int))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for channel, got %v", err)
	}
}

func TestCopy_NilContainers(t *testing.T) {
	var s []int
	got, err := Copy(s)
	if err != nil || got != nil {
		t.Errorf("Copy(nil slice) = %v, %v", got, err)
	}

	var m map[string]int
	gotM, err := Copy(m)
	if err != nil || gotM != nil {
		t.Errorf("Copy(nil map) = %v, %v", gotM, err)
	}
}
