package patch

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/brunoga/deepwatch/internal/core"
)

type task struct {
	Title    string            `json:"title"`
	Done     bool              `json:"done"`
	Priority int               `json:"priority,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	Subtasks []*task           `json:"subtasks,omitempty"`
	Owner    any               `json:"owner,omitempty"`
}

// board returns a fresh task list for every test case, since applying may
// write through Subtasks pointers.
func board() []task {
	return []task{
		{Title: "write", Priority: 1, Labels: map[string]string{"area": "docs"}},
		{Title: "review", Subtasks: []*task{{Title: "lint"}}},
	}
}

func TestPatch_Builders(t *testing.T) {
	tests := []struct {
		name  string
		build func() Patch[[]task]
		want  []Operation
	}{
		{
			"add element",
			func() Patch[[]task] { return New[[]task]().Add("/1", task{Title: "plan"}) },
			[]Operation{{Op: OperationTypeAdd, Path: "/1", Value: task{Title: "plan"}}},
		},
		{
			"append",
			func() Patch[[]task] { return New[[]task]().Add("/-", task{}) },
			[]Operation{{Op: OperationTypeAdd, Path: "/-", Value: task{}}},
		},
		{
			"json field name",
			func() Patch[[]task] { return New[[]task]().Replace("/0/done", true) },
			[]Operation{{Op: OperationTypeReplace, Path: "/0/done", Value: true}},
		},
		{
			"map entry",
			func() Patch[[]task] { return New[[]task]().Add("/0/labels/area", "ops").Remove("/0/labels/area") },
			[]Operation{
				{Op: OperationTypeAdd, Path: "/0/labels/area", Value: "ops"},
				{Op: OperationTypeRemove, Path: "/0/labels/area"},
			},
		},
		{
			"through pointers",
			func() Patch[[]task] { return New[[]task]().Add("/1/subtasks/-", &task{Title: "test"}) },
			[]Operation{{Op: OperationTypeAdd, Path: "/1/subtasks/-", Value: &task{Title: "test"}}},
		},
		{
			"into an interface",
			func() Patch[[]task] { return New[[]task]().Replace("/0/owner/name", "ana") },
			[]Operation{{Op: OperationTypeReplace, Path: "/0/owner/name", Value: "ana"}},
		},
		{
			"move and copy",
			func() Patch[[]task] { return New[[]task]().Move("/0", "/-").Copy("/0/title", "/1/title") },
			[]Operation{
				{Op: OperationTypeMove, Path: "/-", From: "/0"},
				{Op: OperationTypeCopy, Path: "/1/title", From: "/0/title"},
			},
		},
		{
			"test",
			func() Patch[[]task] { return New[[]task]().Test("/0/priority", 1) },
			[]Operation{{Op: OperationTypeTest, Path: "/0/priority", Value: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build()
			if !reflect.DeepEqual([]Operation(got), tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPatch_BuildersPanic(t *testing.T) {
	tests := []struct {
		name  string
		build func()
	}{
		{"missing leading slash", func() { New[[]task]().Remove("0") }},
		{"unknown field", func() { New[[]task]().Replace("/0/missing", 1) }},
		{"bad index", func() { New[[]task]().Remove("/first") }},
		{"dash not last", func() { New[[]task]().Replace("/-/title", "x") }},
		{"dash on a map", func() { New[[]task]().Add("/0/labels/-", "x") }},
		{"type mismatch", func() { New[[]task]().Replace("/0/title", 3) }},
		{"into a scalar", func() { New[[]task]().Replace("/0/done/x", true) }},
		{"move type mismatch", func() { New[[]task]().Move("/0/title", "/0/done") }},
		{"copy from nowhere", func() { New[[]task]().Copy("/0/nope", "/0/title") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testPanics(t, tt.name+" should panic", tt.build)
		})
	}
}

func TestPatch_Apply(t *testing.T) {
	tests := []struct {
		name string
		p    Patch[[]task]
		want func([]task) []task
	}{
		{
			"insert",
			New[[]task]().Add("/1", task{Title: "plan"}),
			func(b []task) []task { return []task{b[0], {Title: "plan"}, b[1]} },
		},
		{
			"append",
			New[[]task]().Add("/-", task{Title: "ship"}),
			func(b []task) []task { return append(b, task{Title: "ship"}) },
		},
		{
			"remove",
			New[[]task]().Remove("/0"),
			func(b []task) []task { return b[1:] },
		},
		{
			"replace field",
			New[[]task]().Replace("/1/done", true),
			func(b []task) []task { b[1].Done = true; return b },
		},
		{
			"replace element",
			New[[]task]().Replace("/0", task{Title: "rewrite"}),
			func(b []task) []task { b[0] = task{Title: "rewrite"}; return b },
		},
		{
			"map add",
			New[[]task]().Add("/0/labels/owner", "ana"),
			func(b []task) []task { b[0].Labels = map[string]string{"area": "docs", "owner": "ana"}; return b },
		},
		{
			"map remove",
			New[[]task]().Remove("/0/labels/area"),
			func(b []task) []task { b[0].Labels = nil; return b },
		},
		{
			"escaped map key",
			New[[]task]().Add("/1/labels/a~1b", "x"),
			func(b []task) []task { b[1].Labels = map[string]string{"a/b": "x"}; return b },
		},
		{
			"through pointer",
			New[[]task]().Replace("/1/subtasks/0/done", true),
			func(b []task) []task { b[1].Subtasks[0].Done = true; return b },
		},
		{
			"append through pointer",
			New[[]task]().Add("/1/subtasks/-", &task{Title: "test"}),
			func(b []task) []task { b[1].Subtasks = append(b[1].Subtasks, &task{Title: "test"}); return b },
		},
		{
			"interface field",
			New[[]task]().Replace("/0/owner", "bo"),
			func(b []task) []task { b[0].Owner = "bo"; return b },
		},
		{
			"move to end",
			New[[]task]().Move("/0", "/-"),
			func(b []task) []task { return []task{b[1], b[0]} },
		},
		{
			"copy field",
			New[[]task]().Copy("/0/title", "/1/title"),
			func(b []task) []task { b[1].Title = "write"; return b },
		},
		{
			"test then replace",
			New[[]task]().Test("/0/title", "write").Replace("/0/title", "edit"),
			func(b []task) []task { b[0].Title = "edit"; return b },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := board()
			if err := tt.p.Apply(&target); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if want := tt.want(board()); !core.Equal(target, want) {
				t.Errorf("got %+v, want %+v", target, want)
			}
		})
	}
}

func TestPatch_ApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{"index out of bounds", Operation{Op: OperationTypeReplace, Path: "/5/title", Value: "x"}},
		{"dash with replace", Operation{Op: OperationTypeReplace, Path: "/-", Value: task{}}},
		{"unknown field", Operation{Op: OperationTypeReplace, Path: "/0/nope", Value: 1}},
		{"replace missing key", Operation{Op: OperationTypeReplace, Path: "/0/labels/none", Value: "x"}},
		{"remove missing key", Operation{Op: OperationTypeRemove, Path: "/0/labels/none"}},
		{"remove root", Operation{Op: OperationTypeRemove, Path: ""}},
		{"unconvertible value", Operation{Op: OperationTypeReplace, Path: "/0/priority", Value: "high"}},
		{"test mismatch", Operation{Op: OperationTypeTest, Path: "/0/title", Value: "other"}},
		{"move from nowhere", Operation{Op: OperationTypeMove, Path: "/-", From: "/9"}},
		{"unknown op", Operation{Op: "frobnicate", Path: "/0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := board()
			if err := (Patch[[]task]{tt.op}).Apply(&target); err == nil {
				t.Errorf("expected an error applying %v", tt.op)
			}
		})
	}

	t.Run("nil target", func(t *testing.T) {
		if err := New[[]task]().Apply(nil); err == nil {
			t.Error("expected an error for a nil target")
		}
	})

	t.Run("nil element", func(t *testing.T) {
		target := []*task{nil}
		p := Patch[[]*task]{{Op: OperationTypeReplace, Path: "/0/title", Value: "x"}}
		if err := p.Apply(&target); err == nil {
			t.Error("expected an error traversing a nil element")
		}
	})

	t.Run("earlier operations stay applied", func(t *testing.T) {
		target := board()
		p := Patch[[]task]{
			{Op: OperationTypeReplace, Path: "/0/title", Value: "edit"},
			{Op: OperationTypeRemove, Path: "/7"},
		}
		if err := p.Apply(&target); err == nil {
			t.Fatal("expected an error")
		}
		if target[0].Title != "edit" {
			t.Errorf("first operation lost: %+v", target[0])
		}
	})
}

// A replica fed with Diff output, sent as JSON, follows every state.
func TestPatch_ApplyDiffOverJSON(t *testing.T) {
	states := [][]task{
		{
			{Title: "write", Priority: 1, Labels: map[string]string{"area": "docs"}},
			{Title: "review", Subtasks: []*task{{Title: "lint"}}},
		},
		{
			{Title: "write", Done: true, Priority: 1, Labels: map[string]string{"area": "docs"}},
			{Title: "plan"},
			{Title: "review", Subtasks: []*task{{Title: "lint"}}},
		},
		{
			{Title: "write", Done: true, Priority: 3, Labels: map[string]string{"area": "docs"}},
			{Title: "plan", Labels: map[string]string{"owner": "ana"}},
		},
		{
			{Title: "plan", Labels: map[string]string{"owner": "ana"}, Owner: "ana"},
			{Title: "write", Done: true, Priority: 3, Subtasks: []*task{{Title: "proofread"}}},
		},
		{},
		{{Title: "ship"}},
	}

	replica, err := core.Copy(states[0])
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	for i := 1; i < len(states); i++ {
		p, err := Diff(states[i-1], states[i])
		if err != nil {
			t.Fatalf("step %d: Diff failed: %v", i, err)
		}

		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("step %d: Marshal failed: %v", i, err)
		}
		var decoded Patch[[]task]
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("step %d: Unmarshal failed: %v", i, err)
		}

		if err := decoded.Apply(&replica); err != nil {
			t.Fatalf("step %d: Apply failed: %v\n%s", i, err, data)
		}
		if !core.Equal(replica, states[i]) {
			t.Errorf("step %d: replica %+v, want %+v\n%s", i, replica, states[i], data)
		}
	}
}

// JSON tagged fields are addressed by their JSON name, with the Go name as a
// fallback.
func TestPatch_JSONNames(t *testing.T) {
	items := []task{{Title: "foo"}}

	p := New[[]task]().
		Replace("/0/title", "bar").
		Replace("/0/Priority", 3).
		Add("/-", task{Title: "baz"})

	if err := p.Apply(&items); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	want := []task{{Title: "bar", Priority: 3}, {Title: "baz"}}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("got %+v, want %+v", items, want)
	}
}

// Patches decoded from JSON carry float64 numbers and generic maps.
func TestPatch_ApplyDecodedJSON(t *testing.T) {
	data := `[
		{"op":"replace","path":"/0/title","value":"bar"},
		{"op":"add","path":"/1","value":{"title":"baz","priority":2,"labels":{"n":"2"},"subtasks":[{"title":"sub"}]}},
		{"op":"replace","path":"/0/priority","value":7},
		{"op":"test","path":"/0/priority","value":7}
	]`

	var p Patch[[]task]
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	items := []task{{Title: "foo"}}
	if err := p.Apply(&items); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	want := []task{
		{Title: "bar", Priority: 7},
		{Title: "baz", Priority: 2, Labels: map[string]string{"n": "2"}, Subtasks: []*task{{Title: "sub"}}},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("got %+v, want %+v", items, want)
	}
}

// Applying never writes through to slices shared with other values.
func TestPatch_ApplyCopiesSlices(t *testing.T) {
	shared := board()
	target := shared

	if err := New[[]task]().Replace("/0/title", "edit").Remove("/1").Apply(&target); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if shared[0].Title != "write" || len(shared) != 2 {
		t.Errorf("shared slice modified: %+v", shared)
	}
	if len(target) != 1 || target[0].Title != "edit" {
		t.Errorf("unexpected target %+v", target)
	}
}

// Inserted values are copies, so one patch can be applied to several targets.
func TestPatch_ApplySharedPatch(t *testing.T) {
	p := New[[]task]().Add("/-", task{Title: "new", Labels: map[string]string{"k": "v"}})

	first := board()
	second := board()
	if err := p.Apply(&first); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := p.Apply(&second); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	first[2].Labels["k"] = "changed"
	if second[2].Labels["k"] != "v" {
		t.Error("targets share an inserted map")
	}
	if p[0].Value.(task).Labels["k"] != "v" {
		t.Error("applying modified the patch")
	}
}

// Unexported fields are not addressable by paths.
func TestPatch_UnexportedFields(t *testing.T) {
	type note struct {
		Text   string `json:"text"`
		secret string
	}

	testPanics(t, "unexported field should not validate", func() {
		New[[]note]().Replace("/0/secret", "modified")
	})

	target := []note{{Text: "hi", secret: "original"}}
	p := Patch[[]note]{{Op: OperationTypeReplace, Path: "/0/secret", Value: "modified"}}
	if err := p.Apply(&target); err == nil {
		t.Fatal("expected error replacing an unexported field")
	}
	if target[0].secret != "original" {
		t.Errorf("secret: expected 'original', got %q", target[0].secret)
	}
}

func TestPatch_String(t *testing.T) {
	p := New[[]task]().Replace("/0/priority", 1).Remove("/0/labels/a")
	want := `{"op":"replace","path":"/0/priority","value":1}` + "\n" + `{"op":"remove","path":"/0/labels/a"}`
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// Helper function for testing panics
func testPanics(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Error(name)
		}
	}()
	f()
}
