package deepwatch

import (
	"reflect"
	"strings"
	"testing"

	"github.com/brunoga/deepwatch/reactive"
)

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
	Team string `json:"team"`
}

func newPeople(rt *reactive.Runtime) *Collection[person] {
	return newTestCollection(rt, []person{
		{Name: "ana", Age: 31, Team: "red"},
		{Name: "bo", Age: 25, Team: "blue"},
		{Name: "cy", Age: 42, Team: "red"},
		{Name: "di", Age: 25, Team: "green"},
	})
}

func TestQuery(t *testing.T) {
	rt := newTestRuntime(nil)
	c := newPeople(rt)
	empty := newTestCollection[person](rt, nil)

	names := func(ps []person) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}
	over30 := func(p person) bool { return p.Age > 30 }

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Filter", names(Filter(c, over30)), []string{"ana", "cy"}},
		{"Reject", names(Reject(c, over30)), []string{"bo", "di"}},
		{"Map", Map(c, func(p person) string { return strings.ToUpper(p.Name) }), []string{"ANA", "BO", "CY", "DI"}},
		{"Reduce", Reduce(c, 0, func(acc int, p person) int { return acc + p.Age }), 123},
		{"Some", Some(c, func(p person) bool { return p.Team == "green" }), true},
		{"Some/none", Some(c, func(p person) bool { return p.Team == "pink" }), false},
		{"Every", Every(c, func(p person) bool { return p.Age >= 25 }), true},
		{"Every/empty", Every(empty, over30), true},
		{"CountBy", CountBy(c, func(p person) string { return p.Team }), map[string]int{"red": 2, "blue": 1, "green": 1}},
		{"SortBy", names(SortBy(c, func(p person) int { return p.Age })), []string{"bo", "di", "ana", "cy"}},
		{"IndexOf", IndexOf(c, person{Name: "cy", Age: 42, Team: "red"}), 2},
		{"IndexOf/missing", IndexOf(c, person{Name: "zed"}), -1},
		{"IsEmpty", IsEmpty(c), false},
		{"IsEmpty/empty", IsEmpty(empty), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestQuery_Lookups(t *testing.T) {
	rt := newTestRuntime(nil)
	c := newPeople(rt)
	empty := newTestCollection[person](rt, nil)

	if p, ok := Find(c, func(p person) bool { return p.Age == 25 }); !ok || p.Name != "bo" {
		t.Errorf("Find() = %v, %v, want bo", p, ok)
	}
	if _, ok := Find(c, func(p person) bool { return p.Age > 100 }); ok {
		t.Error("Find matched nothing but returned true")
	}

	if p, ok := First(c); !ok || p.Name != "ana" {
		t.Errorf("First() = %v, %v", p, ok)
	}
	if p, ok := Last(c); !ok || p.Name != "di" {
		t.Errorf("Last() = %v, %v", p, ok)
	}
	if _, ok := First(empty); ok {
		t.Error("First on an empty collection returned true")
	}
	if _, ok := Last(empty); ok {
		t.Error("Last on an empty collection returned true")
	}

	groups := GroupBy(c, func(p person) int { return p.Age })
	if got := len(groups[25]); got != 2 || groups[25][0].Name != "bo" || groups[25][1].Name != "di" {
		t.Errorf("GroupBy()[25] = %v", groups[25])
	}

	byName := KeyBy(c, func(p person) string { return p.Name })
	if byName["cy"].Age != 42 || len(byName) != 4 {
		t.Errorf("KeyBy() = %v", byName)
	}

	var visited []int
	Each(c, func(i int, _ person) {
		visited = append(visited, i)
	})
	if !reflect.DeepEqual(visited, []int{0, 1, 2, 3}) {
		t.Errorf("Each visited %v", visited)
	}
}

func TestQuery_Tracks(t *testing.T) {
	rt := newTestRuntime(nil)
	c := newPeople(rt)

	var seen []int
	rt.Autorun("adults", func(*reactive.Reaction) error {
		seen = append(seen, len(Filter(c, func(p person) bool { return p.Age > 30 })))
		return nil
	})

	c.Add(person{Name: "ed", Age: 50})
	c.Remove(person{Name: "ana", Age: 31, Team: "red"})

	if want := []int{2, 3, 2}; !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}
