package snapshot

import (
	"fmt"
	"testing"
)

func BenchmarkTake(b *testing.B) {
	type inner struct {
		Description string
		ID          int
	}

	type entry struct {
		Name        string
		Age         int
		Data        map[string]any
		Pointers    []*inner
		IsAvailable bool
	}

	items := make([]entry, 100)
	for i := range items {
		items[i] = entry{
			Name:        fmt.Sprintf("entry %d", i),
			Age:         i,
			Data:        map[string]any{"key1": "value1", "key2": 12345},
			Pointers:    []*inner{{Description: "inner", ID: i}},
			IsAvailable: i%2 == 0,
		}
	}

	for _, name := range Names() {
		c, _ := Lookup(name)
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Take(items, c); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
