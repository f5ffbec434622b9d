package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAddDeduplicates(t *testing.T) {
	s := NewSet()

	assert.True(t, s.Add(Item{ID: "u1", Fields: map[string]any{"followers": 10}}))
	assert.True(t, s.Add(Item{ID: "u2"}))
	assert.False(t, s.Add(Item{ID: "u1", Fields: map[string]any{"followers": 99}}))

	assert.Equal(t, 2, s.Len())

	// First write wins: the re-add must not overwrite fields.
	it, ok := s.Get("u1")
	assert.True(t, ok)
	assert.Equal(t, 10, it.Fields["followers"])
}

func TestSetPreservesInsertionOrder(t *testing.T) {
	s := NewSet()
	for _, id := range []string{"c", "a", "b"} {
		s.Add(Item{ID: id})
	}

	assert.Equal(t, []string{"c", "a", "b"}, s.IDs())

	items := s.Items()
	assert.Len(t, items, 3)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "b", items[2].ID)
}

func TestSetIDsReturnsCopy(t *testing.T) {
	s := NewSet()
	s.Add(Item{ID: "u1"})
	s.Add(Item{ID: "u2"})

	ids := s.IDs()
	ids[0] = "mutated"

	assert.Equal(t, []string{"u1", "u2"}, s.IDs())
}

func TestSetHas(t *testing.T) {
	s := NewSet()
	s.Add(Item{ID: "u1"})

	assert.True(t, s.Has("u1"))
	assert.False(t, s.Has("u2"))
}
