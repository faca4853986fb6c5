package registry

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterGetDelete(t *testing.T) {
	r := NewOrdered[string, int]()

	assert.False(t, r.Register("a", 1))
	assert.True(t, r.Register("a", 2))

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.True(t, r.Has("a"))

	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.True(t, r.Delete("a"))
	assert.False(t, r.Delete("a"))
	assert.Zero(t, r.Len())
}

func TestRegistry_KeysSorted(t *testing.T) {
	r := NewOrdered[string, bool]()
	for _, k := range []string{"c", "a", "b"} {
		r.Register(k, true)
	}
	assert.Equal(t, []string{"a", "b", "c"}, r.Keys())
}

func TestRegistry_CompareFunc(t *testing.T) {
	type pair struct{ a, b string }
	byB := func(x, y pair) int { return strings.Compare(x.b, y.b) }
	r := New[pair, int](byB)
	r.Register(pair{"x", "2"}, 2)
	r.Register(pair{"y", "1"}, 1)
	r.Register(pair{"x/y", "3"}, 3)

	assert.Equal(t, []pair{{"y", "1"}, {"x", "2"}, {"x/y", "3"}}, r.Keys())
	assert.True(t, r.Has(pair{"x", "2"}))
	assert.False(t, r.Has(pair{"x", "3"}))
}

func TestRegistry_AllIteratesSnapshot(t *testing.T) {
	r := NewOrdered[int, string]()
	r.Register(2, "two")
	r.Register(1, "one")

	var seen []int
	for k := range r.All() {
		seen = append(seen, k)
		r.Register(k+10, "added during iteration")
	}
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, 4, r.Len())

	var first []int
	for k := range r.All() {
		first = append(first, k)
		break
	}
	assert.Equal(t, []int{1}, first)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewOrdered[string, int]()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(fmt.Sprintf("k%d", i), i)
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Get(fmt.Sprintf("k%d", i))
			_ = r.Keys()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}
