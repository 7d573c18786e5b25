package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrag/internal/schema"
)

func testSchema() schema.Graph {
	return schema.Graph{
		Nodes: []schema.Node{
			{Label: "Scholar", Properties: []schema.Property{
				{Name: "knownName", Type: "STRING"},
				{Name: "birthYear", Type: "INT64"},
			}},
			{Label: "Institution", Properties: []schema.Property{
				{Name: "name", Type: "STRING"},
			}},
		},
		Edges: []schema.Edge{
			{Label: "AFFILIATED_WITH", From: "Scholar", To: "Institution"},
		},
	}
}

// Same schema with every slice in reversed order.
func testSchemaReordered() schema.Graph {
	return schema.Graph{
		Nodes: []schema.Node{
			{Label: "Institution", Properties: []schema.Property{
				{Name: "name", Type: "STRING"},
			}},
			{Label: "Scholar", Properties: []schema.Property{
				{Name: "birthYear", Type: "INT64"},
				{Name: "knownName", Type: "STRING"},
			}},
		},
		Edges: []schema.Edge{
			{Label: "AFFILIATED_WITH", From: "Scholar", To: "Institution"},
		},
	}
}

func TestFingerprint(t *testing.T) {
	s := testSchema()

	t.Run("stable across schema field ordering", func(t *testing.T) {
		a := Fingerprint("who won?", testSchema())
		b := Fingerprint("who won?", testSchemaReordered())
		assert.Equal(t, a, b)
	})

	t.Run("distinct questions yield distinct keys", func(t *testing.T) {
		a := Fingerprint("who won?", s)
		b := Fingerprint("who lost?", s)
		assert.NotEqual(t, a, b)
	})

	t.Run("distinct schemas yield distinct keys", func(t *testing.T) {
		other := testSchema()
		other.Nodes = other.Nodes[:1]
		a := Fingerprint("who won?", s)
		b := Fingerprint("who won?", other)
		assert.NotEqual(t, a, b)
	})
}

func TestCacheLRUEviction(t *testing.T) {
	s := testSchema()
	c := New[string](2)

	c.Put("a", s, "ra")
	c.Put("b", s, "rb")
	c.Put("c", s, "rc")

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Contains("a", s), "a should have been evicted")
	assert.True(t, c.Contains("b", s))
	assert.True(t, c.Contains("c", s))
}

func TestCacheAccessOrderUpdate(t *testing.T) {
	s := testSchema()
	c := New[string](2)

	c.Put("a", s, "ra")
	c.Put("b", s, "rb")

	// Touching a promotes it, so b becomes the LRU victim.
	v, ok := c.Get("a", s)
	require.True(t, ok)
	assert.Equal(t, "ra", v)

	c.Put("c", s, "rc")

	assert.True(t, c.Contains("a", s), "a was promoted and must survive")
	assert.False(t, c.Contains("b", s), "b was LRU and must be evicted")
	assert.True(t, c.Contains("c", s))
}

func TestCacheEndToEnd(t *testing.T) {
	s := testSchema()
	c := New[string](2)

	c.Put("q1", s, "r1")
	c.Put("q2", s, "r2")

	v, ok := c.Get("q1", s)
	require.True(t, ok)
	assert.Equal(t, "r1", v)

	c.Put("q3", s, "r3")

	assert.True(t, c.Contains("q1", s))
	assert.False(t, c.Contains("q2", s))
	assert.True(t, c.Contains("q3", s))
}

func TestCachePutOverwrite(t *testing.T) {
	s := testSchema()
	c := New[string](2)

	c.Put("q", s, "old")
	c.Put("q", s, "new")

	assert.Equal(t, 1, c.Len())
	v, ok := c.Get("q", s)
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestCacheStats(t *testing.T) {
	s := testSchema()
	c := New[string](4)

	_, ok := c.Get("q1", s)
	assert.False(t, ok)

	c.Put("q1", s, "r1")
	_, ok = c.Get("q1", s)
	assert.True(t, ok)
	_, _ = c.Get("q2", s)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(2), st.Misses)
	assert.InDelta(t, 1.0/3.0, st.HitRate, 1e-9)
	assert.Equal(t, 1, st.Size)
	assert.Equal(t, 4, st.Capacity)
}

func TestCacheClear(t *testing.T) {
	s := testSchema()
	c := New[string](2)

	c.Put("q1", s, "r1")
	_, _ = c.Get("q1", s)
	_, _ = c.Get("q2", s)

	c.Clear()

	st := c.Stats()
	assert.Equal(t, uint64(0), st.Hits)
	assert.Equal(t, uint64(0), st.Misses)
	assert.Equal(t, 0, st.Size)
	assert.Equal(t, 0, c.Len())

	// Reusable after clear.
	c.Put("q1", s, "r1")
	v, ok := c.Get("q1", s)
	require.True(t, ok)
	assert.Equal(t, "r1", v)
}

func TestCacheCapacityClamp(t *testing.T) {
	s := testSchema()
	c := New[string](0)

	c.Put("q1", s, "r1")
	assert.Equal(t, 1, c.Len())
	c.Put("q2", s, "r2")
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Contains("q2", s))
}

// Eviction order must hold across many interleaved accesses, not just the
// three-entry cases above.
func TestCacheRecencyChurn(t *testing.T) {
	s := testSchema()
	c := New[int](3)

	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("q%d", i), s, i)
	}
	// Last three puts survive: q7, q8, q9.
	for i := 0; i < 7; i++ {
		assert.False(t, c.Contains(fmt.Sprintf("q%d", i), s))
	}
	for i := 7; i < 10; i++ {
		assert.True(t, c.Contains(fmt.Sprintf("q%d", i), s))
	}

	// Promote q7, then insert two more; q8 and q9 should fall out.
	_, ok := c.Get("q7", s)
	require.True(t, ok)
	c.Put("q10", s, 10)
	c.Put("q11", s, 11)

	assert.True(t, c.Contains("q7", s))
	assert.False(t, c.Contains("q8", s))
	assert.False(t, c.Contains("q9", s))
}

func TestCacheConcurrentAccess(t *testing.T) {
	s := testSchema()
	c := New[int](8)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				q := fmt.Sprintf("q%d", (g+i)%16)
				if i%2 == 0 {
					c.Put(q, s, i)
				} else {
					_, _ = c.Get(q, s)
				}
			}
		}(g)
	}
	wg.Wait()

	st := c.Stats()
	assert.LessOrEqual(t, st.Size, 8)
	assert.Equal(t, uint64(800), st.Hits+st.Misses)
}
