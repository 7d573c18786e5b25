package graphdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrag/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCatalogRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DefineNodeTable(ctx, "Scholar", []schema.Property{
		{Name: "name", Type: "STRING"},
		{Name: "knownFor", Type: "STRING"},
	}))
	require.NoError(t, s.DefineNodeTable(ctx, "Prize", []schema.Property{
		{Name: "year", Type: "INT64"},
	}))
	require.NoError(t, s.DefineRelTable(ctx, "WON", "Scholar", "Prize", nil))

	g, err := s.Schema(ctx)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
	assert.Equal(t, "WON", g.Edges[0].Label)
	assert.Equal(t, "Scholar", g.Edges[0].From)
	assert.Equal(t, "Prize", g.Edges[0].To)

	labels := g.NodeLabels()
	assert.True(t, labels["Scholar"])
	assert.True(t, labels["Prize"])
}

func TestDefineNodeTableIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	props := []schema.Property{{Name: "name", Type: "STRING"}}
	require.NoError(t, s.DefineNodeTable(ctx, "Scholar", props))
	require.NoError(t, s.DefineNodeTable(ctx, "Scholar", props))

	g, err := s.Schema(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Len(t, g.Nodes[0].Properties, 1)
}

func TestDefineNodeTableRejectsEmptyLabel(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.DefineNodeTable(context.Background(), "", nil))
}

func TestInsertAndQueryNodes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DefineNodeTable(ctx, "Scholar", []schema.Property{
		{Name: "name", Type: "STRING"},
	}))

	id1, err := s.InsertNode(ctx, "Scholar", map[string]interface{}{"name": "Marie Curie"})
	require.NoError(t, err)
	id2, err := s.InsertNode(ctx, "Scholar", map[string]interface{}{"name": "Albert Einstein"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	nodes, err := s.nodesByLabel(ctx, "Scholar")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Marie Curie", nodes[0].props["name"])
}

func TestSeedPopulatesCatalogAndData(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, s))

	g, err := s.Schema(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)

	rows, err := s.Execute(ctx, "MATCH (s:Scholar) RETURN count(s)")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5), rows[0]["count(s)"])
}
