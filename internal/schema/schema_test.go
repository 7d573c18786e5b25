package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalOrderIndependence(t *testing.T) {
	a := Graph{
		Nodes: []Node{
			{Label: "B", Properties: []Property{{Name: "y", Type: "STRING"}, {Name: "x", Type: "INT64"}}},
			{Label: "A"},
		},
		Edges: []Edge{
			{Label: "R", From: "B", To: "A"},
			{Label: "R", From: "A", To: "B"},
		},
	}
	b := Graph{
		Nodes: []Node{
			{Label: "A"},
			{Label: "B", Properties: []Property{{Name: "x", Type: "INT64"}, {Name: "y", Type: "STRING"}}},
		},
		Edges: []Edge{
			{Label: "R", From: "A", To: "B"},
			{Label: "R", From: "B", To: "A"},
		},
	}

	assert.Equal(t, a.Canonical(), b.Canonical())
}

func TestCanonicalDistinguishesContent(t *testing.T) {
	a := Graph{Nodes: []Node{{Label: "A"}}}
	b := Graph{Nodes: []Node{{Label: "B"}}}
	assert.NotEqual(t, a.Canonical(), b.Canonical())
}

func TestCanonicalDoesNotMutate(t *testing.T) {
	g := Graph{
		Nodes: []Node{{Label: "B"}, {Label: "A"}},
	}
	_ = g.Canonical()
	assert.Equal(t, "B", g.Nodes[0].Label, "canonicalization must not reorder the original")
}

func TestPrune(t *testing.T) {
	g := Graph{
		Nodes: []Node{{Label: "Scholar"}, {Label: "Prize"}, {Label: "City"}},
		Edges: []Edge{
			{Label: "WON", From: "Scholar", To: "Prize"},
			{Label: "BORN_IN", From: "Scholar", To: "City"},
		},
	}

	pruned := g.Prune(map[string]bool{"Scholar": true, "Prize": true})

	assert.Len(t, pruned.Nodes, 2)
	assert.Len(t, pruned.Edges, 1)
	assert.Equal(t, "WON", pruned.Edges[0].Label)
}

func TestPruneEmptyKeepReturnsAll(t *testing.T) {
	g := Graph{Nodes: []Node{{Label: "A"}}}
	assert.Equal(t, g, g.Prune(nil))
}
