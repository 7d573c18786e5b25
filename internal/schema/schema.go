// Package schema models a labelled property graph schema and provides a
// byte-stable canonical form used for cache fingerprinting. Two schemas that
// differ only in the in-memory ordering of their nodes, edges or properties
// canonicalize to identical bytes.
package schema

import (
	"encoding/json"
	"sort"
)

// Property describes a single node or edge property.
type Property struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Node describes a node table in the graph.
type Node struct {
	Label      string     `json:"label"`
	Properties []Property `json:"properties,omitempty"`
}

// Edge describes a relationship table in the graph.
type Edge struct {
	Label      string     `json:"label"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Properties []Property `json:"properties,omitempty"`
}

// Graph is the full schema of a property graph.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Canonical returns a byte-stable representation of the schema. Nodes are
// sorted by label, edges by (label, from, to), and properties by name, so the
// result is independent of construction order.
func (g Graph) Canonical() []byte {
	c := g.normalized()
	data, err := json.Marshal(c)
	if err != nil {
		// Marshaling a struct of strings cannot fail; keep the contract total.
		return []byte{}
	}
	return data
}

// normalized returns a deep copy with all slices in canonical order.
func (g Graph) normalized() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = Node{Label: n.Label, Properties: sortedProps(n.Properties)}
	}
	for i, e := range g.Edges {
		out.Edges[i] = Edge{Label: e.Label, From: e.From, To: e.To, Properties: sortedProps(e.Properties)}
	}
	sort.Slice(out.Nodes, func(i, j int) bool {
		return out.Nodes[i].Label < out.Nodes[j].Label
	})
	sort.Slice(out.Edges, func(i, j int) bool {
		a, b := out.Edges[i], out.Edges[j]
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return out
}

func sortedProps(props []Property) []Property {
	if len(props) == 0 {
		return nil
	}
	out := make([]Property, len(props))
	copy(out, props)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Prune returns a copy of the graph containing only the node labels in keep
// and the edges whose endpoints both survive. Used by the schema-pruning
// stage to shrink the prompt for generation.
func (g Graph) Prune(keep map[string]bool) Graph {
	if len(keep) == 0 {
		return g
	}
	var out Graph
	for _, n := range g.Nodes {
		if keep[n.Label] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if keep[e.From] && keep[e.To] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// NodeLabels returns the set of node labels in the schema.
func (g Graph) NodeLabels() map[string]bool {
	labels := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.Label] = true
	}
	return labels
}

// String renders the canonical JSON form, suitable for prompt embedding.
func (g Graph) String() string {
	return string(g.Canonical())
}
