package graphdb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"graphrag/internal/logging"
)

// Reference-extraction patterns. They run against the query with string
// literals blanked out, so quoted text cannot fake a label or property.
var (
	nodePatternRe = regexp.MustCompile(`\(\s*(\w*)\s*:\s*(\w+)`)
	relPatternRe  = regexp.MustCompile(`\[\s*\w*\s*:\s*(\w+)`)
	propRefRe     = regexp.MustCompile(`\b(\w+)\.(\w+)\b`)
)

// Explain is the planner dry-run check: it binds the query against the
// catalog and reports the first structural or semantic error without
// executing anything. The signature matches the validator's DryRunFunc.
func (s *Store) Explain(query string) (ok bool, errMsg string) {
	timer := logging.StartTimer(logging.CategoryStore, "Explain")
	defer timer.Stop()

	q := strings.TrimSpace(query)
	if q == "" {
		return false, "Parser exception: empty query"
	}
	if strings.Count(q, "'")%2 != 0 {
		return false, "Parser exception: unterminated string literal"
	}

	blanked := blankLiterals(q)

	if !balanced(blanked, '(', ')') {
		return false, "Parser exception: unbalanced parentheses"
	}
	if !balanced(blanked, '[', ']') {
		return false, "Parser exception: unbalanced brackets"
	}

	upper := strings.ToUpper(blanked)
	if !strings.Contains(upper, "RETURN") {
		return false, "Parser exception: query has no RETURN clause"
	}
	if strings.Contains(strings.ToLower(blanked), "apoc.") {
		return false, "unknown function: apoc procedures are not supported"
	}

	g, err := s.Schema(context.Background())
	if err != nil {
		return false, fmt.Sprintf("catalog unavailable: %v", err)
	}

	nodeLabels := g.NodeLabels()
	relLabels := make(map[string]bool, len(g.Edges))
	nodeProps := make(map[string]map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		props := make(map[string]bool, len(n.Properties))
		for _, p := range n.Properties {
			props[p.Name] = true
		}
		nodeProps[n.Label] = props
	}
	for _, e := range g.Edges {
		relLabels[e.Label] = true
	}

	// Bind pattern variables to labels, checking labels against the catalog.
	binding := make(map[string]string)
	for _, m := range nodePatternRe.FindAllStringSubmatch(blanked, -1) {
		variable, label := m[1], m[2]
		if !nodeLabels[label] {
			return false, fmt.Sprintf("Binder exception: node table %s does not exist", label)
		}
		if variable != "" {
			binding[variable] = label
		}
	}
	for _, m := range relPatternRe.FindAllStringSubmatch(blanked, -1) {
		if !relLabels[m[1]] {
			return false, fmt.Sprintf("Binder exception: relationship table %s does not exist", m[1])
		}
	}

	// Property references on bound variables must exist on the bound table.
	for _, m := range propRefRe.FindAllStringSubmatch(blanked, -1) {
		variable, prop := m[1], m[2]
		label, bound := binding[variable]
		if !bound {
			continue
		}
		if !nodeProps[label][prop] {
			return false, fmt.Sprintf("Binder exception: property %s does not exist on table %s", prop, label)
		}
	}

	return true, ""
}

// blankLiterals replaces the contents of single-quoted literals with spaces,
// preserving offsets, so structural scans ignore quoted text.
func blankLiterals(q string) string {
	out := []rune(q)
	inString := false
	for i, r := range out {
		if r == '\'' {
			inString = !inString
			continue
		}
		if inString {
			out[i] = ' '
		}
	}
	return string(out)
}

func balanced(q string, opening, closing rune) bool {
	depth := 0
	for _, r := range q {
		switch r {
		case opening:
			depth++
		case closing:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
