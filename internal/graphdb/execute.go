package graphdb

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"graphrag/internal/logging"
)

// The embedded engine evaluates a deliberately small slice of Cypher: a
// single node pattern or a single directed hop, an optional AND-joined WHERE
// clause over property predicates, a RETURN list of property accesses or a
// count, and an optional LIMIT. Queries are expected in post-processed form
// (single-spaced, lowered comparisons). Anything beyond that is rejected
// with an explicit error rather than silently misevaluated.

var (
	queryShapeRe = regexp.MustCompile(`(?i)^MATCH \((\w+):(\w+)\)` +
		`(?:\s*-\s*\[\s*:(\w+)\s*\]\s*->\s*\((\w+):(\w+)\))?` +
		`(?: WHERE (.+?))?` +
		` RETURN (.+?)` +
		`(?: LIMIT (\d+))?;?$`)

	condLowerContainsRe = regexp.MustCompile(`(?i)^lower\((\w+)\.(\w+)\) CONTAINS lower\('([^']*)'\)$`)
	condContainsRe      = regexp.MustCompile(`(?i)^(\w+)\.(\w+) CONTAINS '([^']*)'$`)
	condStringEqRe      = regexp.MustCompile(`^(\w+)\.(\w+) = '([^']*)'$`)
	condNumberRe        = regexp.MustCompile(`^(\w+)\.(\w+) (=|<>|>=|<=|>|<) (-?\d+(?:\.\d+)?)$`)
	countRe             = regexp.MustCompile(`(?i)^count\(\s*(?:\*|\w+(?:\.\w+)?)?\s*\)$`)
)

// Row is one result row keyed by return expression.
type Row map[string]interface{}

type node struct {
	id    int64
	props map[string]interface{}
}

type condition struct {
	variable string
	prop     string
	op       string // contains_ci, contains, eq_str, and numeric comparators
	strVal   string
	numVal   float64
}

// Execute evaluates a post-processed query against the stored graph.
func (s *Store) Execute(ctx context.Context, query string) ([]Row, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Execute")
	defer timer.Stop()

	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	m := queryShapeRe.FindStringSubmatch(q)
	if m == nil {
		return nil, fmt.Errorf("query shape not supported by the embedded engine: %s", q)
	}

	varA, labelA := m[1], m[2]
	relLabel, varB, labelB := m[3], m[4], m[5]
	whereClause, returnClause, limitStr := m[6], m[7], m[8]

	conds, err := parseConditions(whereClause)
	if err != nil {
		return nil, err
	}

	items, countOnly, err := parseReturn(returnClause)
	if err != nil {
		return nil, err
	}

	limit := -1
	if limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
	}

	bindings, err := s.matchBindings(ctx, varA, labelA, relLabel, varB, labelB, conds)
	if err != nil {
		return nil, err
	}

	if countOnly {
		return []Row{{returnClause: int64(len(bindings))}}, nil
	}

	rows := make([]Row, 0, len(bindings))
	for _, b := range bindings {
		// limit is -1 when absent; a present LIMIT bounds the result exactly,
		// including LIMIT 0.
		if limit >= 0 && len(rows) >= limit {
			break
		}
		row := make(Row, len(items))
		for _, it := range items {
			n, ok := b[it.variable]
			if !ok {
				return nil, fmt.Errorf("unbound variable %s in RETURN", it.variable)
			}
			row[it.variable+"."+it.prop] = n.props[it.prop]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// matchBindings enumerates variable bindings satisfying the pattern and all
// conditions.
func (s *Store) matchBindings(ctx context.Context, varA, labelA, relLabel, varB, labelB string, conds []condition) ([]map[string]node, error) {
	nodesA, err := s.nodesByLabel(ctx, labelA)
	if err != nil {
		return nil, err
	}

	var bindings []map[string]node
	if relLabel == "" {
		for _, n := range nodesA {
			b := map[string]node{varA: n}
			if matchesAll(b, conds) {
				bindings = append(bindings, b)
			}
		}
		return bindings, nil
	}

	nodesB, err := s.nodesByLabel(ctx, labelB)
	if err != nil {
		return nil, err
	}
	byIDB := make(map[int64]node, len(nodesB))
	for _, n := range nodesB {
		byIDB[n.id] = n
	}
	byIDA := make(map[int64]node, len(nodesA))
	for _, n := range nodesA {
		byIDA[n.id] = n
	}

	edges, err := s.edgesByLabel(ctx, relLabel)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		from, okA := byIDA[e[0]]
		to, okB := byIDB[e[1]]
		if !okA || !okB {
			continue
		}
		b := map[string]node{varA: from, varB: to}
		if matchesAll(b, conds) {
			bindings = append(bindings, b)
		}
	}
	return bindings, nil
}

func (s *Store) nodesByLabel(ctx context.Context, label string) ([]node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, props FROM nodes WHERE label = ?`, label)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes %s: %w", label, err)
	}
	defer rows.Close()

	var out []node
	for rows.Next() {
		var n node
		var props string
		if err := rows.Scan(&n.id, &props); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(props), &n.props); err != nil {
			return nil, fmt.Errorf("corrupt node props for id %d: %w", n.id, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) edgesByLabel(ctx context.Context, label string) ([][2]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT from_id, to_id FROM edges WHERE label = ?`, label)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges %s: %w", label, err)
	}
	defer rows.Close()

	var out [][2]int64
	for rows.Next() {
		var pair [2]int64
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}

type returnItem struct {
	variable string
	prop     string
}

func parseReturn(clause string) ([]returnItem, bool, error) {
	clause = strings.TrimSpace(clause)
	if countRe.MatchString(clause) {
		return nil, true, nil
	}

	var items []returnItem
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		m := propRefRe.FindStringSubmatch(part)
		if m == nil || m[0] != part {
			return nil, false, fmt.Errorf("RETURN item not supported by the embedded engine: %s", part)
		}
		items = append(items, returnItem{variable: m[1], prop: m[2]})
	}
	if len(items) == 0 {
		return nil, false, fmt.Errorf("empty RETURN clause")
	}
	return items, false, nil
}

func parseConditions(clause string) ([]condition, error) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil, nil
	}

	var conds []condition
	for _, part := range splitAnd(clause) {
		part = strings.TrimSpace(part)
		switch {
		case condLowerContainsRe.MatchString(part):
			m := condLowerContainsRe.FindStringSubmatch(part)
			conds = append(conds, condition{variable: m[1], prop: m[2], op: "contains_ci", strVal: m[3]})
		case condContainsRe.MatchString(part):
			m := condContainsRe.FindStringSubmatch(part)
			conds = append(conds, condition{variable: m[1], prop: m[2], op: "contains", strVal: m[3]})
		case condStringEqRe.MatchString(part):
			m := condStringEqRe.FindStringSubmatch(part)
			conds = append(conds, condition{variable: m[1], prop: m[2], op: "eq_str", strVal: m[3]})
		case condNumberRe.MatchString(part):
			m := condNumberRe.FindStringSubmatch(part)
			val, err := strconv.ParseFloat(m[4], 64)
			if err != nil {
				return nil, fmt.Errorf("bad numeric literal in condition: %s", part)
			}
			conds = append(conds, condition{variable: m[1], prop: m[2], op: m[3], numVal: val})
		default:
			return nil, fmt.Errorf("predicate not supported by the embedded engine: %s", part)
		}
	}
	return conds, nil
}

// splitAnd splits on AND keywords outside string literals.
func splitAnd(clause string) []string {
	var parts []string
	inString := false
	last := 0
	upper := strings.ToUpper(clause)
	for i := 0; i+5 <= len(clause); i++ {
		if clause[i] == '\'' {
			inString = !inString
			continue
		}
		if !inString && upper[i:i+5] == " AND " {
			parts = append(parts, clause[last:i])
			last = i + 5
		}
	}
	parts = append(parts, clause[last:])
	return parts
}

func matchesAll(binding map[string]node, conds []condition) bool {
	for _, c := range conds {
		n, ok := binding[c.variable]
		if !ok {
			return false
		}
		if !matches(n.props[c.prop], c) {
			return false
		}
	}
	return true
}

func matches(value interface{}, c condition) bool {
	switch c.op {
	case "contains_ci":
		s, ok := value.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(c.strVal))
	case "contains":
		s, ok := value.(string)
		return ok && strings.Contains(s, c.strVal)
	case "eq_str":
		s, ok := value.(string)
		return ok && s == c.strVal
	default:
		f, ok := asFloat(value)
		if !ok {
			return false
		}
		switch c.op {
		case "=":
			return f == c.numVal
		case "<>":
			return f != c.numVal
		case ">":
			return f > c.numVal
		case "<":
			return f < c.numVal
		case ">=":
			return f >= c.numVal
		case "<=":
			return f <= c.numVal
		}
		return false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
