package cypher

import (
	"regexp"
	"strings"
	"unicode"
)

// Rewrite patterns. LHS must be a property access (var.prop); an operand
// already wrapped in lower() cannot match because of the closing paren, which
// is what makes the rewrites idempotent.
var (
	eqLiteralRe       = regexp.MustCompile(`(\w+\.\w+)\s*=\s*'([^']*)'`)
	containsLiteralRe = regexp.MustCompile(`(?i)(\w+\.\w+)\s+CONTAINS\s+'([^']*)'`)
	toLowerRe         = regexp.MustCompile(`\bto_lower\s*\(`)
	apocCallRe        = regexp.MustCompile(`(?i)\bCALL\s+apoc\.[\w.]+(?:\([^)]*\))?\s*`)
)

// PostProcess applies the fixed rewrite-rule sequence to a generated query:
//
//  1. string-equality comparisons against literals become case-insensitive
//     (both operands wrapped in lower());
//  2. equality used for substring intent becomes a CONTAINS predicate;
//  3. runs of whitespace outside string literals collapse to single spaces
//     and the result is trimmed;
//  4. calls to functions the engine does not support are stripped or renamed.
//
// The rules run in this order; the function is pure and idempotent.
func PostProcess(query string) string {
	q := strings.TrimSpace(query)

	// Rules 1+2. A literal equality is rewritten straight to the lowered
	// CONTAINS form; a bare CONTAINS only gains the lower() wrapping.
	q = eqLiteralRe.ReplaceAllString(q, "lower($1) CONTAINS lower('$2')")
	q = containsLiteralRe.ReplaceAllString(q, "lower($1) CONTAINS lower('$2')")

	// Rule 3.
	q = collapseWhitespace(q)

	// Rule 4.
	return StripUnsupported(q)
}

// StripUnsupported removes calls to functions the target engine does not
// support: apoc procedure calls are dropped and to_lower is renamed to
// lower. Also used as the standalone repair strategy for
// unsupported-construct validation failures.
func StripUnsupported(q string) string {
	q = toLowerRe.ReplaceAllString(q, "lower(")
	q = apocCallRe.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}

// collapseWhitespace reduces every run of whitespace outside single-quoted
// string literals to one space and trims the ends. Literal contents pass
// through untouched.
func collapseWhitespace(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	inString := false
	pendingSpace := false
	for _, r := range q {
		if inString {
			b.WriteRune(r)
			if r == '\'' {
				inString = false
			}
			continue
		}
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
		if r == '\'' {
			inString = true
		}
	}
	return b.String()
}
