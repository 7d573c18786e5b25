package refine

import (
	"context"
	"strings"

	"graphrag/internal/cypher"
)

// Default repair strategies, one per error class. These preserve the
// inherited heuristic policy: a semicolon complaint gets a terminating
// semicolon, an unsupported-construct failure gets its offending calls
// stripped. The policy is known to be incomplete; classes and messages it
// does not cover are left for regeneration rather than guessed at.

// repairSyntax fixes the one syntax failure the policy knows about: a
// missing statement terminator.
func repairSyntax(_ context.Context, query, errMsg string) (string, error) {
	if strings.Contains(strings.ToLower(errMsg), "semicolon") {
		return strings.TrimRight(query, "; \t\n") + ";", nil
	}
	return query, nil
}

// repairUnsupported strips calls the engine rejects (apoc procedures,
// to_lower spellings).
func repairUnsupported(_ context.Context, query, _ string) (string, error) {
	return cypher.StripUnsupported(query), nil
}
