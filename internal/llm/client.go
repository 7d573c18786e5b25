// Package llm is the language-model boundary of the pipeline: query
// generation, query repair, and answer synthesis. Retries live in the
// refinement loop, not here.
package llm

import (
	"context"
	"fmt"
	"strings"

	"graphrag/internal/examples"
	"graphrag/internal/schema"
)

// Client is the generation interface the pipeline consumes.
type Client interface {
	// GenerateQuery produces a candidate query for the question given the
	// schema and few-shot examples.
	GenerateQuery(ctx context.Context, question string, g schema.Graph, shots []examples.Example) (string, error)

	// RepairQuery produces a corrected query given the failing query and the
	// validator's error message.
	RepairQuery(ctx context.Context, query, errMsg string) (string, error)

	// Answer synthesizes a natural-language answer from the question, the
	// executed query, and its rows.
	Answer(ctx context.Context, question, query string, rows []map[string]interface{}) (string, error)
}

// generatePrompt assembles the query-generation prompt.
func generatePrompt(question string, g schema.Graph, shots []examples.Example) string {
	var b strings.Builder
	b.WriteString("You translate questions into Cypher queries for the graph schema below.\n")
	b.WriteString("Return only the query, no prose, no code fences.\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(g.String())
	b.WriteString("\n")
	if len(shots) > 0 {
		b.WriteString("\nExamples:\n")
		for _, ex := range shots {
			fmt.Fprintf(&b, "Q: %s\nCypher: %s\n", ex.Question, ex.Cypher)
		}
	}
	fmt.Fprintf(&b, "\nQ: %s\nCypher:", question)
	return b.String()
}

// repairPrompt assembles the query-repair prompt.
func repairPrompt(query, errMsg string) string {
	var b strings.Builder
	b.WriteString("The following Cypher query was rejected. Fix it.\n")
	b.WriteString("Return only the corrected query, no prose, no code fences.\n\n")
	fmt.Fprintf(&b, "Query: %s\nError: %s\nCorrected:", query, errMsg)
	return b.String()
}

// answerPrompt assembles the answer-synthesis prompt.
func answerPrompt(question, query string, rows []map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("Answer the question from the query results. Be concise.\n\n")
	fmt.Fprintf(&b, "Question: %s\nQuery: %s\nResults:\n", question, query)
	if len(rows) == 0 {
		b.WriteString("(no rows)\n")
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%v\n", r)
	}
	b.WriteString("\nAnswer:")
	return b.String()
}

// cleanQuery strips code fences and surrounding noise from model output.
func cleanQuery(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```cypher")
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
