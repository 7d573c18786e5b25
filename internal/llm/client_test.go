package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"graphrag/internal/examples"
	"graphrag/internal/schema"
)

func TestGeneratePromptIncludesSchemaAndShots(t *testing.T) {
	g := schema.Graph{
		Nodes: []schema.Node{{Label: "Scholar", Properties: []schema.Property{{Name: "name", Type: "STRING"}}}},
		Edges: []schema.Edge{{Label: "WON", From: "Scholar", To: "Prize"}},
	}
	shots := []examples.Example{
		{Question: "who won?", Cypher: "MATCH (s:Scholar) RETURN s.name"},
	}

	prompt := generatePrompt("which scholars exist", g, shots)

	assert.Contains(t, prompt, "Scholar")
	assert.Contains(t, prompt, "WON")
	assert.Contains(t, prompt, "who won?")
	assert.Contains(t, prompt, "which scholars exist")
}

func TestRepairPromptIncludesError(t *testing.T) {
	prompt := repairPrompt("MATCH (s:Scholar", "Parser exception: unbalanced parentheses")
	assert.Contains(t, prompt, "MATCH (s:Scholar")
	assert.Contains(t, prompt, "unbalanced parentheses")
}

func TestAnswerPromptHandlesEmptyRows(t *testing.T) {
	prompt := answerPrompt("q", "RETURN 1", nil)
	assert.Contains(t, prompt, "(no rows)")
}

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "MATCH (s:Scholar) RETURN s.name", "MATCH (s:Scholar) RETURN s.name"},
		{"fenced", "```cypher\nMATCH (s:Scholar) RETURN s.name\n```", "MATCH (s:Scholar) RETURN s.name"},
		{"bare fence", "```\nRETURN 1\n```", "RETURN 1"},
		{"surrounding whitespace", "  RETURN 1 \n", "RETURN 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanQuery(tt.in))
		})
	}
}

func TestNewGenAIClientRequiresKey(t *testing.T) {
	_, err := NewGenAIClient(context.Background(), "", "gemini-2.0-flash")
	assert.Error(t, err)
}
