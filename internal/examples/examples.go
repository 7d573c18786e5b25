// Package examples holds the few-shot corpus that grounds query generation.
// Selection is plain keyword overlap over lowercased tokens.
package examples

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"graphrag/internal/logging"
)

// Example pairs a natural-language question with its known-good query.
type Example struct {
	Question string `yaml:"question"`
	Cypher   string `yaml:"cypher"`
}

// Corpus is a loaded example set.
type Corpus struct {
	examples []Example
}

// Load reads a YAML corpus file.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read example corpus: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML corpus document.
func Parse(data []byte) (*Corpus, error) {
	var doc struct {
		Examples []Example `yaml:"examples"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse example corpus: %w", err)
	}
	for i, ex := range doc.Examples {
		if strings.TrimSpace(ex.Question) == "" || strings.TrimSpace(ex.Cypher) == "" {
			return nil, fmt.Errorf("example %d is missing question or cypher", i)
		}
	}
	logging.Pipeline("loaded %d few-shot examples", len(doc.Examples))
	return &Corpus{examples: doc.Examples}, nil
}

// Len reports the corpus size.
func (c *Corpus) Len() int {
	return len(c.examples)
}

// All returns a copy of the corpus.
func (c *Corpus) All() []Example {
	out := make([]Example, len(c.examples))
	copy(out, c.examples)
	return out
}

// Select returns up to k examples ranked by token overlap with the question.
// Ties break on corpus order so selection is deterministic.
func (c *Corpus) Select(question string, k int) []Example {
	if k <= 0 || len(c.examples) == 0 {
		return nil
	}

	qTokens := tokenize(question)
	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, 0, len(c.examples))
	for i, ex := range c.examples {
		ranked = append(ranked, scored{idx: i, score: overlap(qTokens, tokenize(ex.Question))})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]Example, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, c.examples[r.idx])
	}
	return out
}

// stopwords that carry no signal for overlap scoring.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true, "on": true,
	"is": true, "are": true, "was": true, "were": true, "to": true, "and": true,
	"what": true, "which": true, "who": true, "how": true, "many": true,
	"do": true, "does": true, "did": true,
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if !stopwords[f] {
			tokens[f] = true
		}
	}
	return tokens
}

func overlap(a, b map[string]bool) int {
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}
