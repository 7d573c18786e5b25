// Package pipeline orchestrates the question-to-answer flow: schema
// retrieval, cache lookup, example selection, query generation with
// self-refinement, execution, answer synthesis, and cache population. Every
// stage runs inside a performance span.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"graphrag/internal/cache"
	"graphrag/internal/examples"
	"graphrag/internal/graphdb"
	"graphrag/internal/llm"
	"graphrag/internal/logging"
	"graphrag/internal/perf"
	"graphrag/internal/refine"
	"graphrag/internal/schema"
)

// Stage names recorded against the tracker, in run order.
const (
	StageSchemaRetrieval      = "schema_retrieval"
	StageCacheLookup          = "cache_lookup"
	StageSchemaPruning        = "schema_pruning"
	StageExampleSelection     = "example_selection"
	StageQueryGeneration      = "query_generation"
	StageValidationRefinement = "validation_refinement"
	StageQueryExecution       = "query_execution"
	StageAnswerGeneration     = "answer_generation"
	StageCacheStore           = "cache_store"
)

// Result is one completed pipeline run. Cached results carry the RunID of
// the run that produced them.
type Result struct {
	RunID    string                   `json:"run_id"`
	Question string                   `json:"question"`
	Query    string                   `json:"query"`
	Answer   string                   `json:"answer"`
	Rows     []map[string]interface{} `json:"rows"`
	Cached   bool                     `json:"cached"`
	Valid    bool                     `json:"valid"`
	Attempts int                      `json:"attempts"`
}

// Store is the graph-store surface the pipeline needs.
type Store interface {
	Schema(ctx context.Context) (schema.Graph, error)
	Execute(ctx context.Context, query string) ([]graphdb.Row, error)
}

// Pipeline wires the collaborators together. Safe for concurrent Run calls;
// the cache and tracker carry their own locks.
type Pipeline struct {
	cache   *cache.Cache[Result]
	refiner *refine.Loop
	tracker *perf.Tracker
	store   Store
	client  llm.Client
	corpus  *examples.Corpus
	selectK int
}

// Options configures optional pipeline behavior.
type Options struct {
	// SelectK is how many few-shot examples accompany each generation.
	SelectK int
}

// New assembles a pipeline.
func New(c *cache.Cache[Result], refiner *refine.Loop, tracker *perf.Tracker, store Store, client llm.Client, corpus *examples.Corpus, opts Options) *Pipeline {
	k := opts.SelectK
	if k <= 0 {
		k = 3
	}
	return &Pipeline{
		cache:   c,
		refiner: refiner,
		tracker: tracker,
		store:   store,
		client:  client,
		corpus:  corpus,
		selectK: k,
	}
}

// Tracker exposes the shared performance tracker.
func (p *Pipeline) Tracker() *perf.Tracker {
	return p.tracker
}

// CacheStats exposes the shared cache counters.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// Run answers a question end to end.
func (p *Pipeline) Run(ctx context.Context, question string) (Result, error) {
	runID := uuid.NewString()
	logging.Pipeline("run %s: %q", runID, question)

	var g schema.Graph
	err := p.tracker.Track(StageSchemaRetrieval, func() error {
		var err error
		g, err = p.store.Schema(ctx)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("schema retrieval failed: %w", err)
	}

	var hit Result
	var found bool
	span := p.tracker.StartStage(StageCacheLookup)
	hit, found = p.cache.Get(question, g)
	span.End()
	if found {
		logging.Cache("run %s: cache hit", runID)
		hit.Cached = true
		return hit, nil
	}

	var pruned schema.Graph
	_ = p.tracker.Track(StageSchemaPruning, func() error {
		pruned = g.Prune(relevantLabels(question, g))
		return nil
	})

	var shots []examples.Example
	_ = p.tracker.Track(StageExampleSelection, func() error {
		if p.corpus != nil {
			shots = p.corpus.Select(question, p.selectK)
		}
		return nil
	})

	var candidate string
	err = p.tracker.Track(StageQueryGeneration, func() error {
		var err error
		candidate, err = p.client.GenerateQuery(ctx, question, pruned, shots)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("query generation failed: %w", err)
	}

	var query string
	var valid bool
	var history []refine.Attempt
	span = p.tracker.StartStage(StageValidationRefinement)
	query, valid, history = p.refiner.Refine(ctx, candidate,
		func(ctx context.Context) (string, error) {
			return p.client.GenerateQuery(ctx, question, pruned, shots)
		},
		func(ctx context.Context, q, msg string) (string, error) {
			return p.client.RepairQuery(ctx, q, msg)
		})
	span.End()
	if !valid {
		// Best effort: run the last candidate anyway, the engine gives the
		// definitive verdict.
		logging.Pipeline("run %s: refinement exhausted after %d attempts, executing last candidate", runID, len(history))
	}

	var rows []graphdb.Row
	err = p.tracker.Track(StageQueryExecution, func() error {
		var err error
		rows, err = p.store.Execute(ctx, query)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("query execution failed: %w", err)
	}

	plainRows := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		plainRows[i] = map[string]interface{}(r)
	}

	var answer string
	err = p.tracker.Track(StageAnswerGeneration, func() error {
		var err error
		answer, err = p.client.Answer(ctx, question, query, plainRows)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("answer generation failed: %w", err)
	}

	result := Result{
		RunID:    runID,
		Question: question,
		Query:    query,
		Answer:   answer,
		Rows:     plainRows,
		Valid:    valid,
		Attempts: len(history),
	}

	span = p.tracker.StartStage(StageCacheStore)
	p.cache.Put(question, g, result)
	span.End()

	logging.Pipeline("run %s: done, %d rows, %d attempts", runID, len(rows), len(history))
	return result, nil
}

// relevantLabels keeps node labels whose name appears in the question. An
// empty match keeps everything; pruning is an optimization, not a filter.
func relevantLabels(question string, g schema.Graph) map[string]bool {
	q := strings.ToLower(question)
	keep := make(map[string]bool)
	for label := range g.NodeLabels() {
		if strings.Contains(q, strings.ToLower(label)) {
			keep[label] = true
		}
	}
	if len(keep) == 0 {
		return nil
	}
	// Retain endpoints of edges touching a kept label so joins survive.
	for _, e := range g.Edges {
		if keep[e.From] {
			keep[e.To] = true
		}
		if keep[e.To] {
			keep[e.From] = true
		}
	}
	return keep
}
