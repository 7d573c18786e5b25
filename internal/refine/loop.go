// Package refine implements the bounded generate→validate→repair
// self-refinement loop for generated Cypher queries. Each attempt
// post-processes the current candidate, dry-run validates it, and on failure
// derives the next candidate through a repair strategy. Exhausting the
// attempt budget is a normal terminal outcome, never an error.
package refine

import (
	"context"

	"graphrag/internal/cypher"
	"graphrag/internal/logging"
)

// State names the loop's position for logging and inspection.
type State string

const (
	StateGenerated     State = "generated"
	StatePostProcessed State = "post_processed"
	StateValidated     State = "validated"
	StateRepaired      State = "repaired"
	StateFailed        State = "failed"
)

// DefaultMaxAttempts bounds the loop when the caller does not.
const DefaultMaxAttempts = 3

// Attempt records one generate/validate cycle. Message is empty when the
// attempt validated successfully.
type Attempt struct {
	Index   int    `json:"index"`
	Query   string `json:"query"`
	Message string `json:"message,omitempty"`
}

// GenerateFunc produces a fresh candidate query, typically via an LLM. It is
// an opaque, potentially slow, fallible call.
type GenerateFunc func(ctx context.Context) (string, error)

// RepairFunc produces a corrected candidate given the failing candidate and
// its validation error message.
type RepairFunc func(ctx context.Context, query, errMsg string) (string, error)

// Loop drives repeated refinement attempts against a validator. A Loop is
// purely sequential within a single Refine call and holds no cross-call
// state besides its configuration, so one instance may serve many calls.
type Loop struct {
	validator   *cypher.Validator
	maxAttempts int
	strategies  map[cypher.ErrorClass]RepairFunc
}

// NewLoop creates a refinement loop with the default repair-strategy table.
// maxAttempts values below 1 fall back to DefaultMaxAttempts.
func NewLoop(validator *cypher.Validator, maxAttempts int) *Loop {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	l := &Loop{
		validator:   validator,
		maxAttempts: maxAttempts,
		strategies:  make(map[cypher.ErrorClass]RepairFunc),
	}
	l.RegisterStrategy(cypher.ClassSyntax, repairSyntax)
	l.RegisterStrategy(cypher.ClassUnsupported, repairUnsupported)
	return l
}

// RegisterStrategy installs (or replaces) the repair strategy for an error
// class. Classes without a strategy leave the candidate unchanged.
func (l *Loop) RegisterStrategy(class cypher.ErrorClass, fn RepairFunc) {
	l.strategies[class] = fn
}

// MaxAttempts returns the configured attempt budget.
func (l *Loop) MaxAttempts() int {
	return l.maxAttempts
}

// Refine runs up to maxAttempts post-process/validate/repair cycles starting
// from initial. When initial is empty and generate is non-nil, the first
// candidate is generated. A non-nil repair takes precedence over the
// registered strategy table for deriving the next candidate; when repair
// produces no change, generate (if non-nil) is asked for a fresh candidate.
//
// The returned history holds exactly one Attempt per executed cycle, in
// order. ok=false after the final attempt is a normal outcome; the last
// candidate is still returned for best-effort use by the caller.
func (l *Loop) Refine(ctx context.Context, initial string, generate GenerateFunc, repair RepairFunc) (string, bool, []Attempt) {
	log := logging.Get(logging.CategoryRefine)
	candidate := initial
	history := make([]Attempt, 0, l.maxAttempts)

	if candidate == "" && generate != nil {
		fresh, err := generate(ctx)
		if err != nil {
			log.Error("initial generation failed: %v", err)
		} else {
			candidate = fresh
		}
	}
	log.Debug("state=%s candidate ready", StateGenerated)

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		processed := cypher.PostProcess(candidate)
		log.Debug("attempt %d state=%s", attempt, StatePostProcessed)

		res := l.validator.Validate(processed)
		if res.Valid {
			history = append(history, Attempt{Index: attempt, Query: processed})
			log.Debug("attempt %d state=%s", attempt, StateValidated)
			return processed, true, history
		}

		history = append(history, Attempt{Index: attempt, Query: processed, Message: res.Message})
		log.Info("attempt %d invalid (%s): %s", attempt, res.Class, res.Message)

		if attempt == l.maxAttempts {
			break
		}

		next := l.nextCandidate(ctx, processed, res, generate, repair)
		if next != processed {
			log.Debug("attempt %d state=%s", attempt, StateRepaired)
		}
		candidate = next
	}

	log.Info("refinement exhausted after %d attempts (state=%s)", l.maxAttempts, StateFailed)
	return cypher.PostProcess(candidate), false, history
}

// nextCandidate derives the next candidate: caller repair first, then the
// registered strategy for the error class, then a fresh generation when
// nothing changed. Repair errors are logged and treated as no-change; the
// loop itself never fails.
func (l *Loop) nextCandidate(ctx context.Context, current string, res cypher.Result, generate GenerateFunc, repair RepairFunc) string {
	log := logging.Get(logging.CategoryRefine)

	if repair != nil {
		fixed, err := repair(ctx, current, res.Message)
		if err != nil {
			log.Error("caller repair failed: %v", err)
		} else if fixed != "" && fixed != current {
			return fixed
		}
	}

	if strategy, ok := l.strategies[res.Class]; ok && strategy != nil {
		fixed, err := strategy(ctx, current, res.Message)
		if err != nil {
			log.Error("strategy repair (%s) failed: %v", res.Class, err)
		} else if fixed != "" && fixed != current {
			return fixed
		}
	}

	if generate != nil {
		fresh, err := generate(ctx)
		if err != nil {
			log.Error("regeneration failed: %v", err)
		} else if fresh != "" {
			return fresh
		}
	}

	return current
}
