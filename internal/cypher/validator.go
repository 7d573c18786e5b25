// Package cypher validates and post-processes generated Cypher queries.
// Validation is a dry-run check delegated to an external execution engine;
// post-processing is a fixed sequence of deterministic rewrite rules that
// bring generated queries in line with what the engine accepts.
package cypher

import (
	"strings"

	"graphrag/internal/logging"
)

// ErrorClass is an advisory classification of a validation failure. Control
// flow treats any non-empty error uniformly as invalid; the class only steers
// repair-strategy selection.
type ErrorClass string

const (
	ClassNone        ErrorClass = ""
	ClassSyntax      ErrorClass = "syntax"
	ClassUnsupported ErrorClass = "unsupported_construct"
	ClassEngine      ErrorClass = "engine"
)

// Result is the outcome of a dry-run validation.
type Result struct {
	Valid   bool
	Message string
	Class   ErrorClass
}

// DryRunFunc submits a query to the execution engine's planner/compiler check
// without executing it. A false ok carries the engine's first error message.
type DryRunFunc func(query string) (ok bool, errMsg string)

// Validator performs dry-run validation of Cypher queries. It is stateless
// apart from the injected dry-run capability and safe for concurrent use.
type Validator struct {
	dryRun DryRunFunc
}

// NewValidator creates a validator backed by the given dry-run capability.
func NewValidator(dryRun DryRunFunc) *Validator {
	return &Validator{dryRun: dryRun}
}

// Validate submits the query to the dry-run check. Any non-empty error is
// reported as invalid; classification is best-effort.
func (v *Validator) Validate(query string) Result {
	ok, msg := v.dryRun(query)
	if ok {
		return Result{Valid: true}
	}
	if msg == "" {
		msg = "dry-run rejected query without a message"
	}
	logging.Validate("dry-run rejected query: %s", msg)
	return Result{Valid: false, Message: msg, Class: Classify(msg)}
}

// Substring tables resolving engine error messages to classes. The tables are
// inherited policy: incomplete by construction, so anything unmatched falls
// through to ClassEngine.
var (
	syntaxMarkers = []string{
		"syntax",
		"parser",
		"parse error",
		"unexpected",
		"semicolon",
		"invalid input",
		"mismatched",
	}
	unsupportedMarkers = []string{
		"apoc",
		"unsupported",
		"not supported",
		"unknown function",
		"undefined function",
	}
)

// Classify maps an engine error message to an advisory error class.
func Classify(msg string) ErrorClass {
	if msg == "" {
		return ClassNone
	}
	lower := strings.ToLower(msg)
	for _, m := range unsupportedMarkers {
		if strings.Contains(lower, m) {
			return ClassUnsupported
		}
	}
	for _, m := range syntaxMarkers {
		if strings.Contains(lower, m) {
			return ClassSyntax
		}
	}
	return ClassEngine
}
