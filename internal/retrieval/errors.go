// Package retrieval implements the ranking engine of the knowledge
// assistant: hybrid vector+keyword search with reciprocal rank fusion,
// relevance filtering, near-duplicate suppression, temporal scoping,
// two-tier memory selection, multi-constraint context budgeting, and
// attention-aware arrangement of the final context block.
package retrieval

import (
	"errors"
	"fmt"
)

// EmbeddingError wraps a failure to generate a query embedding. The branch
// that needed the embedding is skipped, never retried; the other branch
// still runs.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding: %v", e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// StoreQueryError wraps a datastore failure. The failed branch degrades to
// an empty result; a partial context is strictly better than no answer.
type StoreQueryError struct {
	Op  string // "vector", "keyword", "memory_profile", "memory_contextual"
	Err error
}

func (e *StoreQueryError) Error() string { return fmt.Sprintf("store %s query: %v", e.Op, e.Err) }
func (e *StoreQueryError) Unwrap() error { return e.Err }

// ErrInvalidBudget is the sentinel wrapped by budget validation failures.
// Malformed budget options are programmer errors, rejected eagerly before
// any I/O.
var ErrInvalidBudget = errors.New("invalid budget")
