/*
Result is the outcome of one external fetch.

Fetchers never decide on a fallback themselves. They return a Result and the
aggregator folds it with an explicit default, recording a warning for every
data point that degraded.
*/

package datafetcher

import (
	"fmt"
	"sync"

	"github.com/aptomizer/core/internal/logger"
)

var resultLogger = logger.GetForComponent("fetch_result")

// Result carries either a value or the error that prevented fetching it.
type Result[T any] struct {
	Source string // short name of the dependency, e.g. "token_list"
	Value  T
	Err    error
}

// Ok wraps a successfully fetched value.
func Ok[T any](source string, value T) Result[T] {
	return Result[T]{Source: source, Value: value}
}

// Fail wraps a fetch error.
func Fail[T any](source string, err error) Result[T] {
	return Result[T]{Source: source, Err: err}
}

// OK reports whether the fetch succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Or returns the fetched value, or def if the fetch failed.
func (r Result[T]) Or(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}

// Fold returns the fetched value, or def if the fetch failed. A failure is
// logged and recorded in warnings.
func Fold[T any](r Result[T], def T, warnings *Warnings) T {
	if r.Err == nil {
		return r.Value
	}
	resultLogger.Warn().Err(r.Err).Str("source", r.Source).Msg("External fetch failed, using default")
	if warnings != nil {
		warnings.Add(fmt.Sprintf("%s unavailable: %v", r.Source, r.Err))
	}
	return def
}

// Warnings collects degradation notices. It is safe for concurrent use.
type Warnings struct {
	mu    sync.Mutex
	items []string
}

// Add records a warning.
func (w *Warnings) Add(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, msg)
}

// List returns the recorded warnings in insertion order.
func (w *Warnings) List() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.items))
	copy(out, w.items)
	return out
}
