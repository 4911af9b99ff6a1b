// Package sqlq turns a directory of .sql files into named queries. Each query
// runs its statement through an Adapter and hands back a future.Future (or a
// future.Observable) instead of blocking the caller.
package sqlq

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownQuery = errors.New("unknown query")

type (
	Row  = map[string]any
	Rows = []Row
)

// Args is a positional parameter payload.
type Args []any

// NamedArgs is a named parameter payload. How names map onto placeholders is
// up to the Adapter.
type NamedArgs map[string]any

// Callback receives the outcome of one statement execution.
type Callback func(rows Rows, err error)

// Adapter executes statements against a real database. Query must call done
// exactly once, from any goroutine. params is nil when the caller passed none.
type Adapter interface {
	Query(ctx context.Context, sql string, params any, done Callback)
}

type AdapterFunc func(ctx context.Context, sql string, params any, done Callback)

func (f AdapterFunc) Query(ctx context.Context, sql string, params any, done Callback) {
	f(ctx, sql, params, done)
}

// ExecutionError carries whatever error the Adapter reported. Its message is
// the adapter's message unchanged.
type ExecutionError struct {
	Query string
	Raw   error
}

func (e *ExecutionError) Error() string {
	return e.Raw.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Raw
}

type panicError struct {
	v any
}

func (e panicError) Error() string {
	return fmt.Sprintf("adapter panicked: %v", e.v)
}
