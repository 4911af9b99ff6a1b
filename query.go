package sqlq

import (
	"context"
	"log/slog"

	"github.com/abekoh/sqlq/future"
	"github.com/abekoh/sqlq/internal/file"
	"github.com/oklog/ulid/v2"
)

type Statement = file.Statement

type binding struct {
	adapter Adapter
	stmt    Statement
	logger  *slog.Logger
}

// Query is a statement bound to an Adapter. Every call is an independent
// round trip with its own Future.
type Query struct {
	binding
}

func Bind(adapter Adapter, stmt Statement) *Query {
	return &Query{binding{adapter: adapter, stmt: stmt, logger: slog.Default()}}
}

func (q *Query) Name() string {
	return q.stmt.Name
}

func (q *Query) SQL() string {
	return q.stmt.SQL
}

func (q *Query) Run(ctx context.Context) *future.Future[Rows] {
	return q.submit(ctx, nil)
}

func (q *Query) RunWith(ctx context.Context, params any) *future.Future[Rows] {
	return q.submit(ctx, params)
}

// ObservableQuery is a Query whose calls return a future.Observable.
type ObservableQuery struct {
	binding
}

func BindObservable(adapter Adapter, stmt Statement) *ObservableQuery {
	return &ObservableQuery{binding{adapter: adapter, stmt: stmt, logger: slog.Default()}}
}

func (q *ObservableQuery) Name() string {
	return q.stmt.Name
}

func (q *ObservableQuery) SQL() string {
	return q.stmt.SQL
}

func (q *ObservableQuery) Run(ctx context.Context) *future.Observable[Rows] {
	return future.Observe(q.submit(ctx, nil))
}

func (q *ObservableQuery) RunWith(ctx context.Context, params any) *future.Observable[Rows] {
	return future.Observe(q.submit(ctx, params))
}

func (b binding) submit(ctx context.Context, params any) *future.Future[Rows] {
	f := future.New[Rows]()
	callID := ulid.Make().String()
	b.logger.DebugContext(ctx, "Submitting query", "query", b.stmt.Name, "call_id", callID)

	done := func(rows Rows, err error) {
		if err != nil {
			if f.Reject(&ExecutionError{Query: b.stmt.Name, Raw: err}) {
				b.logger.DebugContext(ctx, "Query failed", "query", b.stmt.Name, "call_id", callID, "error", err)
			}
			return
		}
		if rows == nil {
			rows = Rows{}
		}
		if f.Resolve(rows) {
			b.logger.DebugContext(ctx, "Query succeeded", "query", b.stmt.Name, "call_id", callID, "rows", len(rows))
		}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				done(nil, panicError{v: r})
			}
		}()
		b.adapter.Query(ctx, b.stmt.SQL, params, done)
	}()
	return f
}
