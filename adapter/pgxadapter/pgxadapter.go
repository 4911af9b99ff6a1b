// Package pgxadapter runs sqlq statements on PostgreSQL through pgx.
package pgxadapter

import (
	"context"
	"fmt"

	"github.com/abekoh/sqlq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is implemented by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Adapter struct {
	db Querier
}

var _ sqlq.Adapter = (*Adapter)(nil)

func New(db Querier) *Adapter {
	return &Adapter{db: db}
}

// Connect opens a pgxpool.Pool for dsn. The caller closes the pool.
func Connect(ctx context.Context, dsn string, opts ...func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create pool: %w", err)
	}
	return pool, nil
}

// WithSimpleProtocol makes the pool send parameters interpolated into a
// single Query message, for servers and proxies without extended protocol.
func WithSimpleProtocol() func(*pgxpool.Config) {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
}

func (a *Adapter) Query(ctx context.Context, sql string, params any, done sqlq.Callback) {
	go func() {
		done(a.query(ctx, sql, params))
	}()
}

func (a *Adapter) query(ctx context.Context, sql string, params any) (sqlq.Rows, error) {
	rows, err := a.db.Query(ctx, sql, Args(params)...)
	if err != nil {
		return nil, err
	}
	res, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Args converts a sqlq parameter payload into pgx query arguments.
func Args(params any) []any {
	switch p := params.(type) {
	case nil:
		return nil
	case sqlq.Args:
		return p
	case []any:
		return p
	case sqlq.NamedArgs:
		return []any{pgx.NamedArgs(p)}
	case map[string]any:
		return []any{pgx.NamedArgs(p)}
	default:
		return []any{p}
	}
}
