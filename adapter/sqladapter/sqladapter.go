// Package sqladapter runs sqlq statements through database/sql, so any
// registered driver can back a registry.
package sqladapter

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/abekoh/sqlq"
)

// Querier is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Adapter struct {
	db Querier
}

var _ sqlq.Adapter = (*Adapter)(nil)

func New(db Querier) *Adapter {
	return &Adapter{db: db}
}

// Open opens and pings a database for driverName.
func Open(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open %s database: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not ping %s database: %w", driverName, err)
	}
	return db, nil
}

func (a *Adapter) Query(ctx context.Context, query string, params any, done sqlq.Callback) {
	go func() {
		done(a.query(ctx, query, params))
	}()
}

func (a *Adapter) query(ctx context.Context, query string, params any) (res sqlq.Rows, err error) {
	rows, err := a.db.QueryContext(ctx, query, Args(params)...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res = sqlq.Rows{}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(sqlq.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		res = append(res, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Args converts a sqlq parameter payload into database/sql arguments. Named
// payloads become sql.NamedArg values ordered by name.
func Args(params any) []any {
	switch p := params.(type) {
	case nil:
		return nil
	case sqlq.Args:
		return p
	case []any:
		return p
	case sqlq.NamedArgs:
		return named(p)
	case map[string]any:
		return named(p)
	default:
		return []any{p}
	}
}

func named(m map[string]any) []any {
	args := make([]any, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		args = append(args, sql.Named(k, m[k]))
	}
	return args
}
