package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgres(t *testing.T) {
	t.Parallel()
	dsn := StartTestServer(t, func(_ context.Context, sql string) (Result, error) {
		if sql == "SELECT broken" {
			return Result{}, errors.New("relation does not exist")
		}
		return Result{
			Columns: []Column{Int4Column("id"), TextColumn("name")},
			Rows:    [][]string{{"1", "John Doe"}, {"2", "Foo Bar"}},
		}, nil
	})

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dsn+"&default_query_exec_mode=simple_protocol")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(ctx)

	t.Run("Rows", func(t *testing.T) {
		rows, err := conn.Query(ctx, "SELECT id, name FROM users")
		if err != nil {
			t.Fatal(err)
		}
		got, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			t.Fatal(err)
		}
		want := []map[string]any{
			{"id": int32(1), "name": "John Doe"},
			{"id": int32(2), "name": "Foo Bar"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("unexpected rows (-want +got):\n%s", diff)
		}
	})
	t.Run("Error", func(t *testing.T) {
		rows, err := conn.Query(ctx, "SELECT broken")
		if err == nil {
			_, err = pgx.CollectRows(rows, pgx.RowToMap)
		}
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			t.Fatalf("expected PgError, got %v", err)
		}
		if pgErr.Message != "relation does not exist" {
			t.Errorf("unexpected message: %s", pgErr.Message)
		}
	})
}
