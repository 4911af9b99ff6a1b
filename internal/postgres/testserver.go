package postgres

import (
	"context"
	"net"
	"testing"
)

// StartTestServer serves handler on a random local port until tb finishes and
// returns a DSN pointing at it.
func StartTestServer(tb testing.TB, handler Handler) string {
	tb.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)
	listen, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatal(err)
	}
	go func() {
		if err := Serve(ctx, listen, handler); err != nil {
			tb.Error(err)
		}
	}()
	return "postgres://postgres@" + listen.Addr().String() + "/postgres?sslmode=disable"
}
