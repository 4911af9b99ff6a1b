package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
)

// Serve accepts connections on listen until ctx is done, answering every
// simple-protocol query with handler.
func Serve(ctx context.Context, listen net.Listener, handler Handler) error {
	slog.InfoContext(ctx, "Listening", "addr", listen.Addr())
	go func() {
		<-ctx.Done()
		listen.Close()
	}()

	for {
		conn, err := listen.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("could not accept connection: %w", err)
		}
		slog.DebugContext(ctx, "Accepted connection", "remote_addr", conn.RemoteAddr())

		b := NewBackend(handler, conn)

		go func() {
			if err := b.Run(ctx); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.ErrorContext(ctx, "Connection failed", "remote_addr", conn.RemoteAddr(), "error", err)
			}
			slog.DebugContext(ctx, "Closed connection", "remote_addr", conn.RemoteAddr())
		}()
	}
}
