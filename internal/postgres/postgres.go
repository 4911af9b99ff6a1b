package postgres

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"
)

type Column struct {
	Name string
	OID  uint32
}

func TextColumn(name string) Column {
	return Column{Name: name, OID: pgtype.TextOID}
}

func Int4Column(name string) Column {
	return Column{Name: name, OID: pgtype.Int4OID}
}

// Result is what a Handler answers a query with. Values are in text format.
type Result struct {
	Columns []Column
	Rows    [][]string
}

type Handler func(ctx context.Context, sql string) (Result, error)

type Backend struct {
	handler Handler
	backend *pgproto3.Backend
	conn    net.Conn
}

func NewBackend(handler Handler, conn net.Conn) *Backend {
	return &Backend{
		handler: handler,
		backend: pgproto3.NewBackend(conn, conn),
		conn:    conn,
	}
}

func (b *Backend) Run(ctx context.Context) error {
	defer b.Close()

	err := b.handleStartup()
	if err != nil {
		return fmt.Errorf("error handling startup: %w", err)
	}

	for {
		msg, err := b.backend.Receive()
		if err != nil {
			return fmt.Errorf("error receiving message: %w", err)
		}

		switch msg := msg.(type) {
		case *pgproto3.Query:
			buf, err := b.answer(ctx, msg.String)
			if err != nil {
				return err
			}
			buf, err = (&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(buf)
			if err != nil {
				return fmt.Errorf("error encoding ready for query: %w", err)
			}
			_, err = b.conn.Write(buf)
			if err != nil {
				return fmt.Errorf("error writing query response: %w", err)
			}
		case *pgproto3.Terminate:
			return nil
		default:
			return fmt.Errorf("received message other than Query from client: %#v", msg)
		}
	}
}

func (b *Backend) answer(ctx context.Context, sql string) ([]byte, error) {
	// pgx pings idle pool connections with a comment-only query
	if strings.HasPrefix(sql, "-- ping") {
		buf, err := (&pgproto3.EmptyQueryResponse{}).Encode(nil)
		if err != nil {
			return nil, fmt.Errorf("error encoding empty query response: %w", err)
		}
		return buf, nil
	}

	res, err := b.handler(ctx, sql)
	if err != nil {
		buf, encErr := (&pgproto3.ErrorResponse{
			Severity: "ERROR",
			Code:     "XX000",
			Message:  err.Error(),
		}).Encode(nil)
		if encErr != nil {
			return nil, fmt.Errorf("error encoding error response: %w", encErr)
		}
		return buf, nil
	}

	fields := make([]pgproto3.FieldDescription, 0, len(res.Columns))
	for _, c := range res.Columns {
		fields = append(fields, pgproto3.FieldDescription{
			Name:         []byte(c.Name),
			DataTypeOID:  c.OID,
			DataTypeSize: -1,
			TypeModifier: -1,
			Format:       0,
		})
	}
	buf, err := (&pgproto3.RowDescription{Fields: fields}).Encode(nil)
	if err != nil {
		return nil, fmt.Errorf("error encoding row description: %w", err)
	}
	for _, row := range res.Rows {
		values := make([][]byte, 0, len(row))
		for _, v := range row {
			values = append(values, []byte(v))
		}
		buf, err = (&pgproto3.DataRow{Values: values}).Encode(buf)
		if err != nil {
			return nil, fmt.Errorf("error encoding data row: %w", err)
		}
	}
	buf, err = (&pgproto3.CommandComplete{CommandTag: []byte("SELECT " + strconv.Itoa(len(res.Rows)))}).Encode(buf)
	if err != nil {
		return nil, fmt.Errorf("error encoding command complete: %w", err)
	}
	return buf, nil
}

func (b *Backend) Close() error {
	return b.conn.Close()
}

func (b *Backend) handleStartup() error {
	startupMessage, err := b.backend.ReceiveStartupMessage()
	if err != nil {
		return fmt.Errorf("error receiving startup message: %w", err)
	}

	switch startupMessage.(type) {
	case *pgproto3.StartupMessage:
		buf, err := (&pgproto3.AuthenticationOk{}).Encode(nil)
		if err != nil {
			return fmt.Errorf("error encoding authentication ok: %w", err)
		}
		for _, ps := range []pgproto3.ParameterStatus{
			{Name: "client_encoding", Value: "UTF8"},
			{Name: "standard_conforming_strings", Value: "on"},
			{Name: "server_version", Value: "16.0"},
		} {
			buf, err = ps.Encode(buf)
			if err != nil {
				return fmt.Errorf("error encoding parameter status: %w", err)
			}
		}
		buf, err = (&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(buf)
		if err != nil {
			return fmt.Errorf("error encoding ready for query: %w", err)
		}
		_, err = b.conn.Write(buf)
		if err != nil {
			return fmt.Errorf("error sending ready for query: %w", err)
		}
	case *pgproto3.SSLRequest:
		_, err = b.conn.Write([]byte("N"))
		if err != nil {
			return fmt.Errorf("error sending deny SSL request: %w", err)
		}
		return b.handleStartup()
	default:
		return fmt.Errorf("unknown startup message: %#v", startupMessage)
	}

	return nil
}
