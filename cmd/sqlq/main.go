package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/abekoh/sqlq"
	"github.com/abekoh/sqlq/adapter/pgxadapter"
	"github.com/abekoh/sqlq/adapter/sqladapter"
	"github.com/abekoh/sqlq/future"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"
)

type Config struct {
	Dir           string
	Driver        string
	DSN           string
	Params        string
	LogLevel      string
	UseObservable bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, names, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))

	if err := run(ctx, cfg, names, os.Stdout); err != nil {
		slog.ErrorContext(ctx, "Failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads flags, falling back to SQLQ_* environment variables for
// any flag not given on the command line.
func loadConfig(args []string) (Config, []string, error) {
	fs := flag.NewFlagSet("sqlq", flag.ContinueOnError)
	fs.String("dir", "queries", "directory containing .sql files")
	fs.String("driver", "pgx", "pgx, or any database/sql driver name such as sqlite")
	fs.String("dsn", "", "data source name")
	fs.String("params", "", "JSON array (positional) or object (named) passed to every query")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Bool("observable", false, "consume results as observables one query at a time")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: sqlq [flags] [query ...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("sqlq")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	fs.VisitAll(func(f *flag.Flag) {
		v.SetDefault(f.Name, f.DefValue)
	})
	fs.Visit(func(f *flag.Flag) {
		v.Set(f.Name, f.Value.String())
	})

	cfg := Config{
		Dir:           v.GetString("dir"),
		Driver:        v.GetString("driver"),
		DSN:           v.GetString("dsn"),
		Params:        v.GetString("params"),
		LogLevel:      v.GetString("log-level"),
		UseObservable: v.GetBool("observable"),
	}
	return cfg, fs.Args(), nil
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func run(ctx context.Context, cfg Config, names []string, w io.Writer) error {
	adapter, closeFn, err := openAdapter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	var results map[string]sqlq.Rows
	if cfg.UseObservable {
		results, err = runObservable(ctx, adapter, cfg.Dir, names, params)
	} else {
		results, err = runJoined(ctx, adapter, cfg.Dir, names, params)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("could not write results: %w", err)
	}
	return nil
}

func openAdapter(ctx context.Context, cfg Config) (sqlq.Adapter, func(), error) {
	if cfg.Driver == "pgx" {
		pool, err := pgxadapter.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pgxadapter.New(pool), pool.Close, nil
	}
	db, err := sqladapter.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return sqladapter.New(db), func() { _ = db.Close() }, nil
}

func parseParams(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("could not parse params: %w", err)
	}
	switch p := v.(type) {
	case []any:
		return sqlq.Args(p), nil
	case map[string]any:
		return sqlq.NamedArgs(p), nil
	default:
		return p, nil
	}
}

func runJoined(ctx context.Context, adapter sqlq.Adapter, dir string, names []string, params any) (map[string]sqlq.Rows, error) {
	reg, err := sqlq.New(adapter, dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return listing(reg.Names()), nil
	}
	for _, name := range names {
		if _, err := reg.Lookup(name); err != nil {
			return nil, err
		}
	}

	calls := make([]*future.Future[sqlq.Rows], 0, len(names))
	for _, name := range names {
		q, _ := reg.Get(name)
		calls = append(calls, q.RunWith(ctx, params))
	}
	rows, err := sqlq.RunAll(ctx, calls...).Await(ctx)
	if err != nil {
		return nil, err
	}
	results := make(map[string]sqlq.Rows, len(names))
	for i, name := range names {
		results[name] = rows[i]
	}
	return results, nil
}

func runObservable(ctx context.Context, adapter sqlq.Adapter, dir string, names []string, params any) (map[string]sqlq.Rows, error) {
	reg, err := sqlq.NewObservable(adapter, dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return listing(reg.Names()), nil
	}
	results := make(map[string]sqlq.Rows, len(names))
	for _, name := range names {
		q, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		for rows, err := range q.RunWith(ctx, params).Seq(ctx) {
			if err != nil {
				return nil, fmt.Errorf("query %s failed: %w", name, err)
			}
			results[name] = rows
		}
	}
	return results, nil
}

func listing(names []string) map[string]sqlq.Rows {
	rows := make(sqlq.Rows, 0, len(names))
	for _, n := range names {
		rows = append(rows, sqlq.Row{"name": n})
	}
	return map[string]sqlq.Rows{"queries": rows}
}
