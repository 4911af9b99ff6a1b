package sqlq

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/abekoh/sqlq/future"
	"github.com/abekoh/sqlq/internal/file"
)

type Option func(*options)

type options struct {
	fileOpts []file.Option
	logger   *slog.Logger
}

// WithInclude sets the doublestar patterns a file name must match to be
// loaded. The default is "*.sql".
func WithInclude(patterns ...string) Option {
	return func(o *options) {
		o.fileOpts = append(o.fileOpts, file.WithInclude(patterns...))
	}
}

func WithExclude(patterns ...string) Option {
	return func(o *options) {
		o.fileOpts = append(o.fileOpts, file.WithExclude(patterns...))
	}
}

// WithLastWins keeps the last file when two files share a name, instead of
// failing registration.
func WithLastWins() Option {
	return func(o *options) {
		o.fileOpts = append(o.fileOpts, file.WithLastWins())
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			return
		}
		o.logger = l
		o.fileOpts = append(o.fileOpts, file.WithLogger(l))
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry maps query names to bound queries. It is never modified after
// construction.
type Registry[Q any] struct {
	queries map[string]Q
}

func (r *Registry[Q]) Get(name string) (Q, bool) {
	q, ok := r.queries[name]
	return q, ok
}

func (r *Registry[Q]) Lookup(name string) (Q, error) {
	q, ok := r.queries[name]
	if !ok {
		return q, fmt.Errorf("%w: %s", ErrUnknownQuery, name)
	}
	return q, nil
}

func (r *Registry[Q]) Names() []string {
	return slices.Sorted(maps.Keys(r.queries))
}

func (r *Registry[Q]) Len() int {
	return len(r.queries)
}

func (r *Registry[Q]) All() iter.Seq2[string, Q] {
	return func(yield func(string, Q) bool) {
		for _, name := range r.Names() {
			if !yield(name, r.queries[name]) {
				return
			}
		}
	}
}

// New loads every statement file in dir and binds it to adapter. A missing
// directory gives an empty registry.
func New(adapter Adapter, dir string, opts ...Option) (*Registry[*Query], error) {
	o := newOptions(opts)
	sts, err := file.Load(dir, o.fileOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not load queries: %w", err)
	}
	return build(sts, o, adapter, Bind), nil
}

func NewFS(adapter Adapter, fsys fs.FS, dir string, opts ...Option) (*Registry[*Query], error) {
	o := newOptions(opts)
	sts, err := file.LoadFS(fsys, dir, o.fileOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not load queries: %w", err)
	}
	return build(sts, o, adapter, Bind), nil
}

// NewObservable is New with queries that return a future.Observable.
func NewObservable(adapter Adapter, dir string, opts ...Option) (*Registry[*ObservableQuery], error) {
	o := newOptions(opts)
	sts, err := file.Load(dir, o.fileOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not load queries: %w", err)
	}
	return build(sts, o, adapter, BindObservable), nil
}

func NewObservableFS(adapter Adapter, fsys fs.FS, dir string, opts ...Option) (*Registry[*ObservableQuery], error) {
	o := newOptions(opts)
	sts, err := file.LoadFS(fsys, dir, o.fileOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not load queries: %w", err)
	}
	return build(sts, o, adapter, BindObservable), nil
}

type logSetter interface {
	setLogger(*slog.Logger)
}

func (b *binding) setLogger(l *slog.Logger) {
	b.logger = l
}

func build[Q logSetter](sts []Statement, o *options, adapter Adapter, bind func(Adapter, Statement) Q) *Registry[Q] {
	queries := make(map[string]Q, len(sts))
	for _, st := range sts {
		q := bind(adapter, st)
		q.setLogger(o.logger)
		queries[st.Name] = q
	}
	o.logger.Info("Loaded queries", "count", len(queries))
	return &Registry[Q]{queries: queries}
}

// Run calls the named query and returns its Future, whatever the registry
// flavor. A single param is passed through as the payload; several are sent
// as Args. An unknown name yields a rejected Future.
func (r *Registry[Q]) Run(ctx context.Context, name string, params ...any) *future.Future[Rows] {
	q, err := r.Lookup(name)
	if err != nil {
		return future.Rejected[Rows](err)
	}
	s, ok := any(q).(submitter)
	if !ok {
		return future.Rejected[Rows](fmt.Errorf("%w: %s is not runnable", ErrUnknownQuery, name))
	}
	switch len(params) {
	case 0:
		return s.submit(ctx, nil)
	case 1:
		return s.submit(ctx, params[0])
	default:
		return s.submit(ctx, Args(params))
	}
}

type submitter interface {
	submit(ctx context.Context, params any) *future.Future[Rows]
}

// RunAll joins the given calls. See future.All.
func RunAll(ctx context.Context, calls ...*future.Future[Rows]) *future.Future[[]Rows] {
	return future.All(ctx, calls...)
}
