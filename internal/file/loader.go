package file

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var ErrDuplicateName = errors.New("duplicate statement name")

const DefaultPattern = "*.sql"

type Statement struct {
	Name string
	Path string
	SQL  string
}

type config struct {
	include  []string
	exclude  []string
	lastWins bool
	logger   *slog.Logger
}

type Option func(*config)

// WithInclude replaces the default "*.sql" filter. Patterns are matched
// against base names with doublestar syntax, e.g. "*.{sql,psql}".
func WithInclude(patterns ...string) Option {
	return func(c *config) {
		c.include = patterns
	}
}

func WithExclude(patterns ...string) Option {
	return func(c *config) {
		c.exclude = append(c.exclude, patterns...)
	}
}

// WithLastWins lets a later file silently replace an earlier one with the same
// name instead of failing with ErrDuplicateName.
func WithLastWins() Option {
	return func(c *config) {
		c.lastWins = true
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		include: []string{DefaultPattern},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads every statement file directly under dir. An empty or missing
// directory is logged and yields no statements.
func Load(dir string, opts ...Option) ([]Statement, error) {
	cfg := newConfig(opts)
	if dir == "" {
		cfg.logger.Warn("Statement directory does not exist", "dir", dir)
		return []Statement{}, nil
	}
	sts, err := load(os.DirFS(dir), ".", dir, cfg)
	if err != nil {
		return nil, err
	}
	for i := range sts {
		sts[i].Path = filepath.Join(dir, filepath.FromSlash(sts[i].Path))
	}
	return sts, nil
}

// LoadFS reads every statement file directly under dir in fsys. A missing
// directory is logged and yields no statements.
func LoadFS(fsys fs.FS, dir string, opts ...Option) ([]Statement, error) {
	return load(fsys, dir, dir, newConfig(opts))
}

func load(fsys fs.FS, dir, label string, cfg *config) ([]Statement, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.logger.Warn("Statement directory does not exist", "dir", label)
			return []Statement{}, nil
		}
		return nil, fmt.Errorf("could not read directory %s: %w", label, err)
	}

	sts := make([]Statement, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()
		if !cfg.match(filename) {
			cfg.logger.Debug("Skipped file", "file", filename)
			continue
		}
		name := strings.TrimSuffix(filename, path.Ext(filename))
		if name == "" {
			cfg.logger.Debug("Skipped file with empty name", "file", filename)
			continue
		}
		p := path.Join(dir, filename)
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("could not read statement file %s: %w", p, err)
		}
		st := Statement{Name: name, Path: p, SQL: string(b)}
		if i, ok := index[name]; ok {
			if !cfg.lastWins {
				return nil, fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateName, name, sts[i].Path, p)
			}
			sts[i] = st
			continue
		}
		index[name] = len(sts)
		sts = append(sts, st)
	}
	return sts, nil
}

func (c *config) match(filename string) bool {
	for _, p := range c.exclude {
		if ok, _ := doublestar.Match(p, filename); ok {
			return false
		}
	}
	for _, p := range c.include {
		if ok, _ := doublestar.Match(p, filename); ok {
			return true
		}
	}
	return false
}
