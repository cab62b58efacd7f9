// Package labeltool finds, validates and rewrites labels in an
// instrumented source tree.
package labeltool

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"fiddle/internal/label"
	"fiddle/internal/project"
	"fiddle/internal/source"
)

// LineLookup returns line lineNum (1-based) of the file at path.
type LineLookup interface {
	Line(path string, lineNum int) (string, error)
}

// ScanCache stores the unfiltered labels of one file version.
type ScanCache interface {
	Get(key project.Digest) ([]label.Label, bool, error)
	Put(key project.Digest, labels []label.Label) error
}

// Tool is the entry point of the label engine. A Tool is safe for
// concurrent scans; FileLabels values it opens are not.
type Tool struct {
	reg    *label.Registry
	files  *source.Cache
	lines  LineLookup
	cache  ScanCache
	logger *zap.Logger
	config project.Config
	jobs   int
}

// Option configures a Tool.
type Option func(*Tool)

// WithLineLookup replaces the line-lookup collaborator used by NewLabel.
func WithLineLookup(l LineLookup) Option {
	return func(t *Tool) { t.lines = l }
}

// WithScanCache enables caching of per-file scan results.
func WithScanCache(c ScanCache) Option {
	return func(t *Tool) { t.cache = c }
}

// WithLogger sets the operator logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tool) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithConfig sets file selection and scan parallelism from a manifest.
func WithConfig(cfg project.Config) Option {
	return func(t *Tool) {
		t.config = cfg
		if cfg.Scan.Jobs > 0 {
			t.jobs = cfg.Scan.Jobs
		}
	}
}

// WithJobs bounds the number of files scanned concurrently.
func WithJobs(n int) Option {
	return func(t *Tool) {
		if n > 0 {
			t.jobs = n
		}
	}
}

// New creates a Tool over reg.
func New(reg *label.Registry, opts ...Option) (*Tool, error) {
	if reg == nil {
		return nil, fmt.Errorf("labeltool: nil registry")
	}
	files, err := source.NewCache(source.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	t := &Tool{
		reg:    reg,
		files:  files,
		logger: zap.NewNop(),
		config: project.DefaultConfig(),
		jobs:   runtime.GOMAXPROCS(0),
	}
	t.lines = files
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Registry returns the label type table the tool dispatches on.
func (t *Tool) Registry() *label.Registry { return t.reg }

// Files returns the cache of loaded source files.
func (t *Tool) Files() *source.Cache { return t.files }

// Config returns the file selection in use.
func (t *Tool) Config() project.Config { return t.config }
