package labeltool

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fiddle/internal/label"
	"fiddle/internal/trace"
)

// TreeOptions selects and validates labels in a tree-wide search.
type TreeOptions struct {
	Tag   string
	Name  string
	Stage label.Stage
	// Check validates requirements per file. Off by default.
	Check bool
	// Jobs overrides the tool's parallelism when positive.
	Jobs int
}

// SourceFiles lists the files under root selected by the tool's include and
// exclude patterns, as sorted slash-separated paths relative to root.
func (t *Tool) SourceFiles(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if rel != "." && t.config.Excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && t.config.Match(rel) {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// SearchTree scans every source file under root and returns the labels
// found, ordered by file and then line. Files are scanned in parallel; each
// file is read by exactly one goroutine.
func (t *Tool) SearchTree(ctx context.Context, root string, opts TreeOptions) ([]label.Label, error) {
	if opts.Tag != "" {
		if _, ok := t.reg.Lookup(opts.Tag); !ok {
			return nil, &label.UnknownLabelTypeError{Tag: opts.Tag}
		}
	}
	ctx, span := trace.Start(ctx, trace.ScopeTree, "search_tree")
	defer span.End(root)

	files, err := t.SourceFiles(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	span.Set("files", strconv.Itoa(len(files)))

	jobs := t.jobs
	if opts.Jobs > 0 {
		jobs = opts.Jobs
	}
	scan := ScanOptions{Tag: opts.Tag, Name: opts.Name, Stage: opts.Stage, Check: opts.Check}
	results := make([][]label.Label, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			labels, err := t.ScanFile(gctx, filepath.FromSlash(file), root, scan)
			if err != nil {
				return err
			}
			results[i] = labels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []label.Label
	for _, labels := range results {
		out = append(out, labels...)
	}
	t.logger.Debug("tree searched",
		zap.String("root", root),
		zap.Int("files", len(files)),
		zap.Int("labels", len(out)))
	return out, nil
}

// GroupByFile splits labels, as returned by SearchTree, per file in order.
func GroupByFile(labels []label.Label) (files []string, groups map[string][]label.Label) {
	groups = make(map[string][]label.Label)
	for _, l := range labels {
		if _, ok := groups[l.File]; !ok {
			files = append(files, l.File)
		}
		groups[l.File] = append(groups[l.File], l)
	}
	sort.Strings(files)
	for _, f := range files {
		g := groups[f]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Line < g[j].Line })
	}
	return files, groups
}
