package labeltool

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"fiddle/internal/label"
	"fiddle/internal/project"
	"fiddle/internal/source"
	"fiddle/internal/trace"
)

// ScanOptions filters and validates a single-file scan. Zero values match
// everything.
type ScanOptions struct {
	// Tag restricts classification to one label type.
	Tag   string
	Name  string
	Stage label.Stage
	// Check validates requirements for Tag, or for every type found when
	// Tag is empty.
	Check bool
}

func (o ScanOptions) keep(l label.Label) bool {
	return (o.Name == "" || l.Name == o.Name) && (o.Stage == "" || l.Stage == o.Stage)
}

// ScanFile reads path/file once and returns its labels in line order,
// filtered by opts. With opts.Check a requirement violation fails the scan
// with *label.RequirementViolationError carrying every label the scan
// accumulated, filtered or not.
func (t *Tool) ScanFile(ctx context.Context, file, path string, opts ScanOptions) ([]label.Label, error) {
	if opts.Tag != "" {
		if _, ok := t.reg.Lookup(opts.Tag); !ok {
			return nil, &label.UnknownLabelTypeError{Tag: opts.Tag}
		}
	}
	ctx, span := trace.Start(ctx, trace.ScopeFile, "scan_file")
	defer span.End(file)

	full := filepath.Join(path, file)
	f, err := source.ReadFile(full)
	if err != nil {
		return nil, err
	}
	t.files.Store(f)

	all, err := t.scanCached(ctx, f, file, path, opts.Tag)
	if err != nil {
		return nil, err
	}
	span.Set("labels", strconv.Itoa(len(all)))

	if opts.Check {
		if err := t.check(file, path, opts.Tag, all); err != nil {
			return nil, err
		}
	}

	out := make([]label.Label, 0, len(all))
	for _, l := range all {
		if opts.keep(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// scanCached returns every label of tag (any type when empty) in f. With a
// scan cache, the unrestricted result is stored and filtered by tag.
func (t *Tool) scanCached(ctx context.Context, f *source.File, file, path, tag string) ([]label.Label, error) {
	if t.cache == nil {
		return t.scanBuffer(f, file, path, tag), nil
	}

	key := t.cacheKey(f, file, path)
	all, ok, err := t.cache.Get(key)
	if err != nil {
		t.logger.Warn("scan cache read failed", zap.String("file", f.Path), zap.Error(err))
		ok = false
	}
	if ok {
		trace.Point(ctx, trace.ScopeLabel, "cache_hit", file)
	} else {
		all = t.scanBuffer(f, file, path, "")
		if err := t.cache.Put(key, all); err != nil {
			t.logger.Warn("scan cache write failed", zap.String("file", f.Path), zap.Error(err))
		}
	}
	if tag == "" {
		return all, nil
	}
	out := make([]label.Label, 0, len(all))
	for _, l := range all {
		if l.Tag == tag {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *Tool) cacheKey(f *source.File, file, path string) project.Digest {
	return project.Combine(project.Digest(f.Hash),
		project.Digest(t.reg.Digest()),
		project.StringDigest(path+"\x00"+file))
}

// scanBuffer decodes every label of f. Reference lines are resolved against
// the same buffer.
func (t *Tool) scanBuffer(f *source.File, file, path, tag string) []label.Label {
	kinds := t.lineKinds(f)
	code := func(n int) bool {
		return !kinds[n] && strings.TrimSpace(f.GetLine(n)) != ""
	}
	var labels []label.Label
	for n := 1; n < len(kinds); n++ {
		if !kinds[n] {
			continue
		}
		m, ok := t.reg.Decode(tag, f.GetLine(n))
		if !ok {
			continue
		}
		l := newLabel(file, path, n, m)
		if ref := nextCode(len(kinds)-1, n, code); ref != 0 {
			l.RefLine, l.RefContent = ref, f.GetLine(ref)
		}
		labels = append(labels, l)
	}
	return labels
}

// check validates requirements of tag over labels, or of every type present
// when tag is empty.
func (t *Tool) check(file, path, tag string, labels []label.Label) error {
	tags := []string{tag}
	if tag == "" {
		present := make(map[string]bool)
		for _, l := range labels {
			present[l.Tag] = true
		}
		tags = tags[:0]
		for _, tg := range t.reg.Tags() {
			if present[tg] {
				tags = append(tags, tg)
			}
		}
	}
	for _, tg := range tags {
		ok, err := t.reg.CheckRequirements(tg, labels)
		if err != nil {
			return err
		}
		if !ok {
			return &label.RequirementViolationError{
				Tag:     tg,
				File:    file,
				Path:    path,
				Missing: t.reg.Missing(tg, labels),
				Labels:  append([]label.Label(nil), labels...),
			}
		}
	}
	return nil
}
