package labeltool

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"

	"go.uber.org/zap"

	"fiddle/internal/label"
	"fiddle/internal/source"
	"fiddle/internal/trace"
)

// FileLabels tracks the labels of one file: current is what the file held at
// the last load, updated is the draft that UpdateFile writes. FileLabels is
// not safe for concurrent use.
type FileLabels struct {
	tool    *Tool
	file    string
	path    string
	current labelSet
	updated labelSet
}

// Open loads the labels of path/file.
func (t *Tool) Open(ctx context.Context, file, path string) (*FileLabels, error) {
	fl := &FileLabels{tool: t, file: file, path: path}
	if err := fl.Load(ctx); err != nil {
		return nil, err
	}
	return fl, nil
}

// File returns the file name relative to Path.
func (fl *FileLabels) File() string { return fl.file }

// Path returns the source tree root.
func (fl *FileLabels) Path() string { return fl.path }

// FullPath joins Path and File.
func (fl *FileLabels) FullPath() string { return filepath.Join(fl.path, fl.file) }

// Load replaces both sets with a fresh scan of the file. Requirements are
// not checked.
func (fl *FileLabels) Load(ctx context.Context) error {
	labels, err := fl.tool.ScanFile(ctx, fl.file, fl.path, ScanOptions{})
	if err != nil {
		return err
	}
	for _, l := range labels {
		if l.File != fl.file || l.Path != fl.path {
			return &label.IdentityMismatchError{Label: l, File: fl.file, Path: fl.path}
		}
	}
	fl.current = newLabelSet(labels)
	fl.updated = fl.current.clone()
	return nil
}

// Current returns the labels found at the last load.
func (fl *FileLabels) Current() []label.Label { return fl.current.labels() }

// Updated returns the draft labels in line order.
func (fl *FileLabels) Updated() []label.Label { return fl.updated.labels() }

// Dirty reports whether the draft differs from the file.
func (fl *FileLabels) Dirty() bool { return !fl.updated.equal(&fl.current) }

// Insert adds l to the draft at l.Line. Every draft label at or after that
// line moves down by one. A label already in the draft is moved. A label
// whose identity is already in the file is left alone and Insert reports
// false.
func (fl *FileLabels) Insert(l label.Label) (bool, error) {
	if l.File != fl.file || l.Path != fl.path {
		return false, &label.IdentityMismatchError{Label: l, File: fl.file, Path: fl.path}
	}
	if l.Line < 1 {
		return false, fmt.Errorf("insert %s: line must be positive", l)
	}
	if fl.current.contains(l) {
		return false, nil
	}
	if rank := fl.updated.find(l); rank >= 0 {
		fl.updated.removeAt(rank)
		fl.updated.shiftRange(rank, -1)
	}
	rank := fl.updated.search(l.Line)
	fl.updated.shiftRange(rank, 1)
	fl.updated.insertAt(rank, l)
	return true, nil
}

// Lookup returns the label of the file sharing the identity of l.
func (fl *FileLabels) Lookup(l label.Label) (label.Label, bool) {
	rank := fl.current.find(l)
	if rank < 0 {
		return label.Label{}, false
	}
	return fl.current.items[rank], true
}

// Remove drops l from the draft. Every draft label after it moves up by one.
// When labels sharing the identity of l are stacked, the one at l.Line goes.
func (fl *FileLabels) Remove(l label.Label) error {
	rank := fl.updated.find(l)
	if rank < 0 {
		return fmt.Errorf("remove %s from %s: %w", l, fl.FullPath(), label.ErrLabelNotFound)
	}
	fl.updated.removeAt(rank)
	fl.updated.shiftRange(rank, -1)
	return nil
}

// InsertList inserts labels highest target line first so that no insertion
// moves a target that is still pending. Labels targeting the same line end
// up in the file in the order they were given.
func (fl *FileLabels) InsertList(labels []label.Label) error {
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		la, lb := labels[order[a]], labels[order[b]]
		if la.Line != lb.Line {
			return la.Line > lb.Line
		}
		return order[a] > order[b]
	})
	for _, i := range order {
		if _, err := fl.Insert(labels[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateFile rewrites the file so that it holds exactly the draft labels,
// then reloads. Code lines keep their relative order. The file is replaced
// atomically and left untouched when nothing changes.
func (fl *FileLabels) UpdateFile(ctx context.Context) error {
	ctx, span := trace.Start(ctx, trace.ScopeFile, "update_file")
	defer span.End(fl.file)

	full := fl.FullPath()
	f, err := source.ReadFile(full)
	if err != nil {
		return err
	}
	reg := fl.tool.reg
	old := f.SplitLines()
	eol := f.DefaultEOL()
	lines := make([]source.Line, 0, len(old)+fl.updated.len())
	for _, line := range old {
		if !reg.IsLabel(line.Text) {
			lines = append(lines, line)
		}
	}
	for _, l := range fl.updated.items {
		at := min(l.Line-1, len(lines))
		lines = slices.Insert(lines, at, source.Line{Text: l.FileRepr(), EOL: eol})
	}
	terminate(lines, eol, f.TrailingNewline() || len(f.Content) == 0)

	if slices.Equal(lines, old) {
		fl.tool.logger.Debug("labels unchanged", zap.String("file", full))
		return fl.Load(ctx)
	}
	if err := source.WriteFileAtomic(full, f.Join(lines)); err != nil {
		return err
	}
	fl.tool.files.Forget(full)
	fl.tool.logger.Debug("labels written",
		zap.String("file", full),
		zap.Int("labels", fl.updated.len()))
	return fl.Load(ctx)
}

// terminate gives every line but the last a terminator. The last one ends
// with eol only when the file did.
func terminate(lines []source.Line, eol string, trailing bool) {
	for i := range lines {
		last := i == len(lines)-1
		switch {
		case last && !trailing:
			lines[i].EOL = ""
		case lines[i].EOL == "":
			lines[i].EOL = eol
		}
	}
}
