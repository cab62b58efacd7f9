package labeltool

import (
	"fmt"
	"path/filepath"
	"strings"

	"fiddle/internal/label"
	"fiddle/internal/source"
)

// lineKinds classifies every line of f once: true marks a label line of any
// registered type.
func (t *Tool) lineKinds(f *source.File) []bool {
	n := f.LineCount()
	kinds := make([]bool, n+1)
	for i := 1; i <= n; i++ {
		kinds[i] = t.reg.IsLabel(f.GetLine(i))
	}
	return kinds
}

// codeLine reports whether line n of f is neither blank nor a label. Only
// the lines it is asked about get classified.
func (t *Tool) codeLine(f *source.File) func(n int) bool {
	return func(n int) bool {
		text := f.GetLine(n)
		return strings.TrimSpace(text) != "" && !t.reg.IsLabel(text)
	}
}

// nextCode returns the first line in (line, count] for which code holds, or 0.
func nextCode(count, line int, code func(int) bool) int {
	for n := max(line, 0) + 1; n <= count; n++ {
		if code(n) {
			return n
		}
	}
	return 0
}

// prevCode returns the last line in [1, line) for which code holds, or 0.
func prevCode(count, line int, code func(int) bool) int {
	for n := min(line, count+1) - 1; n >= 1; n-- {
		if code(n) {
			return n
		}
	}
	return 0
}

// NextNonLabel returns the first line after line in the file at path that
// is neither empty nor a label. ok is false when there is none.
func (t *Tool) NextNonLabel(path string, line int) (int, bool, error) {
	f, err := t.files.Load(path)
	if err != nil {
		return 0, false, err
	}
	n := nextCode(f.LineCount(), line, t.codeLine(f))
	return n, n != 0, nil
}

// PrevNonLabel returns the last line before line in the file at path that
// is neither empty nor a label. ok is false when there is none.
func (t *Tool) PrevNonLabel(path string, line int) (int, bool, error) {
	f, err := t.files.Load(path)
	if err != nil {
		return 0, false, err
	}
	n := prevCode(f.LineCount(), line, t.codeLine(f))
	return n, n != 0, nil
}

// NewLabel builds the label decoded from line of path/file. The reference
// line is located in the current file content and its text is fetched from
// the line-lookup collaborator.
func (t *Tool) NewLabel(file, path string, line int, m label.Match) (label.Label, error) {
	if _, ok := t.reg.Lookup(m.Tag); !ok {
		return label.Label{}, &label.UnknownLabelTypeError{Tag: m.Tag}
	}
	full := filepath.Join(path, file)
	ref, ok, err := t.NextNonLabel(full, line)
	if err != nil {
		return label.Label{}, err
	}
	l := newLabel(file, path, line, m)
	if ok {
		content, err := t.lines.Line(full, ref)
		if err != nil {
			return label.Label{}, fmt.Errorf("reference line %s:%d: %w", full, ref, err)
		}
		l.RefLine, l.RefContent = ref, content
	}
	return l, nil
}

// Target builds a label that does not exist yet but is meant to be written
// at line of path/file, directly above the code that currently sits there.
func (t *Tool) Target(file, path string, line int, m label.Match) (label.Label, error) {
	if line < 1 {
		return label.Label{}, fmt.Errorf("label line must be positive, got %d", line)
	}
	if m.Raw == "" {
		m.Raw = newLabel(file, path, line, m).FileRepr()
	}
	l, err := t.NewLabel(file, path, line-1, m)
	if err != nil {
		return label.Label{}, err
	}
	return l.WithLine(line), nil
}

func newLabel(file, path string, line int, m label.Match) label.Label {
	return label.Label{
		File:  file,
		Path:  path,
		Line:  line,
		Asm:   label.IsAsmFile(file),
		Tag:   m.Tag,
		Name:  m.Name,
		Stage: m.Stage,
		Value: m.Value,
		Raw:   m.Raw,
	}
}
