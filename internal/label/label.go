package label

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Stage is the boot stage a label belongs to.
type Stage string

const (
	StageSPL  Stage = "spl"
	StageMain Stage = "main"
)

// ParseStage accepts "spl", "main" and the catch-all "." for main.
func ParseStage(s string) (Stage, error) {
	switch s {
	case "spl":
		return StageSPL, nil
	case "main", ".":
		return StageMain, nil
	default:
		return "", fmt.Errorf("invalid stage %q (expected: spl|main|.)", s)
	}
}

// Label is one annotation found in, or destined for, a source file.
// Labels are values: operations that move a label return a new one.
type Label struct {
	File  string // relative to Path
	Path  string // source tree root
	Line  int    // 1-based line of the label itself
	Asm   bool
	Tag   string
	Name  string
	Stage Stage
	Value string
	Raw   string

	// RefLine is the first non-label line after Line, 0 if there is none.
	RefLine    int
	RefContent string
}

// Key is the identity of a label. It leaves out Line so that a label keeps
// its identity when edits elsewhere shift it.
type Key struct {
	Tag        string
	File       string
	Path       string
	Stage      Stage
	Value      string
	RefLine    int
	RefContent string
}

// Key returns the identity of l.
func (l Label) Key() Key {
	return Key{
		Tag:        l.Tag,
		File:       l.File,
		Path:       l.Path,
		Stage:      l.Stage,
		Value:      l.Value,
		RefLine:    l.RefLine,
		RefContent: l.RefContent,
	}
}

// Equal compares identities.
func (l Label) Equal(o Label) bool {
	return l.Key() == o.Key()
}

// WithLine returns a copy of l at line n.
func (l Label) WithLine(n int) Label {
	l.Line = n
	return l
}

// FullPath joins Path and File.
func (l Label) FullPath() string {
	return filepath.Join(l.Path, l.File)
}

// FileRepr is the canonical source line for l, without terminator.
func (l Label) FileRepr() string {
	return fmt.Sprintf("#define ___%s_%s_%s_%s", l.Tag, l.Name, l.Stage, l.Value)
}

func (l Label) String() string {
	return fmt.Sprintf("%s:%d %s(%s) in %s", l.File, l.Line, l.Name, l.Value, l.Stage)
}

// IsPatchValue reports whether a FRAMAC label marks a patch site.
func (l Label) IsPatchValue() bool {
	if l.Tag != TagFramaC {
		return false
	}
	switch l.Value {
	case "PATCH", "ADDR_PATCH", "SUBPATCH":
		return true
	}
	return false
}

// IsAsmFile reports whether name is an assembly source by suffix.
func IsAsmFile(name string) bool {
	return strings.HasSuffix(name, ".S") || strings.HasSuffix(name, ".s")
}
