package label

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrLabelNotFound is returned when removing a label that is not tracked.
var ErrLabelNotFound = errors.New("label not found")

// ErrLabelExists is returned when a new label collides with the identity of
// a label already in the file.
var ErrLabelExists = errors.New("label identity already taken")

// UnknownLabelTypeError reports a tag missing from the registry.
type UnknownLabelTypeError struct {
	Tag string
}

func (e *UnknownLabelTypeError) Error() string {
	return fmt.Sprintf("label (%s) is not a valid label", e.Tag)
}

// IdentityMismatchError reports a label inserted into the bookkeeping of
// another file.
type IdentityMismatchError struct {
	Label Label
	File  string
	Path  string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("label %s belongs to %s, not %s",
		e.Label, e.Label.FullPath(), filepath.Join(e.Path, e.File))
}

// RequirementViolationError reports unmet co-occurrence requirements in one
// scan. Labels holds every label the scan accumulated.
type RequirementViolationError struct {
	Tag     string
	File    string
	Path    string
	Missing []string
	Labels  []Label
}

func (e *RequirementViolationError) Error() string {
	items := make([]string, len(e.Labels))
	for i, l := range e.Labels {
		items[i] = l.String()
	}
	return fmt.Sprintf("%s labels don't meet requirements in %s (unpaired %s) [%s]",
		e.Tag, e.File, strings.Join(e.Missing, ","), strings.Join(items, ", "))
}
