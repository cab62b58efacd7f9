package label

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Type describes one kind of label: its tag, the value vocabulary and the
// co-occurrence requirements between values.
type Type struct {
	Tag string
	// Values is the ordered vocabulary. Must not be empty.
	Values []string
	// Requires maps a value to the companion values of which at least one
	// must appear among labels of the same type in one scan.
	Requires map[string][]string
}

// HasValue reports whether v belongs to the vocabulary.
func (t Type) HasValue(v string) bool {
	for _, val := range t.Values {
		if val == v {
			return true
		}
	}
	return false
}

type entry struct {
	typ     Type
	pattern *regexp.Regexp // lazily compiled, reset on re-registration
}

// Registry is the table of known label types. Dispatch order is
// registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		order:   make([]string, 0, 8),
		entries: make(map[string]*entry),
	}
}

// Register adds t to the registry. Registering an existing tag replaces the
// descriptor but keeps its dispatch position.
func (r *Registry) Register(t Type) error {
	if t.Tag == "" {
		return fmt.Errorf("label: type tag is empty")
	}
	if len(t.Values) == 0 {
		return fmt.Errorf("label: type %s: there should be at least 1 value per label type", t.Tag)
	}
	for value, companions := range t.Requires {
		if !t.HasValue(value) {
			return fmt.Errorf("label: type %s: requirement on unknown value %q", t.Tag, value)
		}
		for _, c := range companions {
			if !t.HasValue(c) {
				return fmt.Errorf("label: type %s: %s requires unknown value %q", t.Tag, value, c)
			}
		}
	}

	t.Values = append([]string(nil), t.Values...)
	reqs := make(map[string][]string, len(t.Requires))
	for k, v := range t.Requires {
		reqs[k] = append([]string(nil), v...)
	}
	t.Requires = reqs

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[t.Tag]; !exists {
		r.order = append(r.order, t.Tag)
	}
	r.entries[t.Tag] = &entry{typ: t}
	return nil
}

// MustRegister is Register for tables built at startup.
func (r *Registry) MustRegister(t Type) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered under tag.
func (r *Registry) Lookup(tag string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[tag]
	if !ok {
		return Type{}, false
	}
	return e.typ, true
}

// Tags returns registered tags in dispatch order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// FormatFor builds the recognition pattern for a label type. It is a pure
// function of its arguments.
func FormatFor(tag string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return fmt.Sprintf(`^#define ___%s_([0-9a-zA-Z_]+)_(%s|%s)_(%s)$`,
		regexp.QuoteMeta(tag), StageSPL, StageMain, strings.Join(quoted, "|"))
}

// Pattern returns the compiled pattern for tag, compiling it on first use.
func (r *Registry) Pattern(tag string) (*regexp.Regexp, error) {
	r.mu.RLock()
	e, ok := r.entries[tag]
	if ok && e.pattern != nil {
		re := e.pattern
		r.mu.RUnlock()
		return re, nil
	}
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownLabelTypeError{Tag: tag}
	}

	re, err := regexp.Compile(FormatFor(e.typ.Tag, e.typ.Values))
	if err != nil {
		return nil, fmt.Errorf("label: type %s: %w", tag, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// the entry may have been replaced while compiling
	if cur, ok := r.entries[tag]; ok && cur == e {
		e.pattern = re
	}
	return re, nil
}

// CheckRequirements reports whether labels satisfy the requirements of tag.
// Labels of other types in the slice are ignored.
func (r *Registry) CheckRequirements(tag string, labels []Label) (bool, error) {
	t, ok := r.Lookup(tag)
	if !ok {
		return false, &UnknownLabelTypeError{Tag: tag}
	}
	if len(t.Requires) == 0 {
		return true, nil
	}

	present := make(map[string]bool)
	for _, l := range labels {
		if l.Tag == tag {
			present[l.Value] = true
		}
	}
	for value := range present {
		companions, ok := t.Requires[value]
		if !ok {
			continue
		}
		found := false
		for _, c := range companions {
			if present[c] {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// Missing lists, for tag, the present values whose requirements are unmet.
func (r *Registry) Missing(tag string, labels []Label) []string {
	t, ok := r.Lookup(tag)
	if !ok {
		return nil
	}
	present := make(map[string]bool)
	for _, l := range labels {
		if l.Tag == tag {
			present[l.Value] = true
		}
	}
	var missing []string
	for value, companions := range t.Requires {
		if !present[value] {
			continue
		}
		found := false
		for _, c := range companions {
			found = found || present[c]
		}
		if !found {
			missing = append(missing, value)
		}
	}
	sort.Strings(missing)
	return missing
}

// Digest fingerprints the registry contents. Caches of scan results key on
// it so that vocabulary changes invalidate them.
func (r *Registry) Digest() [32]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := sha256.New()
	for _, tag := range r.order {
		t := r.entries[tag].typ
		fmt.Fprintf(h, "%s|%s|", t.Tag, strings.Join(t.Values, ","))
		keys := make([]string, 0, len(t.Requires))
		for k := range t.Requires {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "%s>%s;", k, strings.Join(t.Requires[k], ","))
		}
		h.Write([]byte{'\n'})
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
