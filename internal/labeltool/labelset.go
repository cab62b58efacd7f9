package labeltool

import (
	"sort"

	"fiddle/internal/label"
)

// labelSet is a line-ordered sequence of labels. Members are values;
// shifting replaces them with moved copies.
type labelSet struct {
	items []label.Label
}

func newLabelSet(labels []label.Label) labelSet {
	items := append([]label.Label(nil), labels...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Line < items[j].Line })
	return labelSet{items: items}
}

func (s *labelSet) len() int { return len(s.items) }

// search returns the rank of the first member with Line >= line.
func (s *labelSet) search(line int) int {
	return sort.Search(len(s.items), func(i int) bool { return s.items[i].Line >= line })
}

// index returns the rank of the member equal to l, or -1.
func (s *labelSet) index(l label.Label) int {
	key := l.Key()
	for i := range s.items {
		if s.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (s *labelSet) contains(l label.Label) bool { return s.index(l) >= 0 }

// find is index for labels that may be stacked: among members sharing the
// identity of l it prefers the one at l.Line, then the one named l.Name.
func (s *labelSet) find(l label.Label) int {
	key := l.Key()
	best, score := -1, -1
	for i := range s.items {
		m := &s.items[i]
		if m.Key() != key {
			continue
		}
		sc := 0
		if m.Line == l.Line {
			sc += 2
		}
		if m.Name == l.Name {
			sc++
		}
		if sc > score {
			best, score = i, sc
		}
	}
	return best
}

func (s *labelSet) insertAt(rank int, l label.Label) {
	s.items = append(s.items, label.Label{})
	copy(s.items[rank+1:], s.items[rank:])
	s.items[rank] = l
}

func (s *labelSet) removeAt(rank int) label.Label {
	l := s.items[rank]
	s.items = append(s.items[:rank], s.items[rank+1:]...)
	return l
}

// shiftRange moves every member from rank start on by delta lines.
func (s *labelSet) shiftRange(start, delta int) {
	for i := start; i < len(s.items); i++ {
		s.items[i] = s.items[i].WithLine(s.items[i].Line + delta)
	}
}

func (s *labelSet) clone() labelSet {
	return labelSet{items: append([]label.Label(nil), s.items...)}
}

func (s *labelSet) labels() []label.Label {
	return append([]label.Label(nil), s.items...)
}

// equal compares identities and lines member by member.
func (s *labelSet) equal(o *labelSet) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for i := range s.items {
		if s.items[i].Line != o.items[i].Line || !s.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}
