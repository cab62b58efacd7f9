package label

import "strings"

// Match is one decoded label line.
type Match struct {
	Tag   string
	Name  string
	Stage Stage
	Value string
	Raw   string
}

// normalizeLine drops the line terminator and trailing blanks. Leading
// whitespace is kept: an indented define is not a label.
func normalizeLine(line string) string {
	return strings.TrimRight(line, " \t\r\n")
}

// ParseLine decodes line as a label of type tag. Lines of any other shape,
// and unknown tags, yield false.
func (r *Registry) ParseLine(tag, line string) (Match, bool) {
	re, err := r.Pattern(tag)
	if err != nil {
		return Match{}, false
	}
	line = normalizeLine(line)
	m := re.FindStringSubmatch(line)
	if m == nil {
		return Match{}, false
	}
	return Match{
		Tag:   tag,
		Name:  m[1],
		Stage: Stage(m[2]),
		Value: m[3],
		Raw:   m[0],
	}, true
}

// Classify returns the first registered type recognizing line.
func (r *Registry) Classify(line string) (string, bool) {
	for _, tag := range r.Tags() {
		if _, ok := r.ParseLine(tag, line); ok {
			return tag, true
		}
	}
	return "", false
}

// ClassifyAs reports whether line is a label of type tag.
func (r *Registry) ClassifyAs(tag, line string) (string, bool) {
	if _, ok := r.ParseLine(tag, line); ok {
		return tag, true
	}
	return "", false
}

// IsLabel reports whether line is a label of any registered type.
func (r *Registry) IsLabel(line string) bool {
	_, ok := r.Classify(line)
	return ok
}

// Decode classifies line (restricted to tag when tag is not empty) and
// decodes it in one step.
func (r *Registry) Decode(tag, line string) (Match, bool) {
	if tag != "" {
		return r.ParseLine(tag, line)
	}
	for _, t := range r.Tags() {
		if m, ok := r.ParseLine(t, line); ok {
			return m, true
		}
	}
	return Match{}, false
}
