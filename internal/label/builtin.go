package label

// Built-in label tags.
const (
	TagPhase     = "PHASE"
	TagStageinfo = "STAGEINFO"
	TagLongwrite = "LONGWRITE"
	TagReloc     = "RELOC"
	TagSkip      = "SKIP"
	TagReg       = "REG"
	TagFramaC    = "FRAMAC"
)

// BuiltinTypes returns the label types instrumented bootloaders use, in
// dispatch order.
func BuiltinTypes() []Type {
	return []Type{
		{
			Tag:      TagPhase,
			Values:   []string{"BEGIN", "END"},
			Requires: map[string][]string{"BEGIN": {"END"}},
		},
		{
			Tag:    TagStageinfo,
			Values: []string{"EXIT"},
		},
		{
			Tag:      TagLongwrite,
			Values:   []string{"BREAK", "WRITE", "CONT"},
			Requires: map[string][]string{"BREAK": {"CONT"}},
		},
		{
			Tag:      TagReloc,
			Values:   []string{"BEGIN", "READY", "DST", "CPYSTART", "CPYEND"},
			Requires: map[string][]string{"BEGIN": {"READY"}},
		},
		{
			Tag:      TagSkip,
			Values:   []string{"NEXT", "START", "END", "FUNC"},
			Requires: map[string][]string{"START": {"END"}},
		},
		{
			Tag:    TagReg,
			Values: []string{"WRITE", "ADDRESS", "STATIC_WRITE"},
		},
		{
			Tag: TagFramaC,
			Values: []string{"ENTRYPOINT", "SAMPLE_ENTRYPOINT", "PATCH",
				"ADDR_PATCH", "INTERVAL_PATCH", "SUBPATCH"},
		},
	}
}

// NewBuiltinRegistry returns a registry holding BuiltinTypes.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, t := range BuiltinTypes() {
		r.MustRegister(t)
	}
	return r
}
