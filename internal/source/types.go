package source

type (
	// FileFlags encodes how a file was normalised on load.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (tests, stdin).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File is the content of one source file read in a single pass, with an
// index of line starts.
type File struct {
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of '\n'
	Hash    [32]byte
	Flags   FileFlags
	Size    int64
	ModTime int64 // unix nanos at load, 0 for virtual files

	crlf []bool // per terminated line, whether it ended in \r\n on disk
}

// Line is the text of one line and the terminator it carries.
type Line struct {
	Text string
	EOL  string // "\r\n", "\n", or "" for an unterminated last line
}
