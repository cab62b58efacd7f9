package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"fortio.org/safecast"
)

// ReadFile loads path in a single read, strips a BOM, normalises CRLF and
// indexes line starts.
func ReadFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content, hadBOM := removeBOM(content)
	crlf := crlfLines(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	f := newFile(path, content, flags)
	f.crlf = crlf
	f.Size = info.Size()
	f.ModTime = info.ModTime().UnixNano()
	return f, nil
}

func newFile(path string, content []byte, flags FileFlags) *File {
	return &File{
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
}

// LineCount returns the number of lines. A final line without terminator
// counts; the empty string after a final '\n' does not.
func (f *File) LineCount() int {
	n := len(f.LineIdx)
	if len(f.Content) > 0 && f.Content[len(f.Content)-1] != '\n' {
		n++
	}
	return n
}

// GetLine returns line lineNum (1-based) without its terminator, or "" if
// the line does not exist.
func (f *File) GetLine(lineNum int) string {
	if lineNum < 1 || lineNum > f.LineCount() {
		return ""
	}
	idx, err := safecast.Conv[uint32](lineNum)
	if err != nil {
		panic(fmt.Errorf("line number overflow: %w", err))
	}

	var start uint32
	if idx > 1 {
		start = f.LineIdx[idx-2] + 1
	}
	end := uint32(len(f.Content))
	if int(idx-1) < len(f.LineIdx) {
		end = f.LineIdx[idx-1]
	}
	return string(f.Content[start:end])
}

// EOL returns the terminator line lineNum (1-based) had on disk: "\r\n",
// "\n", or "" for an unterminated last line and lines out of range.
func (f *File) EOL(lineNum int) string {
	if lineNum < 1 || lineNum > len(f.LineIdx) {
		return ""
	}
	if lineNum <= len(f.crlf) && f.crlf[lineNum-1] {
		return "\r\n"
	}
	return "\n"
}

// DefaultEOL is the terminator for lines added to the file: "\r\n" only
// when every terminated line of the file used it.
func (f *File) DefaultEOL() string {
	if len(f.crlf) == 0 {
		return "\n"
	}
	for _, c := range f.crlf {
		if !c {
			return "\n"
		}
	}
	return "\r\n"
}

// SplitLines returns every line with its own terminator.
func (f *File) SplitLines() []Line {
	n := f.LineCount()
	lines := make([]Line, 0, n)
	for i := 1; i <= n; i++ {
		lines = append(lines, Line{Text: f.GetLine(i), EOL: f.EOL(i)})
	}
	return lines
}

// TrailingNewline reports whether the content ends with a line terminator.
func (f *File) TrailingNewline() bool {
	return len(f.Content) > 0 && f.Content[len(f.Content)-1] == '\n'
}

// Join encodes lines back into file content, restoring the BOM the file was
// loaded with. Each line keeps the terminator it carries.
func (f *File) Join(lines []Line) []byte {
	var sb strings.Builder
	if f.Flags&FileHadBOM != 0 {
		sb.Write(bom)
	}
	for _, line := range lines {
		sb.WriteString(line.Text)
		sb.WriteString(line.EOL)
	}
	return []byte(sb.String())
}
