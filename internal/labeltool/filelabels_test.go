package labeltool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fiddle/internal/label"
)

var phaseFile = []string{
	"int x;",
	"#define ___PHASE_a_spl_BEGIN",
	"foo();",
	"#define ___PHASE_a_spl_END",
	"bar();",
}

func openPhaseFile(t *testing.T) (*Tool, *FileLabels, string) {
	t.Helper()
	dir := t.TempDir()
	writeSource(t, dir, "a.c", phaseFile...)
	tool := newTestTool(t)
	fl, err := tool.Open(context.Background(), "a.c", dir)
	require.NoError(t, err)
	return tool, fl, dir
}

func target(t *testing.T, tool *Tool, fl *FileLabels, line int, tag, name, value string) label.Label {
	t.Helper()
	l, err := tool.Target(fl.File(), fl.Path(), line,
		label.Match{Tag: tag, Name: name, Stage: label.StageSPL, Value: value})
	require.NoError(t, err)
	return l
}

func insert(t *testing.T, fl *FileLabels, l label.Label) bool {
	t.Helper()
	changed, err := fl.Insert(l)
	require.NoError(t, err)
	return changed
}

func TestFileLabels_Load(t *testing.T) {
	_, fl, _ := openPhaseFile(t)
	require.Equal(t, []int{2, 4}, lines(fl.Current()))
	require.Equal(t, fl.Current(), fl.Updated())
	require.False(t, fl.Dirty())
}

func TestFileLabels_InsertShiftsFollowing(t *testing.T) {
	tool, fl, _ := openPhaseFile(t)
	c := target(t, tool, fl, 3, label.TagSkip, "s", "NEXT")
	require.Equal(t, 3, c.Line)
	require.Equal(t, 3, c.RefLine)
	require.Equal(t, "foo();", c.RefContent)

	require.True(t, insert(t, fl, c))
	got := fl.Updated()
	require.Equal(t, []int{2, 3, 5}, lines(got))
	require.True(t, got[1].Equal(c))
	require.Equal(t, []int{2, 4}, lines(fl.Current()), "current must not move")
	require.True(t, fl.Dirty())
}

func TestFileLabels_IdentityStableUnderShift(t *testing.T) {
	tool, fl, _ := openPhaseFile(t)
	before := fl.Updated()

	insert(t, fl, target(t, tool, fl, 1, label.TagSkip, "s", "NEXT"))
	after := fl.Updated()
	require.Len(t, after, 3)
	require.Equal(t, before[0].Line+1, after[1].Line)
	require.Equal(t, before[1].Line+1, after[2].Line)
	require.True(t, before[0].Equal(after[1]))
	require.True(t, before[1].Equal(after[2]))
}

func TestFileLabels_InsertExisting(t *testing.T) {
	tool, fl, _ := openPhaseFile(t)

	// equal to a label on disk: no-op
	require.False(t, insert(t, fl, fl.Current()[0].WithLine(1)))
	require.False(t, fl.Dirty())

	// reinserting a draft label moves it
	c := target(t, tool, fl, 3, label.TagSkip, "s", "NEXT")
	require.True(t, insert(t, fl, c))
	require.True(t, insert(t, fl, c.WithLine(1)))
	got := fl.Updated()
	require.Equal(t, []int{1, 3, 5}, lines(got))
	require.True(t, got[0].Equal(c))
}

func TestFileLabels_Remove(t *testing.T) {
	_, fl, _ := openPhaseFile(t)
	begin := fl.Current()[0]

	require.NoError(t, fl.Remove(begin))
	require.Equal(t, []int{3}, lines(fl.Updated()))

	err := fl.Remove(begin)
	require.ErrorIs(t, err, label.ErrLabelNotFound)
}

func TestFileLabels_IdentityMismatch(t *testing.T) {
	_, fl, dir := openPhaseFile(t)
	l := fl.Current()[0]
	l.File = "b.c"
	var mismatch *label.IdentityMismatchError
	_, err := fl.Insert(l)
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "a.c", mismatch.File)
	require.Equal(t, dir, mismatch.Path)

	_, err = fl.Insert(fl.Current()[0].WithLine(0))
	require.Error(t, err)
}

func TestFileLabels_InsertListSameLine(t *testing.T) {
	dir := t.TempDir()
	full := writeSource(t, dir, "b.c", "int x;", "foo();", "bar();")
	tool := newTestTool(t)
	ctx := context.Background()
	fl, err := tool.Open(ctx, "b.c", dir)
	require.NoError(t, err)

	first := target(t, tool, fl, 2, label.TagPhase, "p", "BEGIN")
	second := target(t, tool, fl, 2, label.TagPhase, "p", "END")
	require.NoError(t, fl.InsertList([]label.Label{first, second}))

	got := fl.Updated()
	require.Len(t, got, 2)
	require.True(t, got[0].Equal(first))
	require.True(t, got[1].Equal(second))
	require.Equal(t, []int{2, 3}, lines(got))

	require.NoError(t, fl.UpdateFile(ctx))
	require.Equal(t, []string{
		"int x;",
		first.FileRepr(),
		second.FileRepr(),
		"foo();",
		"bar();",
	}, readLines(t, full))
	require.False(t, fl.Dirty())
	require.Equal(t, []int{2, 3}, lines(fl.Current()))
}

func TestFileLabels_InsertListDescending(t *testing.T) {
	dir := t.TempDir()
	full := writeSource(t, dir, "c.c", "a();", "b();", "c();")
	tool := newTestTool(t)
	ctx := context.Background()
	fl, err := tool.Open(ctx, "c.c", dir)
	require.NoError(t, err)

	low := target(t, tool, fl, 1, label.TagSkip, "s", "START")
	high := target(t, tool, fl, 3, label.TagSkip, "s", "END")
	require.NoError(t, fl.InsertList([]label.Label{low, high}))
	require.NoError(t, fl.UpdateFile(ctx))
	require.Equal(t, []string{low.FileRepr(), "a();", "b();", high.FileRepr(), "c();"}, readLines(t, full))
}

func TestFileLabels_UpdateFileRoundTrip(t *testing.T) {
	_, fl, dir := openPhaseFile(t)
	full := filepath.Join(dir, "a.c")
	before := fl.Current()
	info, err := os.Stat(full)
	require.NoError(t, err)

	require.NoError(t, fl.UpdateFile(context.Background()))
	require.Equal(t, phaseFile, readLines(t, full))
	require.Equal(t, before, fl.Current())
	require.Equal(t, fl.Current(), fl.Updated())

	after, err := os.Stat(full)
	require.NoError(t, err)
	require.Equal(t, info.ModTime(), after.ModTime(), "unchanged file must not be rewritten")
}

func TestFileLabels_UpdateFileRemovesAndCanonicalises(t *testing.T) {
	dir := t.TempDir()
	full := writeSource(t, dir, "d.c",
		"#define ___PHASE_a_spl_BEGIN   ",
		"foo();",
		"#define ___PHASE_a_spl_END",
		"bar();")
	require.NoError(t, os.Chmod(full, 0o600))
	tool := newTestTool(t)
	ctx := context.Background()
	fl, err := tool.Open(ctx, "d.c", dir)
	require.NoError(t, err)

	require.NoError(t, fl.Remove(fl.Current()[1]))
	require.NoError(t, fl.UpdateFile(ctx))
	require.Equal(t, []string{"#define ___PHASE_a_spl_BEGIN", "foo();", "bar();"}, readLines(t, full))
	require.Len(t, fl.Current(), 1)
	require.False(t, fl.Dirty())

	info, err := os.Stat(full)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileLabels_UpdateFileKeepsCRLF(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "e.c")
	require.NoError(t, os.WriteFile(full, []byte("int x;\r\nfoo();\r\n"), 0o644))
	tool := newTestTool(t)
	ctx := context.Background()
	fl, err := tool.Open(ctx, "e.c", dir)
	require.NoError(t, err)

	insert(t, fl, target(t, tool, fl, 2, label.TagStageinfo, "exit", "EXIT"))
	require.NoError(t, fl.UpdateFile(ctx))

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	require.Equal(t, "int x;\r\n#define ___STAGEINFO_exit_spl_EXIT\r\nfoo();\r\n", string(data))
	require.Len(t, fl.Current(), 1)
	require.Equal(t, 3, fl.Current()[0].RefLine)
}

func TestFileLabels_UpdateFileClampsToEnd(t *testing.T) {
	dir := t.TempDir()
	full := writeSource(t, dir, "f.c", "foo();")
	tool := newTestTool(t)
	ctx := context.Background()
	fl, err := tool.Open(ctx, "f.c", dir)
	require.NoError(t, err)

	l := target(t, tool, fl, 10, label.TagStageinfo, "exit", "EXIT")
	require.Zero(t, l.RefLine)
	insert(t, fl, l)
	require.NoError(t, fl.UpdateFile(ctx))
	require.Equal(t, []string{"foo();", l.FileRepr()}, readLines(t, full))
	require.Equal(t, 2, fl.Current()[0].Line)
}

func TestFileLabels_UpdateFileKeepsMixedLineEndings(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "m.c")
	raw := "int x;\r\n#define ___PHASE_p_spl_BEGIN\nfoo();\nbar();\n#define ___PHASE_p_spl_END\n"
	require.NoError(t, os.WriteFile(full, []byte(raw), 0o644))
	tool := newTestTool(t)
	ctx := context.Background()
	fl, err := tool.Open(ctx, "m.c", dir)
	require.NoError(t, err)

	require.NoError(t, fl.Remove(fl.Current()[1]))
	require.NoError(t, fl.UpdateFile(ctx))

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	require.Equal(t, "int x;\r\n#define ___PHASE_p_spl_BEGIN\nfoo();\nbar();\n", string(data))
}

var stackedFile = []string{
	"int x;",
	"#define ___PHASE_a_spl_BEGIN",
	"#define ___PHASE_b_spl_BEGIN",
	"foo();",
	"#define ___PHASE_a_spl_END",
	"bar();",
}

func openStackedFile(t *testing.T) (*Tool, *FileLabels, string) {
	t.Helper()
	dir := t.TempDir()
	full := writeSource(t, dir, "s.c", stackedFile...)
	tool := newTestTool(t)
	fl, err := tool.Open(context.Background(), "s.c", dir)
	require.NoError(t, err)
	require.True(t, fl.Current()[0].Equal(fl.Current()[1]), "stacked BEGIN labels share an identity")
	return tool, fl, full
}

func TestFileLabels_RemoveStackedPicksLine(t *testing.T) {
	_, fl, full := openStackedFile(t)
	b := fl.Current()[1]
	require.Equal(t, "b", b.Name)

	require.NoError(t, fl.Remove(b))
	got := fl.Updated()
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Name)
	require.Equal(t, []int{2, 4}, lines(got))

	require.NoError(t, fl.UpdateFile(context.Background()))
	require.Equal(t, []string{
		"int x;",
		"#define ___PHASE_a_spl_BEGIN",
		"foo();",
		"#define ___PHASE_a_spl_END",
		"bar();",
	}, readLines(t, full))
}

func TestFileLabels_RemoveStackedAfterShift(t *testing.T) {
	_, fl, _ := openStackedFile(t)
	a, b := fl.Current()[0], fl.Current()[1]

	require.NoError(t, fl.Remove(a))
	// b now sits at line 2 but is still found by name
	require.NoError(t, fl.Remove(b))
	got := fl.Updated()
	require.Len(t, got, 1)
	require.Equal(t, label.TagPhase, got[0].Tag)
	require.Equal(t, "END", got[0].Value)
	require.Equal(t, 3, got[0].Line)
}

func TestFileLabels_InsertCollidingIdentity(t *testing.T) {
	tool, fl, _ := openStackedFile(t)
	c := target(t, tool, fl, 2, label.TagPhase, "c", "BEGIN")

	require.False(t, insert(t, fl, c))
	require.False(t, fl.Dirty())

	existing, ok := fl.Lookup(c)
	require.True(t, ok)
	require.Equal(t, "a", existing.Name)
}
