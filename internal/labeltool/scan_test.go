package labeltool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fiddle/internal/label"
)

func TestTool_ScanFileFooScenario(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "foo.c", "int x;", "#define ___PHASE_p1_spl_BEGIN", "foo();", "bar();")
	tool := newTestTool(t)

	labels, err := tool.ScanFile(context.Background(), "foo.c", dir,
		ScanOptions{Tag: label.TagPhase, Stage: label.StageSPL})
	require.NoError(t, err)
	require.Len(t, labels, 1)

	l := labels[0]
	require.Equal(t, "p1", l.Name)
	require.Equal(t, "BEGIN", l.Value)
	require.Equal(t, label.StageSPL, l.Stage)
	require.Equal(t, 2, l.Line)
	require.Equal(t, 3, l.RefLine)
	require.Equal(t, "foo();", l.RefContent)
	require.False(t, l.Asm)
	require.Equal(t, "foo.c", l.File)
	require.Equal(t, dir, l.Path)
}

func TestTool_ScanFileFilters(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "start.S",
		"#define ___PHASE_a_spl_BEGIN",
		"#define ___LONGWRITE_b_main_BREAK",
		"",
		"\tmov r0, #0",
		"#define ___PHASE_a_main_END",
		"#define ___LONGWRITE_b_main_CONT",
		"\tbx lr")
	tool := newTestTool(t)
	ctx := context.Background()

	all, err := tool.ScanFile(ctx, "start.S", dir, ScanOptions{})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 5, 6}, lines(all))
	for _, l := range all {
		require.True(t, l.Asm)
	}
	// stacked labels share the code line they annotate
	require.Equal(t, 4, all[0].RefLine)
	require.Equal(t, 4, all[1].RefLine)
	require.Equal(t, "\tmov r0, #0", all[1].RefContent)
	require.Equal(t, 7, all[3].RefLine)

	main, err := tool.ScanFile(ctx, "start.S", dir, ScanOptions{Stage: label.StageMain})
	require.NoError(t, err)
	require.Equal(t, []int{2, 5, 6}, lines(main))

	named, err := tool.ScanFile(ctx, "start.S", dir, ScanOptions{Tag: label.TagLongwrite, Name: "b"})
	require.NoError(t, err)
	require.Equal(t, []int{2, 6}, lines(named))

	_, err = tool.ScanFile(ctx, "start.S", dir, ScanOptions{Tag: "BOGUS"})
	var unknown *label.UnknownLabelTypeError
	require.ErrorAs(t, err, &unknown)
}

func TestTool_ScanFileRequirements(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "board.c",
		"#define ___PHASE_init_spl_BEGIN",
		"board_init();",
		"#define ___SKIP_s_spl_NEXT",
		"x = 1;")
	tool := newTestTool(t)
	ctx := context.Background()

	_, err := tool.ScanFile(ctx, "board.c", dir, ScanOptions{Tag: label.TagPhase, Name: "other", Check: true})
	var violation *label.RequirementViolationError
	require.ErrorAs(t, err, &violation)
	require.Equal(t, label.TagPhase, violation.Tag)
	require.Equal(t, []string{"BEGIN"}, violation.Missing)
	// filtered out by name, still reported
	require.Len(t, violation.Labels, 1)
	require.Equal(t, "init", violation.Labels[0].Name)

	_, err = tool.ScanFile(ctx, "board.c", dir, ScanOptions{Check: true})
	require.ErrorAs(t, err, &violation)

	labels, err := tool.ScanFile(ctx, "board.c", dir, ScanOptions{Tag: label.TagSkip, Check: true})
	require.NoError(t, err)
	require.Len(t, labels, 1)

	writeSource(t, dir, "board.c",
		"#define ___PHASE_init_spl_BEGIN",
		"board_init();",
		"#define ___PHASE_init_spl_END",
		"x = 1;")
	labels, err = tool.ScanFile(ctx, "board.c", dir, ScanOptions{Tag: label.TagPhase, Check: true})
	require.NoError(t, err)
	require.Len(t, labels, 2)
}

func TestTool_ScanFileMissing(t *testing.T) {
	tool := newTestTool(t)
	_, err := tool.ScanFile(context.Background(), "nope.c", t.TempDir(), ScanOptions{})
	require.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestTool_NonLabelLookup(t *testing.T) {
	dir := t.TempDir()
	full := writeSource(t, dir, "a.c",
		"int x;",
		"",
		"#define ___PHASE_p_spl_BEGIN",
		"   ",
		"foo();",
		"#define ___PHASE_p_spl_END")
	tool := newTestTool(t)

	n, ok, err := tool.NextNonLabel(full, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, n)

	again, _, err := tool.NextNonLabel(full, 1)
	require.NoError(t, err)
	require.Equal(t, n, again)

	_, ok, err = tool.NextNonLabel(full, 5)
	require.NoError(t, err)
	require.False(t, ok)

	n, ok, err = tool.PrevNonLabel(full, 5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, n)

	_, ok, err = tool.PrevNonLabel(full, 1)
	require.NoError(t, err)
	require.False(t, ok)

	n, ok, err = tool.PrevNonLabel(full, 100)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, n)

	n, ok, err = tool.NextNonLabel(full, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, n)

	_, _, err = tool.NextNonLabel(filepath.Join(dir, "missing.c"), 1)
	require.Error(t, err)
}

func TestCodeWalkStopsAtFirstHit(t *testing.T) {
	var visited []int
	code := func(n int) bool {
		visited = append(visited, n)
		return n == 5 || n == 40
	}

	require.Equal(t, 5, nextCode(1000, 3, code))
	require.Equal(t, []int{4, 5}, visited)

	visited = nil
	require.Equal(t, 40, prevCode(1000, 42, code))
	require.Equal(t, []int{41, 40}, visited)

	visited = nil
	require.Zero(t, nextCode(10, 10, code))
	require.Empty(t, visited)
}

type fixedLines map[int]string

func (f fixedLines) Line(_ string, n int) (string, error) { return f[n], nil }

func TestTool_NewLabelUsesLineLookup(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.c", "#define ___REG_r_main_WRITE", "writel(v, addr);")
	tool := newTestTool(t, WithLineLookup(fixedLines{2: "looked up"}))

	m, ok := tool.Registry().ParseLine(label.TagReg, "#define ___REG_r_main_WRITE")
	require.True(t, ok)
	l, err := tool.NewLabel("a.c", dir, 1, m)
	require.NoError(t, err)
	require.Equal(t, 2, l.RefLine)
	require.Equal(t, "looked up", l.RefContent)

	_, err = tool.NewLabel("a.c", dir, 1, label.Match{Tag: "NOPE"})
	var unknown *label.UnknownLabelTypeError
	require.ErrorAs(t, err, &unknown)
}

func TestTool_ScanCache(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.c", "#define ___PHASE_p_spl_BEGIN", "f();", "#define ___SKIP_s_spl_NEXT", "g();")
	cache := newMemCache()
	tool := newTestTool(t, WithScanCache(cache))
	ctx := context.Background()

	first, err := tool.ScanFile(ctx, "a.c", dir, ScanOptions{Tag: label.TagPhase})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, cache.puts)
	require.Equal(t, 0, cache.hits)

	second, err := tool.ScanFile(ctx, "a.c", dir, ScanOptions{Tag: label.TagSkip})
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, cache.hits)

	writeSource(t, dir, "a.c", "#define ___PHASE_p_spl_BEGIN", "f();")
	third, err := tool.ScanFile(ctx, "a.c", dir, ScanOptions{Tag: label.TagSkip})
	require.NoError(t, err)
	require.Empty(t, third)
	require.Equal(t, 2, cache.puts)
}
