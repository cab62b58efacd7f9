package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimer_Track(t *testing.T) {
	tm := NewTimer()
	if err := tm.Track("scan", func() (string, error) { return "12 files", nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if err := tm.Track("rewrite", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("Track must return fn's error, got %v", err)
	}

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d", len(report.Phases))
	}
	if report.Phases[0].Note != "12 files" || report.Phases[1].Note != "failed" {
		t.Errorf("notes = %q, %q", report.Phases[0].Note, report.Phases[1].Note)
	}
	summary := tm.Summary()
	for _, want := range []string{"timings:", "scan", "rewrite", "total", "// 12 files"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary misses %q:\n%s", want, summary)
		}
	}
}

func TestTimer_Nil(t *testing.T) {
	var tm *Timer
	idx := tm.Begin("x")
	tm.End(idx, "")
	if len(tm.Report().Phases) != 0 {
		t.Fatal("nil timer must report nothing")
	}
}
