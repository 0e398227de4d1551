package cache

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/altinukshini/gha-triage/internal/model"
)

func buildArchive(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return &buf
}

func newCache(t *testing.T) *LogCache {
	t.Helper()
	lc, err := NewLogCache(t.TempDir(), 10, time.Hour)
	if err != nil {
		t.Fatalf("NewLogCache: %v", err)
	}
	return lc
}

func TestParseRootLogName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0_Build & Deploy.txt", "Build & Deploy"},
		{"12_test_unit.txt", "test_unit"},
		{"no-prefix.txt", "no-prefix"},
		{"abc_def.txt", "abc_def"},
	}
	for _, tt := range tests {
		if got := parseRootLogName(tt.in); got != tt.want {
			t.Errorf("parseRootLogName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStepLogsFromJobDir(t *testing.T) {
	lc := newCache(t)
	archive := buildArchive(t, map[string]string{
		"0_build.txt":               "2024-02-10T00:00:00.0000000Z everything\n",
		"build/1_Set up job.txt":    "2024-02-10T00:00:00.0000000Z setup\n",
		"build/2_Compile.txt":       "2024-02-10T00:00:05.0000000Z error: bad\n",
		"build/10_Post cleanup.txt": "2024-02-10T00:00:09.0000000Z bye\n",
	})
	if _, err := lc.StoreRunLogs(42, 1, archive); err != nil {
		t.Fatalf("StoreRunLogs: %v", err)
	}
	if !lc.HasRun(42, 1) {
		t.Fatal("HasRun() = false after store")
	}

	got, err := lc.StepLogs(42, 1, model.Job{Name: "build"})
	if err != nil {
		t.Fatalf("StepLogs: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d step logs, want 3", len(got))
	}
	if got[1].Number != 2 || got[1].Name != "Compile" || got[1].Text != "error: bad\n" {
		t.Errorf("step 2 = %+v", got[1])
	}
	if got[2].Number != 10 {
		t.Errorf("steps not in number order: %+v", got)
	}
}

func TestStepLogsFromRootFile(t *testing.T) {
	lc := newCache(t)
	archive := buildArchive(t, map[string]string{
		"0_deploy_prod.txt": "2024-02-10T00:00:00.0000000Z setup\n2024-02-10T00:00:10.0000000Z error: denied\n",
	})
	if _, err := lc.StoreRunLogs(7, 2, archive); err != nil {
		t.Fatalf("StoreRunLogs: %v", err)
	}
	start := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	job := model.Job{
		Name: "deploy/prod",
		Steps: []model.Step{
			{Number: 1, Name: "setup", StartedAt: start},
			{Number: 2, Name: "push", StartedAt: start.Add(10 * time.Second)},
		},
	}
	got, err := lc.StepLogs(7, 2, job)
	if err != nil {
		t.Fatalf("StepLogs: %v", err)
	}
	if len(got) != 2 || got[1].Text != "error: denied\n" {
		t.Errorf("StepLogs() = %+v", got)
	}

	if _, err := lc.StepLogs(7, 2, model.Job{Name: "missing"}); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestStoreRunLogsRejectsEscapes(t *testing.T) {
	parent := t.TempDir()
	lc, err := NewLogCache(filepath.Join(parent, "a", "b"), 10, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	archive := buildArchive(t, map[string]string{"../../evil.txt": "x"})
	// The zip reader may refuse the entry outright; either way nothing may
	// land outside the cache dir.
	lc.StoreRunLogs(1, 1, archive)
	for _, p := range []string{filepath.Join(parent, "evil.txt"), filepath.Join(parent, "a", "evil.txt")} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("archive entry escaped the cache dir: %s", p)
		}
	}
}

func TestJobLogRoundTrip(t *testing.T) {
	lc := newCache(t)
	if _, ok := lc.JobLog(1, 1, 99); ok {
		t.Fatal("JobLog() hit on empty cache")
	}
	if err := lc.StoreJobLog(1, 1, 99, "hello\n"); err != nil {
		t.Fatalf("StoreJobLog: %v", err)
	}
	got, ok := lc.JobLog(1, 1, 99)
	if !ok || got != "hello\n" {
		t.Errorf("JobLog() = %q, %v", got, ok)
	}
}

func TestJobLogExpired(t *testing.T) {
	lc, err := NewLogCache(t.TempDir(), 10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := lc.StoreJobLog(1, 1, 5, "old"); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lc.jobLogPath(1, 1, 5), past, past); err != nil {
		t.Fatal(err)
	}
	if _, ok := lc.JobLog(1, 1, 5); ok {
		t.Error("expired job log was returned")
	}
	if err := lc.Evict(); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if _, err := os.Stat(lc.jobLogPath(1, 1, 5)); !os.IsNotExist(err) {
		t.Errorf("expired file survived Evict: %v", err)
	}
}

func TestListAndDeleteEntries(t *testing.T) {
	lc := newCache(t)
	run := model.Run{ID: 10, RunAttempt: 1, Name: "CI", HeadBranch: "main", Conclusion: model.ConclusionFailure}
	if err := lc.WriteMeta(MetaFor("octo/repo", run)); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}
	if err := lc.StoreJobLog(11, 3, 1, "abc"); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(lc.Dir(), "not-a-run"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, err := lc.ListEntries()
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	var found bool
	for _, e := range entries {
		if e.RunID == 10 {
			found = true
			if e.Repo != "octo/repo" || e.WorkflowName != "CI" || e.Conclusion != "failure" {
				t.Errorf("meta not read back: %+v", e.CacheMeta)
			}
		}
	}
	if !found {
		t.Error("run 10 missing from entries")
	}

	size, err := lc.TotalSize()
	if err != nil || size == 0 {
		t.Errorf("TotalSize() = %d, %v", size, err)
	}

	if err := lc.DeleteEntry(10, 1); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := lc.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	entries, _ = lc.ListEntries()
	if len(entries) != 0 {
		t.Errorf("entries after DeleteAll = %d", len(entries))
	}
}
