package api

import (
	"context"
	"os"
	"testing"
)

func TestIntegrationFetchRun(t *testing.T) {
	if os.Getenv("GHA_TRIAGE_INTEGRATION") == "" {
		t.Skip("Set GHA_TRIAGE_INTEGRATION=1 to run integration tests")
	}

	client, err := NewClient("cli", "cli", Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	resp, err := client.ListRuns(ctx, RunsFilter{PerPage: 5, Status: "failure"})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(resp.Runs) == 0 {
		t.Skip("no failed runs to inspect")
	}

	p := NewPlatform(client, PlatformOptions{RequestsPerSecond: 2})
	run, err := p.FetchRun(ctx, resp.Runs[0].ID)
	if err != nil {
		t.Fatalf("FetchRun: %v", err)
	}
	t.Logf("run #%d %s [%s] with %d jobs", run.RunNumber, run.DisplayName(), run.Conclusion, len(run.Jobs))
	for _, j := range run.FailedJobs() {
		text, err := p.FetchJobLog(ctx, j)
		if err != nil {
			t.Logf("  job %s: %v", j.Name, err)
			continue
		}
		t.Logf("  job %s: %d bytes of log", j.Name, len(text))
	}
}

func TestIntegrationGhVersion(t *testing.T) {
	if os.Getenv("GHA_TRIAGE_INTEGRATION") == "" {
		t.Skip("Set GHA_TRIAGE_INTEGRATION=1 to run integration tests")
	}
	v, err := CheckGhVersion(context.Background())
	if err != nil {
		t.Fatalf("CheckGhVersion: %v", err)
	}
	t.Logf("gh %s supported=%v", v.Version, v.Supported())
}
