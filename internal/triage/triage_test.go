package triage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altinukshini/gha-triage/internal/dedup"
	"github.com/altinukshini/gha-triage/internal/issue"
	"github.com/altinukshini/gha-triage/internal/locate"
	"github.com/altinukshini/gha-triage/internal/model"
)

const sampleRunID = 7858139663

func newService(p Platform, d dedup.Detector) *Service {
	an := NewAnalyzer(nil, nil, issue.NewComposer("", "CI"), nil)
	return &Service{Platform: p, Analyzer: an, Detector: d, Parallelism: 2}
}

func defaultDetector(t *testing.T) dedup.Detector {
	t.Helper()
	d, err := dedup.NewDetector(dedup.DefaultThreshold, dedup.DefaultBuffer)
	require.NoError(t, err)
	return d
}

func TestAnalyzeSampleRun(t *testing.T) {
	svc := newService(NewFakePlatform(SampleFixture()), defaultDetector(t))

	run, results, err := svc.Analyze(context.Background(), sampleRunID, locate.Yocto)
	require.NoError(t, err)
	assert.Equal(t, "luftkode/distro-template", run.Repo)
	require.Len(t, results, 2)

	xilinx := results[0]
	require.NoError(t, xilinx.Err)
	assert.Equal(t, "Test template xilinx", xilinx.Job.Name)
	assert.Equal(t, 1, xilinx.Fragment.Provenance.Rank)
	assert.True(t, strings.HasSuffix(xilinx.Fragment.Provenance.Source(), "log.do_fetch.21616"))
	assert.Equal(t, "do_fetch", xilinx.Fragment.Provenance.Task)
	assert.Contains(t, xilinx.Fragment.Text, "wget: unable to resolve host address")
	assert.NotZero(t, xilinx.Summary.Len())
	assert.Contains(t, xilinx.Issue.Body, "### `Test template xilinx` (ID 21442749267)")

	raspberry := results[1]
	require.NoError(t, raspberry.Err)
	assert.Equal(t, 0, raspberry.Fragment.Provenance.Rank)
	assert.Contains(t, raspberry.Summary.Text(), "ERROR: No recipes available for:")
	assert.NotContains(t, raspberry.Summary.Text(), "Process completed with exit code")
}

func TestAnalyzeGenericKindStaysInStep(t *testing.T) {
	svc := newService(NewFakePlatform(SampleFixture()), defaultDetector(t))

	_, results, err := svc.Analyze(context.Background(), sampleRunID, locate.Generic)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Fragment.Provenance.Rank)
	assert.Equal(t, "📦 Build yocto image", results[0].Fragment.Provenance.Step)
}

func TestAnalyzeRunKeepsSiblingsOnError(t *testing.T) {
	run := model.WorkflowRun{
		Run: model.Run{ID: 1},
		Jobs: []model.Job{
			{ID: 10, Name: "no-failed-step", Conclusion: model.ConclusionFailure,
				Steps: []model.Step{{Number: 1, Name: "ok", Conclusion: model.ConclusionSuccess}}},
			{ID: 11, Name: "passing", Conclusion: model.ConclusionSuccess},
			{ID: 12, Name: "broken", Conclusion: model.ConclusionFailure,
				Steps: []model.Step{{Number: 1, Name: "make", Conclusion: model.ConclusionFailure}}},
		},
	}
	run.Jobs[2] = model.AssembleLog(run.Jobs[2], []model.StepLog{{Number: 1, Text: "cc main.c\nerror: undefined reference to `main'\n"}})

	an := NewAnalyzer(nil, nil, nil, nil)
	results := an.AnalyzeRun(context.Background(), run, locate.Generic)
	require.Len(t, results, 2)

	assert.Equal(t, int64(10), results[0].Job.ID)
	assert.ErrorIs(t, results[0].Err, locate.ErrNoFailureEvidence)
	assert.False(t, results[0].OK())

	assert.Equal(t, int64(12), results[1].Job.ID)
	require.NoError(t, results[1].Err)
	assert.Contains(t, results[1].Summary.Text(), "undefined reference")

	is, ok := an.Compose(run, results)
	require.True(t, ok)
	assert.Contains(t, is.Body, "**1 job failed:**")
}

func TestAnalyzeRunOrderIsDeterministic(t *testing.T) {
	var jobs []model.Job
	for i := 0; i < 20; i++ {
		j := model.Job{ID: int64(100 + i), Name: "job", Conclusion: model.ConclusionFailure,
			Steps: []model.Step{{Number: 1, Name: "s", Conclusion: model.ConclusionFailure}}}
		jobs = append(jobs, model.AssembleLog(j, []model.StepLog{{Number: 1, Text: "ERROR: x\n"}}))
	}
	an := NewAnalyzer(nil, nil, nil, nil)
	an.Parallelism = 8
	results := an.AnalyzeRun(context.Background(), model.WorkflowRun{Jobs: jobs}, locate.Generic)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, int64(100+i), r.Job.ID)
	}
}

func TestCreateIssueFromRun(t *testing.T) {
	p := NewFakePlatform(SampleFixture())
	svc := newService(p, defaultDetector(t))
	ctx := context.Background()

	out, err := svc.CreateIssueFromRun(ctx, Request{RunID: sampleRunID, Kind: locate.Yocto, Policy: PolicySkip})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, out.Action)
	assert.Equal(t, dedup.Novel, out.Verdict.Kind)
	assert.Equal(t, 1, out.Verdict.Compared)
	require.NotNil(t, out.Created)
	assert.Equal(t, 18, out.Created.Number)

	created := p.Created()
	require.Len(t, created, 1)
	assert.Equal(t, issue.DefaultTitle, created[0].Title)
	assert.Equal(t, []string{"CI", "do_fetch"}, created[0].Labels)
	assert.Contains(t, created[0].Body, "**2 jobs failed:**")
	assert.Equal(t, []string{"do_fetch"}, p.CreatedLabels())

	// The same failure again is a duplicate of the issue just filed.
	again, err := svc.CreateIssueFromRun(ctx, Request{RunID: sampleRunID, Kind: locate.Yocto, Policy: PolicySkip})
	require.NoError(t, err)
	assert.Equal(t, ActionDuplicate, again.Action)
	assert.Equal(t, 18, again.Verdict.Issue)
	require.NotNil(t, again.Closest)
	assert.Equal(t, 18, again.Closest.Number)
	assert.Len(t, p.Created(), 1)
}

func TestCreateIssueFromRunDryRun(t *testing.T) {
	p := NewFakePlatform(SampleFixture())
	svc := newService(p, defaultDetector(t))

	out, err := svc.CreateIssueFromRun(context.Background(), Request{RunID: sampleRunID, Kind: locate.Yocto, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, ActionDryRun, out.Action)
	assert.NotEmpty(t, out.Issue.Body)
	assert.Empty(t, p.Created())
	assert.Empty(t, p.CreatedLabels())
}

func TestCreateIssueFromRunSkipDuplicates(t *testing.T) {
	p := NewFakePlatform(SampleFixture())
	p.Fail = map[string]error{"ListOpenIssues": errors.New("must not be called")}
	svc := newService(p, defaultDetector(t))

	out, err := svc.CreateIssueFromRun(context.Background(), Request{RunID: sampleRunID, Kind: locate.Yocto, SkipDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, out.Action)
}

// nearMiss seeds an open issue whose embedded signature differs slightly from
// the sample run's, and returns a detector that finds it inconclusive.
func nearMiss(t *testing.T) (*FakePlatform, dedup.Detector) {
	t.Helper()
	probe := newService(NewFakePlatform(SampleFixture()), defaultDetector(t))
	out, err := probe.CreateIssueFromRun(context.Background(), Request{RunID: sampleRunID, Kind: locate.Yocto, DryRun: true, SkipDuplicates: true})
	require.NoError(t, err)

	sig, ok := dedup.ExtractSignature(out.Issue.Body)
	require.True(t, ok)
	altered := dedup.Normalize(sig.Text() + "\nNOTE: an extra line")
	score := dedup.Similarity(sig, altered)
	require.Less(t, score, 1.0)

	fix := SampleFixture()
	fix.Issues = append(fix.Issues, model.ExistingIssue{
		Number: 30, Title: "Scheduled run failed", State: "open",
		Body:   "older report\n\n" + dedup.EmbedSignature(altered),
		Labels: []model.Label{{Name: "CI"}},
	})
	d, err := dedup.NewDetector(min(1, score+0.001), 0.01)
	require.NoError(t, err)
	return NewFakePlatform(fix), d
}

func TestCreateIssueFromRunInconclusive(t *testing.T) {
	ctx := context.Background()
	req := Request{RunID: sampleRunID, Kind: locate.Yocto}

	t.Run("skip", func(t *testing.T) {
		p, d := nearMiss(t)
		req := req
		req.Policy = PolicySkip
		out, err := newService(p, d).CreateIssueFromRun(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, dedup.Inconclusive, out.Verdict.Kind)
		assert.Equal(t, 30, out.Verdict.Issue)
		assert.Equal(t, ActionInconclusive, out.Action)
		assert.Empty(t, p.Created())
	})

	t.Run("create", func(t *testing.T) {
		p, d := nearMiss(t)
		req := req
		req.Policy = PolicyCreate
		out, err := newService(p, d).CreateIssueFromRun(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, ActionCreated, out.Action)
		assert.Len(t, p.Created(), 1)
	})

	t.Run("ask", func(t *testing.T) {
		p, d := nearMiss(t)
		svc := newService(p, d)
		var asked *model.ExistingIssue
		svc.Confirm = func(_ context.Context, _ model.Issue, v dedup.Verdict, closest *model.ExistingIssue) (bool, error) {
			asked = closest
			return true, nil
		}
		req := req
		req.Policy = PolicyAsk
		out, err := svc.CreateIssueFromRun(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, ActionCreated, out.Action)
		require.NotNil(t, asked)
		assert.Equal(t, 30, asked.Number)
	})

	t.Run("ask without confirmer", func(t *testing.T) {
		p, d := nearMiss(t)
		req := req
		req.Policy = PolicyAsk
		out, err := newService(p, d).CreateIssueFromRun(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, ActionInconclusive, out.Action)
	})
}

func TestCreateIssueFromRunPlatformErrors(t *testing.T) {
	boom := errors.New("HTTP 502")
	for _, op := range []string{"FetchRun", "FetchJobLog", "ListOpenIssues", "EnsureLabels", "CreateIssue"} {
		t.Run(op, func(t *testing.T) {
			p := NewFakePlatform(SampleFixture())
			p.Fail = map[string]error{op: boom}
			_, err := newService(p, defaultDetector(t)).CreateIssueFromRun(context.Background(),
				Request{RunID: sampleRunID, Kind: locate.Yocto, Policy: PolicyCreate})
			assert.ErrorIs(t, err, boom)
			assert.Empty(t, p.Created())
		})
	}
}

func TestCreateIssueFromRunWithoutFailures(t *testing.T) {
	fix := Fixture{Runs: []model.WorkflowRun{{
		Run:  model.Run{ID: 5, Conclusion: model.ConclusionSuccess},
		Jobs: []model.Job{{ID: 1, Name: "ok", Conclusion: model.ConclusionSuccess}},
	}}}
	out, err := newService(NewFakePlatform(fix), defaultDetector(t)).CreateIssueFromRun(context.Background(), Request{RunID: 5})
	require.NoError(t, err)
	assert.Equal(t, ActionNoFailures, out.Action)

	fix = Fixture{
		Runs: []model.WorkflowRun{{
			Run: model.Run{ID: 6},
			Jobs: []model.Job{{ID: 2, Name: "silent", Conclusion: model.ConclusionFailure,
				Steps: []model.Step{{Number: 1, Name: "s", Conclusion: model.ConclusionFailure}}}},
		}},
		Logs: map[int64]string{2: "   \n"},
	}
	out, err = newService(NewFakePlatform(fix), defaultDetector(t)).CreateIssueFromRun(context.Background(), Request{RunID: 6})
	assert.ErrorIs(t, err, locate.ErrNoFailureEvidence)
	assert.Equal(t, ActionNoEvidence, out.Action)
}

type stepLogPlatform struct {
	*FakePlatform
	steps []model.StepLog
}

func (s stepLogPlatform) StepLogs(context.Context, model.Job) ([]model.StepLog, error) {
	return s.steps, nil
}

func TestLoadLogsPrefersStepLogs(t *testing.T) {
	fake := NewFakePlatform(SampleFixture())
	fake.Fail = map[string]error{"FetchJobLog": errors.New("job log must not be fetched")}
	p := stepLogPlatform{FakePlatform: fake, steps: []model.StepLog{{Number: 2, Name: "📦 Build yocto image", Text: "ERROR: from step file\n"}}}

	run, err := p.FetchRun(context.Background(), sampleRunID)
	require.NoError(t, err)
	loaded, err := LoadLogs(context.Background(), p, run, 2, nil)
	require.NoError(t, err)

	job := loaded.Jobs[0]
	step, ok := job.FirstFailedStep()
	require.True(t, ok)
	assert.Equal(t, "ERROR: from step file\n", job.StepText(step))
	assert.Empty(t, run.Jobs[0].Log, "input run must not be modified")
	assert.Empty(t, loaded.Jobs[2].Log, "passing jobs are not fetched")
}

func TestLoadFixtureDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixture.json"), []byte(`{
		"runs": [{"id": 9, "jobs": [{"id": 3, "name": "b", "conclusion": "failure"}]}],
		"logs": {"3": "inline"}
	}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "3.log"), []byte("from file\n"), 0o644))

	fix, err := LoadFixture(dir)
	require.NoError(t, err)
	require.Len(t, fix.Runs, 1)
	assert.Equal(t, "from file\n", fix.Logs[3])

	p := NewFakePlatform(fix)
	run, err := p.FetchRun(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, run.Jobs, 1)
	_, err = p.FetchRun(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]InconclusivePolicy{"": PolicyAsk, "ASK": PolicyAsk, "create": PolicyCreate, " skip ": PolicySkip} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePolicy("maybe")
	assert.Error(t, err)
}

func TestCheckDuplicate(t *testing.T) {
	d := defaultDetector(t)
	is := model.Issue{Title: "t", Body: "error: same thing at 2024-02-11 00:09:04"}
	existing := []model.ExistingIssue{{Number: 4, Title: "t", Body: "error: same thing at 2024-03-05 10:00:00"}}
	v := CheckDuplicate(is, existing, d)
	assert.Equal(t, dedup.Duplicate, v.Kind)
	assert.Equal(t, 4, v.Issue)
}
