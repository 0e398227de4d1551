package triage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/altinukshini/gha-triage/internal/model"
)

// ErrNotFound is returned by FakePlatform for unknown runs and jobs.
var ErrNotFound = errors.New("not found")

//go:embed fixtures/sample.json
var sampleFixture []byte

// Fixture seeds a FakePlatform. Logs are keyed by job ID.
type Fixture struct {
	Runs   []model.WorkflowRun   `json:"runs"`
	Logs   map[int64]string      `json:"logs"`
	Issues []model.ExistingIssue `json:"issues"`
	Labels []string              `json:"labels"`
}

// SampleFixture is a failed nightly Yocto run with two failed jobs and one
// unrelated open issue.
func SampleFixture() Fixture {
	var f Fixture
	if err := json.Unmarshal(sampleFixture, &f); err != nil {
		panic(fmt.Sprintf("embedded sample fixture: %v", err))
	}
	return f
}

// LoadFixture reads a fixture from a JSON file, or from a directory holding
// fixture.json plus optional logs/<job_id>.log files.
func LoadFixture(path string) (Fixture, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fixture{}, err
	}
	file := path
	if info.IsDir() {
		file = filepath.Join(path, "fixture.json")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", file, err)
	}
	if !info.IsDir() {
		return f, nil
	}

	entries, err := os.ReadDir(filepath.Join(path, "logs"))
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return Fixture{}, err
	}
	if f.Logs == nil {
		f.Logs = map[int64]string{}
	}
	for _, e := range entries {
		id, err := strconv.ParseInt(strings.TrimSuffix(e.Name(), ".log"), 10, 64)
		if e.IsDir() || err != nil {
			continue
		}
		text, err := os.ReadFile(filepath.Join(path, "logs", e.Name()))
		if err != nil {
			return Fixture{}, err
		}
		f.Logs[id] = string(text)
	}
	return f, nil
}

// FakePlatform is an in-memory Platform. Created issues are recorded and
// become visible to later ListOpenIssues calls.
type FakePlatform struct {
	mu      sync.Mutex
	runs    map[int64]model.WorkflowRun
	logs    map[int64]string
	issues  []model.ExistingIssue
	labels  []string
	created []model.Issue
	newTags []string
	next    int

	// Fail, when set, makes the named method ("FetchRun", "CreateIssue", ...)
	// return the error.
	Fail map[string]error
}

func NewFakePlatform(f Fixture) *FakePlatform {
	p := &FakePlatform{
		runs:   map[int64]model.WorkflowRun{},
		logs:   map[int64]string{},
		issues: slices.Clone(f.Issues),
		labels: slices.Clone(f.Labels),
		next:   1,
	}
	for _, r := range f.Runs {
		p.runs[r.ID] = r
	}
	for id, text := range f.Logs {
		p.logs[id] = text
	}
	for _, is := range p.issues {
		if is.Number >= p.next {
			p.next = is.Number + 1
		}
	}
	return p
}

func (p *FakePlatform) fail(op string) error {
	if err, ok := p.Fail[op]; ok {
		return err
	}
	return nil
}

// RunIDs lists the seeded runs, newest first.
func (p *FakePlatform) RunIDs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b int64) int {
		return p.runs[b].CreatedAt.Compare(p.runs[a].CreatedAt)
	})
	return ids
}

// Runs returns the seeded runs, newest first.
func (p *FakePlatform) Runs() []model.Run {
	var out []model.Run
	for _, id := range p.RunIDs() {
		p.mu.Lock()
		out = append(out, p.runs[id].Run)
		p.mu.Unlock()
	}
	return out
}

func (p *FakePlatform) FetchRun(ctx context.Context, runID int64) (model.WorkflowRun, error) {
	if err := p.fail("FetchRun"); err != nil {
		return model.WorkflowRun{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	run, ok := p.runs[runID]
	if !ok {
		return model.WorkflowRun{}, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	run.Jobs = slices.Clone(run.Jobs)
	return run, nil
}

func (p *FakePlatform) FetchJobLog(ctx context.Context, job model.Job) (string, error) {
	if err := p.fail("FetchJobLog"); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.logs[job.ID]
	if !ok {
		return "", fmt.Errorf("log of job %d: %w", job.ID, ErrNotFound)
	}
	return text, nil
}

func (p *FakePlatform) ListOpenIssues(ctx context.Context, labels []string) ([]model.ExistingIssue, error) {
	if err := p.fail("ListOpenIssues"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.ExistingIssue
	for _, is := range p.issues {
		if is.State != "" && is.State != "open" {
			continue
		}
		if hasLabels(is, labels) {
			out = append(out, is)
		}
	}
	return out, nil
}

func hasLabels(is model.ExistingIssue, want []string) bool {
	for _, w := range want {
		found := slices.ContainsFunc(is.Labels, func(l model.Label) bool {
			return strings.EqualFold(l.Name, w)
		})
		if !found {
			return false
		}
	}
	return true
}

func (p *FakePlatform) CreateIssue(ctx context.Context, issue model.Issue) (model.ExistingIssue, error) {
	if err := p.fail("CreateIssue"); err != nil {
		return model.ExistingIssue{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	created := model.ExistingIssue{
		Number:    p.next,
		Title:     issue.Title,
		Body:      issue.Body,
		State:     "open",
		HTMLURL:   fmt.Sprintf("https://example.invalid/issues/%d", p.next),
		CreatedAt: time.Now().UTC(),
	}
	for _, l := range issue.Labels {
		created.Labels = append(created.Labels, model.Label{Name: l})
	}
	p.next++
	p.issues = append(p.issues, created)
	p.created = append(p.created, issue)
	return created, nil
}

func (p *FakePlatform) EnsureLabels(ctx context.Context, labels []string) error {
	if err := p.fail("EnsureLabels"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range labels {
		exists := slices.ContainsFunc(p.labels, func(have string) bool {
			return strings.EqualFold(have, l)
		})
		if !exists {
			p.labels = append(p.labels, l)
			p.newTags = append(p.newTags, l)
		}
	}
	return nil
}

// Created returns the issues filed so far.
func (p *FakePlatform) Created() []model.Issue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.created)
}

// CreatedLabels returns the labels EnsureLabels had to create.
func (p *FakePlatform) CreatedLabels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.newTags)
}
