package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/altinukshini/gha-triage/internal/model"
)

// maxJobPages bounds pagination; a run has at most 256 jobs per attempt.
const maxJobPages = 5

type JobsFilter struct {
	Filter  string // "latest", "all"
	PerPage int
	Page    int
}

func (f JobsFilter) QueryString() string {
	v := url.Values{}
	if f.Filter != "" {
		v.Set("filter", f.Filter)
	}
	if f.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	} else {
		v.Set("per_page", "100")
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if qs := v.Encode(); qs != "" {
		return "?" + qs
	}
	return ""
}

func (c *Client) ListJobs(ctx context.Context, runID int64, filter JobsFilter) (*model.JobsResponse, error) {
	var resp model.JobsResponse
	path := fmt.Sprintf("actions/runs/%d/jobs%s", runID, filter.QueryString())
	if err := c.Get(ctx, path, &resp); err != nil {
		return nil, wrapErr(fmt.Sprintf("list jobs for run %d", runID), err)
	}
	return &resp, nil
}

// ListAllJobs pages through the jobs of the latest attempt of a run.
func (c *Client) ListAllJobs(ctx context.Context, runID int64) ([]model.Job, error) {
	var jobs []model.Job
	filter := JobsFilter{Filter: "latest", PerPage: 100}
	for page := 1; page <= maxJobPages; page++ {
		filter.Page = page
		resp, err := c.ListJobs(ctx, runID, filter)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, resp.Jobs...)
		if len(resp.Jobs) < filter.PerPage || len(jobs) >= resp.TotalCount {
			break
		}
	}
	return jobs, nil
}
