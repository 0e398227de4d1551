package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/altinukshini/gha-triage/internal/model"
)

type RunsFilter struct {
	WorkflowFile string
	Branch       string
	Event        string
	Status       string
	Created      string // e.g. ">=2025-01-01" for date range filtering
	PerPage      int
	Page         int
}

func (f RunsFilter) QueryString() string {
	v := url.Values{}
	if f.Branch != "" {
		v.Set("branch", f.Branch)
	}
	if f.Event != "" {
		v.Set("event", f.Event)
	}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.Created != "" {
		v.Set("created", f.Created)
	}
	if f.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	} else {
		v.Set("per_page", "30")
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if qs := v.Encode(); qs != "" {
		return "?" + qs
	}
	return ""
}

func (c *Client) ListRuns(ctx context.Context, filter RunsFilter) (*model.RunsResponse, error) {
	basePath := "actions/runs"
	if filter.WorkflowFile != "" {
		basePath = fmt.Sprintf("actions/workflows/%s/runs", url.PathEscape(filter.WorkflowFile))
	}

	var resp model.RunsResponse
	err := c.Get(ctx, basePath+filter.QueryString(), &resp)
	if err != nil {
		err = wrapErr("list runs", err)
		// Workflow may have been deleted or have no runs, treat 404 as empty
		if IsNotFound(err) {
			return &model.RunsResponse{}, nil
		}
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetRun(ctx context.Context, runID int64) (*model.Run, error) {
	var run model.Run
	err := c.Get(ctx, fmt.Sprintf("actions/runs/%d", runID), &run)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get run %d", runID), err)
	}
	return &run, nil
}
