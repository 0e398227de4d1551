package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/altinukshini/gha-triage/internal/model"
)

// maxIssuePages bounds how many open issues are pulled for duplicate checks.
const maxIssuePages = 10

type IssuesFilter struct {
	State   string // "open", "closed", "all"
	Labels  []string
	PerPage int
	Page    int
}

func (f IssuesFilter) QueryString() string {
	v := url.Values{}
	if f.State != "" {
		v.Set("state", f.State)
	}
	if len(f.Labels) > 0 {
		v.Set("labels", strings.Join(f.Labels, ","))
	}
	if f.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	} else {
		v.Set("per_page", "100")
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	return "?" + v.Encode()
}

// ListIssues pages through issues matching filter. Pull requests, which the
// issues endpoint also returns, are dropped.
func (c *Client) ListIssues(ctx context.Context, filter IssuesFilter) ([]model.ExistingIssue, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 100
	}
	var out []model.ExistingIssue
	for page := 1; page <= maxIssuePages; page++ {
		filter.Page = page
		var batch []model.ExistingIssue
		if err := c.Get(ctx, "issues"+filter.QueryString(), &batch); err != nil {
			return nil, wrapErr("list issues", err)
		}
		for _, is := range batch {
			if is.PullRequest != nil {
				continue
			}
			out = append(out, is)
		}
		if len(batch) < filter.PerPage {
			break
		}
	}
	return out, nil
}

type createIssueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// CreateIssue files issue and returns the created record.
func (c *Client) CreateIssue(ctx context.Context, issue model.Issue) (*model.ExistingIssue, error) {
	var created model.ExistingIssue
	req := createIssueRequest{Title: issue.Title, Body: issue.Body, Labels: issue.Labels}
	if err := c.Post(ctx, "issues", req, &created); err != nil {
		return nil, wrapErr(fmt.Sprintf("create issue %q", issue.Title), err)
	}
	return &created, nil
}
