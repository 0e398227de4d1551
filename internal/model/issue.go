package model

import "time"

// Issue is an issue ready to be filed.
type Issue struct {
	Title  string
	Body   string
	Labels []string
}

// ExistingIssue is an issue already present on the tracker.
type ExistingIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	Labels    []Label   `json:"labels"`

	// PullRequest is set by the issues API when the entry is a pull request.
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}
