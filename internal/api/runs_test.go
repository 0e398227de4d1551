package api

import "testing"

func TestRunsFilterQueryString(t *testing.T) {
	tests := []struct {
		name   string
		filter RunsFilter
		want   string
	}{
		{
			name:   "empty filter",
			filter: RunsFilter{},
			want:   "?per_page=30",
		},
		{
			name:   "branch filter",
			filter: RunsFilter{Branch: "main", PerPage: 10},
			want:   "?branch=main&per_page=10",
		},
		{
			name:   "status and event",
			filter: RunsFilter{Status: "failure", Event: "schedule"},
			want:   "?event=schedule&per_page=30&status=failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.QueryString()
			if got != tt.want {
				t.Errorf("QueryString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIssuesFilterQueryString(t *testing.T) {
	f := IssuesFilter{State: "open", Labels: []string{"CI", "do_fetch"}, Page: 2}
	want := "?labels=CI%2Cdo_fetch&page=2&per_page=100&state=open"
	if got := f.QueryString(); got != want {
		t.Errorf("QueryString() = %q, want %q", got, want)
	}
}
