package issue

import (
	"fmt"
	"strings"

	"github.com/cli/go-gh/v2/pkg/repository"
)

const DefaultHost = "github.com"

// CanonicalRepoURL turns any of owner/repo, host/owner/repo,
// http(s)://host/owner/repo[/] or git@host:owner/repo.git into
// https://host/owner/repo. host is used when raw names none.
func CanonicalRepoURL(raw, host string) (string, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+len("://"):]
	}
	if rest, ok := strings.CutPrefix(s, "git@"); ok {
		s = strings.Replace(rest, ":", "/", 1)
	}
	s = strings.TrimSuffix(strings.TrimRight(s, "/"), ".git")
	if host == "" {
		host = DefaultHost
	}

	repo, err := repository.ParseWithHost(s, host)
	if err != nil {
		return "", fmt.Errorf("parse repository %q: %w", raw, err)
	}
	return fmt.Sprintf("https://%s/%s/%s", strings.ToLower(repo.Host), repo.Owner, repo.Name), nil
}

func runURL(repoURL string, runID int64) string {
	return fmt.Sprintf("%s/actions/runs/%d", repoURL, runID)
}

func jobURL(repoURL string, runID, jobID int64) string {
	return fmt.Sprintf("%s/actions/runs/%d/job/%d", repoURL, runID, jobID)
}
