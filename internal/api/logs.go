package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxJobLogBytes bounds a single job log read into memory.
const maxJobLogBytes = 64 << 20

// DownloadRunAttemptLogs downloads the zip archive of logs for a run attempt.
// GitHub returns a 302 redirect to a short-lived archive URL.
func (c *Client) DownloadRunAttemptLogs(ctx context.Context, runID int64, attempt int) (io.ReadCloser, error) {
	if attempt < 1 {
		attempt = 1
	}
	op := fmt.Sprintf("download logs for run %d attempt %d", runID, attempt)
	return c.downloadLogs(ctx, op, c.repoPath(fmt.Sprintf("actions/runs/%d/attempts/%d/logs", runID, attempt)))
}

// DownloadJobLog downloads the plain text log of a job.
func (c *Client) DownloadJobLog(ctx context.Context, jobID int64) (io.ReadCloser, error) {
	op := fmt.Sprintf("download log for job %d", jobID)
	return c.downloadLogs(ctx, op, c.repoPath(fmt.Sprintf("actions/jobs/%d/logs", jobID)))
}

// JobLog reads a job log into memory.
func (c *Client) JobLog(ctx context.Context, jobID int64) (string, error) {
	rc, err := c.DownloadJobLog(ctx, jobID)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxJobLogBytes))
	if err != nil {
		return "", wrapErr(fmt.Sprintf("read log for job %d", jobID), err)
	}
	return string(data), nil
}

func (c *Client) downloadLogs(ctx context.Context, op, apiPath string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, restBase(c.host)+apiPath, nil)
	if err != nil {
		return nil, wrapErr(op, fmt.Errorf("build log request: %w", err))
	}

	// The download client keeps gh credentials but stops at the redirect.
	resp, err := c.download.Do(req)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	// Follow the redirect to the archive URL (no auth needed)
	if resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusTemporaryRedirect {
		location := resp.Header.Get("Location")
		resp.Body.Close()
		if location == "" {
			return nil, wrapErr(op, fmt.Errorf("redirect with no Location header"))
		}
		redirectReq, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, wrapErr(op, fmt.Errorf("create redirect request: %w", err))
		}
		resp, err = c.plain.Do(redirectReq)
		if err != nil {
			return nil, wrapErr(op, fmt.Errorf("follow redirect: %w", err))
		}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &PlatformError{
			Op:         op,
			StatusCode: resp.StatusCode,
			RateLimit:  ParseRateLimit(resp.Header),
			Err:        fmt.Errorf("unexpected status downloading logs"),
		}
	}

	return resp.Body, nil
}
