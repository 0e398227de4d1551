package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	ghAPI "github.com/cli/go-gh/v2/pkg/api"
)

// DefaultHost is used when no host is configured.
const DefaultHost = "github.com"

type Client struct {
	rest  *ghAPI.RESTClient
	owner string
	repo  string
	host  string

	// download does not follow redirects; plain fetches the redirect target
	// without credentials.
	download *http.Client
	plain    *http.Client
}

// Options tunes how the client reaches the API. The zero value talks to
// github.com with the credentials of the gh CLI.
type Options struct {
	Host      string
	AuthToken string
	Timeout   time.Duration
	// Transport replaces the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

type RateLimit struct {
	Remaining int
	Limit     int
	Reset     int64
}

func NewClient(owner, repo string, opts Options) (*Client, error) {
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	clientOpts := ghAPI.ClientOptions{
		Host:      host,
		AuthToken: opts.AuthToken,
		Timeout:   opts.Timeout,
		Transport: opts.Transport,
	}
	rest, err := ghAPI.NewRESTClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client (is gh authenticated?): %w", err)
	}
	download, err := ghAPI.NewHTTPClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	download.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Client{
		rest:     rest,
		owner:    owner,
		repo:     repo,
		host:     host,
		download: download,
		plain:    &http.Client{Transport: opts.Transport, Timeout: opts.Timeout},
	}, nil
}

func (c *Client) Owner() string { return c.owner }
func (c *Client) Repo() string  { return c.repo }
func (c *Client) Host() string  { return c.host }

// FullName is the owner/repo pair.
func (c *Client) FullName() string {
	return c.owner + "/" + c.repo
}

func (c *Client) repoPath(path string) string {
	return fmt.Sprintf("repos/%s/%s/%s", c.owner, c.repo, path)
}

// restBase mirrors the API root go-gh derives for a host.
func restBase(host string) string {
	switch {
	case strings.EqualFold(host, DefaultHost):
		return "https://api.github.com/"
	case strings.HasSuffix(strings.ToLower(host), ".ghe.com"):
		return fmt.Sprintf("https://api.%s/", host)
	default:
		return fmt.Sprintf("https://%s/api/v3/", host)
	}
}

func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.rest.DoWithContext(ctx, http.MethodGet, c.repoPath(path), nil, result)
}

func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	reader, err := encodeBody(body)
	if err != nil {
		return err
	}
	return c.rest.DoWithContext(ctx, http.MethodPost, c.repoPath(path), reader, result)
}

func encodeBody(body interface{}) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// ParseRateLimit reads the X-RateLimit-* response headers.
func ParseRateLimit(h http.Header) RateLimit {
	rl := RateLimit{}
	if h == nil {
		return rl
	}
	rl.Remaining, _ = strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	rl.Limit, _ = strconv.Atoi(h.Get("X-RateLimit-Limit"))
	rl.Reset, _ = strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	return rl
}
