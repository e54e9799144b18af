// Package buildserver talks to the Jenkins remote access API.
//
// Every operation is a plain pass-through returning (value, error); the one
// exception is AddJobsToView, which returns a domain.Outcome.
package buildserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/telemetry"
)

const system = "jenkins"

// Config holds the server URL and basic-auth credentials. Token may be an API
// token or a password.
type Config struct {
	URL      string
	Username string
	Token    string
	Timeout  time.Duration
	Recorder telemetry.Recorder
}

// Client is the Jenkins facade. It is not safe for concurrent use except for
// the lazily fetched CSRF crumb.
type Client struct {
	baseURL  string
	username string
	token    string
	http     *http.Client
	rec      telemetry.Recorder

	crumbMu     sync.Mutex
	crumb       crumb
	crumbLoaded bool
}

type crumb struct {
	Field string `json:"crumbRequestField"`
	Value string `json:"crumb"`
}

// New builds a client and checks the credentials against /api/json.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("jenkins url is required")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid jenkins url %q: %w", cfg.URL, err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	// With password logins the crumb is bound to the web session, so the
	// session cookie must travel with every later POST.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	c := &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		token:    cfg.Token,
		rec:      cfg.Recorder,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			// Jenkins answers most POSTs with a redirect; the redirect target is irrelevant.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
	if _, err := c.do(ctx, "connect", http.MethodGet, "/api/json", nil, nil, ""); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, fmt.Errorf("jenkins credentials rejected: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("connecting to %s: %w", c.baseURL, err)
	}
	return c, nil
}

// jobPath maps "folder/job" to "/job/folder/job/job".
func jobPath(name string) string {
	var sb strings.Builder
	for _, part := range strings.Split(strings.Trim(name, "/"), "/") {
		sb.WriteString("/job/")
		sb.WriteString(url.PathEscape(part))
	}
	return sb.String()
}

// splitJobName returns the folder path prefix and the leaf name.
func splitJobName(name string) (string, string) {
	name = strings.Trim(name, "/")
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return "", name
	}
	return jobPath(name[:i]), name[i+1:]
}

func viewPath(name string) string {
	return "/view/" + url.PathEscape(name)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, target any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, target); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}

func (c *Client) getText(ctx context.Context, op, path string) (string, error) {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return "", err
	}
	return string(resp.body), nil
}

// post sends a crumb-protected request. A crumb rejected because its
// session expired is fetched again once.
func (c *Client) post(ctx context.Context, op, path string, query url.Values, body []byte, contentType string) (*response, error) {
	resp, err := c.do(ctx, op, http.MethodPost, path, query, body, contentType)
	var re *domain.RemoteError
	if errors.As(err, &re) && re.Status == http.StatusForbidden && strings.Contains(re.Detail, "No valid crumb") {
		c.resetCrumb()
		return c.do(ctx, op, http.MethodPost, path, query, body, contentType)
	}
	return resp, err
}

// do performs one request. Any status below 400 is success.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte, contentType string) (resp *response, err error) {
	start := time.Now()
	defer func() { c.rec.Done(op, start, err) }()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.username != "" || c.token != "" {
		req.SetBasicAuth(c.username, c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method == http.MethodPost {
		cr, err := c.loadCrumb(ctx)
		if err != nil {
			return nil, err
		}
		if cr.Field != "" {
			req.Header.Set(cr.Field, cr.Value)
		}
	}

	raw, err := c.http.Do(req)
	if err != nil {
		return nil, domain.TransportError(system, op, err)
	}
	defer raw.Body.Close()
	data, err := io.ReadAll(raw.Body)
	if err != nil {
		return nil, domain.TransportError(system, op, err)
	}
	if raw.StatusCode >= 400 {
		return nil, domain.HTTPError(system, op, raw.StatusCode, string(data))
	}
	return &response{status: raw.StatusCode, header: raw.Header, body: data}, nil
}

// loadCrumb fetches the CSRF crumb on first use. A server without a crumb
// issuer yields an empty crumb. Failures are not cached.
func (c *Client) loadCrumb(ctx context.Context) (crumb, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()
	if c.crumbLoaded {
		return c.crumb, nil
	}
	var cr crumb
	err := c.getJSON(ctx, "get crumb", "/crumbIssuer/api/json", nil, &cr)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return crumb{}, err
	}
	c.crumb, c.crumbLoaded = cr, true
	return cr, nil
}

func (c *Client) resetCrumb() {
	c.crumbMu.Lock()
	c.crumb, c.crumbLoaded = crumb{}, false
	c.crumbMu.Unlock()
}
