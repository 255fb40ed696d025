package slurm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// requester is the subset of [Transport] the Client talks to.
type requester interface {
	Get(ctx context.Context, rawURL string, headers map[string]string, params any) (any, error)
	Post(ctx context.Context, rawURL string, data any, headers map[string]string) (any, error)
	Delete(ctx context.Context, rawURL string, headers map[string]string) (any, error)
}

// Client maps Slurm REST operations onto [Transport] calls. Every method
// except [Client.Authenticate] is protected and fails with
// [ErrAuthRequired] before touching the network when no access token is set.
//
// The access token is a plain field: do not call [Client.SetAccessToken]
// concurrently with protected calls. Give each goroutine its own Client if
// tokens change under load.
type Client struct {
	baseURL     string
	accessToken string
	transport   *Transport
	requester   requester
}

// NewClient creates a new Slurm client for the service at baseURL. A single
// trailing slash is removed.
//
// Example:
//
//	client, err := slurm.NewClient("https://slurm.example.com/api")
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("slurm: base URL is required")
	}
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	t := cfg.transport
	if t == nil {
		t = NewTransport(cfg.transportOpts...)
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: cfg.accessToken,
		transport:   t,
		requester:   t,
	}, nil
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string { return c.baseURL }

// AccessToken returns the current bearer token, or "" when unset.
func (c *Client) AccessToken() string { return c.accessToken }

// SetAccessToken replaces the bearer token used by subsequent protected
// calls. An empty token makes them fail with [ErrAuthRequired].
func (c *Client) SetAccessToken(token string) { c.accessToken = token }

// Transport returns the Transport the client sends requests through.
func (c *Client) Transport() *Transport { return c.transport }

// authHeader guards protected operations and builds the Authorization
// header from the token as it is right now.
func (c *Client) authHeader() (map[string]string, error) {
	if c.accessToken == "" {
		return nil, authRequiredError()
	}
	return map[string]string{"Authorization": "Bearer " + c.accessToken}, nil
}

// --- Wire format types for requests ---

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JobQuery filters [Client.ListJobs]. Nil fields are left off the query
// string.
type JobQuery struct {
	// Q is a free-text search query.
	Q *string `url:"q,omitempty"`

	// Offset is the offset of the first row.
	Offset *int `url:"offset,omitempty"`

	// Limit caps the number of rows returned.
	Limit *int `url:"limit,omitempty"`
}

// String returns a pointer to s, for [JobQuery] fields.
func String(s string) *string { return &s }

// Int returns a pointer to n, for [JobQuery] fields.
func Int(n int) *int { return &n }

// Authenticate signs in with user credentials. The response usually carries
// the token to pass to [Client.SetAccessToken].
func (c *Client) Authenticate(ctx context.Context, username, password string) (any, error) {
	return c.requester.Post(ctx, c.baseURL+"/auth/sign-in", credentials{Username: username, Password: password}, nil)
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, username, password string) (any, error) {
	auth, err := c.authHeader()
	if err != nil {
		return nil, err
	}
	return c.requester.Post(ctx, c.baseURL+"/users", credentials{Username: username, Password: password}, auth)
}

// ListUsers returns the list of users.
func (c *Client) ListUsers(ctx context.Context) (any, error) {
	auth, err := c.authHeader()
	if err != nil {
		return nil, err
	}
	return c.requester.Get(ctx, c.baseURL+"/users", auth, nil)
}

// ListJobs returns the jobs matching q.
//
// Example:
//
//	jobs, err := client.ListJobs(ctx, slurm.JobQuery{
//	    Q:     slurm.String("state:failed"),
//	    Limit: slurm.Int(20),
//	})
func (c *Client) ListJobs(ctx context.Context, q JobQuery) (any, error) {
	auth, err := c.authHeader()
	if err != nil {
		return nil, err
	}
	return c.requester.Get(ctx, c.baseURL+"/jobs", auth, q)
}

// PauseJob pauses a job.
func (c *Client) PauseJob(ctx context.Context, jobID int) (any, error) {
	return c.jobAction(ctx, jobID, "pause")
}

// ResumeJob resumes a paused job.
func (c *Client) ResumeJob(ctx context.Context, jobID int) (any, error) {
	return c.jobAction(ctx, jobID, "resume")
}

// RetryJob re-runs a job.
func (c *Client) RetryJob(ctx context.Context, jobID int) (any, error) {
	return c.jobAction(ctx, jobID, "retry")
}

// DeleteJob deletes a job.
func (c *Client) DeleteJob(ctx context.Context, jobID int) (any, error) {
	auth, err := c.authHeader()
	if err != nil {
		return nil, err
	}
	return c.requester.Delete(ctx, fmt.Sprintf("%s/jobs/%d", c.baseURL, jobID), auth)
}

func (c *Client) jobAction(ctx context.Context, jobID int, action string) (any, error) {
	auth, err := c.authHeader()
	if err != nil {
		return nil, err
	}
	return c.requester.Post(ctx, fmt.Sprintf("%s/jobs/%d/%s", c.baseURL, jobID, action), nil, auth)
}
