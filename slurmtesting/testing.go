// Package slurmtesting provides test utilities for applications built on the
// Slurm client.
//
// [NewServer] starts an in-memory fake of the Slurm REST API behind an
// httptest server. It implements sign-in, users and the job operations,
// enforces bearer tokens, and records every request so tests can assert on
// exactly what was sent:
//
//	func TestPauseNightlyJobs(t *testing.T) {
//	    srv := slurmtesting.NewServer(t)
//	    job := srv.AddJob("nightly-backup", "ops", slurmtesting.JobRunning)
//	    client := srv.AuthorizedClient(t, "ops")
//
//	    pauseNightly(client)
//
//	    slurmtesting.AssertRequested(t, srv.FakeStore, "POST",
//	        fmt.Sprintf("/jobs/%d/pause", job.ID))
//	}
package slurmtesting

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// Job states used by the fake server.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobPaused    = "paused"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// FakeJob is a job held by the fake server.
type FakeJob struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	State     string    `json:"state"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// FakeUser is a user account held by the fake server.
type FakeUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	password string
}

// RecordedRequest is one request received by the fake server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// MatchOption is a functional option for matching recorded requests.
type MatchOption func(*matchCriteria)

type matchCriteria struct {
	header map[string]string
	query  map[string]string
	body   any
	noBody bool
	count  int // 0 means "at least 1"
}

// MatchHeader requires the request to carry header key with value.
func MatchHeader(key, value string) MatchOption {
	return func(c *matchCriteria) {
		if c.header == nil {
			c.header = make(map[string]string)
		}
		c.header[key] = value
	}
}

// MatchQuery requires query parameter key to equal value.
func MatchQuery(key, value string) MatchOption {
	return func(c *matchCriteria) {
		if c.query == nil {
			c.query = make(map[string]string)
		}
		c.query[key] = value
	}
}

// MatchBody requires the JSON body to equal body once both are marshaled.
func MatchBody(body any) MatchOption {
	return func(c *matchCriteria) { c.body = body }
}

// MatchNoBody requires an empty request body.
func MatchNoBody() MatchOption {
	return func(c *matchCriteria) { c.noBody = true }
}

// MatchCount requires exactly n matching requests.
func MatchCount(n int) MatchOption {
	return func(c *matchCriteria) { c.count = n }
}

// FakeStore is the in-memory state behind the fake server.
type FakeStore struct {
	mu       sync.Mutex
	users    []FakeUser
	jobs     map[int]*FakeJob
	tokens   map[string]string
	requests []RecordedRequest
	nextUser int
	nextJob  int
	nextTok  int
}

// NewStore returns an empty store.
func NewStore() *FakeStore {
	return &FakeStore{
		jobs:   make(map[int]*FakeJob),
		tokens: make(map[string]string),
	}
}

// AddUser registers an account that can sign in.
func (s *FakeStore) AddUser(username, password string) FakeUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password)
}

func (s *FakeStore) addUserLocked(username, password string) FakeUser {
	s.nextUser++
	u := FakeUser{ID: s.nextUser, Username: username, password: password}
	s.users = append(s.users, u)
	return u
}

// AddJob stores a job in the given state and returns it with its ID.
func (s *FakeStore) AddJob(name, owner, state string) FakeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextJob++
	job := &FakeJob{
		ID:        s.nextJob,
		Name:      name,
		Owner:     owner,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
	s.jobs[job.ID] = job
	return *job
}

// Job returns the job with the given ID.
func (s *FakeStore) Job(id int) (FakeJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return FakeJob{}, false
	}
	return *job, true
}

// Users returns all accounts in creation order.
func (s *FakeStore) Users() []FakeUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FakeUser, len(s.users))
	copy(out, s.users)
	return out
}

// IssueToken returns a fresh bearer token for username.
func (s *FakeStore) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(username)
}

func (s *FakeStore) issueTokenLocked(username string) string {
	s.nextTok++
	token := fmt.Sprintf("fake-token-%06d", s.nextTok)
	s.tokens[token] = username
	return token
}

// Requests returns every request received so far.
func (s *FakeStore) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// ClearRequests forgets recorded requests. Users, jobs and tokens stay.
func (s *FakeStore) ClearRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *FakeStore) record(r RecordedRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
}

// sortedJobs returns jobs ordered by ID. Caller holds s.mu.
func (s *FakeStore) sortedJobs() []FakeJob {
	out := make([]FakeJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// AssertRequested asserts that at least one request with method and path
// was received.
func AssertRequested(t testing.TB, s *FakeStore, method, path string, opts ...MatchOption) {
	t.Helper()
	criteria := buildCriteria(opts)
	all := s.Requests()
	matches := filterRequests(all, method, path, criteria)

	if criteria.count > 0 {
		if len(matches) != criteria.count {
			t.Errorf("AssertRequested: expected %d request(s) to %s %s, found %d%s",
				criteria.count, method, path, len(matches), describeRequests(all))
		}
	} else if len(matches) == 0 {
		t.Errorf("AssertRequested: expected at least one request to %s %s, found none%s",
			method, path, describeRequests(all))
	}
}

// RefuteRequested asserts that NO request with method and path was received.
func RefuteRequested(t testing.TB, s *FakeStore, method, path string, opts ...MatchOption) {
	t.Helper()
	matches := filterRequests(s.Requests(), method, path, buildCriteria(opts))
	if len(matches) > 0 {
		t.Errorf("RefuteRequested: expected no requests to %s %s, found %d", method, path, len(matches))
	}
}

// --- helpers ---

func buildCriteria(opts []MatchOption) matchCriteria {
	var c matchCriteria
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func filterRequests(reqs []RecordedRequest, method, path string, c matchCriteria) []RecordedRequest {
	var result []RecordedRequest
	for _, r := range reqs {
		if r.Method != method || r.Path != path {
			continue
		}
		if !headersMatch(r.Header, c.header) || !queryMatches(r.Query, c.query) {
			continue
		}
		if c.noBody && len(r.Body) != 0 {
			continue
		}
		if c.body != nil && !bodyEqual(r.Body, c.body) {
			continue
		}
		result = append(result, r)
	}
	return result
}

func headersMatch(actual http.Header, expected map[string]string) bool {
	for k, v := range expected {
		if actual.Get(k) != v {
			return false
		}
	}
	return true
}

func queryMatches(actual url.Values, expected map[string]string) bool {
	for k, v := range expected {
		if actual.Get(k) != v {
			return false
		}
	}
	return true
}

func bodyEqual(raw []byte, expected any) bool {
	var got any
	if err := json.Unmarshal(raw, &got); err != nil {
		return false
	}
	var want any
	wj, _ := json.Marshal(expected)
	if err := json.Unmarshal(wj, &want); err != nil {
		return false
	}
	gj, _ := json.Marshal(got)
	wj, _ = json.Marshal(want)
	return string(gj) == string(wj)
}

func describeRequests(reqs []RecordedRequest) string {
	if len(reqs) == 0 {
		return "\n  No requests were received at all."
	}
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		parts = append(parts, r.Method+" "+r.Path)
	}
	return "\n  Received: " + strings.Join(parts, ", ")
}
