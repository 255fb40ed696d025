package slurmtesting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	slurm "github.com/slurmsdk/slurm-go-sdk"
)

// Server is a running fake Slurm REST API.
type Server struct {
	*FakeStore

	// URL is the base URL of the fake, suitable for [slurm.NewClient].
	URL string
}

// NewServer starts a fake server that is shut down when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := NewStore()
	server := httptest.NewServer(fakeHandler(s))
	t.Cleanup(server.Close)
	return &Server{FakeStore: s, URL: server.URL}
}

// Client returns a [slurm.Client] pointed at the fake.
func (s *Server) Client(t testing.TB, opts ...slurm.ClientOption) *slurm.Client {
	t.Helper()
	client, err := slurm.NewClient(s.URL, opts...)
	if err != nil {
		t.Fatalf("slurmtesting: Client: %v", err)
	}
	return client
}

// AuthorizedClient returns a client that already holds a valid token for
// username.
func (s *Server) AuthorizedClient(t testing.TB, username string, opts ...slurm.ClientOption) *slurm.Client {
	t.Helper()
	opts = append([]slurm.ClientOption{slurm.WithAccessToken(s.IssueToken(username))}, opts...)
	return s.Client(t, opts...)
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// fakeHandler returns an http.Handler that serves the Slurm API from s.
func fakeHandler(s *FakeStore) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/sign-in", func(w http.ResponseWriter, r *http.Request) { handleSignIn(w, r, s) })
	mux.HandleFunc("GET /users", s.protect(handleListUsers))
	mux.HandleFunc("POST /users", s.protect(handleCreateUser))
	mux.HandleFunc("GET /jobs", s.protect(handleListJobs))
	mux.HandleFunc("POST /jobs/{id}/{action}", s.protect(handleJobAction))
	mux.HandleFunc("DELETE /jobs/{id}", s.protect(handleDeleteJob))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		s.record(RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		mux.ServeHTTP(w, r)
	})
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, s *FakeStore)

// protect rejects requests without a token issued by the store.
func (s *FakeStore) protect(next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, known := s.tokens[token]
		s.mu.Unlock()
		if !ok || !known {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next(w, r, s)
	}
}

func handleSignIn(w http.ResponseWriter, r *http.Request, s *FakeStore) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == req.Username && u.password == req.Password {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": s.issueTokenLocked(u.Username),
				"token_type":   "bearer",
			})
			return
		}
	}
	writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
}

func handleListUsers(w http.ResponseWriter, r *http.Request, s *FakeStore) {
	writeJSON(w, http.StatusOK, s.Users())
}

func handleCreateUser(w http.ResponseWriter, r *http.Request, s *FakeStore) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == req.Username {
			writeDetail(w, http.StatusConflict, fmt.Sprintf("user %q already exists", req.Username))
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.addUserLocked(req.Username, req.Password))
}

func handleListJobs(w http.ResponseWriter, r *http.Request, s *FakeStore) {
	query := r.URL.Query()
	offset, err := intParam(query.Get("offset"), 0)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "offset: "+err.Error())
		return
	}
	limit, err := intParam(query.Get("limit"), -1)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "limit: "+err.Error())
		return
	}
	q := query.Get("q")

	s.mu.Lock()
	all := s.sortedJobs()
	s.mu.Unlock()

	matched := make([]FakeJob, 0, len(all))
	for _, j := range all {
		if q == "" || j.State == q || strings.Contains(j.Name, q) || strings.Contains(j.Owner, q) {
			matched = append(matched, j)
		}
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit >= 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	writeJSON(w, http.StatusOK, matched)
}

// transitions maps an action to the states it may start from and the state
// it leads to.
var transitions = map[string]struct {
	from []string
	to   string
}{
	"pause":  {from: []string{JobPending, JobRunning}, to: JobPaused},
	"resume": {from: []string{JobPaused}, to: JobPending},
	"retry":  {from: []string{JobFailed, JobCompleted}, to: JobPending},
}

func handleJobAction(w http.ResponseWriter, r *http.Request, s *FakeStore) {
	tr, ok := transitions[r.PathValue("action")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return
	}
	allowed := false
	for _, st := range tr.from {
		if job.State == st {
			allowed = true
			break
		}
	}
	if !allowed {
		writeDetail(w, http.StatusConflict, fmt.Sprintf("cannot %s job %d in state %s", r.PathValue("action"), id, job.State))
		return
	}
	if r.PathValue("action") == "retry" {
		job.Attempts++
	}
	job.State = tr.to
	writeJSON(w, http.StatusOK, job)
}

func handleDeleteJob(w http.ResponseWriter, r *http.Request, s *FakeStore) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return
	}
	delete(s.jobs, id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func jobID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "job id must be an integer")
		return 0, false
	}
	return id, true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}
