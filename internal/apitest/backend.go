// Package apitest provides an in-memory workflow API server for tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowedit/internal/auth"
	"github.com/rendis/flowedit/pkg/schema"
)

// DefaultToken is accepted as a bearer token by every new Backend.
const DefaultToken = "test-token"

// Default account seeded into every Backend.
const (
	DefaultUsername = "demo"
	DefaultEmail    = "demo@example.com"
	DefaultPassword = "password"
)

// RecordedRequest captures one request received by the backend.
type RecordedRequest struct {
	Route       string
	Method      string
	Path        string
	QueryParams map[string]string
	Headers     http.Header
	Body        map[string]any
	RawBody     []byte
	ReceivedAt  time.Time
}

type cannedResponse struct {
	status int
	body   any
}

type account struct {
	user     auth.User
	password string
}

// Backend is an httptest server implementing the workflow REST API over
// in-memory state. Routes are keyed "METHOD /path" without the /api prefix,
// e.g. "PUT /workflows/{id}".
type Backend struct {
	t      testing.TB
	server *httptest.Server

	mu         sync.Mutex
	nextID     int64
	tokens     map[string]int64
	accounts   []*account
	workflows  map[int64]*schema.Workflow
	versions   map[int64][]*schema.WorkflowVersion
	executions map[int64]*schema.Execution
	logs       map[int64][]*schema.ExecutionLog
	requests   []*RecordedRequest
	overrides  map[string]*cannedResponse
}

// New starts a backend and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		t:          t,
		tokens:     map[string]int64{},
		workflows:  map[int64]*schema.Workflow{},
		versions:   map[int64][]*schema.WorkflowVersion{},
		executions: map[int64]*schema.Execution{},
		logs:       map[int64][]*schema.ExecutionLog{},
		overrides:  map[string]*cannedResponse{},
	}
	owner := b.addAccount(DefaultUsername, DefaultEmail, DefaultPassword)
	b.tokens[DefaultToken] = owner.user.ID

	mux := http.NewServeMux()
	for _, r := range b.routes() {
		method, path, _ := strings.Cut(r.key, " ")
		mux.HandleFunc(method+" /api"+path, b.wrap(r))
	}
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the API base URL, including the /api prefix.
func (b *Backend) URL() string { return b.server.URL + "/api" }

// Respond makes every request to route answer with status and body instead
// of the in-memory behavior, until Reset.
func (b *Backend) Respond(route string, status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[route] = &cannedResponse{status: status, body: body}
}

// Fail makes route answer with status and {"message": message}.
func (b *Backend) Fail(route string, status int, message string) {
	b.Respond(route, status, map[string]string{"message": message})
}

// Reset removes every Respond and Fail override.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.overrides)
}

// IssueToken registers an additional accepted bearer token for the default
// account.
func (b *Backend) IssueToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = b.accounts[0].user.ID
}

// RevokeTokens makes every bearer token unacceptable.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.tokens)
}

// SeedWorkflow stores w, owned by the default account unless CreatedBy is
// set. Its graph, when it has one, becomes version 1; the workflow itself
// keeps metadata only, as GET /workflows/{id} reports it.
// It returns the assigned id.
func (b *Backend) SeedWorkflow(w *schema.Workflow) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := w.Clone()
	g := stored.Graph()
	stored.Nodes, stored.Edges, stored.Definition = nil, nil, nil
	stored.ID = b.id()
	stored.Version = 1
	if stored.CreatedBy == 0 {
		stored.CreatedBy = b.accounts[0].user.ID
	}
	stored.CreatedAt = now()
	stored.UpdatedAt = stored.CreatedAt
	b.workflows[stored.ID] = stored
	if !g.Empty() {
		b.addVersion(stored, g, "")
	}
	return stored.ID
}

// SeedExecution stores e and its logs and returns the assigned id.
func (b *Backend) SeedExecution(e *schema.Execution, logs ...*schema.ExecutionLog) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := *e
	stored.ID = b.id()
	b.executions[stored.ID] = &stored
	for _, l := range logs {
		cp := *l
		cp.ID = b.id()
		cp.ExecutionID = stored.ID
		b.logs[stored.ID] = append(b.logs[stored.ID], &cp)
	}
	return stored.ID
}

// Workflow returns a copy of the stored workflow, or nil.
func (b *Backend) Workflow(id int64) *schema.Workflow {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.workflows[id]; ok {
		return w.Clone()
	}
	return nil
}

// Versions returns the stored versions of a workflow, oldest first.
func (b *Backend) Versions(id int64) []*schema.WorkflowVersion {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.versions[id])
}

// Requests returns every recorded request in arrival order.
func (b *Backend) Requests() []*RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// RequestsTo returns the recorded requests that matched route.
func (b *Backend) RequestsTo(route string) []*RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*RecordedRequest
	for _, r := range b.requests {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

// LastRequest returns the most recent request that matched route, or nil.
func (b *Backend) LastRequest(route string) *RecordedRequest {
	reqs := b.RequestsTo(route)
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

// route is one API endpoint. Handlers run with b.mu held.
type route struct {
	key    string
	public bool
	handle func(b *Backend, r *http.Request, body []byte, user int64) (int, any)
}

func (b *Backend) wrap(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		defer b.mu.Unlock()

		b.record(rt.key, r, raw)

		if canned, ok := b.overrides[rt.key]; ok {
			writeJSON(w, canned.status, canned.body)
			return
		}

		var user int64
		if !rt.public {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeJSON(w, http.StatusUnauthorized, message("Token is missing"))
				return
			}
			if user, ok = b.tokens[token]; !ok {
				writeJSON(w, http.StatusUnauthorized, message("Token is invalid"))
				return
			}
		}

		status, body := rt.handle(b, r, raw, user)
		writeJSON(w, status, body)
	}
}

func (b *Backend) record(key string, r *http.Request, raw []byte) {
	rec := &RecordedRequest{
		Route:       key,
		Method:      r.Method,
		Path:        strings.TrimPrefix(r.URL.Path, "/api"),
		QueryParams: map[string]string{},
		Headers:     r.Header.Clone(),
		RawBody:     raw,
		ReceivedAt:  time.Now(),
	}
	for k := range r.URL.Query() {
		rec.QueryParams[k] = r.URL.Query().Get(k)
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}
	b.requests = append(b.requests, rec)
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) addAccount(username, email, password string) *account {
	a := &account{
		user: auth.User{
			ID:       b.id(),
			Username: username,
			Email:    email,
			Role:     "user",
			IsActive: true,
		},
		password: password,
	}
	b.accounts = append(b.accounts, a)
	return a
}

// addVersion stores g as revision w.Version.
func (b *Backend) addVersion(w *schema.Workflow, g schema.Graph, notes string) *schema.WorkflowVersion {
	if notes == "" {
		notes = "Version " + strconv.Itoa(w.Version)
	}
	v := &schema.WorkflowVersion{
		ID:         b.id(),
		WorkflowID: w.ID,
		Version:    w.Version,
		Definition: g.Clone(),
		CreatedBy:  w.CreatedBy,
		CreatedAt:  now(),
		Notes:      notes,
	}
	b.versions[w.ID] = append(b.versions[w.ID], v)
	return v
}

func newToken() string { return "tok-" + uuid.NewString() }

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func message(msg string) map[string]string { return map[string]string{"message": msg} }

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
