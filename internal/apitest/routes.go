package apitest

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/rendis/flowedit/pkg/schema"
)

func (b *Backend) routes() []route {
	return []route{
		{key: "POST /auth/login", public: true, handle: (*Backend).login},
		{key: "POST /auth/register", public: true, handle: (*Backend).register},
		{key: "GET /auth/me", handle: (*Backend).me},

		{key: "GET /workflows", handle: (*Backend).listWorkflows},
		{key: "POST /workflows", handle: (*Backend).createWorkflow},
		{key: "GET /workflows/{id}", handle: (*Backend).getWorkflow},
		{key: "PUT /workflows/{id}", handle: (*Backend).updateWorkflow},
		{key: "DELETE /workflows/{id}", handle: (*Backend).deleteWorkflow},
		{key: "GET /workflows/{id}/versions", handle: (*Backend).listVersions},
		{key: "GET /workflows/{id}/versions/{version}", handle: (*Backend).getVersion},
		{key: "POST /workflows/{id}/execute", handle: (*Backend).executeWorkflow},

		{key: "GET /executions", handle: (*Backend).listExecutions},
		{key: "GET /executions/{id}", handle: (*Backend).getExecution},
		{key: "GET /executions/{id}/logs", handle: (*Backend).executionLogs},
		{key: "POST /executions/{id}/cancel", handle: (*Backend).cancelExecution},

		{key: "GET /nodes", handle: echo},
		{key: "GET /nodes/categories", handle: echo},
		{key: "GET /ai/models", handle: echo},
		{key: "POST /ai/llm/process", handle: echo},
		{key: "POST /ai/agent/process", handle: echo},
		{key: "POST /ai/content/generate", handle: echo},
		{key: "POST /ai/workflow/suggest", handle: echo},
		{key: "GET /templates", handle: echo},
		{key: "GET /templates/{id}", handle: echo},
		{key: "POST /templates/{id}/use", handle: echo},
		{key: "GET /triggers/webhooks", handle: echo},
		{key: "POST /triggers/webhooks", handle: echo},
		{key: "GET /triggers/schedules", handle: echo},
		{key: "POST /triggers/schedules", handle: echo},
	}
}

// echo answers the opaque endpoints with the request they received.
func echo(_ *Backend, r *http.Request, body []byte, _ int64) (int, any) {
	out := map[string]any{"path": r.URL.Path}
	if len(body) > 0 {
		out["input"] = json.RawMessage(body)
	}
	if q := r.URL.Query(); len(q) > 0 {
		out["query"] = q
	}
	return http.StatusOK, out
}

func (b *Backend) login(_ *http.Request, body []byte, _ int64) (int, any) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.Unmarshal(body, &req)
	if (req.Username == "" && req.Email == "") || req.Password == "" {
		return http.StatusBadRequest, message("Missing username or password")
	}
	for _, a := range b.accounts {
		match := (req.Username != "" && a.user.Username == req.Username) ||
			(req.Email != "" && a.user.Email == req.Email)
		if match && a.password == req.Password {
			token := newToken()
			b.tokens[token] = a.user.ID
			return http.StatusOK, map[string]any{"message": "Login successful", "token": token, "user": a.user}
		}
	}
	return http.StatusUnauthorized, message("Invalid username or password")
}

func (b *Backend) register(_ *http.Request, body []byte, _ int64) (int, any) {
	var req struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.Unmarshal(body, &req)
	if req.Username == "" {
		req.Username = req.Name
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return http.StatusBadRequest, message("Missing required fields")
	}
	for _, a := range b.accounts {
		if a.user.Username == req.Username {
			return http.StatusConflict, message("Username already exists")
		}
		if a.user.Email == req.Email {
			return http.StatusConflict, message("Email already exists")
		}
	}
	a := b.addAccount(req.Username, req.Email, req.Password)
	return http.StatusCreated, map[string]any{"message": "User registered successfully", "user": a.user}
}

func (b *Backend) me(_ *http.Request, _ []byte, user int64) (int, any) {
	for _, a := range b.accounts {
		if a.user.ID == user {
			return http.StatusOK, map[string]any{"user": a.user}
		}
	}
	return http.StatusUnauthorized, message("User not found")
}

// workflowFor resolves {id} and applies the ownership rule.
func (b *Backend) workflowFor(r *http.Request, user int64, write bool) (*schema.Workflow, int, any) {
	id, ok := pathID(r, "id")
	w, found := b.workflows[id]
	if !ok || !found {
		return nil, http.StatusNotFound, message("Workflow not found")
	}
	if w.CreatedBy != user && (write || !w.IsPublic) {
		return nil, http.StatusForbidden, message("Unauthorized access")
	}
	return w, 0, nil
}

func (b *Backend) listWorkflows(r *http.Request, _ []byte, user int64) (int, any) {
	q := r.URL.Query()
	out := []*schema.Workflow{}
	for _, id := range sortedKeys(b.workflows) {
		w := b.workflows[id]
		if w.CreatedBy != user && !w.IsPublic {
			continue
		}
		if v := q.Get("is_active"); v != "" && strconv.FormatBool(w.IsActive) != v {
			continue
		}
		if v := q.Get("is_public"); v != "" && strconv.FormatBool(w.IsPublic) != v {
			continue
		}
		if tag := q.Get("tag"); tag != "" && !slices.Contains(w.Tags, tag) {
			continue
		}
		out = append(out, w)
	}
	return http.StatusOK, map[string]any{"workflows": out}
}

func (b *Backend) createWorkflow(_ *http.Request, body []byte, user int64) (int, any) {
	var req struct {
		Name        string        `json:"name"`
		Description string        `json:"description"`
		IsActive    *bool         `json:"is_active"`
		IsPublic    bool          `json:"is_public"`
		Tags        []string      `json:"tags"`
		Definition  *schema.Graph `json:"definition"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Name == "" {
		return http.StatusBadRequest, message("Missing required fields")
	}
	w := &schema.Workflow{
		ID:          b.id(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
		Version:     1,
		CreatedBy:   user,
		CreatedAt:   now(),
	}
	w.UpdatedAt = w.CreatedAt
	if req.Definition != nil {
		b.addVersion(w, *req.Definition, "Initial version")
	}
	b.workflows[w.ID] = w
	return http.StatusCreated, map[string]any{"message": "Workflow created successfully", "workflow": w}
}

func (b *Backend) getWorkflow(r *http.Request, _ []byte, user int64) (int, any) {
	w, status, errBody := b.workflowFor(r, user, false)
	if w == nil {
		return status, errBody
	}
	return http.StatusOK, map[string]any{"workflow": w}
}

func (b *Backend) updateWorkflow(r *http.Request, body []byte, user int64) (int, any) {
	w, status, errBody := b.workflowFor(r, user, true)
	if w == nil {
		return status, errBody
	}
	var req struct {
		Name         *string       `json:"name"`
		Description  *string       `json:"description"`
		IsActive     *bool         `json:"is_active"`
		IsPublic     *bool         `json:"is_public"`
		Tags         []string      `json:"tags"`
		Definition   *schema.Graph `json:"definition"`
		VersionNotes string        `json:"version_notes"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, message("Invalid request body")
	}
	if req.Name != nil {
		w.Name = *req.Name
	}
	if req.Description != nil {
		w.Description = *req.Description
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}
	if req.IsPublic != nil {
		w.IsPublic = *req.IsPublic
	}
	if req.Tags != nil {
		w.Tags = req.Tags
	}
	if req.Definition != nil {
		w.Version++
		b.addVersion(w, *req.Definition, req.VersionNotes)
	}
	w.UpdatedAt = now()
	return http.StatusOK, map[string]any{"message": "Workflow updated successfully", "workflow": w}
}

func (b *Backend) deleteWorkflow(r *http.Request, _ []byte, user int64) (int, any) {
	w, status, errBody := b.workflowFor(r, user, true)
	if w == nil {
		return status, errBody
	}
	delete(b.workflows, w.ID)
	delete(b.versions, w.ID)
	return http.StatusOK, message("Workflow deleted successfully")
}

func (b *Backend) listVersions(r *http.Request, _ []byte, user int64) (int, any) {
	w, status, errBody := b.workflowFor(r, user, false)
	if w == nil {
		return status, errBody
	}
	versions := slices.Clone(b.versions[w.ID])
	slices.Reverse(versions)
	if versions == nil {
		versions = []*schema.WorkflowVersion{}
	}
	return http.StatusOK, map[string]any{"versions": versions}
}

func (b *Backend) getVersion(r *http.Request, _ []byte, user int64) (int, any) {
	w, status, errBody := b.workflowFor(r, user, false)
	if w == nil {
		return status, errBody
	}
	n, err := strconv.Atoi(r.PathValue("version"))
	if err == nil {
		for _, v := range b.versions[w.ID] {
			if v.Version == n {
				return http.StatusOK, map[string]any{"version": v}
			}
		}
	}
	return http.StatusNotFound, message("Workflow version not found")
}

func (b *Backend) executeWorkflow(r *http.Request, _ []byte, user int64) (int, any) {
	w, status, errBody := b.workflowFor(r, user, false)
	if w == nil {
		return status, errBody
	}
	versions := b.versions[w.ID]
	if len(versions) == 0 {
		return http.StatusNotFound, message("No workflow version found")
	}
	e := &schema.Execution{
		ID:                b.id(),
		WorkflowID:        w.ID,
		WorkflowVersionID: versions[len(versions)-1].ID,
		Status:            schema.ExecutionPending,
		TriggerType:       "manual",
		TriggeredBy:       user,
		StartedAt:         now(),
	}
	b.executions[e.ID] = e
	return http.StatusOK, map[string]any{"message": "Workflow execution started", "execution": e}
}

func (b *Backend) executionFor(r *http.Request, user int64) (*schema.Execution, int, any) {
	id, ok := pathID(r, "id")
	e, found := b.executions[id]
	if !ok || !found {
		return nil, http.StatusNotFound, message("Execution not found")
	}
	if w, ok := b.workflows[e.WorkflowID]; ok && w.CreatedBy != user {
		return nil, http.StatusForbidden, message("Unauthorized access")
	}
	return e, 0, nil
}

func (b *Backend) listExecutions(r *http.Request, _ []byte, _ int64) (int, any) {
	q := r.URL.Query()
	out := []*schema.Execution{}
	ids := sortedKeys(b.executions)
	slices.Reverse(ids)
	for _, id := range ids {
		e := b.executions[id]
		if v := q.Get("workflow_id"); v != "" && strconv.FormatInt(e.WorkflowID, 10) != v {
			continue
		}
		if v := q.Get("status"); v != "" && string(e.Status) != v {
			continue
		}
		out = append(out, e)
	}
	return http.StatusOK, map[string]any{"executions": out}
}

func (b *Backend) getExecution(r *http.Request, _ []byte, user int64) (int, any) {
	e, status, errBody := b.executionFor(r, user)
	if e == nil {
		return status, errBody
	}
	return http.StatusOK, map[string]any{"execution": e}
}

func (b *Backend) executionLogs(r *http.Request, _ []byte, user int64) (int, any) {
	e, status, errBody := b.executionFor(r, user)
	if e == nil {
		return status, errBody
	}
	logs := b.logs[e.ID]
	if logs == nil {
		logs = []*schema.ExecutionLog{}
	}
	return http.StatusOK, map[string]any{"logs": logs}
}

func (b *Backend) cancelExecution(r *http.Request, _ []byte, user int64) (int, any) {
	e, status, errBody := b.executionFor(r, user)
	if e == nil {
		return status, errBody
	}
	if e.Status != schema.ExecutionPending && e.Status != schema.ExecutionRunning {
		return http.StatusBadRequest, message("Cannot cancel execution with status: " + string(e.Status))
	}
	e.Status = schema.ExecutionCancelled
	e.FinishedAt = now()
	return http.StatusOK, map[string]any{"message": "Execution cancelled successfully", "execution": e}
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
