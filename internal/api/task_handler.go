package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/taskman-api/internal/api/middleware"
	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/store"
)

// allowedTaskUpdates are the only fields a task PATCH may carry.
var allowedTaskUpdates = map[string]bool{
	"description": true,
	"completed":   true,
}

// TaskHandler handles task CRUD API requests. Every operation is scoped to
// the authenticated owner; a task belonging to someone else is
// indistinguishable from one that does not exist.
type TaskHandler struct {
	taskStore store.TaskStore
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskStore store.TaskStore) *TaskHandler {
	return &TaskHandler{taskStore: taskStore}
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Please authenticate.")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := domain.NewTask(user.ID, req.Description, req.Completed)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.taskStore.Create(r.Context(), task); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// List handles GET /tasks with optional completed, limit, skip and
// sortBy=field:asc|desc query parameters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Please authenticate.")
		return
	}

	opts := parseListOptions(r)

	tasks, err := h.taskStore.List(r.Context(), user.ID, opts)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list tasks", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Please authenticate.")
		return
	}

	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	task, err := h.taskStore.GetByOwnerAndID(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(err))
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to fetch task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// Update handles PATCH /tasks/{id}. Only description and completed may
// change; any other field in the request rejects the whole update.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Please authenticate.")
		return
	}

	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := shared.DecodeJSON(r, &fields); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	for name := range fields {
		if !allowedTaskUpdates[name] {
			shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(domain.ErrInvalidUpdate))
			return
		}
	}

	task, err := h.taskStore.GetByOwnerAndID(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(err))
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to update task", err)
		return
	}

	// Apply the changes to a copy so a failure partway through leaves the
	// stored task untouched.
	updated := *task

	if raw, ok := fields["description"]; ok {
		if err := json.Unmarshal(raw, &updated.Description); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}
	if raw, ok := fields["completed"]; ok {
		if err := json.Unmarshal(raw, &updated.Completed); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	if err := updated.Validate(); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.taskStore.Update(r.Context(), &updated); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(err))
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to update task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, &updated)
}

// Delete handles DELETE /tasks/{id}, returning the deleted task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Please authenticate.")
		return
	}

	id, ok := taskIDFromPath(w, r)
	if !ok {
		return
	}

	task, err := h.taskStore.GetByOwnerAndID(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to delete task", err)
		return
	}

	if err := h.taskStore.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to delete task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// taskIDFromPath parses the {id} path parameter. A malformed ID responds
// 404: to the caller there is no such task, same as an ID that parses but
// matches nothing they own.
func taskIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(store.ErrTaskNotFound))
		return uuid.Nil, false
	}
	return id, true
}

// parseListOptions maps the list query parameters onto store options.
// Unparseable values are ignored rather than failing the request.
func parseListOptions(r *http.Request) store.TaskListOptions {
	var opts store.TaskListOptions
	q := r.URL.Query()

	if raw := q.Get("completed"); raw != "" {
		if completed, err := strconv.ParseBool(raw); err == nil {
			opts.Completed = &completed
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	if raw := q.Get("skip"); raw != "" {
		if skip, err := strconv.Atoi(raw); err == nil && skip > 0 {
			opts.Skip = skip
		}
	}
	if raw := q.Get("sortBy"); raw != "" {
		field, dir, _ := strings.Cut(raw, ":")
		opts.SortBy = field
		opts.SortDesc = strings.EqualFold(dir, "desc")
	}

	return opts
}
