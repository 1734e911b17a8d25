package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/model"
	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "expected multipart form")
		return
	}

	title := formValue(r, "title")
	if title == nil {
		respond.Error(w, r, http.StatusBadRequest, "title is required")
		return
	}
	assigneeID, err := formInt64(r, "assignee_id")
	if err != nil || assigneeID == nil {
		respond.Error(w, r, http.StatusBadRequest, "assignee_id is required")
		return
	}
	dueDate, err := formTime(r, "due_date")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid due_date")
		return
	}
	images, err := fileUploads(r, "images")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "failed to read images")
		return
	}

	in := service.CreateTaskInput{
		Title:       *title,
		Description: formValue(r, "description"),
		AssigneeID:  *assigneeID,
		DueDate:     dueDate,
		Images:      images,
	}
	if v := formValue(r, "status"); v != nil {
		in.Status = model.TaskStatus(*v)
	}
	if v := formValue(r, "priority"); v != nil {
		in.Priority = model.TaskPriority(*v)
	}

	task, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "expected multipart form")
		return
	}

	assigneeID, err := formInt64(r, "assignee_id")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid assignee_id")
		return
	}
	dueDate, err := formTime(r, "due_date")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid due_date")
		return
	}
	images, err := fileUploads(r, "images")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "failed to read images")
		return
	}

	in := service.UpdateTaskInput{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
		AssigneeID:  assigneeID,
		DueDate:     dueDate,
		Images:      images,
	}
	if v := formValue(r, "status"); v != nil {
		status := model.TaskStatus(*v)
		in.Status = &status
	}
	if v := formValue(r, "priority"); v != nil {
		priority := model.TaskPriority(*v)
		in.Priority = &priority
	}

	task, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.Message(w, r, http.StatusOK, "task deleted")
}

func (h *TaskHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	task, err := h.service.Restore(r.Context(), actor, id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

type reassignRequest struct {
	NewAssigneeID int64   `json:"new_assignee_id"`
	Comment       *string `json:"comment,omitempty"`
}

func (h *TaskHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.service.Reassign(r.Context(), actor, id, req.NewAssigneeID, req.Comment)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recs, err := h.service.History(r.Context(), actor, id, offset, limit)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, recs)
}

func (h *TaskHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var filter model.TaskFilter
	if v := r.URL.Query().Get("status"); v != "" {
		status := model.TaskStatus(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		priority := model.TaskPriority(v)
		filter.Priority = &priority
	}

	tasks, err := h.service.Mine(r.Context(), actor, filter)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) ByShift(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ByShift(r.Context(), r.URL.Query().Get("shift"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}
