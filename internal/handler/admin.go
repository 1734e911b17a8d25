package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/pkg/respond"
)

// AdminHandler - управление пользователями; маршруты закрыты RequireElevated
type AdminHandler struct {
	service *service.UserService
	logger  *zap.Logger
}

func NewAdminHandler(srv *service.UserService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var roleID *int
	if v := r.URL.Query().Get("role"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid role")
			return
		}
		roleID = &n
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.service.List(r.Context(), roleID, limit)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, users)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "expected multipart form")
		return
	}
	in, err := profileUpdateInput(r)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "failed to read photo")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id, in)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}

func (h *AdminHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	newPassword := r.URL.Query().Get("new_password")

	if err := h.service.SetPassword(r.Context(), id, newPassword); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.Message(w, r, http.StatusOK, "password updated")
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.Message(w, r, http.StatusOK, "user marked as deleted")
}
