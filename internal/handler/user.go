package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/model"
	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/pkg/respond"
)

type UserHandler struct {
	service *service.UserService
	logger  *zap.Logger
}

func NewUserHandler(srv *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	user, err := h.service.Profile(r.Context(), actor)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}

// profileUpdateInput собирает multipart-форму профиля (поля + аватар)
func profileUpdateInput(r *http.Request) (service.UpdateProfileInput, error) {
	in := service.UpdateProfileInput{
		Username: formValue(r, "username"),
		FullName: formValue(r, "full_name"),
		Email:    formValue(r, "email"),
		Shift:    formValue(r, "shift"),
	}

	if r.MultipartForm != nil {
		if headers := r.MultipartForm.File["photo"]; len(headers) > 0 {
			up, err := readUpload(headers[0])
			if err != nil {
				return in, err
			}
			in.Avatar = &up
		}
	}
	return in, nil
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "expected multipart form")
		return
	}
	in, err := profileUpdateInput(r)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "failed to read photo")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), actor.UserID, in)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	var filter model.UserFilter
	if v := r.URL.Query().Get("username"); v != "" {
		filter.Username = &v
	}
	if v := r.URL.Query().Get("full_name"); v != "" {
		filter.FullName = &v
	}
	if v := r.URL.Query().Get("email"); v != "" {
		filter.Email = &v
	}
	if v := r.URL.Query().Get("role_id"); v != "" {
		roleID, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid role_id")
			return
		}
		filter.RoleID = &roleID
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.service.Search(r.Context(), filter, limit)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, user)
}
