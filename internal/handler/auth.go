package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/pkg/respond"
)

type AuthHandler struct {
	service *service.UserService
	tokens  *auth.TokenManager
	logger  *zap.Logger
}

func NewAuthHandler(srv *service.UserService, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: srv,
		tokens:  tokens,
		logger:  logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Shift    string `json:"shift"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Shift:    req.Shift,
	})
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	auth.SetCookie(w, token, h.tokens.TTL())

	h.logger.Info("user registered", zap.String("username", user.Username))
	respond.JSON(w, r, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	auth.SetCookie(w, token, h.tokens.TTL())

	h.logger.Info("user logged in", zap.String("username", user.Username))
	respond.Message(w, r, http.StatusOK, "logged in")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	respond.Message(w, r, http.StatusOK, "logged out")
}
