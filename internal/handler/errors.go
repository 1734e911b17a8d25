package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/repo"
	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/pkg/respond"
)

// handleErrors - единая точка перевода ошибок доменного слоя в HTTP-коды.
// Детали внутренних ошибок наружу не отдаем.
func handleErrors(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrForbidden):
		respond.Error(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.Error(w, r, http.StatusUnauthorized, "invalid credentials")
	default:
		logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
