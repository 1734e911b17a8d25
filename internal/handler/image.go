package handler

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/storage"
	"github.com/teamtrack/teamtrack-api/pkg/respond"
)

type ImageHandler struct {
	blobs  *storage.Local
	logger *zap.Logger
}

func NewImageHandler(blobs *storage.Local, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{
		blobs:  blobs,
		logger: logger,
	}
}

// Serve отдает файл по сохраненной ссылке
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "file")

	path, err := h.blobs.Path(ref)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrBadReference):
			respond.Error(w, r, http.StatusBadRequest, "invalid file path")
		case errors.Is(err, os.ErrNotExist):
			respond.Error(w, r, http.StatusNotFound, "image not found")
		default:
			h.logger.Error("image lookup failed", zap.String("ref", ref), zap.Error(err))
			respond.Error(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	http.ServeFile(w, r, path)
}
