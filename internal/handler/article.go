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

type ArticleHandler struct {
	service *service.ArticleService
	logger  *zap.Logger
}

func NewArticleHandler(srv *service.ArticleService, logger *zap.Logger) *ArticleHandler {
	return &ArticleHandler{
		service: srv,
		logger:  logger,
	}
}

func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter model.ArticleFilter
	if v := r.URL.Query().Get("title"); v != "" {
		filter.Title = &v
	}
	if v := r.URL.Query().Get("author_id"); v != "" {
		authorID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid author_id")
			return
		}
		filter.AuthorID = &authorID
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	articles, err := h.service.List(r.Context(), filter, offset, limit)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, articles)
}

func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
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
	content := formValue(r, "content")
	if title == nil || content == nil {
		respond.Error(w, r, http.StatusBadRequest, "title and content are required")
		return
	}
	images, err := fileUploads(r, "images")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "failed to read images")
		return
	}

	article, err := h.service.Create(r.Context(), actor, service.CreateArticleInput{
		Title:   *title,
		Content: *content,
		Images:  images,
	})
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, article)
}

func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	images, err := fileUploads(r, "images")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "failed to read images")
		return
	}

	article, err := h.service.Update(r.Context(), actor, id, service.UpdateArticleInput{
		Title:   formValue(r, "title"),
		Content: formValue(r, "content"),
		Images:  images,
	})
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, article)
}

func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	respond.Message(w, r, http.StatusOK, "article deleted")
}

func (h *ArticleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	article, err := h.service.Restore(r.Context(), actor, id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, article)
}

func (h *ArticleHandler) History(w http.ResponseWriter, r *http.Request) {
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
