package service

import (
	"context"
	"fmt"
	"time"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/model"
	"github.com/teamtrack/teamtrack-api/internal/repo"
)

// ArticleService повторяет машину состояний задач для статей
type ArticleService struct {
	repo  repo.ArticleRepository
	blobs BlobStore
}

func NewArticleService(articleRepo repo.ArticleRepository, blobs BlobStore) *ArticleService {
	return &ArticleService{
		repo:  articleRepo,
		blobs: blobs,
	}
}

type CreateArticleInput struct {
	Title   string
	Content string
	Images  []Upload
}

type UpdateArticleInput struct {
	Title   *string
	Content *string
	Images  []Upload
}

func (s *ArticleService) saveImages(actorID int64, uploads []Upload) ([]string, []model.ArticleHistory, error) {
	refs := make([]string, 0, len(uploads))
	recs := make([]model.ArticleHistory, 0, len(uploads))
	for _, up := range uploads {
		ref, err := saveBlob(s.blobs, "article", up)
		if err != nil {
			return nil, nil, err
		}
		refs = append(refs, ref)
		recs = append(recs, model.ArticleHistory{
			UserID: actorID,
			Event:  model.EventImageAdded,
			Changes: model.Changes{
				"image_path": {New: ref},
			},
		})
	}
	return refs, recs, nil
}

func (s *ArticleService) Create(ctx context.Context, actor auth.Actor, in CreateArticleInput) (model.Article, error) {
	if err := validateTitle(in.Title); err != nil {
		return model.Article{}, err
	}
	if in.Content == "" {
		return model.Article{}, fmt.Errorf("content is required: %w", ErrValidation)
	}
	if err := validateContent(in.Content); err != nil {
		return model.Article{}, err
	}

	refs, recs, err := s.saveImages(actor.UserID, in.Images)
	if err != nil {
		return model.Article{}, err
	}

	article := model.Article{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: actor.UserID,
	}
	recs = append(recs, model.ArticleHistory{
		UserID: actor.UserID,
		Event:  model.EventCreated,
		Changes: model.Changes{
			"title":   {New: article.Title},
			"content": {New: article.Content},
		},
	})

	return s.repo.Create(ctx, article, refs, recs)
}

func (s *ArticleService) Update(ctx context.Context, actor auth.Actor, id int64, in UpdateArticleInput) (model.Article, error) {
	article, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return article, err
	}
	if !auth.Can(actor, article.AuthorID) {
		return article, ErrForbidden
	}

	changes := model.Changes{}

	if in.Title != nil && *in.Title != article.Title {
		if err := validateTitle(*in.Title); err != nil {
			return article, err
		}
		changes["title"] = model.FieldChange{Old: article.Title, New: *in.Title}
		article.Title = *in.Title
	}
	if in.Content != nil && *in.Content != article.Content {
		if err := validateContent(*in.Content); err != nil {
			return article, err
		}
		changes["content"] = model.FieldChange{Old: article.Content, New: *in.Content}
		article.Content = *in.Content
	}

	refs, recs, err := s.saveImages(actor.UserID, in.Images)
	if err != nil {
		return article, err
	}

	if len(changes) == 0 && len(recs) == 0 {
		return article, nil
	}

	if len(changes) > 0 {
		recs = append(recs, model.ArticleHistory{
			UserID:  actor.UserID,
			Event:   model.EventUpdated,
			Changes: changes,
		})
	}

	return s.repo.Update(ctx, article, refs, recs)
}

func (s *ArticleService) Delete(ctx context.Context, actor auth.Actor, id int64) error {
	article, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return err
	}
	if !auth.Can(actor, article.AuthorID) {
		return ErrForbidden
	}

	return s.repo.SoftDelete(ctx, id, model.ArticleHistory{
		UserID: actor.UserID,
		Event:  model.EventDeleted,
		Changes: model.Changes{
			"title":   {Old: article.Title},
			"content": {Old: article.Content},
		},
	})
}

func (s *ArticleService) Restore(ctx context.Context, actor auth.Actor, id int64) (model.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return article, err
	}
	now := time.Now()
	if !model.Restorable(article.IsDeleted, article.DeletedAt, now) {
		return article, repo.ErrorNotFound
	}
	if !auth.Can(actor, article.AuthorID) {
		return article, ErrForbidden
	}

	return s.repo.Restore(ctx, id, now.Add(-model.RetentionWindow), model.ArticleHistory{
		UserID: actor.UserID,
		Event:  model.EventRestored,
		Changes: model.Changes{
			"title":   {New: article.Title},
			"content": {New: article.Content},
		},
	})
}

func (s *ArticleService) History(ctx context.Context, actor auth.Actor, id int64, offset, limit int) ([]model.ArticleHistory, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.Can(actor, article.AuthorID) {
		return nil, ErrForbidden
	}

	offset, limit = clampPage(offset, limit)
	return s.repo.History(ctx, id, offset, limit)
}

func (s *ArticleService) List(ctx context.Context, filter model.ArticleFilter, offset, limit int) ([]model.Article, error) {
	offset, limit = clampPage(offset, limit)
	return s.repo.List(ctx, filter, offset, limit)
}
