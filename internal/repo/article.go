package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamtrack/teamtrack-api/internal/model"
)

const articleColumns = `id, title, content, author_id, is_deleted, deleted_at, created_at, updated_at`

type ArticleRepo struct {
	pool *pgxpool.Pool
}

func NewArticleRepo(pool *pgxpool.Pool) *ArticleRepo {
	return &ArticleRepo{
		pool: pool,
	}
}

func scanArticle(row pgx.Row) (model.Article, error) {
	var a model.Article
	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.AuthorID,
		&a.IsDeleted, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, mapError(err)
}

func insertArticleHistory(ctx context.Context, tx pgx.Tx, rec model.ArticleHistory) error {
	changes, err := marshalChanges(rec.Changes)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO article_history (article_id, user_id, event, changes)
		VALUES ($1, $2, $3, $4)
	`, rec.ArticleID, rec.UserID, rec.Event, changes)
	return err
}

func insertArticleImages(ctx context.Context, tx pgx.Tx, articleID int64, paths []string) error {
	for _, p := range paths {
		if _, err := tx.Exec(ctx, `
			INSERT INTO article_images (article_id, image_path) VALUES ($1, $2)
		`, articleID, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *ArticleRepo) Create(ctx context.Context, a model.Article, imagePaths []string, recs []model.ArticleHistory) (model.Article, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return a, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO articles (title, content, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, a.Title, a.Content, a.AuthorID).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, mapError(err)
	}

	if err := insertArticleImages(ctx, tx, a.ID, imagePaths); err != nil {
		return a, err
	}
	for i := range recs {
		recs[i].ArticleID = a.ID
		if err := insertArticleHistory(ctx, tx, recs[i]); err != nil {
			return a, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return a, err
	}
	return r.Get(ctx, a.ID)
}

func (r *ArticleRepo) Get(ctx context.Context, id int64) (model.Article, error) {
	a, err := scanArticle(r.pool.QueryRow(ctx, `
		SELECT `+articleColumns+` FROM articles WHERE id = $1
	`, id))
	if err != nil {
		return a, err
	}
	return r.withImages(ctx, a)
}

func (r *ArticleRepo) GetActive(ctx context.Context, id int64) (model.Article, error) {
	a, err := scanArticle(r.pool.QueryRow(ctx, `
		SELECT `+articleColumns+` FROM articles WHERE id = $1 AND NOT is_deleted
	`, id))
	if err != nil {
		return a, err
	}
	return r.withImages(ctx, a)
}

func (r *ArticleRepo) withImages(ctx context.Context, a model.Article) (model.Article, error) {
	images, err := r.imagesFor(ctx, []int64{a.ID})
	if err != nil {
		return a, err
	}
	a.Images = images[a.ID]
	if a.Images == nil {
		a.Images = []model.ArticleImage{}
	}
	return a, nil
}

func (r *ArticleRepo) imagesFor(ctx context.Context, articleIDs []int64) (map[int64][]model.ArticleImage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, article_id, image_path
		FROM article_images
		WHERE article_id = ANY($1)
		ORDER BY id ASC
	`, articleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make(map[int64][]model.ArticleImage)
	for rows.Next() {
		var img model.ArticleImage
		if err := rows.Scan(&img.ID, &img.ArticleID, &img.ImagePath); err != nil {
			return nil, err
		}
		images[img.ArticleID] = append(images[img.ArticleID], img)
	}
	return images, rows.Err()
}

func (r *ArticleRepo) List(ctx context.Context, filter model.ArticleFilter, offset, limit int) ([]model.Article, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE NOT is_deleted
		  AND ($1::text IS NULL OR title ILIKE '%' || $1 || '%')
		  AND ($2::bigint IS NULL OR author_id = $2)
		ORDER BY created_at DESC, id DESC
		OFFSET $3 LIMIT $4
	`, filter.Title, filter.AuthorID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := make([]model.Article, 0, limit)
	ids := make([]int64, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return articles, nil
	}
	images, err := r.imagesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range articles {
		articles[i].Images = images[articles[i].ID]
		if articles[i].Images == nil {
			articles[i].Images = []model.ArticleImage{}
		}
	}
	return articles, nil
}

func (r *ArticleRepo) Update(ctx context.Context, a model.Article, newImages []string, recs []model.ArticleHistory) (model.Article, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return a, err
	}
	defer tx.Rollback(ctx)

	updated, err := scanArticle(tx.QueryRow(ctx, `
		UPDATE articles
		SET title = $2, content = $3, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
		RETURNING `+articleColumns+`
	`, a.ID, a.Title, a.Content))
	if err != nil {
		return a, err
	}

	if err := insertArticleImages(ctx, tx, a.ID, newImages); err != nil {
		return updated, err
	}
	for i := range recs {
		recs[i].ArticleID = a.ID
		if err := insertArticleHistory(ctx, tx, recs[i]); err != nil {
			return updated, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return updated, err
	}
	return r.Get(ctx, a.ID)
}

func (r *ArticleRepo) SoftDelete(ctx context.Context, id int64, rec model.ArticleHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE articles
		SET is_deleted = true, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}

	rec.ArticleID = id
	if err := insertArticleHistory(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ArticleRepo) Restore(ctx context.Context, id int64, cutoff time.Time, rec model.ArticleHistory) (model.Article, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Article{}, err
	}
	defer tx.Rollback(ctx)

	a, err := scanArticle(tx.QueryRow(ctx, `
		UPDATE articles
		SET is_deleted = false, deleted_at = NULL, updated_at = now()
		WHERE id = $1 AND is_deleted AND deleted_at >= $2
		RETURNING `+articleColumns+`
	`, id, cutoff))
	if err != nil {
		return a, err
	}

	rec.ArticleID = id
	if err := insertArticleHistory(ctx, tx, rec); err != nil {
		return a, err
	}
	if err := tx.Commit(ctx); err != nil {
		return a, err
	}
	return r.Get(ctx, id)
}

func (r *ArticleRepo) History(ctx context.Context, articleID int64, offset, limit int) ([]model.ArticleHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, article_id, user_id, event, changed_at, changes
		FROM article_history
		WHERE article_id = $1
		ORDER BY changed_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`, articleID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := make([]model.ArticleHistory, 0, limit)
	for rows.Next() {
		var rec model.ArticleHistory
		var raw []byte
		if err := rows.Scan(&rec.ID, &rec.ArticleID, &rec.UserID, &rec.Event, &rec.ChangedAt, &raw); err != nil {
			return nil, err
		}
		if rec.Changes, err = unmarshalChanges(raw); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
