package model

import "time"

type Article struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	AuthorID  int64          `json:"author_id"`
	Images    []ArticleImage `json:"images"`
	IsDeleted bool           `json:"is_deleted"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type ArticleImage struct {
	ID        int64  `json:"id"`
	ArticleID int64  `json:"article_id"`
	ImagePath string `json:"image_path"`
}

type ArticleFilter struct {
	Title    *string
	AuthorID *int64
}

type ArticleUpdate struct {
	Title   *string
	Content *string
}
