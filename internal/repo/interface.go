package repo

import (
	"context"
	"time"

	"github.com/teamtrack/teamtrack-api/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами и их журналом.
// Мутация и соответствующие записи журнала фиксируются одной транзакцией.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task, recs []model.TaskHistory) (model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	GetActive(ctx context.Context, id int64) (model.Task, error)
	ListMine(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error)
	ListByShift(ctx context.Context, shift string) ([]model.Task, error)
	Update(ctx context.Context, t model.Task, recs []model.TaskHistory) (model.Task, error)
	SoftDelete(ctx context.Context, id int64, rec model.TaskHistory) error
	Restore(ctx context.Context, id int64, cutoff time.Time, rec model.TaskHistory) (model.Task, error)
	Reassign(ctx context.Context, id int64, newAssigneeID int64, rec model.TaskHistory) (model.Task, error)
	History(ctx context.Context, taskID int64, offset, limit int) ([]model.TaskHistory, error)
}

// ArticleRepository - то же самое для статей
type ArticleRepository interface {
	Create(ctx context.Context, a model.Article, imagePaths []string, recs []model.ArticleHistory) (model.Article, error)
	Get(ctx context.Context, id int64) (model.Article, error)
	GetActive(ctx context.Context, id int64) (model.Article, error)
	List(ctx context.Context, filter model.ArticleFilter, offset, limit int) ([]model.Article, error)
	Update(ctx context.Context, a model.Article, newImages []string, recs []model.ArticleHistory) (model.Article, error)
	SoftDelete(ctx context.Context, id int64, rec model.ArticleHistory) error
	Restore(ctx context.Context, id int64, cutoff time.Time, rec model.ArticleHistory) (model.Article, error)
	History(ctx context.Context, articleID int64, offset, limit int) ([]model.ArticleHistory, error)
}

// UserRepository определяет интерфейс для работы с пользователями.
// Уникальность username/email обеспечивается ограничениями БД (-> ErrorConflict).
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	Search(ctx context.Context, filter model.UserFilter, limit int) ([]model.User, error)
	List(ctx context.Context, roleID *int, limit int) ([]model.User, error)
	Update(ctx context.Context, u model.User) (model.User, error)
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
	SoftDelete(ctx context.Context, id int64) error
}
