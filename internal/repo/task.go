package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamtrack/teamtrack-api/internal/model"
)

const taskColumns = `id, title, description, status, priority, due_date, author_id, assignee_id, image_paths, is_deleted, deleted_at, created_at, updated_at`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate,
		&t.AuthorID, &t.AssigneeID, &t.ImagePaths, &t.IsDeleted, &t.DeletedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, mapError(err)
}

func insertTaskHistory(ctx context.Context, tx pgx.Tx, rec model.TaskHistory) error {
	changes, err := marshalChanges(rec.Changes)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO task_history (task_id, user_id, event, comment, changes)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.TaskID, rec.UserID, rec.Event, rec.Comment, changes)
	return err
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task, recs []model.TaskHistory) (model.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return t, err
	}
	defer tx.Rollback(ctx)

	if t.ImagePaths == nil {
		t.ImagePaths = []string{}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, priority, due_date, author_id, assignee_id, image_paths)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.AuthorID, t.AssigneeID, t.ImagePaths).Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return t, mapError(err)
	}

	for i := range recs {
		recs[i].TaskID = t.ID
		if err := insertTaskHistory(ctx, tx, recs[i]); err != nil {
			return t, err
		}
	}
	return t, tx.Commit(ctx)
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1
	`, id))
}

func (r *TaskRepo) GetActive(ctx context.Context, id int64) (model.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND NOT is_deleted
	`, id))
}

func (r *TaskRepo) ListMine(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE NOT is_deleted
		  AND (author_id = $1 OR assignee_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR priority = $3)
		ORDER BY due_date ASC NULLS LAST, id ASC
	`, userID, textParam(filter.Status), textParam(filter.Priority))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (r *TaskRepo) ListByShift(ctx context.Context, shift string) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.title, t.description, t.status, t.priority, t.due_date,
		       t.author_id, t.assignee_id, t.image_paths, t.is_deleted, t.deleted_at,
		       t.created_at, t.updated_at
		FROM tasks t
		JOIN users u ON u.user_id = t.assignee_id
		WHERE NOT t.is_deleted
		  AND u.shift = $1
		  AND t.status <> 'completed'
		ORDER BY CASE t.priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
		         t.due_date ASC NULLS LAST, t.id ASC
	`, shift)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]model.Task, error) {
	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, t model.Task, recs []model.TaskHistory) (model.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return t, err
	}
	defer tx.Rollback(ctx)

	updated, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, due_date = $6,
		    assignee_id = $7, image_paths = $8, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
		RETURNING `+taskColumns+`
	`, t.ID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.AssigneeID, t.ImagePaths))
	if err != nil {
		return t, err
	}

	for i := range recs {
		recs[i].TaskID = t.ID
		if err := insertTaskHistory(ctx, tx, recs[i]); err != nil {
			return updated, err
		}
	}
	return updated, tx.Commit(ctx)
}

func (r *TaskRepo) SoftDelete(ctx context.Context, id int64, rec model.TaskHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE tasks
		SET is_deleted = true, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 { // уже удалена или не существует
		return ErrorNotFound
	}

	rec.TaskID = id
	if err := insertTaskHistory(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *TaskRepo) Restore(ctx context.Context, id int64, cutoff time.Time, rec model.TaskHistory) (model.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Task{}, err
	}
	defer tx.Rollback(ctx)

	t, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks
		SET is_deleted = false, deleted_at = NULL, updated_at = now()
		WHERE id = $1 AND is_deleted AND deleted_at >= $2
		RETURNING `+taskColumns+`
	`, id, cutoff))
	if err != nil {
		return t, err
	}

	rec.TaskID = id
	if err := insertTaskHistory(ctx, tx, rec); err != nil {
		return t, err
	}
	return t, tx.Commit(ctx)
}

func (r *TaskRepo) Reassign(ctx context.Context, id int64, newAssigneeID int64, rec model.TaskHistory) (model.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Task{}, err
	}
	defer tx.Rollback(ctx)

	t, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks
		SET assignee_id = $2, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
		RETURNING `+taskColumns+`
	`, id, newAssigneeID))
	if err != nil {
		return t, err
	}

	rec.TaskID = id
	if err := insertTaskHistory(ctx, tx, rec); err != nil {
		return t, err
	}
	return t, tx.Commit(ctx)
}

func (r *TaskRepo) History(ctx context.Context, taskID int64, offset, limit int) ([]model.TaskHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, user_id, event, comment, changed_at, changes
		FROM task_history
		WHERE task_id = $1
		ORDER BY changed_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`, taskID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := make([]model.TaskHistory, 0, limit)
	for rows.Next() {
		var rec model.TaskHistory
		var raw []byte
		if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.UserID, &rec.Event, &rec.Comment, &rec.ChangedAt, &raw); err != nil {
			return nil, err
		}
		if rec.Changes, err = unmarshalChanges(raw); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
