package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamtrack/teamtrack-api/internal/model"
)

const userColumns = `user_id, username, full_name, email, hashed_password, role_id, shift, avatar_url, registered_at, completed_tasks_count, total_tasks_count, edited_articles_count, is_deleted, deleted_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		pool: pool,
	}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.FullName, &u.Email, &u.HashedPassword,
		&u.RoleID, &u.Shift, &u.AvatarURL, &u.RegisteredAt,
		&u.CompletedTasksCount, &u.TotalTasksCount, &u.EditedArticlesCount,
		&u.IsDeleted, &u.DeletedAt,
	)
	return u, mapError(err)
}

func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, full_name, email, hashed_password, role_id, shift)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING user_id, registered_at
	`, u.Username, u.FullName, u.Email, u.HashedPassword, u.RoleID, u.Shift).Scan(
		&u.ID, &u.RegisteredAt,
	)
	return u, mapError(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE user_id = $1 AND NOT is_deleted
	`, id))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE username = $1 AND NOT is_deleted
	`, username))
}

func (r *UserRepo) Search(ctx context.Context, filter model.UserFilter, limit int) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE NOT is_deleted
		  AND ($1::text IS NULL OR username ILIKE '%' || $1 || '%')
		  AND ($2::text IS NULL OR full_name ILIKE '%' || $2 || '%')
		  AND ($3::text IS NULL OR email ILIKE '%' || $3 || '%')
		  AND ($4::int IS NULL OR role_id = $4)
		ORDER BY username ASC
		LIMIT $5
	`, filter.Username, filter.FullName, filter.Email, filter.RoleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (r *UserRepo) List(ctx context.Context, roleID *int, limit int) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE NOT is_deleted
		  AND ($1::int IS NULL OR role_id = $1)
		ORDER BY user_id ASC
		LIMIT $2
	`, roleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Update(ctx context.Context, u model.User) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET username = $2, full_name = $3, email = $4, shift = $5, avatar_url = $6
		WHERE user_id = $1 AND NOT is_deleted
		RETURNING `+userColumns+`
	`, u.ID, u.Username, u.FullName, u.Email, u.Shift, u.AvatarURL))
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE users SET hashed_password = $2 WHERE user_id = $1 AND NOT is_deleted
	`, id, hashedPassword)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE users SET is_deleted = true, deleted_at = now() WHERE user_id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}
