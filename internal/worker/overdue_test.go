package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/model"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatal(err)
	}

	pool.Exec(context.Background(),
		"TRUNCATE task_history, tasks, users RESTART IDENTITY CASCADE")

	return pool
}

func seedTask(t *testing.T, pool *pgxpool.Pool, status string, due time.Time) int64 {
	t.Helper()
	ctx := context.Background()

	var userID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO users (username, full_name, email, hashed_password, shift)
		VALUES ('sweeper', 'Sweeper', 'sweeper@example.com', 'x', 'day')
		ON CONFLICT (username) DO UPDATE SET username = users.username
		RETURNING user_id
	`).Scan(&userID)
	if err != nil {
		t.Fatal(err)
	}

	var taskID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO tasks (title, status, priority, due_date, author_id, assignee_id)
		VALUES ('Sweep target', $1, 'medium', $2, $3, $3)
		RETURNING id
	`, status, due, userID).Scan(&taskID)
	if err != nil {
		t.Fatal(err)
	}
	return taskID
}

func TestOverdueMarker_Sweep(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	overdueID := seedTask(t, pool, "active", time.Now().Add(-time.Hour))
	futureID := seedTask(t, pool, "active", time.Now().Add(time.Hour))
	completedID := seedTask(t, pool, "completed", time.Now().Add(-time.Hour))

	m := NewOverdueMarker(pool, zap.NewNop(), time.Minute)
	if err := m.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	status := func(id int64) string {
		var s string
		if err := pool.QueryRow(ctx, "SELECT status FROM tasks WHERE id = $1", id).Scan(&s); err != nil {
			t.Fatal(err)
		}
		return s
	}

	if got := status(overdueID); got != "overdue" {
		t.Errorf("expected overdue, got %s", got)
	}
	if got := status(futureID); got != "active" {
		t.Errorf("future task must stay active, got %s", got)
	}
	if got := status(completedID); got != "completed" {
		t.Errorf("completed task must stay completed, got %s", got)
	}

	// смена статуса фиксируется в журнале той же транзакцией
	var event string
	var changes []byte
	err := pool.QueryRow(ctx, `
		SELECT event, changes FROM task_history WHERE task_id = $1
	`, overdueID).Scan(&event, &changes)
	if err != nil {
		t.Fatal(err)
	}
	if event != string(model.EventUpdated) {
		t.Errorf("expected UPDATED, got %s", event)
	}

	// повторный проход ничего не трогает
	if err := m.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM task_history WHERE task_id = $1", overdueID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected exactly 1 history record, got %d", count)
	}
}
