package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/model"
)

// OverdueMarker переводит просроченные активные задачи в статус overdue.
// Смена статуса и запись журнала фиксируются одной транзакцией, поэтому
// фоновые мутации тоже не проходят мимо журнала.
type OverdueMarker struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	interval time.Duration
	wg       sync.WaitGroup
	stop     chan struct{}
}

func NewOverdueMarker(pool *pgxpool.Pool, logger *zap.Logger, interval time.Duration) *OverdueMarker {
	return &OverdueMarker{
		pool:     pool,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (m *OverdueMarker) Start(ctx context.Context) {
	m.logger.Info("Starting overdue marker", zap.Duration("interval", m.interval))

	m.wg.Add(1)
	go m.run(ctx)
}

func (m *OverdueMarker) Stop() {
	m.logger.Info("Stopping overdue marker...")
	close(m.stop)
	m.wg.Wait()
	m.logger.Info("Overdue marker stopped")
}

func (m *OverdueMarker) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				m.logger.Error("overdue sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep обрабатывает просроченные задачи по одной, пока они есть
func (m *OverdueMarker) Sweep(ctx context.Context) error {
	for {
		taskID, err := m.markNext(ctx)
		if err == pgx.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		m.logger.Info("Task marked overdue", zap.Int64("task_id", taskID))
	}
}

func (m *OverdueMarker) markNext(ctx context.Context) (int64, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var taskID, authorID int64
	err = tx.QueryRow(ctx, `
		WITH claimed AS (
			SELECT id
			FROM tasks
			WHERE NOT is_deleted
			  AND status = 'active'
			  AND due_date IS NOT NULL
			  AND due_date < now()
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tasks
		SET status = 'overdue', updated_at = now()
		FROM claimed
		WHERE tasks.id = claimed.id
		RETURNING tasks.id, tasks.author_id
	`).Scan(&taskID, &authorID)
	if err != nil {
		return 0, err
	}

	changes, err := json.Marshal(model.Changes{
		"status": {Old: model.TaskStatusActive, New: model.TaskStatusOverdue},
	})
	if err != nil {
		return 0, err
	}

	// системная мутация записывается от имени автора задачи
	if _, err := tx.Exec(ctx, `
		INSERT INTO task_history (task_id, user_id, event, changes)
		VALUES ($1, $2, $3, $4)
	`, taskID, authorID, model.EventUpdated, changes); err != nil {
		return 0, err
	}

	return taskID, tx.Commit(ctx)
}
