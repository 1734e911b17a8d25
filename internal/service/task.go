package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/model"
	"github.com/teamtrack/teamtrack-api/internal/repo"
)

// TaskService - машина состояний жизненного цикла задачи: ACTIVE -> DELETED -> ACTIVE
// Каждая мутация дает ровно одну запись журнала на событие, в той же транзакции.
type TaskService struct {
	repo  repo.TaskRepository
	users repo.UserRepository
	blobs BlobStore
}

func NewTaskService(taskRepo repo.TaskRepository, userRepo repo.UserRepository, blobs BlobStore) *TaskService {
	return &TaskService{
		repo:  taskRepo,
		users: userRepo,
		blobs: blobs,
	}
}

type CreateTaskInput struct {
	Title       string
	Description *string
	AssigneeID  int64
	DueDate     *time.Time
	Status      model.TaskStatus
	Priority    model.TaskPriority
	Images      []Upload
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	AssigneeID  *int64
	DueDate     *time.Time
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	Images      []Upload
}

// verifyAssignee: исполнитель должен существовать и не быть удаленным
func (s *TaskService) verifyAssignee(ctx context.Context, assigneeID int64) error {
	if _, err := s.users.GetByID(ctx, assigneeID); err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			return fmt.Errorf("assignee %d not found: %w", assigneeID, ErrValidation)
		}
		return err
	}
	return nil
}

func (s *TaskService) saveImages(actorID int64, uploads []Upload) ([]string, []model.TaskHistory, error) {
	refs := make([]string, 0, len(uploads))
	recs := make([]model.TaskHistory, 0, len(uploads))
	for _, up := range uploads {
		ref, err := saveBlob(s.blobs, "task", up)
		if err != nil {
			return nil, nil, err
		}
		refs = append(refs, ref)
		recs = append(recs, model.TaskHistory{
			UserID: actorID,
			Event:  model.EventImageAdded,
			Changes: model.Changes{
				"image_path": {New: ref},
			},
		})
	}
	return refs, recs, nil
}

func (s *TaskService) Create(ctx context.Context, actor auth.Actor, in CreateTaskInput) (model.Task, error) {
	if err := validateTitle(in.Title); err != nil {
		return model.Task{}, err
	}
	if in.Description != nil {
		if err := validateContent(*in.Description); err != nil {
			return model.Task{}, err
		}
	}
	if in.Status == "" {
		in.Status = model.TaskStatusActive
	}
	if in.Priority == "" {
		in.Priority = model.TaskPriorityMedium
	}
	if !in.Status.Valid() || !in.Priority.Valid() {
		return model.Task{}, fmt.Errorf("unknown status or priority: %w", ErrValidation)
	}
	if err := s.verifyAssignee(ctx, in.AssigneeID); err != nil {
		return model.Task{}, err
	}

	refs, recs, err := s.saveImages(actor.UserID, in.Images)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		AuthorID:    actor.UserID,
		AssigneeID:  in.AssigneeID,
		ImagePaths:  refs,
	}

	// Запись CREATED несет полный начальный снимок полей
	snapshot := model.Changes{
		"title":       {New: task.Title},
		"status":      {New: task.Status},
		"priority":    {New: task.Priority},
		"assignee_id": {New: task.AssigneeID},
	}
	if task.Description != nil {
		snapshot["description"] = model.FieldChange{New: *task.Description}
	}
	if task.DueDate != nil {
		snapshot["due_date"] = model.FieldChange{New: task.DueDate.Format(time.RFC3339)}
	}
	recs = append(recs, model.TaskHistory{
		UserID:  actor.UserID,
		Event:   model.EventCreated,
		Changes: snapshot,
	})

	return s.repo.Create(ctx, task, recs)
}

// Update применяет частичное обновление. Считается дифф по полям: поле попадает
// в запись UPDATED только если оно пришло в запросе и отличается от текущего
// значения. Если ни одно поле не изменилось и картинок нет - ничего не пишем.
func (s *TaskService) Update(ctx context.Context, actor auth.Actor, id int64, in UpdateTaskInput) (model.Task, error) {
	task, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return task, err
	}
	if !auth.Can(actor, task.AuthorID) {
		return task, ErrForbidden
	}

	changes := model.Changes{}

	if in.Title != nil && *in.Title != task.Title {
		if err := validateTitle(*in.Title); err != nil {
			return task, err
		}
		changes["title"] = model.FieldChange{Old: task.Title, New: *in.Title}
		task.Title = *in.Title
	}
	if in.Description != nil && (task.Description == nil || *task.Description != *in.Description) {
		if err := validateContent(*in.Description); err != nil {
			return task, err
		}
		fc := model.FieldChange{New: *in.Description}
		if task.Description != nil {
			fc.Old = *task.Description
		}
		changes["description"] = fc
		task.Description = in.Description
	}
	if in.AssigneeID != nil && *in.AssigneeID != task.AssigneeID {
		if err := s.verifyAssignee(ctx, *in.AssigneeID); err != nil {
			return task, err
		}
		changes["assignee_id"] = model.FieldChange{Old: task.AssigneeID, New: *in.AssigneeID}
		task.AssigneeID = *in.AssigneeID
	}
	if in.DueDate != nil && (task.DueDate == nil || !task.DueDate.Equal(*in.DueDate)) {
		fc := model.FieldChange{New: in.DueDate.Format(time.RFC3339)}
		if task.DueDate != nil {
			fc.Old = task.DueDate.Format(time.RFC3339)
		}
		changes["due_date"] = fc
		task.DueDate = in.DueDate
	}
	if in.Status != nil && *in.Status != task.Status {
		if !in.Status.Valid() {
			return task, fmt.Errorf("unknown status: %w", ErrValidation)
		}
		changes["status"] = model.FieldChange{Old: task.Status, New: *in.Status}
		task.Status = *in.Status
	}
	if in.Priority != nil && *in.Priority != task.Priority {
		if !in.Priority.Valid() {
			return task, fmt.Errorf("unknown priority: %w", ErrValidation)
		}
		changes["priority"] = model.FieldChange{Old: task.Priority, New: *in.Priority}
		task.Priority = *in.Priority
	}

	refs, recs, err := s.saveImages(actor.UserID, in.Images)
	if err != nil {
		return task, err
	}
	task.ImagePaths = append(task.ImagePaths, refs...)

	if len(changes) == 0 && len(recs) == 0 {
		// no-op: ни записи журнала, ни обращения к хранилищу
		return task, nil
	}

	if len(changes) > 0 {
		recs = append(recs, model.TaskHistory{
			UserID:  actor.UserID,
			Event:   model.EventUpdated,
			Changes: changes,
		})
	}

	return s.repo.Update(ctx, task, recs)
}

func (s *TaskService) Delete(ctx context.Context, actor auth.Actor, id int64) error {
	task, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return err
	}
	if !auth.Can(actor, task.AuthorID) {
		return ErrForbidden
	}

	snapshot := model.Changes{
		"title": {Old: task.Title},
	}
	if task.Description != nil {
		snapshot["description"] = model.FieldChange{Old: *task.Description}
	}
	return s.repo.SoftDelete(ctx, id, model.TaskHistory{
		UserID:  actor.UserID,
		Event:   model.EventDeleted,
		Changes: snapshot,
	})
}

// Restore возвращает задачу из удаленных, пока не истекло окно хранения.
// Несуществующая, не удаленная и просроченная задача неразличимы для вызывающего.
func (s *TaskService) Restore(ctx context.Context, actor auth.Actor, id int64) (model.Task, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return task, err
	}
	now := time.Now()
	if !model.Restorable(task.IsDeleted, task.DeletedAt, now) {
		return task, repo.ErrorNotFound
	}
	if !auth.Can(actor, task.AuthorID) {
		return task, ErrForbidden
	}

	snapshot := model.Changes{
		"title": {New: task.Title},
	}
	if task.Description != nil {
		snapshot["description"] = model.FieldChange{New: *task.Description}
	}
	return s.repo.Restore(ctx, id, now.Add(-model.RetentionWindow), model.TaskHistory{
		UserID:  actor.UserID,
		Event:   model.EventRestored,
		Changes: snapshot,
	})
}

func (s *TaskService) Reassign(ctx context.Context, actor auth.Actor, id int64, newAssigneeID int64, comment *string) (model.Task, error) {
	task, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return task, err
	}
	if !auth.Can(actor, task.AuthorID) {
		return task, ErrForbidden
	}
	if err := s.verifyAssignee(ctx, newAssigneeID); err != nil {
		return task, err
	}

	return s.repo.Reassign(ctx, id, newAssigneeID, model.TaskHistory{
		UserID:  actor.UserID,
		Event:   model.EventReassigned,
		Comment: comment,
		Changes: model.Changes{
			"assignee_id": {Old: task.AssigneeID, New: newAssigneeID},
		},
	})
}

func (s *TaskService) History(ctx context.Context, actor auth.Actor, id int64, offset, limit int) ([]model.TaskHistory, error) {
	// журнал доступен и для удаленных задач
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.Can(actor, task.AuthorID) {
		return nil, ErrForbidden
	}

	offset, limit = clampPage(offset, limit)
	return s.repo.History(ctx, id, offset, limit)
}

func (s *TaskService) Mine(ctx context.Context, actor auth.Actor, filter model.TaskFilter) ([]model.Task, error) {
	return s.repo.ListMine(ctx, actor.UserID, filter)
}

func (s *TaskService) ByShift(ctx context.Context, shift string) ([]model.Task, error) {
	if shift == "" {
		return nil, fmt.Errorf("shift is required: %w", ErrValidation)
	}
	return s.repo.ListByShift(ctx, shift)
}
