package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/model"
	"github.com/teamtrack/teamtrack-api/internal/repo"
)

// MockTaskRepository - мок репозитория задач
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t model.Task, recs []model.TaskHistory) (model.Task, error) {
	args := m.Called(ctx, t, recs)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, id int64) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) GetActive(ctx context.Context, id int64) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) ListMine(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) ListByShift(ctx context.Context, shift string) ([]model.Task, error) {
	args := m.Called(ctx, shift)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, t model.Task, recs []model.TaskHistory) (model.Task, error) {
	args := m.Called(ctx, t, recs)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) SoftDelete(ctx context.Context, id int64, rec model.TaskHistory) error {
	args := m.Called(ctx, id, rec)
	return args.Error(0)
}

func (m *MockTaskRepository) Restore(ctx context.Context, id int64, cutoff time.Time, rec model.TaskHistory) (model.Task, error) {
	args := m.Called(ctx, id, cutoff, rec)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Reassign(ctx context.Context, id int64, newAssigneeID int64, rec model.TaskHistory) (model.Task, error) {
	args := m.Called(ctx, id, newAssigneeID, rec)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) History(ctx context.Context, taskID int64, offset, limit int) ([]model.TaskHistory, error) {
	args := m.Called(ctx, taskID, offset, limit)
	return args.Get(0).([]model.TaskHistory), args.Error(1)
}

// MockUserRepository - мок репозитория пользователей
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) Search(ctx context.Context, filter model.UserFilter, limit int) ([]model.User, error) {
	args := m.Called(ctx, filter, limit)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, roleID *int, limit int) ([]model.User, error) {
	args := m.Called(ctx, roleID, limit)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	args := m.Called(ctx, id, hashedPassword)
	return args.Error(0)
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBlobStore - мок файлового хранилища
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Save(prefix, filename string, data []byte) (string, error) {
	args := m.Called(prefix, filename, data)
	return args.String(0), args.Error(1)
}

var (
	owner    = auth.Actor{UserID: 1, Role: auth.RoleStandard}
	stranger = auth.Actor{UserID: 2, Role: auth.RoleStandard}
	admin    = auth.Actor{UserID: 99, Role: auth.RoleElevated}
)

func strPtr(s string) *string { return &s }

func TestTaskService_Create(t *testing.T) {
	tests := []struct {
		name      string
		in        CreateTaskInput
		setupMock func(*MockTaskRepository, *MockUserRepository)
		wantErr   error
	}{
		{
			name: "successful creation writes a CREATED record",
			in: CreateTaskInput{
				Title:      "Fix the build",
				AssigneeID: 2,
			},
			setupMock: func(tr *MockTaskRepository, ur *MockUserRepository) {
				ur.On("GetByID", mock.Anything, int64(2)).Return(model.User{ID: 2}, nil)
				tr.On("Create", mock.Anything, mock.MatchedBy(func(task model.Task) bool {
					return task.Title == "Fix the build" &&
						task.Status == model.TaskStatusActive &&
						task.Priority == model.TaskPriorityMedium &&
						task.AuthorID == 1 &&
						task.AssigneeID == 2
				}), mock.MatchedBy(func(recs []model.TaskHistory) bool {
					if len(recs) != 1 || recs[0].Event != model.EventCreated {
						return false
					}
					return recs[0].Changes["title"].New == "Fix the build"
				})).Return(model.Task{ID: 1, Title: "Fix the build"}, nil)
			},
			wantErr: nil,
		},
		{
			name: "validation error - title too short",
			in: CreateTaskInput{
				Title:      "ab",
				AssigneeID: 2,
			},
			setupMock: func(tr *MockTaskRepository, ur *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name: "validation error - unknown status",
			in: CreateTaskInput{
				Title:      "Fix the build",
				AssigneeID: 2,
				Status:     "archived",
			},
			setupMock: func(tr *MockTaskRepository, ur *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name: "validation error - assignee does not exist",
			in: CreateTaskInput{
				Title:      "Fix the build",
				AssigneeID: 777,
			},
			setupMock: func(tr *MockTaskRepository, ur *MockUserRepository) {
				ur.On("GetByID", mock.Anything, int64(777)).Return(model.User{}, repo.ErrorNotFound)
			},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taskRepo := new(MockTaskRepository)
			userRepo := new(MockUserRepository)
			tt.setupMock(taskRepo, userRepo)

			service := NewTaskService(taskRepo, userRepo, new(MockBlobStore))
			result, err := service.Create(context.Background(), owner, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotZero(t, result.ID)
			}

			taskRepo.AssertExpectations(t)
			userRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_Update_DiffOnlyChangedFields(t *testing.T) {
	current := model.Task{
		ID:         1,
		Title:      "Old title",
		Status:     model.TaskStatusActive,
		Priority:   model.TaskPriorityMedium,
		AuthorID:   1,
		AssigneeID: 2,
	}

	taskRepo := new(MockTaskRepository)
	taskRepo.On("GetActive", mock.Anything, int64(1)).Return(current, nil)
	// два измененных поля дают ровно одну запись UPDATED
	taskRepo.On("Update", mock.Anything, mock.MatchedBy(func(task model.Task) bool {
		return task.Title == "New title" && task.Priority == model.TaskPriorityHigh
	}), mock.MatchedBy(func(recs []model.TaskHistory) bool {
		if len(recs) != 1 || recs[0].Event != model.EventUpdated {
			return false
		}
		ch := recs[0].Changes
		if len(ch) != 2 {
			return false
		}
		return ch["title"].Old == "Old title" && ch["title"].New == "New title" &&
			ch["priority"].Old == model.TaskPriorityMedium && ch["priority"].New == model.TaskPriorityHigh
	})).Return(model.Task{ID: 1, Title: "New title"}, nil)

	service := NewTaskService(taskRepo, new(MockUserRepository), new(MockBlobStore))

	newPriority := model.TaskPriorityHigh
	result, err := service.Update(context.Background(), owner, 1, UpdateTaskInput{
		Title:    strPtr("New title"),
		Priority: &newPriority,
	})

	require.NoError(t, err)
	assert.Equal(t, "New title", result.Title)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_Update_NoChangesIsSilent(t *testing.T) {
	current := model.Task{
		ID:         1,
		Title:      "Same title",
		Status:     model.TaskStatusActive,
		Priority:   model.TaskPriorityMedium,
		AuthorID:   1,
		AssigneeID: 2,
	}

	taskRepo := new(MockTaskRepository)
	taskRepo.On("GetActive", mock.Anything, int64(1)).Return(current, nil)

	service := NewTaskService(taskRepo, new(MockUserRepository), new(MockBlobStore))

	samePriority := model.TaskPriorityMedium
	result, err := service.Update(context.Background(), owner, 1, UpdateTaskInput{
		Title:    strPtr("Same title"),
		Priority: &samePriority,
	})

	// Update на репозитории не вызывался: ни мутации, ни записи журнала
	require.NoError(t, err)
	assert.Equal(t, "Same title", result.Title)
	taskRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_Update_Forbidden(t *testing.T) {
	current := model.Task{ID: 1, Title: "Old title", AuthorID: 1}

	taskRepo := new(MockTaskRepository)
	taskRepo.On("GetActive", mock.Anything, int64(1)).Return(current, nil)

	service := NewTaskService(taskRepo, new(MockUserRepository), new(MockBlobStore))

	_, err := service.Update(context.Background(), stranger, 1, UpdateTaskInput{
		Title: strPtr("Hijacked"),
	})

	assert.ErrorIs(t, err, ErrForbidden)
	taskRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskService_Update_ElevatedBypassesOwnership(t *testing.T) {
	current := model.Task{ID: 1, Title: "Old title", AuthorID: 1, Status: model.TaskStatusActive, Priority: model.TaskPriorityMedium}

	taskRepo := new(MockTaskRepository)
	taskRepo.On("GetActive", mock.Anything, int64(1)).Return(current, nil)
	taskRepo.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Return(model.Task{ID: 1, Title: "Admin edit"}, nil)

	service := NewTaskService(taskRepo, new(MockUserRepository), new(MockBlobStore))

	_, err := service.Update(context.Background(), admin, 1, UpdateTaskInput{
		Title: strPtr("Admin edit"),
	})

	require.NoError(t, err)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_Delete(t *testing.T) {
	current := model.Task{ID: 1, Title: "Doomed", AuthorID: 1}

	taskRepo := new(MockTaskRepository)
	taskRepo.On("GetActive", mock.Anything, int64(1)).Return(current, nil)
	taskRepo.On("SoftDelete", mock.Anything, int64(1), mock.MatchedBy(func(rec model.TaskHistory) bool {
		return rec.Event == model.EventDeleted && rec.UserID == 1 &&
			rec.Changes["title"].Old == "Doomed"
	})).Return(nil)

	service := NewTaskService(taskRepo, new(MockUserRepository), new(MockBlobStore))

	require.NoError(t, service.Delete(context.Background(), owner, 1))
	taskRepo.AssertExpectations(t)
}

func TestTaskService_Restore(t *testing.T) {
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name      string
		deletedAt *time.Time
		isDeleted bool
		wantErr   error
	}{
		{
			name:      "within the retention window",
			deletedAt: ptr(time.Now().Add(-2 * 24 * time.Hour)),
			isDeleted: true,
			wantErr:   nil,
		},
		{
			name:      "window expired",
			deletedAt: ptr(time.Now().Add(-8 * 24 * time.Hour)),
			isDeleted: true,
			wantErr:   repo.ErrorNotFound,
		},
		{
			name:      "not deleted at all",
			deletedAt: nil,
			isDeleted: false,
			wantErr:   repo.ErrorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := model.Task{
				ID:        1,
				Title:     "Recoverable",
				AuthorID:  1,
				IsDeleted: tt.isDeleted,
				DeletedAt: tt.deletedAt,
			}

			taskRepo := new(MockTaskRepository)
			taskRepo.On("Get", mock.Anything, int64(1)).Return(current, nil)
			if tt.wantErr == nil {
				taskRepo.On("Restore", mock.Anything, int64(1), mock.Anything, mock.MatchedBy(func(rec model.TaskHistory) bool {
					return rec.Event == model.EventRestored && rec.Changes["title"].New == "Recoverable"
				})).Return(model.Task{ID: 1, Title: "Recoverable"}, nil)
			}

			service := NewTaskService(taskRepo, new(MockUserRepository), new(MockBlobStore))
			_, err := service.Restore(context.Background(), owner, 1)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				taskRepo.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
			}
			taskRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_Reassign(t *testing.T) {
	current := model.Task{ID: 1, Title: "Handover", AuthorID: 1, AssigneeID: 2}

	t.Run("successful reassignment", func(t *testing.T) {
		taskRepo := new(MockTaskRepository)
		userRepo := new(MockUserRepository)
		taskRepo.On("GetActive", mock.Anything, int64(1)).Return(current, nil)
		userRepo.On("GetByID", mock.Anything, int64(3)).Return(model.User{ID: 3}, nil)
		taskRepo.On("Reassign", mock.Anything, int64(1), int64(3), mock.MatchedBy(func(rec model.TaskHistory) bool {
			return rec.Event == model.EventReassigned &&
				rec.Changes["assignee_id"].Old == int64(2) &&
				rec.Changes["assignee_id"].New == int64(3) &&
				rec.Comment != nil && *rec.Comment == "vacation cover"
		})).Return(model.Task{ID: 1, AssigneeID: 3}, nil)

		service := NewTaskService(taskRepo, userRepo, new(MockBlobStore))
		result, err := service.Reassign(context.Background(), owner, 1, 3, strPtr("vacation cover"))

		require.NoError(t, err)
		assert.Equal(t, int64(3), result.AssigneeID)
		taskRepo.AssertExpectations(t)
		userRepo.AssertExpectations(t)
	})

	t.Run("new assignee does not exist", func(t *testing.T) {
		taskRepo := new(MockTaskRepository)
		userRepo := new(MockUserRepository)
		taskRepo.On("GetActive", mock.Anything, int64(1)).Return(current, nil)
		userRepo.On("GetByID", mock.Anything, int64(777)).Return(model.User{}, repo.ErrorNotFound)

		service := NewTaskService(taskRepo, userRepo, new(MockBlobStore))
		_, err := service.Reassign(context.Background(), owner, 1, 777, nil)

		assert.ErrorIs(t, err, ErrValidation)
		taskRepo.AssertNotCalled(t, "Reassign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTaskService_History_ClampsPaging(t *testing.T) {
	current := model.Task{ID: 1, AuthorID: 1, IsDeleted: true}

	taskRepo := new(MockTaskRepository)
	taskRepo.On("Get", mock.Anything, int64(1)).Return(current, nil)
	taskRepo.On("History", mock.Anything, int64(1), 0, 10).Return([]model.TaskHistory{}, nil)

	service := NewTaskService(taskRepo, new(MockUserRepository), new(MockBlobStore))

	// журнал читается и у удаленной задачи; кривая пагинация приводится к дефолтам
	_, err := service.History(context.Background(), owner, 1, -5, 0)

	require.NoError(t, err)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_ByShift(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	taskRepo.On("ListByShift", mock.Anything, "night").Return([]model.Task{}, nil)

	service := NewTaskService(taskRepo, new(MockUserRepository), new(MockBlobStore))

	_, err := service.ByShift(context.Background(), "night")
	require.NoError(t, err)

	_, err = service.ByShift(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)

	taskRepo.AssertExpectations(t)
}
