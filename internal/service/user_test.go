package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/model"
	"github.com/teamtrack/teamtrack-api/internal/repo"
)

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name      string
		in        RegisterInput
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name: "successful registration hashes the password",
			in: RegisterInput{
				Username: "jdoe",
				FullName: "John Doe",
				Email:    "jdoe@example.com",
				Password: "secret123",
				Shift:    "day",
			},
			setupMock: func(ur *MockUserRepository) {
				ur.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
					return u.Username == "jdoe" &&
						u.RoleID == model.RoleStandard &&
						u.HashedPassword != "secret123" &&
						auth.CheckPassword("secret123", u.HashedPassword)
				})).Return(model.User{ID: 1, Username: "jdoe"}, nil)
			},
			wantErr: nil,
		},
		{
			name: "missing fields",
			in: RegisterInput{
				Username: "jdoe",
				Password: "secret123",
			},
			setupMock: func(ur *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name: "malformed email",
			in: RegisterInput{
				Username: "jdoe",
				FullName: "John Doe",
				Email:    "not-an-email",
				Password: "secret123",
				Shift:    "day",
			},
			setupMock: func(ur *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name: "duplicate username surfaces as conflict",
			in: RegisterInput{
				Username: "jdoe",
				FullName: "John Doe",
				Email:    "jdoe@example.com",
				Password: "secret123",
				Shift:    "day",
			},
			setupMock: func(ur *MockUserRepository) {
				ur.On("Create", mock.Anything, mock.Anything).Return(model.User{}, repo.ErrorConflict)
			},
			wantErr: repo.ErrorConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(MockUserRepository)
			tt.setupMock(userRepo)

			service := NewUserService(userRepo, new(MockBlobStore))
			result, err := service.Register(context.Background(), tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotZero(t, result.ID)
			}

			userRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_Login(t *testing.T) {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	stored := model.User{ID: 1, Username: "jdoe", HashedPassword: hash}

	t.Run("valid credentials", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByUsername", mock.Anything, "jdoe").Return(stored, nil)

		service := NewUserService(userRepo, new(MockBlobStore))
		user, err := service.Login(context.Background(), "jdoe", "secret123")

		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByUsername", mock.Anything, "jdoe").Return(stored, nil)

		service := NewUserService(userRepo, new(MockBlobStore))
		_, err := service.Login(context.Background(), "jdoe", "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByUsername", mock.Anything, "ghost").Return(model.User{}, repo.ErrorNotFound)

		service := NewUserService(userRepo, new(MockBlobStore))
		_, err := service.Login(context.Background(), "ghost", "secret123")

		// не раскрываем, что именно не совпало
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	stored := model.User{ID: 1, Username: "jdoe", FullName: "John Doe", Email: "jdoe@example.com", Shift: "day"}

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, int64(1)).Return(stored, nil)
		userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			return u.Shift == "night" && u.Username == "jdoe" && u.Email == "jdoe@example.com"
		})).Return(stored, nil)

		service := NewUserService(userRepo, new(MockBlobStore))
		_, err := service.UpdateProfile(context.Background(), 1, UpdateProfileInput{
			Shift: strPtr("night"),
		})

		require.NoError(t, err)
		userRepo.AssertExpectations(t)
	})

	t.Run("avatar upload stores the reference", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		blobs := new(MockBlobStore)
		userRepo.On("GetByID", mock.Anything, int64(1)).Return(stored, nil)
		blobs.On("Save", "avatar_1", "me.png", []byte{1}).Return("avatar_1_abc.png", nil)
		userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			return u.AvatarURL != nil && *u.AvatarURL == "avatar_1_abc.png"
		})).Return(stored, nil)

		service := NewUserService(userRepo, blobs)
		_, err := service.UpdateProfile(context.Background(), 1, UpdateProfileInput{
			Avatar: &Upload{Filename: "me.png", Data: []byte{1}},
		})

		require.NoError(t, err)
		userRepo.AssertExpectations(t)
		blobs.AssertExpectations(t)
	})

	t.Run("malformed email rejected", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, int64(1)).Return(stored, nil)

		service := NewUserService(userRepo, new(MockBlobStore))
		_, err := service.UpdateProfile(context.Background(), 1, UpdateProfileInput{
			Email: strPtr("broken"),
		})

		assert.ErrorIs(t, err, ErrValidation)
		userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestUserService_SetPassword(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("UpdatePassword", mock.Anything, int64(1), mock.MatchedBy(func(hash string) bool {
		return auth.CheckPassword("newpass", hash)
	})).Return(nil)

	service := NewUserService(userRepo, new(MockBlobStore))

	require.NoError(t, service.SetPassword(context.Background(), 1, "newpass"))
	assert.ErrorIs(t, service.SetPassword(context.Background(), 1, ""), ErrValidation)
	userRepo.AssertExpectations(t)
}
