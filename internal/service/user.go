package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/model"
	"github.com/teamtrack/teamtrack-api/internal/repo"
)

type UserService struct {
	repo  repo.UserRepository
	blobs BlobStore
}

func NewUserService(userRepo repo.UserRepository, blobs BlobStore) *UserService {
	return &UserService{
		repo:  userRepo,
		blobs: blobs,
	}
}

type RegisterInput struct {
	Username string
	FullName string
	Email    string
	Password string
	Shift    string
}

type UpdateProfileInput struct {
	Username *string
	FullName *string
	Email    *string
	Shift    *string
	Avatar   *Upload
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.FullName) == "" ||
		in.Email == "" || in.Password == "" || in.Shift == "" {
		return model.User{}, fmt.Errorf("all fields are required: %w", ErrValidation)
	}
	if !strings.Contains(in.Email, "@") {
		return model.User{}, fmt.Errorf("malformed email: %w", ErrValidation)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}

	// Дубликат username/email отлавливается ограничением БД -> ErrorConflict
	return s.repo.Create(ctx, model.User{
		Username:       in.Username,
		FullName:       in.FullName,
		Email:          in.Email,
		HashedPassword: hash,
		RoleID:         model.RoleStandard,
		Shift:          in.Shift,
	})
}

func (s *UserService) Login(ctx context.Context, username, password string) (model.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if !auth.CheckPassword(password, user.HashedPassword) {
		return model.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, actor auth.Actor) (model.User, error) {
	return s.repo.GetByID(ctx, actor.UserID)
}

func (s *UserService) Get(ctx context.Context, id int64) (model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, targetID int64, in UpdateProfileInput) (model.User, error) {
	user, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return user, err
	}

	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		user.Username = *in.Username
	}
	if in.FullName != nil && strings.TrimSpace(*in.FullName) != "" {
		user.FullName = *in.FullName
	}
	if in.Email != nil && *in.Email != "" {
		if !strings.Contains(*in.Email, "@") {
			return user, fmt.Errorf("malformed email: %w", ErrValidation)
		}
		user.Email = *in.Email
	}
	if in.Shift != nil && *in.Shift != "" {
		user.Shift = *in.Shift
	}

	if in.Avatar != nil {
		ref, err := saveBlob(s.blobs, fmt.Sprintf("avatar_%d", user.ID), *in.Avatar)
		if err != nil {
			return user, err
		}
		user.AvatarURL = &ref
	}

	return s.repo.Update(ctx, user)
}

func (s *UserService) Search(ctx context.Context, filter model.UserFilter, limit int) ([]model.User, error) {
	_, limit = clampPage(0, limit)
	return s.repo.Search(ctx, filter, limit)
}

func (s *UserService) List(ctx context.Context, roleID *int, limit int) ([]model.User, error) {
	_, limit = clampPage(0, limit)
	return s.repo.List(ctx, roleID, limit)
}

func (s *UserService) SetPassword(ctx context.Context, targetID int64, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("password is required: %w", ErrValidation)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, targetID, hash)
}

func (s *UserService) Delete(ctx context.Context, targetID int64) error {
	return s.repo.SoftDelete(ctx, targetID)
}
