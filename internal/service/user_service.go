package service

import (
	"context"
	"fmt"

	"github.com/haru-album/pocket-backend/internal/repository"
	"github.com/haru-album/pocket-backend/internal/storage"
)

// ============================================
// User Service
// ============================================

type UserService interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	Update(ctx context.Context, id string, nickname, profileImage *string) (*repository.User, error)
	Search(ctx context.Context, keyword string, limit int) ([]*repository.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	uploader storage.Uploader
}

func NewUserService(userRepo repository.UserRepository, uploader storage.Uploader) UserService {
	return &userService{userRepo: userRepo, uploader: uploader}
}

func (s *userService) GetByID(ctx context.Context, id string) (*repository.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, id string, nickname, profileImage *string) (*repository.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}

	if nickname != nil {
		user.Nickname = *nickname
	}
	if profileImage != nil {
		url, err := s.uploader.UploadBase64(*profileImage, "profile_"+user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to upload profile image: %w", err)
		}
		user.ProfileImage = &url
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Search(ctx context.Context, keyword string, limit int) ([]*repository.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.userRepo.Search(ctx, keyword, limit)
}
