package service

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nimbo/internal/domain"
	"nimbo/internal/repository"
)

const maxStatusMessageLength = 100

// UserService covers profile reads and self-updates. Accounts are
// provisioned by the identity provider, so there is no create path here.
type UserService interface {
	GetUser(userID uuid.UUID) (*domain.User, error)
	ListUsers(limit, offset int) ([]domain.User, error)
	SearchUsers(query string, limit int) ([]domain.User, error)
	UpdateProfile(userID uuid.UUID, req domain.UpdateProfileRequest) (*domain.User, error)
	UpdateStatus(userID uuid.UUID, status domain.UserStatus) (*domain.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{userRepo: userRepo, logger: logger}
}

func (s *userService) GetUser(userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, translateDB(err)
	}
	return user, nil
}

func (s *userService) ListUsers(limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.List(limit, offset)
}

func (s *userService) SearchUsers(query string, limit int) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newValidationError("q", "must not be empty")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.userRepo.Search(query, limit)
}

func (s *userService) UpdateProfile(userID uuid.UUID, req domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, translateDB(err)
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" || len(name) > maxNameLength {
			return nil, newValidationError("display_name", "must be between 1 and 50 characters")
		}
		user.DisplayName = name
	}
	if req.AvatarURL != nil {
		if verr := validateHTTPURL("avatar_url", req.AvatarURL); verr != nil {
			return nil, verr
		}
		user.AvatarURL = req.AvatarURL
	}
	if req.StatusMessage != nil {
		if len(*req.StatusMessage) > maxStatusMessageLength {
			return nil, newValidationError("status_message", "must be at most 100 characters")
		}
		user.StatusMessage = req.StatusMessage
	}

	if err := s.userRepo.Update(user); err != nil {
		s.logger.Error("failed to update profile", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateStatus(userID uuid.UUID, status domain.UserStatus) (*domain.User, error) {
	if !domain.ValidStatus(status) {
		return nil, newValidationError("status", "must be one of online, busy, away, offline")
	}
	if err := s.userRepo.UpdateStatus(userID, status); err != nil {
		return nil, translateDB(err)
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, translateDB(err)
	}
	return user, nil
}
