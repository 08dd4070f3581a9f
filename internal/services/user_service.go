package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidUserStatus = errors.New("invalid user status")
	ErrCannotDeleteSelf  = errors.New("users cannot delete their own account")
)

// UserService handles user administration.
type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
	}
}

// ListUsersInput represents filters for listing users
type ListUsersInput struct {
	Status   *models.UserStatus
	RoleID   *uint64
	Search   string
	Page     int
	PageSize int
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	RoleID    *uint64
	Status    models.UserStatus
	Avatar    string
	Phone     string
}

// UpdateUserInput represents input for updating a user. Nil fields are left as they are.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	RoleID    *uint64
	ClearRole bool
	Status    *models.UserStatus
	Avatar    *string
	Phone     *string
}

// ListUsers returns users matching the filters
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) ([]models.User, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidUserStatus
	}

	users, total, err := s.userRepo.List(ctx, repository.UserFilter{
		Status:   input.Status,
		RoleID:   input.RoleID,
		Search:   strings.TrimSpace(input.Search),
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetUser returns a user with its role
func (s *UserService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateUser creates a user on behalf of an administrator
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if input.Status == "" {
		input.Status = models.UserStatusActive
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidUserStatus
	}
	if err := emailAvailable(ctx, s.userRepo, email, 0); err != nil {
		return nil, err
	}
	if input.RoleID != nil {
		if err := s.ensureRoleExists(ctx, *input.RoleID); err != nil {
			return nil, err
		}
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hash,
		RoleID:       input.RoleID,
		Status:       input.Status,
		Avatar:       input.Avatar,
		Phone:        input.Phone,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.GetUser(ctx, user.ID)
}

// UpdateUser updates an existing user
func (s *UserService) UpdateUser(ctx context.Context, id uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if err := emailAvailable(ctx, s.userRepo, email, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if input.Password != nil {
		if len(*input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if input.ClearRole {
		user.RoleID = nil
	} else if input.RoleID != nil {
		if err := s.ensureRoleExists(ctx, *input.RoleID); err != nil {
			return nil, err
		}
		user.RoleID = input.RoleID
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidUserStatus
		}
		user.Status = *input.Status
	}
	if input.Avatar != nil {
		user.Avatar = *input.Avatar
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return s.GetUser(ctx, user.ID)
}

// DeleteUser deletes a user. Tasks assigned to the user become unassigned.
func (s *UserService) DeleteUser(ctx context.Context, id, actorID uint64) error {
	if id == actorID {
		return ErrCannotDeleteSelf
	}
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *UserService) ensureRoleExists(ctx context.Context, roleID uint64) error {
	if _, err := s.roleRepo.FindByID(ctx, roleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("failed to find role: %w", err)
	}
	return nil
}
