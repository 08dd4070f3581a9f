package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleSlugTaken     = errors.New("role slug already exists")
	ErrRoleInUse         = errors.New("role is still assigned to users")
	ErrUnknownPermission = errors.New("unknown permission")
	ErrRoleFieldsMissing = errors.New("role slug and name are required")
)

// RoleService handles role and permission management
type RoleService struct {
	roleRepo repository.RoleRepository
}

// NewRoleService creates a new RoleService
func NewRoleService(roleRepo repository.RoleRepository) *RoleService {
	return &RoleService{roleRepo: roleRepo}
}

// RoleInput represents input for creating or updating a role. Nil fields are left as they are on update.
type RoleInput struct {
	Slug        *string
	Name        *string
	Permissions []string
	IsActive    *bool
}

// ListRoles returns every role
func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// GetRole returns a role by ID
func (s *RoleService) GetRole(ctx context.Context, id uint64) (*models.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	return role, nil
}

// CreateRole creates a role. Slug and name are required.
func (s *RoleService) CreateRole(ctx context.Context, input RoleInput) (*models.Role, error) {
	if input.Slug == nil || input.Name == nil {
		return nil, ErrRoleFieldsMissing
	}

	permissions, err := normalizePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	slug := strings.ToLower(strings.TrimSpace(*input.Slug))
	if err := s.ensureSlugAvailable(ctx, slug, 0); err != nil {
		return nil, err
	}

	role := &models.Role{
		Slug:        slug,
		Name:        strings.TrimSpace(*input.Name),
		Permissions: permissions,
		IsActive:    true,
	}
	if input.IsActive != nil {
		role.IsActive = *input.IsActive
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// UpdateRole updates a role
func (s *RoleService) UpdateRole(ctx context.Context, id uint64, input RoleInput) (*models.Role, error) {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*input.Slug))
		if err := s.ensureSlugAvailable(ctx, slug, role.ID); err != nil {
			return nil, err
		}
		role.Slug = slug
	}
	if input.Name != nil {
		role.Name = strings.TrimSpace(*input.Name)
	}
	if input.Permissions != nil {
		permissions, err := normalizePermissions(input.Permissions)
		if err != nil {
			return nil, err
		}
		role.Permissions = permissions
	}
	if input.IsActive != nil {
		role.IsActive = *input.IsActive
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return role, nil
}

// DeleteRole deletes a role that no user holds
func (s *RoleService) DeleteRole(ctx context.Context, id uint64) error {
	if _, err := s.GetRole(ctx, id); err != nil {
		return err
	}

	count, err := s.roleRepo.CountUsers(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count role users: %w", err)
	}
	if count > 0 {
		return ErrRoleInUse
	}

	if err := s.roleRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

func (s *RoleService) ensureSlugAvailable(ctx context.Context, slug string, exceptID uint64) error {
	existing, err := s.roleRepo.FindBySlug(ctx, slug)
	if err == nil {
		if existing.ID == exceptID {
			return nil
		}
		return ErrRoleSlugTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check role slug: %w", err)
	}
	return nil
}

// normalizePermissions keeps the first occurrence of each permission in input order
// and rejects permissions the API does not know.
func normalizePermissions(permissions []string) ([]string, error) {
	result := make([]string, 0, len(permissions))
	for _, p := range permissions {
		p = strings.TrimSpace(p)
		if !slices.Contains(constants.AllPermissions, p) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPermission, p)
		}
		if !slices.Contains(result, p) {
			result = append(result, p)
		}
	}
	return result, nil
}
