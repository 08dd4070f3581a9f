package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

// UserDTO represents a user embedded in other responses
type UserDTO struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserDetailDTO represents a user in user endpoints
type UserDetailDTO struct {
	ID        uint64            `json:"id"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Status    models.UserStatus `json:"status"`
	Avatar    string            `json:"avatar"`
	Phone     string            `json:"phone"`
	Role      *RoleDTO          `json:"role,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDetailDTO          `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	User  *UserDetailDTO  `json:"user,omitempty"`
	Token *services.Token `json:"token"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Name:  user.FullName(),
		Email: user.Email,
	}
}

// ToUserDetailDTO converts a User model to UserDetailDTO
func ToUserDetailDTO(user models.User) UserDetailDTO {
	dto := UserDetailDTO{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Status:    user.Status,
		Avatar:    user.Avatar,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	// Include role if preloaded
	if user.Role != nil {
		role := ToRoleDTO(*user.Role)
		dto.Role = &role
	}

	return dto
}

// ToUserListResponse converts a page of users to UserListResponse
func ToUserListResponse(users []models.User, params utils.PaginationParams, total int64) UserListResponse {
	items := make([]UserDetailDTO, len(users))
	for i, user := range users {
		items[i] = ToUserDetailDTO(user)
	}

	return UserListResponse{
		Users:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
