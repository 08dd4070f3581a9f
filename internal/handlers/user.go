package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
	"go.uber.org/zap"
)

// UserHandler handles user administration endpoints
type UserHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// ListUsers lists users. Query: status, role_id, search, page, limit.
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	roleID, ok := optionalUint(c, "role_id")
	if !ok {
		return
	}

	input := services.ListUsersInput{
		RoleID:   roleID,
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.UserStatus(status)
		input.Status = &s
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, params, total))
}

// GetUser returns a user with their role
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := idParam(c, "user")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDetailDTO(*user))
}

// CreateUser creates a user
func (h *UserHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		FirstName string            `json:"first_name" binding:"required,max=100"`
		LastName  string            `json:"last_name" binding:"max=100"`
		Email     string            `json:"email" binding:"required,email"`
		Password  string            `json:"password" binding:"required"`
		RoleID    *uint64           `json:"role_id"`
		Status    models.UserStatus `json:"status" binding:"omitempty,oneof=active inactive blocked"`
		Avatar    string            `json:"avatar" binding:"omitempty,url"`
		Phone     string            `json:"phone" binding:"max=30"`
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", validationDetails(err))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), services.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		RoleID:    req.RoleID,
		Status:    req.Status,
		Avatar:    req.Avatar,
		Phone:     req.Phone,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDetailDTO(*user))
}

// UpdateUser updates the fields present in the request. Sending null for
// role_id removes the role.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, ok := idParam(c, "user")
	if !ok {
		return
	}

	type UpdateUserRequest struct {
		FirstName *string            `json:"first_name" binding:"omitempty,max=100"`
		LastName  *string            `json:"last_name" binding:"omitempty,max=100"`
		Email     *string            `json:"email" binding:"omitempty,email"`
		Password  *string            `json:"password"`
		RoleID    *uint64            `json:"role_id"`
		Status    *models.UserStatus `json:"status" binding:"omitempty,oneof=active inactive blocked"`
		Avatar    *string            `json:"avatar" binding:"omitempty,url"`
		Phone     *string            `json:"phone" binding:"omitempty,max=30"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", validationDetails(err))
		return
	}

	var raw map[string]any
	if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	roleValue, roleSent := raw["role_id"]

	user, err := h.userService.UpdateUser(c.Request.Context(), userID, services.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		RoleID:    req.RoleID,
		ClearRole: roleSent && roleValue == nil,
		Status:    req.Status,
		Avatar:    req.Avatar,
		Phone:     req.Phone,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDetailDTO(*user))
}

// DeleteUser deletes a user other than the caller
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "user")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), userID, actor.ID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}
