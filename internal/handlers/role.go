package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/services"
	"go.uber.org/zap"
)

// RoleHandler handles role endpoints
type RoleHandler struct {
	roleService *services.RoleService
	logger      *zap.Logger
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(roleService *services.RoleService, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
		logger:      logger,
	}
}

type roleRequest struct {
	Slug        *string  `json:"slug" binding:"omitempty,max=100,kebab"`
	Name        *string  `json:"name" binding:"omitempty,max=255"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"is_active"`
}

func (r roleRequest) input() services.RoleInput {
	return services.RoleInput{
		Slug:        r.Slug,
		Name:        r.Name,
		Permissions: r.Permissions,
		IsActive:    r.IsActive,
	}
}

// ListRoles lists every role
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"roles": dto.ToRoleDTOs(roles)})
}

// ListPermissions lists the permissions a role can grant
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"permissions": constants.AllPermissions})
}

// GetRole returns a role
func (h *RoleHandler) GetRole(c *gin.Context) {
	roleID, ok := idParam(c, "role")
	if !ok {
		return
	}

	role, err := h.roleService.GetRole(c.Request.Context(), roleID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRoleDTO(*role))
}

// CreateRole creates a role
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", validationDetails(err))
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), req.input())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToRoleDTO(*role))
}

// UpdateRole updates a role
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	roleID, ok := idParam(c, "role")
	if !ok {
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", validationDetails(err))
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), roleID, req.input())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRoleDTO(*role))
}

// DeleteRole deletes a role that no user holds
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	roleID, ok := idParam(c, "role")
	if !ok {
		return
	}

	if err := h.roleService.DeleteRole(c.Request.Context(), roleID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Role deleted successfully",
	})
}
