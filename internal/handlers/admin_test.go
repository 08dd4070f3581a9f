package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/testutil"
)

// Users

func (suite *HandlerTestSuite) TestListUsers_ManagerCanView() {
	w := suite.request(http.MethodGet, "/api/users?search=member", nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.UserListResponse
	suite.decode(w, &response)
	suite.Require().Len(response.Users, 1)
	suite.Equal(suite.member.ID, response.Users[0].ID)
}

func (suite *HandlerTestSuite) TestListUsers_MemberForbidden() {
	w := suite.request(http.MethodGet, "/api/users", nil, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *HandlerTestSuite) TestCreateUser() {
	role := testutil.Role(suite.T(), suite.db, constants.RoleManager)

	w := suite.request(http.MethodPost, "/api/users", map[string]any{
		"first_name": "Katherine",
		"last_name":  "Johnson",
		"email":      "katherine@example.com",
		"password":   "orbital-mechanics",
		"role_id":    role.ID,
	}, suite.admin)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response dto.UserDetailDTO
	suite.decode(w, &response)
	suite.Equal(models.UserStatusActive, response.Status)
	suite.Require().NotNil(response.Role)
	suite.Equal(constants.RoleManager, response.Role.Slug)

	w = suite.request(http.MethodPost, "/api/users", map[string]any{
		"first_name": "Katherine",
		"email":      "katherine@example.com",
		"password":   "orbital-mechanics",
	}, suite.admin)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestUpdateUser_NullRoleClears() {
	url := fmt.Sprintf("/api/users/%d", suite.member.ID)
	w := suite.request(http.MethodPut, url, `{"role_id": null, "status": "inactive"}`, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.UserDetailDTO
	suite.decode(w, &response)
	suite.Nil(response.Role)
	suite.Equal(models.UserStatusInactive, response.Status)
}

func (suite *HandlerTestSuite) TestDeleteUser_Self() {
	url := fmt.Sprintf("/api/users/%d", suite.admin.ID)
	w := suite.request(http.MethodDelete, url, nil, suite.admin)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlerTestSuite) TestDeleteUser() {
	url := fmt.Sprintf("/api/users/%d", suite.member.ID)
	w := suite.request(http.MethodDelete, url, nil, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, url, nil, suite.admin)
	suite.Equal(http.StatusNotFound, w.Code)
}

// Roles

func (suite *HandlerTestSuite) TestCreateRole() {
	w := suite.request(http.MethodPost, "/api/roles", map[string]any{
		"slug":        "reviewer",
		"name":        "Reviewer",
		"permissions": []string{constants.PermTasksView, constants.PermProjectsView},
		"is_active":   true,
	}, suite.admin)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response dto.RoleDTO
	suite.decode(w, &response)
	suite.Equal("reviewer", response.Slug)
	suite.ElementsMatch([]string{constants.PermTasksView, constants.PermProjectsView}, response.Permissions)
}

func (suite *HandlerTestSuite) TestCreateRole_SlugMustBeKebabCase() {
	w := suite.request(http.MethodPost, "/api/roles", map[string]any{
		"slug": "Not Kebab",
		"name": "Broken",
	}, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.True(strings.Contains(w.Body.String(), "kebab"), w.Body.String())
}

func (suite *HandlerTestSuite) TestCreateRole_UnknownPermission() {
	w := suite.request(http.MethodPost, "/api/roles", map[string]any{
		"slug":        "wizard",
		"name":        "Wizard",
		"permissions": []string{"spells.cast"},
	}, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestCreateRole_ManagerForbidden() {
	w := suite.request(http.MethodPost, "/api/roles", map[string]any{"slug": "x", "name": "X"}, suite.manager)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *HandlerTestSuite) TestDeleteRole_InUse() {
	role := testutil.Role(suite.T(), suite.db, constants.RoleMember)

	w := suite.request(http.MethodDelete, fmt.Sprintf("/api/roles/%d", role.ID), nil, suite.admin)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlerTestSuite) TestListPermissions() {
	w := suite.request(http.MethodGet, "/api/roles/permissions", nil, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response struct {
		Permissions []string `json:"permissions"`
	}
	suite.decode(w, &response)
	suite.Equal(constants.AllPermissions, response.Permissions)
}

// Statistics

func (suite *HandlerTestSuite) TestStatistics() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, suite.member)
	testutil.CreateTask(suite.T(), suite.db, "Train crew", project, suite.manager, suite.member)

	w := suite.request(http.MethodGet, "/api/statistics", nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response services.Dashboard
	suite.decode(w, &response)
	suite.Equal(int64(1), response.ProjectsByStatus[models.ProjectStatusActive])
	suite.Equal(int64(2), response.TasksByStatus[models.TaskStatusPending])
	suite.Equal(int64(0), response.TasksByStatus[models.TaskStatusCompleted])
	suite.Require().Len(response.TopAssignees, 1)
	suite.Equal(suite.member.ID, response.TopAssignees[0].UserID)
	suite.Equal(int64(2), response.TopAssignees[0].OpenTasks)
}

func (suite *HandlerTestSuite) TestStatistics_MemberForbidden() {
	w := suite.request(http.MethodGet, "/api/statistics", nil, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)
}

// Operational endpoints

func (suite *HandlerTestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"database":"up"`)
}

func (suite *HandlerTestSuite) TestMetrics() {
	suite.request(http.MethodGet, "/health", nil, nil)

	w := suite.request(http.MethodGet, "/metrics", nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "http_requests_total")
}
