package handlers

import (
	"fmt"
	"net/http"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/testutil"
)

func (suite *HandlerTestSuite) TestCreateProject_Success() {
	w := suite.request(http.MethodPost, "/api/projects", map[string]string{
		"name":        "Apollo",
		"description": "Moon landing",
	}, suite.manager)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response dto.ProjectDTO
	suite.decode(w, &response)
	suite.Equal("Apollo", response.Name)
	suite.Equal(models.ProjectStatusActive, response.Status)
	suite.Equal(suite.manager.ID, response.CreatedBy)
}

func (suite *HandlerTestSuite) TestCreateProject_MemberForbidden() {
	w := suite.request(http.MethodPost, "/api/projects", map[string]string{"name": "Apollo"}, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(apierrors.ErrCodeInsufficientPermissions, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestCreateProject_InvalidStatus() {
	w := suite.request(http.MethodPost, "/api/projects", map[string]string{
		"name":   "Apollo",
		"status": "paused",
	}, suite.manager)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestListProjects_FiltersByStatus() {
	testutil.CreateProject(suite.T(), suite.db, "Active one", suite.manager)
	done := testutil.CreateProject(suite.T(), suite.db, "Done one", suite.manager)
	suite.Require().NoError(suite.db.Model(done).Update("status", models.ProjectStatusCompleted).Error)

	w := suite.request(http.MethodGet, "/api/projects?status=completed", nil, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.ProjectListResponse
	suite.decode(w, &response)
	suite.Require().Len(response.Projects, 1)
	suite.Equal("Done one", response.Projects[0].Name)
	suite.Equal(int64(1), response.Pagination.Total)
}

func (suite *HandlerTestSuite) TestGetProject_NotFound() {
	w := suite.request(http.MethodGet, "/api/projects/9999", nil, suite.member)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestGetProject_InvalidID() {
	w := suite.request(http.MethodGet, "/api/projects/abc", nil, suite.member)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestUpdateProjectStatus_RaisesEvent() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)

	url := fmt.Sprintf("/api/projects/%d/status", project.ID)
	w := suite.request(http.MethodPatch, url, map[string]string{"status": "completed"}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.ProjectDTO
	suite.decode(w, &response)
	suite.Equal(models.ProjectStatusCompleted, response.Status)

	suite.Require().Equal([]string{events.NameProjectStatusChanged}, suite.publisher.names())
	event := suite.publisher.events[0].(*events.ProjectStatusChanged)
	suite.Equal(models.ProjectStatusActive, event.OldStatus)
	suite.Equal(models.ProjectStatusCompleted, event.NewStatus)
	suite.Equal(suite.manager.ID, event.ChangedBy.ID)
}

func (suite *HandlerTestSuite) TestUpdateProjectStatus_SameStatusIsSilent() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)

	url := fmt.Sprintf("/api/projects/%d/status", project.ID)
	w := suite.request(http.MethodPatch, url, map[string]string{"status": "active"}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Empty(suite.publisher.events)
}

func (suite *HandlerTestSuite) TestUpdateProject_NameOnly() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)

	url := fmt.Sprintf("/api/projects/%d", project.ID)
	w := suite.request(http.MethodPut, url, map[string]string{"name": "Artemis"}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.ProjectDTO
	suite.decode(w, &response)
	suite.Equal("Artemis", response.Name)
	suite.Equal(project.Description, response.Description)
	suite.Empty(suite.publisher.events)
}

func (suite *HandlerTestSuite) TestDeleteProject_RemovesTasks() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)

	url := fmt.Sprintf("/api/projects/%d", project.ID)
	w := suite.request(http.MethodDelete, url, nil, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, url, nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&count).Error)
	suite.Zero(count)
}

func (suite *HandlerTestSuite) TestListProjectTasks() {
	apollo := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	gemini := testutil.CreateProject(suite.T(), suite.db, "Gemini", suite.manager)
	testutil.CreateTask(suite.T(), suite.db, "Build rocket", apollo, suite.manager, suite.member)
	testutil.CreateTask(suite.T(), suite.db, "Train crew", apollo, suite.manager, nil)
	testutil.CreateTask(suite.T(), suite.db, "Dock", gemini, suite.manager, nil)

	url := fmt.Sprintf("/api/projects/%d/tasks", apollo.ID)
	w := suite.request(http.MethodGet, url, nil, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskListResponse
	suite.decode(w, &response)
	suite.Len(response.Tasks, 2)

	w = suite.request(http.MethodGet, fmt.Sprintf("%s?assigned_to=%d", url, suite.member.ID), nil, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &response)
	suite.Require().Len(response.Tasks, 1)
	suite.Equal("Build rocket", response.Tasks[0].Title)
}

func (suite *HandlerTestSuite) TestSuggestTasks_NotConfigured() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)

	url := fmt.Sprintf("/api/projects/%d/tasks/suggest", project.ID)
	w := suite.request(http.MethodPost, url, map[string]string{"text": "Plan the launch"}, suite.manager)
	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal(apierrors.ErrCodeServiceUnavailable, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestProjects_UserWithoutRoleIsForbidden() {
	roleless := testutil.CreateUser(suite.T(), suite.db, "nobody@example.com", "")

	w := suite.request(http.MethodGet, "/api/projects", nil, roleless)
	suite.Equal(http.StatusForbidden, w.Code)

	var body struct {
		Details map[string]string `json:"details"`
	}
	suite.decode(w, &body)
	suite.Equal(constants.PermProjectsView, body.Details["required"])
}
