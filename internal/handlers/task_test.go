package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/testutil"
)

func (suite *HandlerTestSuite) taskURL(task *models.Task, suffix string) string {
	return fmt.Sprintf("/api/tasks/%d%s", task.ID, suffix)
}

func (suite *HandlerTestSuite) TestCreateTask_Success() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"title":      "Build rocket",
		"project_id": project.ID,
		"priority":   "high",
	}, suite.member)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response dto.TaskDTO
	suite.decode(w, &response)
	suite.Equal("Build rocket", response.Title)
	suite.Equal(models.TaskStatusPending, response.Status)
	suite.Equal(models.TaskPriorityHigh, response.Priority)
	suite.Nil(response.AssignedTo)
	suite.Require().NotNil(response.Project)
	suite.Equal("Apollo", response.Project.Name)
	suite.Empty(suite.publisher.events)
}

func (suite *HandlerTestSuite) TestCreateTask_AssignedRaisesEvent() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"title":       "Build rocket",
		"project_id":  project.ID,
		"assigned_to": suite.member.ID,
	}, suite.manager)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	suite.Require().Equal([]string{events.NameTaskAssigned}, suite.publisher.names())
	event := suite.publisher.events[0].(*events.TaskAssigned)
	suite.Nil(event.PreviousAssigneeID)
	suite.Equal(suite.manager.ID, event.AssignedBy.ID)
}

func (suite *HandlerTestSuite) TestCreateTask_AssigningNeedsPermission() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)

	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"title":       "Build rocket",
		"project_id":  project.ID,
		"assigned_to": suite.manager.ID,
	}, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(apierrors.ErrCodeInsufficientPermissions, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestCreateTask_UnknownProject() {
	w := suite.request(http.MethodPost, "/api/tasks", map[string]any{
		"title":      "Build rocket",
		"project_id": 9999,
	}, suite.member)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestCreateTask_InvalidRequest() {
	w := suite.request(http.MethodPost, "/api/tasks", `{"title": ""}`, suite.member)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestGetTask() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, suite.member)

	w := suite.request(http.MethodGet, suite.taskURL(task, ""), nil, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskDTO
	suite.decode(w, &response)
	suite.Equal(task.ID, response.ID)
	suite.Require().NotNil(response.Assignee)
	suite.Equal(suite.member.ID, response.Assignee.ID)
	suite.Require().NotNil(response.Creator)
	suite.Equal(suite.manager.ID, response.Creator.ID)
}

func (suite *HandlerTestSuite) TestGetTask_NotFound() {
	w := suite.request(http.MethodGet, "/api/tasks/9999", nil, suite.member)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestUpdateTask_MemberForbidden() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)

	w := suite.request(http.MethodPut, suite.taskURL(task, ""), map[string]string{"title": "New"}, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *HandlerTestSuite) TestUpdateTask_NullDueDateClears() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)
	due := time.Now().Add(48 * time.Hour)
	suite.Require().NoError(suite.db.Model(task).Update("due_date", due).Error)

	w := suite.request(http.MethodPut, suite.taskURL(task, ""), `{"due_date": null}`, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.TaskDTO
	suite.decode(w, &response)
	suite.Nil(response.DueDate)
}

func (suite *HandlerTestSuite) TestUpdateTask_OmittedDueDateKept() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)
	due := time.Now().Add(48 * time.Hour)
	suite.Require().NoError(suite.db.Model(task).Update("due_date", due).Error)

	w := suite.request(http.MethodPut, suite.taskURL(task, ""), map[string]string{"title": "Build a bigger rocket"}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskDTO
	suite.decode(w, &response)
	suite.Equal("Build a bigger rocket", response.Title)
	suite.NotNil(response.DueDate)
}

func (suite *HandlerTestSuite) TestUpdateTask_NullAssigneeUnassigns() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, suite.member)

	w := suite.request(http.MethodPut, suite.taskURL(task, ""), `{"assigned_to": null}`, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.TaskDTO
	suite.decode(w, &response)
	suite.Nil(response.AssignedTo)
	suite.Empty(suite.publisher.events)
}

func (suite *HandlerTestSuite) TestUpdateTaskStatus_ByAssignee() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, suite.member)

	w := suite.request(http.MethodPatch, suite.taskURL(task, "/status"), map[string]string{"status": "in_progress"}, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.TaskDTO
	suite.decode(w, &response)
	suite.Equal(models.TaskStatusInProgress, response.Status)

	suite.Require().Equal([]string{events.NameTaskStatusChanged}, suite.publisher.names())
	event := suite.publisher.events[0].(*events.TaskStatusChanged)
	suite.Equal(models.TaskStatusPending, event.OldStatus)
	suite.Equal(models.TaskStatusInProgress, event.NewStatus)
	suite.Equal(suite.member.ID, event.ChangedBy.ID)
}

func (suite *HandlerTestSuite) TestUpdateTaskStatus_OtherMemberForbidden() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, suite.manager)

	w := suite.request(http.MethodPatch, suite.taskURL(task, "/status"), map[string]string{"status": "completed"}, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Empty(suite.publisher.events)

	var body struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	suite.decode(w, &body)
	suite.Equal(apierrors.ErrCodeInsufficientPermissions, body.Code)
	suite.Equal(constants.PermTasksUpdate, body.Details["required"])
}

func (suite *HandlerTestSuite) TestUpdateTaskStatus_InvalidStatus() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)

	w := suite.request(http.MethodPatch, suite.taskURL(task, "/status"), map[string]string{"status": "done"}, suite.manager)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestAssignTask() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)

	w := suite.request(http.MethodPost, suite.taskURL(task, "/assign"), map[string]uint64{"user_id": suite.member.ID}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.TaskDTO
	suite.decode(w, &response)
	suite.Require().NotNil(response.AssignedTo)
	suite.Equal(suite.member.ID, *response.AssignedTo)
	suite.Equal([]string{events.NameTaskAssigned}, suite.publisher.names())

	// Assigning the same user again is not a change
	w = suite.request(http.MethodPost, suite.taskURL(task, "/assign"), map[string]uint64{"user_id": suite.member.ID}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(suite.publisher.events, 1)
}

func (suite *HandlerTestSuite) TestAssignTask_InactiveUser() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)
	suite.Require().NoError(suite.db.Model(suite.member).Update("status", models.UserStatusInactive).Error)

	w := suite.request(http.MethodPost, suite.taskURL(task, "/assign"), map[string]uint64{"user_id": suite.member.ID}, suite.manager)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Empty(suite.publisher.events)
}

func (suite *HandlerTestSuite) TestAssignTask_MemberForbidden() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)

	w := suite.request(http.MethodPost, suite.taskURL(task, "/assign"), map[string]uint64{"user_id": suite.member.ID}, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *HandlerTestSuite) TestUnassignTask() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, suite.member)

	w := suite.request(http.MethodPost, suite.taskURL(task, "/unassign"), nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskDTO
	suite.decode(w, &response)
	suite.Nil(response.AssignedTo)
	suite.Empty(suite.publisher.events)
}

func (suite *HandlerTestSuite) TestDeleteTask() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Build rocket", project, suite.manager, nil)

	w := suite.request(http.MethodDelete, suite.taskURL(task, ""), nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, suite.taskURL(task, ""), nil, suite.manager)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestListTasks_AssignedToMe() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	testutil.CreateTask(suite.T(), suite.db, "Mine", project, suite.manager, suite.member)
	testutil.CreateTask(suite.T(), suite.db, "Theirs", project, suite.manager, suite.manager)

	w := suite.request(http.MethodGet, "/api/tasks?assigned_to_me=true", nil, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskListResponse
	suite.decode(w, &response)
	suite.Require().Len(response.Tasks, 1)
	suite.Equal("Mine", response.Tasks[0].Title)
}

func (suite *HandlerTestSuite) TestListTasks_InvalidFilter() {
	w := suite.request(http.MethodGet, "/api/tasks?assigned_to=abc", nil, suite.member)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestListTasks_OverdueFlag() {
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", suite.manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Late", project, suite.manager, nil)
	suite.Require().NoError(suite.db.Model(task).Update("due_date", time.Now().Add(-48*time.Hour)).Error)

	w := suite.request(http.MethodGet, "/api/tasks", nil, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskListResponse
	suite.decode(w, &response)
	suite.Require().Len(response.Tasks, 1)
	suite.True(response.Tasks[0].IsOverdue)
}
