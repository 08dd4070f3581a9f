package observers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/jobs"
	"github.com/yukikurage/project-management-api/internal/listeners"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/queue"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Dispatch(_ context.Context, event events.Event) {
	p.events = append(p.events, event)
}

func uid(v uint64) *uint64 { return &v }

func newTaskObserver(t *testing.T) (*TaskObserver, *recordingPublisher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	pub := &recordingPublisher{}
	return NewTaskObserver(pub, zap.New(core)).WithClock(func() time.Time { return fixedNow }), pub, logs
}

func TestTaskObserver_Created(t *testing.T) {
	o, pub, _ := newTaskObserver(t)
	actor := &models.User{ID: 1}

	o.Created(context.Background(), &models.Task{ID: 10}, actor)
	assert.Empty(t, pub.events)

	task := &models.Task{ID: 11, AssignedTo: uid(2)}
	o.Created(context.Background(), task, actor)

	require.Len(t, pub.events, 1)
	assigned, ok := pub.events[0].(*events.TaskAssigned)
	require.True(t, ok)
	assert.Same(t, task, assigned.Task)
	assert.Nil(t, assigned.PreviousAssigneeID)
	assert.Same(t, actor, assigned.AssignedBy)
	assert.Equal(t, fixedNow, assigned.OccurredAt)
}

func TestTaskObserver_Updated(t *testing.T) {
	actor := &models.User{ID: 1}

	tests := []struct {
		name   string
		before models.Task
		after  models.Task
		want   []string
	}{
		{
			name:   "nothing watched changed",
			before: models.Task{Title: "a", Status: models.TaskStatusPending, AssignedTo: uid(2)},
			after:  models.Task{Title: "b", Status: models.TaskStatusPending, AssignedTo: uid(2)},
		},
		{
			name:   "assigned",
			before: models.Task{Status: models.TaskStatusPending},
			after:  models.Task{Status: models.TaskStatusPending, AssignedTo: uid(2)},
			want:   []string{events.NameTaskAssigned},
		},
		{
			name:   "reassigned",
			before: models.Task{Status: models.TaskStatusPending, AssignedTo: uid(2)},
			after:  models.Task{Status: models.TaskStatusPending, AssignedTo: uid(3)},
			want:   []string{events.NameTaskAssigned},
		},
		{
			name:   "unassigned",
			before: models.Task{Status: models.TaskStatusPending, AssignedTo: uid(2)},
			after:  models.Task{Status: models.TaskStatusPending},
		},
		{
			name:   "status changed",
			before: models.Task{Status: models.TaskStatusPending, AssignedTo: uid(2)},
			after:  models.Task{Status: models.TaskStatusCompleted, AssignedTo: uid(2)},
			want:   []string{events.NameTaskStatusChanged},
		},
		{
			name:   "both changed",
			before: models.Task{Status: models.TaskStatusPending},
			after:  models.Task{Status: models.TaskStatusInProgress, AssignedTo: uid(2)},
			want:   []string{events.NameTaskAssigned, events.NameTaskStatusChanged},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, pub, _ := newTaskObserver(t)
			o.Updated(context.Background(), &tt.before, &tt.after, actor)

			var names []string
			for _, e := range pub.events {
				names = append(names, e.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestTaskObserver_UpdatedWithoutActor(t *testing.T) {
	o, pub, logs := newTaskObserver(t)

	o.Updated(context.Background(),
		&models.Task{ID: 5, Status: models.TaskStatusPending, AssignedTo: uid(2)},
		&models.Task{ID: 5, Status: models.TaskStatusInProgress, AssignedTo: uid(2)},
		nil)

	assert.Empty(t, pub.events)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, uint64(5), entry.ContextMap()["task_id"])
}

func TestTaskObserver_StatusEventCarriesTransition(t *testing.T) {
	o, pub, _ := newTaskObserver(t)
	actor := &models.User{ID: 1}
	after := &models.Task{ID: 5, Status: models.TaskStatusCompleted}

	o.Updated(context.Background(), &models.Task{ID: 5, Status: models.TaskStatusInProgress}, after, actor)

	require.Len(t, pub.events, 1)
	changed := pub.events[0].(*events.TaskStatusChanged)
	assert.Same(t, after, changed.Task)
	assert.Equal(t, models.TaskStatusInProgress, changed.OldStatus)
	assert.Equal(t, models.TaskStatusCompleted, changed.NewStatus)
	assert.Equal(t, fixedNow, changed.OccurredAt)
}

func TestProjectObserver_Updated(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pub := &recordingPublisher{}
	o := NewProjectObserver(pub, zap.New(core)).WithClock(func() time.Time { return fixedNow })
	actor := &models.User{ID: 1}

	active := &models.Project{ID: 3, Status: models.ProjectStatusActive}
	o.Updated(context.Background(), active, &models.Project{ID: 3, Status: models.ProjectStatusActive, Name: "renamed"}, actor)
	assert.Empty(t, pub.events)

	o.Updated(context.Background(), active, &models.Project{ID: 3, Status: models.ProjectStatusArchived}, nil)
	assert.Empty(t, pub.events)
	assert.Equal(t, 1, logs.FilterMessage("cannot attribute project status change, event suppressed").Len())

	completed := &models.Project{ID: 3, Status: models.ProjectStatusCompleted}
	o.Updated(context.Background(), active, completed, actor)
	require.Len(t, pub.events, 1)
	changed := pub.events[0].(*events.ProjectStatusChanged)
	assert.Same(t, completed, changed.Project)
	assert.Equal(t, models.ProjectStatusActive, changed.OldStatus)
	assert.Equal(t, models.ProjectStatusCompleted, changed.NewStatus)
	assert.Same(t, actor, changed.ChangedBy)
}

// PipelineTestSuite runs observers through the real dispatcher, listeners and queue.
type PipelineTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	store    *queue.Store
	tasks    *TaskObserver
	projects *ProjectObserver
	logs     *observer.ObservedLogs
}

func (suite *PipelineTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.ctx = context.Background()
	suite.store = queue.NewStore(suite.db).WithClock(func() time.Time { return fixedNow })

	core, logs := observer.New(zapcore.WarnLevel)
	suite.logs = logs
	logger := zap.New(core)

	dispatcher := events.NewDispatcher(logger)
	listeners.Register(dispatcher, listeners.Deps{
		Queue:    queue.New(suite.store, logger),
		Projects: repository.NewProjectRepository(suite.db),
		Logger:   logger,
	})

	clock := func() time.Time { return fixedNow }
	suite.tasks = NewTaskObserver(dispatcher, logger).WithClock(clock)
	suite.projects = NewProjectObserver(dispatcher, logger).WithClock(clock)
}

func (suite *PipelineTestSuite) queued() []models.QueuedJob {
	rows, err := suite.store.Jobs(suite.ctx, jobs.QueueNotifications)
	suite.Require().NoError(err)
	return rows
}

func (suite *PipelineTestSuite) TestAssignThenStart() {
	manager := testutil.CreateUser(suite.T(), suite.db, "manager@example.com", constants.RoleManager)
	u1 := testutil.CreateUser(suite.T(), suite.db, "u1@example.com", constants.RoleMember)
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Wire it", project, manager, nil)

	assigned := *task
	assigned.AssignedTo = &u1.ID
	suite.tasks.Updated(suite.ctx, task, &assigned, manager)

	queued := suite.queued()
	suite.Require().Len(queued, 1)
	suite.Equal(jobs.TypeTaskAssigned, queued[0].Type)

	started := assigned
	started.Status = models.TaskStatusInProgress
	suite.tasks.Updated(suite.ctx, &assigned, &started, manager)

	queued = suite.queued()
	suite.Require().Len(queued, 2)
	types := []string{queued[0].Type, queued[1].Type}
	suite.ElementsMatch([]string{jobs.TypeTaskAssigned, jobs.TypeTaskStatusChanged}, types)
}

func (suite *PipelineTestSuite) TestUnattributedStatusChange() {
	manager := testutil.CreateUser(suite.T(), suite.db, "manager@example.com", constants.RoleManager)
	u1 := testutil.CreateUser(suite.T(), suite.db, "u1@example.com", constants.RoleMember)
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", manager)
	task := testutil.CreateTask(suite.T(), suite.db, "Wire it", project, manager, u1)

	done := *task
	done.Status = models.TaskStatusCompleted
	suite.tasks.Updated(suite.ctx, task, &done, nil)

	suite.Empty(suite.queued())
	suite.Equal(1, suite.logs.FilterMessage("cannot attribute task change, event suppressed").Len())
}

func (suite *PipelineTestSuite) TestProjectCompletedByCreator() {
	creator := testutil.CreateUser(suite.T(), suite.db, "creator@example.com", constants.RoleManager)
	a1 := testutil.CreateUser(suite.T(), suite.db, "a1@example.com", constants.RoleMember)
	a2 := testutil.CreateUser(suite.T(), suite.db, "a2@example.com", constants.RoleMember)
	project := testutil.CreateProject(suite.T(), suite.db, "Apollo", creator)
	testutil.CreateTask(suite.T(), suite.db, "one", project, creator, a1)
	testutil.CreateTask(suite.T(), suite.db, "two", project, creator, a2)

	completed := *project
	completed.Status = models.ProjectStatusCompleted
	suite.projects.Updated(suite.ctx, project, &completed, creator)

	queued := suite.queued()
	suite.Require().Len(queued, 2)

	var recipients []uint64
	for _, row := range queued {
		var p jobs.ProjectStatusChangedPayload
		job := &queue.Job{Payload: row.Payload}
		suite.Require().NoError(job.Decode(&p))
		recipients = append(recipients, p.RecipientID)
		suite.Equal(creator.ID, p.ChangedBy.ID)
	}
	suite.ElementsMatch([]uint64{a1.ID, a2.ID}, recipients)

	// No-op update
	suite.projects.Updated(suite.ctx, &completed, &completed, creator)
	suite.Len(suite.queued(), 2)
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}
