package mail

import (
	"fmt"

	"github.com/yukikurage/project-management-api/internal/models"
)

// Template names
const (
	TemplateTaskAssigned         = "task_assigned"
	TemplateTaskStatusChanged    = "task_status_changed"
	TemplateProjectStatusChanged = "project_status_changed"
)

const dateLayout = "Jan 2, 2006"

// Actor identifies who made a change, as captured when the notification was queued.
type Actor struct {
	ID   uint64
	Name string
}

// Composer builds notification messages. AppURL prefixes links in the emails.
type Composer struct {
	AppURL string
}

// TaskAssigned builds the message telling recipient they were assigned task.
// Assigning a high priority task is sent with high priority.
func (c Composer) TaskAssigned(task *models.Task, recipient *models.User, assignedBy Actor) *Message {
	priority := PriorityNormal
	if task.Priority == models.TaskPriorityHigh {
		priority = PriorityHigh
	}

	data := c.taskData(task, recipient)
	data["AssignedBy"] = assignedBy.Name

	return &Message{
		To:       []string{recipient.Email},
		Subject:  fmt.Sprintf("New task assigned: %s", task.Title),
		Headers:  headers(TemplateTaskAssigned, priority, task.ID),
		Template: TemplateTaskAssigned,
		Data:     data,
		Priority: priority,
	}
}

// TaskStatusChanged builds the message telling recipient that task moved
// from oldStatus to newStatus. Completion is sent with high priority.
func (c Composer) TaskStatusChanged(task *models.Task, recipient *models.User, oldStatus, newStatus models.TaskStatus, changedBy Actor) *Message {
	priority := PriorityNormal
	if newStatus == models.TaskStatusCompleted {
		priority = PriorityHigh
	}

	data := c.taskData(task, recipient)
	data["OldStatus"] = oldStatus.Label()
	data["NewStatus"] = newStatus.Label()
	data["ChangedBy"] = changedBy.Name

	return &Message{
		To:       []string{recipient.Email},
		Subject:  fmt.Sprintf("Task status updated: %s is now %s", task.Title, newStatus.Label()),
		Headers:  headers(TemplateTaskStatusChanged, priority, task.ID),
		Template: TemplateTaskStatusChanged,
		Data:     data,
		Priority: priority,
	}
}

// ProjectStatusChanged builds the message telling recipient that project moved
// from oldStatus to newStatus. Completion and archival are sent with high priority.
func (c Composer) ProjectStatusChanged(project *models.Project, recipient *models.User, oldStatus, newStatus models.ProjectStatus, changedBy Actor) *Message {
	priority := PriorityNormal
	if newStatus == models.ProjectStatusCompleted || newStatus == models.ProjectStatusArchived {
		priority = PriorityHigh
	}

	return &Message{
		To:       []string{recipient.Email},
		Subject:  fmt.Sprintf("Project status updated: %s is now %s", project.Name, newStatus.Label()),
		Headers:  headers(TemplateProjectStatusChanged, priority, project.ID),
		Template: TemplateProjectStatusChanged,
		Data: map[string]any{
			"RecipientName":      recipient.FullName(),
			"ProjectID":          project.ID,
			"ProjectName":        project.Name,
			"ProjectDescription": project.Description,
			"OldStatus":          oldStatus.Label(),
			"NewStatus":          newStatus.Label(),
			"ChangedBy":          changedBy.Name,
			"URL":                fmt.Sprintf("%s/projects/%d", c.AppURL, project.ID),
		},
		Priority: priority,
	}
}

// AdminAlert builds a plain text alert for an operator.
func (c Composer) AdminAlert(to, subject, body string) *Message {
	return &Message{
		To:      []string{to},
		Subject: subject,
		Headers: map[string]string{
			"X-Priority": PriorityHigh.Header(),
		},
		Body:     body,
		Priority: PriorityHigh,
	}
}

func (c Composer) taskData(task *models.Task, recipient *models.User) map[string]any {
	dueDate := ""
	if task.DueDate != nil {
		dueDate = task.DueDate.Format(dateLayout)
	}

	return map[string]any{
		"RecipientName":   recipient.FullName(),
		"TaskID":          task.ID,
		"TaskTitle":       task.Title,
		"TaskDescription": task.Description,
		"TaskPriority":    task.Priority.Label(),
		"TaskStatus":      task.Status.Label(),
		"ProjectName":     task.Project.Name,
		"DueDate":         dueDate,
		"URL":             fmt.Sprintf("%s/tasks/%d", c.AppURL, task.ID),
	}
}

func headers(notification string, priority Priority, entityID uint64) map[string]string {
	return map[string]string{
		"X-Priority":          priority.Header(),
		"X-Notification-Type": notification,
		"X-Entity-ID":         fmt.Sprintf("%d", entityID),
	}
}
