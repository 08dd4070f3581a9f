package mail

import (
	"context"
	"errors"
	"mime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/models"
	"go.uber.org/zap"
)

func TestSMTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  SMTPConfig
		wantErr bool
	}{
		{"valid", SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}, false},
		{"missing host", SMTPConfig{Port: 587, From: "noreply@example.com"}, true},
		{"missing port", SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"}, true},
		{"missing from", SMTPConfig{Host: "smtp.example.com", Port: 587}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newTestSMTPMailer(t *testing.T) *SMTPMailer {
	t.Helper()
	templates, err := LoadTemplates()
	require.NoError(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "PM <noreply@example.com>"}, templates)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return m
}

func TestSMTPMailer_BuildMultipart(t *testing.T) {
	m := newTestSMTPMailer(t)
	task := testTask(models.TaskPriorityHigh)
	task.Description = "<script>alert(1)</script>"

	msg := composer.TaskAssigned(task, testRecipient(), Actor{Name: "Carol"}).WithBcc("admin@example.com")
	raw, err := m.Build(msg)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, "To: alice@example.com\r\n")
	assert.Contains(t, body, "Subject: New task assigned: Ship release\r\n")
	assert.Contains(t, body, "X-Priority: 1\r\n")
	assert.Contains(t, body, "multipart/alternative")
	assert.NotContains(t, body, "admin@example.com", "bcc must not leak into headers")
	assert.Contains(t, body, "Carol assigned you a task in Apollo.")
	assert.Contains(t, body, "&lt;script&gt;", "html part escapes user content")
	assert.Contains(t, body, "https://pm.example.com/tasks/11")
}

func TestSMTPMailer_BuildPlain(t *testing.T) {
	m := newTestSMTPMailer(t)

	raw, err := m.Build(composer.AdminAlert("ops@example.com", "Job failed", "task 11 could not be delivered"))
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.NotContains(t, body, "multipart")
	assert.True(t, strings.HasSuffix(body, "task 11 could not be delivered\r\n"))
}

func headerBlock(t *testing.T, raw []byte) []string {
	t.Helper()
	head, _, found := strings.Cut(string(raw), "\r\n\r\n")
	require.True(t, found, "message has no header terminator")
	return strings.Split(head, "\r\n")
}

func headerLine(lines []string, name string) (string, bool) {
	for _, line := range lines {
		if value, ok := strings.CutPrefix(line, name+": "); ok {
			return value, true
		}
	}
	return "", false
}

func TestSMTPMailer_BuildFoldsLineBreaksInSubject(t *testing.T) {
	m := newTestSMTPMailer(t)
	task := testTask(models.TaskPriorityMedium)
	task.Title = "Ship\r\nBcc: attacker@evil.test\r\nX-Injected: yes"

	raw, err := m.Build(composer.TaskAssigned(task, testRecipient(), Actor{Name: "Carol"}))
	require.NoError(t, err)
	lines := headerBlock(t, raw)

	_, hasBcc := headerLine(lines, "Bcc")
	assert.False(t, hasBcc)
	_, hasInjected := headerLine(lines, "X-Injected")
	assert.False(t, hasInjected)

	subject, ok := headerLine(lines, "Subject")
	require.True(t, ok)
	assert.Equal(t, "New task assigned: Ship Bcc: attacker@evil.test X-Injected: yes", subject)
	assert.Contains(t, lines, "MIME-Version: 1.0", "headers still end after the mail headers")
}

func TestSMTPMailer_BuildEncodesNonASCIISubject(t *testing.T) {
	m := newTestSMTPMailer(t)
	task := testTask(models.TaskPriorityMedium)
	task.Title = "Relâchement été"

	raw, err := m.Build(composer.TaskAssigned(task, testRecipient(), Actor{Name: "Carol"}))
	require.NoError(t, err)
	lines := headerBlock(t, raw)

	subject, ok := headerLine(lines, "Subject")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(subject, "=?utf-8?q?"), "subject is RFC 2047 encoded: %q", subject)
	for _, line := range lines {
		for _, r := range line {
			assert.Less(t, r, rune(0x80), "header line %q is not ASCII", line)
		}
	}

	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	assert.Equal(t, "New task assigned: Relâchement été", decoded)
}

func TestHeaderValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Ship release", "Ship release"},
		{"crlf", "a\r\nb", "a b"},
		{"bare lf", "a\nb", "a b"},
		{"bare cr", "a\rb", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, headerValue(tt.in))
		})
	}
}

func TestTemplates_RenderAll(t *testing.T) {
	templates, err := LoadTemplates()
	require.NoError(t, err)

	project := &models.Project{ID: 5, Name: "Apollo"}
	messages := []*Message{
		composer.TaskAssigned(testTask(models.TaskPriorityLow), testRecipient(), Actor{Name: "Carol"}),
		composer.TaskStatusChanged(testTask(models.TaskPriorityLow), testRecipient(), models.TaskStatusPending, models.TaskStatusCompleted, Actor{Name: "Carol"}),
		composer.ProjectStatusChanged(project, testRecipient(), models.ProjectStatusActive, models.ProjectStatusArchived, Actor{Name: "Carol"}),
	}

	for _, msg := range messages {
		t.Run(msg.Template, func(t *testing.T) {
			html, plain, err := templates.Render(msg)
			require.NoError(t, err)
			assert.Contains(t, html, "Hello Alice Doe")
			assert.Contains(t, plain, "Hello Alice Doe")
			assert.NotContains(t, plain, "<no value>")
			assert.NotContains(t, html, "<no value>")
		})
	}

	_, _, err = templates.Render(&Message{Template: "missing"})
	assert.Error(t, err)
}

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "noreply@example.com", extractAddress("PM <noreply@example.com>"))
	assert.Equal(t, "noreply@example.com", extractAddress("noreply@example.com"))
}

func TestArrayMailer(t *testing.T) {
	m := NewArrayMailer()
	msg := composer.AdminAlert("ops@example.com", "s", "b")

	require.NoError(t, m.Send(context.Background(), msg))
	assert.Len(t, m.Messages(), 1)

	m.FailWith(errors.New("down"))
	assert.Error(t, m.Send(context.Background(), msg))
	assert.Len(t, m.Messages(), 1)

	m.Reset()
	assert.Empty(t, m.Messages())
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(&config.Config{MailDriver: "log"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = NewMailer(&config.Config{MailDriver: "array"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ArrayMailer{}, m)

	_, err = NewMailer(&config.Config{MailDriver: "smtp"}, zap.NewNop())
	assert.Error(t, err, "smtp without host is rejected")

	_, err = NewMailer(&config.Config{MailDriver: "pigeon"}, zap.NewNop())
	assert.Error(t, err)
}
