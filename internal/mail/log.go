package mail

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.With(zap.String("component", "log_mailer"))}
}

func (m *LogMailer) Send(_ context.Context, msg *Message) error {
	m.logger.Info("mail",
		zap.Strings("to", msg.To),
		zap.Strings("bcc", msg.Bcc),
		zap.String("subject", msg.Subject),
		zap.String("template", msg.Template),
		zap.String("priority", string(msg.Priority)),
		zap.Any("data", msg.Data),
		zap.String("body", msg.Body))
	return nil
}

// ArrayMailer keeps sent messages in memory.
type ArrayMailer struct {
	mu       sync.Mutex
	messages []*Message
	err      error
}

// NewArrayMailer creates an empty ArrayMailer.
func NewArrayMailer() *ArrayMailer {
	return &ArrayMailer{}
}

func (m *ArrayMailer) Send(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// FailWith makes every following Send return err. A nil err restores delivery.
func (m *ArrayMailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Messages returns the messages sent so far.
func (m *ArrayMailer) Messages() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Message(nil), m.messages...)
}

// Reset forgets sent messages.
func (m *ArrayMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
