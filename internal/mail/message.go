// Package mail composes notification emails and delivers them.
//
// Composition is pure: the *Message constructors read the models they are
// given and never modify them. Delivery goes through a Mailer.
package mail

import (
	"context"
	"slices"
)

// Priority is the delivery priority of a message.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Header returns the X-Priority header value.
func (p Priority) Header() string {
	if p == PriorityHigh {
		return "1"
	}
	return "3"
}

// Message is a composed email.
type Message struct {
	To      []string
	Bcc     []string
	Subject string
	Headers map[string]string

	// Template names the embedded template pair rendered with Data.
	// When empty, Body is sent as plain text.
	Template string
	Data     map[string]any
	Body     string

	Priority Priority
}

// WithBcc returns a copy of m that blind copies addr. Empty or repeated
// addresses and addresses already in To are ignored.
func (m *Message) WithBcc(addr string) *Message {
	if addr == "" || slices.Contains(m.To, addr) || slices.Contains(m.Bcc, addr) {
		return m
	}

	clone := *m
	clone.Bcc = append(slices.Clone(m.Bcc), addr)
	return &clone
}

// Recipients returns every envelope recipient, To first.
func (m *Message) Recipients() []string {
	return append(slices.Clone(m.To), m.Bcc...)
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
