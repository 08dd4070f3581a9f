package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"time"
)

// SMTPConfig holds SMTP configuration.
type SMTPConfig struct {
	Host     string // SMTP server host
	Port     int    // SMTP server port (465 for implicit TLS, 587 for STARTTLS)
	Username string // SMTP username (optional)
	Password string // SMTP password (optional)
	From     string // From address, optionally "Name <addr>"
}

// Validate validates the SMTP configuration.
func (c *SMTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	return nil
}

// SMTPMailer delivers messages over SMTP.
type SMTPMailer struct {
	config    SMTPConfig
	templates *Templates
	now       func() time.Time
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(config SMTPConfig, templates *Templates) (*SMTPMailer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid smtp config: %w", err)
	}

	return &SMTPMailer{
		config:    config,
		templates: templates,
		now:       time.Now,
	}, nil
}

// Send renders and delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	body, err := m.Build(msg)
	if err != nil {
		return err
	}
	return m.sendMail(ctx, msg.Recipients(), body)
}

// Build renders msg into a MIME message. Bcc recipients are not written to the headers.
func (m *SMTPMailer) Build(msg *Message) ([]byte, error) {
	html, plain, err := m.templates.Render(msg)
	if err != nil {
		return nil, err
	}

	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", m.config.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", headerValue(strings.Join(msg.To, ", "))))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", headerValue(msg.Subject)))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", m.now().Format(time.RFC1123Z)))

	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%s: %s\r\n", k, headerValue(msg.Headers[k])))
	}
	b.WriteString("MIME-Version: 1.0\r\n")

	if html == "" {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(plain)
		b.WriteString("\r\n")
		return []byte(b.String()), nil
	}

	boundary := fmt.Sprintf("----=_Part_%d", m.now().UnixNano())
	b.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(plain)
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return []byte(b.String()), nil
}

// headerValue folds CR and LF into spaces so user text cannot open a new
// header line, then applies RFC 2047 encoding when the value is not ASCII.
func headerValue(v string) string {
	v = headerLineBreaks.Replace(v)
	return mime.QEncoding.Encode("utf-8", v)
}

var headerLineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func (m *SMTPMailer) sendMail(ctx context.Context, recipients []string, msg []byte) error {
	addr := net.JoinHostPort(m.config.Host, fmt.Sprintf("%d", m.config.Port))
	tlsConfig := &tls.Config{ServerName: m.config.Host}

	var client *smtp.Client
	var err error
	if m.config.Port == 465 {
		client, err = m.connectImplicitTLS(ctx, addr, tlsConfig)
	} else {
		client, err = m.connectSTARTTLS(ctx, addr, tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if m.config.Username != "" && m.config.Password != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(extractAddress(m.config.From)); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data: %w", err)
	}

	return client.Quit()
}

func (m *SMTPMailer) connectImplicitTLS(ctx context.Context, addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 30 * time.Second},
		Config:    tlsConfig,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	return smtp.NewClient(conn, m.config.Host)
}

func (m *SMTPMailer) connectSTARTTLS(ctx context.Context, addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: 30 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	return client, nil
}

// extractAddress extracts the address from a "Name <addr>" form.
func extractAddress(addr string) string {
	if start := strings.Index(addr, "<"); start != -1 {
		if end := strings.Index(addr, ">"); end > start {
			return addr[start+1 : end]
		}
	}
	return addr
}
