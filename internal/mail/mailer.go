package mail

import (
	"fmt"

	"github.com/yukikurage/project-management-api/internal/config"
	"go.uber.org/zap"
)

// NewMailer returns the Mailer selected by cfg.MailDriver: smtp, log, or array.
func NewMailer(cfg *config.Config, logger *zap.Logger) (Mailer, error) {
	switch cfg.MailDriver {
	case "smtp":
		templates, err := LoadTemplates()
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
		return NewSMTPMailer(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, templates)
	case "log", "":
		return NewLogMailer(logger), nil
	case "array":
		return NewArrayMailer(), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.MailDriver)
	}
}
