// Package notify delivers the run results by email: the status workbook to
// the business distribution and a failure alert, carrying the run log, to the
// maintainers.
package notify

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/config"
)

// Message is one outgoing mail. Attachment is an optional file path.
type Message struct {
	To         []string
	Cc         []string
	Subject    string
	Body       string
	Attachment string
}

// Notifier sends run notifications.
type Notifier interface {
	Send(msg Message) error
}

// Mailer is the SMTP Notifier. The plant relay accepts unauthenticated mail
// on port 25; credentials are only set when configured.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func NewMailer(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

var _ Notifier = (*Mailer)(nil)

// Send delivers one message, attaching the named file when set.
func (m *Mailer) Send(msg Message) error {
	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		mail.SetHeader("Cc", msg.Cc...)
	}
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/plain", msg.Body)
	if msg.Attachment != "" {
		mail.Attach(msg.Attachment)
	}

	if err := m.dialer.DialAndSend(mail); err != nil {
		return fmt.Errorf("failed to send email %q: %w", msg.Subject, err)
	}
	m.logger.Info("email sent",
		zap.String("subject", msg.Subject),
		zap.Strings("to", msg.To),
		zap.String("attachment", msg.Attachment),
	)
	return nil
}
