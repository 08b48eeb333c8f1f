// Package notify mails the parties affected by registry events.
package notify

import (
	"context"
	"fmt"

	"github.com/gartstein/redflag/internal/registry/metrics"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is one outgoing mail. Template names the message kind for metrics.
type Message struct {
	Template string
	ToEmail  string
	ToName   string
	Subject  string
	Text     string
	HTML     string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendClient is the part of the sendgrid client used by SendGridMailer.
type SendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridMailer struct {
	client SendClient
	from   *mail.Email
	logger *zap.Logger
}

func NewSendGridMailer(apiKey, fromEmail, fromName string, logger *zap.Logger) *SendGridMailer {
	return newSendGridMailer(sendgrid.NewSendClient(apiKey), fromEmail, fromName, logger)
}

func newSendGridMailer(client SendClient, fromEmail, fromName string, logger *zap.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: client,
		from:   mail.NewEmail(fromName, fromEmail),
		logger: logger.Named("sendgrid"),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		metrics.RecordMail(msg.Template, false)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		metrics.RecordMail(msg.Template, false)
		return fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}

	metrics.RecordMail(msg.Template, true)
	m.logger.Debug("Mail sent",
		zap.String("template", msg.Template),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// LogMailer logs messages instead of sending them. It is used when no
// sendgrid key is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mail")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	metrics.RecordMail(msg.Template, true)
	m.logger.Info("Mail not sent, no provider configured",
		zap.String("template", msg.Template),
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
	)
	return nil
}
