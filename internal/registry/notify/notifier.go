package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/gartstein/redflag/internal/registry/events"
	"github.com/gartstein/redflag/internal/registry/models"
	"go.uber.org/zap"
)

const (
	TemplateInvitation    = "candidate_invitation"
	TemplateStatusChanged = "account_status"
	TemplateRegistration  = "admin_registration"
)

// Notifier turns registry events into mails.
type Notifier struct {
	mailer     Mailer
	adminEmail string
	logger     *zap.Logger
}

// NewNotifier returns a Notifier. An empty adminEmail disables registration
// notices.
func NewNotifier(mailer Mailer, adminEmail string, logger *zap.Logger) *Notifier {
	return &Notifier{
		mailer:     mailer,
		adminEmail: adminEmail,
		logger:     logger.Named("notifier"),
	}
}

// Handle is an events.Handler. Events that concern nobody are ignored.
func (n *Notifier) Handle(ctx context.Context, ev events.Event) error {
	msg, ok := n.compose(ev)
	if !ok {
		return nil
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify %s: %w", ev.Type, err)
	}
	n.logger.Info("Notification sent",
		zap.String("event_type", string(ev.Type)),
		zap.String("template", msg.Template),
	)
	return nil
}

func (n *Notifier) compose(ev events.Event) (Message, bool) {
	switch ev.Type {
	case events.CandidateInvited:
		c := ev.Candidate
		if c == nil || c.Email == "" {
			return Message{}, false
		}
		inviter := "An employer"
		if ev.Account != nil && ev.Account.CompanyName != "" {
			inviter = ev.Account.CompanyName
		}
		return message(TemplateInvitation, c.Email, c.FullName,
			"You have been added to the Red Flag Registry",
			fmt.Sprintf("Hello %s,\n\n%s added you to the Red Flag Registry. Register with this email address to review your history and respond to entries.", c.FullName, inviter),
		), true

	case events.AccountStatusChanged:
		a := ev.Account
		if a == nil || a.Email == "" {
			return Message{}, false
		}
		return message(TemplateStatusChanged, a.Email, a.DisplayName,
			"Your account is now "+statusLabel(a.Status),
			fmt.Sprintf("Hello %s,\n\nYour registry account changed from %s to %s.", a.DisplayName, statusLabel(ev.PreviousStatus), statusLabel(a.Status)),
		), true

	case events.AccountRegistered:
		a := ev.Account
		if a == nil || n.adminEmail == "" {
			return Message{}, false
		}
		who := a.DisplayName
		if a.CompanyName != "" {
			who += " (" + a.CompanyName + ")"
		}
		return message(TemplateRegistration, n.adminEmail, "",
			"New account awaiting approval",
			fmt.Sprintf("%s registered as %s with %s and is waiting for review.", who, a.Role, a.Email),
		), true
	}
	return Message{}, false
}

func message(template, to, name, subject, text string) Message {
	return Message{
		Template: template,
		ToEmail:  to,
		ToName:   name,
		Subject:  subject,
		Text:     text,
		HTML:     "<p>" + html.EscapeString(text) + "</p>",
	}
}

func statusLabel(s models.AccountStatus) string {
	switch s {
	case models.StatusPending:
		return "pending review"
	case models.StatusApproved:
		return "approved"
	case models.StatusSuspended:
		return "suspended"
	case models.StatusRejected:
		return "rejected"
	}
	return string(s)
}
