package mailer

import (
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/swiftdrive/driveschool-api/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers notification email.
type Sender interface {
	Send(msg Message) error
}

// SendgridSender delivers mail through the SendGrid v3 API.
type SendgridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgrid constructs a SendGrid-backed sender.
func NewSendgrid(cfg config.MailConfig) *SendgridSender {
	return &SendgridSender{
		client: sendgrid.NewSendClient(cfg.SendgridKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

// Send delivers a single message, returning an error on any non-2xx reply.
func (s *SendgridSender) Send(msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(to)
	m.AddPersonalizations(p)

	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	resp, err := s.client.Send(m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// NopSender discards mail. Used when outbound email is disabled.
type NopSender struct{}

// Send implements Sender.
func (NopSender) Send(Message) error { return nil }
