// Package mailer sends the platform's notification emails.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/moyijulius/crime-report-platform/config"
	templates "github.com/moyijulius/crime-report-platform/templates/html"
)

// Recipient is the addressee of an email
type Recipient struct {
	Name  string
	Email string
}

// Mailer delivers a plain text message, wrapped in the platform's HTML template
type Mailer interface {
	Send(ctx context.Context, to Recipient, subject, body string) error
}

// New returns a SendGrid mailer when an API key is configured and a mailer
// that only logs otherwise
func New(conf *config.Config) Mailer {
	if conf.SendGridAPIKey == "" {
		zap.S().Infow("SENDGRID_API_KEY not set, emails will only be logged")
		return Log{}
	}
	return &SendGrid{
		client:  sendgrid.NewSendClient(conf.SendGridAPIKey),
		from:    mail.NewEmail(conf.MailFromName, conf.MailFrom),
		siteURL: conf.BaseURL,
	}
}

// SendGrid sends email through the SendGrid v3 API
type SendGrid struct {
	client  *sendgrid.Client
	from    *mail.Email
	siteURL string
}

// Send implements Mailer
func (s *SendGrid) Send(ctx context.Context, to Recipient, subject, body string) error {
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail(to.Name, to.Email), body,
		templates.RenderGenericEmail(subject, body, s.siteURL))
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", to.Email)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", to.Email)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("email sent successfully", "to", to.Email, "subject", subject)
	return nil
}

// Log writes emails to the log instead of sending them
type Log struct{}

// Send implements Mailer
func (Log) Send(_ context.Context, to Recipient, subject, body string) error {
	zap.S().Infow("email not sent, no mail provider configured", "to", to.Email, "subject", subject, "body", body)
	return nil
}
