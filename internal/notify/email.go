// Package notify sends booking confirmation emails. SendGrid is the real
// transport; a stub sender logs instead when email is not configured.
package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/carewell/scheduling-agent/pkg/logging"
)

// EmailSender sends one message. Implementations can be swapped (SendGrid,
// SES, SMTP) without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain-text email.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Confirmation carries the booked-appointment fields the confirmation
// email needs.
type Confirmation struct {
	PatientName  string
	PatientEmail string
	TypeName     string
	Date         string
	StartTime    string
	BookingID    string
	Code         string
}

// ConfirmationEmail renders the booking confirmation message for a patient.
func ConfirmationEmail(c Confirmation) EmailMessage {
	return EmailMessage{
		To:      c.PatientEmail,
		ToName:  c.PatientName,
		Subject: fmt.Sprintf("Appointment confirmed: %s on %s", c.TypeName, c.Date),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour %s is confirmed for %s at %s.\n\nBooking ID: %s\nConfirmation code: %s\n\nReply to this email if you need to make changes.",
			c.PatientName, c.TypeName, c.Date, c.StartTime, c.BookingID, c.Code),
	}
}

// SendGridSender sends emails via the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds the SendGrid credentials and sender identity.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender creates a SendGrid email sender, or nil without an API
// key so callers can fall back to the stub.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "CareWell Clinic"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send delivers the message via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", msg.Subject, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs the message instead of sending it.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates the logging-only sender.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send logs the email and reports success.
func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject)
	return nil
}
