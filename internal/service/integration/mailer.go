package integration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type Email struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

type sendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     zerolog.Logger
}

func NewSendGridMailer(apiKey, fromEmail, fromName, schoolName string, logger zerolog.Logger) Mailer {
	return &sendgridMailer{
		key:        apiKey,
		from:       sgmail.NewEmail(fromName, fromEmail),
		subjPrefix: "[" + schoolName + "] ",
		logger:     logger,
	}
}

func (m *sendgridMailer) Send(ctx context.Context, msg Email) error {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(sgmail.NewContent("text/plain", msg.Text))

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(mail)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d: %s", res.StatusCode, res.Body)
	}

	m.logger.Info().
		Str("to", msg.ToEmail).
		Str("subject", msg.Subject).
		Msg("Email sent")

	return nil
}

// logMailer writes messages to the log instead of sending them. It is used
// when no SendGrid key is configured.
type logMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) Send(_ context.Context, msg Email) error {
	m.logger.Info().
		Str("to", msg.ToEmail).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("Email not sent, mailer disabled")
	return nil
}
