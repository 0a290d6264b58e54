// Package mailer delivers plain-text notification mail.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// DefaultHost is the SendGrid API host.
const DefaultHost = "https://api.sendgrid.com"

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendGrid delivers through the SendGrid v3 mail API.
type SendGrid struct {
	APIKey string
	Sender string
	Host   string
}

func NewSendGrid(apiKey, sender string) *SendGrid {
	return &SendGrid{APIKey: apiKey, Sender: sender, Host: DefaultHost}
}

func (s *SendGrid) Send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail("", s.Sender),
		subject,
		mail.NewEmail("", to),
		body,
		"",
	)

	host := s.Host
	if host == "" {
		host = DefaultHost
	}
	req := sendgrid.GetRequest(s.APIKey, "/v3/mail/send", host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Console writes messages to the log instead of delivering them.
type Console struct {
	Logger *zap.Logger
}

func (c Console) Send(_ context.Context, to, subject, body string) error {
	c.Logger.Info("mail not delivered, printing instead",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// Fallback tries Primary and falls back to the console sink on failure.
// Send never returns an error.
type Fallback struct {
	Primary Mailer
	Console Console
}

// New picks SendGrid when an API key is configured and the console
// otherwise. Either way failures end up on the console.
func New(apiKey, sender string, logger *zap.Logger) Mailer {
	console := Console{Logger: logger}
	if apiKey == "" {
		return console
	}
	return &Fallback{Primary: NewSendGrid(apiKey, sender), Console: console}
}

func (f *Fallback) Send(ctx context.Context, to, subject, body string) error {
	if f.Primary != nil {
		err := f.Primary.Send(ctx, to, subject, body)
		if err == nil {
			return nil
		}
		f.Console.Logger.Warn("mail delivery failed", zap.String("to", to), zap.Error(err))
	}
	return f.Console.Send(ctx, to, subject, body)
}

// VerificationBody is the text of the account verification mail.
func VerificationBody(name, email, link, token string) string {
	greeting := name
	if greeting == "" {
		greeting = email
	}
	return fmt.Sprintf(`Hello %s,

Please verify your email address by opening the link below:

%s

If the link does not work, use this token: %s

If you did not register, ignore this message.
`, greeting, link, token)
}
