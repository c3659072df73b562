package notify

import (
	"context"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/shopworks/be-repair-core/internal/errors"
)

// SendGridTransport delivers email through the SendGrid API.
type SendGridTransport struct {
	client *sendgrid.Client
}

// NewSendGridTransport creates a SendGrid transport.
func NewSendGridTransport(apiKey string) *SendGridTransport {
	return &SendGridTransport{client: sendgrid.NewSendClient(apiKey)}
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

func (t *SendGridTransport) Channel() Channel { return ChannelEmail }

func (t *SendGridTransport) Send(ctx context.Context, msg *Message) error {
	from := sgmail.NewEmail(msg.FromName, msg.From)
	to := sgmail.NewEmail("", msg.To)
	email := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := t.client.SendWithContext(ctx, email)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "sendgrid send failed")
	}
	if resp.StatusCode >= 400 {
		return errors.Newf(errors.ErrCodeUnavailable, "sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
