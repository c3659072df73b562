package notify

import (
	"context"

	gomail "gopkg.in/gomail.v2"

	"github.com/shopworks/be-repair-core/internal/errors"
)

// SMTPTransport delivers email through a plain SMTP relay.
type SMTPTransport struct {
	dialer *gomail.Dialer
}

// NewSMTPTransport creates an SMTP transport.
func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	return &SMTPTransport{dialer: gomail.NewDialer(host, port, username, password)}
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Channel() Channel { return ChannelEmail }

func (t *SMTPTransport) Send(_ context.Context, msg *Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := t.dialer.DialAndSend(m); err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "smtp send failed")
	}
	return nil
}
