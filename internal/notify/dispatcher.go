package notify

import (
	"context"

	"github.com/shopworks/be-repair-core/internal/config"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/metrics"
	"github.com/shopworks/be-repair-core/internal/repository"
)

// HistoryStore records every outbound email, delivered or not.
type HistoryStore interface {
	Append(ctx context.Context, rec *repository.EmailHistoryRecord) error
}

// Recipient identifies who a notification goes to. Email sends use Email,
// SMS sends use Phone.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Dispatcher tries a static fallback chain of transports per channel until
// one reports success. It never returns an error to the caller; an
// all-transports-failed send is reported as false and must not be treated as
// fatal by the triggering mutation.
type Dispatcher struct {
	email   []Transport
	sms     []Transport
	history HistoryStore

	fromAddress string
	fromName    string
	log         *logger.Logger
}

// BuildTransports builds the per-channel fallback chains once from
// configuration. The first adapter whose credentials are present takes the
// primary slot; remaining configured adapters follow. With no real adapter
// configured, a demo adapter is used that logs and reports success.
func BuildTransports(cfg *config.Config, log *logger.Logger) (email, sms []Transport) {
	if cfg.SendGrid.APIKey != "" {
		email = append(email, NewSendGridTransport(cfg.SendGrid.APIKey))
	}
	if cfg.SMTP.Host != "" {
		email = append(email, NewSMTPTransport(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password))
	}
	if len(email) == 0 {
		email = append(email, NewDemoTransport(ChannelEmail, log.Logger))
	}

	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		sms = append(sms, NewTwilioTransport(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber))
	}
	if len(sms) == 0 {
		sms = append(sms, NewDemoTransport(ChannelSMS, log.Logger))
	}
	return email, sms
}

// NewDispatcher creates a dispatcher over pre-built transport chains.
func NewDispatcher(email, sms []Transport, history HistoryStore, fromAddress, fromName string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		email:       email,
		sms:         sms,
		history:     history,
		fromAddress: fromAddress,
		fromName:    fromName,
		log:         log,
	}
}

// Send renders the notification once and attempts email delivery through the
// chain. Returns whether any transport delivered.
func (d *Dispatcher) Send(ctx context.Context, kind Kind, rcpt Recipient, data TemplateData) bool {
	if rcpt.Email == "" {
		return false
	}
	content := Render(kind, data)
	msg := &Message{
		From:     d.fromAddress,
		FromName: d.fromName,
		To:       rcpt.Email,
		Subject:  content.Subject,
		Text:     content.Text,
		HTML:     content.HTML,
	}

	delivered := d.attempt(ctx, kind, d.email, msg)
	d.recordEmail(ctx, kind, rcpt.Email, content, delivered, data)
	if delivered {
		metrics.NotificationsDelivered.WithLabelValues(string(kind)).Inc()
	}
	return delivered
}

// SendSMS renders the notification and attempts SMS delivery through the
// chain. SMS sends are not written to the email history.
func (d *Dispatcher) SendSMS(ctx context.Context, kind Kind, rcpt Recipient, data TemplateData) bool {
	if rcpt.Phone == "" {
		return false
	}
	content := Render(kind, data)
	msg := &Message{
		From:    d.fromAddress,
		To:      rcpt.Phone,
		Subject: content.Subject,
		Text:    content.Text,
	}

	delivered := d.attempt(ctx, kind, d.sms, msg)
	if delivered {
		metrics.NotificationsDelivered.WithLabelValues(string(kind)).Inc()
	}
	return delivered
}

// SendPreferred attempts every channel requested by the stored preference
// independently. The notification counts as delivered if any requested
// channel succeeds.
func (d *Dispatcher) SendPreferred(ctx context.Context, kind Kind, pref Channel, rcpt Recipient, data TemplateData) bool {
	delivered := false
	if pref == ChannelEmail || pref == ChannelBoth {
		if d.Send(ctx, kind, rcpt, data) {
			delivered = true
		}
	}
	if pref == ChannelSMS || pref == ChannelBoth {
		if d.SendSMS(ctx, kind, rcpt, data) {
			delivered = true
		}
	}
	return delivered
}

// attempt walks the chain in order; the first successful adapter stops it.
// A single attempt per transport, no retry or backoff.
func (d *Dispatcher) attempt(ctx context.Context, kind Kind, chain []Transport, msg *Message) bool {
	for _, transport := range chain {
		err := transport.Send(ctx, msg)
		if err == nil {
			metrics.NotificationAttempts.WithLabelValues(string(kind), transport.Name(), "success").Inc()
			d.log.Debug().
				Str("kind", string(kind)).
				Str("transport", transport.Name()).
				Str("to", msg.To).
				Msg("notification delivered")
			return true
		}
		metrics.NotificationAttempts.WithLabelValues(string(kind), transport.Name(), "failure").Inc()
		d.log.Warn().Err(err).
			Str("kind", string(kind)).
			Str("transport", transport.Name()).
			Str("to", msg.To).
			Msg("notification transport failed, trying next")
	}
	return false
}

// recordEmail appends an email history record. Failures are logged and
// swallowed so history gaps never affect the send outcome.
func (d *Dispatcher) recordEmail(ctx context.Context, kind Kind, to string, content Content, delivered bool, data TemplateData) {
	if d.history == nil {
		return
	}
	rec := &repository.EmailHistoryRecord{
		Recipient: to,
		Subject:   content.Subject,
		Body:      content.Text,
		Kind:      string(kind),
		Sender:    d.fromAddress,
		Delivered: delivered,
	}
	rec.BusinessID, rec.EntityType, rec.EntityID = entityRef(data)

	if err := d.history.Append(ctx, rec); err != nil {
		d.log.Warn().Err(err).
			Str("kind", string(kind)).
			Str("to", to).
			Msg("failed to append email history record")
	}
}

func entityRef(data TemplateData) (businessID int64, entityType *string, entityID *int64) {
	ref := func(t string, id, bid int64) (int64, *string, *int64) {
		return bid, &t, &id
	}
	switch {
	case data.Job != nil:
		return ref("job", data.Job.ID, data.Job.BusinessID)
	case data.Order != nil:
		return ref("order", data.Order.ID, data.Order.BusinessID)
	case data.Part != nil:
		return ref("part_order", data.Part.ID, data.Part.BusinessID)
	case data.Business != nil:
		return data.Business.ID, nil, nil
	}
	return 0, nil, nil
}
