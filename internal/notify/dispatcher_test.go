package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/repository"
)

type fakeTransport struct {
	name    string
	channel Channel
	err     error
	sent    []*Message
}

func (f *fakeTransport) Name() string     { return f.name }
func (f *fakeTransport) Channel() Channel { return f.channel }

func (f *fakeTransport) Send(ctx context.Context, msg *Message) error {
	if f.err != nil {
		return f.err
	}
	cp := *msg
	f.sent = append(f.sent, &cp)
	return nil
}

type fakeHistoryStore struct {
	records   []*repository.EmailHistoryRecord
	appendErr error
}

func (f *fakeHistoryStore) Append(ctx context.Context, rec *repository.EmailHistoryRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, rec)
	return nil
}

func testDispatcher(history HistoryStore, email, sms []Transport) *Dispatcher {
	return NewDispatcher(email, sms, history, "no-reply@shop.test", "Valley Mowers", logger.Nop())
}

func jobData() TemplateData {
	return TemplateData{
		Business: &repository.Business{ID: 1, Name: "Valley Mowers"},
		Job:      &repository.Job{ID: 9, BusinessID: 1, JobCode: "J-009"},
	}
}

func TestDispatcherSend_PrimaryDelivers(t *testing.T) {
	primary := &fakeTransport{name: "sendgrid", channel: ChannelEmail}
	backup := &fakeTransport{name: "smtp", channel: ChannelEmail}
	history := &fakeHistoryStore{}
	d := testDispatcher(history, []Transport{primary, backup}, nil)

	ok := d.Send(context.Background(), KindJobBooked, Recipient{Email: "ana@example.com"}, jobData())
	require.True(t, ok)

	require.Len(t, primary.sent, 1)
	assert.Empty(t, backup.sent, "backup must not be attempted after a success")
	assert.Equal(t, "ana@example.com", primary.sent[0].To)
	assert.Equal(t, "no-reply@shop.test", primary.sent[0].From)
}

func TestDispatcherSend_FallsBackInOrder(t *testing.T) {
	primary := &fakeTransport{name: "sendgrid", channel: ChannelEmail, err: errors.New(errors.ErrCodeUnavailable, "rate limited")}
	backup := &fakeTransport{name: "smtp", channel: ChannelEmail}
	history := &fakeHistoryStore{}
	d := testDispatcher(history, []Transport{primary, backup}, nil)

	ok := d.Send(context.Background(), KindJobBooked, Recipient{Email: "ana@example.com"}, jobData())
	require.True(t, ok)
	require.Len(t, backup.sent, 1)

	require.Len(t, history.records, 1)
	assert.True(t, history.records[0].Delivered)
}

func TestDispatcherSend_AllFailReportsFalseButRecordsHistory(t *testing.T) {
	primary := &fakeTransport{name: "sendgrid", channel: ChannelEmail, err: errors.New(errors.ErrCodeUnavailable, "down")}
	backup := &fakeTransport{name: "smtp", channel: ChannelEmail, err: errors.New(errors.ErrCodeUnavailable, "down")}
	history := &fakeHistoryStore{}
	d := testDispatcher(history, []Transport{primary, backup}, nil)

	ok := d.Send(context.Background(), KindJobReady, Recipient{Email: "ana@example.com"}, jobData())
	assert.False(t, ok)

	// The attempt is recorded either way, with the delivered flag down.
	require.Len(t, history.records, 1)
	rec := history.records[0]
	assert.False(t, rec.Delivered)
	assert.Equal(t, "ana@example.com", rec.Recipient)
	assert.Equal(t, string(KindJobReady), rec.Kind)
	assert.Equal(t, int64(1), rec.BusinessID)
	require.NotNil(t, rec.EntityType)
	assert.Equal(t, "job", *rec.EntityType)
	require.NotNil(t, rec.EntityID)
	assert.Equal(t, int64(9), *rec.EntityID)
}

func TestDispatcherSend_NoEmailAddress(t *testing.T) {
	primary := &fakeTransport{name: "sendgrid", channel: ChannelEmail}
	history := &fakeHistoryStore{}
	d := testDispatcher(history, []Transport{primary}, nil)

	ok := d.Send(context.Background(), KindJobBooked, Recipient{}, jobData())
	assert.False(t, ok)
	assert.Empty(t, primary.sent)
	assert.Empty(t, history.records)
}

func TestDispatcherSend_HistoryFailureDoesNotAffectOutcome(t *testing.T) {
	primary := &fakeTransport{name: "sendgrid", channel: ChannelEmail}
	history := &fakeHistoryStore{appendErr: errors.New(errors.ErrCodeUnavailable, "db down")}
	d := testDispatcher(history, []Transport{primary}, nil)

	ok := d.Send(context.Background(), KindJobBooked, Recipient{Email: "ana@example.com"}, jobData())
	assert.True(t, ok)
}

func TestDispatcherSendSMS_UsesPhoneAndSkipsHistory(t *testing.T) {
	sms := &fakeTransport{name: "twilio", channel: ChannelSMS}
	history := &fakeHistoryStore{}
	d := testDispatcher(history, nil, []Transport{sms})

	ok := d.SendSMS(context.Background(), KindOrderArrived, Recipient{Phone: "+15550100"}, jobData())
	require.True(t, ok)
	require.Len(t, sms.sent, 1)
	assert.Equal(t, "+15550100", sms.sent[0].To)
	assert.Empty(t, history.records)
}

func TestDispatcherSendPreferred(t *testing.T) {
	newFixture := func(emailErr, smsErr error) (*Dispatcher, *fakeTransport, *fakeTransport) {
		email := &fakeTransport{name: "smtp", channel: ChannelEmail, err: emailErr}
		sms := &fakeTransport{name: "twilio", channel: ChannelSMS, err: smsErr}
		return testDispatcher(&fakeHistoryStore{}, []Transport{email}, []Transport{sms}), email, sms
	}
	rcpt := Recipient{Email: "ana@example.com", Phone: "+15550100"}
	down := errors.New(errors.ErrCodeUnavailable, "down")

	t.Run("email only", func(t *testing.T) {
		d, email, sms := newFixture(nil, nil)
		assert.True(t, d.SendPreferred(context.Background(), KindOrderPlaced, ChannelEmail, rcpt, jobData()))
		assert.Len(t, email.sent, 1)
		assert.Empty(t, sms.sent)
	})

	t.Run("sms only", func(t *testing.T) {
		d, email, sms := newFixture(nil, nil)
		assert.True(t, d.SendPreferred(context.Background(), KindOrderPlaced, ChannelSMS, rcpt, jobData()))
		assert.Empty(t, email.sent)
		assert.Len(t, sms.sent, 1)
	})

	t.Run("both attempts both channels", func(t *testing.T) {
		d, email, sms := newFixture(nil, nil)
		assert.True(t, d.SendPreferred(context.Background(), KindOrderPlaced, ChannelBoth, rcpt, jobData()))
		assert.Len(t, email.sent, 1)
		assert.Len(t, sms.sent, 1)
	})

	t.Run("both delivered if either channel succeeds", func(t *testing.T) {
		d, _, sms := newFixture(down, nil)
		assert.True(t, d.SendPreferred(context.Background(), KindOrderPlaced, ChannelBoth, rcpt, jobData()))
		assert.Len(t, sms.sent, 1)
	})

	t.Run("both fail", func(t *testing.T) {
		d, _, _ := newFixture(down, down)
		assert.False(t, d.SendPreferred(context.Background(), KindOrderPlaced, ChannelBoth, rcpt, jobData()))
	})
}
