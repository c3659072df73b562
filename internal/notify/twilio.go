package notify

import (
	"context"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/shopworks/be-repair-core/internal/errors"
)

// TwilioTransport delivers SMS through the Twilio API.
type TwilioTransport struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioTransport creates a Twilio SMS transport.
func NewTwilioTransport(accountSID, authToken, fromNumber string) *TwilioTransport {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioTransport{client: client, from: fromNumber}
}

func (t *TwilioTransport) Name() string { return "twilio" }

func (t *TwilioTransport) Channel() Channel { return ChannelSMS }

func (t *TwilioTransport) Send(_ context.Context, msg *Message) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(msg.To)
	params.SetBody(msg.Text)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "twilio send failed")
	}
	return nil
}
