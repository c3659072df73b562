package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// DemoTransport logs the would-be message and reports success without
// sending. It fills the chain when no real adapter is configured.
type DemoTransport struct {
	channel Channel
	log     zerolog.Logger
}

// NewDemoTransport creates a demo transport for the given channel.
func NewDemoTransport(channel Channel, log zerolog.Logger) *DemoTransport {
	return &DemoTransport{channel: channel, log: log}
}

func (t *DemoTransport) Name() string { return "demo-" + string(t.channel) }

func (t *DemoTransport) Channel() Channel { return t.channel }

func (t *DemoTransport) Send(_ context.Context, msg *Message) error {
	t.log.Info().
		Str("transport", t.Name()).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("demo transport: message logged, not sent")
	return nil
}
