// Package notify renders and delivers customer notifications through a
// configured chain of transport adapters.
package notify

import "context"

// Channel is the delivery channel of a transport or a stored preference.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelBoth  Channel = "both"
)

// ValidChannel reports whether s is a storable channel preference.
func ValidChannel(s string) bool {
	switch Channel(s) {
	case ChannelEmail, ChannelSMS, ChannelBoth:
		return true
	}
	return false
}

// Message is one outbound message handed to a transport. SMS transports use
// only To and Text.
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	Text     string
	HTML     string
}

// Transport wraps one outbound channel behind a uniform send call. Adapter
// availability is determined by presence of its required credentials at
// construction time.
type Transport interface {
	Name() string
	Channel() Channel
	Send(ctx context.Context, msg *Message) error
}
