package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/shopworks/be-repair-core/internal/repository"
)

// EventPublisher publishes job and order lifecycle events to NATS for
// downstream consumers (reporting, webhooks, customer portals).
//
// Subject convention: shop.<entity>.<event_type>
// Event types: created, updated, status_changed, deleted
//
// All publish operations are non-fatal — errors are logged but never
// propagated to the caller, so event-stream failures never interrupt
// lifecycle operations. A nil-connection publisher is valid and drops
// everything silently.
type EventPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// JobEvent is the JSON schema published for job lifecycle events.
type JobEvent struct {
	EventType  string    `json:"event_type"`
	BusinessID int64     `json:"business_id"`
	JobID      int64     `json:"job_id"`
	JobCode    string    `json:"job_code"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderEvent is the JSON schema published for order lifecycle events.
type OrderEvent struct {
	EventType   string    `json:"event_type"`
	BusinessID  int64     `json:"business_id"`
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEventPublisher connects to the given NATS URL. An empty URL returns a
// publisher that drops all events, for deployments without a broker.
func NewEventPublisher(url string, log zerolog.Logger) (*EventPublisher, error) {
	if url == "" {
		return &EventPublisher{log: log}, nil
	}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &EventPublisher{conn: conn, log: log}, nil
}

// PublishJobEvent publishes a job lifecycle event.
// Subject: shop.job.<eventType>
func (p *EventPublisher) PublishJobEvent(ctx context.Context, eventType string, job *repository.Job) {
	if p == nil || p.conn == nil || job == nil {
		return
	}
	event := &JobEvent{
		EventType:  eventType,
		BusinessID: job.BusinessID,
		JobID:      job.ID,
		JobCode:    job.JobCode,
		Status:     job.Status,
		OccurredAt: time.Now().UTC(),
	}
	p.publish(fmt.Sprintf("shop.job.%s", eventType), job.JobCode, event)
}

// PublishOrderEvent publishes an order lifecycle event.
// Subject: shop.order.<eventType>
func (p *EventPublisher) PublishOrderEvent(ctx context.Context, eventType string, order *repository.Order) {
	if p == nil || p.conn == nil || order == nil {
		return
	}
	event := &OrderEvent{
		EventType:   eventType,
		BusinessID:  order.BusinessID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		OccurredAt:  time.Now().UTC(),
	}
	p.publish(fmt.Sprintf("shop.order.%s", eventType), order.OrderNumber, event)
}

func (p *EventPublisher) publish(subject, ref string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("subject", subject).Msg("event: failed to marshal")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("ref", ref).
			Msg("event: failed to publish NATS event (non-fatal)")
		return
	}
	p.log.Debug().
		Str("subject", subject).
		Str("ref", ref).
		Msg("event: published")
}

// Close drains the connection. Safe on a broker-less publisher.
func (p *EventPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.log.Warn().Err(err).Msg("event: NATS drain failed")
	}
}
