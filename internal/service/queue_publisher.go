package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/neighborhood-exchange/internal/config"
	"github.com/iliyamo/neighborhood-exchange/internal/logging"
	"github.com/iliyamo/neighborhood-exchange/internal/queue"
)

// EventPublisher delivers activity events.  Services treat delivery as
// best effort: a failed publish is logged and never fails the request.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// AMQPPublisher publishes events to a durable RabbitMQ queue through the
// default exchange.  Each publish dials its own connection.
type AMQPPublisher struct {
	URL   string
	Queue string
}

// NewAMQPPublisher returns nil when publishing is disabled, which services
// accept as "no publisher".
func NewAMQPPublisher(cfg config.AMQPConfig) *AMQPPublisher {
	if !cfg.Enabled {
		return nil
	}
	return &AMQPPublisher{URL: cfg.URL, Queue: cfg.Queue}
}

// Publish marshals ev and sends it as a persistent message whose routing
// key is the queue name.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    uuid.NewString(),
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.Queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	)
}

// publishAfterCommit stamps and sends ev.  The request context may already
// be near its deadline, so delivery gets its own short budget.
func publishAfterCommit(ctx context.Context, p EventPublisher, ev queue.ActivityEvent, now time.Time) {
	if p == nil {
		return
	}
	ev.Stamp(now)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := p.Publish(pctx, ev); err != nil {
		logging.Warn("activity publish failed", "type", ev.Type, "target_id", ev.TargetID, "err", err)
	}
}
