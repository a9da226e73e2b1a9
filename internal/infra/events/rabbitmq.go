package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/outcry/outcry/internal/auction"
)

const (
	// Exchange is the topic exchange carrying auction events. Routing
	// key is the event type; the aggregate id rides as the message key
	// so consumers can partition per aggregate.
	Exchange = "auction.events"

	// DeadLetterExchange receives events that could not be decoded or
	// delivered; nothing is dropped silently.
	DeadLetterExchange = "auction.events.dlx"
)

// RabbitMQPublisher implements auction.EventPublisher on a topic
// exchange with a dead-letter fallback.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQPublisher creates a new RabbitMQ publisher
func NewRabbitMQPublisher(conn *amqp.Connection) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, exchange := range []string{Exchange, DeadLetterExchange} {
		err = ch.ExchangeDeclare(
			exchange, // name
			"topic",  // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	return &RabbitMQPublisher{
		conn:    conn,
		channel: ch,
	}, nil
}

// Close closes the channel
func (p *RabbitMQPublisher) Close() error {
	return p.channel.Close()
}

// Publish encodes and publishes one domain event. Ordering is
// guaranteed per aggregate only; the aggregate id is the message key.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event auction.DomainEvent) error {
	record, err := auction.EncodeEvent(event)
	if err != nil {
		return err
	}
	return p.PublishRecord(ctx, record)
}

// PublishRecord publishes an already-encoded stored event.
func (p *RabbitMQPublisher) PublishRecord(ctx context.Context, record auction.StoredEvent) error {
	return p.channel.PublishWithContext(ctx,
		Exchange,
		record.EventType.String(), // routing key
		false,                     // mandatory
		false,                     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   fmt.Sprintf("%s:%d", record.AggregateID, record.SequenceNumber),
			Body:        record.EventData,
			Headers: amqp.Table{
				"aggregate_id":   record.AggregateID,
				"aggregate_type": record.AggregateType,
			},
		},
	)
}

// PublishDeadLetter routes an unprocessable record to the dead-letter
// exchange with the failure reason.
func (p *RabbitMQPublisher) PublishDeadLetter(ctx context.Context, record auction.StoredEvent, reason string) error {
	return p.channel.PublishWithContext(ctx,
		DeadLetterExchange,
		record.EventType.String(),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        record.EventData,
			Headers: amqp.Table{
				"aggregate_id": record.AggregateID,
				"reason":       reason,
			},
		},
	)
}
