package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"finitefield.org/storefront/internal/order"
)

const publishTimeout = 3 * time.Second

// channel is the subset of *amqp.Channel used by Publisher.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends OrderSubmitted events to a topic exchange.
type Publisher struct {
	conn       *amqp.Connection
	ch         channel
	exchange   string
	routingKey string
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange, routingKey string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	p, err := newPublisher(ch, exchange, routingKey)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("events: declare %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

// Notify implements order.Notifier.
func (p *Publisher) Notify(ctx context.Context, sub order.Submission) error {
	body, err := json.Marshal(BuildOrderSubmitted(sub))
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", OrderSubmittedEventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    sub.Reference,
			Timestamp:    sub.CreatedAt,
			Type:         OrderSubmittedEventName,
			Body:         body,
		},
	)
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
