package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mikepea/foodshare/pkg/foodshare/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange events are published to
const DefaultExchange = "foodshare.events"

// AMQPPublisher publishes events to a RabbitMQ topic exchange, using the
// event type as routing key. A connection or channel closed by the broker
// is re-dialled on the next Publish.
type AMQPPublisher struct {
	mu       sync.Mutex
	url      string
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials url and declares the durable topic exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	p := &AMQPPublisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect (re)opens the connection and channel; callers hold mu or own p
func (p *AMQPPublisher) connect() error {
	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: exchange declare failed: %w", err)
	}

	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) connected() bool {
	return p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed()
}

// Publish sends event as a persistent JSON message
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected() {
		logger.Warn("rabbitmq connection lost, reconnecting", "exchange", p.exchange)
		if err := p.connect(); err != nil {
			return err
		}
	}

	if err := p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) closeLocked() error {
	var chErr, connErr error
	if p.ch != nil {
		chErr = p.ch.Close()
	}
	if p.conn != nil {
		connErr = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	if chErr != nil {
		return chErr
	}
	return connErr
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}
