// Package amqp publishes and consumes ledger change events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// BindAll matches every routing key on a topic exchange
const BindAll = "#"

// Client owns one connection and one channel. Publish and Consume may be
// used from different goroutines, but not Consume twice.
type Client struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string
	queue    string
}

// NewClient connects and declares the durable topic exchange. When queue is
// set a durable queue bound to every event is declared too, so events
// published while no consumer runs are kept.
func NewClient(url, exchange, queue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{conn: conn, ch: ch, exchange: exchange, queue: queue}
	if err := c.declare(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) declare() error {
	const durable, autoDelete, internal, exclusive, noWait = true, false, false, false, false

	if err := c.ch.ExchangeDeclare(c.exchange, amqp091.ExchangeTopic, durable, autoDelete, internal, noWait, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	if c.queue == "" {
		return nil
	}
	if _, err := c.ch.QueueDeclare(c.queue, durable, autoDelete, exclusive, noWait, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	if err := c.ch.QueueBind(c.queue, BindAll, c.exchange, noWait, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.queue, err)
	}
	return nil
}

// Publish sends ev persistently under its routing key, giving up after
// publishTimeout even if ctx allows longer.
func (c *Client) Publish(ctx context.Context, ev *ChangeEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.RoutingKey(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := ev.RoutingKey()
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    ev.Timestamp,
		Type:         key,
		Body:         body,
	}
	if err := c.ch.PublishWithContext(ctx, c.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Published change event", "routing_key", key, "id", ev.ID)
	return nil
}

// Consume hands each delivery on the client's queue to handler until ctx
// is done, then returns ctx.Err(). Bodies that do not decode are dropped;
// handler errors put the delivery back on the queue.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, *ChangeEvent) error) error {
	if c.queue == "" {
		return errors.New("consume: client has no queue")
	}

	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	slog.InfoContext(ctx, "Consuming change events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("consume: delivery channel closed")
			}
			dispatch(ctx, d.Body, d, handler)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func dispatch(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, *ChangeEvent) error) {
	ev, err := ChangeEventFromJSON(body)
	if err != nil {
		slog.WarnContext(ctx, "Dropping undecodable change event", "error", err)
		_ = ack.Nack(false, false)
		return
	}
	if err := handler(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Change event handler failed, requeueing",
			"error", err,
			"routing_key", ev.RoutingKey(),
			"id", ev.ID)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}

// Close closes the channel and then the connection.
func (c *Client) Close() error {
	var errs []error
	if c.ch != nil {
		if err := c.ch.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
