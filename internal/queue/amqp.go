package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQP consumes deliveries from RabbitMQ queues. Queues are declared
// durable and shared (non-exclusive); rejects do not requeue.
type AMQP struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQP connects to the broker and opens one channel for consuming.
func DialAMQP(url string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &AMQP{conn: conn, ch: ch}, nil
}

// Consume declares the queue and starts a consumer on it.
func (a *AMQP) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	if _, err := a.ch.QueueDeclare(queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	tag := fmt.Sprintf("consumer_%s_%d", queue, time.Now().UnixMilli())
	deliveries, err := a.ch.Consume(queue, tag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				msg := Delivery{
					Body:   d.Body,
					Ack:    func() error { return d.Ack(false) },
					Reject: func() error { return d.Reject(false) },
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the channel and connection down.
func (a *AMQP) Close() error {
	if err := a.ch.Close(); err != nil {
		a.conn.Close()
		return err
	}
	return a.conn.Close()
}
