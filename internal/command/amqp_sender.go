package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"rescueops/internal/geo"
)

// CommandQueuePrefix is prepended to the lowercased vehicle name to form
// the per-vehicle command queue.
const CommandQueuePrefix = "commands_"

// zonePayload is the wire format of one zone command.
type zonePayload struct {
	Target      string           `json:"target"`
	CommandID   Kind             `json:"command_id"`
	Coordinates []geo.Coordinate `json:"coordinates"`
}

// AMQPSender publishes zone commands to per-vehicle command queues with
// publisher confirms, so a send only succeeds once the broker acks it.
type AMQPSender struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQPSender connects to the broker and puts the channel in confirm
// mode.
func DialAMQPSender(url string) (*AMQPSender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return &AMQPSender{conn: conn, ch: ch}, nil
}

// SendZone publishes the payload to the target's command queue, or to every
// roster queue when the target is ALL.
func (s *AMQPSender) SendZone(ctx context.Context, target string, kind Kind, coords []geo.Coordinate) error {
	body, err := json.Marshal(zonePayload{Target: target, CommandID: kind, Coordinates: coords})
	if err != nil {
		return fmt.Errorf("encode zone payload: %w", err)
	}
	queues := []string{CommandQueuePrefix + strings.ToLower(target)}
	if target == TargetAll {
		queues = []string{
			CommandQueuePrefix + "mea",
			CommandQueuePrefix + "eru",
			CommandQueuePrefix + "mra",
		}
	}
	for _, q := range queues {
		if err := s.publish(ctx, q, body); err != nil {
			return err
		}
	}
	return nil
}

func (s *AMQPSender) publish(ctx context.Context, queue string, body []byte) error {
	if _, err := s.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	confirm, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	if ok, err := confirm.WaitContext(ctx); err != nil {
		return fmt.Errorf("confirm for %s: %w", queue, err)
	} else if !ok {
		return fmt.Errorf("broker nacked publish to %s", queue)
	}
	return nil
}

// Close shuts the channel and connection down.
func (s *AMQPSender) Close() error {
	if err := s.ch.Close(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}
