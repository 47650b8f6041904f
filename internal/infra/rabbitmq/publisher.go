package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrNacked = errors.New("broker nacked publish")

// Publisher owns a confirm-mode channel. Publish blocks until the broker
// acknowledges the message.
type Publisher struct {
	mu      sync.Mutex
	channel *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return &Publisher{channel: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, msg)
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}

// DLQPublisher sends rejected messages straight to the dead-letter queue.
type DLQPublisher struct {
	pub         *Publisher
	queue       string
	sourceQueue string
}

func NewDLQPublisher(pub *Publisher, dlqQueue, sourceQueue string) *DLQPublisher {
	return &DLQPublisher{pub: pub, queue: dlqQueue, sourceQueue: sourceQueue}
}

func (dp *DLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	if err := dp.pub.Publish(ctx, "", dp.queue, dlqPublishing(msg, reason, dp.sourceQueue, time.Now().UTC())); err != nil {
		return fmt.Errorf("publish to dlq %s: %w", dp.queue, err)
	}
	return nil
}

func dlqPublishing(msg []byte, reason, sourceQueue string, at time.Time) amqp.Publishing {
	contentType := "application/octet-stream"
	if json.Valid(msg) {
		contentType = "application/json"
	}
	headers := amqp.Table{
		"x-dlq-reason": reason,
		"x-failed-at":  at.Format(time.RFC3339),
	}
	if sourceQueue != "" {
		headers["x-original-queue"] = sourceQueue
	}
	return amqp.Publishing{
		ContentType:  contentType,
		Body:         msg,
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		Headers:      headers,
	}
}
