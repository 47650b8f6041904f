package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, body []byte) error

// Subscriber reads one pub/sub channel and hands each message to the handler
// sequentially. Pub/sub has no acknowledgement, so delivery is at-most-once.
type Subscriber struct {
	client  *goredis.Client
	channel string
	handler MessageHandler
	logger  *zap.Logger
}

func NewSubscriber(client *goredis.Client, channel string, handler MessageHandler, logger *zap.Logger) *Subscriber {
	return &Subscriber{client: client, channel: channel, handler: handler, logger: logger}
}

// Start blocks until ctx is cancelled or the subscription is closed.
// The message being handled when ctx is cancelled runs to completion.
func (s *Subscriber) Start(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	s.logger.Info("subscribed to channel", zap.String("channel", s.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, stopping subscriber")
			return nil
		case msg, ok := <-messages:
			if !ok {
				s.logger.Info("subscription channel closed")
				return nil
			}
			s.process(ctx, msg)
		}
	}
}

func (s *Subscriber) process(ctx context.Context, msg *goredis.Message) {
	if err := s.handler(context.WithoutCancel(ctx), []byte(msg.Payload)); err != nil {
		s.logger.Warn("message handler failed", zap.String("channel", msg.Channel), zap.Error(err))
	}
}
