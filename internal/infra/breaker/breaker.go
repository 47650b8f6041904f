// Package breaker wraps destination publishers with a circuit breaker so a
// failing platform is skipped instead of called on every event.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type Settings struct {
	ConsecutiveFailures uint32
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
}

func newCircuitBreaker(d entity.Destination, s Settings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 3
	}
	maxRequests := s.MaxRequests
	if maxRequests == 0 {
		maxRequests = 1
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	metrics.BreakerState.WithLabelValues(string(d)).Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(d),
		MaxRequests: maxRequests,
		Interval:    s.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("circuit breaker state changed",
				zap.String("destination", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func execute(cb *gobreaker.CircuitBreaker, fn func() (string, error)) (string, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %s circuit %v", entity.ErrDestinationUnavailable, cb.Name(), err)
	}
	if err != nil {
		return "", err
	}
	id, _ := res.(string)
	return id, nil
}

// ImagePublisher guards an image destination.
type ImagePublisher struct {
	next port.ImagePublisher
	cb   *gobreaker.CircuitBreaker
}

func WrapImage(next port.ImagePublisher, s Settings, logger *zap.Logger) *ImagePublisher {
	return &ImagePublisher{next: next, cb: newCircuitBreaker(next.Destination(), s, logger)}
}

func (p *ImagePublisher) Destination() entity.Destination { return p.next.Destination() }
func (p *ImagePublisher) RequiresPublicURL() bool         { return p.next.RequiresPublicURL() }

func (p *ImagePublisher) PublishImage(ctx context.Context, ref port.ImageRef, caption string) (string, error) {
	return execute(p.cb, func() (string, error) {
		return p.next.PublishImage(ctx, ref, caption)
	})
}

// VideoPublisher guards a video destination.
type VideoPublisher struct {
	next port.VideoPublisher
	cb   *gobreaker.CircuitBreaker
}

func WrapVideo(next port.VideoPublisher, s Settings, logger *zap.Logger) *VideoPublisher {
	return &VideoPublisher{next: next, cb: newCircuitBreaker(next.Destination(), s, logger)}
}

func (p *VideoPublisher) Destination() entity.Destination { return p.next.Destination() }

func (p *VideoPublisher) PublishVideo(ctx context.Context, videoURL, caption, title string) (string, error) {
	return execute(p.cb, func() (string, error) {
		return p.next.PublishVideo(ctx, videoURL, caption, title)
	})
}
