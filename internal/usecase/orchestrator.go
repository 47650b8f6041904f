package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of the publishing pipeline, built once at startup.
// Publisher slices are in priority order; a nil Store disables URL-based destinations.
type Dependencies struct {
	Limiter         *QuotaLimiter
	Adapter         port.ImageAdapter
	Store           port.TransientStore
	ImagePublishers []port.ImagePublisher
	VideoPublishers []port.VideoPublisher
}

type PublishConfig struct {
	// QuotaNamespaces maps an image destination to its daily counter namespace.
	QuotaNamespaces map[entity.Destination]string
	FitMode         entity.FitMode
	Quality         int
	ImageFolder     string
	// ImageDelay and VideoDelay separate consecutive destination attempts.
	ImageDelay time.Duration
	VideoDelay time.Duration
}

// PublishOrchestrator runs one event at a time through its publish pipeline.
type PublishOrchestrator struct {
	deps   Dependencies
	cfg    PublishConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewPublishOrchestrator(deps Dependencies, cfg PublishConfig, logger *zap.Logger) *PublishOrchestrator {
	if cfg.FitMode == "" {
		cfg.FitMode = entity.FitPad
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 95
	}
	if cfg.ImageFolder == "" {
		cfg.ImageFolder = "jobs"
	}
	return &PublishOrchestrator{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
	}
}

// WithSleeper replaces the pacing sleep. Used by tests.
func (o *PublishOrchestrator) WithSleeper(fn func(ctx context.Context, d time.Duration) error) *PublishOrchestrator {
	o.sleep = fn
	return o
}

func (o *PublishOrchestrator) namespace(d entity.Destination) string {
	if ns, ok := o.cfg.QuotaNamespaces[d]; ok && ns != "" {
		return ns
	}
	return string(d) + ":daily_posts"
}

func (o *PublishOrchestrator) pause(ctx context.Context, d time.Duration, log *zap.Logger) {
	if d <= 0 {
		return
	}
	log.Debug("pacing before next destination", zap.Duration("delay", d))
	if err := o.sleep(ctx, d); err != nil {
		log.Warn("pacing interrupted", zap.Error(err))
	}
}

// confirmPostID turns a success without a platform identifier into a failure.
func confirmPostID(postID string, err error) error {
	if err == nil && postID == "" {
		return fmt.Errorf("%w: no post id returned", entity.ErrPlatformPublish)
	}
	return err
}

// recordOutcome maps a publish error onto the report and metrics.
func recordOutcome(report *entity.PublishReport, d entity.Destination, postID string, err error) {
	switch {
	case err == nil:
		report.Succeeded(d, postID)
		metrics.PublishTotal.WithLabelValues(string(d), string(entity.PublishSucceeded)).Inc()
	case errors.Is(err, entity.ErrDestinationUnavailable):
		report.Skipped(d, err.Error())
		metrics.PublishTotal.WithLabelValues(string(d), string(entity.PublishSkipped)).Inc()
	default:
		if !errors.Is(err, entity.ErrPlatformPublish) {
			err = fmt.Errorf("%w: %w", entity.ErrPlatformPublish, err)
		}
		report.Failed(d, err)
		metrics.PublishTotal.WithLabelValues(string(d), string(entity.PublishFailed)).Inc()
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func destinationAttr(d entity.Destination) attribute.KeyValue {
	return attribute.String("destination", string(d))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
