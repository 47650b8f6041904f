package usecase

import (
	"context"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EventPublisher runs the per-variant publish pipelines.
type EventPublisher interface {
	PublishJobVacancy(ctx context.Context, ev entity.JobVacancy) *entity.PublishReport
	PublishVideo(ctx context.Context, ev entity.VideoReady) *entity.PublishReport
}

// EventDispatcher decodes channel messages and routes them to the pipeline.
type EventDispatcher struct {
	publisher EventPublisher
	dlq       port.DLQPublisher
	logger    *zap.Logger
}

// NewEventDispatcher builds a dispatcher. dlq may be nil.
func NewEventDispatcher(publisher EventPublisher, dlq port.DLQPublisher, logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{publisher: publisher, dlq: dlq, logger: logger}
}

// Handle processes one raw message to completion. Per-event failures are
// logged and never returned, so transports do not redeliver.
func (d *EventDispatcher) Handle(ctx context.Context, raw []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "EventDispatcher.Handle")
	defer span.End()

	env, err := entity.DecodeEnvelope(raw)
	if err != nil {
		d.logger.Warn("dropping malformed envelope", zap.Error(err), zap.Int("size", len(raw)))
		metrics.EventsTotal.WithLabelValues("malformed", string(entity.StateDropped)).Inc()
		d.deadLetter(ctx, raw, err.Error())
		return nil
	}

	span.SetAttributes(attribute.String("event.type", string(env.EventType())))

	var report *entity.PublishReport
	switch ev := env.(type) {
	case entity.JobVacancy:
		report = d.publisher.PublishJobVacancy(ctx, ev)
	case entity.VideoReady:
		report = d.publisher.PublishVideo(ctx, ev)
	case entity.UnknownEvent:
		d.logger.Debug("ignoring unknown event type", zap.String("type", ev.Type))
		metrics.EventsTotal.WithLabelValues("unknown", "ignored").Inc()
		return nil
	}

	d.logReport(report)
	return nil
}

func (d *EventDispatcher) deadLetter(ctx context.Context, raw []byte, reason string) {
	if d.dlq == nil {
		return
	}
	if err := d.dlq.PublishToDLQ(ctx, raw, reason); err != nil {
		d.logger.Error("failed to dead-letter message", zap.Error(err))
		return
	}
	metrics.DeadLetteredTotal.Inc()
}

func (d *EventDispatcher) logReport(r *entity.PublishReport) {
	if r == nil {
		return
	}
	metrics.EventsTotal.WithLabelValues(string(r.EventType), string(r.State)).Inc()

	fields := []zap.Field{
		zap.String("event_type", string(r.EventType)),
		zap.String("state", string(r.State)),
		zap.Int("succeeded", r.CountByStatus(entity.PublishSucceeded)),
		zap.Int("skipped", r.CountByStatus(entity.PublishSkipped)),
		zap.Int("failed", r.CountByStatus(entity.PublishFailed)),
		zap.Any("outcomes", r.Outcomes),
	}
	if r.DropReason != "" {
		fields = append(fields, zap.String("drop_reason", r.DropReason))
	}
	if r.CleanupErr != "" {
		fields = append(fields, zap.String("cleanup_error", r.CleanupErr))
	}

	switch {
	case r.State == entity.StateDropped:
		d.logger.Info("event dropped", fields...)
	case r.CountByStatus(entity.PublishFailed) > 0:
		d.logger.Warn("event processed with failures", fields...)
	default:
		d.logger.Info("event processed", fields...)
	}
}
