package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PublishVideo publishes a ready video to every video destination and always
// removes the transient copy afterwards.
func (o *PublishOrchestrator) PublishVideo(ctx context.Context, ev entity.VideoReady) *entity.PublishReport {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "PublishOrchestrator.PublishVideo")
	defer span.End()

	report := entity.NewPublishReport(entity.EventTypeVideoReady)
	log := o.logger.With(
		zap.String("event_type", string(entity.EventTypeVideoReady)),
		zap.String("source", ev.Source),
		zap.String("video_url", ev.VideoPath),
	)

	if ev.VideoPath == "" {
		log.Warn("video ready but no path provided")
		report.Drop(fmt.Errorf("%w: empty video path", entity.ErrValidation).Error())
		return report
	}

	span.SetAttributes(attribute.String("video.url", ev.VideoPath))

	defer o.cleanupVideo(ctx, ev.VideoPath, report, log)

	for i, pub := range o.deps.VideoPublishers {
		if i > 0 {
			o.pause(ctx, o.cfg.VideoDelay, log)
		}
		o.publishVideo(ctx, pub, ev.VideoPath, report, log.With(zap.String("destination", string(pub.Destination()))))
	}

	return report
}

func (o *PublishOrchestrator) publishVideo(
	ctx context.Context,
	pub port.VideoPublisher,
	videoURL string,
	report *entity.PublishReport,
	log *zap.Logger,
) {
	d := pub.Destination()
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "publish."+string(d))
	span.SetAttributes(destinationAttr(d))
	defer observeStage("publish_video", time.Now())

	log.Info("publishing video")
	postID, err := pub.PublishVideo(ctx, videoURL, VideoCaption, VideoTitle)
	err = confirmPostID(postID, err)
	recordOutcome(report, d, postID, err)
	if err != nil {
		log.Error("video publish failed", zap.Error(err))
		endSpan(span, err)
		return
	}
	span.End()
	log.Info("video publish success", zap.String("post_id", postID))
}

func (o *PublishOrchestrator) cleanupVideo(ctx context.Context, videoURL string, report *entity.PublishReport, log *zap.Logger) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "cleanup_video")
	defer observeStage("cleanup_video", time.Now())

	if o.deps.Store == nil {
		span.End()
		return
	}

	log.Info("cleaning up transient video")
	if err := o.deps.Store.Delete(ctx, videoURL); err != nil {
		err = fmt.Errorf("%w: %w", entity.ErrCleanup, err)
		report.CleanupErr = err.Error()
		metrics.CleanupFailuresTotal.Inc()
		log.Error("video cleanup failed", zap.Error(err))
		endSpan(span, err)
		return
	}
	span.End()
	log.Info("video cleanup complete")
}
