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

// AdaptedImage is the result of the best-effort adaptation stage.
// When Err is set, Content holds the original bytes unchanged.
type AdaptedImage struct {
	Content  []byte
	Ext      string
	Geometry entity.ImageGeometry
	Adapted  bool
	Err      error
}

// PublishJobVacancy runs a job vacancy through quota check, image adaptation,
// transient storage and every image destination.
func (o *PublishOrchestrator) PublishJobVacancy(ctx context.Context, ev entity.JobVacancy) *entity.PublishReport {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "PublishOrchestrator.PublishJobVacancy")
	defer span.End()

	report := entity.NewPublishReport(entity.EventTypeJobVacancy)
	log := o.logger.With(
		zap.String("event_type", string(entity.EventTypeJobVacancy)),
		zap.String("source", ev.Source),
	)

	if err := validateJobVacancy(ev); err != nil {
		log.Debug("job vacancy dropped", zap.Error(err))
		report.Drop(err.Error())
		return report
	}

	if len(o.deps.ImagePublishers) == 0 {
		log.Warn("no image destination configured, dropping job vacancy")
		report.Drop("no image destination configured")
		return report
	}

	candidates, quotaErr := o.checkQuota(ctx, report, log)
	if len(candidates) == 0 {
		log.Warn("no destination left after quota check", zap.Error(quotaErr))
		report.Drop(quotaErr.Error())
		return report
	}

	img := o.adaptImage(ctx, ev.Image, log)
	report.Adapted = img.Adapted

	var (
		imageURL string
		storeErr error
	)
	if o.needsPublicURL(candidates) {
		imageURL, storeErr = o.storeImage(ctx, img, log)
		report.ImageURL = imageURL
	}

	attempted := 0
	for _, pub := range candidates {
		d := pub.Destination()
		dlog := log.With(zap.String("destination", string(d)))

		if pub.RequiresPublicURL() && imageURL == "" {
			err := fmt.Errorf("%w: no public image url", entity.ErrStorage)
			if storeErr != nil {
				err = storeErr
			}
			dlog.Warn("skipping destination without public image url", zap.Error(err))
			report.Failed(d, err)
			metrics.PublishTotal.WithLabelValues(string(d), string(entity.PublishFailed)).Inc()
			continue
		}

		if attempted > 0 {
			o.pause(ctx, o.cfg.ImageDelay, dlog)
		}
		attempted++

		ref := port.ImageRef{Content: img.Content, URL: imageURL, Ext: img.Ext}
		o.publishImage(ctx, pub, ref, BuildCaption(d, ev.Extracted), report, dlog)
	}

	span.SetAttributes(
		attribute.Int("outcomes.succeeded", report.CountByStatus(entity.PublishSucceeded)),
		attribute.Int("outcomes.failed", report.CountByStatus(entity.PublishFailed)),
	)
	return report
}

func validateJobVacancy(ev entity.JobVacancy) error {
	switch {
	case ev.Eligible():
		return nil
	case !ev.Extracted.IsJobVacancy:
		return fmt.Errorf("%w: not a job vacancy", entity.ErrValidation)
	default:
		return fmt.Errorf("%w: no image in payload", entity.ErrValidation)
	}
}

// checkQuota returns the destinations still allowed to post today.
// Exhausted destinations are skipped; unreadable counters fail that destination.
// The error names why destinations were removed: ErrQuotaExceeded,
// ErrQuotaUnavailable, or both.
func (o *PublishOrchestrator) checkQuota(ctx context.Context, report *entity.PublishReport, log *zap.Logger) ([]port.ImagePublisher, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "quota_check")
	defer span.End()
	defer observeStage("quota_check", time.Now())

	var exhausted, unreadable bool
	allowed := make([]port.ImagePublisher, 0, len(o.deps.ImagePublishers))
	for _, pub := range o.deps.ImagePublishers {
		d := pub.Destination()
		ns := o.namespace(d)

		ok, err := o.deps.Limiter.CanPostToday(ctx, ns)
		switch {
		case err != nil:
			log.Error("quota check failed",
				zap.String("destination", string(d)),
				zap.String("namespace", ns),
				zap.Error(err),
			)
			unreadable = true
			report.Failed(d, fmt.Errorf("%w: %w", entity.ErrQuotaUnavailable, err))
			metrics.PublishTotal.WithLabelValues(string(d), string(entity.PublishFailed)).Inc()
		case !ok:
			log.Warn("daily post limit reached",
				zap.String("destination", string(d)),
				zap.String("namespace", ns),
				zap.Int64("limit", o.deps.Limiter.DailyLimit()),
			)
			exhausted = true
			report.Skipped(d, entity.ErrQuotaExceeded.Error())
			metrics.PublishTotal.WithLabelValues(string(d), string(entity.PublishSkipped)).Inc()
		default:
			allowed = append(allowed, pub)
		}
	}

	switch {
	case exhausted && unreadable:
		return allowed, fmt.Errorf("%w; %w", entity.ErrQuotaExceeded, entity.ErrQuotaUnavailable)
	case unreadable:
		return allowed, entity.ErrQuotaUnavailable
	case exhausted:
		return allowed, entity.ErrQuotaExceeded
	}
	return allowed, nil
}

// adaptImage reshapes the image when its aspect ratio is outside the feed contract.
// Failures fall back to the original content.
func (o *PublishOrchestrator) adaptImage(ctx context.Context, content []byte, log *zap.Logger) AdaptedImage {
	tracer := otel.Tracer("usecase")
	_, span := tracer.Start(ctx, "adapt_image")
	defer observeStage("adapt_image", time.Now())

	original := AdaptedImage{Content: content, Ext: "jpg"}
	if o.deps.Adapter == nil {
		span.End()
		return original
	}

	geom, err := o.deps.Adapter.Inspect(content)
	if err != nil {
		original.Err = fmt.Errorf("%w: %w", entity.ErrAdaptation, err)
		log.Warn("image inspection failed, using original", zap.Error(original.Err))
		metrics.ImageAdaptationsTotal.WithLabelValues("failed").Inc()
		endSpan(span, original.Err)
		return original
	}
	original.Geometry = geom
	original.Ext = extensionFor(geom.Format)

	span.SetAttributes(
		attribute.Int("image.width", geom.Width),
		attribute.Int("image.height", geom.Height),
		attribute.Float64("image.aspect_ratio", geom.AspectRatio),
	)

	if geom.Valid() {
		log.Debug("image geometry already valid",
			zap.Int("width", geom.Width),
			zap.Int("height", geom.Height),
			zap.Float64("aspect_ratio", geom.AspectRatio),
		)
		metrics.ImageAdaptationsTotal.WithLabelValues("not_needed").Inc()
		span.End()
		return original
	}

	out, err := o.deps.Adapter.Normalize(content, o.cfg.FitMode, o.cfg.Quality)
	if err != nil {
		original.Err = fmt.Errorf("%w: %w", entity.ErrAdaptation, err)
		log.Warn("image normalization failed, using original", zap.Error(original.Err))
		metrics.ImageAdaptationsTotal.WithLabelValues("failed").Inc()
		endSpan(span, original.Err)
		return original
	}

	adapted := AdaptedImage{Content: out, Ext: "jpg", Geometry: geom, Adapted: true}
	if g, err := o.deps.Adapter.Inspect(out); err == nil {
		adapted.Geometry = g
	}

	log.Info("image adapted",
		zap.Float64("aspect_ratio", geom.AspectRatio),
		zap.Int("width", adapted.Geometry.Width),
		zap.Int("height", adapted.Geometry.Height),
		zap.String("fit_mode", string(o.cfg.FitMode)),
	)
	metrics.ImageAdaptationsTotal.WithLabelValues("adapted").Inc()
	span.End()
	return adapted
}

func (o *PublishOrchestrator) needsPublicURL(pubs []port.ImagePublisher) bool {
	for _, p := range pubs {
		if p.RequiresPublicURL() {
			return true
		}
	}
	return false
}

func (o *PublishOrchestrator) storeImage(ctx context.Context, img AdaptedImage, log *zap.Logger) (string, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "store_image")
	defer observeStage("store_image", time.Now())

	if o.deps.Store == nil {
		err := fmt.Errorf("%w: transient store not configured", entity.ErrStorage)
		endSpan(span, err)
		return "", err
	}

	url, err := o.deps.Store.Put(ctx, img.Content, o.cfg.ImageFolder, img.Ext)
	if err != nil {
		err = fmt.Errorf("%w: %w", entity.ErrStorage, err)
		log.Error("transient image upload failed", zap.Error(err))
		endSpan(span, err)
		return "", err
	}

	log.Info("transient image upload success", zap.String("url", url))
	span.End()
	return url, nil
}

func (o *PublishOrchestrator) publishImage(
	ctx context.Context,
	pub port.ImagePublisher,
	ref port.ImageRef,
	caption string,
	report *entity.PublishReport,
	log *zap.Logger,
) {
	d := pub.Destination()
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "publish."+string(d))
	span.SetAttributes(destinationAttr(d))
	defer observeStage("publish_image", time.Now())

	log.Info("publishing image")
	postID, err := pub.PublishImage(ctx, ref, caption)
	err = confirmPostID(postID, err)
	recordOutcome(report, d, postID, err)
	if err != nil {
		log.Error("image publish failed", zap.Error(err))
		endSpan(span, err)
		return
	}
	span.End()

	log.Info("image publish success", zap.String("post_id", postID))

	ns := o.namespace(d)
	count, err := o.deps.Limiter.IncrementDailyPost(ctx, ns)
	if err != nil {
		log.Error("failed to record daily post", zap.String("namespace", ns), zap.Error(err))
		report.Annotate(d, "quota not recorded: "+err.Error())
		return
	}
	log.Debug("daily post recorded", zap.String("namespace", ns), zap.Int64("count", count))
}

func extensionFor(format string) string {
	switch format {
	case "png", "gif", "webp", "bmp", "tiff":
		return format
	default:
		return "jpg"
	}
}
