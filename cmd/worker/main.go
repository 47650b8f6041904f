package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/breaker"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/config"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/graph"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/imageproc"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/metrics"
	miniostorage "github.com/Nazmiassofa/SosmedUploader/internal/infra/minio"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/postgres"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/rabbitmq"
	redisinfra "github.com/Nazmiassofa/SosmedUploader/internal/infra/redis"
	s3storage "github.com/Nazmiassofa/SosmedUploader/internal/infra/s3"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/tracing"
	"github.com/Nazmiassofa/SosmedUploader/internal/usecase"
	"github.com/Nazmiassofa/SosmedUploader/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type consumer interface {
	Start(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting sosmed-uploader",
		zap.String("transport", cfg.Transport),
		zap.String("quota_backend", cfg.QuotaBackend),
		zap.String("storage_driver", cfg.StorageDriver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, tracing.Config{
		Endpoint:    cfg.OTelExporterEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     cfg.ServiceVersion,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	readiness := map[string]metrics.ReadinessCheck{}

	// Redis is shared by the pub/sub transport, the quota store and the dead-letter list.
	var rdb *goredis.Client
	if cfg.Transport == "redis" || cfg.QuotaBackend == "redis" {
		rdb, err = redisinfra.Connect(ctx, cfg.RedisURL)
		fatalOnErr(err, "connect to redis")
		defer rdb.Close()
		readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Quota store
	var quotaStore port.QuotaStore
	switch cfg.QuotaBackend {
	case "postgres":
		fatalOnErr(postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir), "run migrations")

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		fatalOnErr(err, "connect to postgres")
		defer pool.Close()
		readiness["postgres"] = pool.Ping

		pgStore := postgres.NewQuotaStore(pool)
		if n, err := pgStore.PurgeExpired(ctx); err != nil {
			log.Warn("purge expired quota failed", zap.Error(err))
		} else if n > 0 {
			log.Info("purged expired quota counters", zap.Int64("rows", n))
		}
		quotaStore = pgStore
	default:
		quotaStore = redisinfra.NewQuotaStore(rdb)
	}

	// Transient store
	transientStore := newTransientStore(ctx, cfg, log)

	// Destinations
	imagePubs, videoPubs := newPublishers(ctx, cfg, log)
	if len(imagePubs) == 0 && len(videoPubs) == 0 {
		log.Warn("no destination enabled, events will be dropped")
	}

	// Use cases
	limiter := usecase.NewQuotaLimiter(quotaStore, cfg.QuotaDailyLimit, log)
	orchestrator := usecase.NewPublishOrchestrator(
		usecase.Dependencies{
			Limiter:         limiter,
			Adapter:         imageproc.NewAdapter(entity.TargetMode(cfg.ImageTargetMode), log),
			Store:           transientStore,
			ImagePublishers: imagePubs,
			VideoPublishers: videoPubs,
		},
		usecase.PublishConfig{
			QuotaNamespaces: map[entity.Destination]string{
				entity.DestinationFacebookPhoto: cfg.QuotaNamespaceFacebook,
				entity.DestinationInstagramFeed: cfg.QuotaNamespaceInstagram,
			},
			FitMode:     entity.FitMode(cfg.ImageFitMode),
			Quality:     cfg.ImageQuality,
			ImageFolder: cfg.ImageFolder,
			ImageDelay:  cfg.PublishImageDelay,
			VideoDelay:  cfg.PublishVideoDelay,
		},
		log,
	)

	// Dead-letter sink
	var dlq port.DLQPublisher
	if cfg.DeadLetterEnabled {
		if cfg.Transport == "rabbitmq" {
			rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
			fatalOnErr(err, "connect to rabbitmq for publisher")
			defer rmqConn.Close()

			pub, err := rabbitmq.NewPublisher(rmqConn)
			fatalOnErr(err, "create rabbitmq publisher")
			defer pub.Close()
			dlq = rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ, cfg.RabbitMQQueue)
		} else {
			dlq = redisinfra.NewDeadLetterList(rdb, cfg.DeadLetterKey, cfg.DeadLetterMax)
		}
	}

	dispatcher := usecase.NewEventDispatcher(orchestrator, dlq, log)

	// Consumer (single sequential loop)
	var worker consumer
	if cfg.Transport == "rabbitmq" {
		c, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
			URL:        cfg.RabbitMQURL,
			Queue:      cfg.RabbitMQQueue,
			Exchange:   cfg.RabbitMQExchange,
			RoutingKey: cfg.RabbitMQRoutingKey,
			DLQ:        cfg.RabbitMQDLQ,
			Prefetch:   cfg.RabbitMQPrefetch,
		}, dispatcher.Handle, log)
		fatalOnErr(err, "create consumer")
		defer c.Close()
		worker = c
	} else {
		worker = redisinfra.NewSubscriber(rdb, cfg.RedisChannel, dispatcher.Handle, log)
	}

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, readiness)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("sosmed-uploader started, consuming messages",
		zap.Int("image_destinations", len(imagePubs)),
		zap.Int("video_destinations", len(videoPubs)),
	)

	if err := worker.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("sosmed-uploader stopped")
}

func newTransientStore(ctx context.Context, cfg *config.Config, log *zap.Logger) port.TransientStore {
	if cfg.StorageDriver == "s3" {
		store, err := s3storage.NewStorage(ctx, s3storage.StorageConfig{
			Endpoint:      cfg.StorageEndpoint,
			AccessKey:     cfg.StorageAccessKey,
			SecretKey:     cfg.StorageSecretKey,
			Region:        cfg.StorageRegion,
			Bucket:        cfg.StorageBucket,
			PublicBaseURL: cfg.StoragePublicBaseURL,
			PublicRead:    cfg.StoragePublicRead,
			UsePathStyle:  cfg.StoragePathStyle,
			Timeout:       cfg.StorageTimeout,
		})
		fatalOnErr(err, "create s3 storage")
		return store
	}

	store, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:      cfg.StorageEndpoint,
		AccessKey:     cfg.StorageAccessKey,
		SecretKey:     cfg.StorageSecretKey,
		UseSSL:        cfg.StorageUseSSL,
		Region:        cfg.StorageRegion,
		Bucket:        cfg.StorageBucket,
		PublicBaseURL: cfg.StoragePublicBaseURL,
		PublicRead:    cfg.StoragePublicRead,
	})
	fatalOnErr(err, "create minio storage")
	if err := store.EnsureBucket(ctx); err != nil {
		log.Warn("could not ensure bucket, uploads may fail", zap.String("bucket", cfg.StorageBucket), zap.Error(err))
	}
	return store
}

// newPublishers builds the enabled destinations in priority order. An
// account that fails its startup ping is disabled for the process lifetime.
func newPublishers(ctx context.Context, cfg *config.Config, log *zap.Logger) ([]port.ImagePublisher, []port.VideoPublisher) {
	var (
		images []port.ImagePublisher
		videos []port.VideoPublisher
	)

	reachable := func(name string, p pinger) bool {
		if !cfg.StartupPingEnabled {
			return true
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.GraphTimeout)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			log.Warn("destination failed connection test, disabling", zap.String("account", name), zap.Error(err))
			return false
		}
		return true
	}

	settings := breaker.Settings{
		ConsecutiveFailures: cfg.BreakerConsecutiveFailures,
		Timeout:             cfg.BreakerOpenTimeout,
	}
	addImage := func(p port.ImagePublisher) {
		if cfg.BreakerEnabled {
			p = breaker.WrapImage(p, settings, log)
		}
		images = append(images, p)
	}
	addVideo := func(p port.VideoPublisher) {
		if cfg.BreakerEnabled {
			p = breaker.WrapVideo(p, settings, log)
		}
		videos = append(videos, p)
	}

	if cfg.FacebookEnabled {
		client := graph.NewClient(graph.ClientConfig{
			BaseURL:     cfg.GraphAPIBaseURL,
			AccessToken: cfg.FacebookPageToken,
			Timeout:     cfg.GraphTimeout,
		})
		page := graph.NewFacebookPage(client, cfg.FacebookPageID, cfg.GraphVideoTimeout, log)
		if reachable("facebook", page) {
			addImage(page.Photos())
			addVideo(page.Videos())
		}
	} else {
		log.Info("facebook publishing disabled")
	}

	if cfg.InstagramEnabled {
		client := graph.NewClient(graph.ClientConfig{
			BaseURL:     cfg.GraphAPIBaseURL,
			AccessToken: cfg.InstagramToken,
			Timeout:     cfg.GraphTimeout,
		})
		account := graph.NewInstagramAccount(client, graph.InstagramConfig{
			UserID:       cfg.InstagramUserID,
			PollInterval: cfg.InstagramPollInterval,
			ImageWait:    cfg.InstagramImageWait,
			ReelsWait:    cfg.InstagramReelsWait,
			VideoTimeout: cfg.GraphVideoTimeout,
		}, log)
		if reachable("instagram", account) {
			addImage(account.Feed())
			addVideo(account.Reels())
		}
	} else {
		log.Info("instagram publishing disabled")
	}

	return images, videos
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
