package container

import (
	"fmt"

	"github.com/mushee/scorelib/cmd/scorelib/repository"
	"github.com/mushee/scorelib/cmd/scorelib/service"
	"github.com/mushee/scorelib/common/bootstrap"
	"github.com/mushee/scorelib/common/musicxml"
	"github.com/mushee/scorelib/common/queue"
	"github.com/mushee/scorelib/common/ratelimit"
	rediscommon "github.com/mushee/scorelib/common/redis"
	"github.com/mushee/scorelib/common/validation"
	"github.com/mushee/scorelib/common/worker"
	"github.com/redis/go-redis/v9"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components  *bootstrap.Components
	Redis       *rediscommon.Client
	Queue       queue.Queue
	RateLimiter *ratelimit.RateLimiter

	// Repositories
	BlobRepo    *repository.BlobRepository
	ScoreRepo   *repository.ScoreRepository
	LibraryRepo *repository.LibraryRepository
	PurgeRepo   *repository.PurgeRepository

	// Services
	Policy         *service.CELPolicy
	BlobService    *service.BlobService
	IngestService  *service.IngestService
	ScoreService   *service.ScoreService
	LibraryService *service.LibraryService
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	// Redis backs the rate limiter and, when configured, the event
	// stream. One client serves both.
	redisRaw := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	components.AddCleanup(redisRaw.Close)
	redisClient := rediscommon.NewClient(redisRaw, components.Logger)

	var eventQueue queue.Queue
	switch cfg.Queue.Type {
	case "redis":
		eventQueue = queue.NewRedisQueue(redisClient, cfg.Queue.StreamPrefix, cfg.Queue.StreamMaxLen, components.Logger)
	default:
		eventQueue = queue.NewMemoryQueue(components.Logger)
	}
	components.AddCleanup(eventQueue.Close)

	rateLimiter := ratelimit.NewRateLimiter(redisRaw, components.Logger)

	// Initialize repositories
	blobRepo := repository.NewBlobRepository(components.DB)
	scoreRepo := repository.NewScoreRepository(components.DB)
	libraryRepo := repository.NewLibraryRepository(components.DB)
	purgeRepo := repository.NewPurgeRepository(components.DB)

	// Initialize services (bottom-up: dependencies first)
	policy, err := service.NewCELPolicy(cfg.Policy.ReadExpression)
	if err != nil {
		return nil, fmt.Errorf("failed to build read policy: %w", err)
	}

	signer := service.NewURLSigner(cfg.Blob.URLSigningSecret, cfg.Blob.BaseURL, cfg.Blob.URLTTL)

	blobService := service.NewBlobService(
		blobRepo,
		components.Cache,
		signer,
		cfg.Blob.CacheMaxBytes,
		cfg.Cache.DefaultTTL,
		components.Logger,
	)

	// Telemetry is optional; assign through the interface only when it
	// exists so the nil check inside the service stays meaningful.
	var telemetrySink service.TelemetrySink
	if components.Telemetry != nil {
		telemetrySink = components.Telemetry
	}

	ingestService := service.NewIngestService(
		scoreRepo,
		libraryRepo,
		blobService,
		eventQueue,
		worker.NewPool(cfg.Ingest.Workers),
		validation.NewUploadValidator(cfg.Ingest.MaxUploadBytes),
		musicxml.Limits{
			MaxBytes:     cfg.Ingest.MaxUploadBytes,
			ParseTimeout: cfg.Ingest.ParseTimeout,
		},
		telemetrySink,
		components.Logger,
	)

	scoreService := service.NewScoreService(scoreRepo, purgeRepo, blobService, policy, components.Logger)
	libraryService := service.NewLibraryService(libraryRepo, scoreRepo, policy, components.Logger)

	return &Container{
		Components:     components,
		Redis:          redisClient,
		Queue:          eventQueue,
		RateLimiter:    rateLimiter,
		BlobRepo:       blobRepo,
		ScoreRepo:      scoreRepo,
		LibraryRepo:    libraryRepo,
		PurgeRepo:      purgeRepo,
		Policy:         policy,
		BlobService:    blobService,
		IngestService:  ingestService,
		ScoreService:   scoreService,
		LibraryService: libraryService,
	}, nil
}
