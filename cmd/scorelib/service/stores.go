package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mushee/scorelib/cmd/scorelib/models"
)

// Persistence and messaging surfaces the services depend on. The
// repository types satisfy these; tests substitute map-backed fakes.

// ScoreStore is the catalog persistence surface.
type ScoreStore interface {
	Create(ctx context.Context, score *models.Score) (bool, error)
	ResolveForUpload(ctx context.Context, fp, userID string) (*models.ScoreWithMembership, error)
	GetWithMembership(ctx context.Context, scoreID uuid.UUID, userID string) (*models.ScoreWithMembership, error)
	UpdateMetadata(ctx context.Context, scoreID uuid.UUID, title, composer string, subtitle *string) (bool, error)
}

// LibraryStore is the association persistence surface.
type LibraryStore interface {
	Insert(ctx context.Context, entry *models.LibraryEntry) (bool, error)
	Delete(ctx context.Context, userID string, scoreID uuid.UUID) (bool, error)
	List(ctx context.Context, userID string, page models.ListPage) ([]*models.LibraryScore, error)
	Count(ctx context.Context, userID string) (int64, error)
}

// BlobStore is the blob persistence surface.
type BlobStore interface {
	Create(ctx context.Context, blob *models.ScoreBlob) (bool, error)
	GetByFingerprint(ctx context.Context, fp string) (*models.ScoreBlob, error)
	SizeByFingerprint(ctx context.Context, fp string) (int64, error)
	DeleteOrphans(ctx context.Context, fingerprints []string) (int64, error)
}

// BlobPutter is the collision-guarded write surface the ingest
// pipeline uses; satisfied by BlobService.
type BlobPutter interface {
	Put(ctx context.Context, fp, mediaType string, content []byte) error
}

// PurgeStore removes a user's catalog footprint transactionally.
type PurgeStore interface {
	PurgeUser(ctx context.Context, userID string) (*models.PurgeResult, error)
}

// EventPublisher publishes catalog events; satisfied by queue.Queue.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, message []byte) error
}

// TelemetrySink records operation timings and countable events;
// satisfied by telemetry.Telemetry. Nil disables recording.
type TelemetrySink interface {
	RecordDuration(operation string, start time.Time)
	RecordEvent(event string, attrs map[string]any)
}
