package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/fingerprint"
	"github.com/mushee/scorelib/common/logger"
	"github.com/mushee/scorelib/common/musicxml"
	"github.com/mushee/scorelib/common/validation"
	"github.com/mushee/scorelib/common/worker"
)

// IngestService runs the upload pipeline: validate before any read,
// buffer/hash/parse on the bounded worker pool, then resolve the
// result against the catalog. Duplicate and concurrent uploads are
// settled by storage-level uniqueness, never by application locks.
type IngestService struct {
	scores    ScoreStore
	library   LibraryStore
	blobs     BlobPutter
	events    EventPublisher
	pool      *worker.Pool
	validator *validation.UploadValidator
	limits    musicxml.Limits
	telemetry TelemetrySink
	log       *logger.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	scores ScoreStore,
	library LibraryStore,
	blobs BlobPutter,
	events EventPublisher,
	pool *worker.Pool,
	validator *validation.UploadValidator,
	limits musicxml.Limits,
	telemetry TelemetrySink,
	log *logger.Logger,
) *IngestService {
	return &IngestService{
		scores:    scores,
		library:   library,
		blobs:     blobs,
		events:    events,
		pool:      pool,
		validator: validator,
		limits:    limits,
		telemetry: telemetry,
		log:       log,
	}
}

// Upload ingests one file for one caller and classifies it into
// exactly one outcome: created, added_existing, or already_in_library.
func (s *IngestService) Upload(ctx context.Context, userID, filename string, size int64, r io.Reader) (*models.UploadResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: caller identity required", ErrUnauthorized)
	}

	// Fast fail on extension and declared size, before any bytes move.
	if err := s.validator.Validate(filename, size); err != nil {
		switch {
		case errors.Is(err, validation.ErrUnsupportedExtension):
			return nil, fmt.Errorf("%w: extension %q", ErrInvalidFileFormat, validation.Extension(filename))
		case errors.Is(err, validation.ErrFileTooLarge):
			return nil, fmt.Errorf("%w: declared size %d", ErrFileTooLarge, size)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	var (
		data []byte
		fp   string
		meta *musicxml.Metadata
	)
	cpuStart := time.Now()
	err := s.pool.Do(ctx, func() error {
		var err error
		data, fp, meta, err = s.prepare(ctx, filename, r)
		return err
	})
	if s.telemetry != nil {
		// Includes pool wait, so contention shows up in the numbers.
		s.telemetry.RecordDuration("ingest.prepare", cpuStart)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidContent) || errors.Is(err, ErrFileTooLarge) {
			// Expected hostile or broken input. The wrapped reason
			// (unsafe, malformed, timeout) stays in the log for abuse
			// monitoring; the client sees only the boundary kind.
			s.log.Info("rejected upload", "user_id", userID, "filename", filename, "error", err)
		}
		return nil, err
	}

	result, err := s.resolve(ctx, userID, fp, validation.MediaType(filename), data, meta)
	if err != nil {
		return nil, err
	}
	if s.telemetry != nil {
		s.telemetry.RecordEvent("upload_resolved", map[string]any{
			"outcome":     string(result.Outcome),
			"fingerprint": fp,
		})
	}
	return result, nil
}

// prepare buffers the upload, fingerprints it, and extracts metadata.
// All CPU-bound work happens here, inside a worker slot. The stored
// bytes and the fingerprint are always the raw upload; container
// extraction only feeds the parser.
func (s *IngestService) prepare(ctx context.Context, filename string, r io.Reader) ([]byte, string, *musicxml.Metadata, error) {
	maxBytes := s.validator.MaxBytes()

	hasher := fingerprint.New()
	var buf bytes.Buffer
	// One byte past the limit makes overflow detectable without
	// reading an unbounded stream.
	n, err := io.Copy(io.MultiWriter(&buf, hasher), io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if n > maxBytes {
		return nil, "", nil, fmt.Errorf("%w: larger than %d bytes", ErrFileTooLarge, maxBytes)
	}

	data := buf.Bytes()
	fp := hasher.Fingerprint()

	xmlData := data
	if validation.IsCompressed(filename) {
		xmlData, err = musicxml.ExtractContainer(data, maxBytes)
		if err != nil {
			return nil, "", nil, classifyExtraction(err)
		}
	}

	meta, err := musicxml.Extract(ctx, xmlData, s.limits)
	if err != nil {
		return nil, "", nil, classifyExtraction(err)
	}

	return data, fp, meta, nil
}

// classifyExtraction collapses parser failures into the boundary
// taxonomy, preserving the internal reason in the wrapped message.
func classifyExtraction(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, musicxml.ErrTooLarge):
		return fmt.Errorf("%w: decompressed content over limit", ErrFileTooLarge)
	case errors.Is(err, musicxml.ErrUnsafeContent):
		return fmt.Errorf("%w: reason=unsafe", ErrInvalidContent)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: reason=timeout", ErrInvalidContent)
	default:
		return fmt.Errorf("%w: reason=malformed: %v", ErrInvalidContent, err)
	}
}

// resolve classifies the upload against current catalog state and
// applies the writes its outcome requires. A lost insert race
// re-resolves exactly once; the schema's uniqueness constraints make
// the second pass definitive.
func (s *IngestService) resolve(ctx context.Context, userID, fp, mediaType string, data []byte, meta *musicxml.Metadata) (*models.UploadResult, error) {
	for attempt := 0; attempt < 2; attempt++ {
		state, err := s.scores.ResolveForUpload(ctx, fp, userID)
		if err != nil {
			return nil, err
		}

		if state == nil {
			result, lost, err := s.createEntry(ctx, userID, fp, mediaType, data, meta)
			if err != nil {
				return nil, err
			}
			if lost {
				continue
			}
			return result, nil
		}

		if state.InLibrary() {
			s.log.Info("upload already in library",
				"user_id", userID, "score_id", state.ScoreID, "fingerprint", fp)
			return &models.UploadResult{
				Outcome: models.OutcomeAlreadyInLibrary,
				Score:   &state.Score,
				AddedAt: *state.AddedAt,
			}, nil
		}

		return s.addExisting(ctx, userID, state)
	}

	return nil, fmt.Errorf("upload resolution did not converge for %s", fp)
}

// createEntry handles the first-upload path: blob first, so content
// with no catalog row is the worst a failure leaves behind (harmless,
// reused by the next attempt), then the entry, then the association.
func (s *IngestService) createEntry(ctx context.Context, userID, fp, mediaType string, data []byte, meta *musicxml.Metadata) (*models.UploadResult, bool, error) {
	if err := s.blobs.Put(ctx, fp, mediaType, data); err != nil {
		return nil, false, err
	}

	var subtitle *string
	if meta.Subtitle != "" {
		subtitle = &meta.Subtitle
	}

	score := &models.Score{
		ScoreID:     uuid.New(),
		Fingerprint: fp,
		Title:       meta.Title,
		Composer:    meta.Composer,
		Subtitle:    subtitle,
		OwnerID:     &userID,
		CreatedAt:   time.Now().UTC(),
	}

	inserted, err := s.scores.Create(ctx, score)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		// Lost the race: a concurrent upload catalogued this content
		// between the state read and now. Re-resolve and reclassify.
		return nil, true, nil
	}

	entry := &models.LibraryEntry{
		UserID:  userID,
		ScoreID: score.ScoreID,
		AddedAt: time.Now().UTC(),
	}
	if _, err := s.library.Insert(ctx, entry); err != nil {
		return nil, false, err
	}

	s.log.Info("catalogued new score",
		"score_id", score.ScoreID,
		"fingerprint", fp,
		"title", score.Title,
		"composer", score.Composer,
		"user_id", userID,
	)
	s.publish(ctx, models.OutcomeCreated, score, userID)

	return &models.UploadResult{
		Outcome: models.OutcomeCreated,
		Score:   score,
		AddedAt: entry.AddedAt,
	}, false, nil
}

// addExisting attaches the caller to a known entry. Losing the
// association insert means a concurrent request from the same caller
// won; that reclassifies to already_in_library, not an error.
func (s *IngestService) addExisting(ctx context.Context, userID string, state *models.ScoreWithMembership) (*models.UploadResult, error) {
	entry := &models.LibraryEntry{
		UserID:  userID,
		ScoreID: state.ScoreID,
		AddedAt: time.Now().UTC(),
	}

	inserted, err := s.library.Insert(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !inserted {
		addedAt := entry.AddedAt
		if fresh, err := s.scores.ResolveForUpload(ctx, state.Fingerprint, userID); err == nil && fresh != nil && fresh.AddedAt != nil {
			addedAt = *fresh.AddedAt
		}
		return &models.UploadResult{
			Outcome: models.OutcomeAlreadyInLibrary,
			Score:   &state.Score,
			AddedAt: addedAt,
		}, nil
	}

	s.log.Info("added existing score to library",
		"score_id", state.ScoreID, "fingerprint", state.Fingerprint, "user_id", userID)
	s.publish(ctx, models.OutcomeAddedExisting, &state.Score, userID)

	return &models.UploadResult{
		Outcome: models.OutcomeAddedExisting,
		Score:   &state.Score,
		AddedAt: entry.AddedAt,
	}, nil
}

// publish emits a score.ingested event. Best-effort: the upload
// outcome never depends on the event bus.
func (s *IngestService) publish(ctx context.Context, outcome models.Outcome, score *models.Score, userID string) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(models.ScoreIngestedEvent{
		ScoreID:     score.ScoreID,
		Fingerprint: score.Fingerprint,
		UserID:      userID,
		Outcome:     outcome,
	})
	if err != nil {
		return
	}

	if err := s.events.Publish(ctx, models.TopicScoreIngested, score.Fingerprint, payload); err != nil {
		s.log.Warn("failed to publish ingest event",
			"score_id", score.ScoreID, "outcome", outcome, "error", err)
	}
}
