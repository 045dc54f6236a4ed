package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/cache"
	"github.com/mushee/scorelib/common/logger"
)

// BlobService handles content-addressed blob storage: idempotent puts
// keyed by fingerprint, cached reads, and signed read URLs. Content is
// immutable, which is what makes both the idempotence and the caching
// safe.
type BlobService struct {
	store         BlobStore
	cache         cache.Cache
	signer        *URLSigner
	cacheMaxBytes int64
	cacheTTL      time.Duration
	log           *logger.Logger
}

// NewBlobService creates a new blob service. cache may be nil when
// caching is disabled.
func NewBlobService(store BlobStore, c cache.Cache, signer *URLSigner, cacheMaxBytes int64, cacheTTL time.Duration, log *logger.Logger) *BlobService {
	return &BlobService{
		store:         store,
		cache:         c,
		signer:        signer,
		cacheMaxBytes: cacheMaxBytes,
		cacheTTL:      cacheTTL,
		log:           log,
	}
}

// Put stores content under its fingerprint. Re-putting a stored
// fingerprint is a no-op, except that the stored size is compared
// against the payload: a mismatch means the content-addressing
// contract is broken somewhere and must not pass silently.
func (s *BlobService) Put(ctx context.Context, fp, mediaType string, content []byte) error {
	inserted, err := s.store.Create(ctx, &models.ScoreBlob{
		Fingerprint: fp,
		MediaType:   mediaType,
		SizeBytes:   int64(len(content)),
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if inserted {
		return nil
	}

	storedSize, err := s.store.SizeByFingerprint(ctx, fp)
	if err != nil {
		return err
	}
	if storedSize != int64(len(content)) {
		s.log.Error("stored blob disagrees with identical fingerprint",
			"fingerprint", fp,
			"stored_size", storedSize,
			"incoming_size", len(content),
		)
		return fmt.Errorf("%w: fingerprint %s", ErrBlobMismatch, fp)
	}

	return nil
}

// Content returns the stored bytes and media type for a fingerprint.
// Small blobs are served from cache after the first read.
func (s *BlobService) Content(ctx context.Context, fp string) ([]byte, string, error) {
	key := cacheKey(fp)

	if s.cache != nil {
		if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
			if mediaType, content, ok := decodeCached(cached); ok {
				return content, mediaType, nil
			}
		}
	}

	blob, err := s.store.GetByFingerprint(ctx, fp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", fmt.Errorf("%w: blob %s", ErrNotFound, fp)
		}
		return nil, "", err
	}

	if s.cache != nil && blob.SizeBytes <= s.cacheMaxBytes {
		if err := s.cache.Set(ctx, key, encodeCached(blob.MediaType, blob.Content), s.cacheTTL); err != nil {
			s.log.Warn("failed to cache blob", "fingerprint", fp, "error", err)
		}
	}

	return blob.Content, blob.MediaType, nil
}

// SignedReadURL mints a capability URL for a blob read.
func (s *BlobService) SignedReadURL(fp string, ttl time.Duration) (string, time.Time) {
	return s.signer.SignedURL(fp, ttl)
}

// VerifyReadURL checks a presented capability URL signature.
func (s *BlobService) VerifyReadURL(fp string, exp int64, sig string) error {
	return s.signer.Verify(fp, exp, sig)
}

// DeleteOrphans removes unreferenced blobs and their cache entries.
func (s *BlobService) DeleteOrphans(ctx context.Context, fingerprints []string) (int64, error) {
	deleted, err := s.store.DeleteOrphans(ctx, fingerprints)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		for _, fp := range fingerprints {
			if err := s.cache.Delete(ctx, cacheKey(fp)); err != nil {
				s.log.Warn("failed to drop blob cache entry", "fingerprint", fp, "error", err)
			}
		}
	}

	return deleted, nil
}

func cacheKey(fp string) string {
	return "blob:" + fp
}

// Cache entries pack the media type in front of the content: one
// length byte, the media type, then the raw bytes.
func encodeCached(mediaType string, content []byte) []byte {
	buf := make([]byte, 0, 1+len(mediaType)+len(content))
	buf = append(buf, byte(len(mediaType)))
	buf = append(buf, mediaType...)
	return append(buf, content...)
}

func decodeCached(data []byte) (string, []byte, bool) {
	if len(data) < 1 {
		return "", nil, false
	}
	n := int(data[0])
	if len(data) < 1+n {
		return "", nil, false
	}
	return string(data[1 : 1+n]), data[1+n:], true
}
