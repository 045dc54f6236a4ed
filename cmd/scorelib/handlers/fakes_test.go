package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/cmd/scorelib/service"
	"github.com/mushee/scorelib/common/logger"
	"github.com/mushee/scorelib/common/musicxml"
	"github.com/mushee/scorelib/common/validation"
	"github.com/mushee/scorelib/common/worker"
	"github.com/stretchr/testify/require"
)

// memCatalog backs the score, library, and purge surfaces for handler
// tests. memBlobs backs blob storage separately; the two Create methods
// have different signatures.
type memCatalog struct {
	mu      sync.Mutex
	scores  map[string]*models.Score
	entries map[string]models.LibraryEntry
	purged  []string
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		scores:  make(map[string]*models.Score),
		entries: make(map[string]models.LibraryEntry),
	}
}

func memKey(userID string, scoreID uuid.UUID) string {
	return userID + "|" + scoreID.String()
}

func (m *memCatalog) Create(_ context.Context, score *models.Score) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.scores[score.Fingerprint]; exists {
		return false, nil
	}
	cp := *score
	m.scores[score.Fingerprint] = &cp
	return true, nil
}

func (m *memCatalog) ResolveForUpload(_ context.Context, fp, userID string) (*models.ScoreWithMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	score, ok := m.scores[fp]
	if !ok {
		return nil, nil
	}
	return m.withMembership(score, userID), nil
}

func (m *memCatalog) GetWithMembership(_ context.Context, scoreID uuid.UUID, userID string) (*models.ScoreWithMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, score := range m.scores {
		if score.ScoreID == scoreID {
			return m.withMembership(score, userID), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memCatalog) withMembership(score *models.Score, userID string) *models.ScoreWithMembership {
	state := &models.ScoreWithMembership{Score: *score}
	if entry, ok := m.entries[memKey(userID, score.ScoreID)]; ok {
		added := entry.AddedAt
		state.AddedAt = &added
	}
	return state
}

func (m *memCatalog) UpdateMetadata(_ context.Context, scoreID uuid.UUID, title, composer string, subtitle *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, score := range m.scores {
		if score.ScoreID == scoreID {
			score.Title = title
			score.Composer = composer
			score.Subtitle = subtitle
			return true, nil
		}
	}
	return false, nil
}

func (m *memCatalog) Insert(_ context.Context, entry *models.LibraryEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(entry.UserID, entry.ScoreID)
	if _, exists := m.entries[key]; exists {
		return false, nil
	}
	m.entries[key] = *entry
	return true, nil
}

func (m *memCatalog) Delete(_ context.Context, userID string, scoreID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(userID, scoreID)
	if _, exists := m.entries[key]; !exists {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *memCatalog) List(_ context.Context, userID string, _ models.ListPage) ([]*models.LibraryScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LibraryScore
	for _, entry := range m.entries {
		if entry.UserID != userID {
			continue
		}
		for _, score := range m.scores {
			if score.ScoreID == entry.ScoreID {
				out = append(out, &models.LibraryScore{Score: *score, AddedAt: entry.AddedAt})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (m *memCatalog) Count(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, entry := range m.entries {
		if entry.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memCatalog) PurgeUser(_ context.Context, userID string) (*models.PurgeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, userID)
	return &models.PurgeResult{}, nil
}

type memBlobs struct {
	mu    sync.Mutex
	blobs map[string]*models.ScoreBlob
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string]*models.ScoreBlob)}
}

func (m *memBlobs) Create(_ context.Context, blob *models.ScoreBlob) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blobs[blob.Fingerprint]; exists {
		return false, nil
	}
	cp := *blob
	m.blobs[blob.Fingerprint] = &cp
	return true, nil
}

func (m *memBlobs) GetByFingerprint(_ context.Context, fp string) (*models.ScoreBlob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[fp]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *blob
	return &cp, nil
}

func (m *memBlobs) SizeByFingerprint(_ context.Context, fp string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[fp]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return blob.SizeBytes, nil
}

func (m *memBlobs) DeleteOrphans(_ context.Context, fingerprints []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for _, fp := range fingerprints {
		if _, ok := m.blobs[fp]; ok {
			delete(m.blobs, fp)
			deleted++
		}
	}
	return deleted, nil
}

// handlerEnv wires real services over the in-memory stores, the same
// shape the container builds in production.
type handlerEnv struct {
	catalog *memCatalog
	blobs   *memBlobs
	blobSvc *service.BlobService
	ingest  *service.IngestService
	scores  *service.ScoreService
	library *service.LibraryService
	e       *echo.Echo
	log     *logger.Logger
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	log := logger.New("error", "json")
	catalog := newMemCatalog()
	blobs := newMemBlobs()

	signer := service.NewURLSigner("test-secret", "https://scores.example.com", time.Hour)
	blobSvc := service.NewBlobService(blobs, nil, signer, 1<<20, time.Minute, log)

	policy, err := service.NewCELPolicy("public || owner == caller || in_library")
	require.NoError(t, err)

	ingest := service.NewIngestService(catalog, catalog, blobSvc, nil,
		worker.NewPool(2),
		validation.NewUploadValidator(10<<20),
		musicxml.Limits{MaxBytes: 10 << 20, ParseTimeout: 5 * time.Second},
		nil,
		log,
	)

	return &handlerEnv{
		catalog: catalog,
		blobs:   blobs,
		blobSvc: blobSvc,
		ingest:  ingest,
		scores:  service.NewScoreService(catalog, catalog, blobSvc, policy, log),
		library: service.NewLibraryService(catalog, catalog, policy, log),
		e:       echo.New(),
		log:     log,
	}
}

func (env *handlerEnv) newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return env.e.NewContext(req, rec), rec
}

func strPtr(s string) *string { return &s }
