package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/logger"
)

// Map-backed fakes standing in for the repositories. Each guards its
// maps with a mutex so the concurrency tests exercise real
// interleavings, and the before* hooks fire outside the lock so a test
// can lose a race on purpose.

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

// fakeCatalog implements ScoreStore and LibraryStore over two maps,
// enforcing the same uniqueness the schema does: one score per
// fingerprint, one entry per (user, score).
type fakeCatalog struct {
	mu      sync.Mutex
	scores  map[string]*models.Score       // by fingerprint
	entries map[string]models.LibraryEntry // by user|score

	lastPage models.ListPage

	beforeScoreCreate func()
	beforeEntryInsert func()
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		scores:  make(map[string]*models.Score),
		entries: make(map[string]models.LibraryEntry),
	}
}

func entryKey(userID string, scoreID uuid.UUID) string {
	return userID + "|" + scoreID.String()
}

// seedScore installs a score directly, bypassing Create. Used by race
// hooks to simulate a concurrent writer winning first.
func (f *fakeCatalog) seedScore(score *models.Score) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *score
	f.scores[score.Fingerprint] = &cp
}

func (f *fakeCatalog) seedEntry(entry models.LibraryEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entryKey(entry.UserID, entry.ScoreID)] = entry
}

func (f *fakeCatalog) scoreCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scores)
}

func (f *fakeCatalog) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *fakeCatalog) Create(_ context.Context, score *models.Score) (bool, error) {
	if f.beforeScoreCreate != nil {
		f.beforeScoreCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.scores[score.Fingerprint]; exists {
		return false, nil
	}
	cp := *score
	f.scores[score.Fingerprint] = &cp
	return true, nil
}

func (f *fakeCatalog) ResolveForUpload(_ context.Context, fp, userID string) (*models.ScoreWithMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.scores[fp]
	if !ok {
		return nil, nil
	}
	return f.withMembership(score, userID), nil
}

func (f *fakeCatalog) GetWithMembership(_ context.Context, scoreID uuid.UUID, userID string) (*models.ScoreWithMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, score := range f.scores {
		if score.ScoreID == scoreID {
			return f.withMembership(score, userID), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCatalog) withMembership(score *models.Score, userID string) *models.ScoreWithMembership {
	state := &models.ScoreWithMembership{Score: *score}
	if entry, ok := f.entries[entryKey(userID, score.ScoreID)]; ok {
		added := entry.AddedAt
		state.AddedAt = &added
	}
	return state
}

func (f *fakeCatalog) UpdateMetadata(_ context.Context, scoreID uuid.UUID, title, composer string, subtitle *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, score := range f.scores {
		if score.ScoreID == scoreID {
			score.Title = title
			score.Composer = composer
			score.Subtitle = subtitle
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) Insert(_ context.Context, entry *models.LibraryEntry) (bool, error) {
	if f.beforeEntryInsert != nil {
		f.beforeEntryInsert()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := entryKey(entry.UserID, entry.ScoreID)
	if _, exists := f.entries[key]; exists {
		return false, nil
	}
	f.entries[key] = *entry
	return true, nil
}

func (f *fakeCatalog) Delete(_ context.Context, userID string, scoreID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := entryKey(userID, scoreID)
	if _, exists := f.entries[key]; !exists {
		return false, nil
	}
	delete(f.entries, key)
	return true, nil
}

func (f *fakeCatalog) List(_ context.Context, userID string, page models.ListPage) ([]*models.LibraryScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage = page

	var out []*models.LibraryScore
	for _, entry := range f.entries {
		if entry.UserID != userID {
			continue
		}
		for _, score := range f.scores {
			if score.ScoreID == entry.ScoreID {
				out = append(out, &models.LibraryScore{Score: *score, AddedAt: entry.AddedAt})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (f *fakeCatalog) Count(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, entry := range f.entries {
		if entry.UserID == userID {
			n++
		}
	}
	return n, nil
}

// fakeBlobs implements BlobPutter, recording puts and keeping one copy
// per fingerprint.
type fakeBlobs struct {
	mu   sync.Mutex
	puts int
	data map[string][]byte
	err  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{data: make(map[string][]byte)}
}

func (f *fakeBlobs) Put(_ context.Context, fp, _ string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.puts++
	if _, ok := f.data[fp]; !ok {
		f.data[fp] = append([]byte(nil), content...)
	}
	return nil
}

func (f *fakeBlobs) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *fakeBlobs) stored() map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]byte, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return out
}

// fakeBlobStore implements BlobStore for BlobService tests.
type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string]*models.ScoreBlob
	gets  int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string]*models.ScoreBlob)}
}

func (f *fakeBlobStore) Create(_ context.Context, blob *models.ScoreBlob) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.blobs[blob.Fingerprint]; exists {
		return false, nil
	}
	cp := *blob
	f.blobs[blob.Fingerprint] = &cp
	return true, nil
}

func (f *fakeBlobStore) GetByFingerprint(_ context.Context, fp string) (*models.ScoreBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	blob, ok := f.blobs[fp]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *blob
	return &cp, nil
}

func (f *fakeBlobStore) SizeByFingerprint(_ context.Context, fp string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.blobs[fp]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return blob.SizeBytes, nil
}

func (f *fakeBlobStore) DeleteOrphans(_ context.Context, fingerprints []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for _, fp := range fingerprints {
		if _, ok := f.blobs[fp]; ok {
			delete(f.blobs, fp)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeBlobStore) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// fakeEvents implements EventPublisher and decodes what it receives.
type fakeEvents struct {
	mu        sync.Mutex
	topics    []string
	published []models.ScoreIngestedEvent
	err       error
}

func (f *fakeEvents) Publish(_ context.Context, topic, _ string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	var evt models.ScoreIngestedEvent
	if err := json.Unmarshal(message, &evt); err != nil {
		return err
	}
	f.topics = append(f.topics, topic)
	f.published = append(f.published, evt)
	return nil
}

func (f *fakeEvents) events() []models.ScoreIngestedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ScoreIngestedEvent(nil), f.published...)
}

// fakeTelemetry implements TelemetrySink.
type fakeTelemetry struct {
	mu         sync.Mutex
	operations []string
	recorded   []string
}

func (f *fakeTelemetry) RecordDuration(operation string, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operations = append(f.operations, operation)
}

func (f *fakeTelemetry) RecordEvent(event string, _ map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, event)
}

func (f *fakeTelemetry) seen() (operations, events []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.operations...), append([]string(nil), f.recorded...)
}

// fakePolicy implements AccessPolicy with a fixed answer.
type fakePolicy struct {
	allow bool
	err   error
}

func (f *fakePolicy) CanRead(string, *models.ScoreWithMembership) (bool, error) {
	return f.allow, f.err
}

// fakePurge implements PurgeStore.
type fakePurge struct {
	result *models.PurgeResult
	err    error
	calls  []string
}

func (f *fakePurge) PurgeUser(_ context.Context, userID string) (*models.PurgeResult, error) {
	f.calls = append(f.calls, userID)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
