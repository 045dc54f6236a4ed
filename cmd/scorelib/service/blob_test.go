package service

import (
	"context"
	"testing"
	"time"

	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlobEnv(t *testing.T, cacheMaxBytes int64) (*BlobService, *fakeBlobStore) {
	t.Helper()
	store := newFakeBlobStore()
	c := cache.NewMemoryCache(testLogger())
	t.Cleanup(func() { _ = c.Close() })

	signer := NewURLSigner("test-secret", "https://scores.example.com", time.Hour)
	svc := NewBlobService(store, c, signer, cacheMaxBytes, time.Minute, testLogger())
	return svc, store
}

func TestBlobPutAndContent(t *testing.T) {
	svc, store := newBlobEnv(t, 1<<20)
	ctx := context.Background()

	content := []byte(moonlightXML)
	require.NoError(t, svc.Put(ctx, testFingerprint, "application/vnd.recordare.musicxml+xml", content))

	got, mediaType, err := svc.Content(ctx, testFingerprint)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, "application/vnd.recordare.musicxml+xml", mediaType)
	assert.Equal(t, 1, store.getCount())
}

func TestBlobPutIdempotent(t *testing.T) {
	svc, store := newBlobEnv(t, 1<<20)
	ctx := context.Background()

	content := []byte(moonlightXML)
	require.NoError(t, svc.Put(ctx, testFingerprint, "application/vnd.recordare.musicxml+xml", content))
	require.NoError(t, svc.Put(ctx, testFingerprint, "application/vnd.recordare.musicxml+xml", content))

	store.mu.Lock()
	stored := len(store.blobs)
	store.mu.Unlock()
	assert.Equal(t, 1, stored)
}

func TestBlobPutSizeMismatch(t *testing.T) {
	svc, store := newBlobEnv(t, 1<<20)
	ctx := context.Background()

	_, err := store.Create(ctx, &models.ScoreBlob{
		Fingerprint: testFingerprint,
		MediaType:   "application/vnd.recordare.musicxml+xml",
		SizeBytes:   10,
		Content:     []byte("0123456789"),
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)

	err = svc.Put(ctx, testFingerprint, "application/vnd.recordare.musicxml+xml", []byte("different content entirely"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlobMismatch)
}

func TestBlobContentServedFromCache(t *testing.T) {
	svc, store := newBlobEnv(t, 1<<20)
	ctx := context.Background()

	content := []byte(moonlightXML)
	require.NoError(t, svc.Put(ctx, testFingerprint, "application/vnd.recordare.musicxml+xml", content))

	for i := 0; i < 3; i++ {
		got, mediaType, err := svc.Content(ctx, testFingerprint)
		require.NoError(t, err)
		assert.Equal(t, content, got)
		assert.Equal(t, "application/vnd.recordare.musicxml+xml", mediaType)
	}

	// First read populates the cache; the rest never reach the store.
	assert.Equal(t, 1, store.getCount())
}

func TestBlobContentOverCacheLimit(t *testing.T) {
	svc, store := newBlobEnv(t, 8)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, testFingerprint, "application/vnd.recordare.musicxml+xml", []byte(moonlightXML)))

	_, _, err := svc.Content(ctx, testFingerprint)
	require.NoError(t, err)
	_, _, err = svc.Content(ctx, testFingerprint)
	require.NoError(t, err)

	assert.Equal(t, 2, store.getCount())
}

func TestBlobContentMissing(t *testing.T) {
	svc, _ := newBlobEnv(t, 1<<20)

	_, _, err := svc.Content(context.Background(), testFingerprint)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlobDeleteOrphansDropsCache(t *testing.T) {
	svc, _ := newBlobEnv(t, 1<<20)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, testFingerprint, "application/vnd.recordare.musicxml+xml", []byte(moonlightXML)))
	_, _, err := svc.Content(ctx, testFingerprint)
	require.NoError(t, err)

	deleted, err := svc.DeleteOrphans(ctx, []string{testFingerprint})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// A stale cache entry would keep serving deleted content.
	_, _, err = svc.Content(ctx, testFingerprint)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlobWithoutCache(t *testing.T) {
	store := newFakeBlobStore()
	signer := NewURLSigner("test-secret", "https://scores.example.com", time.Hour)
	svc := NewBlobService(store, nil, signer, 1<<20, time.Minute, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, testFingerprint, "application/vnd.recordare.musicxml+xml", []byte(moonlightXML)))

	_, _, err := svc.Content(ctx, testFingerprint)
	require.NoError(t, err)
	_, _, err = svc.Content(ctx, testFingerprint)
	require.NoError(t, err)

	assert.Equal(t, 2, store.getCount())

	_, err = svc.DeleteOrphans(ctx, []string{testFingerprint})
	require.NoError(t, err)
}

func TestBlobSignedReadURLRoundTrip(t *testing.T) {
	svc, _ := newBlobEnv(t, 1<<20)

	rawURL, expiresAt := svc.SignedReadURL(testFingerprint, 0)
	assert.NotEmpty(t, rawURL)
	assert.True(t, expiresAt.After(time.Now()))

	exp := expiresAt.Unix()
	sig := rawURL[len(rawURL)-64:]
	require.NoError(t, svc.VerifyReadURL(testFingerprint, exp, sig))
}

func TestCacheEncodingRoundTrip(t *testing.T) {
	mediaType, content, ok := decodeCached(encodeCached("application/vnd.recordare.musicxml", []byte("PK\x03\x04zipbytes")))
	require.True(t, ok)
	assert.Equal(t, "application/vnd.recordare.musicxml", mediaType)
	assert.Equal(t, []byte("PK\x03\x04zipbytes"), content)

	_, _, ok = decodeCached(nil)
	assert.False(t, ok)

	// Length byte promising more media type than the payload holds.
	_, _, ok = decodeCached([]byte{200, 'x'})
	assert.False(t, ok)
}
