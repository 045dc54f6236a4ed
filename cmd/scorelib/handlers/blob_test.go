package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/common/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintBlobRequest(t *testing.T, env *handlerEnv, fp string) *http.Request {
	t.Helper()
	rawURL, _ := env.blobSvc.SignedReadURL(fp, 0)
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodGet, "/?"+u.RawQuery, nil)
}

func TestBlobEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewBlobHandler(env.blobSvc, env.log)

	content := []byte(scoreDoc)
	fp := fingerprint.Compute(content)
	require.NoError(t, env.blobSvc.Put(context.Background(), fp, "application/vnd.recordare.musicxml+xml", content))

	c, rec := env.newContext(mintBlobRequest(t, env, fp))
	c.SetParamNames("fingerprint")
	c.SetParamValues(fp)

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/vnd.recordare.musicxml+xml")
}

func TestBlobEndpointInvalidFingerprint(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewBlobHandler(env.blobSvc, env.log)

	req := httptest.NewRequest(http.MethodGet, "/?exp=9999999999&sig=00", nil)
	c, rec := env.newContext(req)
	c.SetParamNames("fingerprint")
	c.SetParamValues("deadbeef")

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlobEndpointMissingExpiry(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewBlobHandler(env.blobSvc, env.log)

	fp := fingerprint.Compute([]byte(scoreDoc))
	req := httptest.NewRequest(http.MethodGet, "/?sig=00", nil)
	c, rec := env.newContext(req)
	c.SetParamNames("fingerprint")
	c.SetParamValues(fp)

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlobEndpointExpiredLink(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewBlobHandler(env.blobSvc, env.log)

	fp := fingerprint.Compute([]byte(scoreDoc))
	past := time.Now().Add(-time.Hour).Unix()
	req := httptest.NewRequest(http.MethodGet, "/?exp="+strconv.FormatInt(past, 10)+"&sig=00", nil)
	c, rec := env.newContext(req)
	c.SetParamNames("fingerprint")
	c.SetParamValues(fp)

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBlobEndpointWrongSignature(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewBlobHandler(env.blobSvc, env.log)

	content := []byte(scoreDoc)
	fp := fingerprint.Compute(content)
	require.NoError(t, env.blobSvc.Put(context.Background(), fp, "application/vnd.recordare.musicxml+xml", content))

	// A signature minted for a different blob must not open this one.
	other := fingerprint.Compute([]byte("some other content"))
	c, rec := env.newContext(mintBlobRequest(t, env, other))
	c.SetParamNames("fingerprint")
	c.SetParamValues(fp)

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBlobEndpointMissingBlob(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewBlobHandler(env.blobSvc, env.log)

	fp := fingerprint.Compute([]byte("never stored"))
	c, rec := env.newContext(mintBlobRequest(t, env, fp))
	c.SetParamNames("fingerprint")
	c.SetParamValues(fp)

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
