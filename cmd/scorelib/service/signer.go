package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// URLSigner mints and verifies capability URLs for blob reads. The
// signature covers the fingerprint and the expiry, so a URL grants
// access to exactly one blob until it expires, with no session and no
// storage path exposed.
type URLSigner struct {
	secret     []byte
	baseURL    string
	defaultTTL time.Duration
}

// NewURLSigner creates a new URL signer
func NewURLSigner(secret, baseURL string, defaultTTL time.Duration) *URLSigner {
	return &URLSigner{
		secret:     []byte(secret),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		defaultTTL: defaultTTL,
	}
}

// SignedURL returns a time-bounded read URL for a fingerprint. A
// non-positive ttl falls back to the configured default.
func (s *URLSigner) SignedURL(fp string, ttl time.Duration) (string, time.Time) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	url := fmt.Sprintf("%s/api/v1/blobs/%s?exp=%d&sig=%s",
		s.baseURL, fp, expiresAt.Unix(), s.sign(fp, expiresAt.Unix()))

	return url, expiresAt
}

// Verify checks a presented signature against the fingerprint and
// expiry. Expired links fail before any comparison; the comparison
// itself is constant-time. The error never includes the expected
// signature.
func (s *URLSigner) Verify(fp string, exp int64, sig string) error {
	if time.Now().Unix() > exp {
		return fmt.Errorf("%w: link expired", ErrForbidden)
	}

	sigBytes, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("%w: invalid signature encoding", ErrForbidden)
	}

	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", fp, exp)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, sigBytes) != 1 {
		return fmt.Errorf("%w: signature mismatch", ErrForbidden)
	}

	return nil
}

func (s *URLSigner) sign(fp string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", fp, exp)
	return hex.EncodeToString(mac.Sum(nil))
}
