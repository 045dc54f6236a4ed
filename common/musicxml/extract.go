// Package musicxml extracts descriptive metadata from MusicXML
// documents under hostile-input assumptions. Uploaded files are
// untrusted: the extractor refuses document type declarations and
// external entities before parsing, runs the decoder in strict mode
// with no entity table, and bounds both input size and wall-clock
// parse time.
package musicxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrUnsafeContent marks input rejected by the safety checks.
	ErrUnsafeContent = errors.New("unsafe xml content")
	// ErrMalformed marks input that is not a well-formed notation document.
	ErrMalformed = errors.New("malformed musicxml")
	// ErrTooLarge marks input exceeding the configured size limit.
	ErrTooLarge = errors.New("content exceeds size limit")
)

// MaxFieldRunes caps every extracted field at 200 Unicode code points.
const MaxFieldRunes = 200

// maxFieldBytes bounds raw accumulation per field before rune
// truncation; 200 code points never need more.
const maxFieldBytes = 1024

// Metadata is the descriptive header of a notation file. Missing
// fields are empty strings, never errors.
type Metadata struct {
	Title    string
	Composer string
	Subtitle string
}

// Limits bounds a single extraction.
type Limits struct {
	MaxBytes     int64
	ParseTimeout time.Duration
}

// Extract parses data and returns its descriptive metadata.
//
// Safety checks run in order: size limit, declaration pre-scan, then
// a strict-mode decode with no entity table and no charset conversion.
// A second defense rejects DOCTYPE/ENTITY at the token level even if
// the pre-scan were bypassed. The decode runs under ParseTimeout;
// expiry surfaces as context.DeadlineExceeded.
func Extract(ctx context.Context, data []byte, limits Limits) (*Metadata, error) {
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	if containsForbiddenDecl(data) {
		return nil, fmt.Errorf("%w: document type or entity declaration", ErrUnsafeContent)
	}

	if limits.ParseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.ParseTimeout)
		defer cancel()
	}

	type parseResult struct {
		meta *Metadata
		err  error
	}

	// Buffered so an abandoned parse can still deliver and exit. The
	// context-checking reader poisons its input, so it exits promptly.
	done := make(chan parseResult, 1)
	go func() {
		meta, err := parse(ctx, data)
		done <- parseResult{meta: meta, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.meta, res.err
	}
}

// ctxReader fails reads once the context is done, terminating a
// decode whose result nobody is waiting for anymore.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func parse(ctx context.Context, data []byte) (*Metadata, error) {
	dec := xml.NewDecoder(&ctxReader{ctx: ctx, r: bytes.NewReader(data)})
	dec.Strict = true
	// No entity table: any non-builtin entity reference is an error.
	// CharsetReader stays nil, so non-UTF-8 encodings are rejected
	// instead of fetched or converted.
	dec.Entity = nil

	var (
		sawRoot        bool
		path           []string
		workTitle      string
		movementTitle  string
		movementNumber string
		composer       string
		composerSet    bool
		capture        *string
		captureDepth   int
		buf            bytes.Buffer
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.Directive:
			if containsForbiddenDecl(append([]byte("<!"), t...)) {
				return nil, fmt.Errorf("%w: markup declaration", ErrUnsafeContent)
			}

		case xml.StartElement:
			name := t.Name.Local
			path = append(path, name)

			if len(path) == 1 {
				if name != "score-partwise" && name != "score-timewise" {
					return nil, fmt.Errorf("%w: unrecognized root element <%s>", ErrMalformed, name)
				}
				sawRoot = true
			}

			// The descriptive header precedes the music body; once the
			// body starts there is nothing left to extract.
			if len(path) == 2 && (name == "part-list" || name == "part" || name == "measure") {
				return finish(workTitle, movementTitle, movementNumber, composer), nil
			}

			if target := scanTarget(path, t, composerSet, &workTitle, &movementTitle, &movementNumber, &composer); target != nil {
				capture = target
				captureDepth = len(path)
				buf.Reset()
			}

		case xml.CharData:
			if capture != nil && buf.Len() < maxFieldBytes {
				remaining := maxFieldBytes - buf.Len()
				if len(t) > remaining {
					t = t[:remaining]
				}
				buf.Write(t)
			}

		case xml.EndElement:
			if capture != nil && len(path) == captureDepth {
				if capture == &composer {
					composerSet = true
				}
				*capture = strings.TrimSpace(buf.String())
				capture = nil
			}
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}

	return finish(workTitle, movementTitle, movementNumber, composer), nil
}

// scanTarget maps the current element path to the metadata field it
// feeds, or nil when the element is not of interest.
func scanTarget(path []string, se xml.StartElement, composerSet bool, workTitle, movementTitle, movementNumber, composer *string) *string {
	switch len(path) {
	case 2:
		switch path[1] {
		case "movement-title":
			return movementTitle
		case "movement-number":
			return movementNumber
		}
	case 3:
		if path[1] == "work" && path[2] == "work-title" {
			return workTitle
		}
		if path[1] == "identification" && path[2] == "creator" && !composerSet {
			for _, attr := range se.Attr {
				if attr.Name.Local == "type" && attr.Value == "composer" {
					return composer
				}
			}
		}
	}
	return nil
}

// finish applies the fallback rules and field normalization.
//
// The title prefers work-title, falling back to movement-title. The
// subtitle prefers movement-number; movement-title serves as subtitle
// only when it was not already consumed as the title.
func finish(workTitle, movementTitle, movementNumber, composer string) *Metadata {
	title := workTitle
	movementTitleUsed := false
	if title == "" {
		title = movementTitle
		movementTitleUsed = true
	}

	subtitle := movementNumber
	if subtitle == "" && !movementTitleUsed {
		subtitle = movementTitle
	}

	return &Metadata{
		Title:    truncateRunes(title, MaxFieldRunes),
		Composer: truncateRunes(composer, MaxFieldRunes),
		Subtitle: truncateRunes(subtitle, MaxFieldRunes),
	}
}

// Truncate normalizes a metadata field the way extraction does:
// whitespace-trimmed and cut to MaxFieldRunes code points.
func Truncate(s string) string {
	return truncateRunes(strings.TrimSpace(s), MaxFieldRunes)
}

// truncateRunes cuts s to at most n code points without splitting a
// character's encoding.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
