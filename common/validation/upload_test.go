package validation

import (
	"errors"
	"testing"
)

func TestUploadValidator(t *testing.T) {
	v := NewUploadValidator(1024)

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  error
	}{
		{"musicxml accepted", "sonata.musicxml", 512, nil},
		{"xml accepted", "sonata.xml", 512, nil},
		{"mxl accepted", "sonata.mxl", 512, nil},
		{"uppercase extension accepted", "SONATA.MXL", 512, nil},
		{"mixed case accepted", "Sonata.MusicXML", 512, nil},
		{"pdf rejected", "sonata.pdf", 512, ErrUnsupportedExtension},
		{"no extension rejected", "sonata", 512, ErrUnsupportedExtension},
		{"double extension uses final", "sonata.xml.exe", 512, ErrUnsupportedExtension},
		{"oversized rejected", "sonata.xml", 2048, ErrFileTooLarge},
		{"at limit accepted", "sonata.xml", 1024, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.filename, tt.size)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMediaType(t *testing.T) {
	if got := MediaType("score.mxl"); got != "application/vnd.recordare.musicxml" {
		t.Errorf("expected container media type, got %q", got)
	}
	if got := MediaType("score.musicxml"); got != "application/vnd.recordare.musicxml+xml" {
		t.Errorf("expected xml media type, got %q", got)
	}
	if got := MediaType("score.xml"); got != "application/vnd.recordare.musicxml+xml" {
		t.Errorf("expected xml media type for .xml, got %q", got)
	}
}

func TestIsCompressed(t *testing.T) {
	if !IsCompressed("a.mxl") {
		t.Errorf("expected .mxl to be compressed")
	}
	if !IsCompressed("a.MXL") {
		t.Errorf("expected extension check to be case-insensitive")
	}
	if IsCompressed("a.musicxml") {
		t.Errorf("expected .musicxml to be uncompressed")
	}
}
