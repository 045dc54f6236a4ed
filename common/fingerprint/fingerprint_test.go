package fingerprint

import (
	"strings"
	"testing"
)

// Digest of the empty buffer; fixed by the algorithm.
const emptyDigest = "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestComputeDeterministic(t *testing.T) {
	data := []byte("<score-partwise version=\"4.0\"></score-partwise>")

	first := Compute(data)
	second := Compute(data)

	if first != second {
		t.Errorf("expected identical fingerprints, got %s and %s", first, second)
	}
	if !Valid(first) {
		t.Errorf("expected valid fingerprint, got %s", first)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	fp := Compute(nil)
	if fp != emptyDigest {
		t.Errorf("expected %s, got %s", emptyDigest, fp)
	}

	fp = Compute([]byte{})
	if fp != emptyDigest {
		t.Errorf("expected %s for empty slice, got %s", emptyDigest, fp)
	}
}

func TestComputeDistinguishesContent(t *testing.T) {
	a := Compute([]byte("movement 1"))
	b := Compute([]byte("movement 2"))

	if a == b {
		t.Errorf("expected distinct fingerprints, both were %s", a)
	}
}

func TestHasherMatchesCompute(t *testing.T) {
	data := []byte("streaming content hashed in several chunks")

	h := New()
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		if _, err := h.Write(data[i:end]); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	if got, want := h.Fingerprint(), Compute(data); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"well formed", emptyDigest, true},
		{"missing prefix", strings.TrimPrefix(emptyDigest, "sha256:"), false},
		{"wrong prefix", "sha1:" + strings.Repeat("a", 64), false},
		{"short digest", "sha256:abc123", false},
		{"long digest", "sha256:" + strings.Repeat("a", 65), false},
		{"uppercase hex", "sha256:" + strings.Repeat("A", 64), false},
		{"non-hex characters", "sha256:" + strings.Repeat("z", 64), false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.in); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func BenchmarkCompute(b *testing.B) {
	data := make([]byte, 1<<20)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(data)
	}
}
