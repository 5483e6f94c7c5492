package fingerprint

import (
	"errors"
	"testing"

	"github.com/spimanov/prdbd/internal/domain"
)

func TestSimHash(t *testing.T) {
	// Bit 0 is set in 2 of 3 inputs (above threshold 1), bit 1 in only one.
	hash := SimHash([]uint32{0b01, 0b11, 0b00})
	if hash != 0b01 {
		t.Errorf("Expected simhash 0b01, got %#b", hash)
	}

	// All bits set in a majority of inputs.
	hash = SimHash([]uint32{0xFFFFFFFF, 0xFFFFFFFF, 0})
	if hash != 0xFFFFFFFF {
		t.Errorf("Expected simhash 0xFFFFFFFF, got %#x", hash)
	}

	if SimHash(nil) != 0 {
		t.Error("Expected zero simhash for empty data")
	}
}

func TestHammingDistance(t *testing.T) {
	if d := HammingDistance(0, 0); d != 0 {
		t.Errorf("Expected distance 0, got %d", d)
	}
	if d := HammingDistance(0b1011, 0b1000); d != 2 {
		t.Errorf("Expected distance 2, got %d", d)
	}
	if d := HammingDistance(0, 0xFFFFFFFF); d != 32 {
		t.Errorf("Expected distance 32, got %d", d)
	}
}

func TestNew(t *testing.T) {
	a := New([]uint32{1, 2, 3})
	b := New([]uint32{1, 2, 3})
	c := New([]uint32{1, 2, 4})

	if len(a.Digest) != 40 {
		t.Errorf("Expected 40-char hex digest, got %d chars", len(a.Digest))
	}
	if a.Digest != b.Digest || a.Hash != b.Hash {
		t.Error("Expected identical fingerprints for identical data")
	}
	if a.Digest == c.Digest {
		t.Error("Expected different digests for different data")
	}
}

func TestParseFpcalc(t *testing.T) {
	out := []byte(`{"duration": 123.45, "fingerprint": [101, 202, 303]}`)
	fp, err := parseFpcalc(out, "song.mp3")
	if err != nil {
		t.Fatalf("parseFpcalc failed: %v", err)
	}
	if fp.Digest == "" || len(fp.Digest) != 40 {
		t.Errorf("Expected 40-char digest, got %q", fp.Digest)
	}

	want := New([]uint32{101, 202, 303})
	if fp != want {
		t.Errorf("Expected %+v, got %+v", want, fp)
	}
}

func TestParseFpcalc_Errors(t *testing.T) {
	if _, err := parseFpcalc([]byte("not json"), "song.mp3"); !errors.Is(err, domain.ErrFingerprint) {
		t.Errorf("Expected ErrFingerprint for malformed output, got %v", err)
	}
	if _, err := parseFpcalc([]byte(`{"duration": 1, "fingerprint": []}`), "song.mp3"); !errors.Is(err, domain.ErrFingerprint) {
		t.Errorf("Expected ErrFingerprint for empty fingerprint, got %v", err)
	}
}
