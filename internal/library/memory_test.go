package library

import (
	"context"
	"errors"
	"testing"

	"github.com/spimanov/prdbd/internal/domain"
)

func TestMemoryLibrary(t *testing.T) {
	lib := NewMemoryLibrary()
	lib.Add("/a.mp3", domain.Stats{Rating: 500, PlayCount: 2})
	lib.Add("/b.mp3", domain.Stats{})

	songs, err := lib.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("Expected 2 songs, got %d", len(songs))
	}

	song := Song{Path: "/a.mp3"}
	stats, err := lib.ReadStats(song)
	if err != nil {
		t.Fatalf("ReadStats failed: %v", err)
	}
	if stats.Rating != 500 || stats.PlayCount != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	if err := lib.WriteStats(song, domain.Stats{Rating: 700}); err != nil {
		t.Fatalf("WriteStats failed: %v", err)
	}
	stats, _ = lib.ReadStats(song)
	if stats.Rating != 700 {
		t.Errorf("Expected rating 700 after write, got %d", stats.Rating)
	}

	if err := lib.SetCachedFingerprint(song, "abc"); err != nil {
		t.Fatalf("SetCachedFingerprint failed: %v", err)
	}
	fp, err := lib.CachedFingerprint(song)
	if err != nil {
		t.Fatalf("CachedFingerprint failed: %v", err)
	}
	if fp != "abc" {
		t.Errorf("Expected cached fingerprint abc, got %q", fp)
	}

	lib.Remove("/a.mp3")
	if _, err := lib.ReadStats(song); !errors.Is(err, domain.ErrStaleReference) {
		t.Errorf("Expected ErrStaleReference after removal, got %v", err)
	}
}
