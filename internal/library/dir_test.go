package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spimanov/prdbd/internal/domain"
	"github.com/spimanov/prdbd/internal/logger"
)

func writeDummyMP3(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	audio := append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 128)...)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestDirLibrary_Enumerate(t *testing.T) {
	root := t.TempDir()
	writeDummyMP3(t, filepath.Join(root, "a.mp3"))
	writeDummyMP3(t, filepath.Join(root, "albums", "b.mp3"))
	if err := os.WriteFile(filepath.Join(root, "cover.jpg"), []byte("img"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	lib := NewDirLibrary(root, logger.Default())
	songs, err := lib.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("Expected 2 songs, got %d: %v", len(songs), songs)
	}
	for _, s := range songs {
		if filepath.Ext(s.Path) != ".mp3" {
			t.Errorf("Unexpected song %s", s.Path)
		}
	}
}

func TestDirLibrary_FingerprintCache(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.mp3")
	writeDummyMP3(t, path)

	lib := NewDirLibrary(root, logger.Default())
	song := Song{Path: path}

	fp, err := lib.CachedFingerprint(song)
	if err != nil {
		t.Fatalf("CachedFingerprint failed: %v", err)
	}
	if fp != "" {
		t.Errorf("Expected no cached fingerprint, got %q", fp)
	}

	const digest = "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	if err := lib.SetCachedFingerprint(song, digest); err != nil {
		t.Fatalf("SetCachedFingerprint failed: %v", err)
	}

	fp, err = lib.CachedFingerprint(song)
	if err != nil {
		t.Fatalf("CachedFingerprint failed: %v", err)
	}
	if fp != digest {
		t.Errorf("Expected cached fingerprint %s, got %s", digest, fp)
	}
}

func TestDirLibrary_StatsRoundTrip(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.mp3")
	writeDummyMP3(t, path)

	lib := NewDirLibrary(root, logger.Default())
	song := Song{Path: path}

	want := domain.Stats{Rating: 700, PlayCount: 4, Playlists: domain.StringSlice{"favorites"}}
	if err := lib.WriteStats(song, want); err != nil {
		t.Fatalf("WriteStats failed: %v", err)
	}

	got, err := lib.ReadStats(song)
	if err != nil {
		t.Fatalf("ReadStats failed: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Stats lost on round trip: got %+v, want %+v", got, want)
	}
}

func TestDirLibrary_ClampsRating(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.mp3")
	writeDummyMP3(t, path)

	lib := NewDirLibrary(root, logger.Default())
	song := Song{Path: path}

	if err := lib.WriteStats(song, domain.Stats{Rating: 5000}); err != nil {
		t.Fatalf("WriteStats failed: %v", err)
	}
	got, err := lib.ReadStats(song)
	if err != nil {
		t.Fatalf("ReadStats failed: %v", err)
	}
	if got.Rating != 1000 {
		t.Errorf("Expected rating clamped to 1000, got %d", got.Rating)
	}
}

func TestDirLibrary_StaleReference(t *testing.T) {
	lib := NewDirLibrary(t.TempDir(), logger.Default())
	song := Song{Path: filepath.Join(lib.Root, "vanished.mp3")}

	if _, err := lib.CachedFingerprint(song); !errors.Is(err, domain.ErrStaleReference) {
		t.Errorf("Expected ErrStaleReference, got %v", err)
	}
	if _, err := lib.ReadStats(song); !errors.Is(err, domain.ErrStaleReference) {
		t.Errorf("Expected ErrStaleReference, got %v", err)
	}
	if err := lib.WriteStats(song, domain.Stats{}); !errors.Is(err, domain.ErrStaleReference) {
		t.Errorf("Expected ErrStaleReference, got %v", err)
	}
}

func TestSong_Paths(t *testing.T) {
	s := Song{Path: "/music/albums/song.mp3"}
	if s.Basename() != "song.mp3" {
		t.Errorf("Expected basename song.mp3, got %s", s.Basename())
	}
	if s.Dirname() != "/music/albums" {
		t.Errorf("Expected dirname /music/albums, got %s", s.Dirname())
	}
}
