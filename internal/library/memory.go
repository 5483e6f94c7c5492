package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/spimanov/prdbd/internal/domain"
)

// MemoryLibrary is an in-memory Library, used by embedding hosts that
// hold their song records in memory, and by tests.
type MemoryLibrary struct {
	mu    sync.Mutex
	songs map[string]*memorySong
}

type memorySong struct {
	fingerprint string
	stats       domain.Stats
}

func NewMemoryLibrary() *MemoryLibrary {
	return &MemoryLibrary{songs: make(map[string]*memorySong)}
}

// Add registers a host song. Replaces any existing record at the path.
func (l *MemoryLibrary) Add(path string, stats domain.Stats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.songs[path] = &memorySong{stats: stats}
}

// Remove drops a song, simulating concurrent removal from the host.
func (l *MemoryLibrary) Remove(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.songs, path)
}

func (l *MemoryLibrary) Enumerate(ctx context.Context) ([]Song, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	songs := make([]Song, 0, len(l.songs))
	for path := range l.songs {
		songs = append(songs, Song{Path: path})
	}
	return songs, nil
}

func (l *MemoryLibrary) CachedFingerprint(song Song) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.get(song)
	if err != nil {
		return "", err
	}
	return s.fingerprint, nil
}

func (l *MemoryLibrary) SetCachedFingerprint(song Song, fp string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.get(song)
	if err != nil {
		return err
	}
	s.fingerprint = fp
	return nil
}

func (l *MemoryLibrary) ReadStats(song Song) (domain.Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.get(song)
	if err != nil {
		return domain.Stats{}, err
	}
	return s.stats, nil
}

func (l *MemoryLibrary) WriteStats(song Song, stats domain.Stats) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.get(song)
	if err != nil {
		return err
	}
	s.stats = stats
	return nil
}

func (l *MemoryLibrary) get(song Song) (*memorySong, error) {
	s, ok := l.songs[song.Path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStaleReference, song.Path)
	}
	return s, nil
}
