// Package library bridges the host music library's path-keyed song
// records and the fingerprint-keyed domain model. The reconciler only
// ever talks to the Library interface; host mutation happens behind
// explicit get/set operations with explicit failure modes.
package library

import (
	"context"
	"path/filepath"

	"github.com/spimanov/prdbd/internal/domain"
)

// Song is a handle to one host song record, keyed by its current path.
type Song struct {
	Path string `json:"path"`
}

func (s Song) Basename() string {
	return filepath.Base(s.Path)
}

func (s Song) Dirname() string {
	return filepath.Dir(s.Path)
}

// Library is the host library adapter contract. Operations on a song
// that vanished from the host return domain.ErrStaleReference; the
// caller treats that as skip-and-continue.
type Library interface {
	// Enumerate lists all songs currently known to the host. Finite,
	// order irrelevant.
	Enumerate(ctx context.Context) ([]Song, error)

	// CachedFingerprint reads the fingerprint tag; "" means the song
	// has not been fingerprinted yet.
	CachedFingerprint(song Song) (string, error)

	// SetCachedFingerprint writes the fingerprint tag back to the host
	// record.
	SetCachedFingerprint(song Song, fp string) error

	ReadStats(song Song) (domain.Stats, error)
	WriteStats(song Song, stats domain.Stats) error
}
