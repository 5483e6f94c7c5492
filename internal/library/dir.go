package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spimanov/prdbd/internal/constants"
	"github.com/spimanov/prdbd/internal/domain"
	"github.com/spimanov/prdbd/internal/logger"
	"github.com/spimanov/prdbd/internal/tagging"
)

// DirLibrary treats a directory tree of mp3/flac files as the host
// library: the files' own tags are the host's persistence, so ratings
// and counts written there survive for any player that reads them.
type DirLibrary struct {
	Root   string
	Logger *logger.Logger
}

func NewDirLibrary(root string, log *logger.Logger) *DirLibrary {
	return &DirLibrary{
		Root:   root,
		Logger: log.WithComponent("library"),
	}
}

func (l *DirLibrary) Enumerate(ctx context.Context) ([]Song, error) {
	var songs []Song
	err := filepath.WalkDir(l.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A vanished or unreadable entry is not fatal to the walk.
			l.Logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() && tagging.Supported(path) {
			songs = append(songs, Song{Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", l.Root, err)
	}
	return songs, nil
}

func (l *DirLibrary) CachedFingerprint(song Song) (string, error) {
	if err := l.check(song); err != nil {
		return "", err
	}
	return tagging.ReadFingerprint(song.Path)
}

func (l *DirLibrary) SetCachedFingerprint(song Song, fp string) error {
	if err := l.check(song); err != nil {
		return err
	}
	return tagging.WriteFingerprint(song.Path, fp)
}

// ReadStats pulls host-side truth from the file's tags. File tags carry
// no "last rated" timestamp, so RatedAt stays zero and the PRDB value
// is authoritative for ratings after the first sync.
func (l *DirLibrary) ReadStats(song Song) (domain.Stats, error) {
	if err := l.check(song); err != nil {
		return domain.Stats{}, err
	}
	stats, err := tagging.ReadStats(song.Path)
	if err != nil {
		return domain.Stats{}, err
	}
	stats.Rating = clampRating(stats.Rating)
	return stats, nil
}

func (l *DirLibrary) WriteStats(song Song, stats domain.Stats) error {
	if err := l.check(song); err != nil {
		return err
	}
	stats.Rating = clampRating(stats.Rating)
	return tagging.WriteStats(song.Path, stats)
}

// check maps a vanished file to ErrStaleReference.
func (l *DirLibrary) check(song Song) error {
	if _, err := os.Stat(song.Path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrStaleReference, song.Path)
		}
		return err
	}
	return nil
}

func clampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > constants.RatingScale {
		return constants.RatingScale
	}
	return r
}
