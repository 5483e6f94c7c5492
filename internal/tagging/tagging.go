// Package tagging reads and writes the PRDB tags carried inside audio
// files: the cached fingerprint and the play statistics. Only the PRDB
// keys are touched; all other tags are preserved.
package tagging

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spimanov/prdbd/internal/domain"
)

// Tag keys. The same names are used as TXXX descriptions on MP3 and as
// Vorbis comment fields on FLAC.
const (
	TagFingerprint = "FINGERPRINT"
	TagRating      = "RATING"
	TagPlayCount   = "PLAYCOUNT"
	TagSkipCount   = "SKIPCOUNT"
	TagAdded       = "ADDED"
	TagLastPlayed  = "LASTPLAYED"
	TagLastStarted = "LASTSTARTED"
	TagPlaylists   = "PLAYLISTS"
)

// ReadFingerprint returns the cached fingerprint tag, or "" when the
// song has not been fingerprinted yet.
func ReadFingerprint(path string) (string, error) {
	values, err := readFields(path, TagFingerprint)
	if err != nil {
		return "", err
	}
	return values[TagFingerprint], nil
}

// WriteFingerprint caches the fingerprint on the song file.
func WriteFingerprint(path, fp string) error {
	return writeFields(path, map[string]string{TagFingerprint: fp})
}

// ReadStats extracts play statistics from the song's tags. Absent
// fields read as zero values.
func ReadStats(path string) (domain.Stats, error) {
	values, err := readFields(path,
		TagRating, TagPlayCount, TagSkipCount,
		TagAdded, TagLastPlayed, TagLastStarted, TagPlaylists)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{
		Rating:      atoi(values[TagRating]),
		PlayCount:   atoi(values[TagPlayCount]),
		SkipCount:   atoi(values[TagSkipCount]),
		Added:       atoi64(values[TagAdded]),
		LastPlayed:  atoi64(values[TagLastPlayed]),
		LastStarted: atoi64(values[TagLastStarted]),
	}
	if raw := values[TagPlaylists]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &stats.Playlists); err != nil {
			return domain.Stats{}, fmt.Errorf("malformed playlists tag in %s: %w", path, err)
		}
	}
	return stats, nil
}

// WriteStats persists play statistics into the song's tags.
func WriteStats(path string, s domain.Stats) error {
	playlists, err := json.Marshal(s.Playlists)
	if err != nil {
		return fmt.Errorf("failed to encode playlists: %w", err)
	}
	return writeFields(path, map[string]string{
		TagRating:      strconv.Itoa(s.Rating),
		TagPlayCount:   strconv.Itoa(s.PlayCount),
		TagSkipCount:   strconv.Itoa(s.SkipCount),
		TagAdded:       strconv.FormatInt(s.Added, 10),
		TagLastPlayed:  strconv.FormatInt(s.LastPlayed, 10),
		TagLastStarted: strconv.FormatInt(s.LastStarted, 10),
		TagPlaylists:   string(playlists),
	})
}

func readFields(path string, keys ...string) (map[string]string, error) {
	switch ext(path) {
	case ".mp3":
		return readMP3Fields(path, keys)
	case ".flac":
		return readFLACFields(path, keys)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext(path))
	}
}

func writeFields(path string, fields map[string]string) error {
	switch ext(path) {
	case ".mp3":
		return writeMP3Fields(path, fields)
	case ".flac":
		return writeFLACFields(path, fields)
	default:
		return fmt.Errorf("unsupported file format: %s", ext(path))
	}
}

// Supported reports whether the file extension carries PRDB tags.
func Supported(path string) bool {
	e := ext(path)
	return e == ".mp3" || e == ".flac"
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
