package domain

import (
	"slices"
	"time"
)

// Stats is the merge-sensitive slice of a song's statistics, shared by
// the host library, the local PRDB and remote peers. Timestamps are
// epoch seconds; zero means "never" and loses every max-comparison.
type Stats struct {
	Rating      int         `json:"rating"`
	RatedAt     int64       `json:"rated_at"`
	PlayCount   int         `json:"playcount"`
	SkipCount   int         `json:"skipcount"`
	Added       int64       `json:"added"`
	LastPlayed  int64       `json:"lastplayed"`
	LastStarted int64       `json:"laststarted"`
	Playlists   StringSlice `json:"playlists"`
}

// Equal reports whether two stats are observably identical. RatedAt is
// bookkeeping for the merge, not an observable field.
func (s Stats) Equal(o Stats) bool {
	return s.Rating == o.Rating &&
		s.PlayCount == o.PlayCount &&
		s.SkipCount == o.SkipCount &&
		s.Added == o.Added &&
		s.LastPlayed == o.LastPlayed &&
		s.LastStarted == o.LastStarted &&
		slices.Equal(s.Playlists, o.Playlists)
}

// SongRecord is one row of the PRDB. The fingerprint, not the file
// path, is the durable identity key; basename/dirname are informational.
type SongRecord struct {
	ID          int64       `json:"song_id" db:"song_id"`
	Fingerprint string      `json:"fingerprint" db:"fingerprint"`
	FpHash      int64       `json:"fp_hash" db:"fp_hash"`
	Basename    string      `json:"basename" db:"basename"`
	Dirname     string      `json:"dirname" db:"dirname"`
	Rating      int         `json:"rating" db:"rating"`
	PlayCount   int         `json:"playcount" db:"playcount"`
	SkipCount   int         `json:"skipcount" db:"skipcount"`
	Added       int64       `json:"added" db:"added"`
	LastPlayed  int64       `json:"lastplayed" db:"lastplayed"`
	LastStarted int64       `json:"laststarted" db:"laststarted"`
	Playlists   StringSlice `json:"playlists" db:"playlists"`
	CreatedAt   int64       `json:"created_at" db:"created_at"`
	UpdatedAt   int64       `json:"updated_at" db:"updated_at"`
}

// Stats extracts the merge-sensitive fields. The record's updated_at
// doubles as the "last rated" timestamp of the PRDB side.
func (r *SongRecord) Stats() Stats {
	return Stats{
		Rating:      r.Rating,
		RatedAt:     r.UpdatedAt,
		PlayCount:   r.PlayCount,
		SkipCount:   r.SkipCount,
		Added:       r.Added,
		LastPlayed:  r.LastPlayed,
		LastStarted: r.LastStarted,
		Playlists:   r.Playlists,
	}
}

// ApplyStats copies merged stats onto the record.
func (r *SongRecord) ApplyStats(s Stats) {
	r.Rating = s.Rating
	r.PlayCount = s.PlayCount
	r.SkipCount = s.SkipCount
	r.Added = s.Added
	r.LastPlayed = s.LastPlayed
	r.LastStarted = s.LastStarted
	r.Playlists = s.Playlists
}

// PassSummary is the result of one reconciliation pass. Per-song
// failures are aggregated here and never abort the pass.
type PassSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Processed int `json:"processed"`
	Merged    int `json:"merged"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`

	// Remote merge outcome; empty RemoteError means the phase either
	// succeeded or was not configured.
	RemoteApplied int    `json:"remote_applied"`
	RemotePushed  int    `json:"remote_pushed"`
	RemoteError   string `json:"remote_error,omitempty"`

	Failures []SongFailure `json:"failures,omitempty"`
}

// SongFailure names one song that could not be reconciled this pass.
type SongFailure struct {
	Song string `json:"song"`
	Err  string `json:"error"`
}
