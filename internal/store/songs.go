package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/spimanov/prdbd/internal/domain"
	"github.com/spimanov/prdbd/internal/fingerprint"
)

// FindByFingerprint returns the record for a fingerprint, or nil when
// the fingerprint is unknown.
func (db *DB) FindByFingerprint(fp string) (*domain.SongRecord, error) {
	var rec domain.SongRecord
	err := db.Get(&rec, `SELECT * FROM songs WHERE fingerprint = ?`, fp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find song by fingerprint: %w", err)
	}
	return &rec, nil
}

// Upsert persists a merge-resolved record. It inserts when the
// fingerprint is absent and updates when rec.ID matches the existing
// row. A write that would put an existing fingerprint under a different
// song id fails with domain.ErrConstraintViolation.
//
// Returns true when the row changed. A no-op upsert (identical
// observable fields) leaves updated_at untouched. The write is
// committed before Upsert returns.
func (db *DB) Upsert(rec *domain.SongRecord) (bool, error) {
	tx, err := db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var existing domain.SongRecord
	err = tx.Get(&existing, `SELECT * FROM songs WHERE fingerprint = ?`, rec.Fingerprint)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := insertSong(tx, rec); err != nil {
			return false, err
		}
	case err != nil:
		return false, fmt.Errorf("failed to look up fingerprint: %w", err)
	default:
		if rec.ID != existing.ID {
			return false, fmt.Errorf("%w: fingerprint %s belongs to song %d, not %d",
				domain.ErrConstraintViolation, rec.Fingerprint, existing.ID, rec.ID)
		}
		if existing.Stats().Equal(rec.Stats()) &&
			existing.Basename == rec.Basename && existing.Dirname == rec.Dirname {
			// Update is not needed
			rec.CreatedAt = existing.CreatedAt
			rec.UpdatedAt = existing.UpdatedAt
			return false, nil
		}
		if err := updateSong(tx, rec); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return true, nil
}

func insertSong(tx *sqlx.Tx, rec *domain.SongRecord) error {
	now := time.Now().Unix()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	rows, err := tx.NamedQuery(`INSERT INTO songs (
		fingerprint, fp_hash, basename, dirname,
		rating, playcount, skipcount,
		added, lastplayed, laststarted, playlists,
		created_at, updated_at
	) VALUES (
		:fingerprint, :fp_hash, :basename, :dirname,
		:rating, :playcount, :skipcount,
		:added, :lastplayed, :laststarted, :playlists,
		:created_at, :updated_at
	) RETURNING song_id`, rec)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: fingerprint %s", domain.ErrConstraintViolation, rec.Fingerprint)
		}
		return fmt.Errorf("failed to insert song: %w", err)
	}
	defer rows.Close() //nolint:errcheck // deferred cleanup

	if rows.Next() {
		if err := rows.Scan(&rec.ID); err != nil {
			return fmt.Errorf("failed to scan song id: %w", err)
		}
	} else if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating returning rows: %w", err)
	}
	return nil
}

func updateSong(tx *sqlx.Tx, rec *domain.SongRecord) error {
	rec.UpdatedAt = time.Now().Unix()

	result, err := tx.NamedExec(`UPDATE songs SET
		fp_hash = :fp_hash, basename = :basename, dirname = :dirname,
		rating = :rating, playcount = :playcount, skipcount = :skipcount,
		added = :added, lastplayed = :lastplayed, laststarted = :laststarted,
		playlists = :playlists, updated_at = :updated_at
	WHERE song_id = :song_id`, rec)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("song with id %d not found", rec.ID)
	}
	return nil
}

// List returns a fresh snapshot of all records, used for bulk sync export.
func (db *DB) List() ([]*domain.SongRecord, error) {
	var recs []*domain.SongRecord
	if err := db.Select(&recs, `SELECT * FROM songs ORDER BY song_id`); err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	return recs, nil
}

func (db *DB) Count() (int, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM songs`)
	return count, err
}

// DuplicatePair names two records whose fingerprint simhashes are
// within maxDistance bits of each other, i.e. likely the same audio
// stored under two fingerprints.
type DuplicatePair struct {
	A        *domain.SongRecord `json:"a"`
	B        *domain.SongRecord `json:"b"`
	Distance int                `json:"distance"`
}

// DuplicateCandidates compares all records pairwise by simhash.
func (db *DB) DuplicateCandidates(maxDistance int) ([]DuplicatePair, error) {
	recs, err := db.List()
	if err != nil {
		return nil, err
	}

	var pairs []DuplicatePair
	for i := 0; i < len(recs); i++ {
		if recs[i].FpHash == 0 {
			// Unknown simhash (record created from a cached digest).
			continue
		}
		for j := i + 1; j < len(recs); j++ {
			if recs[j].FpHash == 0 {
				continue
			}
			d := fingerprint.HammingDistance(uint32(recs[i].FpHash), uint32(recs[j].FpHash))
			if d <= maxDistance {
				pairs = append(pairs, DuplicatePair{A: recs[i], B: recs[j], Distance: d})
			}
		}
	}
	return pairs, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
