package store

const Schema = `
CREATE TABLE IF NOT EXISTS songs (
	song_id INTEGER PRIMARY KEY AUTOINCREMENT,
	fingerprint TEXT UNIQUE NOT NULL,

	-- Fast 32-bit simhash of the raw fingerprint, pre-filter for
	-- duplicate detection.
	fp_hash INTEGER NOT NULL DEFAULT 0,

	-- Last known location; informational only, never part of identity.
	basename TEXT NOT NULL DEFAULT '',
	dirname TEXT NOT NULL DEFAULT '',

	-- Statistics
	rating INTEGER NOT NULL DEFAULT 0,
	playcount INTEGER NOT NULL DEFAULT 0,
	skipcount INTEGER NOT NULL DEFAULT 0,
	added INTEGER NOT NULL DEFAULT 0,
	lastplayed INTEGER NOT NULL DEFAULT 0,
	laststarted INTEGER NOT NULL DEFAULT 0,
	playlists TEXT NOT NULL DEFAULT '[]',  -- JSON array

	-- Timestamps (epoch seconds)
	created_at INTEGER NOT NULL DEFAULT (unixepoch()),
	updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_songs_fp_hash ON songs(fp_hash);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`
