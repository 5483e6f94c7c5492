package domain

import "errors"

var (
	// ErrFingerprint means the provider could not produce a fingerprint
	// for a song. The song is skipped and retried on the next pass.
	ErrFingerprint = errors.New("fingerprint computation failed")

	// ErrConstraintViolation means a write would have duplicated a
	// fingerprint under a different song id. Surfaced, never auto-resolved.
	ErrConstraintViolation = errors.New("fingerprint uniqueness violation")

	// ErrStaleReference means a host song vanished mid-pass.
	ErrStaleReference = errors.New("stale host song reference")

	// ErrSync means a remote batch exchange failed. Only the remote
	// merge phase is affected.
	ErrSync = errors.New("sync with peer failed")

	// ErrPassRunning means a reconciliation pass is already in progress.
	ErrPassRunning = errors.New("reconciliation pass already running")
)
