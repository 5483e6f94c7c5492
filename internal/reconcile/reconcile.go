// Package reconcile is the merge engine: it resolves fingerprints for
// host songs, keeps the PRDB keyed by fingerprint, and converges
// statistics between the host library, the local store and an optional
// remote peer.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spimanov/prdbd/internal/domain"
	"github.com/spimanov/prdbd/internal/fingerprint"
	"github.com/spimanov/prdbd/internal/library"
	"github.com/spimanov/prdbd/internal/logger"
	"github.com/spimanov/prdbd/internal/peer"
	"github.com/spimanov/prdbd/internal/store"
)

type Reconciler struct {
	store   *store.DB
	lib     library.Library
	fp      fingerprint.Provider
	workers int
	log     *logger.Logger

	peerMu sync.RWMutex
	peer   peer.Peer

	locks *keyedLocks

	mu      sync.Mutex
	running bool
	last    *domain.PassSummary
}

func New(st *store.DB, lib library.Library, fp fingerprint.Provider, workers int, log *logger.Logger) *Reconciler {
	if workers < 1 {
		workers = 1
	}
	return &Reconciler{
		store:   st,
		lib:     lib,
		fp:      fp,
		workers: workers,
		log:     log.WithComponent("reconcile"),
		locks:   newKeyedLocks(),
	}
}

// SetPeer configures (or clears, with nil) the remote peer used by the
// remote merge phase.
func (r *Reconciler) SetPeer(p peer.Peer) {
	r.peerMu.Lock()
	r.peer = p
	r.peerMu.Unlock()
}

func (r *Reconciler) currentPeer() peer.Peer {
	r.peerMu.RLock()
	defer r.peerMu.RUnlock()
	return r.peer
}

// LastSummary returns the summary of the most recently finished pass.
func (r *Reconciler) LastSummary() *domain.PassSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// songOutcome classifies one song's fate within a pass.
type songOutcome int

const (
	outcomeClean songOutcome = iota // already converged, nothing written
	outcomeMerged
	outcomeSkipped // stale reference or fingerprint failure; retried next pass
	outcomeErrored
)

// RunPass runs one full reconciliation pass: identity resolution,
// local host/store merge, then the remote merge when a peer is set.
// Per-song failures are aggregated into the summary and never abort
// the pass; only a store-level failure is fatal. At most one pass runs
// at a time (domain.ErrPassRunning otherwise).
func (r *Reconciler) RunPass(ctx context.Context) (*domain.PassSummary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, domain.ErrPassRunning
	}
	r.running = true
	r.mu.Unlock()

	summary := &domain.PassSummary{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
	defer func() {
		summary.FinishedAt = time.Now()
		r.mu.Lock()
		r.running = false
		r.last = summary
		r.mu.Unlock()
	}()

	log := r.log.WithPass(summary.ID)
	log.Info("reconciliation pass started")

	songs, err := r.lib.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate host library: %w", err)
	}

	// Fingerprint computation dominates the pass cost and is
	// independent per song, so songs fan out over a bounded worker
	// pool. Merge and writes are serialized per fingerprint.
	var (
		wg     sync.WaitGroup
		sumMu  sync.Mutex
		fatal  error
		sem    = make(chan struct{}, r.workers)
		byFp   = make(map[string]library.Song)
		byFpMu sync.Mutex
	)

	for _, song := range songs {
		// Cooperative cancellation between songs: in-flight songs
		// finish their merge atomically, no new songs start.
		if ctx.Err() != nil {
			break
		}
		sumMu.Lock()
		stop := fatal != nil
		sumMu.Unlock()
		if stop {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(song library.Song) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, fp, err := r.reconcileSong(ctx, log, song)

			if fp != "" {
				byFpMu.Lock()
				byFp[fp] = song
				byFpMu.Unlock()
			}

			sumMu.Lock()
			defer sumMu.Unlock()
			switch outcome {
			case outcomeMerged:
				summary.Processed++
				summary.Merged++
			case outcomeClean:
				summary.Processed++
			case outcomeSkipped:
				summary.Skipped++
				summary.Failures = append(summary.Failures, domain.SongFailure{Song: song.Path, Err: err.Error()})
			case outcomeErrored:
				summary.Errored++
				summary.Failures = append(summary.Failures, domain.SongFailure{Song: song.Path, Err: err.Error()})
				if isFatal(err) && fatal == nil {
					fatal = err
				}
			}
		}(song)
	}
	wg.Wait()

	if fatal != nil {
		log.Error("pass aborted on store failure", "error", fatal)
		return summary, fatal
	}

	if p := r.currentPeer(); p != nil && ctx.Err() == nil {
		applied, pushed, err := r.remoteMerge(ctx, log, p, byFp)
		summary.RemoteApplied = applied
		summary.RemotePushed = pushed
		if err != nil {
			// Remote unavailability never invalidates the local merge.
			summary.RemoteError = err.Error()
			log.Warn("remote merge failed", "error", err)
		}
	}

	log.Info("reconciliation pass finished",
		"processed", summary.Processed,
		"merged", summary.Merged,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
		"remote_applied", summary.RemoteApplied)

	return summary, nil
}

// reconcileSong resolves one song's identity and converges its stats
// between host and store. The returned fingerprint is "" when identity
// resolution did not complete.
func (r *Reconciler) reconcileSong(ctx context.Context, log *logger.Logger, song library.Song) (songOutcome, string, error) {
	fp, err := r.lib.CachedFingerprint(song)
	if err != nil {
		return classify(err), "", err
	}

	var hash uint32
	if fp == "" {
		computed, err := r.fp.Compute(ctx, song.Path)
		if err != nil {
			log.WithSong(song.Path, "").Warn("fingerprinting failed", "error", err)
			return classify(err), "", err
		}
		fp = computed.Digest
		hash = computed.Hash
		if err := r.lib.SetCachedFingerprint(song, fp); err != nil {
			return classify(err), "", err
		}
	}

	r.locks.lock(fp)
	defer r.locks.unlock(fp)

	rec, err := r.store.FindByFingerprint(fp)
	if err != nil {
		return outcomeErrored, fp, fatalErr(err)
	}

	hostStats, err := r.lib.ReadStats(song)
	if err != nil {
		return classify(err), fp, err
	}

	var storedStats domain.Stats
	if rec != nil {
		storedStats = rec.Stats()
	}
	merged := MergeStats(hostStats, storedStats, rec != nil)

	if rec == nil {
		rec = &domain.SongRecord{Fingerprint: fp}
	}
	if rec.FpHash == 0 && hash != 0 {
		rec.FpHash = int64(hash)
	}
	rec.Basename = song.Basename()
	rec.Dirname = song.Dirname()
	rec.ApplyStats(merged)

	changed, err := r.store.Upsert(rec)
	if err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			return outcomeErrored, fp, err
		}
		return outcomeErrored, fp, fatalErr(err)
	}

	if !merged.Equal(hostStats) {
		// Store is already committed; a stale host here is the allowed
		// partial outcome and the song is retried next pass.
		if err := r.lib.WriteStats(song, merged); err != nil {
			return classify(err), fp, err
		}
		changed = true
	}

	if changed {
		log.WithSong(song.Path, fp).Debug("song reconciled")
		return outcomeMerged, fp, nil
	}
	return outcomeClean, fp, nil
}

// remoteMerge exchanges batches with the peer: apply theirs, then push
// the converged snapshot back. Per-record failures are isolated.
func (r *Reconciler) remoteMerge(ctx context.Context, log *logger.Logger, p peer.Peer, hostByFp map[string]library.Song) (applied, pushed int, err error) {
	batch, err := p.Fetch(ctx)
	if err != nil {
		return 0, 0, err
	}
	log.Info("applying remote batch", "operation_id", batch.OperationID, "records", len(batch.Records))

	for _, remote := range batch.Records {
		if ctx.Err() != nil {
			return applied, 0, ctx.Err()
		}
		changed, err := r.applyRemote(remote, hostByFp)
		if err != nil {
			if isFatal(err) {
				return applied, 0, err
			}
			log.Warn("skipping remote record", "fingerprint", remote.Fingerprint, "error", err)
			continue
		}
		if changed {
			applied++
		}
	}

	recs, err := r.store.List()
	if err != nil {
		return applied, 0, fatalErr(err)
	}
	if err := p.Push(ctx, peer.NewBatch(recs)); err != nil {
		return applied, 0, err
	}
	return applied, len(recs), nil
}

// applyRemote merges one remote record into the local store and, when
// the fingerprint maps to a known host song, writes the converged stats
// back to the host too.
func (r *Reconciler) applyRemote(remote *domain.SongRecord, hostByFp map[string]library.Song) (bool, error) {
	r.locks.lock(remote.Fingerprint)
	defer r.locks.unlock(remote.Fingerprint)

	local, err := r.store.FindByFingerprint(remote.Fingerprint)
	if err != nil {
		return false, fatalErr(err)
	}

	var (
		rec    *domain.SongRecord
		merged domain.Stats
	)
	if local == nil {
		// Present only remotely: insert locally, no merge needed.
		merged = remote.Stats()
		rec = &domain.SongRecord{
			Fingerprint: remote.Fingerprint,
			FpHash:      remote.FpHash,
			Basename:    remote.Basename,
			Dirname:     remote.Dirname,
			CreatedAt:   remote.CreatedAt,
		}
		rec.ApplyStats(merged)
	} else {
		merged = MergeStats(remote.Stats(), local.Stats(), true)
		rec = local
		rec.ApplyStats(merged)
		if rec.FpHash == 0 && remote.FpHash != 0 {
			rec.FpHash = remote.FpHash
		}
	}

	changed, err := r.store.Upsert(rec)
	if err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			return false, err
		}
		return false, fatalErr(err)
	}

	if song, ok := hostByFp[remote.Fingerprint]; ok && changed {
		hostStats, err := r.lib.ReadStats(song)
		if err == nil && !merged.Equal(hostStats) {
			// Stale host reference here is skip-and-continue.
			_ = r.lib.WriteStats(song, merged)
		}
	}

	return changed, nil
}

// ExportBatch snapshots the local store as a sync batch.
func (r *Reconciler) ExportBatch(ctx context.Context) (*peer.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, err := r.store.List()
	if err != nil {
		return nil, err
	}
	return peer.NewBatch(recs), nil
}

// ImportBatch merges an incoming batch into the local store without a
// host pass. Returns the number of records that changed local state.
func (r *Reconciler) ImportBatch(ctx context.Context, b *peer.Batch) (int, error) {
	applied := 0
	for _, remote := range b.Records {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		changed, err := r.applyRemote(remote, nil)
		if err != nil {
			if isFatal(err) {
				return applied, err
			}
			r.log.Warn("skipping imported record", "fingerprint", remote.Fingerprint, "error", err)
			continue
		}
		if changed {
			applied++
		}
	}
	return applied, nil
}

// classify maps a per-song error to its outcome: retriable conditions
// (stale host reference, failed fingerprinting, cancellation) are
// skips, anything else is an error.
func classify(err error) songOutcome {
	switch {
	case errors.Is(err, domain.ErrStaleReference),
		errors.Is(err, domain.ErrFingerprint),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return outcomeSkipped
	default:
		return outcomeErrored
	}
}

// fatalError marks store-level failures that must abort the pass.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatalErr(err error) error {
	return &fatalError{err: err}
}

func isFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
