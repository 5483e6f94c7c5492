package reconcile

import (
	"slices"

	"github.com/spimanov/prdbd/internal/domain"
)

// MergeStats converges two statistics for the same fingerprint into one:
//   - playcount/skipcount: max of both sides; counters only grow, so a
//     stale side never destroys progress made on the other
//   - added/lastplayed/laststarted: most recent timestamp wins, absent
//     (zero) loses to anything
//   - playlists: set union
//   - rating: the most recently rated side wins; on a tie the stored
//     value is kept so repeated merges cannot oscillate
//
// When no stored record exists yet (storeExists false), the host stats
// seed the record as-is.
func MergeStats(host, stored domain.Stats, storeExists bool) domain.Stats {
	if !storeExists {
		seed := host
		seed.Playlists = unionPlaylists(host.Playlists, nil)
		return seed
	}

	merged := domain.Stats{
		PlayCount:   max(host.PlayCount, stored.PlayCount),
		SkipCount:   max(host.SkipCount, stored.SkipCount),
		Added:       max(host.Added, stored.Added),
		LastPlayed:  max(host.LastPlayed, stored.LastPlayed),
		LastStarted: max(host.LastStarted, stored.LastStarted),
		Playlists:   unionPlaylists(host.Playlists, stored.Playlists),
	}

	if host.RatedAt > stored.RatedAt {
		merged.Rating = host.Rating
		merged.RatedAt = host.RatedAt
	} else {
		merged.Rating = stored.Rating
		merged.RatedAt = stored.RatedAt
	}

	return merged
}

// unionPlaylists returns the sorted, deduplicated union of both sets.
// Sorted output keeps the serialized form canonical, so equality checks
// and the no-op upsert detection stay reliable.
func unionPlaylists(a, b domain.StringSlice) domain.StringSlice {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	union := make(domain.StringSlice, 0, len(a)+len(b))
	union = append(union, a...)
	union = append(union, b...)
	slices.Sort(union)
	return slices.Compact(union)
}
