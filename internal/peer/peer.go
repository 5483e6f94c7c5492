// Package peer exchanges serialized PRDB record batches with a remote
// peer instance. The reconciler only needs "give me your records" /
// "take mine"; any transport that satisfies Peer works.
package peer

import "context"

// Peer is the remote sync client contract. All failures are reported as
// domain.ErrSync-wrapped errors so that only the remote merge phase of
// a pass is affected.
type Peer interface {
	// Fetch imports the peer's record batch. A peer with no data yet
	// returns an empty batch, not an error.
	Fetch(ctx context.Context) (*Batch, error)

	// Push exports a local batch to the peer.
	Push(ctx context.Context, b *Batch) error
}
