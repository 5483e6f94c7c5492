// Package fingerprint derives the content-based identity of a song.
//
// The raw acoustic fingerprint is an array of uint32 subfingerprints as
// produced by chromaprint. Two values are derived from it and stored:
// a sha1 digest (the identity key) and a 32-bit simhash (a fast
// pre-filter for near-duplicate detection).
package fingerprint

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"math/bits"
)

// Fingerprint is the stable content identity of a song.
type Fingerprint struct {
	// Digest is a 40-char lowercase hex sha1 of the raw fingerprint data.
	Digest string

	// Hash is the simhash of the raw fingerprint data.
	Hash uint32
}

// Provider computes fingerprints from audio files. Computation may take
// seconds per file and must honor ctx cancellation.
type Provider interface {
	Compute(ctx context.Context, path string) (Fingerprint, error)
}

// New derives a Fingerprint from raw chromaprint data.
func New(data []uint32) Fingerprint {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	sum := sha1.Sum(buf)
	return Fingerprint{
		Digest: hex.EncodeToString(sum[:]),
		Hash:   SimHash(data),
	}
}

// SimHash folds the subfingerprints into a single 32-bit hash: bit i of
// the result is set when bit i is set in more than half of the inputs.
func SimHash(data []uint32) uint32 {
	var v [32]int
	for _, local := range data {
		for j := 0; j < 32; j++ {
			v[j] += int((local >> j) & 1)
		}
	}

	threshold := len(data) / 2
	var hash uint32
	for i := 0; i < 32; i++ {
		if v[i] > threshold {
			hash |= 1 << i
		}
	}
	return hash
}

// HammingDistance counts differing bits between two simhashes.
func HammingDistance(a, b uint32) int {
	return bits.OnesCount32(a ^ b)
}
