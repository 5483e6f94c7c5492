package constants

import "time"

const (
	DefaultPort    = "8537"
	DefaultDBPath  = "personal.db"
	DefaultFpcalc  = "fpcalc"
	DefaultWorkers = 2

	// Host ratings are floats in [0, 1]; the PRDB stores them as
	// integer thousandths so equality checks stay exact.
	RatingScale = 1000

	// Fingerprints whose simhashes differ by at most this many bits
	// are reported as duplicate candidates.
	DefaultHammingDistance = 3

	// Wire format version for sync batches.
	BatchVersion = 1

	DefaultFpcalcTimeout = 2 * time.Minute

	DefaultRetryCount = 3
	DefaultRetryBase  = 500 * time.Millisecond

	DefaultMinRequestInterval = 100 * time.Millisecond
)

// Settings keys.
const (
	SettingPeerURL           = "peer_url"
	SettingPeerFile          = "peer_file"
	SettingLastSyncOperation = "last_sync_operation_uuid"
)
