package peer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spimanov/prdbd/internal/constants"
	"github.com/spimanov/prdbd/internal/domain"
)

// Batch is the sync wire format: a versioned, identified snapshot of
// fingerprint-keyed records.
type Batch struct {
	Version     int                  `json:"version"`
	OperationID string               `json:"operation_id"`
	ExportedAt  int64                `json:"exported_at"`
	Records     []*domain.SongRecord `json:"records"`
}

// NewBatch wraps records in a batch with a fresh operation id.
func NewBatch(records []*domain.SongRecord) *Batch {
	return &Batch{
		Version:     constants.BatchVersion,
		OperationID: uuid.New().String(),
		ExportedAt:  time.Now().Unix(),
		Records:     records,
	}
}

// EncodeBatch serializes a batch to its wire form.
func EncodeBatch(b *Batch) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding batch: %v", domain.ErrSync, err)
	}
	return data, nil
}

// DecodeBatch parses a wire blob, rejecting unknown versions.
func DecodeBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: malformed batch: %v", domain.ErrSync, err)
	}
	if b.Version != constants.BatchVersion {
		return nil, fmt.Errorf("%w: unsupported batch version %d", domain.ErrSync, b.Version)
	}
	return &b, nil
}
