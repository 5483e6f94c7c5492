package peer

import (
	"errors"
	"testing"

	"github.com/spimanov/prdbd/internal/domain"
)

func TestBatchRoundTrip(t *testing.T) {
	recs := []*domain.SongRecord{
		{
			ID:          1,
			Fingerprint: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			FpHash:      42,
			Basename:    "song.mp3",
			Rating:      700,
			PlayCount:   12,
			Playlists:   domain.StringSlice{"favorites"},
		},
	}

	b := NewBatch(recs)
	if b.OperationID == "" {
		t.Error("Expected operation id to be set")
	}

	data, err := EncodeBatch(b)
	if err != nil {
		t.Fatalf("EncodeBatch failed: %v", err)
	}

	decoded, err := DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch failed: %v", err)
	}
	if decoded.OperationID != b.OperationID {
		t.Errorf("Expected operation id %s, got %s", b.OperationID, decoded.OperationID)
	}
	if len(decoded.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(decoded.Records))
	}
	rec := decoded.Records[0]
	if rec.Fingerprint != recs[0].Fingerprint || rec.Rating != 700 || rec.PlayCount != 12 {
		t.Errorf("Record fields lost in round trip: %+v", rec)
	}
}

func TestDecodeBatch_Errors(t *testing.T) {
	if _, err := DecodeBatch([]byte("garbage")); !errors.Is(err, domain.ErrSync) {
		t.Errorf("Expected ErrSync for malformed blob, got %v", err)
	}

	if _, err := DecodeBatch([]byte(`{"version": 99, "records": []}`)); !errors.Is(err, domain.ErrSync) {
		t.Errorf("Expected ErrSync for unknown version, got %v", err)
	}
}
