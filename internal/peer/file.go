package peer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spimanov/prdbd/internal/constants"
	"github.com/spimanov/prdbd/internal/domain"
)

// FilePeer syncs through a batch file on a shared folder, typically a
// cloud-synced directory reachable from both instances.
type FilePeer struct {
	Path string
}

func NewFilePeer(path string) *FilePeer {
	return &FilePeer{Path: path}
}

// Fetch reads the shared batch file. A missing file means the peer has
// exported nothing yet and yields an empty batch.
func (p *FilePeer) Fetch(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.Path)
	if os.IsNotExist(err) {
		return &Batch{Version: constants.BatchVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrSync, p.Path, err)
	}
	return DecodeBatch(data)
}

// Push replaces the shared batch file atomically (temp file + rename),
// so a concurrent Fetch never sees a half-written batch.
func (p *FilePeer) Push(ctx context.Context, b *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeBatch(b)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.Path)
	tmp, err := os.CreateTemp(dir, ".prdb-batch-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp batch: %v", domain.ErrSync, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing batch: %v", domain.ErrSync, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing batch: %v", domain.ErrSync, err)
	}
	if err := os.Rename(tmpPath, p.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: publishing batch: %v", domain.ErrSync, err)
	}
	return nil
}
