package fingerprint

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/spimanov/prdbd/internal/constants"
	"github.com/spimanov/prdbd/internal/domain"
)

// Chromaprint computes fingerprints by invoking the fpcalc binary that
// ships with chromaprint. All failures are reported as
// domain.ErrFingerprint so the reconciler can skip-and-retry.
type Chromaprint struct {
	Bin     string
	Timeout time.Duration
}

// NewChromaprint creates a provider around the given fpcalc binary.
func NewChromaprint(bin string) *Chromaprint {
	if bin == "" {
		bin = constants.DefaultFpcalc
	}
	return &Chromaprint{
		Bin:     bin,
		Timeout: constants.DefaultFpcalcTimeout,
	}
}

// fpcalcOutput matches `fpcalc -raw -json` output.
type fpcalcOutput struct {
	Duration    float64  `json:"duration"`
	Fingerprint []uint32 `json:"fingerprint"`
}

// Compute runs fpcalc on the file and derives the digest and simhash.
func (c *Chromaprint) Compute(ctx context.Context, path string) (Fingerprint, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Bin, "-raw", "-json", path)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return Fingerprint{}, fmt.Errorf("%w: %s: %v", domain.ErrFingerprint, path, ctx.Err())
		}
		return Fingerprint{}, fmt.Errorf("%w: fpcalc on %s: %v", domain.ErrFingerprint, path, err)
	}

	return parseFpcalc(out, path)
}

func parseFpcalc(out []byte, path string) (Fingerprint, error) {
	var parsed fpcalcOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: parsing fpcalc output for %s: %v", domain.ErrFingerprint, path, err)
	}
	if len(parsed.Fingerprint) == 0 {
		return Fingerprint{}, fmt.Errorf("%w: empty fingerprint for %s", domain.ErrFingerprint, path)
	}
	return New(parsed.Fingerprint), nil
}
