package peer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spimanov/prdbd/internal/constants"
	"github.com/spimanov/prdbd/internal/domain"
	"github.com/spimanov/prdbd/internal/httpclient"
)

// HTTPPeer syncs against another running instance over its sync API.
type HTTPPeer struct {
	baseURL string
	client  *httpclient.Client
}

func NewHTTPPeer(baseURL string, client *httpclient.Client) *HTTPPeer {
	if client == nil {
		client = httpclient.NewClient(nil, constants.DefaultMinRequestInterval)
	}
	return &HTTPPeer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *HTTPPeer) Fetch(ctx context.Context) (*Batch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/sync/export", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building export request: %v", domain.ErrSync, err)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching from %s: %v", domain.ErrSync, p.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // deferred cleanup

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: peer export returned status %d", domain.ErrSync, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading peer export: %v", domain.ErrSync, err)
	}
	return DecodeBatch(data)
}

func (p *HTTPPeer) Push(ctx context.Context, b *Batch) error {
	data, err := EncodeBatch(b)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/sync/import", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: building import request: %v", domain.ErrSync, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: pushing to %s: %v", domain.ErrSync, p.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // deferred cleanup

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: peer import returned status %d", domain.ErrSync, resp.StatusCode)
	}
	return nil
}
