package fetch

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/qmdata/confset/internal/fs"
)

// HTTPFetcher retrieves objects over http(s).
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	fsys    fs.FileSystem
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client means
// http.DefaultClient.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch downloads rawURL to dest atomically, decompressing when the URL
// carries a compression suffix the destination name does not.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	body, closeBody, err := decodeReader(rawURL, dest, resp.Body)
	if err != nil {
		return err
	}
	defer closeBody()

	return fs.WriteAtomic(f.fsys, dest, body)
}
