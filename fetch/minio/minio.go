// Package minio implements fetch.Fetcher for MinIO and other S3-compatible
// object stores.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Fetcher retrieves objects from a MinIO-compatible store. URLs take the
// form minio://bucket/key; a URL without a host falls back to the
// configured default bucket.
type Fetcher struct {
	client *minio.Client
	bucket string
}

// NewFetcher creates a Fetcher over an existing client.
func NewFetcher(client *minio.Client, bucket string) *Fetcher {
	return &Fetcher{client: client, bucket: bucket}
}

// Fetch downloads the object to dest. FGetObject stages into a part file
// and renames on completion, so a partial download is never left at dest.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	bucket := u.Host
	if bucket == "" {
		bucket = f.bucket
	}
	key := strings.TrimPrefix(u.Path, "/")

	err = f.client.FGetObject(ctx, bucket, key, dest, minio.GetObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return fmt.Errorf("%w: %s/%s", os.ErrNotExist, bucket, key)
		}
		return err
	}
	return nil
}
