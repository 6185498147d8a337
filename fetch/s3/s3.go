// Package s3 implements fetch.Fetcher for s3:// URLs using the AWS SDK's
// concurrent range downloader.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Fetcher retrieves objects from S3. URLs take the form s3://bucket/key;
// a URL without a host falls back to the configured default bucket.
type Fetcher struct {
	downloader *manager.Downloader
	bucket     string
}

// New creates a Fetcher from the default AWS configuration.
func New(ctx context.Context, bucket string) (*Fetcher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewFetcher(s3.NewFromConfig(cfg), bucket), nil
}

// NewFetcher creates a Fetcher over an existing client.
func NewFetcher(client *s3.Client, bucket string) *Fetcher {
	return &Fetcher{
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
	}
}

// Fetch downloads the object to dest through a temp file, renaming on
// success so a partial download is never left at dest.
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

	tmp := dest + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	_, err = f.downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%w: s3://%s/%s", os.ErrNotExist, bucket, key)
		}
		return err
	}
	return os.Rename(tmp, dest)
}
