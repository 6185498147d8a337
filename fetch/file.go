package fetch

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/qmdata/confset/internal/fs"
)

// FileFetcher copies local files, for file:// URLs and bare paths. Useful
// when archives are staged on shared storage rather than served remotely.
type FileFetcher struct {
	fsys fs.FileSystem
}

// Fetch copies the source file to dest atomically, decompressing when the
// source carries a compression suffix the destination name does not.
func (f *FileFetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "file" {
		src = u.Path
		if u.Host != "" {
			src = u.Host + u.Path
		}
	}
	src = strings.TrimPrefix(src, "file://")

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	body, closeBody, err := decodeReader(src, dest, in)
	if err != nil {
		return err
	}
	defer closeBody()

	return fs.WriteAtomic(f.fsys, dest, body)
}
