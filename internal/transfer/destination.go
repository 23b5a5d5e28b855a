package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/MrSnakeDoc/cellar/internal/retry"
	"github.com/MrSnakeDoc/cellar/internal/utils"
)

// Destination receives a readable object. Returns the bytes moved.
type Destination interface {
	Name() string
	Transfer(ctx context.Context, c remote.Client, ph models.Placeholder) (int64, error)
}

// LocalDestination downloads next to the placeholder.
type LocalDestination struct {
	Retry retry.Policy
}

func (LocalDestination) Name() string { return "local" }

func (d LocalDestination) Transfer(ctx context.Context, c remote.Client, ph models.Placeholder) (int64, error) {
	if fi, err := os.Lstat(ph.AssetPath); err == nil && !fi.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is a symlink or special file", ErrOccupied, ph.AssetPath)
	}
	tmp := placeholder.TempPath(ph.AssetPath)

	var n int64
	err := d.Retry.Do(ctx, "download "+ph.Key, func(ctx context.Context) error {
		var err error
		n, err = download(ctx, c, ph, tmp)
		return permanentOn(err, notRetryable...)
	})
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}

	if n != ph.Size {
		_ = os.Remove(tmp)
		if rmErr := os.Remove(ph.AssetPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("could not discard %s: %v", ph.AssetPath, rmErr)
		}
		return 0, fmt.Errorf("%w: %s downloaded %d bytes, placeholder records %d", ErrSizeMismatch, ph.Key, n, ph.Size)
	}

	if err := os.Rename(tmp, ph.AssetPath); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("move %s into place: %w", tmp, err)
	}
	if err := utils.SyncDir(filepath.Dir(ph.AssetPath)); err != nil {
		return n, err
	}
	return n, nil
}

func download(ctx context.Context, c remote.Client, ph models.Placeholder, tmp string) (n int64, err error) {
	rc, err := c.Get(ctx, ph.Key, ph.VersionID)
	if err != nil {
		return 0, err
	}
	defer utils.MustClose(rc)

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, retry.Permanent(err)
	}
	n, copyErr := io.Copy(f, rc)
	syncErr := f.Sync()
	closeErr := f.Close()
	for _, e := range []error{copyErr, syncErr, closeErr} {
		if e != nil {
			_ = os.Remove(tmp)
			return 0, e
		}
	}
	return n, nil
}

// BucketDestination copies the restored object into another bucket.
type BucketDestination struct {
	Bucket       string
	StorageClass string
	Retry        retry.Policy
}

func (d BucketDestination) Name() string { return "bucket " + d.Bucket }

func (d BucketDestination) Transfer(ctx context.Context, c remote.Client, ph models.Placeholder) (int64, error) {
	obj, err := retry.Value(ctx, d.Retry, "copy "+ph.Key, func(ctx context.Context) (models.RemoteObject, error) {
		o, err := c.Copy(ctx, ph.Key, ph.VersionID, d.Bucket, ph.Key, d.StorageClass)
		return o, permanentOn(err, notRetryable...)
	})
	if err != nil {
		return 0, err
	}
	if obj.Size != ph.Size {
		return 0, fmt.Errorf("%w: %s copied %d bytes, placeholder records %d", ErrSizeMismatch, ph.Key, obj.Size, ph.Size)
	}
	return obj.Size, nil
}
