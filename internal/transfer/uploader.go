package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/MrSnakeDoc/cellar/internal/retry"
	"github.com/MrSnakeDoc/cellar/internal/utils"
)

// Uploader archives a local asset and leaves a STANDARD placeholder behind.
type Uploader struct {
	Layout       placeholder.Layout
	Region       string
	StorageClass string
	DeleteLocal  bool
	Retry        retry.Policy
	Now          func() time.Time
}

func (u *Uploader) Upload(ctx context.Context, c remote.Client, asset models.LocalAsset) (Outcome, error) {
	key, err := u.Layout.KeyFor(asset.Path)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	if !placeholder.ValidValue(key) {
		return Outcome{State: StateFailed}, fmt.Errorf("%w: key %q contains '=' or whitespace", ErrUnencodable, key)
	}

	fi, err := os.Stat(asset.Path)
	if err != nil {
		return Outcome{State: StateFailed}, fmt.Errorf("stat %s: %w", asset.Path, err)
	}
	if fi.Size() != asset.Size {
		return Outcome{State: StateFailed}, fmt.Errorf("%s changed size since scan (%d -> %d)", asset.Path, asset.Size, fi.Size())
	}

	existing, err := retry.Value(ctx, u.Retry, "stat "+key, func(ctx context.Context) (models.RemoteObject, error) {
		o, err := c.Stat(ctx, key, "")
		return o, permanentOn(err, notRetryable...)
	})
	switch {
	case err == nil && existing.Size == asset.Size:
		logger.Info("%s exists, skipping", key)
		return Outcome{State: StateDone, Skipped: true, Message: "exists, skipping"}, nil
	case err == nil:
		return Outcome{State: StateFailed}, fmt.Errorf("%w: %s already holds %d bytes", ErrChanged, key, existing.Size)
	case !errors.Is(err, remote.ErrNotFound):
		return Outcome{State: StateFailed}, err
	}

	opts := remote.PutOptions{
		StorageClass: u.StorageClass,
		Tags:         map[string]string{models.PathTag: u.Layout.RelPath(asset.Path)},
	}
	obj, err := retry.Value(ctx, u.Retry, "upload "+key, func(ctx context.Context) (models.RemoteObject, error) {
		o, err := c.Put(ctx, key, asset.Path, opts)
		return o, permanentOn(err, notRetryable...)
	})
	if err != nil {
		return Outcome{State: StateFailed}, err
	}

	if err := u.verify(asset, obj); err != nil {
		return Outcome{State: StateFailed, Bytes: obj.Size}, err
	}

	ph := models.Placeholder{
		Bucket:       c.Bucket(),
		Key:          key,
		Size:         obj.Size,
		ETag:         models.NormalizeETag(obj.ETag),
		Region:       u.Region,
		StorageClass: u.StorageClass,
		VersionID:    obj.VersionID,
		ArchivedAt:   u.now(),
		Type:         models.PlaceholderStandard,
		AssetPath:    asset.Path,
		Path:         u.Layout.PlaceholderPath(asset.Path, models.PlaceholderStandard),
	}
	if ph.VersionID != "" {
		ph.Format = models.FormatVersioned
	}
	if err := placeholder.Write(ph.Path, ph); err != nil {
		return Outcome{State: StateFailed, Bytes: obj.Size}, err
	}

	out := Outcome{State: StateDone, Bytes: obj.Size, Message: "archived"}
	if u.DeleteLocal {
		if err := removeVerified(asset.Path, asset.Size); err != nil {
			return Outcome{State: StateFailed, Bytes: obj.Size}, err
		}
		out.LocalRemoved = true
		out.Message = "archived, local copy removed"
	}
	return out, nil
}

func (u *Uploader) verify(asset models.LocalAsset, obj models.RemoteObject) error {
	if obj.Size != asset.Size {
		return fmt.Errorf("%w: %s uploaded %d bytes, local has %d", ErrSizeMismatch, obj.Key, obj.Size, asset.Size)
	}
	etag := models.NormalizeETag(obj.ETag)
	if etag == "" || utils.IsMultipartETag(etag) {
		return nil
	}
	sum, err := utils.FileMD5(asset.Path)
	if err != nil {
		return err
	}
	if sum != etag {
		return fmt.Errorf("etag doesn't match for %s (local %s, remote %s)", obj.Key, sum, etag)
	}
	return nil
}

func (u *Uploader) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// removeVerified deletes path only when it still holds the expected size.
func removeVerified(path string, size int64) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() || fi.Size() != size {
		return fmt.Errorf("%w: refusing to delete %s (%d bytes, expected %d)", ErrSizeMismatch, path, fi.Size(), size)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
