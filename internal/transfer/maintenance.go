package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/MrSnakeDoc/cellar/internal/retry"
	"github.com/MrSnakeDoc/cellar/internal/utils"
)

// Deleter removes the remote object of a DELETE placeholder, then the placeholder.
type Deleter struct {
	Retry retry.Policy
}

func (d *Deleter) Delete(ctx context.Context, c remote.Client, ph models.Placeholder) (Outcome, error) {
	err := d.Retry.Do(ctx, "delete "+ph.Key, func(ctx context.Context) error {
		return permanentOn(c.Delete(ctx, ph.Key, ph.VersionID), notRetryable...)
	})
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	if err := placeholder.Remove(ph); err != nil {
		return Outcome{State: StateFailed}, err
	}
	return Outcome{State: StateDone, Bytes: ph.Size, Message: "deleted"}, nil
}

// Reconstructor writes a STANDARD placeholder from listing data.
type Reconstructor struct {
	Layout placeholder.Layout
	Region string
}

func (r *Reconstructor) Reconstruct(c remote.Client, obj models.RemoteObject, assetPath string) (Outcome, error) {
	ph := models.Placeholder{
		Bucket:       c.Bucket(),
		Key:          obj.Key,
		Size:         obj.Size,
		ETag:         models.NormalizeETag(obj.ETag),
		Region:       r.Region,
		StorageClass: obj.StorageClass,
		VersionID:    obj.VersionID,
		Type:         models.PlaceholderStandard,
		AssetPath:    assetPath,
		Path:         r.Layout.PlaceholderPath(assetPath, models.PlaceholderStandard),
	}
	if !obj.LastModified.IsZero() {
		ph.ArchivedAt = obj.LastModified
	}
	if ph.VersionID != "" {
		ph.Format = models.FormatVersioned
	}

	exists, err := utils.FileExists(ph.Path)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	if exists {
		return Outcome{State: StateFailed}, fmt.Errorf("%w: placeholder %s appeared", ErrChanged, ph.Path)
	}
	if err := os.MkdirAll(filepath.Dir(assetPath), 0o755); err != nil {
		return Outcome{State: StateFailed}, fmt.Errorf("%w: %s: %v", placeholder.ErrWriteFailed, ph.Path, err)
	}
	if err := placeholder.Write(ph.Path, ph); err != nil {
		return Outcome{State: StateFailed}, err
	}
	return Outcome{State: StateDone, Message: "placeholder reconstructed"}, nil
}

// LocalCleaner deletes local copies of archived assets.
type LocalCleaner struct{}

func (LocalCleaner) Clean(asset models.LocalAsset) (Outcome, error) {
	if err := removeVerified(asset.Path, asset.Size); err != nil {
		return Outcome{State: StateFailed}, err
	}
	return Outcome{State: StateDone, Message: "local copy removed"}, nil
}

// CleanPartials removes leftover temp files from interrupted runs.
func CleanPartials(paths []string) (int, error) {
	removed := 0
	var firstErr error
	for _, p := range paths {
		if !placeholder.IsTempPath(p) {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("could not remove partial file %s: %v", p, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Debug("removed partial file %s", p)
		removed++
	}
	return removed, firstErr
}
