// Package remote is the object store boundary: put, get, copy, delete,
// list, metadata fetch, tag read, and the asynchronous cold-tier restore
// request.
package remote

import (
	"context"
	"errors"
	"io"

	"github.com/MrSnakeDoc/cellar/internal/models"
)

var (
	// ErrNotFound is returned when a key (or version) does not exist.
	ErrNotFound = errors.New("remote object not found")

	// ErrRestoreInProgress is returned when a restore was already requested.
	ErrRestoreInProgress = errors.New("restore already in progress")

	// ErrNotRestored is returned when reading a cold object that is not restored.
	ErrNotRestored = errors.New("object is in a cold tier and not restored")
)

// PutOptions controls an archive upload.
type PutOptions struct {
	StorageClass string
	Tags         map[string]string
}

// RestoreOptions controls a cold-tier restore request.
type RestoreOptions struct {
	Days int    // retention of the restored copy
	Tier string // Standard, Bulk or Expedited
}

// Client is one connection to one bucket. Clients are not shared between
// goroutines; every worker builds its own through a Factory.
type Client interface {
	Bucket() string
	Put(ctx context.Context, key, localPath string, opts PutOptions) (models.RemoteObject, error)
	Get(ctx context.Context, key, versionID string) (io.ReadCloser, error)
	Copy(ctx context.Context, key, versionID, dstBucket, dstKey, storageClass string) (models.RemoteObject, error)
	Delete(ctx context.Context, key, versionID string) error
	List(ctx context.Context, prefix string) ([]models.RemoteObject, error)
	Stat(ctx context.Context, key, versionID string) (models.RemoteObject, error)
	Tags(ctx context.Context, key, versionID string) (map[string]string, error)
	RequestRestore(ctx context.Context, key, versionID string, opts RestoreOptions) error
}

// Factory builds a fresh client.
type Factory func() (Client, error)
