package remote

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes how to reach the bucket.
type Config struct {
	Endpoint string
	Region   string
	Bucket   string
	Secure   bool

	// Static keys are optional; the environment / shared credentials chain
	// is used when they are empty.
	AccessKey string
	SecretKey string
}

// MinioClient implements Client on top of minio-go.
type MinioClient struct {
	client *minio.Client
	bucket string
	region string
}

var _ Client = (*MinioClient)(nil)

// NewMinioFactory returns a Factory that opens a new connection per call.
func NewMinioFactory(cfg Config) (Factory, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote endpoint must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("remote bucket must be provided")
	}
	return func() (Client, error) { return NewMinioClient(cfg) }, nil
}

func NewMinioClient(cfg Config) (*MinioClient, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
		&credentials.FileAWSCredentials{},
	})
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}
	return &MinioClient{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

func (c *MinioClient) Bucket() string { return c.bucket }

func (c *MinioClient) Put(ctx context.Context, key, localPath string, opts PutOptions) (models.RemoteObject, error) {
	info, err := c.client.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{
		StorageClass: opts.StorageClass,
		UserTags:     opts.Tags,
	})
	if err != nil {
		return models.RemoteObject{}, mapError(err)
	}
	return models.RemoteObject{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         models.NormalizeETag(info.ETag),
		StorageClass: opts.StorageClass,
		Tier:         models.TierOf(opts.StorageClass),
		VersionID:    info.VersionID,
		LastModified: info.LastModified,
		Tags:         opts.Tags,
	}, nil
}

func (c *MinioClient) Get(ctx context.Context, key, versionID string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{VersionID: versionID})
	if err != nil {
		return nil, mapError(err)
	}
	// GetObject is lazy; Stat forces the request so errors surface here.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapError(err)
	}
	return obj, nil
}

func (c *MinioClient) Copy(ctx context.Context, key, versionID, dstBucket, dstKey, storageClass string) (models.RemoteObject, error) {
	dst := minio.CopyDestOptions{
		Bucket: dstBucket,
		Object: dstKey,
	}
	if storageClass != "" {
		dst.UserMetadata = map[string]string{"X-Amz-Storage-Class": storageClass}
		dst.ReplaceMetadata = true
	}
	info, err := c.client.CopyObject(ctx, dst, minio.CopySrcOptions{
		Bucket:    c.bucket,
		Object:    key,
		VersionID: versionID,
	})
	if err != nil {
		return models.RemoteObject{}, mapError(err)
	}
	return models.RemoteObject{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         models.NormalizeETag(info.ETag),
		StorageClass: storageClass,
		Tier:         models.TierOf(storageClass),
		VersionID:    info.VersionID,
		LastModified: info.LastModified,
	}, nil
}

func (c *MinioClient) Delete(ctx context.Context, key, versionID string) error {
	return mapError(c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{VersionID: versionID}))
}

func (c *MinioClient) List(ctx context.Context, prefix string) ([]models.RemoteObject, error) {
	var out []models.RemoteObject
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err)
		}
		out = append(out, toRemoteObject(obj))
	}
	return out, nil
}

func (c *MinioClient) Stat(ctx context.Context, key, versionID string) (models.RemoteObject, error) {
	info, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{VersionID: versionID})
	if err != nil {
		return models.RemoteObject{}, mapError(err)
	}
	obj := toRemoteObject(info)
	switch {
	case info.Restore == nil:
		obj.Restore = models.RestoreNeverRequested
	case info.Restore.OngoingRestore:
		obj.Restore = models.RestorePending
	default:
		obj.Restore = models.RestoreReady
		obj.RestoreExpiry = info.Restore.ExpiryTime
	}
	return obj, nil
}

func (c *MinioClient) Tags(ctx context.Context, key, versionID string) (map[string]string, error) {
	t, err := c.client.GetObjectTagging(ctx, c.bucket, key, minio.GetObjectTaggingOptions{VersionID: versionID})
	if err != nil {
		return nil, mapError(err)
	}
	return t.ToMap(), nil
}

func (c *MinioClient) RequestRestore(ctx context.Context, key, versionID string, opts RestoreOptions) error {
	req := minio.RestoreRequest{}
	req.SetDays(opts.Days)
	if opts.Tier != "" {
		req.SetGlacierJobParameters(minio.GlacierJobParameters{Tier: minio.TierType(opts.Tier)})
	}
	return mapError(c.client.RestoreObject(ctx, c.bucket, key, versionID, req))
}

func toRemoteObject(info minio.ObjectInfo) models.RemoteObject {
	return models.RemoteObject{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         models.NormalizeETag(info.ETag),
		StorageClass: info.StorageClass,
		Tier:         models.TierOf(info.StorageClass),
		VersionID:    info.VersionID,
		LastModified: info.LastModified,
	}
}

// mapError turns service error codes the engine branches on into sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchVersion", "NotFound":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case "RestoreAlreadyInProgress":
		return fmt.Errorf("%w: %v", ErrRestoreInProgress, err)
	case "InvalidObjectState":
		return fmt.Errorf("%w: %v", ErrNotRestored, err)
	}
	return err
}
