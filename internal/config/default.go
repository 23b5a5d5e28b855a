package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/retry"
)

// Options are the engine inputs for one invocation.
type Options struct {
	Root     string
	Bucket   string
	Prefix   string
	Endpoint string
	Region   string
	Secure   bool

	MinAgeDays    int
	MinSize       int64
	Extensions    []string
	ExtensionMode string

	DryRun                     bool
	DeleteAfterArchive         bool
	RestoreMissingPlaceholders bool
	VerifyTags                 bool

	MaxWorkers       int
	Retries          int
	RetryInterval    time.Duration
	Backoff          bool
	MaxRetryInterval time.Duration

	StorageClass        string
	RestoreDays         int
	RestoreTier         string
	RestoreBucket       string
	RestoreStorageClass string

	PlaceholderSuffix string
	ReportFormat      string
	MetricsFile       string
}

// DefaultOptions mirrors the values a fresh `cellar init` writes.
func DefaultOptions() Options {
	return Options{
		Secure:              true,
		MinAgeDays:          60,
		MinSize:             5 * 1000 * 1000 * 1000,
		ExtensionMode:       "allow",
		MaxWorkers:          4,
		Retries:             5,
		RetryInterval:       10 * time.Second,
		Backoff:             true,
		MaxRetryInterval:    5 * time.Minute,
		StorageClass:        "DEEP_ARCHIVE",
		RestoreDays:         7,
		RestoreTier:         "Bulk",
		RestoreStorageClass: "STANDARD",
		PlaceholderSuffix:   ".cellar",
		ReportFormat:        "table",
	}
}

var restoreTiers = map[string]struct{}{
	"Standard":  {},
	"Bulk":      {},
	"Expedited": {},
}

// Validate checks the options before anything touches disk or network.
func (o Options) Validate() error {
	var errList []error
	if strings.TrimSpace(o.Root) == "" {
		errList = append(errList, errors.New("root directory is required"))
	}
	if strings.TrimSpace(o.Bucket) == "" {
		errList = append(errList, errors.New("bucket is required"))
	}
	if o.MinAgeDays < 0 {
		errList = append(errList, fmt.Errorf("min age must not be negative (got %d)", o.MinAgeDays))
	}
	if o.MinSize < 0 {
		errList = append(errList, fmt.Errorf("min size must not be negative (got %d)", o.MinSize))
	}
	if o.Retries < 1 {
		errList = append(errList, fmt.Errorf("retries must be at least 1 (got %d)", o.Retries))
	}
	if o.RestoreDays < 1 {
		errList = append(errList, fmt.Errorf("restore days must be at least 1 (got %d)", o.RestoreDays))
	}
	if _, ok := restoreTiers[o.RestoreTier]; !ok {
		errList = append(errList, fmt.Errorf("unknown restore tier %q (want Standard, Bulk or Expedited)", o.RestoreTier))
	}
	if o.RestoreBucket != "" && o.RestoreBucket == o.Bucket {
		errList = append(errList, errors.New("restore bucket must differ from the archive bucket"))
	}
	return errors.Join(errList...)
}

// RetryPolicy builds the executor policy from the retry options.
func (o Options) RetryPolicy() retry.Policy {
	return retry.Policy{
		Attempts:    o.Retries,
		Interval:    o.RetryInterval,
		Backoff:     o.Backoff,
		MaxInterval: o.MaxRetryInterval,
	}
}
