package models

import (
	"fmt"
	"strings"
	"time"
)

// Tier is the retrieval class of a remote object.
type Tier int

const (
	TierStandard Tier = iota
	TierCold
)

func (t Tier) String() string {
	if t == TierCold {
		return "cold"
	}
	return "standard"
}

// coldClasses require an explicit restore request before the object is readable.
var coldClasses = map[string]struct{}{
	"GLACIER":      {},
	"DEEP_ARCHIVE": {},
}

// TierOf maps a storage class to its tier. Unknown classes are standard.
func TierOf(storageClass string) Tier {
	if _, ok := coldClasses[strings.ToUpper(strings.TrimSpace(storageClass))]; ok {
		return TierCold
	}
	return TierStandard
}

// RestoreState is the "ongoing restore" flag of a cold object.
type RestoreState int

const (
	RestoreNeverRequested RestoreState = iota
	RestorePending
	RestoreReady
)

func (s RestoreState) String() string {
	switch s {
	case RestoreNeverRequested:
		return "never-requested"
	case RestorePending:
		return "pending"
	case RestoreReady:
		return "ready"
	default:
		return fmt.Sprintf("RestoreState(%d)", int(s))
	}
}

// PathTag is the object tag carrying the asset's expected relative path.
const PathTag = "cellar-path"

// RemoteObject is a listing or metadata entry from the object store.
type RemoteObject struct {
	Key          string
	Size         int64
	ETag         string
	StorageClass string
	Tier         Tier
	VersionID    string
	LastModified time.Time

	// Restore and RestoreExpiry are only meaningful after a metadata fetch.
	Restore       RestoreState
	RestoreExpiry time.Time

	Tags map[string]string
}

// NormalizeETag strips quotes and case differences from an etag.
func NormalizeETag(etag string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(etag), `"`))
}
