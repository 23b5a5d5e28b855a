package models

import (
	"fmt"
	"time"
)

// PlaceholderType is encoded by the placeholder filename suffix.
type PlaceholderType int

const (
	PlaceholderStandard PlaceholderType = iota
	PlaceholderRestore
	PlaceholderDelete
)

func (t PlaceholderType) String() string {
	switch t {
	case PlaceholderStandard:
		return "STANDARD"
	case PlaceholderRestore:
		return "RESTORE"
	case PlaceholderDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("PlaceholderType(%d)", int(t))
	}
}

// PlaceholderFormat discriminates the two on-disk placeholder layouts.
type PlaceholderFormat int

const (
	FormatStandard PlaceholderFormat = iota
	FormatVersioned
)

func (f PlaceholderFormat) String() string {
	if f == FormatVersioned {
		return "versioned"
	}
	return "standard"
}

// Placeholder stands in for an archived asset on the local filesystem.
type Placeholder struct {
	Bucket       string
	Key          string
	Size         int64
	ETag         string
	Region       string
	StorageClass string
	VersionID    string
	ArchivedAt   time.Time

	Type   PlaceholderType
	Format PlaceholderFormat

	// Path is the placeholder file itself, AssetPath the file it stands in for.
	Path      string
	AssetPath string
}
