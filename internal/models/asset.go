package models

import "time"

// LocalAsset is a regular file found by the scanner that may be archived.
type LocalAsset struct {
	Path    string
	Size    int64
	AgeDays int
	Ext     string
	ModTime time.Time

	// IndexOf is the data file this asset indexes when it was pulled in by
	// index pairing rather than by the size/age thresholds.
	IndexOf string
}
