package models

import (
	"fmt"
	"strings"
)

// FindingCategory separates malformed input from state disagreement.
type FindingCategory int

const (
	CategoryValidation FindingCategory = iota
	CategoryDrift
)

func (c FindingCategory) String() string {
	if c == CategoryDrift {
		return "drift"
	}
	return "validation"
}

// Finding codes.
const (
	CodeMalformed        = "malformed"
	CodeMissingAttribute = "missing-attribute"
	CodePathMismatch     = "path-mismatch"
	CodeDuplicate        = "duplicate"
	CodeMissingRemote    = "missing-remote"
	CodeSizeMismatch     = "size-mismatch"
	CodeETagMismatch     = "etag-mismatch"
	CodeTagMismatch      = "tag-mismatch"
	CodePartialRestore   = "partial-restore"
	CodeUntracked        = "untracked-remote"
	CodeOrphan           = "orphan"
	CodeIndexDrift       = "index-drift"
	CodeUnmappable       = "unmappable-key"
	CodeUnencodable      = "unencodable-key"
	CodeOccupied         = "path-occupied"
)

// Finding is one error-class observation. Any finding rejects the plan.
type Finding struct {
	Category FindingCategory
	Code     string
	Key      string
	Paths    []string
	Reason   string
}

func (f Finding) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", f.Category)
	if f.Key != "" {
		fmt.Fprintf(&b, "%s: ", f.Key)
	}
	b.WriteString(f.Reason)
	if len(f.Paths) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(f.Paths, ", "))
	}
	return b.String()
}
