package placeholder

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/MrSnakeDoc/cellar/internal/models"
)

const (
	DefaultSuffix = ".cellar"

	restoreSuffix = ".restore"
	deleteSuffix  = ".delete"

	// PartialSuffix marks in-flight temp files: ".<name>.cellar-partial".
	PartialSuffix = ".cellar-partial"
)

// Layout maps local asset paths to remote keys and placeholder file names.
type Layout struct {
	Root   string
	Prefix string
	Suffix string
}

func NewLayout(root, prefix, suffix string) Layout {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	return Layout{
		Root:   filepath.Clean(root),
		Prefix: strings.Trim(prefix, "/"),
		Suffix: suffix,
	}
}

// ListPrefix is the remote prefix covering every key of this layout.
func (l Layout) ListPrefix() string {
	if l.Prefix == "" {
		return ""
	}
	return l.Prefix + "/"
}

// KeyFor returns the remote key of an asset under Root.
func (l Layout) KeyFor(assetPath string) (string, error) {
	rel, err := filepath.Rel(l.Root, filepath.Clean(assetPath))
	if err != nil {
		return "", fmt.Errorf("path %s is not under %s: %w", assetPath, l.Root, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is not under %s", assetPath, l.Root)
	}
	return l.ListPrefix() + filepath.ToSlash(rel), nil
}

// RelPath is the slash-separated path of an asset relative to Root.
func (l Layout) RelPath(assetPath string) string {
	rel, err := filepath.Rel(l.Root, assetPath)
	if err != nil {
		return filepath.ToSlash(assetPath)
	}
	return filepath.ToSlash(rel)
}

// AssetPathFor is the inverse of KeyFor. It reports false for keys outside the prefix.
func (l Layout) AssetPathFor(key string) (string, bool) {
	rel := key
	if p := l.ListPrefix(); p != "" {
		if !strings.HasPrefix(key, p) {
			return "", false
		}
		rel = strings.TrimPrefix(key, p)
	}
	// Keys KeyFor could not have produced ("a//b", "./a", "a/") have no local path.
	if rel == "" || path.Clean(rel) != rel {
		return "", false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", false
	}
	return filepath.Join(l.Root, filepath.FromSlash(rel)), true
}

// SuffixFor returns the full filename suffix of a placeholder type.
func (l Layout) SuffixFor(t models.PlaceholderType) string {
	switch t {
	case models.PlaceholderRestore:
		return l.Suffix + restoreSuffix
	case models.PlaceholderDelete:
		return l.Suffix + deleteSuffix
	default:
		return l.Suffix
	}
}

// PlaceholderPath returns the placeholder file of an asset for a given type.
func (l Layout) PlaceholderPath(assetPath string, t models.PlaceholderType) string {
	return assetPath + l.SuffixFor(t)
}

// PathFor returns the placeholder file of a remote key for a given type.
func (l Layout) PathFor(key string, t models.PlaceholderType) (string, error) {
	asset, ok := l.AssetPathFor(key)
	if !ok {
		return "", fmt.Errorf("key %s is outside prefix %q", key, l.Prefix)
	}
	return l.PlaceholderPath(asset, t), nil
}

// TypeOf classifies a file name as a placeholder and strips its suffix.
func (l Layout) TypeOf(p string) (models.PlaceholderType, string, bool) {
	// Longest suffix first.
	for _, t := range []models.PlaceholderType{models.PlaceholderRestore, models.PlaceholderDelete, models.PlaceholderStandard} {
		s := l.SuffixFor(t)
		if strings.HasSuffix(p, s) && len(filepath.Base(p)) > len(s) {
			return t, strings.TrimSuffix(p, s), true
		}
	}
	return 0, "", false
}

func (l Layout) IsPlaceholder(p string) bool {
	_, _, ok := l.TypeOf(p)
	return ok
}

// TempPath is the in-flight name used while writing p.
func TempPath(p string) string {
	return filepath.Join(filepath.Dir(p), "."+filepath.Base(p)+PartialSuffix)
}

// IsTempPath reports whether p follows the temp-name convention.
func IsTempPath(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") && strings.HasSuffix(base, PartialSuffix) && len(base) > len(PartialSuffix)+1
}
