package placeholder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/utils"
)

// ErrWriteFailed wraps every placeholder write failure. It is fatal for the unit.
var ErrWriteFailed = errors.New("placeholder write failed")

type ErrorKind int

const (
	KindMalformed ErrorKind = iota
	KindMissingAttribute
	KindPathMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingAttribute:
		return "missing attribute"
	case KindPathMismatch:
		return "path mismatch"
	default:
		return "malformed"
	}
}

// ParseError is returned by Parse. Key is set when the file recorded one.
type ParseError struct {
	Path   string
	Key    string
	Kind   ErrorKind
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("placeholder %s: %s", e.Path, e.Reason)
}

const (
	attrFormat       = "format"
	attrBucket       = "bucket"
	attrKey          = "key"
	attrSize         = "size"
	attrETag         = "etag"
	attrRegion       = "region"
	attrStorageClass = "storage_class"
	attrVersionID    = "version_id"
	attrArchivedAt   = "archived_at"

	formatStandard  = "standard"
	formatVersioned = "versioned"
)

var header = []string{
	"# cellar placeholder",
	"# The content of this file lives in object storage.",
	"# Add the .restore suffix to retrieve it or .delete to remove it.",
}

// Parse reads and validates a placeholder file.
func Parse(p string, l Layout) (models.Placeholder, error) {
	t, assetPath, ok := l.TypeOf(p)
	if !ok {
		return models.Placeholder{}, &ParseError{Path: p, Kind: KindMalformed, Reason: "not a placeholder file name"}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return models.Placeholder{}, &ParseError{Path: p, Kind: KindMalformed, Reason: err.Error()}
	}

	attrs, err := parseAttributes(data)
	if err != nil {
		return models.Placeholder{}, &ParseError{Path: p, Kind: KindMalformed, Reason: err.Error()}
	}

	ph := models.Placeholder{
		Type:      t,
		Path:      p,
		AssetPath: assetPath,
	}

	switch attrs[attrFormat] {
	case "", formatStandard:
		if attrs[attrVersionID] != "" {
			ph.Format = models.FormatVersioned
		}
	case formatVersioned:
		ph.Format = models.FormatVersioned
	default:
		return models.Placeholder{}, &ParseError{Path: p, Kind: KindMalformed, Reason: fmt.Sprintf("unknown format %q", attrs[attrFormat])}
	}

	if missing := missingAttributes(attrs, ph.Format); len(missing) > 0 {
		return models.Placeholder{}, &ParseError{
			Path:   p,
			Key:    attrs[attrKey],
			Kind:   KindMissingAttribute,
			Reason: "missing required attribute(s): " + strings.Join(missing, ", "),
		}
	}

	size, err := strconv.ParseInt(attrs[attrSize], 10, 64)
	if err != nil || size < 0 {
		return models.Placeholder{}, &ParseError{Path: p, Key: attrs[attrKey], Kind: KindMalformed, Reason: fmt.Sprintf("invalid size %q", attrs[attrSize])}
	}

	ph.Bucket = attrs[attrBucket]
	ph.Key = attrs[attrKey]
	ph.Size = size
	ph.ETag = attrs[attrETag]
	ph.Region = attrs[attrRegion]
	ph.StorageClass = attrs[attrStorageClass]
	ph.VersionID = attrs[attrVersionID]

	if v := attrs[attrArchivedAt]; v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return models.Placeholder{}, &ParseError{Path: p, Key: ph.Key, Kind: KindMalformed, Reason: fmt.Sprintf("invalid archived_at %q", v)}
		}
		ph.ArchivedAt = ts
	}

	want, err := l.KeyFor(assetPath)
	if err != nil || want != ph.Key {
		return models.Placeholder{}, &ParseError{
			Path:   p,
			Key:    ph.Key,
			Kind:   KindPathMismatch,
			Reason: fmt.Sprintf("placeholder moved or renamed: location implies key %q but file records %q", want, ph.Key),
		}
	}

	return ph, nil
}

func parseAttributes(data []byte) (map[string]string, error) {
	attrs := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		k, v, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"key = value\"", line)
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || hasSpace(k) || hasSpace(v) || strings.Contains(v, "=") {
			return nil, fmt.Errorf("line %d: invalid attribute %q", line, text)
		}
		if _, dup := attrs[k]; dup {
			return nil, fmt.Errorf("line %d: attribute %q repeated", line, k)
		}
		attrs[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return attrs, nil
}

func missingAttributes(attrs map[string]string, f models.PlaceholderFormat) []string {
	required := []string{attrBucket, attrKey, attrSize, attrETag}
	if f == models.FormatVersioned {
		required = append(required, attrVersionID)
	}
	var missing []string
	for _, k := range required {
		if attrs[k] == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

// ValidValue reports whether s can be stored as an attribute value.
func ValidValue(s string) bool {
	return !hasSpace(s) && !strings.Contains(s, "=")
}

// Write emits the placeholder at p through a temp file and an atomic rename.
func Write(p string, ph models.Placeholder) error {
	content, err := encode(ph)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, p, err)
	}
	if err := utils.WriteFileAtomic(TempPath(p), p, bytes.NewReader(content), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, p, err)
	}
	return nil
}

func encode(ph models.Placeholder) ([]byte, error) {
	format := formatStandard
	if ph.Format == models.FormatVersioned {
		format = formatVersioned
	}

	var archivedAt string
	if !ph.ArchivedAt.IsZero() {
		archivedAt = ph.ArchivedAt.UTC().Format(time.RFC3339)
	}

	pairs := [][2]string{
		{attrFormat, format},
		{attrBucket, ph.Bucket},
		{attrKey, ph.Key},
		{attrSize, strconv.FormatInt(ph.Size, 10)},
		{attrETag, ph.ETag},
		{attrRegion, ph.Region},
		{attrStorageClass, ph.StorageClass},
		{attrVersionID, ph.VersionID},
		{attrArchivedAt, archivedAt},
	}

	attrs := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		attrs[kv[0]] = kv[1]
	}
	if ph.Size < 0 {
		return nil, fmt.Errorf("negative size %d", ph.Size)
	}
	if missing := missingAttributes(attrs, ph.Format); len(missing) > 0 {
		return nil, fmt.Errorf("missing required attribute(s): %s", strings.Join(missing, ", "))
	}

	var b bytes.Buffer
	for _, line := range header {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, kv := range pairs {
		if kv[1] == "" {
			continue
		}
		if !ValidValue(kv[1]) {
			return nil, fmt.Errorf("attribute %s: value %q contains '=' or whitespace", kv[0], kv[1])
		}
		fmt.Fprintf(&b, "%s = %s\n", kv[0], kv[1])
	}
	return b.Bytes(), nil
}

// Rename moves a placeholder to the suffix of type t.
func Rename(ph models.Placeholder, t models.PlaceholderType, l Layout) (models.Placeholder, error) {
	if ph.Type == t {
		return ph, nil
	}
	dst := l.PlaceholderPath(ph.AssetPath, t)
	exists, err := utils.FileExists(dst)
	if err != nil {
		return ph, err
	}
	if exists {
		return ph, fmt.Errorf("cannot rename %s: %s already exists", ph.Path, dst)
	}
	if err := os.Rename(ph.Path, dst); err != nil {
		return ph, fmt.Errorf("rename placeholder %s: %w", ph.Path, err)
	}
	if err := utils.SyncDir(filepath.Dir(dst)); err != nil {
		return ph, err
	}
	ph.Path = dst
	ph.Type = t
	return ph, nil
}

// Remove deletes a placeholder file. A missing file is not an error.
func Remove(ph models.Placeholder) error {
	if err := os.Remove(ph.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove placeholder %s: %w", ph.Path, err)
	}
	return nil
}
