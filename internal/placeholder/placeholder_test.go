package placeholder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* -----------------------------
   Helpers
------------------------------ */

func newLayout(t *testing.T) Layout {
	t.Helper()
	return NewLayout(t.TempDir(), "proj", "")
}

func writeRaw(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func sample(l Layout, rel string) models.Placeholder {
	asset := filepath.Join(l.Root, filepath.FromSlash(rel))
	key, _ := l.KeyFor(asset)
	return models.Placeholder{
		Bucket:     "archive",
		Key:        key,
		Size:       6 << 30,
		ETag:       "0123abcd",
		Region:     "eu-west-1",
		ArchivedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		AssetPath:  asset,
	}
}

/* -----------------------------
   Layout
------------------------------ */

func TestLayout_KeyRoundTrip(t *testing.T) {
	l := newLayout(t)
	asset := filepath.Join(l.Root, "runs", "x", "data.bam")

	key, err := l.KeyFor(asset)
	require.NoError(t, err)
	assert.Equal(t, "proj/runs/x/data.bam", key)

	back, ok := l.AssetPathFor(key)
	require.True(t, ok)
	assert.Equal(t, asset, back)

	_, ok = l.AssetPathFor("other/runs/x/data.bam")
	assert.False(t, ok)

	_, err = l.KeyFor(filepath.Join(filepath.Dir(l.Root), "elsewhere"))
	assert.Error(t, err)
}

func TestLayout_AssetPathForRejectsNonCanonicalKeys(t *testing.T) {
	l := newLayout(t)
	for _, key := range []string{
		"proj/runs//a.bam",
		"proj/./a.bam",
		"proj/runs/../a.bam",
		"proj/runs/",
		"proj/",
		"other/a.bam",
	} {
		_, ok := l.AssetPathFor(key)
		assert.False(t, ok, key)
	}
}

func TestValidValue(t *testing.T) {
	assert.True(t, ValidValue("proj/runs/a.bam"))
	assert.False(t, ValidValue("proj/runs/my sample.bam"))
	assert.False(t, ValidValue("proj/runs/a\tb.bam"))
	assert.False(t, ValidValue("proj/k=v.bam"))
}

func TestLayout_TypeOf(t *testing.T) {
	l := NewLayout("/data", "", "")
	cases := []struct {
		name  string
		path  string
		typ   models.PlaceholderType
		asset string
		ok    bool
	}{
		{"standard", "/data/a.bam.cellar", models.PlaceholderStandard, "/data/a.bam", true},
		{"restore", "/data/a.bam.cellar.restore", models.PlaceholderRestore, "/data/a.bam", true},
		{"delete", "/data/a.bam.cellar.delete", models.PlaceholderDelete, "/data/a.bam", true},
		{"plain file", "/data/a.bam", 0, "", false},
		{"bare suffix", "/data/.cellar", 0, "", false},
		{"restore without base", "/data/a.restore", 0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			typ, asset, ok := l.TypeOf(tc.path)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.typ, typ)
				assert.Equal(t, tc.asset, asset)
			}
		})
	}
}

func TestTempPath(t *testing.T) {
	p := TempPath("/data/run/a.bam")
	assert.Equal(t, "/data/run/.a.bam.cellar-partial", p)
	assert.True(t, IsTempPath(p))
	assert.False(t, IsTempPath("/data/run/a.bam"))
	assert.False(t, IsTempPath("/data/run/.hidden"))
}

/* -----------------------------
   Write / Parse
------------------------------ */

func TestWriteThenParse(t *testing.T) {
	l := newLayout(t)
	ph := sample(l, "a/data.bam")
	p := l.PlaceholderPath(ph.AssetPath, models.PlaceholderStandard)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))

	require.NoError(t, Write(p, ph))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "#"))
	assert.Contains(t, string(raw), "key = proj/a/data.bam\n")

	got, err := Parse(p, l)
	require.NoError(t, err)
	assert.Equal(t, ph.Key, got.Key)
	assert.Equal(t, ph.Size, got.Size)
	assert.Equal(t, ph.ETag, got.ETag)
	assert.Equal(t, "eu-west-1", got.Region)
	assert.True(t, ph.ArchivedAt.Equal(got.ArchivedAt))
	assert.Equal(t, models.PlaceholderStandard, got.Type)
	assert.Equal(t, models.FormatStandard, got.Format)
	assert.Equal(t, ph.AssetPath, got.AssetPath)

	_, err = os.Stat(TempPath(p))
	assert.True(t, os.IsNotExist(err), "temp file must not survive a write")
}

func TestWrite_AttributeOrderIsStable(t *testing.T) {
	l := newLayout(t)
	ph := sample(l, "v.bam")
	ph.Format = models.FormatVersioned
	ph.VersionID = "v1"
	ph.StorageClass = "GLACIER"
	p := l.PlaceholderPath(ph.AssetPath, models.PlaceholderStandard)
	require.NoError(t, Write(p, ph))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	var keys []string
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, _, _ := strings.Cut(line, " = ")
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"format", "bucket", "key", "size", "etag", "region", "storage_class", "version_id", "archived_at"}, keys)
}

func TestWrite_Refuses(t *testing.T) {
	l := newLayout(t)
	cases := []struct {
		name   string
		mutate func(*models.Placeholder)
	}{
		{"missing bucket", func(p *models.Placeholder) { p.Bucket = "" }},
		{"missing etag", func(p *models.Placeholder) { p.ETag = "" }},
		{"value with equals", func(p *models.Placeholder) { p.Region = "a=b" }},
		{"value with space", func(p *models.Placeholder) { p.Bucket = "my bucket" }},
		{"versioned without version", func(p *models.Placeholder) { p.Format = models.FormatVersioned }},
		{"negative size", func(p *models.Placeholder) { p.Size = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ph := sample(l, "bad.bam")
			tc.mutate(&ph)
			p := l.PlaceholderPath(ph.AssetPath, models.PlaceholderStandard)

			err := Write(p, ph)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrWriteFailed))

			_, statErr := os.Stat(p)
			assert.True(t, os.IsNotExist(statErr))
			_, statErr = os.Stat(TempPath(p))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestWrite_MissingDirectoryFails(t *testing.T) {
	l := newLayout(t)
	ph := sample(l, "nowhere/x.bam")
	err := Write(l.PlaceholderPath(ph.AssetPath, models.PlaceholderStandard), ph)
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestParse_Errors(t *testing.T) {
	l := newLayout(t)
	asset := filepath.Join(l.Root, "x.bam")
	p := asset + ".cellar"

	cases := []struct {
		name    string
		content string
		kind    ErrorKind
	}{
		{"no equals", "bucket archive\n", KindMalformed},
		{"missing etag", "bucket = b\nkey = proj/x.bam\nsize = 1\n", KindMissingAttribute},
		{"bad size", "bucket = b\nkey = proj/x.bam\nsize = -4\netag = e\n", KindMalformed},
		{"unknown format", "format = fancy\nbucket = b\nkey = proj/x.bam\nsize = 1\netag = e\n", KindMalformed},
		{"versioned without id", "format = versioned\nbucket = b\nkey = proj/x.bam\nsize = 1\netag = e\n", KindMissingAttribute},
		{"moved file", "bucket = b\nkey = proj/elsewhere/x.bam\nsize = 1\netag = e\n", KindPathMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeRaw(t, p, tc.content)
			_, err := Parse(p, l)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.kind, pe.Kind)
			assert.Equal(t, p, pe.Path)
		})
	}
}

func TestParse_VersionedAndUnknownKeys(t *testing.T) {
	l := newLayout(t)
	p := filepath.Join(l.Root, "x.bam.cellar.restore")
	writeRaw(t, p, "# header\n\nbucket = b\nkey = proj/x.bam\nsize = 10\netag = e\nversion_id = 42\ncolor = blue\n")

	ph, err := Parse(p, l)
	require.NoError(t, err)
	assert.Equal(t, models.FormatVersioned, ph.Format)
	assert.Equal(t, "42", ph.VersionID)
	assert.Equal(t, models.PlaceholderRestore, ph.Type)
}

/* -----------------------------
   LoadAll / Rename / Remove
------------------------------ */

func TestLoadAll_ReportsDuplicatesAndErrors(t *testing.T) {
	l := newLayout(t)
	dup := "bucket = b\nkey = proj/x.bam\nsize = 1\netag = e\n"
	a := filepath.Join(l.Root, "x.bam.cellar")
	b := filepath.Join(l.Root, "x.bam.cellar.delete")
	bad := filepath.Join(l.Root, "y.bam.cellar")
	good := filepath.Join(l.Root, "z.bam.cellar")
	writeRaw(t, a, dup)
	writeRaw(t, b, dup)
	writeRaw(t, bad, "garbage\n")
	writeRaw(t, good, "bucket = b\nkey = proj/z.bam\nsize = 2\netag = f\n")

	set, findings := LoadAll([]string{good, bad, b, a}, l)

	require.Len(t, findings, 2)
	assert.Equal(t, []string{"proj/z.bam"}, set.Keys())
	assert.True(t, set.IsClaimed("proj/x.bam"))

	var dupFinding models.Finding
	for _, f := range findings {
		if f.Key == "proj/x.bam" {
			dupFinding = f
		}
	}
	assert.Equal(t, models.CategoryValidation, dupFinding.Category)
	assert.ElementsMatch(t, []string{a, b}, dupFinding.Paths)
}

func TestRenameAndRemove(t *testing.T) {
	l := newLayout(t)
	ph := sample(l, "r.bam")
	ph.Path = l.PlaceholderPath(ph.AssetPath, models.PlaceholderRestore)
	ph.Type = models.PlaceholderRestore
	require.NoError(t, Write(ph.Path, ph))

	renamed, err := Rename(ph, models.PlaceholderStandard, l)
	require.NoError(t, err)
	assert.Equal(t, ph.AssetPath+".cellar", renamed.Path)
	assert.Equal(t, models.PlaceholderStandard, renamed.Type)

	_, err = os.Stat(ph.Path)
	assert.True(t, os.IsNotExist(err))

	parsed, err := Parse(renamed.Path, l)
	require.NoError(t, err)
	assert.Equal(t, ph.Key, parsed.Key)

	require.NoError(t, Remove(renamed))
	require.NoError(t, Remove(renamed))
	_, err = os.Stat(renamed.Path)
	assert.True(t, os.IsNotExist(err))
}
