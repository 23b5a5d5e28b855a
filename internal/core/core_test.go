package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.UseTestMode()
	os.Exit(m.Run())
}

/* -----------------------------
   Test harness + helpers
------------------------------ */

const bucket = "archive"

type harness struct {
	root  string
	store *remote.MockStore
	opts  Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		Root:              root,
		Bucket:            bucket,
		Prefix:            "p",
		MinSize:           5,
		MinAgeDays:        60,
		Extensions:        []string{".bam"},
		ExtensionMode:     "allow",
		MaxWorkers:        3,
		Retries:           2,
		StorageClass:      "STANDARD",
		RestoreDays:       3,
		RestoreTier:       "Bulk",
		PlaceholderSuffix: ".cellar",
	}
	return &harness{root: root, store: remote.NewMockStore(), opts: opts}
}

func (h *harness) engine() *Engine {
	return New(h.opts, h.store.Factory(bucket))
}

func (h *harness) file(t *testing.T, rel, content string, ageDays int) string {
	t.Helper()
	p := filepath.Join(h.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	mt := time.Now().Add(-time.Duration(ageDays) * 24 * time.Hour)
	require.NoError(t, os.Chtimes(p, mt, mt))
	return p
}

func (h *harness) layout() placeholder.Layout {
	return placeholder.NewLayout(h.root, h.opts.Prefix, h.opts.PlaceholderSuffix)
}

// archived seeds an object and its placeholder of type typ.
func (h *harness) archived(t *testing.T, rel, content, class string, typ models.PlaceholderType) models.Placeholder {
	t.Helper()
	l := h.layout()
	asset := filepath.Join(h.root, filepath.FromSlash(rel))
	key, err := l.KeyFor(asset)
	require.NoError(t, err)
	obj := h.store.Seed(bucket, key, []byte(content), class)
	ph := models.Placeholder{
		Bucket: bucket, Key: key, Size: obj.Size, ETag: obj.ETag, StorageClass: class,
		Type: typ, AssetPath: asset, Path: l.PlaceholderPath(asset, typ),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(asset), 0o755))
	require.NoError(t, placeholder.Write(ph.Path, ph))
	return ph
}

func (h *harness) mutations() int {
	return h.store.Calls("put") + h.store.Calls("delete") + h.store.Calls("restore") + h.store.Calls("copy") + h.store.Calls("get")
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

/* -----------------------------
   Scenarios
------------------------------ */

func TestRun_ArchivesCandidate(t *testing.T) {
	h := newHarness(t)
	data := h.file(t, "data.bam", "six bytes!", 90)
	h.file(t, "young.bam", "young file", 5)

	rep, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Success)
	assert.EqualValues(t, 1, rep.Counts.Uploaded)
	assert.EqualValues(t, 10, rep.BytesMoved)
	assert.NotEmpty(t, rep.RunID)

	ph, err := placeholder.Parse(data+".cellar", h.layout())
	require.NoError(t, err)
	obj, _, ok := h.store.Object(bucket, "p/data.bam")
	require.True(t, ok)
	assert.Equal(t, obj.Size, ph.Size)
	assert.Equal(t, obj.ETag, ph.ETag)
	assert.Equal(t, models.PlaceholderStandard, ph.Type)

	// Next run: the local copy is now reported as safe to delete and nothing is re-uploaded.
	plan, err := h.engine().Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p/data.bam"}, plan.SafeToDelete)
	assert.Empty(t, plan.Uploads)

	h.opts.DeleteAfterArchive = true
	rep, err = h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, rep.Counts.LocalDeleted)
	assert.False(t, exists(data))
	assert.Equal(t, 1, h.store.Calls("put"))
}

func TestRun_SizeDriftAbortsWithZeroMutations(t *testing.T) {
	h := newHarness(t)
	ph := h.archived(t, "X.bam", strings.Repeat("a", 100), "STANDARD", models.PlaceholderStandard)
	ph.Size = 90
	require.NoError(t, placeholder.Write(ph.Path, ph))
	h.file(t, "other.bam", "would be uploaded", 90)

	rep, err := h.engine().Run(context.Background())
	require.ErrorIs(t, err, ErrPlanRejected)
	assert.False(t, rep.Success)
	require.Len(t, rep.Drifted, 1)
	assert.Contains(t, rep.Drifted[0].Reason, "size doesn't match")
	assert.Equal(t, 0, h.mutations())
	assert.False(t, exists(filepath.Join(h.root, "other.bam.cellar")))
}

func TestRun_ColdRestoreThenDownload(t *testing.T) {
	h := newHarness(t)
	ph := h.archived(t, "cold/c.bam", "frozen content", "DEEP_ARCHIVE", models.PlaceholderRestore)

	rep, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.Calls("restore"))
	assert.Equal(t, 0, h.store.Calls("get"))
	require.Len(t, rep.RestorePending, 1)
	assert.Equal(t, "restore request placed", rep.RestorePending[0].Reason)
	assert.EqualValues(t, 1, rep.Counts.RestoresRequested)
	assert.False(t, exists(ph.AssetPath))

	// Still pending on the next run: no second request.
	rep, err = h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.Calls("restore"))
	assert.Equal(t, "restore in progress", rep.RestorePending[0].Reason)

	h.store.SetRestore(bucket, ph.Key, models.RestoreReady)
	rep, err = h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, rep.Counts.Restored)

	data, err := os.ReadFile(ph.AssetPath)
	require.NoError(t, err)
	assert.Equal(t, "frozen content", string(data))
	assert.False(t, exists(ph.Path))
	assert.True(t, exists(ph.AssetPath+".cellar"))
}

func TestRun_DuplicatePlaceholdersRejected(t *testing.T) {
	h := newHarness(t)
	ph := h.archived(t, "d.bam", "dup", "STANDARD", models.PlaceholderStandard)
	del := ph
	del.Type = models.PlaceholderDelete
	del.Path = h.layout().PlaceholderPath(ph.AssetPath, models.PlaceholderDelete)
	require.NoError(t, placeholder.Write(del.Path, del))

	rep, err := h.engine().Run(context.Background())
	require.ErrorIs(t, err, ErrPlanRejected)
	require.Len(t, rep.Validation, 1)
	assert.ElementsMatch(t, []string{ph.Path, del.Path}, rep.Validation[0].Paths)
	assert.Empty(t, rep.Orphaned)
	assert.Equal(t, 0, h.mutations())
	assert.True(t, exists(ph.Path))
	assert.True(t, exists(del.Path))
}

func TestRun_DryRunMutatesNothing(t *testing.T) {
	h := newHarness(t)
	h.file(t, "a.bam", "123456", 90)
	h.archived(t, "gone.bam", "bye", "STANDARD", models.PlaceholderDelete)
	partial := h.file(t, ".a.bam.cellar-partial", "junk", 0)
	h.opts.DryRun = true

	rep, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.ReadyToUpload, 1)
	assert.Len(t, rep.ReadyToDelete, 1)
	assert.Equal(t, 0, h.mutations())
	assert.True(t, exists(partial))
	assert.False(t, exists(filepath.Join(h.root, "a.bam.cellar")))
}

func TestRun_PartialsRemovedBeforeExecution(t *testing.T) {
	h := newHarness(t)
	partial := h.file(t, "sub/.b.bam.cellar-partial", "junk", 0)

	rep, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Scan.PartialsRemoved)
	assert.False(t, exists(partial))
}

func TestRun_PartialsKeptWhenRejected(t *testing.T) {
	h := newHarness(t)
	partial := h.file(t, ".b.bam.cellar-partial", "junk", 0)
	h.store.Seed(bucket, "p/orphan.bam", []byte("orphan"), "STANDARD")

	_, err := h.engine().Run(context.Background())
	require.ErrorIs(t, err, ErrPlanRejected)
	assert.True(t, exists(partial))
}

func TestRun_ReconstructsMissingPlaceholders(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(bucket, "p/old/orphan.bam", []byte("orphan"), "GLACIER")
	h.opts.RestoreMissingPlaceholders = true

	rep, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, rep.Counts.Reconstructed)

	ph, err := placeholder.Parse(filepath.Join(h.root, "old", "orphan.bam.cellar"), h.layout())
	require.NoError(t, err)
	assert.Equal(t, "p/old/orphan.bam", ph.Key)
}

func TestRun_UnencodableNameAbortsBeforeUpload(t *testing.T) {
	h := newHarness(t)
	spaced := h.file(t, "runs/my sample.bam", "sample data", 90)
	h.file(t, "runs/ok.bam", "other data", 90)

	for range 2 {
		rep, err := h.engine().Run(context.Background())
		require.ErrorIs(t, err, ErrPlanRejected)
		require.Len(t, rep.Validation, 1)
		assert.Equal(t, []string{spaced}, rep.Validation[0].Paths)
		assert.Empty(t, rep.Drifted)
		assert.Equal(t, 0, h.mutations())
	}
	_, _, ok := h.store.Object(bucket, "p/runs/my sample.bam")
	assert.False(t, ok)
}

func TestRun_NonCanonicalKeyIsNotReconstructed(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(bucket, "p/runs//a.bam", []byte("orphan"), "STANDARD")
	h.opts.RestoreMissingPlaceholders = true

	rep, err := h.engine().Run(context.Background())
	require.ErrorIs(t, err, ErrPlanRejected)
	require.Len(t, rep.Validation, 1)
	assert.EqualValues(t, 0, rep.Counts.Reconstructed)
	assert.False(t, exists(filepath.Join(h.root, "runs", "a.bam.cellar")))
}

func TestRun_RestoreOntoSymlinkRejected(t *testing.T) {
	h := newHarness(t)
	ph := h.archived(t, "runs/a.bam", "payload", "STANDARD", models.PlaceholderRestore)
	target := h.file(t, "keep/real.bam", "keep me", 1)
	require.NoError(t, os.Symlink(target, ph.AssetPath))

	rep, err := h.engine().Run(context.Background())
	require.ErrorIs(t, err, ErrPlanRejected)
	require.Len(t, rep.Drifted, 1)
	assert.Contains(t, rep.Drifted[0].Reason, "symlink")
	assert.Equal(t, 0, h.mutations())

	fi, err := os.Lstat(ph.AssetPath)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeSymlink)
}

func TestRun_EmptyObjectAtCandidateKeyIsDrift(t *testing.T) {
	h := newHarness(t)
	b := h.file(t, "runs/b.bam", "0123456789", 90)
	h.store.Seed(bucket, "p/runs/b.bam", nil, "STANDARD")

	rep, err := h.engine().Run(context.Background())
	require.ErrorIs(t, err, ErrPlanRejected)
	require.Len(t, rep.Drifted, 1)
	assert.Contains(t, rep.Drifted[0].Reason, "local 10, remote 0")
	assert.Equal(t, 0, h.mutations())
	assert.False(t, exists(b+".cellar"))
}

func TestRun_SymlinkedRootFails(t *testing.T) {
	h := newHarness(t)
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(h.root, link))
	h.opts.Root = link

	_, err := h.engine().Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbolic link")
	assert.Equal(t, 0, h.mutations())
}

func TestRun_UnitFailureDoesNotStopOthers(t *testing.T) {
	h := newHarness(t)
	h.file(t, "a.bam", "aaaaaa", 90)
	h.archived(t, "gone.bam", "bye", "STANDARD", models.PlaceholderDelete)
	h.store.FailNext("put", 100)

	rep, err := h.engine().Run(context.Background())
	require.ErrorIs(t, err, ErrUnitsFailed)
	assert.False(t, rep.Success)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "p/a.bam", rep.Failures[0].Key)
	assert.EqualValues(t, 1, rep.Counts.Deleted)
	_, _, ok := h.store.Object(bucket, "p/gone.bam")
	assert.False(t, ok)
}

func TestRun_ListingRetried(t *testing.T) {
	h := newHarness(t)
	h.store.FailNext("list", 1)

	_, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, h.store.Calls("list"))
}

func TestRun_InvalidOptions(t *testing.T) {
	h := newHarness(t)
	h.opts.Bucket = ""

	rep, err := h.engine().Run(context.Background())
	require.Error(t, err)
	assert.False(t, rep.Success)
	assert.NotEmpty(t, rep.Error)
}

func TestRun_WritesMetricsFile(t *testing.T) {
	h := newHarness(t)
	h.file(t, "a.bam", "aaaaaa", 90)
	h.opts.MetricsFile = filepath.Join(t.TempDir(), "cellar.prom")

	_, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	raw, err := os.ReadFile(h.opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `cellar_units{outcome="uploaded"} 1`)
	assert.Contains(t, string(raw), "cellar_last_run_success 1")
}

func TestRun_VerifyTagsDetectsMovedObject(t *testing.T) {
	h := newHarness(t)
	ph := h.archived(t, "t.bam", "tagged", "STANDARD", models.PlaceholderStandard)
	h.store.SetTags(bucket, ph.Key, map[string]string{models.PathTag: "somewhere/else.bam"})
	h.opts.VerifyTags = true

	rep, err := h.engine().Run(context.Background())
	require.ErrorIs(t, err, ErrPlanRejected)
	require.Len(t, rep.Drifted, 1)
	assert.Contains(t, rep.Drifted[0].Reason, "path tag")
}
