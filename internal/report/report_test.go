package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/reconcile"
	"github.com/MrSnakeDoc/cellar/internal/retry"
	"github.com/MrSnakeDoc/cellar/internal/transfer"
	"github.com/MrSnakeDoc/cellar/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func samplePlan() *reconcile.Plan {
	return &reconcile.Plan{
		Entries: []reconcile.Entry{
			{Key: "p/a.bam", AssetPath: "/data/a.bam", State: reconcile.StateArchivedLocalCopy},
			{Key: "p/u.bam", AssetPath: "/data/u.bam", State: reconcile.StateUploadCandidate},
		},
		Uploads:  []reconcile.Unit{{Kind: reconcile.UnitUpload, Key: "p/u.bam", Asset: models.LocalAsset{Path: "/data/u.bam", Size: 4}}},
		Restores: []reconcile.Unit{{Kind: reconcile.UnitRestore, Key: "p/r.bam", Placeholder: models.Placeholder{Path: "/data/r.bam.cellar.restore"}}},
	}
}

func TestReport_Categories(t *testing.T) {
	p := samplePlan()
	p.Findings = []models.Finding{
		{Category: models.CategoryDrift, Code: models.CodeSizeMismatch, Key: "p/x", Reason: "size doesn't match"},
		{Category: models.CategoryDrift, Code: models.CodeOrphan, Key: "p/o", Reason: "orphaned remote object with no placeholder"},
		{Category: models.CategoryValidation, Code: models.CodeDuplicate, Key: "p/d", Paths: []string{"/a", "/b"}},
	}

	r := New("id", "/data", "archive", false)
	r.AddPlan(p)
	r.Finish(nil)

	assert.True(t, r.Rejected)
	assert.False(t, r.Success)
	require.Len(t, r.Drifted, 1)
	require.Len(t, r.Orphaned, 1)
	require.Len(t, r.Validation, 1)
	assert.Equal(t, []string{"/a", "/b"}, r.Validation[0].Paths)
	assert.Equal(t, []Item{{Key: "p/a.bam", Paths: []string{"/data/a.bam"}}}, r.AlreadyArchived)
	assert.Equal(t, []Item{{Key: "p/u.bam", Paths: []string{"/data/u.bam"}}}, r.ReadyToUpload)
	assert.Equal(t, []string{"/data/r.bam.cellar.restore"}, r.ReadyToRestore[0].Paths)
}

func TestReport_Results(t *testing.T) {
	r := New("id", "/data", "archive", false)
	r.AddPlan(samplePlan())
	jobs := []worker.JobContext{
		{Unit: reconcile.Unit{Kind: reconcile.UnitUpload, Key: "p/u.bam"}, Err: &retry.ExhaustedError{Op: "upload p/u.bam", Attempts: 3, Last: errors.New("timeout")}},
		{Unit: reconcile.Unit{Kind: reconcile.UnitRestore, Key: "p/r.bam"}, Outcome: transfer.Outcome{State: transfer.StateRestorePending, Message: "restore request placed"}},
	}
	r.AddResults(jobs, worker.Snapshot{Failed: 1, RestoresPending: 1, BytesDown: 10, BytesUp: 5})
	r.Finish(nil)

	assert.False(t, r.Success)
	require.Len(t, r.Failures, 1)
	assert.Contains(t, r.Failures[0].Reason, "after 3 attempts")
	assert.Equal(t, []Item{{Key: "p/r.bam", Reason: "restore request placed"}}, r.RestorePending)
	assert.EqualValues(t, 15, r.BytesMoved)
}

func TestReport_Success(t *testing.T) {
	r := New("id", "/data", "archive", false)
	r.AddPlan(samplePlan())
	r.AddResults(nil, worker.Snapshot{Uploaded: 1})
	r.Finish(nil)
	assert.True(t, r.Success)
	assert.False(t, r.Finished.Before(r.Started))
}

func TestRender(t *testing.T) {
	r := New("run-42", "/data", "archive", true)
	r.AddPlan(samplePlan())
	r.Finish(nil)

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, FormatText))
		out := buf.String()
		assert.Contains(t, out, "run-42")
		assert.Contains(t, out, "DRY RUN")
		assert.Contains(t, out, "Ready to upload (1):")
		assert.Contains(t, out, "  - p/u.bam [/data/u.bam]")
		assert.NotContains(t, out, "Failures")
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, FormatTable))
		assert.Contains(t, buf.String(), "p/u.bam")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, FormatJSON))
		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "run-42", got["run_id"])
		assert.Contains(t, got, "ready_to_upload")
		assert.NotContains(t, got, "failures")
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, FormatYAML))
		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "run-42", got["run_id"])
		assert.Equal(t, true, got["dry_run"])
	})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
