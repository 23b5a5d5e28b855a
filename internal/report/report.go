package report

import (
	"errors"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/reconcile"
	"github.com/MrSnakeDoc/cellar/internal/retry"
	"github.com/MrSnakeDoc/cellar/internal/transfer"
	"github.com/MrSnakeDoc/cellar/internal/worker"
)

// Item is one reported key with the reason it was reported.
type Item struct {
	Key    string   `json:"key" yaml:"key"`
	Paths  []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	Reason string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type ScanSummary struct {
	Candidates      int `json:"candidates" yaml:"candidates"`
	Placeholders    int `json:"placeholders" yaml:"placeholders"`
	Partials        int `json:"partials" yaml:"partials"`
	PartialsRemoved int `json:"partials_removed" yaml:"partials_removed"`
	Symlinks        int `json:"symlinks_skipped" yaml:"symlinks_skipped"`
}

// Report is the outcome of one invocation.
type Report struct {
	RunID    string    `json:"run_id" yaml:"run_id"`
	Root     string    `json:"root" yaml:"root"`
	Bucket   string    `json:"bucket" yaml:"bucket"`
	DryRun   bool      `json:"dry_run" yaml:"dry_run"`
	Rejected bool      `json:"rejected" yaml:"rejected"`
	Success  bool      `json:"success" yaml:"success"`
	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`
	Error    string    `json:"error,omitempty" yaml:"error,omitempty"`

	AlreadyArchived    []Item `json:"already_archived_safe_to_delete,omitempty" yaml:"already_archived_safe_to_delete,omitempty"`
	Drifted            []Item `json:"drifted,omitempty" yaml:"drifted,omitempty"`
	Orphaned           []Item `json:"orphaned_remote,omitempty" yaml:"orphaned_remote,omitempty"`
	Validation         []Item `json:"validation_errors,omitempty" yaml:"validation_errors,omitempty"`
	ReadyToUpload      []Item `json:"ready_to_upload,omitempty" yaml:"ready_to_upload,omitempty"`
	ReadyToRestore     []Item `json:"ready_to_restore,omitempty" yaml:"ready_to_restore,omitempty"`
	ReadyToDelete      []Item `json:"ready_to_delete,omitempty" yaml:"ready_to_delete,omitempty"`
	ReadyToReconstruct []Item `json:"ready_to_reconstruct,omitempty" yaml:"ready_to_reconstruct,omitempty"`
	RestorePending     []Item `json:"restore_pending,omitempty" yaml:"restore_pending,omitempty"`
	Failures           []Item `json:"failures,omitempty" yaml:"failures,omitempty"`

	Scan       ScanSummary     `json:"scan" yaml:"scan"`
	Counts     worker.Snapshot `json:"counts" yaml:"counts"`
	BytesMoved int64           `json:"bytes_moved" yaml:"bytes_moved"`
}

func New(runID, root, bucket string, dryRun bool) *Report {
	return &Report{
		RunID:   runID,
		Root:    root,
		Bucket:  bucket,
		DryRun:  dryRun,
		Started: time.Now().UTC(),
	}
}

// AddPlan files every plan entry and finding into its category.
func (r *Report) AddPlan(p *reconcile.Plan) {
	r.Rejected = p.Rejected()

	for _, f := range p.Findings {
		it := Item{Key: f.Key, Paths: f.Paths, Reason: f.Reason}
		switch {
		case f.Code == models.CodeOrphan:
			r.Orphaned = append(r.Orphaned, it)
		case f.Category == models.CategoryDrift:
			r.Drifted = append(r.Drifted, it)
		default:
			r.Validation = append(r.Validation, it)
		}
	}

	for _, e := range p.Entries {
		if e.State == reconcile.StateArchivedLocalCopy {
			r.AlreadyArchived = append(r.AlreadyArchived, Item{Key: e.Key, Paths: []string{e.AssetPath}})
		}
	}

	r.ReadyToUpload = unitItems(p.Uploads)
	r.ReadyToRestore = unitItems(p.Restores)
	r.ReadyToDelete = unitItems(p.Deletes)
	r.ReadyToReconstruct = unitItems(p.Reconstructs)
}

func unitItems(us []reconcile.Unit) []Item {
	if len(us) == 0 {
		return nil
	}
	out := make([]Item, 0, len(us))
	for _, u := range us {
		it := Item{Key: u.Key}
		switch {
		case u.Asset.Path != "":
			it.Paths = []string{u.Asset.Path}
		case u.Placeholder.Path != "":
			it.Paths = []string{u.Placeholder.Path}
		}
		out = append(out, it)
	}
	return out
}

// AddResults records executed units and the aggregate counters.
func (r *Report) AddResults(jobs []worker.JobContext, counts worker.Snapshot) {
	for _, jc := range jobs {
		switch {
		case jc.Err != nil:
			r.Failures = append(r.Failures, Item{Key: jc.Unit.Key, Reason: failureReason(jc)})
		case jc.Outcome.State == transfer.StateRestorePending:
			r.RestorePending = append(r.RestorePending, Item{Key: jc.Unit.Key, Reason: jc.Outcome.Message})
		}
	}
	r.Counts = counts
	r.BytesMoved = counts.BytesMoved()
}

func failureReason(jc worker.JobContext) string {
	var ex *retry.ExhaustedError
	if errors.As(jc.Err, &ex) {
		return jc.Unit.Kind.String() + ": " + ex.Error() + " (transient, re-run to retry)"
	}
	return jc.Unit.Kind.String() + ": " + jc.Err.Error()
}

// Finish stamps the end time and the overall verdict. A non-nil err always
// fails the run.
func (r *Report) Finish(err error) {
	r.Finished = time.Now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
	r.Success = err == nil && !r.Rejected && len(r.Failures) == 0
}
