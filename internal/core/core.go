package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/cellar/internal/config"
	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/metrics"
	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/MrSnakeDoc/cellar/internal/placeholder"
	"github.com/MrSnakeDoc/cellar/internal/reconcile"
	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/MrSnakeDoc/cellar/internal/report"
	"github.com/MrSnakeDoc/cellar/internal/retry"
	"github.com/MrSnakeDoc/cellar/internal/scanner"
	"github.com/MrSnakeDoc/cellar/internal/transfer"
	"github.com/MrSnakeDoc/cellar/internal/utils"
	"github.com/MrSnakeDoc/cellar/internal/worker"
)

var (
	// ErrPlanRejected means reconciliation found errors and nothing was executed.
	ErrPlanRejected = errors.New("plan rejected: resolve the reported errors and run again")
	// ErrUnitsFailed means at least one unit failed; all others ran.
	ErrUnitsFailed = errors.New("one or more units failed")
)

// Options are the engine inputs.
type Options = config.Options

// Engine runs one scan, reconcile and execute cycle.
//
// Fields:
//   - Options: the invocation inputs (root, bucket, thresholds, flags)
//   - Factory: builds one remote client per caller; workers never share one
//   - Now: clock used for age thresholds and placeholder timestamps
//
// Nothing is persisted between runs: every run rebuilds its view from the
// filesystem and the remote listing.
type Engine struct {
	Options Options
	Factory remote.Factory
	Now     func() time.Time

	// RunID is generated by Run when empty.
	RunID string
}

func New(opts Options, factory remote.Factory) *Engine {
	return &Engine{Options: opts, Factory: factory, Now: time.Now}
}

// Run executes the full cycle and always returns a report, even on error.
//
// Flow:
//  1. Scan the local tree and parse every placeholder
//  2. List the remote prefix (retried) and optionally fetch path tags
//  3. Reconcile; any finding rejects the run with zero mutations
//  4. Stop here on a dry run
//  5. Remove leftover temp files, then execute all units on the pool
//
// Returns ErrPlanRejected or ErrUnitsFailed when the run did not succeed.
func (e *Engine) Run(ctx context.Context) (rep *report.Report, err error) {
	o := e.Options
	if e.RunID == "" {
		e.RunID = uuid.NewString()
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	rep = report.New(e.RunID, o.Root, o.Bucket, o.DryRun)

	defer func() {
		rep.Finish(err)
		if o.MetricsFile == "" {
			return
		}
		m := metrics.New()
		m.Observe(rep)
		if werr := m.WriteFile(o.MetricsFile); werr != nil {
			logger.Warn("%v", werr)
		}
	}()

	if err := o.Validate(); err != nil {
		return rep, err
	}

	layout := placeholder.NewLayout(o.Root, o.Prefix, o.PlaceholderSuffix)
	policy := o.RetryPolicy()

	plan, scan, err := e.plan(ctx, layout, policy)
	if err != nil {
		return rep, err
	}
	rep.Scan = report.ScanSummary{
		Candidates:   len(scan.Candidates),
		Placeholders: len(scan.Placeholders),
		Partials:     len(scan.Partials),
		Symlinks:     scan.Skipped.Symlinks,
	}
	rep.AddPlan(plan)

	if plan.Rejected() {
		for _, f := range plan.Findings {
			logger.LogError("%s", f)
		}
		return rep, ErrPlanRejected
	}

	units := plan.Units()
	if o.DryRun {
		logger.Info("dry run: %d unit(s) planned, nothing executed", len(units))
		return rep, nil
	}

	removed, cerr := transfer.CleanPartials(scan.Partials)
	rep.Scan.PartialsRemoved = removed
	if cerr != nil {
		return rep, fmt.Errorf("remove partial files: %w", cerr)
	}

	if len(units) == 0 {
		logger.Success("nothing to do")
		return rep, nil
	}

	pool := worker.New(worker.Options{
		MaxWorkers: o.MaxWorkers,
		Factory:    e.Factory,
		Handler:    e.handler(layout, policy),
	})
	jobs := pool.Run(ctx, units)
	rep.AddResults(jobs, pool.Stats().Snapshot())

	if pool.Failed() {
		return rep, ErrUnitsFailed
	}
	return rep, nil
}

// Plan runs the read-only half of the cycle.
func (e *Engine) Plan(ctx context.Context) (*reconcile.Plan, error) {
	o := e.Options
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	layout := placeholder.NewLayout(o.Root, o.Prefix, o.PlaceholderSuffix)
	plan, _, err := e.plan(ctx, layout, o.RetryPolicy())
	return plan, err
}

func (e *Engine) plan(ctx context.Context, layout placeholder.Layout, policy retry.Policy) (*reconcile.Plan, *scanner.Result, error) {
	o := e.Options

	mode, err := scanner.ParseMode(o.ExtensionMode)
	if err != nil {
		return nil, nil, err
	}
	var rules []scanner.IndexRule
	if mode == scanner.ModeAllow {
		rules = scanner.DefaultIndexRules
	}

	scan, err := scanner.Scan(ctx, scanner.Options{
		Root:       layout.Root,
		MinSize:    o.MinSize,
		MinAgeDays: o.MinAgeDays,
		Extensions: o.Extensions,
		Mode:       mode,
		Layout:     layout,
		IndexRules: rules,
		Now:        e.Now,
	})
	if err != nil {
		return nil, nil, err
	}

	set, findings := placeholder.LoadAll(scan.Placeholders, layout)

	client, err := e.Factory()
	if err != nil {
		return nil, nil, fmt.Errorf("create remote client: %w", err)
	}
	listing, err := retry.Value(ctx, policy, "list "+o.Bucket+"/"+layout.ListPrefix(), func(ctx context.Context) ([]models.RemoteObject, error) {
		return client.List(ctx, layout.ListPrefix())
	})
	if err != nil {
		return nil, nil, err
	}

	objects := make(map[string]models.RemoteObject, len(listing))
	for _, obj := range listing {
		objects[obj.Key] = obj
	}
	logger.Debug("remote listing: %d object(s) under %q", len(objects), layout.ListPrefix())

	if o.VerifyTags {
		if err := fetchTags(ctx, client, policy, set, objects); err != nil {
			return nil, nil, err
		}
	}

	plan := reconcile.Reconcile(reconcile.Input{
		Scan:                scan,
		Placeholders:        set,
		PlaceholderFindings: findings,
		Remote:              objects,
		Layout:              layout,
		Options: reconcile.Options{
			RestoreMissingPlaceholders: o.RestoreMissingPlaceholders,
			DeleteAfterArchive:         o.DeleteAfterArchive,
			RestoreToBucket:            o.RestoreBucket != "",
			VerifyTags:                 o.VerifyTags,
			IndexRules:                 rules,
		},
	})
	return plan, scan, nil
}

// fetchTags loads the path tag of every placeholder-backed object.
func fetchTags(ctx context.Context, c remote.Client, policy retry.Policy, set placeholder.Set, objects map[string]models.RemoteObject) error {
	for _, key := range set.Keys() {
		obj, ok := objects[key]
		if !ok {
			continue
		}
		ph := set.ByKey[key]
		tags, err := retry.Value(ctx, policy, "tags "+key, func(ctx context.Context) (map[string]string, error) {
			return c.Tags(ctx, key, ph.VersionID)
		})
		if err != nil {
			return err
		}
		obj.Tags = tags
		objects[key] = obj
	}
	return nil
}

func (e *Engine) handler(layout placeholder.Layout, policy retry.Policy) worker.Handler {
	o := e.Options

	var dst transfer.Destination = transfer.LocalDestination{Retry: policy}
	if o.RestoreBucket != "" {
		dst = transfer.BucketDestination{Bucket: o.RestoreBucket, StorageClass: o.RestoreStorageClass, Retry: policy}
	}

	uploader := &transfer.Uploader{
		Layout:       layout,
		Region:       o.Region,
		StorageClass: o.StorageClass,
		DeleteLocal:  o.DeleteAfterArchive,
		Retry:        policy,
		Now:          e.Now,
	}
	restorer := &transfer.Restorer{
		Retriever: &transfer.Retriever{
			Registry: transfer.NewRegistry(),
			Retry:    policy,
			Days:     o.RestoreDays,
			Tier:     o.RestoreTier,
		},
		Destination: dst,
		Layout:      layout,
	}
	deleter := &transfer.Deleter{Retry: policy}
	reconstructor := &transfer.Reconstructor{Layout: layout, Region: o.Region}

	return func(ctx context.Context, c remote.Client, jc *worker.JobContext) (transfer.Outcome, error) {
		u := jc.Unit
		jc.Debugf("start (%s)", utils.HumanSize(u.Size()))
		switch u.Kind {
		case reconcile.UnitUpload:
			return uploader.Upload(ctx, c, u.Asset)
		case reconcile.UnitRestore:
			return restorer.Restore(ctx, c, u.Placeholder)
		case reconcile.UnitDelete:
			return deleter.Delete(ctx, c, u.Placeholder)
		case reconcile.UnitReconstruct:
			return reconstructor.Reconstruct(c, u.Remote, u.Asset.Path)
		case reconcile.UnitLocalDelete:
			return transfer.LocalCleaner{}.Clean(u.Asset)
		default:
			return transfer.Outcome{State: transfer.StateFailed}, fmt.Errorf("unknown unit kind %s", u.Kind)
		}
	}
}
