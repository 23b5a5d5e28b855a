package internal

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/config"
	"github.com/MrSnakeDoc/cellar/internal/core"
	"github.com/MrSnakeDoc/cellar/internal/errs"
	"github.com/MrSnakeDoc/cellar/internal/middleware"
	"github.com/MrSnakeDoc/cellar/internal/prompter"
	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/MrSnakeDoc/cellar/internal/report"
	"github.com/MrSnakeDoc/cellar/internal/utils"

	"github.com/spf13/cobra"
)

// newRemoteFactory is swapped in tests.
var newRemoteFactory = func(o *config.Options) (remote.Factory, error) {
	return remote.NewMinioFactory(remote.Config{
		Endpoint: o.Endpoint,
		Region:   o.Region,
		Bucket:   o.Bucket,
		Secure:   o.Secure,
	})
}

type runFlags struct {
	minSize       string
	minAge        int
	ext           []string
	excludeExt    []string
	workers       int
	retries       int
	retryInterval time.Duration
	restoreBucket string
	format        string
	metricsFile   string
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.minSize, "min-size", "", "Only archive files at least this large (e.g. 5GB)")
	fl.IntVar(&f.minAge, "min-age", 0, "Only archive files not modified for this many days")
	fl.StringSliceVar(&f.ext, "ext", nil, "Only archive these extensions")
	fl.StringSliceVar(&f.excludeExt, "exclude-ext", nil, "Never archive these extensions")
	fl.IntVarP(&f.workers, "workers", "w", 0, "Maximum concurrent transfers")
	fl.IntVar(&f.retries, "retries", 0, "Attempts per remote operation")
	fl.DurationVar(&f.retryInterval, "retry-interval", 0, "Wait before the first retry")
}

// apply overlays explicitly set flags on the configured options.
func (f *runFlags) apply(cmd *cobra.Command, o *config.Options) error {
	changed := cmd.Flags().Changed

	if changed("ext") && changed("exclude-ext") {
		return middleware.FlagComboError(errs.ExtAllowAndDeny)
	}
	if changed("min-size") {
		n, err := utils.ParseSize(f.minSize)
		if err != nil {
			return err
		}
		o.MinSize = n
	}
	if changed("min-age") {
		o.MinAgeDays = f.minAge
	}
	if changed("ext") {
		o.Extensions, o.ExtensionMode = f.ext, "allow"
	}
	if changed("exclude-ext") {
		o.Extensions, o.ExtensionMode = f.excludeExt, "deny"
	}
	if changed("workers") {
		o.MaxWorkers = f.workers
	}
	if changed("retries") {
		o.Retries = f.retries
	}
	if changed("retry-interval") {
		o.RetryInterval = f.retryInterval
	}
	if changed("restore-bucket") {
		if f.restoreBucket == o.Bucket {
			return middleware.FlagComboError(errs.RestoreBucketIsSource)
		}
		o.RestoreBucket = f.restoreBucket
	}
	if changed("format") {
		o.ReportFormat = f.format
	}
	if changed("metrics-file") {
		o.MetricsFile = f.metricsFile
	}
	return nil
}

func NewSyncCmd() *cobra.Command {
	var (
		f   runFlags
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the archive root with the bucket and apply pending work",
		Long: `Scan the archive root, parse every placeholder, list the bucket and
reconcile the three views. Any validation error or drift rejects the whole
run before anything is changed. Otherwise this command:
- uploads old, large files and leaves a placeholder behind
- restores files whose placeholder was renamed with "cellar restore"
- deletes remote objects whose placeholder was renamed with "cellar delete"

Examples:
  cellar sync --dry-run
  cellar sync --min-size 10GB --min-age 90 --ext .bam --ext .cram
  cellar sync --delete-local --yes --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := middleware.Options(cmd)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, opts); err != nil {
				return err
			}

			fl := cmd.Flags()
			opts.DryRun, _ = fl.GetBool("dry-run")
			opts.DeleteAfterArchive, _ = fl.GetBool("delete-local")
			opts.RestoreMissingPlaceholders, _ = fl.GetBool("restore-missing-placeholders")
			opts.VerifyTags, _ = fl.GetBool("verify-tags")

			if opts.DeleteAfterArchive && !opts.DryRun && !yes {
				ok, err := prompter.New(cmd.InOrStdin(), cmd.OutOrStdout()).
					Confirm("Local copies will be deleted once their upload is verified. Continue?")
				if err != nil || !ok {
					return middleware.FlagComboError(errs.DeleteLocalNeedsConfirm)
				}
			}

			format, err := report.ParseFormat(opts.ReportFormat)
			if err != nil {
				return err
			}

			factory, err := newRemoteFactory(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rep, runErr := core.New(*opts, factory).Run(ctx)
			if rep != nil {
				if err := rep.Render(cmd.OutOrStdout(), format); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.restoreBucket, "restore-bucket", "", "Restore into this bucket instead of the local tree")
	cmd.Flags().StringVar(&f.format, "format", "", "Report format: table, text, json or yaml")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics here")
	cmd.Flags().BoolP("dry-run", "n", false, "Plan and report without changing anything")
	cmd.Flags().Bool("delete-local", false, "Remove local files once their upload is verified")
	cmd.Flags().Bool("restore-missing-placeholders", false, "Recreate placeholders for orphaned remote objects")
	cmd.Flags().Bool("verify-tags", false, "Check the path tag of every archived object")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
