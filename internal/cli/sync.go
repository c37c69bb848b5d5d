package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kassir-pos/possync/internal/engine"
	"github.com/kassir-pos/possync/internal/possync"
	"github.com/kassir-pos/possync/internal/refdata"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Post every queued sale to the backend",
		Long: `Run one sync pass over the local queue.

Each pending sale is posted to the backend once; confirmed sales are removed
from the queue and everything else stays for the next run.

Exit codes:
  0 - Queue drained (or already empty)
  1 - Backend unreachable, or one or more sales left in the queue
  2 - Command error (config, database)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	svc, _, err := openService(cmd, opts, true)
	if err != nil {
		return f.Fail(asExitError(err))
	}
	defer closeService(svc, cmd)

	res, err := svc.RunSync(commandContext(cmd))
	if err != nil {
		return f.Fail(serviceExit("sync failed", err))
	}
	text := func(w io.Writer) { printSyncResult(w, res) }
	if exitErr := syncFailure(res); exitErr != nil {
		return f.FailWith("SYNC_INCOMPLETE", res, exitErr, text)
	}
	return f.Emit(res, text)
}

// syncFailure turns a run that left work behind into an exit error.
func syncFailure(res engine.Result) *ExitError {
	switch {
	case res.Skipped == engine.SkipOffline:
		return NewExitError(ExitFailure, "backend unreachable, nothing synced")
	case res.Errors > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d sale(s) not synced", res.Errors))
	}
	return nil
}

func printSyncResult(w io.Writer, res engine.Result) {
	if res.Skipped != "" {
		fmt.Fprintf(w, "Sync skipped: %s\n", res.Skipped)
		return
	}
	fmt.Fprintf(w, "Synced: %d, failed: %d\n", res.Success, res.Errors)
	if res.BestEffortFailures > 0 {
		fmt.Fprintf(w, "Follow-up steps failed: %d\n", res.BestEffortFailures)
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and queue depth",
		Long: `Show whether the backend is reachable and how many sales are queued.

The backend is probed only when it is configured; otherwise it is reported
as offline.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	svc, cfg, err := openService(cmd, opts, false)
	if err != nil {
		return f.Fail(asExitError(err))
	}
	defer closeService(svc, cmd)

	ctx := commandContext(cmd)
	if remoteConfigured(opts, cfg) {
		svc.CheckOnline(ctx)
	}
	st, err := svc.Status(ctx)
	if err != nil {
		return f.Fail(serviceExit("failed to read queue", err))
	}
	return f.Emit(st, func(w io.Writer) { printStatus(w, st) })
}

func printStatus(w io.Writer, st possync.Status) {
	online := "no"
	if st.Online {
		online = "yes"
	}
	fmt.Fprintf(w, "Online:  %s\n", online)
	fmt.Fprintf(w, "Pending: %d\n", st.Pending)
	fmt.Fprintf(w, "Synced:  %d\n", st.Synced)
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload products and payment methods from the backend",
		Long: `Replace the local product and payment method caches with a fresh copy
from the backend. When any fetch fails the existing caches are kept.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(rootOpts, cmd)
		},
	}
}

func runRefresh(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	svc, _, err := openService(cmd, opts, true)
	if err != nil {
		return f.Fail(asExitError(err))
	}
	defer closeService(svc, cmd)

	sum, err := svc.Refresh(commandContext(cmd))
	if err != nil {
		return f.Fail(serviceExit("refresh failed", err))
	}
	return f.Emit(sum, func(w io.Writer) { printSummary(w, sum) })
}

func printSummary(w io.Writer, sum refdata.Summary) {
	fmt.Fprintf(w, "Products: %d, payment methods: %d\n", sum.Products, sum.PaymentMethods)
}
