package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kassir-pos/possync/internal/possync"
)

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List sales waiting in the local queue",
		Long: `List every intent still in the local queue, oldest first.

A "synced" intent was confirmed by the backend but not yet removed; the next
sync removes it without posting it again. DUP OF names an earlier intent with
the same sale payload; syncing both records the sale twice.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueue(rootOpts, cmd)
		},
	}
}

func runQueue(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	svc, _, err := openService(cmd, opts, false)
	if err != nil {
		return f.Fail(asExitError(err))
	}
	defer closeService(svc, cmd)

	entries, err := svc.Queue(commandContext(cmd))
	if err != nil {
		return f.Fail(serviceExit("failed to read queue", err))
	}
	return f.Emit(entries, func(w io.Writer) { printQueue(w, entries) })
}

func printQueue(w io.Writer, entries []possync.QueueEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCAL ID\tSTATUS\tTOTAL\tPAYMENT\tCREATED\tREMOTE ID\tDUP OF")
	for _, in := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			in.LocalID,
			in.Status,
			in.TotalAmount.String(),
			in.PaymentMethod,
			in.CreatedAt.Format(time.RFC3339),
			in.RemoteID,
			in.DuplicateOf,
		)
	}
	tw.Flush()
}
