package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kassir-pos/possync/internal/checkout"
	"github.com/kassir-pos/possync/internal/engine"
)

// EnqueueOptions holds flags for the enqueue command.
type EnqueueOptions struct {
	*RootOptions
	File string
	Sync bool
}

// EnqueueResult is the enqueue command's payload.
type EnqueueResult struct {
	LocalID string         `json:"local_id"`
	Sync    *engine.Result `json:"sync,omitempty"`
}

// NewEnqueueCommand creates the enqueue command.
func NewEnqueueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnqueueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "enqueue -f <sale.yaml>",
		Short: "Record a finalized sale in the local queue",
		Long: `Record a finalized sale as a pending intent. Nothing is sent to the
backend unless --sync is given, in which case a sync run follows the write.

The sale file is YAML (or JSON) with the fields of a checkout order:

  payment_method: cash
  comment: table 4
  discount: {value: 10, percent: true}
  items:
    - {product_id: p-1, quantity: 3, price: 335}

Use "-f -" to read the sale from stdin.

Example:
  kassir enqueue -f sale.yaml
  kassir enqueue -f sale.yaml --sync --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "sale file (required)")
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "run a sync after writing the sale")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runEnqueue(opts *EnqueueOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	order, err := readOrder(opts.File, cmd.InOrStdin())
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "failed to read sale", err))
	}

	svc, _, err := openService(cmd, opts.RootOptions, opts.Sync)
	if err != nil {
		return f.Fail(asExitError(err))
	}
	defer closeService(svc, cmd)

	ctx := commandContext(cmd)
	localID, err := svc.Enqueue(ctx, order.SaleData())
	if err != nil {
		return f.Fail(serviceExit("failed to enqueue sale", err))
	}
	out := EnqueueResult{LocalID: localID}
	if !opts.Sync {
		return f.Emit(out, func(w io.Writer) {
			fmt.Fprintf(w, "Queued %s\n", localID)
		})
	}

	res, err := svc.RunSync(ctx)
	if err != nil {
		return f.Fail(serviceExit("sale queued but sync failed", err))
	}
	out.Sync = &res
	text := func(w io.Writer) {
		fmt.Fprintf(w, "Queued %s\n", localID)
		printSyncResult(w, res)
	}
	if exitErr := syncFailure(res); exitErr != nil {
		return f.FailWith("SYNC_INCOMPLETE", out, exitErr, text)
	}
	return f.Emit(out, text)
}

// readOrder decodes a sale file strictly; "-" reads from stdin.
func readOrder(path string, stdin io.Reader) (checkout.Order, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return checkout.Order{}, err
	}

	var order checkout.Order
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&order); err != nil {
		return checkout.Order{}, fmt.Errorf("%s: %w", path, err)
	}
	return order, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func asExitError(err error) *ExitError {
	if exitErr, ok := err.(*ExitError); ok {
		return exitErr
	}
	return WrapExitError(ExitFailure, "command failed", err)
}
