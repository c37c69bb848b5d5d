package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Setting is the payload of the settings commands.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write local register settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "get <key>",
		Short:         "Print a setting",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsGet(rootOpts, cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "set <key> <value>",
		Short:         "Store a setting",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(rootOpts, cmd, args[0], args[1])
		},
	})
	return cmd
}

func runSettingsGet(opts *RootOptions, cmd *cobra.Command, key string) error {
	f := newFormatter(cmd, opts)

	svc, _, err := openService(cmd, opts, false)
	if err != nil {
		return f.Fail(asExitError(err))
	}
	defer closeService(svc, cmd)

	value, ok, err := svc.Setting(commandContext(cmd), key)
	if err != nil {
		return f.Fail(serviceExit("failed to read setting", err))
	}
	if !ok {
		return f.Fail(NewExitError(ExitFailure, fmt.Sprintf("setting %q is not set", key)))
	}
	return f.Emit(Setting{Key: key, Value: value}, func(w io.Writer) {
		fmt.Fprintln(w, value)
	})
}

func runSettingsSet(opts *RootOptions, cmd *cobra.Command, key, value string) error {
	f := newFormatter(cmd, opts)

	svc, _, err := openService(cmd, opts, false)
	if err != nil {
		return f.Fail(asExitError(err))
	}
	defer closeService(svc, cmd)

	if err := svc.PutSetting(commandContext(cmd), key, value); err != nil {
		return f.Fail(serviceExit("failed to store setting", err))
	}
	return f.Emit(Setting{Key: key, Value: value}, func(w io.Writer) {
		fmt.Fprintf(w, "%s = %s\n", key, value)
	})
}
