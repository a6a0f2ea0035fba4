package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uamlab/uam/internal/check"
	"github.com/uamlab/uam/internal/query"
	"github.com/uamlab/uam/internal/registry"
	"github.com/uamlab/uam/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Name string
}

// ReplayView is the JSON shape of a replay outcome.
type ReplayView struct {
	Name    string     `json:"name"`
	Status  string     `json:"status"`
	Detail  string     `json:"detail,omitempty"`
	Outcome recordView `json:"outcome"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-check a stored derivation",
		Long: `Load the most recent derivation with the given name, re-run its
formula through the expression checker, and append one record capturing
the outcome (a superseding derivation on success, a failure otherwise).

The built-in checker is structural only (bracket balance); it makes no
mathematical validity claim.

Exit codes:
  0 - replay ran and the formula held up
  1 - replay ran and the formula did not hold up
  2 - command error (no such derivation, ledger not found, etc.)

Examples:
  uam replay --name BKM_Criterion
  uam replay --name formula-107 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open ledger", err)
			}
			defer st.Close()

			q := query.New(st)
			reg := registry.New(st)

			result, err := q.Replay(context.Background(), reg, check.Structural{}, opts.Name)
			if store.IsNotFound(err) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("no derivation named %q", opts.Name), nil)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "replay failed", err)
			}

			if opts.Format == "json" {
				f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
				if err := f.JSON(ReplayView{
					Name:    result.Name,
					Status:  string(result.Status),
					Detail:  result.Detail,
					Outcome: viewOf(result.Outcome),
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "replay %q: %s\n", result.Name, result.Status)
				if result.Detail != "" {
					fmt.Fprintf(out, "  detail: %s\n", result.Detail)
				}
				fmt.Fprintf(out, "  logged as record %d (%s %q)\n", result.Outcome.Position, result.Outcome.Kind, result.Outcome.Name)
			}

			if result.Status != query.StatusValid {
				return NewExitError(ExitFailure, fmt.Sprintf("replay %q: %s", result.Name, result.Status))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "derivation name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
