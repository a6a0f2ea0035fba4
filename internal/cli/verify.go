package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uamlab/uam/internal/ledger"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the hash chain",
		Long: `Walk the full ledger, recomputing every record's signature and
checking the hash-chain linkage back to the genesis marker.

Reports the first break found. Breaks are reported, never auto-repaired.

Exit codes:
  0 - chain intact
  1 - chain broken
  2 - command error (ledger not found, unreadable, etc.)

Examples:
  uam verify
  uam verify --db ./uam.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, q, err := openQuery(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			report, verifyErr := q.VerifyChain(context.Background())
			if verifyErr != nil && !ledger.IsChainError(verifyErr) {
				return WrapExitError(ExitCommandError, "verification failed to run", verifyErr)
			}

			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
				if err := f.JSON(report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if report.OK {
					fmt.Fprintf(out, "chain OK: %d record(s), head %s\n", report.Records, report.Head)
				} else {
					fmt.Fprintf(out, "chain BROKEN at record %d: %s\n", *report.FirstBreak, report.Detail)
				}
			}

			if !report.OK {
				return WrapExitError(ExitFailure, "chain verification failed", verifyErr)
			}
			return nil
		},
	}

	return cmd
}
