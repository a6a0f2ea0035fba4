package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uamlab/uam/internal/ledger"
	"github.com/uamlab/uam/internal/query"
	"github.com/uamlab/uam/internal/store"
)

// openQuery opens the ledger read-side. The caller must Close the store.
func openQuery(opts *RootOptions) (*store.Store, *query.Query, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return st, query.New(st), nil
}

type lookupOptions struct {
	*RootOptions
	Kind string
	Name string
}

func addLookupFlags(cmd *cobra.Command, opts *lookupOptions) {
	cmd.Flags().StringVar(&opts.Kind, "kind", "constant", "record kind (constant|derivation|dataset|failure)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "record name (required)")
	_ = cmd.MarkFlagRequired("name")
}

// NewCurrentCommand creates the current command.
func NewCurrentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &lookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the current record for a name",
		Long: `Show the most recent record for a kind+name.

"Current" means the latest revision: earlier registrations under the
same name remain in history (see "uam history").

Examples:
  uam current --kind constant --name C_S
  uam current --kind derivation --name BKM_Criterion --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, q, err := openQuery(opts.RootOptions)
			if err != nil {
				return err
			}
			defer st.Close()

			kind, err := ledger.ParseKind(opts.Kind)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --kind", err)
			}

			rec, err := q.Current(context.Background(), kind, opts.Name)
			if store.IsNotFound(err) {
				return WrapExitError(ExitFailure, fmt.Sprintf("no %s named %q", kind, opts.Name), nil)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "lookup failed", err)
			}
			return emitRecord(cmd, opts.RootOptions, rec)
		},
	}

	addLookupFlags(cmd, opts)
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &lookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show all revisions for a name",
		Long: `Show every record for a kind+name in insertion order, oldest first.

Example:
  uam history --kind constant --name C_S`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, q, err := openQuery(opts.RootOptions)
			if err != nil {
				return err
			}
			defer st.Close()

			kind, err := ledger.ParseKind(opts.Kind)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --kind", err)
			}

			records, err := q.History(context.Background(), kind, opts.Name)
			if err != nil {
				return WrapExitError(ExitCommandError, "lookup failed", err)
			}

			if opts.Format == "json" {
				views := make([]recordView, len(records))
				for i, rec := range records {
					views[i] = viewOf(rec)
				}
				f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
				return f.JSON(views)
			}

			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s named %q.\n", kind, opts.Name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d revision(s) of %s %q:\n\n", len(records), kind, opts.Name)
			for _, rec := range records {
				printRecord(cmd.OutOrStdout(), rec)
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	addLookupFlags(cmd, opts)
	return cmd
}

type searchOptions struct {
	*RootOptions
	Text string
}

// SearchResult holds the search command output.
type SearchResult struct {
	Hits    []query.Hit        `json:"hits"`
	Skipped []query.SkippedRow `json:"skipped,omitempty"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &searchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search serialized record content",
		Long: `Case-insensitive substring search over the serialized content of
every record. Matches are reported in store order, unranked. Rows that
cannot be parsed are skipped and listed separately.

Examples:
  uam search --text gamma
  uam search --text "spectral" --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, q, err := openQuery(opts.RootOptions)
			if err != nil {
				return err
			}
			defer st.Close()

			hits, skipped, err := q.Search(context.Background(), opts.Text)
			if err != nil {
				return WrapExitError(ExitCommandError, "search failed", err)
			}

			if opts.Format == "json" {
				f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
				return f.JSON(SearchResult{Hits: hits, Skipped: skipped})
			}

			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintf(out, "No records matching %q.\n", opts.Text)
			} else {
				fmt.Fprintf(out, "%d record(s) matching %q:\n", len(hits), opts.Text)
				for _, h := range hits {
					fmt.Fprintf(out, "  %4d  %-10s  %s\n", h.Position, h.Kind, h.Name)
				}
			}
			for _, s := range skipped {
				fmt.Fprintf(out, "warning: skipped damaged record %d: %s\n", s.Position, s.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Text, "text", "", "text to search for (required)")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}
