package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/uamlab/uam/internal/ledger"
	"github.com/uamlab/uam/internal/registry"
	"github.com/uamlab/uam/internal/store"
)

// NewRegisterCommand creates the register command group.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Append a record to the ledger",
		Long: `Append a constant, derivation, dataset, or failure record.

Registration never overwrites: registering an existing name appends a
superseding record and the full revision history is retained.`,
	}

	cmd.AddCommand(newRegisterConstantCommand(rootOpts))
	cmd.AddCommand(newRegisterDerivationCommand(rootOpts))
	cmd.AddCommand(newRegisterDatasetCommand(rootOpts))
	cmd.AddCommand(newRegisterFailureCommand(rootOpts))

	return cmd
}

// openRegistry opens the ledger and wraps it in the write facade.
// The caller must Close the returned store.
func openRegistry(opts *RootOptions) (*store.Store, *registry.Registry, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return st, registry.New(st), nil
}

// parseValue interprets a --value flag: integer, then float, then string.
func parseValue(s string) ledger.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ledger.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return ledger.Float(f)
	}
	return ledger.String(s)
}

// effectiveScale applies the resolved default when --scale was omitted.
func effectiveScale(flagValue string, opts *RootOptions) (ledger.Scale, error) {
	if flagValue == "" {
		flagValue = opts.DefaultScale
	}
	return ledger.ParseScale(flagValue)
}

func emitRecord(cmd *cobra.Command, opts *RootOptions, rec ledger.Record) error {
	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return f.JSON(viewOf(rec))
	}
	printRecord(cmd.OutOrStdout(), rec)
	return nil
}

type registerConstantOptions struct {
	*RootOptions
	Name        string
	Value       string
	Note        string
	Scale       string
	Source      string
	Explanation string
}

func newRegisterConstantCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &registerConstantOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "constant",
		Short: "Append a constant record",
		Long: `Append a mathematical or physical constant to the ledger.

Examples:
  uam register constant --name C_S --value 0.678 --scale analytic --source "Talenti (1976)"
  uam register constant --name gamma --value 0.8 --scale dimensionless`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, reg, err := openRegistry(opts.RootOptions)
			if err != nil {
				return err
			}
			defer st.Close()

			scale, err := effectiveScale(opts.Scale, opts.RootOptions)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --scale", err)
			}

			rec, err := reg.RegisterConstant(context.Background(), opts.Name, parseValue(opts.Value), opts.Note, scale, opts.Source, opts.Explanation)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to register constant", err)
			}
			return emitRecord(cmd, opts.RootOptions, rec)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "constant name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.Value, "value", "", "constant value (required)")
	_ = cmd.MarkFlagRequired("value")
	cmd.Flags().StringVar(&opts.Note, "note", "", "derivation note")
	cmd.Flags().StringVar(&opts.Scale, "scale", "", "scale (analytic|continuum|dimensionless|macroscopic|quantum|cosmic|fluid); default from config, else analytic")
	cmd.Flags().StringVar(&opts.Source, "source", "", "source citation")
	cmd.Flags().StringVar(&opts.Explanation, "explanation", "", "explanation")

	return cmd
}

type registerDerivationOptions struct {
	*RootOptions
	Name         string
	Formula      string
	Description  string
	Scale        string
	Reproducible bool
}

func newRegisterDerivationCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &registerDerivationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derivation",
		Short: "Append a derivation record",
		Long: `Append a derived equation or formula to the ledger.

The formula is stored as an opaque string; use "uam replay" to re-run it
through the expression checker later.

Example:
  uam register derivation --name BKM_Criterion --formula "f(x) < inf" --scale fluid`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, reg, err := openRegistry(opts.RootOptions)
			if err != nil {
				return err
			}
			defer st.Close()

			scale, err := effectiveScale(opts.Scale, opts.RootOptions)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --scale", err)
			}

			rec, err := reg.RegisterDerivation(context.Background(), opts.Name, opts.Formula, opts.Description, scale, opts.Reproducible)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to register derivation", err)
			}
			return emitRecord(cmd, opts.RootOptions, rec)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "derivation name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.Formula, "formula", "", "formula text (required)")
	_ = cmd.MarkFlagRequired("formula")
	cmd.Flags().StringVar(&opts.Description, "description", "", "what the derivation establishes")
	cmd.Flags().StringVar(&opts.Scale, "scale", "", "scale (analytic|continuum|dimensionless|macroscopic|quantum|cosmic|fluid); default from config, else analytic")
	cmd.Flags().BoolVar(&opts.Reproducible, "reproducible", false, "whether the derivation has been reproduced")

	return cmd
}

type registerDatasetOptions struct {
	*RootOptions
	Name        string
	Description string
	Source      string
	Validated   bool
}

func newRegisterDatasetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &registerDatasetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Append a dataset record",
		Long: `Append a dataset or experimental reference to the ledger.

Example:
  uam register dataset --name JHTDB --source https://turbulence.pha.jhu.edu --validated`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, reg, err := openRegistry(opts.RootOptions)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := reg.RegisterDataset(context.Background(), opts.Name, opts.Description, opts.Source, opts.Validated)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to register dataset", err)
			}
			return emitRecord(cmd, opts.RootOptions, rec)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "dataset name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "dataset description")
	cmd.Flags().StringVar(&opts.Source, "source", "", "dataset source URI")
	cmd.Flags().BoolVar(&opts.Validated, "validated", false, "whether the dataset has been validated")

	return cmd
}

type registerFailureOptions struct {
	*RootOptions
	Context string
	Reason  string
}

func newRegisterFailureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &registerFailureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "failure",
		Short: "Append a failure record",
		Long: `Record a failed derivation or experiment with its reason.

Failure records accumulate; they are never superseded.

Example:
  uam register failure --context "spectral gap check" --reason "out of bounds"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, reg, err := openRegistry(opts.RootOptions)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := reg.RegisterFailure(context.Background(), opts.Context, opts.Reason)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to register failure", err)
			}
			return emitRecord(cmd, opts.RootOptions, rec)
		},
	}

	cmd.Flags().StringVar(&opts.Context, "context", "", "what was being attempted (required)")
	_ = cmd.MarkFlagRequired("context")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "why it failed")

	return cmd
}
