package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/pipeline"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the workspace directories and the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Workspace ready at %s\nLedger ready at %s\n", a.layout.Root, a.cfg.LedgerPath)
			return nil
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Download new document attachments from the mailbox",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, passes{ingest: true}, func(r *pipeline.Runner) (summary, error) {
			s, err := r.Ingest(cmd.Context())
			if s == nil {
				return nil, err
			}
			return s, err
		})
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Transcribe downloaded PDFs to markdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, passes{convert: true}, func(r *pipeline.Runner) (summary, error) {
			s, err := r.Convert(cmd.Context())
			if s == nil {
				return nil, err
			}
			return s, err
		})
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured JSON from converted markdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, passes{extract: true}, func(r *pipeline.Runner) (summary, error) {
			s, err := r.Extract(cmd.Context())
			if s == nil {
				return nil, err
			}
			return s, err
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ingest, convert and extract in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPass(cmd, allPasses, func(r *pipeline.Runner) (summary, error) {
			s, err := r.RunAll(cmd.Context())
			if s == nil {
				return nil, err
			}
			return s, err
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show ledger statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			report, err := a.maintainer().Report(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), report)
		})
	},
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove duplicate ledger rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			r, err := a.runner(cmd.Context(), passes{})
			if err != nil {
				return err
			}
			removed, remaining, err := r.Dedupe(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), dedupeResult{Removed: removed, Remaining: remaining})
		})
	},
}

type dedupeResult struct {
	Removed   int `json:"removed" yaml:"removed"`
	Remaining int `json:"remaining" yaml:"remaining"`
}

func (d dedupeResult) String() string {
	if d.Removed == 0 {
		return fmt.Sprintf("No duplicate entries found. %d entries in the ledger.", d.Remaining)
	}
	return fmt.Sprintf("Removed %d duplicate entries. %d entries remain.", d.Removed, d.Remaining)
}

// runPass builds a runner with the given passes, runs fn and prints what it returns.
// A summary is printed even when the pass reports an error.
func runPass(cmd *cobra.Command, p passes, fn func(*pipeline.Runner) (summary, error)) error {
	return withApp(cmd.Context(), func(a *app) error {
		r, err := a.runner(cmd.Context(), p)
		if err != nil {
			return err
		}
		s, runErr := fn(r)
		if s != nil {
			if err := printResult(cmd.OutOrStdout(), s); err != nil {
				return err
			}
		}
		return runErr
	})
}
