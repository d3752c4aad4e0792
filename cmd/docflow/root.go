package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"docflow/internal/config"
)

var (
	outputFormat string
	cfg          *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docflow",
	Short: "Turn emailed PDF attachments into structured JSON",
	Long: `Docflow downloads document attachments from a mailbox, transcribes every
PDF page to markdown with a vision model and extracts structured JSON with a
text model.

Every stage is recorded in a ledger so a document is never downloaded,
converted or extracted twice:
  ingest   download new attachments, skipping duplicates
  convert  PDF pages to markdown
  extract  markdown to JSON using the matching schema
  run      all three in order`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("output format must be text, json or yaml, got %q", outputFormat)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		setupLogging(cfg, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, json or yaml",
	)

	rootCmd.AddCommand(initCmd, ingestCmd, convertCmd, extractCmd, runCmd, reportCmd, dedupeCmd, serveCmd)
}

// setupLogging installs the default logger. Logs go to stderr so that
// summaries on stdout stay machine readable.
func setupLogging(cfg *config.Config, w io.Writer) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
}

type summary interface {
	String() string
}

// printResult writes v in the selected output format.
func printResult(w io.Writer, v summary) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		_, err := fmt.Fprintln(w, v.String())
		return err
	}
}
