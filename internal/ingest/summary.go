package ingest

import (
	"fmt"
	"strings"
	"time"
)

// Skip is an attachment rejected as a duplicate.
type Skip struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Failure is an attachment or message that could not be processed.
type Failure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Summary reports one ingestion run.
type Summary struct {
	Lookback        time.Duration `json:"-"`
	MessagesScanned int           `json:"messages_scanned"`
	Downloaded      []string      `json:"downloaded"`
	Skipped         []Skip        `json:"skipped"`
	Failed          []Failure     `json:"failed"`
	Emails          []string      `json:"emails"`
	// Unrecorded is set when files were written but the ledger save failed.
	Unrecorded bool `json:"unrecorded,omitempty"`
}

// String renders the summary for people.
func (s *Summary) String() string {
	if s.MessagesScanned == 0 {
		return fmt.Sprintf("No new emails with attachments found in the last %s.", s.Lookback)
	}
	if len(s.Downloaded) == 0 && len(s.Skipped) == 0 && len(s.Failed) == 0 {
		return "No new document attachments found in recent emails."
	}

	var b strings.Builder
	b.WriteString("Mail ingestion complete\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")

	if len(s.Downloaded) > 0 {
		fmt.Fprintf(&b, "Downloaded %d new attachments:\n", len(s.Downloaded))
		for _, f := range s.Downloaded {
			fmt.Fprintf(&b, "   - %s\n", f)
		}
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped %d duplicate attachments:\n", len(s.Skipped))
		for _, sk := range s.Skipped {
			fmt.Fprintf(&b, "  - %s: %s\n", sk.File, sk.Reason)
		}
	}
	if len(s.Failed) > 0 {
		fmt.Fprintf(&b, "\nFailed %d:\n", len(s.Failed))
		for _, f := range s.Failed {
			fmt.Fprintf(&b, "  - %s: %s\n", f.File, f.Error)
		}
	}
	if len(s.Emails) > 0 {
		b.WriteString("\nProcessed emails:\n")
		for _, e := range s.Emails {
			fmt.Fprintf(&b, "   %s\n", e)
		}
	}
	if s.Unrecorded {
		b.WriteString("\nWARNING: downloaded files were not recorded in the ledger\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
