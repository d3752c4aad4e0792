package convert

import (
	"fmt"
	"strings"
)

// Failure is a document that could not be converted.
type Failure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Summary reports one conversion run.
type Summary struct {
	Found     int       `json:"found"`
	Converted []string  `json:"converted"`
	Skipped   []string  `json:"skipped"`
	Failed    []Failure `json:"failed"`
}

// String renders the summary for people.
func (s *Summary) String() string {
	if s.Found == 0 {
		return "No PDF files found in the download directory."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Markdown conversion: %d converted, %d already done, %d failed\n",
		len(s.Converted), len(s.Skipped), len(s.Failed))
	for _, out := range s.Converted {
		fmt.Fprintf(&b, "   - %s\n", out)
	}
	for _, f := range s.Failed {
		fmt.Fprintf(&b, "  ! %s: %s\n", f.File, f.Error)
	}
	return strings.TrimRight(b.String(), "\n")
}
