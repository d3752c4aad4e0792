package extract

import (
	"fmt"
	"strings"
)

// Failure is a markdown document that produced no result.
type Failure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Summary reports one extraction run.
type Summary struct {
	Found     int       `json:"found"`
	Extracted []string  `json:"extracted"`
	Skipped   []string  `json:"skipped"`
	Failed    []Failure `json:"failed"`
	// Recovered counts results whose JSON needed extraction or normalization.
	Recovered int `json:"recovered"`
}

// String renders the summary for people.
func (s *Summary) String() string {
	if s.Found == 0 {
		return "No markdown documents found in the output directory."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "JSON extraction: %d extracted, %d already done, %d failed\n",
		len(s.Extracted), len(s.Skipped), len(s.Failed))
	for _, out := range s.Extracted {
		fmt.Fprintf(&b, "   - %s\n", out)
	}
	if s.Recovered > 0 {
		fmt.Fprintf(&b, "   (%d recovered from malformed replies)\n", s.Recovered)
	}
	for _, f := range s.Failed {
		fmt.Fprintf(&b, "  ! %s: %s\n", f.File, f.Error)
	}
	return strings.TrimRight(b.String(), "\n")
}
