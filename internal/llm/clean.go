package llm

import (
	"fmt"
	"strings"
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// CleanMarkdown trims a model reply and strips a surrounding code fence.
func CleanMarkdown(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```md")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CheckRefusal returns ErrRefusal when a reply reads like a refusal.
func CheckRefusal(reply string) error {
	lower := strings.ToLower(reply)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("%w: %q", ErrRefusal, phrase)
		}
	}
	return nil
}

// pageReply cleans a transcription reply and rejects refusals.
func pageReply(raw string) (string, error) {
	text := CleanMarkdown(raw)
	if err := CheckRefusal(text); err != nil {
		return "", err
	}
	return text, nil
}
