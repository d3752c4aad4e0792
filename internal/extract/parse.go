package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrUnrecoverableJSON is returned when no JSON object can be recovered from a reply.
var ErrUnrecoverableJSON = errors.New("no valid JSON object in model reply")

// ParseMode records how a reply was turned into JSON.
type ParseMode string

const (
	// ModeStrict means the reply was a JSON object as-is.
	ModeStrict ParseMode = "strict"
	// ModeExtracted means the object was cut out of surrounding text or a code fence.
	ModeExtracted ParseMode = "extracted"
	// ModeNormalized means the object only parsed after whitespace and quote normalization.
	ModeNormalized ParseMode = "normalized"
)

// Parsed is a JSON object recovered from a model reply.
type Parsed struct {
	Value map[string]any
	Mode  ParseMode
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseJSON recovers a JSON object from reply. It tries a strict parse, then
// the outermost {...} span, then the span with newlines collapsed, single
// quotes replaced and trailing commas dropped.
func ParseJSON(reply string) (Parsed, error) {
	text := strings.TrimSpace(reply)

	if v, ok := decodeObject(text); ok {
		return Parsed{Value: v, Mode: ModeStrict}, nil
	}

	span := objectSpan(text)
	if span == "" {
		return Parsed{}, ErrUnrecoverableJSON
	}
	if v, ok := decodeObject(span); ok {
		return Parsed{Value: v, Mode: ModeExtracted}, nil
	}

	normalized := whitespaceRun.ReplaceAllString(span, " ")
	normalized = strings.ReplaceAll(normalized, "'", `"`)
	normalized = trailingComma.ReplaceAllString(normalized, "$1")
	if v, ok := decodeObject(normalized); ok {
		return Parsed{Value: v, Mode: ModeNormalized}, nil
	}

	return Parsed{}, ErrUnrecoverableJSON
}

func decodeObject(text string) (map[string]any, bool) {
	var v map[string]any
	if err := json.Unmarshal([]byte(text), &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// objectSpan returns the text from the first '{' to the last '}'.
func objectSpan(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
