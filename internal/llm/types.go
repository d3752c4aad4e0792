package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks docflow/internal/llm Transcriber,Session,Completer

import (
	"context"
	"errors"
)

// ErrRefusal is returned when a model declines to answer instead of transcribing.
var ErrRefusal = errors.New("model refused the request")

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("model returned no content")

// Transcriber opens page-by-page transcription sessions with a vision model.
type Transcriber interface {
	// StartSession opens a conversation primed with the transcription guidelines.
	StartSession(ctx context.Context) (Session, error)
}

// Session transcribes the pages of one document. Earlier pages and replies
// stay in the conversation as context for later ones.
type Session interface {
	// TranscribePage sends one page image and returns its markdown.
	TranscribePage(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Completer answers a single text prompt.
type Completer interface {
	// Complete sends prompt and returns the raw reply text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Params holds generation parameters shared by the providers.
type Params struct {
	// VisionModel transcribes page images.
	VisionModel string

	// TextModel answers extraction prompts.
	TextModel string

	// Temperature controls the randomness of the output.
	Temperature float32

	// MaxTokens caps the reply length. If 0, the provider default is used.
	MaxTokens int
}
