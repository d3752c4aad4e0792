package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIConfig holds configuration for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL    string // Optional; any OpenAI-compatible server
	APIKey     string
	Params     Params
	MaxRetries int           // Retry attempts for SDK transport
	Timeout    time.Duration // HTTP timeout
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIClient talks to an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client openai.Client
	params Params
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		params: cfg.Params,
	}
}

// StartSession opens a transcription conversation.
func (c *OpenAIClient) StartSession(ctx context.Context) (Session, error) {
	return &openAISession{
		c: c,
		history: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(TranscriptionSystemPrompt),
			openai.UserMessage(TranscriptionGuidelines),
			openai.AssistantMessage(guidelinesAck),
		},
	}, nil
}

// Complete sends a single prompt to the text model.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, c.params.TextModel, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	})
}

func (c *OpenAIClient) chat(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(float64(c.params.Temperature)),
	}
	if c.params.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.params.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
			return "", fmt.Errorf("%w: %s", ErrRefusal, refusal)
		}
		return "", ErrEmptyResponse
	}
	return content, nil
}

type openAISession struct {
	c       *OpenAIClient
	history []openai.ChatCompletionMessageParamUnion
}

// TranscribePage sends the page as a data URL and keeps the exchange in the history.
func (s *openAISession) TranscribePage(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	user := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(pagePrompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	})

	messages := append(s.history[:len(s.history):len(s.history)], user)
	raw, err := s.c.chat(ctx, s.c.params.VisionModel, messages)
	if err != nil {
		return "", err
	}

	text, err := pageReply(raw)
	if err != nil {
		return "", err
	}
	s.history = append(messages, openai.AssistantMessage(raw))
	return text, nil
}

// IsTransient reports whether an API error is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrRefusal) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}
