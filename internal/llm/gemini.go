package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// GeminiClient talks to Gemini models on Vertex AI.
type GeminiClient struct {
	baseClient *genai.Client
	params     Params
}

// NewGeminiClient creates a new Vertex AI client.
func NewGeminiClient(ctx context.Context, projectID, region string, params Params) (*GeminiClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewGeminiClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &GeminiClient{baseClient: baseClient, params: params}, nil
}

func (c *GeminiClient) model(name string, system string) *genai.GenerativeModel {
	m := c.baseClient.GenerativeModel(name)
	if system != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	m.SetTemperature(c.params.Temperature)
	if c.params.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(c.params.MaxTokens))
	}
	return m
}

// StartSession opens a chat session and sends the transcription guidelines.
func (c *GeminiClient) StartSession(ctx context.Context) (Session, error) {
	cs := c.model(c.params.VisionModel, TranscriptionSystemPrompt).StartChat()
	if _, err := cs.SendMessage(ctx, genai.Text(TranscriptionGuidelines)); err != nil {
		return nil, fmt.Errorf("failed to send guidelines: %w", err)
	}
	return &geminiSession{cs: cs}, nil
}

// Complete sends a single prompt to the text model.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model(c.params.TextModel, "").GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Close releases the underlying client.
func (c *GeminiClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

type geminiSession struct {
	cs *genai.ChatSession
}

// TranscribePage sends one page image within the chat session.
func (s *geminiSession) TranscribePage(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	resp, err := s.cs.SendMessage(ctx, genai.Blob{MIMEType: mimeType, Data: image}, genai.Text(pagePrompt))
	if err != nil {
		return "", fmt.Errorf("failed to transcribe page: %w", err)
	}
	raw := responseText(resp)
	if raw == "" {
		return "", ErrEmptyResponse
	}
	return pageReply(raw)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
