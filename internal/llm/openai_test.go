package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedRequest struct {
	Model    string            `json:"model"`
	Messages []json.RawMessage `json:"messages"`
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(OpenAIConfig{
		BaseURL:    srv.URL + "/v1/",
		APIKey:     "test-key",
		MaxRetries: 1,
		HTTPClient: srv.Client(),
		Params:     Params{VisionModel: "vision-model", TextModel: "text-model"},
	})
}

func TestOpenAIClient_Complete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if !strings.Contains(r.Header.Get("Authorization"), "test-key") {
			t.Error("missing Authorization header")
		}
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "text-model" {
			t.Errorf("model = %q, want text-model", req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"name": "ACME"}`))
	})

	got, err := client.Complete(context.Background(), "extract")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"name": "ACME"}` {
		t.Errorf("Complete() = %q", got)
	}
}

func TestOpenAIClient_SessionKeepsHistory(t *testing.T) {
	var sizes []int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Model != "vision-model" {
			t.Errorf("model = %q, want vision-model", req.Model)
		}
		last := string(req.Messages[len(req.Messages)-1])
		if !strings.Contains(last, "data:image/png;base64,") {
			t.Errorf("last message carries no image: %s", last)
		}
		sizes = append(sizes, len(req.Messages))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(fmt.Sprintf("```markdown\n## Section %d\n```", len(sizes))))
	})

	ctx := context.Background()
	session, err := client.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	first, err := session.TranscribePage(ctx, []byte("page-1"), "image/png")
	if err != nil {
		t.Fatalf("TranscribePage() error = %v", err)
	}
	if first != "## Section 1" {
		t.Errorf("TranscribePage() = %q, want fence stripped", first)
	}
	if _, err := session.TranscribePage(ctx, []byte("page-2"), ""); err != nil {
		t.Fatalf("TranscribePage() error = %v", err)
	}

	// system, guidelines, ack, page 1; then + reply 1, page 2
	if len(sizes) != 2 || sizes[0] != 4 || sizes[1] != 6 {
		t.Errorf("message counts = %v, want [4 6]", sizes)
	}
}

func TestOpenAIClient_Refusal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("I cannot provide a transcription of this image."))
	})

	session, _ := client.StartSession(context.Background())
	_, err := session.TranscribePage(context.Background(), []byte("x"), "image/png")
	if !errors.Is(err, ErrRefusal) {
		t.Errorf("TranscribePage() error = %v, want ErrRefusal", err)
	}
	if IsTransient(err) {
		t.Error("a refusal should not be retried")
	}
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad request", "type": "invalid_request_error"}}`))
	})

	_, err := client.Complete(context.Background(), "x")
	if err == nil {
		t.Fatal("Complete() expected error")
	}
	if IsTransient(err) {
		t.Errorf("IsTransient(%v) = true, want false for 400", err)
	}
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := completion("")
		resp["choices"] = []any{}
		_ = json.NewEncoder(w).Encode(resp)
	})

	if _, err := client.Complete(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Complete() error = %v, want ErrEmptyResponse", err)
	}
}
