// Package mail lists messages with attachments and fetches their bytes.
package mail

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_client.go -package=mocks docflow/internal/mail Client

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// DocumentExtensions is the attachment allow-list, compared case-insensitively.
var DocumentExtensions = []string{".pdf", ".docx", ".xlsx", ".doc", ".ppt", ".pptx", ".txt"}

// Client defines the mail provider operations the ingester needs.
type Client interface {
	// ListMessages returns the messages matching a provider query.
	ListMessages(ctx context.Context, query string) ([]MessageSummary, error)
	// GetMessage returns a message with headers and flattened attachment parts.
	GetMessage(ctx context.Context, id string) (*Message, error)
	// GetAttachment returns the decoded bytes of an attachment stored out of line.
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// MessageSummary identifies a message returned by a listing.
type MessageSummary struct {
	ID       string
	ThreadID string
}

// Message is a fetched message.
type Message struct {
	ID       string
	ThreadID string
	Headers  map[string]string // keyed by canonical header name
	Parts    []Part
}

// Part is one named part of a message. Data holds inline bytes; otherwise
// AttachmentID must be fetched with GetAttachment.
type Part struct {
	Filename     string
	MimeType     string
	Data         []byte
	AttachmentID string
}

// Header returns a header value by case-insensitive name.
func (m *Message) Header(name string) string {
	if v, ok := m.Headers[http.CanonicalHeaderKey(name)]; ok {
		return v
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Subject returns the Subject header or a placeholder.
func (m *Message) Subject() string {
	if s := m.Header("Subject"); s != "" {
		return s
	}
	return "No Subject"
}

// Sender returns the From header or a placeholder.
func (m *Message) Sender() string {
	if s := m.Header("From"); s != "" {
		return s
	}
	return "Unknown Sender"
}

// Documents returns the parts whose filename has an allowed extension.
func (m *Message) Documents() []Part {
	var docs []Part
	for _, p := range m.Parts {
		if IsDocument(p.Filename) {
			docs = append(docs, p)
		}
	}
	return docs
}

// IsDocument reports whether filename has an allowed document extension.
func IsDocument(filename string) bool {
	if filename == "" {
		return false
	}
	ext := filepath.Ext(filename)
	for _, allowed := range DocumentExtensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

// AttachmentQuery returns the provider query for messages with attachments
// received after now minus lookback.
func AttachmentQuery(now time.Time, lookback time.Duration) string {
	return "has:attachment after:" + now.Add(-lookback).Format("2006/01/02")
}

// IsTransient reports whether a provider error is worth retrying.
// Rate limits and server errors are; other client errors and cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return true
}
