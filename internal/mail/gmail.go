package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailClient implements Client over the Gmail API.
type GmailClient struct {
	svc  *gmail.Service
	user string
}

// NewGmailClient wraps an existing Gmail service.
func NewGmailClient(svc *gmail.Service, user string) *GmailClient {
	if user == "" {
		user = "me"
	}
	return &GmailClient{svc: svc, user: user}
}

// NewGmailClientFromFiles builds a read-only Gmail client from an OAuth
// client credentials file and a previously authorized token file.
func NewGmailClientFromFiles(ctx context.Context, credentialsFile, tokenFile, user string) (*GmailClient, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read gmail credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(creds, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gmail credentials: %w", err)
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read gmail token (authorize once and save it to %s): %w", tokenFile, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse gmail token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return NewGmailClient(svc, user), nil
}

// ListMessages returns every message matching query across all result pages.
func (c *GmailClient) ListMessages(ctx context.Context, query string) ([]MessageSummary, error) {
	var out []MessageSummary
	err := c.svc.Users.Messages.List(c.user).Q(query).Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			out = append(out, MessageSummary{ID: m.Id, ThreadID: m.ThreadId})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return out, nil
}

// GetMessage fetches a full message and flattens its named parts.
func (c *GmailClient) GetMessage(ctx context.Context, id string) (*Message, error) {
	m, err := c.svc.Users.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return convertMessage(m)
}

// GetAttachment fetches and decodes an attachment body.
func (c *GmailClient) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	body, err := c.svc.Users.Messages.Attachments.Get(c.user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}
	return decodeBase64URL(body.Data)
}

func convertMessage(m *gmail.Message) (*Message, error) {
	msg := &Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Headers:  make(map[string]string),
	}
	if m.Payload == nil {
		return msg, nil
	}

	for _, h := range m.Payload.Headers {
		key := http.CanonicalHeaderKey(h.Name)
		if _, seen := msg.Headers[key]; !seen {
			msg.Headers[key] = h.Value
		}
	}

	var parts []*gmail.MessagePart
	collectParts(m.Payload, &parts)
	// A single-part message with a filename is itself the attachment.
	if len(parts) == 0 && m.Payload.Filename != "" {
		parts = append(parts, m.Payload)
	}

	for _, p := range parts {
		part := Part{Filename: p.Filename, MimeType: p.MimeType}
		if p.Body != nil {
			part.AttachmentID = p.Body.AttachmentId
			if p.Body.Data != "" {
				data, err := decodeBase64URL(p.Body.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode part %s: %w", p.Filename, err)
				}
				part.Data = data
			}
		}
		msg.Parts = append(msg.Parts, part)
	}
	return msg, nil
}

// collectParts appends every named descendant of p, depth first.
func collectParts(p *gmail.MessagePart, out *[]*gmail.MessagePart) {
	for _, child := range p.Parts {
		if child.Filename != "" {
			*out = append(*out, child)
		}
		collectParts(child, out)
	}
}

func decodeBase64URL(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
