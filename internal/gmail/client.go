package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/talentwire/mailscope/internal/google"
)

// Well-known Gmail system label identifiers used by the classifier.
const (
	LabelInbox = "INBOX"
	LabelSent  = "SENT"
)

// Client wraps the narrow read-only slice of the Gmail Users service that
// the scanning engine needs. No write operation is exposed; the engine
// never modifies the mailbox it scans.
type Client struct {
	svc     *gmail.UsersService
	mailbox string
}

// Mailbox returns the mailbox identity this client is associated with.
func (c *Client) Mailbox() string {
	return c.mailbox
}

// NewClientForMailbox creates a Gmail client authenticated for the given
// mailbox identity. Credentials come from the google package; this layer
// only sees an opaque authenticated HTTP client.
func NewClientForMailbox(ctx context.Context, mailbox string) (*Client, error) {
	httpClient, err := google.GetHTTPClientForMailbox(ctx, mailbox)
	if err != nil {
		return nil, fmt.Errorf("no valid Google credentials for mailbox: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		mailbox: mailbox,
	}, nil
}

// ListMessagePage fetches a single page of message stubs matching the query.
// The returned response carries the stubs (id + thread id), the provider's
// fuzzy result-size estimate, and the continuation token for the next page.
func (c *Client) ListMessagePage(ctx context.Context, q, pageToken string, pageSize int64) (*gmail.ListMessagesResponse, error) {
	req := c.svc.Messages.List("me").Q(q).MaxResults(pageSize)
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}
	res, err := req.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return res, nil
}

// ListThreadIDPage fetches a page of message stubs restricted to thread
// identifiers. The exact counter walks many of these pages, so the partial
// response keeps the payload minimal.
func (c *Client) ListThreadIDPage(ctx context.Context, q, pageToken string, pageSize int64) (*gmail.ListMessagesResponse, error) {
	req := c.svc.Messages.List("me").Q(q).MaxResults(pageSize).
		Fields("nextPageToken", "messages(id,threadId)")
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}
	res, err := req.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list thread ids: %w", err)
	}
	return res, nil
}

// GetThread retrieves a full Gmail thread with all its messages.
func (c *Client) GetThread(ctx context.Context, threadID string) (*gmail.Thread, error) {
	thread, err := c.svc.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	return thread, nil
}

// GetMessageMetadata retrieves a single message's headers and labels without
// the body payload. The classifier uses this as a recovery fetch when a
// thread detail response came back with empty headers.
func (c *Client) GetMessageMetadata(ctx context.Context, messageID string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("metadata").
		MetadataHeaders("From", "To", "Subject", "Date").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// ListLabels returns the mailbox's label list. Used once per scan to resolve
// the "label of interest" set for special-category detection.
func (c *Client) ListLabels(ctx context.Context) ([]*gmail.Label, error) {
	res, err := c.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return res.Labels, nil
}
