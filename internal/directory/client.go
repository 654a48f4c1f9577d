package directory

import (
	"context"
	"fmt"

	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"

	"github.com/talentwire/mailscope/internal/google"
)

// Mailbox is one scannable mailbox in the organization.
type Mailbox struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client wraps the read-only slice of the Admin SDK Directory API used to
// enumerate scannable mailboxes.
type Client struct {
	svc *admin.Service
}

// NewClient creates a Directory client. The admin mailbox is the identity
// the service account impersonates for directory reads; it needs the
// directory read-only admin role.
func NewClient(ctx context.Context, adminMailbox string) (*Client, error) {
	httpClient, err := google.GetHTTPClientForMailbox(ctx, adminMailbox)
	if err != nil {
		return nil, fmt.Errorf("no valid Google credentials for directory access: %w", err)
	}

	svc, err := admin.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Directory service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// ListDomainUsers enumerates all non-suspended users of the domain,
// following pagination to the end.
func (c *Client) ListDomainUsers(ctx context.Context, domain string) ([]Mailbox, error) {
	var mailboxes []Mailbox
	pageToken := ""

	for {
		req := c.svc.Users.List().Domain(domain).OrderBy("email").MaxResults(200)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		res, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list users for domain %s: %w", domain, err)
		}

		for _, u := range res.Users {
			if u == nil || u.Suspended {
				continue
			}
			m := Mailbox{Email: u.PrimaryEmail}
			if u.Name != nil {
				m.Name = u.Name.FullName
			}
			mailboxes = append(mailboxes, m)
		}

		if res.NextPageToken == "" {
			return mailboxes, nil
		}
		pageToken = res.NextPageToken
	}
}
