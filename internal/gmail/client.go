package gmail

import (
	"context"
	"fmt"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/sheetmailer/internal/google"
	"github.com/teemow/sheetmailer/internal/instrumentation"
)

// Client wraps the Gmail Users service
type Client struct {
	svc        *gmail.UsersService
	connection string // The connection this client is associated with
	metrics    *instrumentation.Metrics
}

// Profile is the Gmail account behind a connection.
type Profile struct {
	EmailAddress  string
	MessagesTotal int64
	ThreadsTotal  int64
}

// NewClient creates a Gmail client on top of an authenticated HTTP client
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// NewClientForConnection creates a Gmail client authenticated as connectionID
func NewClientForConnection(ctx context.Context, provider google.TokenSourceProvider, connectionID string, opts ...option.ClientOption) (*Client, error) {
	httpClient, err := google.HTTPClientFor(ctx, provider, connectionID)
	if err != nil {
		return nil, fmt.Errorf("no usable Gmail connection %s: %w. Run 'sheetmailer auth' first", connectionID, err)
	}
	c, err := NewClient(ctx, httpClient, opts...)
	if err != nil {
		return nil, err
	}
	c.connection = connectionID
	return c, nil
}

// Connection returns the connection ID this client is associated with
func (c *Client) Connection() string {
	return c.connection
}

// WithMetrics records Google API metrics for every call
func (c *Client) WithMetrics(metrics *instrumentation.Metrics) *Client {
	c.metrics = metrics
	return c
}

// SendEmail sends an email and returns the ID of the sent message
func (c *Client) SendEmail(ctx context.Context, msg *EmailMessage) (string, error) {
	raw, err := msg.Raw()
	if err != nil {
		return "", err
	}

	var sent *gmail.Message
	err = google.Observe(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationSend, func(ctx context.Context) error {
		var err error
		sent, err = c.svc.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return sent.Id, nil
}

// CreateDraft stores msg as a draft and returns the draft ID
func (c *Client) CreateDraft(ctx context.Context, msg *EmailMessage) (string, error) {
	raw, err := msg.Raw()
	if err != nil {
		return "", err
	}

	var draft *gmail.Draft
	err = google.Observe(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationDraft, func(ctx context.Context) error {
		var err error
		draft, err = c.svc.Drafts.Create("me", &gmail.Draft{Message: &gmail.Message{Raw: raw}}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create draft: %w", err)
	}
	return draft.Id, nil
}

// GetProfile returns the account profile
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p *gmail.Profile
	err := google.Observe(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationProfile, func(ctx context.Context) error {
		var err error
		p, err = c.svc.GetProfile("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &Profile{
		EmailAddress:  p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
	}, nil
}
