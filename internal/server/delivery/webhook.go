package delivery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/netx"
)

const DefaultWebhookTimeout = 10 * time.Second

// Webhook POSTs each reminder as {"owner_id":…,"text":…} to a URL.
// Failed posts are not retried.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

type webhookPayload struct {
	OwnerID int64  `json:"owner_id"`
	Text    string `json:"text"`
}

func NewWebhook(url string, timeout time.Duration, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{url: url, client: client, timeout: timeout}
}

func (w *Webhook) Deliver(ctx context.Context, ownerID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := netx.PostJSON(ctx, w.client, w.url, webhookPayload{OwnerID: ownerID, Text: text}); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}
