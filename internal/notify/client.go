package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/victor-muriuki/pos-api/internal/document"
	"github.com/victor-muriuki/pos-api/internal/resilience"
)

// Client posts quotations to the backend's mailer endpoint through the
// resilient HTTP client.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

type sendQuotationPayload struct {
	Email string                   `json:"email"`
	Items []document.QuotationItem `json:"items"`
}

// Send dispatches the quotation lines to the given recipient.
func (c Client) Send(ctx context.Context, email string, items []document.QuotationItem) error {
	body, err := json.Marshal(sendQuotationPayload{Email: email, Items: items})
	if err != nil {
		return fmt.Errorf("notify: encode quotation: %w", err)
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/send-quotation"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("notify: send quotation: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var verdict struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&verdict)
		msg := verdict.Error
		if msg == "" {
			msg = verdict.Message
		}
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("notify: send quotation: %s", msg)
	}
	return nil
}
