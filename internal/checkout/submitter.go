package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/victor-muriuki/pos-api/internal/resilience"
)

// SaleItem is one line of the sale payload sent to the backend.
type SaleItem struct {
	ItemID       int64 `json:"itemId"`
	QuantitySold int   `json:"quantitySold"`
}

// SaleRequest is the single atomic request that records a completed sale.
type SaleRequest struct {
	TransactionID string     `json:"transactionId"`
	PaymentMethod string     `json:"paymentMethod"`
	CustomerName  string     `json:"customerName,omitempty"`
	Items         []SaleItem `json:"items"`
}

// Submitter records a sale with the backend of record. Implementations must
// return ErrNetworkFailure (wrapped or bare) when no verdict was obtained, and
// a *ServerRejectedError when the backend refused the sale.
type Submitter interface {
	Submit(ctx context.Context, req SaleRequest) error
}

// HTTPSubmitter posts sales to the inventory backend through the resilient
// HTTP client. Retries are safe because the backend dedupes on transactionId.
type HTTPSubmitter struct {
	BaseURL string
	Client  resilience.HTTPClient
}

func (s HTTPSubmitter) Submit(ctx context.Context, sale SaleRequest) error {
	body, err := json.Marshal(sale)
	if err != nil {
		return fmt.Errorf("checkout: encode sale: %w", err)
	}
	url := strings.TrimRight(s.BaseURL, "/") + "/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("checkout: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var verdict struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&verdict)
	msg := verdict.Message
	if msg == "" {
		msg = verdict.Error
	}
	if msg == "" {
		msg = resp.Status
	}
	return &ServerRejectedError{Message: msg}
}
