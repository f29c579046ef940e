package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/victor-muriuki/pos-api/internal/resilience"
)

// wireItem mirrors the inventory backend's item payload.
type wireItem struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	BuyingPrice  decimal.Decimal `json:"buying_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Supplier     string          `json:"supplier"`
	Barcode      string          `json:"barcode"`
}

func (w wireItem) toItem() Item {
	return Item{
		ID:           w.ID,
		Name:         w.Name,
		Quantity:     w.Quantity,
		BuyingPrice:  w.BuyingPrice,
		SellingPrice: w.SellingPrice,
		Supplier:     strings.TrimSpace(w.Supplier),
		Barcode:      strings.TrimSpace(w.Barcode),
	}
}

// HTTPSource consumes the inventory backend's item endpoints through the
// resilient HTTP client.
type HTTPSource struct {
	BaseURL string
	Client  resilience.HTTPClient
}

// List fetches all catalog items.
func (s HTTPSource) List(ctx context.Context) ([]Item, error) {
	var wire []wireItem
	if err := s.getJSON(ctx, "/items", &wire); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(wire))
	for _, w := range wire {
		items = append(items, w.toItem())
	}
	return items, nil
}

// Get fetches a single item by identifier.
func (s HTTPSource) Get(ctx context.Context, id int64) (Item, error) {
	var wire wireItem
	if err := s.getJSON(ctx, fmt.Sprintf("/items/%d", id), &wire); err != nil {
		return Item{}, err
	}
	return wire.toItem(), nil
}

// ByBarcode fetches a single item by its barcode, returning ErrNotFound when
// no item carries the code.
func (s HTTPSource) ByBarcode(ctx context.Context, code string) (Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Item{}, ErrNotFound
	}
	var wire wireItem
	if err := s.getJSON(ctx, "/items/by-code/"+url.PathEscape(code), &wire); err != nil {
		return Item{}, err
	}
	return wire.toItem(), nil
}

func (s HTTPSource) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(s.BaseURL, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("catalog: fetch %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog: fetch %s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	return nil
}
