package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the requested item does not exist in the catalog.
var ErrNotFound = errors.New("catalog: item not found")

// Item is a snapshot of a stocked catalog item as last reported by the
// inventory backend. Cart lines capture one of these at add time; later
// catalog changes never retroactively alter a captured snapshot.
type Item struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	BuyingPrice  decimal.Decimal `json:"buyingPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	Supplier     string          `json:"supplier,omitempty"`
	Barcode      string          `json:"barcode,omitempty"`
}

// Source defines the behaviour required from the catalog collaborator.
type Source interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	ByBarcode(ctx context.Context, code string) (Item, error)
}

// MockSource returns static items and is useful for testing and development.
type MockSource struct{}

var mockItems = []Item{
	{ID: 1, Name: "Notebook", Quantity: 40, BuyingPrice: decimal.NewFromInt(60), SellingPrice: decimal.NewFromInt(100), Supplier: "Text Book Centre", Barcode: "6161100100011"},
	{ID: 2, Name: "Pen", Quantity: 120, BuyingPrice: decimal.NewFromInt(10), SellingPrice: decimal.NewFromInt(20), Supplier: "Bic Kenya", Barcode: "6161100100028"},
	{ID: 3, Name: "Stapler", Quantity: 8, BuyingPrice: decimal.NewFromInt(150), SellingPrice: decimal.NewFromInt(250), Supplier: "Office Mart"},
}

// List returns the canned catalog.
func (MockSource) List(ctx context.Context) ([]Item, error) {
	_ = ctx
	out := make([]Item, len(mockItems))
	copy(out, mockItems)
	return out, nil
}

// Get returns a canned item by identifier.
func (MockSource) Get(ctx context.Context, id int64) (Item, error) {
	_ = ctx
	for _, it := range mockItems {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, ErrNotFound
}

// ByBarcode returns a canned item by barcode.
func (MockSource) ByBarcode(ctx context.Context, code string) (Item, error) {
	_ = ctx
	for _, it := range mockItems {
		if it.Barcode != "" && it.Barcode == code {
			return it, nil
		}
	}
	return Item{}, ErrNotFound
}
