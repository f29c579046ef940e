package cart_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victor-muriuki/pos-api/internal/cart"
	"github.com/victor-muriuki/pos-api/internal/catalog"
)

func notebook() catalog.Item {
	return catalog.Item{ID: 1, Name: "Notebook", Quantity: 40, SellingPrice: decimal.NewFromInt(100)}
}

func pen() catalog.Item {
	return catalog.Item{ID: 2, Name: "Pen", Quantity: 120, SellingPrice: decimal.NewFromInt(20)}
}

func TestAddItemIsIdempotent(t *testing.T) {
	svc := &cart.Service{}
	view := svc.Create()

	view, err := svc.AddItem(view.ID, notebook())
	require.NoError(t, err)
	view, err = svc.AddItem(view.ID, notebook())
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	require.Equal(t, 1, view.Lines[0].Qty)
}

func TestSetQuantityCoercion(t *testing.T) {
	svc := &cart.Service{}
	created := svc.Create()
	_, err := svc.AddItem(created.ID, notebook())
	require.NoError(t, err)

	cases := map[string]int{
		"5":    5,
		"abc":  1,
		"":     1,
		"0":    1,
		"-3":   1,
		"2.5":  1,
		"  7 ": 1, // whitespace is not trimmed by the parser, falls back
	}
	for raw, want := range cases {
		view, err := svc.SetQuantity(created.ID, 1, raw)
		require.NoError(t, err, "raw=%q", raw)
		require.Equal(t, want, view.Lines[0].Qty, "raw=%q", raw)
	}
}

func TestDuplicateAddThenSetQuantity(t *testing.T) {
	svc := &cart.Service{}
	created := svc.Create()
	_, err := svc.AddItem(created.ID, notebook())
	require.NoError(t, err)
	_, err = svc.AddItem(created.ID, notebook())
	require.NoError(t, err)

	view, err := svc.SetQuantity(created.ID, 1, "5")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	require.Equal(t, 5, view.Lines[0].Qty)
}

func TestSubtotalRecomputed(t *testing.T) {
	svc := &cart.Service{}
	created := svc.Create()
	_, err := svc.AddItem(created.ID, notebook())
	require.NoError(t, err)
	_, err = svc.AddItem(created.ID, pen())
	require.NoError(t, err)
	_, err = svc.SetQuantity(created.ID, 1, "2")
	require.NoError(t, err)
	view, err := svc.SetQuantity(created.ID, 2, "3")
	require.NoError(t, err)

	require.True(t, view.Subtotal.Equal(decimal.NewFromInt(260)), "subtotal: %s", view.Subtotal)
}

func TestLineOrderFollowsInsertion(t *testing.T) {
	svc := &cart.Service{}
	created := svc.Create()
	_, err := svc.AddItem(created.ID, pen())
	require.NoError(t, err)
	view, err := svc.AddItem(created.ID, notebook())
	require.NoError(t, err)

	require.Equal(t, "Pen", view.Lines[0].Item.Name)
	require.Equal(t, "Notebook", view.Lines[1].Item.Name)
}

func TestRemoveItemAbsentIsNoop(t *testing.T) {
	svc := &cart.Service{}
	created := svc.Create()
	_, err := svc.AddItem(created.ID, notebook())
	require.NoError(t, err)

	view, err := svc.RemoveItem(created.ID, 99)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)

	view, err = svc.RemoveItem(created.ID, 1)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
}

func TestAddItemAtRejectsStaleVersion(t *testing.T) {
	svc := &cart.Service{}
	created := svc.Create()
	view, err := svc.AddItem(created.ID, notebook())
	require.NoError(t, err)

	// a settle clears the cart; the late barcode result must not land
	require.NoError(t, svc.Clear(created.ID))
	_, err = svc.AddItemAt(created.ID, view.Version, pen())
	require.ErrorIs(t, err, cart.ErrStale)

	after, err := svc.Get(created.ID)
	require.NoError(t, err)
	require.Empty(t, after.Lines)
}

func TestSnapshotNotRefreshedByCatalogChanges(t *testing.T) {
	svc := &cart.Service{}
	created := svc.Create()
	item := notebook()
	_, err := svc.AddItem(created.ID, item)
	require.NoError(t, err)

	item.SellingPrice = decimal.NewFromInt(999)
	view, err := svc.Get(created.ID)
	require.NoError(t, err)
	require.True(t, view.Lines[0].Item.SellingPrice.Equal(decimal.NewFromInt(100)))
}

func TestExpiredCartIsGone(t *testing.T) {
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := &cart.Service{TTL: time.Hour, Now: func() time.Time { return current }}
	created := svc.Create()

	current = current.Add(2 * time.Hour)
	_, err := svc.Get(created.ID)
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestSetQuantityMissingLine(t *testing.T) {
	svc := &cart.Service{}
	created := svc.Create()
	_, err := svc.SetQuantity(created.ID, 42, "3")
	require.ErrorIs(t, err, cart.ErrNotFound)
}
