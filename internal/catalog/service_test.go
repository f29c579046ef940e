package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victor-muriuki/pos-api/internal/catalog"
	"github.com/victor-muriuki/pos-api/internal/events"
	"github.com/victor-muriuki/pos-api/internal/resilience"
)

type countingSource struct {
	catalog.MockSource
	lists int
}

func (c *countingSource) List(ctx context.Context) ([]catalog.Item, error) {
	c.lists++
	return c.MockSource.List(ctx)
}

func newTestCache(t *testing.T) *catalog.Cache {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute)
}

func TestListIsServedFromCacheOnceWarm(t *testing.T) {
	source := &countingSource{}
	svc := &catalog.Service{Source: source, Cache: newTestCache(t)}

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first)
	require.Equal(t, 1, source.lists)

	second, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, source.lists)

	svc.InvalidateList(context.Background())
	_, err = svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, source.lists)
}

func TestSettledTransactionDropsCachedList(t *testing.T) {
	source := &countingSource{}
	svc := &catalog.Service{Source: source, Cache: newTestCache(t)}
	bus := &events.Bus{}

	stop := svc.InvalidateOnSettlement(context.Background(), bus)
	defer stop()

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, source.lists)

	_, err = bus.Emit(context.Background(), events.TopicTransactionSettled, "tx-1", nil)
	require.NoError(t, err)

	// The subscriber runs asynchronously; wait for the cache to empty.
	require.Eventually(t, func() bool {
		_, listErr := svc.List(context.Background())
		return listErr == nil && source.lists >= 2
	}, time.Second, 10*time.Millisecond, "settled event should force a refetch")
}

func TestListWorksWithoutCache(t *testing.T) {
	source := &countingSource{}
	svc := &catalog.Service{Source: source}

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, items)
}

func TestHTTPSourceDecodesBackendWire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":7,"name":"Stapler","quantity":12,"buying_price":"350.00","selling_price":"500.00","supplier":" Embu Traders ","barcode":"8901234"}]`))
		case "/items/by-code/8901234":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":7,"name":"Stapler","quantity":12,"buying_price":"350.00","selling_price":"500.00","supplier":"Embu Traders","barcode":"8901234"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	source := catalog.HTTPSource{BaseURL: srv.URL, Client: resilience.HTTPClient{Client: srv.Client()}}

	items, err := source.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(7), items[0].ID)
	require.Equal(t, "Stapler", items[0].Name)
	require.Equal(t, 12, items[0].Quantity)
	require.True(t, items[0].SellingPrice.Equal(decimal.NewFromInt(500)))
	require.Equal(t, "Embu Traders", items[0].Supplier)

	item, err := source.ByBarcode(context.Background(), "8901234")
	require.NoError(t, err)
	require.Equal(t, int64(7), item.ID)

	_, err = source.ByBarcode(context.Background(), "no-such-code")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestHTTPSourceEmptyBarcodeIsNotFound(t *testing.T) {
	source := catalog.HTTPSource{BaseURL: "http://unused.test"}
	_, err := source.ByBarcode(context.Background(), "   ")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
