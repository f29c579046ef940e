package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victor-muriuki/pos-api/internal/document"
	"github.com/victor-muriuki/pos-api/internal/notify"
	"github.com/victor-muriuki/pos-api/internal/resilience"
)

func TestSendPostsQuotationPayload(t *testing.T) {
	var captured []byte
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		captured, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"Quotation sent successfully!"}`))
	}))
	defer srv.Close()

	client := notify.Client{BaseURL: srv.URL, HTTP: resilience.HTTPClient{Client: srv.Client()}}
	err := client.Send(context.Background(), "otieno@example.com", []document.QuotationItem{
		{Name: "Notebook", Quantity: 2, SellingPrice: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)
	require.Equal(t, "/send-quotation", path)

	var payload struct {
		Email string `json:"email"`
		Items []struct {
			Name         string          `json:"name"`
			Quantity     int             `json:"quantity"`
			SellingPrice decimal.Decimal `json:"sellingPrice"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(captured, &payload))
	require.Equal(t, "otieno@example.com", payload.Email)
	require.Len(t, payload.Items, 1)
	require.Equal(t, "Notebook", payload.Items[0].Name)
	require.Equal(t, 2, payload.Items[0].Quantity)
}

func TestSendDoesNotRepostOnServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		// The mailer may have delivered before this 500; a retry would
		// email the customer twice.
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := notify.Client{BaseURL: srv.URL, HTTP: resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1}}
	err := client.Send(context.Background(), "otieno@example.com", []document.QuotationItem{
		{Name: "Notebook", Quantity: 1, SellingPrice: decimal.NewFromInt(100)},
	})
	require.Error(t, err)
	require.EqualValues(t, 1, hits.Load())
}

func TestSendSurfacesBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Missing email or PDF data"}`))
	}))
	defer srv.Close()

	client := notify.Client{BaseURL: srv.URL, HTTP: resilience.HTTPClient{Client: srv.Client()}}
	err := client.Send(context.Background(), "", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Missing email or PDF data")
}
