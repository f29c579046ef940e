package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victor-muriuki/pos-api/internal/cart"
	"github.com/victor-muriuki/pos-api/internal/catalog"
	"github.com/victor-muriuki/pos-api/internal/checkout"
	"github.com/victor-muriuki/pos-api/internal/events"
)

type stubSubmitter struct {
	mu       sync.Mutex
	requests []checkout.SaleRequest
	err      error
	block    chan struct{}
}

func (s *stubSubmitter) Submit(_ context.Context, req checkout.SaleRequest) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.err
}

func (s *stubSubmitter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func notebook() catalog.Item {
	return catalog.Item{ID: 1, Name: "Notebook", Quantity: 40, SellingPrice: decimal.NewFromInt(100)}
}

func pen() catalog.Item {
	return catalog.Item{ID: 2, Name: "Pen", Quantity: 2, SellingPrice: decimal.NewFromInt(20)}
}

func newCommitter(backend checkout.Submitter) (*checkout.Committer, *cart.Service) {
	carts := &cart.Service{}
	committer := &checkout.Committer{
		Carts:    carts,
		Backend:  backend,
		Currency: "KES",
		NewID:    func() string { return "tx-1" },
		Now:      func() time.Time { return time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC) },
	}
	return committer, carts
}

func TestCommitSettlesAndClearsCart(t *testing.T) {
	backend := &stubSubmitter{}
	committer, carts := newCommitter(backend)
	created := carts.Create()
	_, err := carts.AddItem(created.ID, notebook())
	require.NoError(t, err)
	_, err = carts.AddItem(created.ID, pen())
	require.NoError(t, err)
	_, err = carts.SetQuantity(created.ID, 2, "2")
	require.NoError(t, err)

	snap, err := committer.Commit(context.Background(), created.ID, checkout.CommitInput{
		PaymentMethod: checkout.PaymentCash,
		CustomerName:  "  Wanjiku  ",
	})
	require.NoError(t, err)
	require.Equal(t, "tx-1", snap.TransactionID)
	require.Equal(t, "Wanjiku", snap.CustomerName)
	require.Equal(t, checkout.PaymentCash, snap.PaymentMethod)
	require.Len(t, snap.Lines, 2)
	// Sales carry no VAT or discount.
	require.True(t, snap.Subtotal.Equal(decimal.NewFromInt(140)), snap.Subtotal.String())
	require.True(t, snap.Total.Equal(snap.Subtotal))
	require.True(t, snap.VAT.IsZero())
	require.True(t, snap.Discount.IsZero())

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	require.Equal(t, "tx-1", req.TransactionID)
	require.Equal(t, "cash", req.PaymentMethod)
	require.Equal(t, []checkout.SaleItem{{ItemID: 1, QuantitySold: 1}, {ItemID: 2, QuantitySold: 2}}, req.Items)

	view, err := carts.Get(created.ID)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
	require.Equal(t, checkout.StateSettled, committer.StateOf(created.ID))

	kept, err := committer.SnapshotOf("tx-1")
	require.NoError(t, err)
	require.Equal(t, snap.TransactionID, kept.TransactionID)
}

func TestCommitEmptyCartNeverReachesBackend(t *testing.T) {
	backend := &stubSubmitter{}
	committer, carts := newCommitter(backend)
	created := carts.Create()

	_, err := committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentCash})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
	require.Zero(t, backend.calls())
	require.Equal(t, checkout.StateRejected, committer.StateOf(created.ID))
}

func TestCommitInsufficientStockNamesFirstFailingLine(t *testing.T) {
	backend := &stubSubmitter{}
	committer, carts := newCommitter(backend)
	created := carts.Create()
	_, err := carts.AddItem(created.ID, pen())
	require.NoError(t, err)
	_, err = carts.SetQuantity(created.ID, 2, "5")
	require.NoError(t, err)

	_, err = committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentCash})
	var stock *checkout.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	require.Equal(t, int64(2), stock.ItemID)
	require.Equal(t, 5, stock.Requested)
	require.Equal(t, 2, stock.Available)
	require.Zero(t, backend.calls())

	view, err := carts.Get(created.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
}

func TestCommitServerRejectionLeavesCartIntact(t *testing.T) {
	backend := &stubSubmitter{err: &checkout.ServerRejectedError{Message: "till closed"}}
	committer, carts := newCommitter(backend)
	created := carts.Create()
	_, err := carts.AddItem(created.ID, notebook())
	require.NoError(t, err)

	_, err = committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentMpesa})
	var rejected *checkout.ServerRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "till closed", rejected.Message)

	view, err := carts.Get(created.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	require.Equal(t, checkout.StateRejected, committer.StateOf(created.ID))

	_, err = committer.SnapshotOf("tx-1")
	require.ErrorIs(t, err, checkout.ErrSnapshotNotFound)
}

func TestCommitNetworkFailureLeavesCartIntact(t *testing.T) {
	backend := &stubSubmitter{err: checkout.ErrNetworkFailure}
	committer, carts := newCommitter(backend)
	created := carts.Create()
	_, err := carts.AddItem(created.ID, notebook())
	require.NoError(t, err)

	_, err = committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentCash})
	require.ErrorIs(t, err, checkout.ErrNetworkFailure)

	view, err := carts.Get(created.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
}

func TestCommitSingleFlightPerCart(t *testing.T) {
	backend := &stubSubmitter{block: make(chan struct{})}
	committer, carts := newCommitter(backend)
	created := carts.Create()
	_, err := carts.AddItem(created.ID, notebook())
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentCash})
		first <- err
	}()

	require.Eventually(t, func() bool {
		return committer.StateOf(created.ID) != checkout.StateIdle
	}, time.Second, 5*time.Millisecond)

	_, err = committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentCash})
	require.ErrorIs(t, err, checkout.ErrCommitInFlight)

	close(backend.block)
	require.NoError(t, <-first)
}

func TestAcknowledgeReturnsToIdle(t *testing.T) {
	backend := &stubSubmitter{}
	committer, carts := newCommitter(backend)
	created := carts.Create()
	_, err := carts.AddItem(created.ID, notebook())
	require.NoError(t, err)

	_, err = committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentCash})
	require.NoError(t, err)
	require.Equal(t, checkout.StateSettled, committer.StateOf(created.ID))

	committer.Acknowledge(created.ID)
	require.Equal(t, checkout.StateIdle, committer.StateOf(created.ID))
}

func TestDiscardAfterDropsSnapshot(t *testing.T) {
	backend := &stubSubmitter{}
	committer, carts := newCommitter(backend)
	created := carts.Create()
	_, err := carts.AddItem(created.ID, notebook())
	require.NoError(t, err)

	snap, err := committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentCash})
	require.NoError(t, err)

	committer.DiscardAfter(snap.TransactionID, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := committer.SnapshotOf(snap.TransactionID)
		return errors.Is(err, checkout.ErrSnapshotNotFound)
	}, time.Second, 5*time.Millisecond)
}

func TestCommitEmitsSettledEvent(t *testing.T) {
	backend := &stubSubmitter{}
	committer, carts := newCommitter(backend)
	bus := &events.Bus{Store: events.NewMemoryStore(10)}
	committer.Events = bus

	created := carts.Create()
	_, err := carts.AddItem(created.ID, notebook())
	require.NoError(t, err)

	_, err = committer.Commit(context.Background(), created.ID, checkout.CommitInput{PaymentMethod: checkout.PaymentCredit})
	require.NoError(t, err)

	recent := bus.Store.(*events.MemoryStore).Recent(1)
	require.Len(t, recent, 1)
	require.Equal(t, events.TopicTransactionSettled, recent[0].Topic)
	require.Equal(t, "tx-1", recent[0].AggregateID)
}
