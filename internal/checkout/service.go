package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/victor-muriuki/pos-api/internal/cart"
	"github.com/victor-muriuki/pos-api/internal/common"
	"github.com/victor-muriuki/pos-api/internal/events"
	"github.com/victor-muriuki/pos-api/internal/obs"
	"github.com/victor-muriuki/pos-api/internal/pricing"
)

// State is the commit lifecycle of a single cart. A cart parks in a terminal
// state until the operator acknowledges the outcome.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSettled    State = "settled"
	StateRejected   State = "rejected"
)

// PaymentMethod enumerates the tender types the backend accepts.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentMpesa  PaymentMethod = "mpesa"
	PaymentCredit PaymentMethod = "credit"
)

// ParsePaymentMethod normalises user input into a known tender type.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentCash:
		return PaymentCash, nil
	case PaymentMpesa:
		return PaymentMpesa, nil
	case PaymentCredit:
		return PaymentCredit, nil
	}
	return "", common.NewAppError("BAD_REQUEST", "unknown payment method", 400, nil)
}

// SnapshotLine is one frozen line of a settled or quoted transaction.
type SnapshotLine struct {
	ItemID    int64           `json:"itemId"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// Snapshot is the immutable record of a settled sale. It survives the cart it
// came from and feeds the receipt renderer until it is discarded.
type Snapshot struct {
	TransactionID string             `json:"transactionId"`
	Timestamp     time.Time          `json:"timestamp"`
	CustomerName  string             `json:"customerName,omitempty"`
	PaymentMethod PaymentMethod      `json:"paymentMethod"`
	Currency      string             `json:"currency"`
	Lines         []SnapshotLine     `json:"lines"`
	Rates         pricing.RateConfig `json:"-"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	VAT           decimal.Decimal    `json:"vat"`
	Discount      decimal.Decimal    `json:"discount"`
	Total         decimal.Decimal    `json:"total"`
}

// CommitInput is what the operator supplies when ringing up a sale.
type CommitInput struct {
	PaymentMethod PaymentMethod
	CustomerName  string
}

// Committer drives the sale commit lifecycle: validate locally, submit one
// atomic request, then settle or reject. At most one commit runs per cart.
type Committer struct {
	Carts    *cart.Service
	Backend  Submitter
	Events   *events.Bus
	Currency string
	Now      func() time.Time
	NewID    func() string

	mu        sync.Mutex
	inflight  map[string]struct{}
	states    map[string]State
	snapshots map[string]Snapshot
	timers    map[string]*time.Timer
}

func (c *Committer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Committer) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

// StateOf reports the commit state of a cart. Unknown carts are idle.
func (c *Committer) StateOf(cartID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[cartID]; ok {
		return s
	}
	return StateIdle
}

// Acknowledge returns a cart from a terminal state to idle. Non-terminal
// states are left alone.
func (c *Committer) Acknowledge(cartID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.states[cartID] {
	case StateSettled, StateRejected:
		delete(c.states, cartID)
	}
}

// Commit runs the full settlement flow for a cart. On success the cart is
// emptied and the returned snapshot is retained for receipt rendering. On any
// failure the cart is left exactly as it was.
func (c *Committer) Commit(ctx context.Context, cartID string, in CommitInput) (Snapshot, error) {
	if err := c.begin(cartID); err != nil {
		return Snapshot{}, err
	}
	defer c.endFlight(cartID)

	view, err := c.Carts.Get(cartID)
	if err != nil {
		c.setState(cartID, StateIdle)
		return Snapshot{}, err
	}
	if err := c.validate(view); err != nil {
		// Local rejection: no request leaves the process.
		c.reject(ctx, cartID, err)
		return Snapshot{}, err
	}

	snap := c.freeze(view, in)
	c.setState(cartID, StateSubmitting)
	if err := c.Backend.Submit(ctx, saleRequest(snap)); err != nil {
		c.reject(ctx, cartID, err)
		return Snapshot{}, err
	}

	// The backend accepted the sale; local state must follow even if the
	// cart was mutated concurrently.
	_ = c.Carts.Clear(cartID)
	c.mu.Lock()
	if c.states == nil {
		c.states = make(map[string]State)
	}
	if c.snapshots == nil {
		c.snapshots = make(map[string]Snapshot)
	}
	c.states[cartID] = StateSettled
	c.snapshots[snap.TransactionID] = snap
	c.mu.Unlock()
	c.countOutcome("settled")
	if c.Events != nil {
		_, _ = c.Events.Emit(ctx, events.TopicTransactionSettled, snap.TransactionID, map[string]any{
			"cartId":        cartID,
			"total":         snap.Total,
			"paymentMethod": snap.PaymentMethod,
			"customerName":  snap.CustomerName,
		})
	}
	return snap, nil
}

// SnapshotOf returns a retained transaction snapshot.
func (c *Committer) SnapshotOf(transactionID string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snapshots[transactionID]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return snap, nil
}

// Discard drops a retained snapshot immediately.
func (c *Committer) Discard(transactionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardLocked(transactionID)
}

// DiscardAfter schedules a snapshot to be dropped after the given delay. The
// receipt flow uses this so a just-printed sale lingers briefly on screen.
func (c *Committer) DiscardAfter(transactionID string, delay time.Duration) {
	if delay <= 0 {
		c.Discard(transactionID)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.snapshots[transactionID]; !ok {
		return
	}
	if c.timers == nil {
		c.timers = make(map[string]*time.Timer)
	}
	if t, ok := c.timers[transactionID]; ok {
		t.Stop()
	}
	c.timers[transactionID] = time.AfterFunc(delay, func() {
		c.Discard(transactionID)
	})
}

func (c *Committer) discardLocked(transactionID string) {
	delete(c.snapshots, transactionID)
	if t, ok := c.timers[transactionID]; ok {
		t.Stop()
		delete(c.timers, transactionID)
	}
}

func (c *Committer) begin(cartID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		c.inflight = make(map[string]struct{})
	}
	if _, busy := c.inflight[cartID]; busy {
		return ErrCommitInFlight
	}
	c.inflight[cartID] = struct{}{}
	if c.states == nil {
		c.states = make(map[string]State)
	}
	c.states[cartID] = StateValidating
	return nil
}

func (c *Committer) endFlight(cartID string) {
	c.mu.Lock()
	delete(c.inflight, cartID)
	c.mu.Unlock()
}

func (c *Committer) setState(cartID string, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states == nil {
		c.states = make(map[string]State)
	}
	if s == StateIdle {
		delete(c.states, cartID)
		return
	}
	c.states[cartID] = s
}

// validate rejects before any network traffic: an empty cart first, then the
// first line whose quantity exceeds the stock known at add time.
func (c *Committer) validate(view cart.View) error {
	if len(view.Lines) == 0 {
		return ErrEmptyCart
	}
	for _, l := range view.Lines {
		if l.Qty > l.Item.Quantity {
			return &InsufficientStockError{
				ItemID:    l.Item.ID,
				Name:      l.Item.Name,
				Requested: l.Qty,
				Available: l.Item.Quantity,
			}
		}
	}
	return nil
}

func (c *Committer) reject(ctx context.Context, cartID string, cause error) {
	c.setState(cartID, StateRejected)
	c.countOutcome("rejected")
	if c.Events != nil {
		_, _ = c.Events.Emit(ctx, events.TopicTransactionRejected, cartID, map[string]any{
			"cartId": cartID,
			"reason": cause.Error(),
		})
	}
}

// freeze copies the cart into an immutable sale record. Sales apply no VAT
// and no discount; the total is the plain subtotal.
func (c *Committer) freeze(view cart.View, in CommitInput) Snapshot {
	summary := pricing.Compute(view.PricingItems(), pricing.RateConfig{})
	lines := make([]SnapshotLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, SnapshotLine{
			ItemID:    l.Item.ID,
			Name:      l.Item.Name,
			Qty:       l.Qty,
			UnitPrice: l.Item.SellingPrice,
			Total:     l.Total(),
		})
	}
	return Snapshot{
		TransactionID: c.newID(),
		Timestamp:     c.now(),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		PaymentMethod: in.PaymentMethod,
		Currency:      c.Currency,
		Lines:         lines,
		Subtotal:      summary.Subtotal,
		VAT:           summary.VAT,
		Discount:      summary.Discount,
		Total:         summary.Total,
	}
}

func (c *Committer) countOutcome(result string) {
	if obs.SaleCommitTotal == nil {
		return
	}
	obs.SaleCommitTotal.WithLabelValues(result).Inc()
}

func saleRequest(snap Snapshot) SaleRequest {
	items := make([]SaleItem, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		items = append(items, SaleItem{ItemID: l.ItemID, QuantitySold: l.Qty})
	}
	return SaleRequest{
		TransactionID: snap.TransactionID,
		PaymentMethod: string(snap.PaymentMethod),
		CustomerName:  snap.CustomerName,
		Items:         items,
	}
}
