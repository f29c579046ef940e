package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/victor-muriuki/pos-api/internal/catalog"
	"github.com/victor-muriuki/pos-api/internal/common"
	"github.com/victor-muriuki/pos-api/internal/pricing"
)

// ErrNotFound indicates the requested cart or line could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrStale is returned by conditional mutations when the cart has changed
// since the caller observed it. The barcode-lookup flow uses this to stop a
// late lookup response from landing in a cart that was cleared or edited in
// the meantime.
var ErrStale = errors.New("cart changed since observed version")

// Line pairs a catalog snapshot captured at add time with the requested
// quantity. The snapshot is never refreshed; stock shown here is the
// quantity-on-hand as last known when the line was added.
type Line struct {
	Item catalog.Item `json:"item"`
	Qty  int          `json:"qty"`
}

// Total returns qty times the snapshot's selling price.
func (l Line) Total() decimal.Decimal {
	return l.Item.SellingPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

type cartState struct {
	id        string
	lines     []Line
	version   uint64
	expiresAt time.Time
}

// View is an immutable copy of a cart handed to callers. Aggregates are
// recomputed on every read, never stored.
type View struct {
	ID       string          `json:"id"`
	Version  uint64          `json:"version"`
	Lines    []Line          `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// PricingItems converts the view's lines for the pricing engine.
func (v View) PricingItems() []pricing.Item {
	items := make([]pricing.Item, 0, len(v.Lines))
	for _, l := range v.Lines {
		items = append(items, pricing.Item{Qty: l.Qty, UnitPrice: l.Item.SellingPrice})
	}
	return items
}

// Service owns all in-flight carts. Carts live in memory only; they carry no
// storage or network side effects of their own.
type Service struct {
	mu    sync.Mutex
	carts map[string]*cartState

	TTL time.Duration
	Now func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens a new empty cart and returns its view.
func (s *Service) Create() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts == nil {
		s.carts = make(map[string]*cartState)
	}
	c := &cartState{id: uuid.NewString(), expiresAt: s.now().Add(s.ttl())}
	s.carts[c.id] = c
	return s.viewLocked(c)
}

// Get returns the current view of a cart.
func (s *Service) Get(id string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getLocked(id)
	if err != nil {
		return View{}, err
	}
	return s.viewLocked(c), nil
}

// AddItem appends a new line with quantity 1 for the provided catalog
// snapshot. Adding an item already in the cart is an idempotent no-op.
func (s *Service) AddItem(id string, item catalog.Item) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getLocked(id)
	if err != nil {
		return View{}, err
	}
	s.addLocked(c, item)
	return s.viewLocked(c), nil
}

// AddItemAt behaves like AddItem but only applies when the cart is still at
// the observed version, returning ErrStale otherwise.
func (s *Service) AddItemAt(id string, version uint64, item catalog.Item) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getLocked(id)
	if err != nil {
		return View{}, err
	}
	if c.version != version {
		return View{}, ErrStale
	}
	s.addLocked(c, item)
	return s.viewLocked(c), nil
}

// SetQuantity replaces the requested quantity for a line. The raw input is
// parsed as an integer; parse failures and non-positive values coerce to 1 so
// a line never holds a zero, negative, or absent quantity. Stock is not
// checked here; that is deferred to commit.
func (s *Service) SetQuantity(id string, itemID int64, raw string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getLocked(id)
	if err != nil {
		return View{}, err
	}
	for i := range c.lines {
		if c.lines[i].Item.ID == itemID {
			c.lines[i].Qty = common.PositiveAtoiDefault(raw, 1)
			s.touchLocked(c)
			return s.viewLocked(c), nil
		}
	}
	return View{}, ErrNotFound
}

// RemoveItem deletes the line for the given item. Absent lines are ignored.
func (s *Service) RemoveItem(id string, itemID int64) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getLocked(id)
	if err != nil {
		return View{}, err
	}
	for i := range c.lines {
		if c.lines[i].Item.ID == itemID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			s.touchLocked(c)
			break
		}
	}
	return s.viewLocked(c), nil
}

// Clear empties the cart, bumping its version so conditional mutations that
// observed the old contents are refused.
func (s *Service) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.getLocked(id)
	if err != nil {
		return err
	}
	c.lines = nil
	s.touchLocked(c)
	return nil
}

func (s *Service) addLocked(c *cartState, item catalog.Item) {
	for _, l := range c.lines {
		if l.Item.ID == item.ID {
			return
		}
	}
	c.lines = append(c.lines, Line{Item: item, Qty: 1})
	s.touchLocked(c)
}

func (s *Service) getLocked(id string) (*cartState, error) {
	c, ok := s.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.expiresAt.Before(s.now()) {
		delete(s.carts, id)
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Service) touchLocked(c *cartState) {
	c.version++
	c.expiresAt = s.now().Add(s.ttl())
}

func (s *Service) viewLocked(c *cartState) View {
	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	return View{ID: c.id, Version: c.version, Lines: lines, Subtotal: subtotal}
}
