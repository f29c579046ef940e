package catalog

import (
	"context"
	"errors"

	"github.com/victor-muriuki/pos-api/internal/events"
	"github.com/victor-muriuki/pos-api/internal/obs"
)

const listCacheKey = "catalog:items"

// Service fronts the catalog collaborator with an optional read-through cache
// for the full item list. Barcode and identifier lookups always hit the
// source so stock figures are as fresh as the backend allows.
type Service struct {
	Source Source
	Cache  *Cache
}

// List returns all catalog items, served from cache when warm.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	if s == nil || s.Source == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []Item
	if hit, err := s.Cache.GetJSON(ctx, listCacheKey, &cached); err == nil && hit {
		countFetch("cache_hit")
		return cached, nil
	}
	items, err := s.Source.List(ctx)
	if err != nil {
		countFetch("error")
		return nil, err
	}
	countFetch("ok")
	_ = s.Cache.SetJSON(ctx, listCacheKey, items)
	return items, nil
}

// Get returns a single item by identifier.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if s == nil || s.Source == nil {
		return Item{}, errors.New("catalog service not configured")
	}
	return s.Source.Get(ctx, id)
}

// ByBarcode resolves an item from a scanned barcode.
func (s *Service) ByBarcode(ctx context.Context, code string) (Item, error) {
	if s == nil || s.Source == nil {
		return Item{}, errors.New("catalog service not configured")
	}
	return s.Source.ByBarcode(ctx, code)
}

// InvalidateList drops the cached item list, forcing the next List to refetch.
func (s *Service) InvalidateList(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.Cache.Invalidate(ctx, listCacheKey)
}

// InvalidateOnSettlement drops the cached list whenever a transaction
// settles, so the next read reflects the backend's updated stock figures.
// The returned function stops the subscription.
func (s *Service) InvalidateOnSettlement(ctx context.Context, bus *events.Bus) func() {
	ch, cancel := bus.Subscribe(events.TopicTransactionSettled, 8)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.InvalidateList(ctx)
			}
		}
	}()
	return cancel
}

func countFetch(result string) {
	if obs.CatalogFetchTotal == nil {
		return
	}
	obs.CatalogFetchTotal.WithLabelValues(result).Inc()
}
