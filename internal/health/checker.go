package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Probe implements Checker against the inventory backend and an optional
// Redis cache.
type Probe struct {
	BackendURL string
	HTTPClient *http.Client
	Redis      *redis.Client
}

// PingBackend issues a lightweight request against the backend's item list.
func (p Probe) PingBackend(ctx context.Context, timeout time.Duration) error {
	if strings.TrimSpace(p.BackendURL) == "" {
		return fmt.Errorf("backend url not configured")
	}
	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.BackendURL, "/")+"/items", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend unhealthy: %s", resp.Status)
	}
	return nil
}

// PingRedis probes the cache. A nil client counts as healthy since the cache
// is optional.
func (p Probe) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}
