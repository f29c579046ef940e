package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	appErr := NewAppError("BAD_REQUEST", "nope", http.StatusBadRequest, inner)

	require.True(t, IsAppError(appErr))
	require.True(t, IsAppError(fmt.Errorf("wrapped: %w", appErr)))
	require.ErrorIs(t, appErr, inner)
	require.Equal(t, "boom", appErr.Error())
	require.Equal(t, "nope", (&AppError{Message: "nope"}).Error())
}

func TestJSONErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusUnprocessableEntity, "EMPTY_CART", "cart is empty", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":{"code":"EMPTY_CART","message":"cart is empty"}}`, rec.Body.String())
}

func TestClientIPPrecedence(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:4312"
	require.Equal(t, "10.0.0.9", ClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.4")
	require.Equal(t, "172.16.0.4", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", ClientIP(req))
}

func TestPositiveAtoiDefault(t *testing.T) {
	require.Equal(t, 7, PositiveAtoiDefault("7", 3))
	require.Equal(t, 3, PositiveAtoiDefault("0", 3))
	require.Equal(t, 3, PositiveAtoiDefault("-2", 3))
	require.Equal(t, 3, PositiveAtoiDefault("junk", 3))
	require.Equal(t, 3, PositiveAtoiDefault("", 3))
}

func TestIdemMiddlewareBlocksReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	idem := Idem{R: client, TTL: time.Minute}
	var hits int
	wrapped := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/carts", nil)
	req.Header.Set("Idempotency-Key", "abc-123")

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, req.Clone(req.Context()))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, req.Clone(req.Context()))
	require.Equal(t, http.StatusConflict, second.Code)
	require.Contains(t, second.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, 1, hits)

	// Without the header every request goes through.
	bare := httptest.NewRequest(http.MethodPost, "/carts", nil)
	third := httptest.NewRecorder()
	wrapped.ServeHTTP(third, bare)
	require.Equal(t, http.StatusCreated, third.Code)
	require.Equal(t, 2, hits)
}
