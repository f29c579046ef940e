package session

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/victor-muriuki/pos-api/internal/events"
)

// Session carries the externally issued credentials for the active operator.
// The token is opaque to this service; validating it is the backend's job.
type Session struct {
	Token    string `json:"-"`
	Operator string `json:"operator,omitempty"`
}

// Active reports whether a token is present.
func (s Session) Active() bool { return strings.TrimSpace(s.Token) != "" }

// Holder owns the current session and pushes change notifications through
// the event bus instead of having consumers poll ambient storage.
type Holder struct {
	Events *events.Bus

	mu      sync.RWMutex
	current Session
}

// Current returns a copy of the active session.
func (h *Holder) Current() Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Set replaces the active session and emits a change event.
func (h *Holder) Set(ctx context.Context, s Session) {
	h.mu.Lock()
	h.current = s
	h.mu.Unlock()
	if h.Events != nil {
		aggregate := s.Operator
		if aggregate == "" {
			aggregate = "session"
		}
		_, _ = h.Events.Emit(ctx, events.TopicSessionChanged, aggregate, map[string]any{
			"active":   s.Active(),
			"operator": s.Operator,
		})
	}
}

// Clear drops the active session, notifying subscribers.
func (h *Holder) Clear(ctx context.Context) {
	h.Set(ctx, Session{})
}

type ctxKey struct{}

// WithSession stores the session on the provided context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext extracts the session from the context if present.
func FromContext(ctx context.Context) (Session, bool) {
	v, ok := ctx.Value(ctxKey{}).(Session)
	return v, ok
}

// Middleware attaches the bearer token from the Authorization header to the
// request context as an opaque session. Requests without a token pass through
// untouched; route guarding stays with the backend collaborator.
func (h *Holder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if token, found := strings.CutPrefix(header, "Bearer "); found && strings.TrimSpace(token) != "" {
			s := h.Current()
			s.Token = strings.TrimSpace(token)
			r = r.WithContext(WithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}
