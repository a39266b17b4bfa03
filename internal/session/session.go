// Package session manages the anonymous pseudo-identity that scopes a cart to
// one browser before the shopper authenticates. Tokens live client-side (two
// cookies: the opaque token and its creation timestamp); this package only
// decides validity, mints replacements, and purges cart lines left behind by
// dead tokens.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an anonymous session token stays valid.
	DefaultTTL = 24 * time.Hour

	// TokenPrefix marks storefront session tokens.
	TokenPrefix = "session_"

	// randSuffixLen is the length of the random base36 suffix. Collisions are
	// not defended against: the suffix space is large relative to the number
	// of concurrent anonymous sessions a single store sees.
	randSuffixLen = 9

	// purgeTimeout bounds each best-effort cart purge.
	purgeTimeout = 10 * time.Second
)

// Purger removes every cart line owned by a session token. Implemented by the
// cart repository.
type Purger interface {
	DeleteAllForSession(ctx context.Context, sessionID string) error
}

// Session is a validated (or freshly minted) anonymous identity.
type Session struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager implements the get-or-create / clear lifecycle. Purges of stale
// carts are fire-and-forget: they never fail the operation that triggered
// them, and failures are only logged.
type Manager struct {
	purger Purger
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time

	wg sync.WaitGroup
}

// NewManager creates a session manager with the given TTL. A non-positive TTL
// falls back to DefaultTTL.
func NewManager(purger Purger, logger *slog.Logger, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		purger: purger,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GetOrCreate validates the token the browser presented. A token within its
// TTL is returned unchanged with no side effect. An expired token triggers a
// single asynchronous purge of its cart lines and is discarded. In every
// non-valid case (expired, absent, or missing timestamp) a fresh token is
// minted. This method never fails: session identity must never be visible as
// an error to the shopper.
func (m *Manager) GetOrCreate(ctx context.Context, token string, createdAt time.Time) Session {
	if token != "" && !createdAt.IsZero() {
		if m.now().Sub(createdAt) < m.ttl {
			return Session{Token: token, CreatedAt: createdAt}
		}
		// Stale token: whatever cart it accumulated is abandoned.
		m.purgeAsync(ctx, token, "expired")
	}

	return m.mint()
}

// Clear purges the token's cart lines best-effort and forgets the token.
// Called on explicit sign-out; the HTTP layer drops the cookies afterwards.
func (m *Manager) Clear(ctx context.Context, token string) {
	if token == "" {
		return
	}
	m.purgeAsync(ctx, token, "sign-out")
}

// TTL returns the configured token lifetime. The HTTP layer uses it for
// cookie expiry.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Wait blocks until all in-flight purges finish. Used on shutdown and in tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) mint() Session {
	now := m.now().UTC()
	token := fmt.Sprintf("%s%d_%s", TokenPrefix, now.UnixMilli(), randBase36(randSuffixLen))
	return Session{Token: token, CreatedAt: now}
}

// purgeAsync deletes the token's cart lines in the background. The purge is
// detached from the request's cancellation so navigating away cannot abort it.
func (m *Manager) purgeAsync(ctx context.Context, token, reason string) {
	ctx = context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		purgeCtx, cancel := context.WithTimeout(ctx, purgeTimeout)
		defer cancel()

		if err := m.purger.DeleteAllForSession(purgeCtx, token); err != nil {
			m.logger.ErrorContext(purgeCtx, "failed to purge session cart",
				slog.String("session_id", token),
				slog.String("reason", reason),
				slog.String("error", err.Error()),
			)
			return
		}

		m.logger.DebugContext(purgeCtx, "purged session cart",
			slog.String("session_id", token),
			slog.String("reason", reason),
		)
	}()
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36Alphabet[rand.IntN(len(base36Alphabet))] // #nosec G404 -- tokens are not credentials
	}
	return string(b)
}
