package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/session"
)

// Cookie names carrying the anonymous session identity. The timestamp lives
// in its own cookie so the token itself stays opaque.
const (
	SessionCookieName   = "cart_session_id"
	SessionTSCookieName = "cart_session_ts"
)

// CustomerIDHeader carries the authenticated customer id, injected by the
// auth gateway after token validation.
const CustomerIDHeader = "X-Customer-ID"

type contextKey string

const sessionKey contextKey = "cart_session"

// SessionCookies validates or mints the anonymous session on every request
// and keeps the browser's cookies in sync. The session is always available
// downstream, even for authenticated shoppers, so a logout can fall back to
// the same anonymous cart.
func SessionCookies(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				token     string
				createdAt time.Time
			)
			if c, err := r.Cookie(SessionCookieName); err == nil {
				token = c.Value
			}
			if c, err := r.Cookie(SessionTSCookieName); err == nil {
				if ms, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
					createdAt = time.UnixMilli(ms)
				}
			}

			sess := manager.GetOrCreate(r.Context(), token, createdAt)
			if sess.Token != token {
				setSessionCookies(w, sess, manager.TTL())
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setSessionCookies(w http.ResponseWriter, sess session.Session, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     SessionTSCookieName,
		Value:    strconv.FormatInt(sess.CreatedAt.UnixMilli(), 10),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func expireSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{SessionCookieName, SessionTSCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// sessionFromContext returns the session placed by SessionCookies.
func sessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(session.Session)
	return sess, ok && sess.Token != ""
}

// ownerFromRequest resolves the cart owner: the authenticated customer when
// the gateway injected one, otherwise the anonymous session.
func ownerFromRequest(r *http.Request) (domain.CartOwner, bool) {
	if customerID := r.Header.Get(CustomerIDHeader); customerID != "" {
		return domain.CustomerOwner(customerID), true
	}
	if sess, ok := sessionFromContext(r.Context()); ok {
		return domain.SessionOwner(sess.Token), true
	}
	return domain.CartOwner{}, false
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
