package secretkeep

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
)

type identityContextKey struct{}

// Middleware gates protected routes on the session's authentication state.
// The check runs on every request; nothing is cached beyond the session's
// own lifetime.
type Middleware struct {
	Sessions *SessionManager

	// Where unauthenticated requests are sent. Defaults to /login.
	LoginURL string

	// Query parameter carrying the originally requested path on the login
	// redirect. Empty disables it.
	CallbackURLParam string
}

func (m *Middleware) EnsureReasonableDefaults() {
	if m.LoginURL == "" {
		m.LoginURL = "/login"
	}
}

// ExtractIdentity resolves the request's identity, if any, and makes it
// available to downstream handlers. It performs no redirects; use
// EnsureIdentity to enforce authentication.
//
// The session is consulted first; failing that, a signed auth-token cookie
// is accepted for the same principal.
func (m *Middleware) ExtractIdentity(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := m.resolveIdentity(r)
		if identity != nil {
			r = r.WithContext(context.WithValue(r.Context(), identityContextKey{}, identity))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureIdentity is the access guard: requests with no resolved identity are
// redirected to the login entry point, everything else proceeds with the
// identity in the request context.
func (m *Middleware) EnsureIdentity(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := m.resolveIdentity(r)
		if identity == nil {
			redirUrl := m.LoginURL
			if m.CallbackURLParam != "" {
				redirUrl += "?" + m.CallbackURLParam + "=" + url.QueryEscape(r.URL.Path)
			}
			http.Redirect(w, r, redirUrl, http.StatusFound)
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), identityContextKey{}, identity))
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) resolveIdentity(r *http.Request) *Identity {
	identity, err := m.Sessions.Current(r)
	if err == nil {
		return identity
	}
	if !errors.Is(err, ErrNotAuthenticated) {
		slog.Warn("error resolving session identity", "err", err)
		return nil
	}

	// No session; see if an auth token cookie was sent instead.
	for _, cookie := range r.CookiesNamed(m.Sessions.AuthTokenCookieName) {
		if cookie.Value == "" {
			continue
		}
		identityId, err := m.Sessions.VerifyToken(cookie.Value)
		if err != nil {
			slog.Warn("error verifying auth token", "err", err)
			continue
		}
		identity, err := m.Sessions.Deserialize(identityId)
		if err == nil {
			return identity
		}
	}
	return nil
}

// IdentityFrom returns the identity stored in the request context by the
// middleware, or nil for an anonymous request.
func IdentityFrom(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*Identity)
	return identity
}
