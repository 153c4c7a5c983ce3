package secretkeep

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
)

const defaultSessionTimeoutSeconds = 86400

// SessionManager serializes an authenticated identity into the server-side
// session and reconstitutes it on later requests. The only payload stored
// against the session is the identity's stable ID - never password material,
// never the email.
//
// A signed JWT cookie is issued alongside the session so non-browser callers
// can present the same principal; the session remains the source of truth.
type SessionManager struct {
	Session *scs.SessionManager
	Store   IdentityStore

	// Session variable holding the serialized identity ID
	IdentityIdVar string

	// JWT related fields
	JwtIssuer           string
	JWTSecretKey        string
	AuthTokenCookieName string

	// How long a session cookie is valid for. Defaults to 1 day.
	SessionTimeoutInSeconds int
}

// NewSessionManager wires a session manager over an scs store and the
// identity store used for reconstitution.
func NewSessionManager(session *scs.SessionManager, store IdentityStore) *SessionManager {
	return (&SessionManager{Session: session, Store: store}).EnsureDefaults()
}

func (m *SessionManager) EnsureDefaults() *SessionManager {
	if m.IdentityIdVar == "" {
		m.IdentityIdVar = "identityId"
	}
	if m.JwtIssuer == "" {
		m.JwtIssuer = "secretkeep"
	}
	if m.AuthTokenCookieName == "" {
		m.AuthTokenCookieName = "SecretkeepAuthToken"
	}
	if m.SessionTimeoutInSeconds <= 0 {
		m.SessionTimeoutInSeconds = defaultSessionTimeoutSeconds
	}
	return m
}

// Serialize returns the token stored server-side for an identity: its ID.
func (m *SessionManager) Serialize(identity *Identity) string {
	return identity.ID
}

// Deserialize reloads the identity referred to by a serialized token. A
// token whose record no longer exists yields ErrNotAuthenticated, not a
// fault: the session is simply invalid.
func (m *SessionManager) Deserialize(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	identity, err := m.Store.GetIdentityById(token)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	return identity, nil
}

// SignIn marks the session authenticated as the given identity. The session
// token is renewed to a fresh value and a signed auth-token cookie is issued
// for the same principal.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, identity *Identity) {
	m.EnsureDefaults()

	if err := m.Session.RenewToken(r.Context()); err != nil {
		slog.Warn("error renewing session token", "err", err)
	}
	m.Session.Put(r.Context(), m.IdentityIdVar, m.Serialize(identity))

	tokenString, err := m.signJWT(identity.ID)
	if err != nil {
		slog.Warn("error signing auth token", "err", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.AuthTokenCookieName,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(time.Second * time.Duration(m.SessionTimeoutInSeconds)),
		MaxAge:   m.SessionTimeoutInSeconds,
	})
}

// SignOut returns the session to the anonymous state and clears the auth
// token cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) {
	m.EnsureDefaults()

	if err := m.Session.Destroy(r.Context()); err != nil {
		slog.Warn("error destroying session", "err", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:    m.AuthTokenCookieName,
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
}

// Current reconstitutes the authenticated identity for this request, looking
// it up in the store on every call. Returns ErrNotAuthenticated for an
// anonymous session or a serialized ID whose record is gone.
func (m *SessionManager) Current(r *http.Request) (*Identity, error) {
	m.EnsureDefaults()
	token := m.Session.GetString(r.Context(), m.IdentityIdVar)
	return m.Deserialize(token)
}

// IsAuthenticated reports whether this request's session holds a resolvable
// identity. Pure predicate, no side effects.
func (m *SessionManager) IsAuthenticated(r *http.Request) bool {
	_, err := m.Current(r)
	return err == nil
}

func (m *SessionManager) signJWT(identityId string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": identityId,
		"iss": m.JwtIssuer,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Second * time.Duration(m.SessionTimeoutInSeconds)).Unix(),
	})
	return token.SignedString([]byte(m.JWTSecretKey))
}

// VerifyToken parses and verifies a signed auth token, returning the
// identity ID it names.
func (m *SessionManager) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}
