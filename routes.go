package secretkeep

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server assembles the authentication routes over a strategy registry, the
// session manager, and the access guard. Strategies are injected at startup;
// handlers never reach for process-wide state.
type Server struct {
	Sessions   *SessionManager
	Strategies *Registry
	Local      *LocalAuth
	Middleware Middleware
	Logger     zerolog.Logger
}

// NewServer wires a server from its collaborators.
func NewServer(sessions *SessionManager, strategies *Registry, local *LocalAuth, logger zerolog.Logger) *Server {
	return &Server{
		Sessions:   sessions,
		Strategies: strategies,
		Local:      local,
		Middleware: Middleware{Sessions: sessions, LoginURL: "/login"},
		Logger:     logger,
	}
}

// Handler returns the full route table, wrapped in the session middleware.
//
//	GET  /                         landing page
//	GET  /login, /register         forms
//	POST /login, /register         local strategy
//	GET  /secrets                  guarded resource
//	GET  /logout                   clear session
//	GET  /auth/{provider}          OAuth initiate
//	GET  /auth/{provider}/secrets  OAuth callback
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)
	r.Handle("/secrets", s.Middleware.EnsureIdentity(http.HandlerFunc(s.handleSecrets))).Methods(http.MethodGet)
	r.HandleFunc("/auth/{provider}", s.handleAuthInitiate).Methods(http.MethodGet)
	r.HandleFunc("/auth/{provider}/secrets", s.handleAuthCallback).Methods(http.MethodGet)

	return s.Sessions.Session.LoadAndSave(r)
}

// handleLogin completes the local strategy. Success serializes the identity
// into the session and lands on /secrets; any failure goes back to the login
// form, with no hint whether the username even exists.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	identity, err := s.Local.Complete(w, r)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("local login failed")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	s.Sessions.SignIn(w, r, identity)
	s.Logger.Info().Str("identity", identity.ID).Str("provider", ProviderLocal).Msg("login")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// handleRegister creates a local identity and authenticates it in the same
// request. A duplicate username sends the user back to the registration form.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	identity, err := s.Local.CompleteRegistration(r)
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			s.Logger.Warn().Str("code", ErrCodeUsernameTaken).Msg("registration conflict")
		} else {
			s.Logger.Warn().Err(err).Msg("registration failed")
		}
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	s.Sessions.SignIn(w, r, identity)
	s.Logger.Info().Str("identity", identity.ID).Msg("registered")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// handleAuthInitiate starts the named provider's flow.
func (s *Server) handleAuthInitiate(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	strategy, err := s.Strategies.Get(provider)
	if err != nil {
		s.Logger.Warn().Str("provider", provider).Msg("unknown auth provider")
		http.NotFound(w, r)
		return
	}
	strategy.Initiate(w, r)
}

// handleAuthCallback completes the named provider's flow. The identity is
// resolved and persisted before the session sees it; every failure mode -
// state mismatch, denied consent, exchange or profile error - lands back on
// the login page.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	strategy, err := s.Strategies.Get(provider)
	if err != nil {
		s.Logger.Warn().Str("provider", provider).Msg("unknown auth provider")
		http.NotFound(w, r)
		return
	}

	identity, err := strategy.Complete(w, r)
	if err != nil {
		s.Logger.Warn().Err(err).Str("provider", provider).Msg("oauth callback failed")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	s.Sessions.SignIn(w, r, identity)
	s.Logger.Info().Str("identity", identity.ID).Str("provider", provider).Msg("login")
	http.Redirect(w, r, s.popCallbackURL(w, r), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.SignOut(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// popCallbackURL returns the destination remembered when the OAuth flow was
// initiated, clearing it so it cannot steer a later login. Defaults to the
// protected resource page.
func (s *Server) popCallbackURL(w http.ResponseWriter, r *http.Request) string {
	cookie, _ := r.Cookie("oauthCallbackURL")
	if cookie == nil || cookie.Value == "" {
		return "/secrets"
	}
	http.SetCookie(w, &http.Cookie{
		Name:    "oauthCallbackURL",
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
	return cookie.Value
}

// Page handlers below are placeholders; view rendering belongs to the
// embedding application.

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Secrets</title></head>
<body>
<h1>Secrets</h1>
<p><a href="/login">Login</a> or <a href="/register">Register</a></p>
</body>
</html>`)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Login</title></head>
<body>
<h1>Login</h1>
<form method="POST" action="/login">
	<label>Username: <input type="text" name="username" required></label>
	<label>Password: <input type="password" name="password" required></label>
	<button type="submit">Login</button>
</form>
<p><a href="/auth/google">Sign in with Google</a></p>
<p><a href="/auth/facebook">Sign in with Facebook</a></p>
</body>
</html>`)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Register</title></head>
<body>
<h1>Register</h1>
<form method="POST" action="/register">
	<label>Username: <input type="text" name="username" required></label>
	<label>Password: <input type="password" name="password" required></label>
	<button type="submit">Register</button>
</form>
</body>
</html>`)
}

func (s *Server) handleSecrets(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Secrets</title></head>
<body>
<h1>Secrets</h1>
<p>Logged in as %s (via %s). <a href="/logout">Logout</a></p>
</body>
</html>`, identity.Username, identity.Provider)
}
