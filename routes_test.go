package secretkeep_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	oauth2lib "golang.org/x/oauth2"

	sk "github.com/secretkeep/secretkeep"
	skoauth2 "github.com/secretkeep/secretkeep/oauth2"
)

// newTestServer wires a complete server over a temp-dir store, with the
// Google strategy pointed at the given mock provider (nil for none).
func newTestServer(t *testing.T, provider *httptest.Server, userInfoPath string) (*sk.Server, sk.IdentityStore, string) {
	store, tmpDir := setupTestStore(t)

	sessions := newTestSessionManager(store)
	resolver := &sk.Resolver{Store: store}
	local := &sk.LocalAuth{
		ValidateCredentials: sk.NewCredentialsValidator(store),
		Register:            sk.NewRegisterFunc(store),
	}

	var strategies *sk.Registry
	if provider != nil {
		google := skoauth2.NewGoogleOAuth2("test-client-id", "test-client-secret",
			"http://localhost:8080/auth/google/secrets", resolver)
		google.UserInfoURL = provider.URL + userInfoPath
		google.SetHTTPClient(provider.Client())
		google.SetOAuthEndpoint(oauth2lib.Endpoint{
			AuthURL:  provider.URL + "/auth",
			TokenURL: provider.URL + "/token",
		})
		strategies = sk.NewRegistry(google)
	} else {
		strategies = sk.NewRegistry()
	}

	server := sk.NewServer(sessions, strategies, local, zerolog.Nop())
	return server, store, tmpDir
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(target, form)
	if err != nil {
		t.Fatalf("POST %s failed: %v", target, err)
	}
	return resp
}

// TestRegisterLoginFlow walks the full local journey: register, access the
// protected page, log out, log back in.
func TestRegisterLoginFlow(t *testing.T) {
	server, _, tmpDir := newTestServer(t, nil, "")
	defer cleanup(t, tmpDir)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	client := newNoRedirectClient(t)
	form := url.Values{"username": {"alice@example.com"}, "password": {"password123"}}

	t.Run("secrets requires login", func(t *testing.T) {
		resp := mustGet(t, client, ts.URL+"/secrets")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
			t.Errorf("Expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}
	})

	t.Run("registration lands on secrets", func(t *testing.T) {
		resp := postForm(t, client, ts.URL+"/register", form)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/secrets" {
			t.Fatalf("Expected redirect to /secrets, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}

		secrets := mustGet(t, client, ts.URL+"/secrets")
		body := readBody(t, secrets)
		if secrets.StatusCode != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, secrets.StatusCode)
		}
		if !strings.Contains(body, "alice@example.com") {
			t.Errorf("Expected secrets page to name the user, got: %s", body)
		}
	})

	t.Run("duplicate registration returns to the form", func(t *testing.T) {
		other := newNoRedirectClient(t)
		resp := postForm(t, other, ts.URL+"/register", form)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/register" {
			t.Errorf("Expected redirect to /register, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}

		// And the loser is not signed in.
		secrets := mustGet(t, other, ts.URL+"/secrets")
		defer secrets.Body.Close()
		if secrets.StatusCode != http.StatusFound {
			t.Errorf("Expected duplicate registrant to stay anonymous, got %d", secrets.StatusCode)
		}
	})

	t.Run("logout clears the session", func(t *testing.T) {
		resp := mustGet(t, client, ts.URL+"/logout")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
			t.Errorf("Expected redirect to /, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}

		secrets := mustGet(t, client, ts.URL+"/secrets")
		defer secrets.Body.Close()
		if secrets.StatusCode != http.StatusFound {
			t.Errorf("Expected anonymous redirect after logout, got %d", secrets.StatusCode)
		}
	})

	t.Run("login with valid credentials", func(t *testing.T) {
		resp := postForm(t, client, ts.URL+"/login", form)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/secrets" {
			t.Errorf("Expected redirect to /secrets, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}
	})

	t.Run("login failures all land on the login page", func(t *testing.T) {
		attempts := []url.Values{
			{"username": {"alice@example.com"}, "password": {"wrongpassword"}},
			{"username": {"nobody@example.com"}, "password": {"password123"}},
			{"username": {"alice@example.com"}},
		}
		for _, attempt := range attempts {
			fresh := newNoRedirectClient(t)
			resp := postForm(t, fresh, ts.URL+"/login", attempt)
			resp.Body.Close()
			if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
				t.Errorf("Expected redirect to /login for %v, got %d %q",
					attempt, resp.StatusCode, resp.Header.Get("Location"))
			}
		}
	})
}

// TestOAuthFlow walks the Google journey against a mock provider: initiate,
// callback, protected page, and a second login resolving to the same identity.
func TestOAuthFlow(t *testing.T) {
	providerMux := http.NewServeMux()
	providerMux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "mock_access_token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	providerMux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "g-12345",
			"email": "alice@gmail.com",
			"name":  "Alice",
		})
	})
	provider := httptest.NewServer(providerMux)
	defer provider.Close()

	server, store, tmpDir := newTestServer(t, provider, "/userinfo")
	defer cleanup(t, tmpDir)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	client := newNoRedirectClient(t)

	// initiate captures the state parameter the callback must echo
	initiate := func(t *testing.T) string {
		t.Helper()
		resp := mustGet(t, client, ts.URL+"/auth/google")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("Expected redirect to provider, got %d", resp.StatusCode)
		}
		location, err := url.Parse(resp.Header.Get("Location"))
		if err != nil {
			t.Fatalf("Failed to parse provider redirect: %v", err)
		}
		state := location.Query().Get("state")
		if state == "" {
			t.Fatal("Expected state parameter in provider redirect")
		}
		return state
	}

	var firstID string

	t.Run("callback creates the identity and signs in", func(t *testing.T) {
		state := initiate(t)
		resp := mustGet(t, client, ts.URL+"/auth/google/secrets?code=valid_code&state="+url.QueryEscape(state))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/secrets" {
			t.Fatalf("Expected redirect to /secrets, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}

		identity, err := store.GetIdentityByUsername("g-12345")
		if err != nil {
			t.Fatalf("Expected identity for the Google subject: %v", err)
		}
		if identity.Provider != sk.ProviderGoogle {
			t.Errorf("Expected provider %q, got %q", sk.ProviderGoogle, identity.Provider)
		}
		if identity.Email != "alice@gmail.com" {
			t.Errorf("Expected email from the provider profile, got %q", identity.Email)
		}
		firstID = identity.ID

		secrets := mustGet(t, client, ts.URL+"/secrets")
		body := readBody(t, secrets)
		if secrets.StatusCode != http.StatusOK || !strings.Contains(body, "g-12345") {
			t.Errorf("Expected protected page for the OAuth user, got %d: %s", secrets.StatusCode, body)
		}
	})

	t.Run("second login resolves to the same identity", func(t *testing.T) {
		mustGet(t, client, ts.URL+"/logout").Body.Close()

		state := initiate(t)
		resp := mustGet(t, client, ts.URL+"/auth/google/secrets?code=valid_code&state="+url.QueryEscape(state))
		resp.Body.Close()

		identity, err := store.GetIdentityByUsername("g-12345")
		if err != nil {
			t.Fatalf("Expected identity to still exist: %v", err)
		}
		if identity.ID != firstID {
			t.Errorf("Expected same identity %s, got %s", firstID, identity.ID)
		}
	})

	t.Run("mismatched state lands on login", func(t *testing.T) {
		initiate(t)
		resp := mustGet(t, client, ts.URL+"/auth/google/secrets?code=valid_code&state=forged")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
			t.Errorf("Expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}
	})

	t.Run("denied consent lands on login", func(t *testing.T) {
		resp := mustGet(t, client, ts.URL+"/auth/google/secrets?error=access_denied")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
			t.Errorf("Expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
		}
	})

	t.Run("unknown provider is a 404", func(t *testing.T) {
		resp := mustGet(t, client, ts.URL+"/auth/twitter")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
		}
	})

	t.Run("callback URL cookie steers the landing page", func(t *testing.T) {
		mustGet(t, client, ts.URL+"/logout").Body.Close()

		resp := mustGet(t, client, ts.URL+"/auth/google?callbackURL=/welcome")
		resp.Body.Close()
		location, _ := url.Parse(resp.Header.Get("Location"))
		state := location.Query().Get("state")

		cb := mustGet(t, client, ts.URL+"/auth/google/secrets?code=valid_code&state="+url.QueryEscape(state))
		defer cb.Body.Close()
		if cb.Header.Get("Location") != "/welcome" {
			t.Errorf("Expected redirect to remembered callback, got %q", cb.Header.Get("Location"))
		}
	})
}
