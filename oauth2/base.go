package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// BaseOAuth2 holds the pieces shared by every OAuth2 strategy: the provider
// config, the state-cookie handshake, the code exchange, and the profile
// fetch. Provider types embed it and translate the fetched profile into an
// identity.
type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// Endpoint the profile is fetched from after the token exchange.
	// Overridable for tests.
	UserInfoURL string

	// Optional HTTP client used for the token exchange and profile fetch.
	// Nil means http.DefaultClient.
	HTTPClient *http.Client

	oauthConfig oauth2.Config
}

func NewBaseOAuth2(clientId, clientSecret, callbackUrl string, endpoint oauth2.Endpoint, scopes []string) *BaseOAuth2 {
	return &BaseOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
}

// SetOAuthEndpoint overrides the provider's auth/token endpoints (for tests).
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// SetHTTPClient overrides the HTTP client used for outbound provider calls.
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.HTTPClient = client
}

// Initiate redirects the browser to the provider's consent screen, setting
// the state cookie the callback will be checked against. A callbackURL query
// parameter, if present, is remembered in a short-lived cookie so a
// successful login can return the user where they came from.
func (b *BaseOAuth2) Initiate(w http.ResponseWriter, r *http.Request) {
	if callbackURL := r.URL.Query().Get("callbackURL"); callbackURL != "" {
		setCallbackURLCookie(w, callbackURL)
	}
	state := generateStateOauthCookie(w)
	http.Redirect(w, r, b.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

// exchange validates the state handshake and trades the authorization code
// for a provider token.
func (b *BaseOAuth2) exchange(w http.ResponseWriter, r *http.Request) (*oauth2.Token, error) {
	if errParam := r.FormValue("error"); errParam != "" {
		// consent denied or provider-side failure
		return nil, fmt.Errorf("oauth error from provider: %s", errParam)
	}

	oauthState, _ := r.Cookie(stateCookieName)
	if oauthState == nil {
		return nil, fmt.Errorf("oauth state cookie missing")
	}
	if r.FormValue("state") != oauthState.Value {
		clearCookie(w, stateCookieName)
		return nil, fmt.Errorf("invalid oauth state")
	}

	ctx := r.Context()
	if b.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	token, err := b.oauthConfig.Exchange(ctx, r.FormValue("code"))
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, nil
}

// fetchUserInfo retrieves the provider profile for an access token from
// UserInfoURL.
func (b *BaseOAuth2) fetchUserInfo(token *oauth2.Token) (map[string]any, error) {
	u, err := url.Parse(b.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("invalid user info url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", token.AccessToken)
	u.RawQuery = q.Encode()

	client := b.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	response, err := client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed: %s", response.Status)
	}

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading user info response: %w", err)
	}

	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed decoding user info: %w", err)
	}
	return userInfo, nil
}
