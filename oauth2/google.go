package oauth2

import (
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"

	"github.com/secretkeep/secretkeep"
)

// GoogleOAuth2 authenticates through Google's OAuth2 consent flow, requesting
// the profile and email scopes. The profile's subject ID becomes the
// identity's username.
type GoogleOAuth2 struct {
	*BaseOAuth2
	Resolver *secretkeep.Resolver
}

func NewGoogleOAuth2(clientId, clientSecret, callbackUrl string, resolver *secretkeep.Resolver) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	out := &GoogleOAuth2{
		BaseOAuth2: NewBaseOAuth2(clientId, clientSecret, callbackUrl, google.Endpoint, []string{
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/userinfo.email",
		}),
		Resolver: resolver,
	}
	out.UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	return out
}

func (g *GoogleOAuth2) Name() string { return secretkeep.ProviderGoogle }

// Complete handles the OAuth callback: state check, code exchange, profile
// fetch, then find-or-create on the Google subject ID.
func (g *GoogleOAuth2) Complete(w http.ResponseWriter, r *http.Request) (*secretkeep.Identity, error) {
	token, err := g.exchange(w, r)
	if err != nil {
		return nil, err
	}

	userInfo, err := g.fetchUserInfo(token)
	if err != nil {
		return nil, err
	}

	subject, _ := userInfo["id"].(string)
	if subject == "" {
		return nil, fmt.Errorf("google profile has no subject id")
	}
	email, _ := userInfo["email"].(string)

	attrs := secretkeep.Attributes{Provider: secretkeep.ProviderGoogle, Email: email}
	identity, err := g.Resolver.FindOrCreate(subject, attrs)
	if err != nil {
		return nil, err
	}
	if err := g.Resolver.Refresh(identity, attrs); err != nil {
		return nil, err
	}
	return identity, nil
}
