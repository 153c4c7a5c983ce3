package oauth2

import (
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/facebook"

	"github.com/secretkeep/secretkeep"
)

// FacebookOAuth2 authenticates through Facebook's OAuth2 consent flow. Only
// the email scope is requested, and only the id and email profile fields are
// fetched from the Graph API.
type FacebookOAuth2 struct {
	*BaseOAuth2
	Resolver *secretkeep.Resolver
}

func NewFacebookOAuth2(clientId, clientSecret, callbackUrl string, resolver *secretkeep.Resolver) *FacebookOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_FACEBOOK_CALLBACK_URL")
	}

	out := &FacebookOAuth2{
		BaseOAuth2: NewBaseOAuth2(clientId, clientSecret, callbackUrl, facebook.Endpoint, []string{"email"}),
		Resolver:   resolver,
	}
	out.UserInfoURL = "https://graph.facebook.com/me?fields=id,email"
	return out
}

func (f *FacebookOAuth2) Name() string { return secretkeep.ProviderFacebook }

// Complete handles the OAuth callback the same way the Google strategy does,
// keyed on the Facebook profile id.
func (f *FacebookOAuth2) Complete(w http.ResponseWriter, r *http.Request) (*secretkeep.Identity, error) {
	token, err := f.exchange(w, r)
	if err != nil {
		return nil, err
	}

	userInfo, err := f.fetchUserInfo(token)
	if err != nil {
		return nil, err
	}

	subject, _ := userInfo["id"].(string)
	if subject == "" {
		return nil, fmt.Errorf("facebook profile has no subject id")
	}
	email, _ := userInfo["email"].(string)

	attrs := secretkeep.Attributes{Provider: secretkeep.ProviderFacebook, Email: email}
	identity, err := f.Resolver.FindOrCreate(subject, attrs)
	if err != nil {
		return nil, err
	}
	if err := f.Resolver.Refresh(identity, attrs); err != nil {
		return nil, err
	}
	return identity, nil
}
