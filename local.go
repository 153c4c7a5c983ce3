package secretkeep

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LocalAuth is the username/password strategy. Login delegates to the
// credentials validator; registration creates a fresh identity. Neither
// method writes its own response - the route layer owns the redirect policy.
type LocalAuth struct {
	// Validates credentials during login
	ValidateCredentials CredentialsValidator

	// Creates a new identity (for registration)
	Register RegisterFunc

	// Form field names
	UsernameField string
	PasswordField string
}

func (a *LocalAuth) Name() string { return ProviderLocal }

// Initiate is a no-op for local auth; the login form is presented directly.
func (a *LocalAuth) Initiate(w http.ResponseWriter, r *http.Request) {}

// Complete handles a login form post and resolves it to an identity.
func (a *LocalAuth) Complete(w http.ResponseWriter, r *http.Request) (*Identity, error) {
	if a.ValidateCredentials == nil {
		return nil, fmt.Errorf("login not configured")
	}

	creds, err := a.parseForm(r)
	if err != nil {
		return nil, NewAuthError(ErrCodeMissingField, err.Error(), "username")
	}

	identity, err := a.ValidateCredentials(creds.Username, creds.Password)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// CompleteRegistration handles a registration form post: it creates the
// identity (provider "local", email defaulting to the username) and returns
// it ready to be signed in. A duplicate username surfaces as
// ErrDuplicateUsername with the original record untouched.
func (a *LocalAuth) CompleteRegistration(r *http.Request) (*Identity, error) {
	if a.Register == nil {
		return nil, fmt.Errorf("registration not configured")
	}

	creds, err := a.parseForm(r)
	if err != nil {
		return nil, NewAuthError(ErrCodeMissingField, err.Error(), "username")
	}

	return a.Register(creds)
}

func (a *LocalAuth) parseForm(r *http.Request) (*Credentials, error) {
	contentType := r.Header.Get("Content-Type")
	usernameField := a.getUsernameField()
	passwordField := a.getPasswordField()

	var username, password string
	if strings.HasPrefix(contentType, "application/json") {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, fmt.Errorf("invalid post body")
		}
		if u, ok := data[usernameField].(string); ok {
			username = u
		}
		if p, ok := data[passwordField].(string); ok {
			password = p
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("error parsing form")
		}
		username = r.FormValue(usernameField)
		password = r.FormValue(passwordField)
	}

	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required")
	}

	return &Credentials{Username: username, Password: password}, nil
}

func (a *LocalAuth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username"
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}
