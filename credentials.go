package secretkeep

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Credentials represents a local username/password presentation
type Credentials struct {
	Username string
	Password string
}

// RegisterFunc creates a new local identity from credentials
type RegisterFunc func(creds *Credentials) (*Identity, error)

// CredentialsValidator validates local credentials during login and returns
// the matching identity
type CredentialsValidator func(username, password string) (*Identity, error)

// NewRegisterFunc creates a RegisterFunc backed by the given store.
//
// The identity is created with provider "local" and the username doubling as
// the email field; local accounts have no separate email input. Registration
// fails with ErrDuplicateUsername if the username exists - the store's
// uniqueness constraint is the arbiter, so concurrent registrations of the
// same username cannot both succeed.
func NewRegisterFunc(store IdentityStore) RegisterFunc {
	return func(creds *Credentials) (*Identity, error) {
		if creds.Username == "" || creds.Password == "" {
			return nil, NewAuthError(ErrCodeMissingField, "username and password required", "username")
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		now := time.Now()
		identity := &Identity{
			ID:           generateSecureId(),
			Username:     creds.Username,
			PasswordHash: string(passwordHash),
			Provider:     ProviderLocal,
			Email:        creds.Username,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := store.CreateIdentity(identity); err != nil {
			if errors.Is(err, ErrDuplicateUsername) {
				return nil, ErrDuplicateUsername
			}
			return nil, fmt.Errorf("failed to create identity: %w", err)
		}

		log.Printf("Registered local identity %s for username %s", identity.ID, identity.Username)
		return identity, nil
	}
}

// dummyHash is compared against when the username does not exist, so the
// unknown-user path costs roughly the same as a wrong password.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// NewCredentialsValidator creates a CredentialsValidator backed by the given
// store. All failure paths collapse to ErrInvalidCredential: an unknown
// username, a missing password credential, and a wrong password are
// indistinguishable to the caller.
func NewCredentialsValidator(store IdentityStore) CredentialsValidator {
	return func(username, password string) (*Identity, error) {
		identity, err := store.GetIdentityByUsername(username)
		if err != nil {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredential
		}

		if !identity.HasPassword() {
			return nil, ErrInvalidCredential
		}

		if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
			return nil, ErrInvalidCredential
		}

		return identity, nil
	}
}

// generateSecureId generates a cryptographically secure identity ID
func generateSecureId() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
