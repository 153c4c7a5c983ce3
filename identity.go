package secretkeep

import "time"

// Supported authentication providers
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Identity is the unified, persisted representation of one authenticated
// principal. Local accounts carry a password hash; OAuth accounts store the
// provider's external subject ID in Username, which keeps the field unique
// across providers (Google/Facebook IDs live in their own namespaces and
// cannot collide with human-chosen local usernames).
type Identity struct {
	ID           string    `json:"id"`                      // opaque, assigned at creation, immutable
	Username     string    `json:"username"`                // globally unique
	PasswordHash string    `json:"password_hash,omitempty"` // bcrypt; empty for OAuth-only accounts
	Provider     string    `json:"provider"`                // which mechanism last authenticated this identity
	Email        string    `json:"email"`                   // best effort, from provider profile or local username
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether this identity can be verified locally.
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

// IdentityPatch is a partial update applied after a successful login under a
// provider other than the one currently recorded. Nil fields are untouched.
type IdentityPatch struct {
	Provider *string
	Email    *string
}

// IdentityStore persists identity records. Creation must be atomic with
// respect to the uniqueness invariant on Username: of two concurrent creators
// of the same username exactly one wins and the other receives
// ErrDuplicateUsername.
type IdentityStore interface {
	// CreateIdentity persists a new identity. Returns ErrDuplicateUsername
	// if the username is already taken.
	CreateIdentity(identity *Identity) error

	// GetIdentityById retrieves an identity by its stable ID.
	// Returns ErrIdentityNotFound if no such record exists.
	GetIdentityById(id string) (*Identity, error)

	// GetIdentityByUsername retrieves an identity by its unique username.
	// Returns ErrIdentityNotFound if no such record exists.
	GetIdentityByUsername(username string) (*Identity, error)

	// UpdateIdentity applies a partial update to an existing identity.
	UpdateIdentity(id string, patch IdentityPatch) error
}
