package secretkeep

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Attributes carries the provider-supplied facts attached to an external
// subject ID when it is resolved to a local identity.
type Attributes struct {
	Provider string
	Email    string
}

// Resolver maps a provider-issued external subject ID to a local identity,
// creating one on first sight. The external ID is stored in the Username
// field, which keeps one unique lookup key across all providers.
type Resolver struct {
	Store IdentityStore
}

// FindOrCreate returns the identity for the given external subject ID,
// creating it if absent. Repeated calls with the same key return the same
// record; when two requests race to create the same key, the store's
// uniqueness constraint on username picks the winner and the loser re-fetches
// the now-existing record instead of failing the request.
//
// Lookup does not refresh provider/email on the found record; that mutation
// belongs to the explicit login-completion path.
func (r *Resolver) FindOrCreate(externalId string, attrs Attributes) (*Identity, error) {
	if externalId == "" {
		return nil, fmt.Errorf("external subject id is empty")
	}

	identity, err := r.Store.GetIdentityByUsername(externalId)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return nil, err
	}

	now := time.Now()
	identity = &Identity{
		ID:        generateSecureId(),
		Username:  externalId,
		Provider:  attrs.Provider,
		Email:     attrs.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = r.Store.CreateIdentity(identity)
	if err == nil {
		log.Printf("Created %s identity %s for subject %s", attrs.Provider, identity.ID, externalId)
		return identity, nil
	}
	if errors.Is(err, ErrDuplicateUsername) {
		// lost the race, the record exists now
		return r.Store.GetIdentityByUsername(externalId)
	}
	return nil, err
}

// Refresh records which provider last authenticated an existing identity,
// updating provider and email in place when they changed. Called on the
// login-completion path, never on lookup.
func (r *Resolver) Refresh(identity *Identity, attrs Attributes) error {
	patch := IdentityPatch{}
	if attrs.Provider != "" && attrs.Provider != identity.Provider {
		patch.Provider = &attrs.Provider
	}
	if attrs.Email != "" && attrs.Email != identity.Email {
		patch.Email = &attrs.Email
	}
	if patch.Provider == nil && patch.Email == nil {
		return nil
	}
	if err := r.Store.UpdateIdentity(identity.ID, patch); err != nil {
		return fmt.Errorf("failed to update identity %s: %w", identity.ID, err)
	}
	if patch.Provider != nil {
		identity.Provider = *patch.Provider
	}
	if patch.Email != nil {
		identity.Email = *patch.Email
	}
	return nil
}
