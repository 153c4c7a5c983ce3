package stores

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sk "github.com/secretkeep/secretkeep"
)

// usernameRecord maps a unique username to its identity ID. Each record is a
// separate file; the exclusive create of that file is the uniqueness arbiter
// for concurrent registrations of the same username.
type usernameRecord struct {
	NormalizedUsername string    `json:"normalized_username"` // lowercase for lookups
	Username           string    `json:"username"`            // original case-preserved
	IdentityID         string    `json:"identity_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// FSIdentityStore implements the IdentityStore interface using filesystem
// storage, suitable for development and tests.
//
// # File Structure
//
//	{StoragePath}/
//	├── identities/
//	│   └── {id}.json
//	└── usernames/
//	    └── {normalized-username}.json    # username -> identity ID
//
// # Concurrency Model
//
// Creation reserves the username file with O_EXCL, so of two concurrent
// creators of the same username exactly one wins; the loser gets
// ErrDuplicateUsername and is expected to re-fetch. Record updates are
// serialized by a mutex and written with an atomic temp-file rename.
type FSIdentityStore struct {
	StoragePath string

	mu sync.Mutex
}

// NewFSIdentityStore creates a new filesystem-backed IdentityStore
func NewFSIdentityStore(storagePath string) *FSIdentityStore {
	return &FSIdentityStore{StoragePath: storagePath}
}

func (s *FSIdentityStore) identityPath(id string) string {
	return filepath.Join(s.StoragePath, "identities", id+".json")
}

func (s *FSIdentityStore) usernamePath(username string) string {
	normalized := strings.ToLower(username)
	return filepath.Join(s.StoragePath, "usernames", url.PathEscape(normalized)+".json")
}

// CreateIdentity persists a new identity, failing with ErrDuplicateUsername
// if the username is already reserved.
func (s *FSIdentityStore) CreateIdentity(identity *sk.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usernamePath := s.usernamePath(identity.Username)
	if err := os.MkdirAll(filepath.Dir(usernamePath), 0755); err != nil {
		return err
	}

	record := &usernameRecord{
		NormalizedUsername: strings.ToLower(identity.Username),
		Username:           identity.Username,
		IdentityID:         identity.ID,
		CreatedAt:          time.Now(),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	// Exclusive create; an existing file means the username is taken.
	f, err := os.OpenFile(usernamePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return sk.ErrDuplicateUsername
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(usernamePath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(usernamePath)
		return err
	}

	if err := s.writeIdentity(identity); err != nil {
		os.Remove(usernamePath)
		return err
	}
	return nil
}

// GetIdentityById retrieves an identity by its stable ID.
func (s *FSIdentityStore) GetIdentityById(id string) (*sk.Identity, error) {
	data, err := os.ReadFile(s.identityPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sk.ErrIdentityNotFound
		}
		return nil, err
	}

	var identity sk.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// GetIdentityByUsername retrieves an identity via the username index.
func (s *FSIdentityStore) GetIdentityByUsername(username string) (*sk.Identity, error) {
	data, err := os.ReadFile(s.usernamePath(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sk.ErrIdentityNotFound
		}
		return nil, err
	}

	var record usernameRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return s.GetIdentityById(record.IdentityID)
}

// UpdateIdentity applies a partial update (provider, email) in place.
func (s *FSIdentityStore) UpdateIdentity(id string, patch sk.IdentityPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.GetIdentityById(id)
	if err != nil {
		return err
	}

	if patch.Provider != nil {
		identity.Provider = *patch.Provider
	}
	if patch.Email != nil {
		identity.Email = *patch.Email
	}
	identity.UpdatedAt = time.Now()

	return s.writeIdentity(identity)
}

func (s *FSIdentityStore) writeIdentity(identity *sk.Identity) error {
	path := s.identityPath(identity.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
