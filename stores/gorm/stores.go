package gorm

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	sk "github.com/secretkeep/secretkeep"
)

// AutoMigrate runs database migrations for the identities table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&IdentityModel{})
}

// IdentityStore implements the IdentityStore interface using GORM
type IdentityStore struct {
	db *gorm.DB
}

func NewIdentityStore(db *gorm.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) CreateIdentity(identity *sk.Identity) error {
	model := IdentityToModel(identity)
	if err := s.db.Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return sk.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (s *IdentityStore) GetIdentityById(id string) (*sk.Identity, error) {
	var model IdentityModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sk.ErrIdentityNotFound
		}
		return nil, err
	}
	return model.ToIdentity(), nil
}

func (s *IdentityStore) GetIdentityByUsername(username string) (*sk.Identity, error) {
	var model IdentityModel
	if err := s.db.First(&model, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sk.ErrIdentityNotFound
		}
		return nil, err
	}
	return model.ToIdentity(), nil
}

func (s *IdentityStore) UpdateIdentity(id string, patch sk.IdentityPatch) error {
	updates := map[string]any{}
	if patch.Provider != nil {
		updates["provider"] = *patch.Provider
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.db.Model(&IdentityModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sk.ErrIdentityNotFound
	}
	return nil
}

// isDuplicateKey reports whether err is a unique-constraint violation. GORM
// translates these for most dialects; the string check covers sqlite drivers
// that don't.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
