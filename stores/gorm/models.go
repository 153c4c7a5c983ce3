package gorm

import (
	"time"

	sk "github.com/secretkeep/secretkeep"
)

// IdentityModel is the GORM model for identities. The unique index on
// username is the arbiter for concurrent creates of the same key.
type IdentityModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Username     string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:128"`
	Provider     string    `gorm:"size:32"`
	Email        string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (IdentityModel) TableName() string {
	return "identities"
}

func (m *IdentityModel) ToIdentity() *sk.Identity {
	return &sk.Identity{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Provider:     m.Provider,
		Email:        m.Email,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func IdentityToModel(i *sk.Identity) *IdentityModel {
	return &IdentityModel{
		ID:           i.ID,
		Username:     i.Username,
		PasswordHash: i.PasswordHash,
		Provider:     i.Provider,
		Email:        i.Email,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}
