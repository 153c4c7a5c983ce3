// Package gorm provides a GORM-based implementation of the IdentityStore
// interface. It supports any database that GORM supports (PostgreSQL, MySQL,
// SQLite, etc.) and is suitable for production deployments.
//
// # Database Schema
//
// The package auto-migrates a single table:
//   - identities: identity records with a unique index on username
//
// The unique index serves as the arbiter for concurrent find-or-create
// attempts on the same external subject ID: the losing insert surfaces as
// ErrDuplicateUsername and the resolver re-fetches.
//
// # Usage
//
//	db, _ := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
//	gormstore.AutoMigrate(db)
//	store := gormstore.NewIdentityStore(db)
package gorm
