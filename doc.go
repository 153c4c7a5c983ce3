// Package secretkeep provides session-backed authentication for web
// applications, unifying local username/password login and OAuth2 sign-in
// behind a single identity model.
//
// # Architecture
//
// Identity: An account record. Identities are keyed by a unique username (for
// local accounts the email address, for OAuth accounts the provider's subject
// ID) and carry the provider name and contact email.
//
// Strategy: An authentication mechanism (local password, Google OAuth2,
// Facebook OAuth2). Strategies share one interface: Initiate starts the flow
// and Complete produces an authenticated Identity. Strategies are looked up
// by name in a Registry.
//
// Session: Once a strategy completes, the session stores only the identity ID.
// Every later request rehydrates the full Identity from the store, so stale
// session payloads cannot outlive the underlying record.
//
// # Basic Usage
//
// Set up a store and the local authentication callbacks:
//
//	import (
//	    "github.com/secretkeep/secretkeep"
//	    "github.com/secretkeep/secretkeep/stores"
//	)
//
//	store := stores.NewFSIdentityStore("/path/to/storage")
//	local := &secretkeep.LocalAuth{
//	    ValidateCredentials: secretkeep.NewCredentialsValidator(store),
//	    Register:            secretkeep.NewRegisterFunc(store),
//	}
//
// Wire sessions, strategies and routes:
//
//	sessions := secretkeep.NewSessionManager(store, []byte(secret))
//	resolver := &secretkeep.Resolver{Store: store}
//	google := oauth2.NewGoogleOAuth2(clientId, clientSecret, callbackUrl, resolver)
//	server := secretkeep.NewServer(sessions, local, google)
//	http.ListenAndServe(":8080", server.Handler())
//
// # Store Implementations
//
// The stores package provides a file-based IdentityStore suitable for
// development, and stores/gorm provides a GORM-backed store for production
// databases.
//
// # Security
//
// Passwords are hashed using bcrypt with default cost. Local login failures
// are reported uniformly whether the username is unknown or the password is
// wrong, and a dummy bcrypt comparison keeps the two paths close in timing.
// OAuth2 flows are CSRF-protected with a random state value carried in a
// short-lived cookie.
//
// # Testing
//
// Handlers can be tested without a running HTTP server using
// httptest.NewRequest and httptest.ResponseRecorder. Tests use temporary
// storage directories for complete isolation.
package secretkeep
