// Command server runs the Secretkeep demo application: local
// username/password auth plus Google and Facebook OAuth2, all guarding a
// single /secrets page.
package main

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/caarlos0/env/v11"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/secretkeep/secretkeep"
	skoauth2 "github.com/secretkeep/secretkeep/oauth2"
	"github.com/secretkeep/secretkeep/stores"
	gormstore "github.com/secretkeep/secretkeep/stores/gorm"
)

// Config is populated from the environment. Either DatabaseDSN or StoragePath
// selects the identity store; DatabaseDSN wins when both are set.
type Config struct {
	Addr         string `env:"SECRETKEEP_ADDR" envDefault:":8080"`
	JWTSecretKey string `env:"SECRETKEEP_JWT_SECRET,required"`

	// Storage. DSN selects the GORM/SQLite store, path the file store.
	DatabaseDSN string `env:"SECRETKEEP_DATABASE_DSN"`
	StoragePath string `env:"SECRETKEEP_STORAGE_PATH" envDefault:"./data"`

	// Base URL prefixing the OAuth callback routes, e.g. http://localhost:8080
	BaseURL string `env:"SECRETKEEP_BASE_URL" envDefault:"http://localhost:8080"`

	GoogleClientID       string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"OAUTH2_FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"OAUTH2_FACEBOOK_CLIENT_SECRET"`

	LogLevel  string `env:"SECRETKEEP_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"SECRETKEEP_LOG_PRETTY" envDefault:"false"`
}

func main() {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := newLogger(cfg)

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening identity store")
	}

	session := scs.New()
	session.Lifetime = 24 * time.Hour
	session.Cookie.HttpOnly = true

	sessions := secretkeep.NewSessionManager(session, store)
	sessions.JWTSecretKey = cfg.JWTSecretKey

	resolver := &secretkeep.Resolver{Store: store}
	local := &secretkeep.LocalAuth{
		ValidateCredentials: secretkeep.NewCredentialsValidator(store),
		Register:            secretkeep.NewRegisterFunc(store),
	}

	google := skoauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret,
		cfg.BaseURL+"/auth/google/secrets", resolver)
	facebook := skoauth2.NewFacebookOAuth2(cfg.FacebookClientID, cfg.FacebookClientSecret,
		cfg.BaseURL+"/auth/facebook/secrets", resolver)

	server := secretkeep.NewServer(sessions, secretkeep.NewRegistry(google, facebook), local, logger)

	logger.Info().Str("addr", cfg.Addr).Msg("listening")
	if err := http.ListenAndServe(cfg.Addr, server.Handler()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stdout
	if cfg.LogPretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func newStore(cfg Config) (secretkeep.IdentityStore, error) {
	if cfg.DatabaseDSN != "" {
		db, err := gorm.Open(sqlite.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, err
		}
		return gormstore.NewIdentityStore(db), nil
	}
	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return nil, err
	}
	return stores.NewFSIdentityStore(cfg.StoragePath), nil
}
