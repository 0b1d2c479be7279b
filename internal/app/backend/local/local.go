// Package local implements backend.Backend on MongoDB so FuelBox can run
// without a hosted provider. Accounts live in auth_users, revoked tokens in
// auth_revocations, and every other table name maps to a collection of the
// same name.
package local

import (
	"context"
	"errors"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	accountsCollection    = "auth_users"
	revocationsCollection = "auth_revocations"

	// DefaultTokenTTL matches the hosted provider's default access-token life.
	DefaultTokenTTL = time.Hour

	// MinPasswordLength matches the hosted provider's default policy.
	MinPasswordLength = 6
)

// Options configures a Backend.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	Logger    *zap.Logger
}

// Backend is the MongoDB implementation of backend.Backend.
type Backend struct {
	db          *mongo.Database
	accounts    *mongo.Collection
	revocations *mongo.Collection
	tokens      *tokenIssuer
	log         *zap.Logger
}

var _ backend.Backend = (*Backend)(nil)

// New returns a Backend over db.
func New(db *mongo.Database, opts Options) (*Backend, error) {
	if db == nil {
		return nil, errors.New("local backend: database is required")
	}
	tokens, err := newTokenIssuer(opts.JWTSecret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		db:          db,
		accounts:    db.Collection(accountsCollection),
		revocations: db.Collection(revocationsCollection),
		tokens:      tokens,
		log:         logger,
	}, nil
}

// EnsureIndexes creates the unique email index and the TTL index that
// expires revocation entries once the token they revoke has expired.
func (b *Backend) EnsureIndexes(ctx context.Context) error {
	_, err := b.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email_ci", Value: 1}},
		Options: options.Index().SetName("uniq_auth_users_email_ci").SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = b.revocations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetName("ttl_auth_revocations").SetExpireAfterSeconds(0),
	})
	return err
}

// Ping implements backend.Backend.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return backend.Wrap(backend.UnknownError, "database unavailable", err)
	}
	return nil
}

// Records implements backend.Backend. Row-level policies are not enforced
// locally, so the token is not consulted.
func (b *Backend) Records(_ *oauth2.Token) backend.Records {
	return &records{db: b.db}
}
