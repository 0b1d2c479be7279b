package local

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// account is a stored identity.
type account struct {
	ID           string         `bson:"_id"`
	Email        string         `bson:"email"`
	EmailCI      string         `bson:"email_ci"`
	PasswordHash string         `bson:"password_hash"`
	Metadata     map[string]any `bson:"metadata,omitempty"`
	CreatedAt    time.Time      `bson:"created_at"`
	LastSignInAt *time.Time     `bson:"last_sign_in_at,omitempty"`
}

func (a account) principal() *backend.Principal {
	p := &backend.Principal{ID: a.ID, Email: a.Email}
	if name, ok := a.Metadata["name"].(string); ok {
		p.DisplayName = name
	}
	return p
}

// revocation marks a token id as signed out until the token expires.
type revocation struct {
	ID        string    `bson:"_id"` // jti
	AccountID string    `bson:"account_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

var errInvalidCredentials = backend.Errorf(backend.AuthError, "Invalid login credentials")

// SignUp implements backend.Identity.
func (b *Backend) SignUp(ctx context.Context, in backend.SignUpInput) (*backend.Principal, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, backend.Errorf(backend.AuthError, "Unable to validate email address: invalid format")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, backend.Errorf(backend.AuthError, "Password should be at least %d characters.", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, backend.Wrap(backend.UnknownError, "unable to create account", err)
	}

	acct := account{
		ID:           uuid.NewString(),
		Email:        email,
		EmailCI:      text.Fold(email),
		PasswordHash: string(hash),
		Metadata:     in.Metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := b.accounts.InsertOne(ctx, acct); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, backend.Errorf(backend.AuthError, "User already registered")
		}
		return nil, backend.Wrap(backend.UnknownError, "unable to create account", err)
	}

	b.log.Info("account created", zap.String("account_id", acct.ID))
	return acct.principal(), nil
}

// SignInWithPassword implements backend.Identity.
func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*backend.Principal, *oauth2.Token, error) {
	var acct account
	err := b.accounts.FindOne(ctx, bson.M{"email_ci": text.Fold(strings.TrimSpace(email))}).Decode(&acct)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil, errInvalidCredentials
	case err != nil:
		return nil, nil, backend.Wrap(backend.UnknownError, "unable to sign in", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, nil, errInvalidCredentials
	}

	tok, err := b.tokens.issue(acct.ID, acct.Email)
	if err != nil {
		return nil, nil, backend.Wrap(backend.UnknownError, "unable to sign in", err)
	}

	now := time.Now().UTC()
	if _, err := b.accounts.UpdateOne(ctx, bson.M{"_id": acct.ID}, bson.M{"$set": bson.M{"last_sign_in_at": now}}); err != nil {
		b.log.Warn("record last sign-in failed", zap.String("account_id", acct.ID), zap.Error(err))
	}
	return acct.principal(), tok, nil
}

// CurrentUser implements backend.Identity. Invalid, expired and revoked
// tokens resolve to no principal.
func (b *Backend) CurrentUser(ctx context.Context, tok *oauth2.Token) (*backend.Principal, *oauth2.Token, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, nil, nil
	}
	c, err := b.tokens.verify(tok.AccessToken)
	if err != nil {
		b.log.Debug("access token rejected", zap.Error(err))
		return nil, nil, nil
	}

	n, err := b.revocations.CountDocuments(ctx, bson.M{"_id": c.ID})
	if err != nil {
		return nil, nil, backend.Wrap(backend.UnknownError, "unable to check session", err)
	}
	if n > 0 {
		return nil, nil, nil
	}

	var acct account
	err = b.accounts.FindOne(ctx, bson.M{"_id": c.Subject}).Decode(&acct)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil, nil
	case err != nil:
		return nil, nil, backend.Wrap(backend.UnknownError, "unable to load account", err)
	}
	return acct.principal(), tok, nil
}

// SignOut implements backend.Identity by revoking the token id.
func (b *Backend) SignOut(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return nil
	}
	c, err := b.tokens.verify(tok.AccessToken)
	if err != nil {
		// already unusable
		return nil
	}
	rev := revocation{ID: c.ID, AccountID: c.Subject, ExpiresAt: c.ExpiresAt.Time}
	if _, err := b.revocations.InsertOne(ctx, rev); err != nil && !mongo.IsDuplicateKeyError(err) {
		return backend.Wrap(backend.UnknownError, "unable to sign out", err)
	}
	return nil
}
