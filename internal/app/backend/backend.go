// Package backend defines the contract FuelBox consumes from its
// identity-and-data service. The service owns password hashing, session
// issuance and persistence; this package only describes the calls.
//
// Two implementations exist: backend/supabase talks to a hosted
// Supabase-compatible REST API, backend/local runs the same contract on
// MongoDB for self-hosted deployments and development.
package backend

import (
	"context"

	"golang.org/x/oauth2"
)

// Principal is the authenticated identity returned by the provider.
type Principal struct {
	ID          string
	Email       string
	DisplayName string // optional; from the "name" sign-up metadata
}

// Name returns the text shown to the user: the display name when the
// provider has one, otherwise the email.
func (p Principal) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// SignUpInput carries the fields of an account-creation request.
type SignUpInput struct {
	Email    string
	Password string
	Metadata map[string]any
}

// Identity is the authentication half of the backend.
type Identity interface {
	// CurrentUser resolves the principal behind tok. A nil token, or a
	// token the provider no longer accepts, yields (nil, nil, nil). The
	// returned token replaces tok when the provider refreshed it.
	CurrentUser(ctx context.Context, tok *oauth2.Token) (*Principal, *oauth2.Token, error)

	// SignUp creates an account. It never starts a session.
	SignUp(ctx context.Context, in SignUpInput) (*Principal, error)

	// SignInWithPassword verifies credentials and issues a token.
	SignInWithPassword(ctx context.Context, email, password string) (*Principal, *oauth2.Token, error)

	// SignOut ends the session behind tok.
	SignOut(ctx context.Context, tok *oauth2.Token) error
}

// SortOrder describes a single ORDER BY column.
type SortOrder struct {
	Column     string
	Descending bool
}

// Query describes a select. Zero values mean "all columns", "unordered"
// and "no limit".
type Query struct {
	Columns []string
	Order   *SortOrder
	Limit   int
}

// Filter is an equality filter: every key must equal its value.
type Filter map[string]any

// Records is the storage half of the backend. Implementations are bound to
// the caller's token so row-level policies apply.
type Records interface {
	Insert(ctx context.Context, table string, record any) error
	// Update applies patch to rows matching filter and reports how many
	// rows matched.
	Update(ctx context.Context, table string, patch map[string]any, filter Filter) (int64, error)
	// Select decodes matching rows into out, which must be a pointer to a
	// slice.
	Select(ctx context.Context, table string, q Query, out any) error
	// RPC calls a named server-side function and decodes its result.
	RPC(ctx context.Context, name string, out any) error
}

// Backend bundles identity, token-bound record storage and a liveness probe.
type Backend interface {
	Identity
	Records(tok *oauth2.Token) Records
	Ping(ctx context.Context) error
}
