package auth

import "github.com/fuelbox/fuelbox/internal/app/backend"

// UIState is the binary authentication state a page is rendered for.
// It is built by the reconciler or from a successful sign-in, never from
// form input.
type UIState struct {
	principal *backend.Principal
}

// Anonymous is the signed-out state.
func Anonymous() UIState { return UIState{} }

// Authenticated is the signed-in state for p. A nil p yields Anonymous.
func Authenticated(p *backend.Principal) UIState { return UIState{principal: p} }

// IsAuthenticated reports whether a principal is present.
func (s UIState) IsAuthenticated() bool { return s.principal != nil }

// Principal returns the signed-in principal or nil.
func (s UIState) Principal() *backend.Principal { return s.principal }

func (s UIState) String() string {
	if s.principal == nil {
		return "anonymous"
	}
	return "authenticated"
}
