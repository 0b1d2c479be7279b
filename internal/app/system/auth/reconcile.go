package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/system/notify"
	"github.com/fuelbox/fuelbox/internal/app/system/timeouts"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CheckFailedMessage is shown when the provider cannot be asked for the
// current principal.
const CheckFailedMessage = "Error checking authentication status"

// Result is the outcome of one reconcile step.
type Result struct {
	State UIState
	// Token is the token to keep in the session. It differs from the input
	// when the provider refreshed it and is nil when the input was rejected.
	Token *oauth2.Token
	// Notice is set when the provider call failed.
	Notice *notify.Notification
}

// Reconcile asks the identity provider who tok belongs to. A provider
// failure yields Anonymous plus an error notice; the caller never sees the
// error itself.
func (sm *SessionManager) Reconcile(ctx context.Context, tok *oauth2.Token) Result {
	if tok == nil || tok.AccessToken == "" {
		return Result{State: Anonymous()}
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), sm.log, "reconcile session")
	defer cancel()

	p, fresh, err := sm.identity.CurrentUser(ctx, tok)
	if err != nil {
		sm.log.Error("error checking authentication status", zap.Error(err))
		return Result{
			State:  Anonymous(),
			Token:  tok,
			Notice: notify.New(notify.Error, CheckFailedMessage),
		}
	}
	if p == nil {
		return Result{State: Anonymous()}
	}
	if fresh == nil {
		fresh = tok
	}
	return Result{State: Authenticated(p), Token: fresh}
}

// LoadSession reconciles the session on every request and attaches the
// resulting UIState, the session and a notification slot to the request
// context.
//
// A notification carried over from the previous response is placed in the
// slot first so that a reconcile failure replaces it. The session is only
// written back when one of those steps changed it; a browser without a
// session cookie leaves with none.
func (sm *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := sm.Session(r)
		dirty := false

		ctx, slot := notify.WithSlot(r.Context())
		if n, changed := sm.takeCarried(s, time.Now()); changed {
			dirty = true
			if n != nil {
				slot.Set(n)
			}
		}

		tok := tokenFrom(s)
		res := sm.Reconcile(ctx, tok)
		if res.Notice != nil {
			slot.Set(res.Notice)
		}
		if tok != nil {
			switch {
			case res.Token == nil:
				clearToken(s)
				dirty = true
			case res.Token.AccessToken != tok.AccessToken:
				putToken(s, res.Token)
				dirty = true
			}
		}

		if dirty {
			_ = sm.save(w, r, s)
		}

		ctx = withSession(ctx, s)
		ctx = context.WithValue(ctx, stateCtxKey, res.State)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentState returns the UIState attached by LoadSession, or Anonymous.
func CurrentState(r *http.Request) UIState {
	if st, ok := r.Context().Value(stateCtxKey).(UIState); ok {
		return st
	}
	return Anonymous()
}

// WithState returns r carrying st. Handlers use it after a sign-in or
// sign-out changes the state mid-request.
func WithState(r *http.Request, st UIState) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), stateCtxKey, st))
}
