// Package ratelimit throttles credential submissions per client and per
// account with fixed windows.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
)

// Limiter counts events per key in fixed windows. Expired windows are
// swept at most once per window length. It is safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	duration  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New returns a limiter allowing limit events per duration and key.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow records an event for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.duration {
		l.sweep(now)
	}
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many events key has left in its window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Sweep drops expired windows.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(l.now())
}

func (l *Limiter) sweep(now time.Time) {
	l.lastSweep = now
	for key, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, key)
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the host
// part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Messages shown when a submission is throttled.
const (
	TooManyFromClient = "Too many attempts. Please wait a minute and try again."
	TooManyForAccount = "Too many attempts for this account. Please wait a few minutes."
)

// AuthLimiter guards the login and register forms. Sign-in attempts are
// limited per client and per email; sign-ups per client.
type AuthLimiter struct {
	client  *Limiter
	account *Limiter
	signup  *Limiter
}

// NewAuthLimiter uses 10 sign-ins per client per minute, 5 per email per
// 5 minutes, and 5 sign-ups per client per 10 minutes.
func NewAuthLimiter() *AuthLimiter {
	return &AuthLimiter{
		client:  New(10, time.Minute),
		account: New(5, 5*time.Minute),
		signup:  New(5, 10*time.Minute),
	}
}

// CheckSignIn records a sign-in attempt. It returns "" when allowed, or
// the message to show.
func (a *AuthLimiter) CheckSignIn(r *http.Request, email string) string {
	if !a.client.Allow(ClientIP(r)) {
		return TooManyFromClient
	}
	if key := text.Fold(strings.TrimSpace(email)); key != "" && !a.account.Allow(key) {
		return TooManyForAccount
	}
	return ""
}

// SignedIn clears the per-email count after a successful sign-in.
func (a *AuthLimiter) SignedIn(email string) {
	if key := text.Fold(strings.TrimSpace(email)); key != "" {
		a.account.Reset(key)
	}
}

// CheckSignUp records a sign-up attempt.
func (a *AuthLimiter) CheckSignUp(r *http.Request) string {
	if !a.signup.Allow(ClientIP(r)) {
		return TooManyFromClient
	}
	return ""
}
