// Package notify holds the single pending notification a page shows.
//
// A page has one notification slot. Setting a notification replaces
// whatever was there, so two failures in quick succession leave only the
// second message. Notifications dismiss themselves after a TTL; one that is
// already older than the TTL when a page is rendered is dropped.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultTTL is how long a notification stays on screen.
const DefaultTTL = 5 * time.Second

// Severity selects the notification style.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Error   Severity = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// New returns a notification stamped with the current time.
func New(sev Severity, msg string) *Notification {
	return &Notification{Message: msg, Severity: sev, CreatedAt: time.Now()}
}

// Remaining returns how much of ttl is left at now, or zero when expired.
func (n *Notification) Remaining(now time.Time, ttl time.Duration) time.Duration {
	if n == nil {
		return 0
	}
	left := ttl - now.Sub(n.CreatedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether n is past its TTL at now.
func (n *Notification) Expired(now time.Time, ttl time.Duration) bool {
	return n.Remaining(now, ttl) <= 0
}

// Encode serializes n for the browser session.
func Encode(n *Notification) (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a value produced by Encode.
func Decode(s string) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Slot holds at most one notification for the current request.
type Slot struct {
	mu sync.Mutex
	n  *Notification
}

// Set replaces the pending notification.
func (s *Slot) Set(n *Notification) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.n = n
	s.mu.Unlock()
}

// Get returns the pending notification, or nil.
func (s *Slot) Get() *Notification {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Clear empties the slot.
func (s *Slot) Clear() { s.Set(nil) }

type ctxKey struct{}

// WithSlot attaches a fresh slot to ctx.
func WithSlot(ctx context.Context) (context.Context, *Slot) {
	s := &Slot{}
	return context.WithValue(ctx, ctxKey{}, s), s
}

// FromContext returns the slot attached by WithSlot. A nil slot is safe to
// use and simply discards notifications.
func FromContext(ctx context.Context) *Slot {
	s, _ := ctx.Value(ctxKey{}).(*Slot)
	return s
}

// View is the template-facing form of a notification.
type View struct {
	Message  string
	Severity string
	// DismissMS is how long the page keeps the message visible.
	DismissMS int64
}

// ViewOf converts n for rendering. It returns nil when n is nil or expired.
func ViewOf(n *Notification, now time.Time, ttl time.Duration) *View {
	left := n.Remaining(now, ttl)
	if left <= 0 {
		return nil
	}
	return &View{Message: n.Message, Severity: string(n.Severity), DismissMS: left.Milliseconds()}
}
