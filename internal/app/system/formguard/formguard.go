// Package formguard keeps a form from being submitted again while its
// previous submission is still being processed.
package formguard

import "sync"

type key struct {
	session string
	form    string
}

// Guard is a set of in-flight (session, form) pairs. The zero value is not
// usable; call New.
type Guard struct {
	mu   sync.Mutex
	held map[key]struct{}
}

// New returns an empty guard.
func New() *Guard {
	return &Guard{held: make(map[key]struct{})}
}

// Acquire marks form as in flight for session. It returns ok=false when a
// submission is already running. On success the caller must call release,
// normally with defer.
func (g *Guard) Acquire(session, form string) (release func(), ok bool) {
	k := key{session: session, form: form}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[k]; busy {
		return func() {}, false
	}
	g.held[k] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, k)
			g.mu.Unlock()
		})
	}, true
}

// Held reports whether form is in flight for session.
func (g *Guard) Held(session, form string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.held[key{session: session, form: form}]
	return busy
}
