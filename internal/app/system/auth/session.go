package auth

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/system/notify"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "fuelbox-session"

	sessionIDKey    = "sid"
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
	tokenTypeKey    = "token_type"
	tokenExpiryKey  = "token_expiry"
	notificationKey = "notification"
)

// SessionManager owns the browser session and the reconcile step that turns
// the provider token stored in it into a UIState.
type SessionManager struct {
	store     sessions.Store
	name      string
	identity  backend.Identity
	notifyTTL time.Duration
	log       *zap.Logger
}

// CookieOptions returns the cookie settings shared by every session store.
//
// In production (secure=true) cookies are Secure with SameSite=Lax. In local
// dev over http://localhost use secure=false so cookies are accepted.
func CookieOptions(domain string, maxAge time.Duration, secure bool) *sessions.Options {
	return &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewCookieStore builds a signed and encrypted cookie store from sessionKey.
func NewCookieStore(sessionKey, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*sessions.CookieStore, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	encKey := sha256.Sum256([]byte("fuelbox-session-encryption:" + sessionKey))
	store := sessions.NewCookieStore([]byte(sessionKey), encKey[:])
	store.MaxAge(int(maxAge.Seconds()))
	store.Options = CookieOptions(domain, maxAge, secure)
	return store, nil
}

// NewSessionManager creates a manager backed by a cookie store.
func NewSessionManager(identity backend.Identity, sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	store, err := NewCookieStore(sessionKey, domain, maxAge, secure, logger)
	if err != nil {
		return nil, err
	}
	sm := NewSessionManagerWithStore(identity, store, name, logger)
	logger.Info("session store initialized",
		zap.String("store", "cookie"),
		zap.Bool("secure", secure),
		zap.String("domain", domain))
	return sm, nil
}

// NewSessionManagerWithStore creates a manager on top of any gorilla store.
func NewSessionManagerWithStore(identity backend.Identity, store sessions.Store, name string, logger *zap.Logger) *SessionManager {
	if name == "" {
		name = DefaultSessionName
	}
	return &SessionManager{
		store:     store,
		name:      name,
		identity:  identity,
		notifyTTL: notify.DefaultTTL,
		log:       logger,
	}
}

// SetNotificationTTL changes how long notifications stay visible.
func (sm *SessionManager) SetNotificationTTL(d time.Duration) {
	if d > 0 {
		sm.notifyTTL = d
	}
}

// NotificationTTL returns the notification display time.
func (sm *SessionManager) NotificationTTL() time.Duration { return sm.notifyTTL }

// Name returns the session cookie name.
func (sm *SessionManager) Name() string { return sm.name }

/*─────────────────────────────────────────────────────────────────────────────*
| Session access                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey int

const (
	sessionCtxKey ctxKey = iota
	stateCtxKey
)

// Session returns the browser session for r. Within LoadSession the same
// *sessions.Session is shared by the middleware and the handler, so values
// written by either are saved together.
func (sm *SessionManager) Session(r *http.Request) *sessions.Session {
	if s, ok := r.Context().Value(sessionCtxKey).(*sessions.Session); ok {
		return s
	}
	s, err := sm.store.Get(r, sm.name)
	if err != nil {
		// A bad or stale cookie yields a fresh session.
		sm.log.Debug("session decode failed; starting fresh", zap.Error(err))
	}
	if s == nil {
		s = sessions.NewSession(sm.store, sm.name)
	}
	return s
}

// save persists s. The session id is assigned on the first save, so a
// browser that never stores anything never gets a session.
func (sm *SessionManager) save(w http.ResponseWriter, r *http.Request, s *sessions.Session) error {
	if getString(s, sessionIDKey) == "" {
		s.Values[sessionIDKey] = newSessionID()
	}
	if err := s.Save(r, w); err != nil {
		sm.log.Error("session save failed", zap.Error(err))
		return err
	}
	return nil
}

// SessionID returns the stable per-browser session id, or "" before the
// session was first saved.
func (sm *SessionManager) SessionID(r *http.Request) string {
	return getString(sm.Session(r), sessionIDKey)
}

// EnsureSessionID returns the session id, saving the session first when the
// browser has none yet. Form handlers call it before taking a guard.
func (sm *SessionManager) EnsureSessionID(w http.ResponseWriter, r *http.Request) string {
	s := sm.Session(r)
	if sid := getString(s, sessionIDKey); sid != "" {
		return sid
	}
	_ = sm.save(w, r, s)
	return getString(s, sessionIDKey)
}

// Token returns the provider token stored in the session, or nil.
func (sm *SessionManager) Token(r *http.Request) *oauth2.Token {
	return tokenFrom(sm.Session(r))
}

// SaveToken stores tok in the session.
func (sm *SessionManager) SaveToken(w http.ResponseWriter, r *http.Request, tok *oauth2.Token) error {
	s := sm.Session(r)
	putToken(s, tok)
	return sm.save(w, r, s)
}

// ClearToken removes the provider token from the session.
func (sm *SessionManager) ClearToken(w http.ResponseWriter, r *http.Request) error {
	s := sm.Session(r)
	clearToken(s)
	return sm.save(w, r, s)
}

// Carry persists n in the session so the next page load shows it for the
// rest of its TTL. It replaces any notification already carried.
func (sm *SessionManager) Carry(w http.ResponseWriter, r *http.Request, n *notify.Notification) error {
	enc, err := notify.Encode(n)
	if err != nil {
		return err
	}
	s := sm.Session(r)
	s.Values[notificationKey] = enc
	return sm.save(w, r, s)
}

// takeCarried removes and returns a carried notification that is still
// within its TTL. It reports whether the session changed.
func (sm *SessionManager) takeCarried(s *sessions.Session, now time.Time) (*notify.Notification, bool) {
	raw, ok := s.Values[notificationKey].(string)
	if !ok {
		return nil, false
	}
	delete(s.Values, notificationKey)
	n, err := notify.Decode(raw)
	if err != nil {
		sm.log.Debug("dropping undecodable notification", zap.Error(err))
		return nil, true
	}
	if n.Expired(now, sm.notifyTTL) {
		return nil, true
	}
	return n, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| Token (de)serialization                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func tokenFrom(s *sessions.Session) *oauth2.Token {
	access := getString(s, accessTokenKey)
	if access == "" {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    getString(s, tokenTypeKey),
		RefreshToken: getString(s, refreshTokenKey),
	}
	if exp, ok := s.Values[tokenExpiryKey].(int64); ok && exp > 0 {
		tok.Expiry = time.Unix(exp, 0)
	}
	return tok
}

func putToken(s *sessions.Session, tok *oauth2.Token) {
	if tok == nil || tok.AccessToken == "" {
		clearToken(s)
		return
	}
	s.Values[accessTokenKey] = tok.AccessToken
	s.Values[tokenTypeKey] = tok.TokenType
	s.Values[refreshTokenKey] = tok.RefreshToken
	if tok.Expiry.IsZero() {
		delete(s.Values, tokenExpiryKey)
	} else {
		s.Values[tokenExpiryKey] = tok.Expiry.Unix()
	}
}

func clearToken(s *sessions.Session) {
	delete(s.Values, accessTokenKey)
	delete(s.Values, tokenTypeKey)
	delete(s.Values, refreshTokenKey)
	delete(s.Values, tokenExpiryKey)
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func newSessionID() string { return uuid.NewString() }

func withSession(ctx context.Context, s *sessions.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}
