package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"go.uber.org/zap"
)

// TestSessionKey is a 32+ char key accepted by auth.NewSessionManager.
const TestSessionKey = "test-session-key-must-be-32-chars-long"

// NewSessionManager returns a cookie-backed session manager over id.
func NewSessionManager(t *testing.T, id backend.Identity) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(id, TestSessionKey, "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

// FormRequest builds a urlencoded POST request.
func FormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// CarryCookies copies the Set-Cookie headers of rec onto req, so a test can
// follow a browser across requests.
func CarryCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	latest := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		latest[c.Name] = c
	}
	for _, c := range latest {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

// Serve runs req through the session middleware and h.
func Serve(sm *auth.SessionManager, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	sm.LoadSession(h).ServeHTTP(rec, req)
	return rec
}
