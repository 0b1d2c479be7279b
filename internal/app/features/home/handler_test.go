package home

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
	"github.com/fuelbox/fuelbox/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *testutil.FakeBackend, *auth.SessionManager, *[]homeData) {
	t.Helper()
	fb := testutil.NewFakeBackend()
	sm := testutil.NewSessionManager(t, fb)
	h := NewHandler(sm, view.NewRenderer(), zap.NewNop())
	var pages []homeData
	h.Render = func(w http.ResponseWriter, r *http.Request, name string, data any) {
		pages = append(pages, data.(homeData))
	}
	return h, fb, sm, &pages
}

func TestServeRoot_Anonymous(t *testing.T) {
	h, _, sm, pages := newTestHandler(t)
	testutil.Serve(sm, http.HandlerFunc(h.ServeRoot), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(*pages) != 1 {
		t.Fatalf("renders: got %d, want 1", len(*pages))
	}
	data := (*pages)[0]
	if data.Regions.Region(view.AuthSection).Hidden {
		t.Error("auth panel should be visible")
	}
	if !data.Regions.Region(view.Dashboard).Hidden {
		t.Error("dashboard should be hidden")
	}
	if data.Notification != nil {
		t.Errorf("unexpected notification %+v", data.Notification)
	}
}

func TestServeRoot_Authenticated(t *testing.T) {
	h, fb, sm, pages := newTestHandler(t)
	fb.AddAccount("a@b.com", "secret", "Alex")
	tok := fb.Login("a@b.com")

	rec := testutil.Serve(sm, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = sm.SaveToken(w, r, tok)
	}), httptest.NewRequest(http.MethodGet, "/", nil))

	req := testutil.CarryCookies(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	testutil.Serve(sm, http.HandlerFunc(h.ServeRoot), req)

	data := (*pages)[0]
	if got := data.Regions.Region(view.WelcomeMessage).Text; got != "Welcome, Alex" {
		t.Errorf("welcome: got %q", got)
	}
	if !data.Regions.Region(view.AuthSection).Hidden || data.Regions.Region(view.Dashboard).Hidden {
		t.Error("expected dashboard visible and auth panel hidden")
	}
}

func TestServeRoot_ProviderDown(t *testing.T) {
	h, fb, sm, pages := newTestHandler(t)
	fb.AddAccount("a@b.com", "secret", "")
	tok := fb.Login("a@b.com")

	rec := testutil.Serve(sm, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = sm.SaveToken(w, r, tok)
	}), httptest.NewRequest(http.MethodGet, "/", nil))
	fb.CurrentUserErr = errors.New("connection reset by peer")

	req := testutil.CarryCookies(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	testutil.Serve(sm, http.HandlerFunc(h.ServeRoot), req)

	data := (*pages)[0]
	if data.IsLoggedIn {
		t.Error("fail-safe state is anonymous")
	}
	if data.Notification == nil || data.Notification.Message != auth.CheckFailedMessage {
		t.Errorf("notification: got %+v", data.Notification)
	}
}
