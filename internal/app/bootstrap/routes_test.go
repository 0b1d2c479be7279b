package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/fuelbox/fuelbox/internal/app/resources"
	"github.com/fuelbox/fuelbox/internal/testutil"
)

func buildTestHandler(t *testing.T, fb *testutil.FakeBackend) http.Handler {
	t.Helper()
	resources.LoadSharedTemplates()

	appCfg := validLocal()
	appCfg.SessionName = "fuelbox-session"
	appCfg.SessionMaxAge = time.Hour
	appCfg.StaticDir = filepath.Join("..", "..", "..", DefaultStaticDir)

	h, err := BuildHandler(&config.CoreConfig{Env: "test"}, appCfg, DBDeps{Backend: fb}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	return h
}

func sessionCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "fuelbox-session" {
			out = append(out, c)
		}
	}
	return out
}

func TestBuildHandler_HealthSkipsSession(t *testing.T) {
	fb := testutil.NewFakeBackend()
	h := buildTestHandler(t, fb)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
		}
		if got := rec.Header().Values("Set-Cookie"); len(got) != 0 {
			t.Errorf("health check set cookies: %q", got)
		}
	}
	if fb.Called("CurrentUser") {
		t.Error("health check must not reconcile")
	}
}

func TestBuildHandler_ServesStylesheet(t *testing.T) {
	fb := testutil.NewFakeBackend()
	h := buildTestHandler(t, fb)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/site.css", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("content type: got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), ".featured-badge") {
		t.Error("stylesheet body missing expected rules")
	}
	if got := rec.Header().Values("Set-Cookie"); len(got) != 0 {
		t.Errorf("static asset set cookies: %q", got)
	}
}

func TestBuildHandler_AnonymousPageCreatesNoSession(t *testing.T) {
	fb := testutil.NewFakeBackend()
	h := buildTestHandler(t, fb)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if got := sessionCookies(rec); len(got) != 0 {
		t.Errorf("anonymous page view wrote a session: %v", got)
	}
}
