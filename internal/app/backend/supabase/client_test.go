package supabase_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/backend/supabase"
	"github.com/fuelbox/fuelbox/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const anonKey = "anon-key-for-tests"

// seen records what the fake server received.
type seen struct {
	mu      sync.Mutex
	method  string
	path    string
	query   string
	auth    string
	apikey  string
	prefer  string
	body    map[string]any
	rawBody string
}

func newServer(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) (*supabase.Client, *seen) {
	t.Helper()
	s := &seen{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.method = r.Method
		s.path = r.URL.Path
		s.query = r.URL.RawQuery
		s.auth = r.Header.Get("Authorization")
		s.apikey = r.Header.Get("apikey")
		s.prefer = r.Header.Get("Prefer")
		s.rawBody = string(b)
		s.body = nil
		_ = json.Unmarshal(b, &s.body)
		s.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := supabase.New(supabase.Options{URL: srv.URL + "/", AnonKey: anonKey, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, s
}

func writeJSON(w http.ResponseWriter, status int, v string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, v)
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	if _, err := supabase.New(supabase.Options{AnonKey: "k"}); err == nil {
		t.Error("expected error for missing URL")
	}
	if _, err := supabase.New(supabase.Options{URL: "http://x"}); err == nil {
		t.Error("expected error for missing anon key")
	}
}

func TestSignInWithPassword_Success(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"access_token":"at-1","token_type":"bearer","expires_in":3600,"refresh_token":"rt-1",
			"user":{"id":"u1","email":"a@b.com","user_metadata":{}}}`)
	})

	p, tok, err := c.SignInWithPassword(context.Background(), "a@b.com", "secret")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if p.ID != "u1" || p.Email != "a@b.com" || p.DisplayName != "" {
		t.Errorf("principal: got %+v", p)
	}
	if p.Name() != "a@b.com" {
		t.Errorf("Name: got %q, want %q", p.Name(), "a@b.com")
	}
	if tok.AccessToken != "at-1" || tok.RefreshToken != "rt-1" {
		t.Errorf("token: got %+v", tok)
	}
	if tok.Expiry.Before(time.Now().Add(50 * time.Minute)) {
		t.Errorf("expiry too early: %v", tok.Expiry)
	}
	if s.path != "/auth/v1/token" || s.query != "grant_type=password" {
		t.Errorf("request: got %s?%s", s.path, s.query)
	}
	if s.apikey != anonKey {
		t.Errorf("apikey: got %q", s.apikey)
	}
	if s.body["email"] != "a@b.com" || s.body["password"] != "secret" {
		t.Errorf("body: got %v", s.body)
	}
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
	})

	_, _, err := c.SignInWithPassword(context.Background(), "a@b.com", "wrong")
	if backend.KindOf(err) != backend.AuthError {
		t.Fatalf("kind: got %q, want %q (err=%v)", backend.KindOf(err), backend.AuthError, err)
	}
	if backend.Message(err) != "Invalid login credentials" {
		t.Errorf("message: got %q", backend.Message(err))
	}
}

func TestSignUp_ConfirmationRequired(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"id":"u2","email":"new@b.com","user_metadata":{"name":"Nia"}}`)
	})

	p, err := c.SignUp(context.Background(), backend.SignUpInput{
		Email:    "new@b.com",
		Password: "longenough",
		Metadata: map[string]any{"name": "Nia"},
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if p.ID != "u2" || p.DisplayName != "Nia" {
		t.Errorf("principal: got %+v", p)
	}
	data, _ := s.body["data"].(map[string]any)
	if data["name"] != "Nia" {
		t.Errorf("metadata not sent: %v", s.body)
	}
}

func TestSignUp_AutoConfirmedSession(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"access_token":"at","user":{"id":"u3","email":"x@b.com"}}`)
	})

	p, err := c.SignUp(context.Background(), backend.SignUpInput{Email: "x@b.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if p.ID != "u3" {
		t.Errorf("ID: got %q, want %q", p.ID, "u3")
	}
}

func TestSignUp_WeakPassword(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, `{"code":422,"error_code":"weak_password","msg":"Password should be at least 6 characters."}`)
	})

	_, err := c.SignUp(context.Background(), backend.SignUpInput{Email: "x@b.com", Password: "123"})
	if backend.KindOf(err) != backend.AuthError {
		t.Fatalf("kind: got %q", backend.KindOf(err))
	}
	if backend.Message(err) != "Password should be at least 6 characters." {
		t.Errorf("message: got %q", backend.Message(err))
	}
}

func TestCurrentUser_NoToken(t *testing.T) {
	called := false
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	p, tok, err := c.CurrentUser(context.Background(), nil)
	if p != nil || tok != nil || err != nil {
		t.Errorf("got (%v, %v, %v), want all nil", p, tok, err)
	}
	if called {
		t.Error("server should not be called without a token")
	}
}

func TestCurrentUser_SendsBearer(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"id":"u1","email":"a@b.com","user_metadata":{"name":"Alex"}}`)
	})

	in := &oauth2.Token{AccessToken: "at-1", Expiry: time.Now().Add(time.Hour)}
	p, tok, err := c.CurrentUser(context.Background(), in)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if p == nil || p.Name() != "Alex" {
		t.Fatalf("principal: got %+v", p)
	}
	if tok.AccessToken != "at-1" {
		t.Errorf("token should be unchanged, got %q", tok.AccessToken)
	}
	if s.auth != "Bearer at-1" {
		t.Errorf("Authorization: got %q", s.auth)
	}
}

func TestCurrentUser_RejectedTokenIsAnonymous(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, `{"msg":"invalid JWT"}`)
	})

	p, _, err := c.CurrentUser(context.Background(), &oauth2.Token{AccessToken: "bad"})
	if err != nil || p != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", p, err)
	}
}

func TestCurrentUser_ServerErrorFails(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 503, `{"message":"upstream down"}`)
	})

	_, _, err := c.CurrentUser(context.Background(), &oauth2.Token{AccessToken: "at"})
	if backend.KindOf(err) != backend.UnknownError {
		t.Errorf("kind: got %q, want %q", backend.KindOf(err), backend.UnknownError)
	}
}

func TestCurrentUser_RefreshesExpiredToken(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/token" {
			writeJSON(w, 200, `{"access_token":"at-2","refresh_token":"rt-2","expires_in":3600}`)
			return
		}
		writeJSON(w, 200, `{"id":"u1","email":"a@b.com"}`)
	})

	old := &oauth2.Token{AccessToken: "at-1", RefreshToken: "rt-1", Expiry: time.Now().Add(-time.Minute)}
	p, tok, err := c.CurrentUser(context.Background(), old)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if p == nil || p.ID != "u1" {
		t.Fatalf("principal: got %+v", p)
	}
	if tok.AccessToken != "at-2" {
		t.Errorf("token: got %q, want refreshed %q", tok.AccessToken, "at-2")
	}
	if s.auth != "Bearer at-2" {
		t.Errorf("user lookup should use refreshed token, got %q", s.auth)
	}
}

func TestSignOut(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.SignOut(context.Background(), &oauth2.Token{AccessToken: "at-1"}); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if s.method != http.MethodPost || s.path != "/auth/v1/logout" {
		t.Errorf("request: got %s %s", s.method, s.path)
	}
}

func TestRecords_Insert(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	err := c.Records(nil).Insert(context.Background(), models.ProfilesTable, models.Profile{
		ID: "u1", Email: "a@b.com", Name: "Alex", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if s.path != "/rest/v1/users" || s.method != http.MethodPost {
		t.Errorf("request: got %s %s", s.method, s.path)
	}
	if s.auth != "Bearer "+anonKey {
		t.Errorf("anon bearer expected, got %q", s.auth)
	}
	if !strings.Contains(s.rawBody, `"id":"u1"`) || strings.Contains(s.rawBody, "last_login") {
		t.Errorf("body: got %s", s.rawBody)
	}
}

func TestRecords_InsertError(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 409, `{"code":"23505","message":"duplicate key value violates unique constraint"}`)
	})

	err := c.Records(nil).Insert(context.Background(), "users", map[string]any{"id": "u1"})
	if backend.KindOf(err) != backend.StorageError {
		t.Errorf("kind: got %q, want %q", backend.KindOf(err), backend.StorageError)
	}
	if backend.Message(err) != "duplicate key value violates unique constraint" {
		t.Errorf("message: got %q", backend.Message(err))
	}
}

func TestRecords_UpdateCountsRows(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `[{"id":"u1"}]`)
	})

	n, err := c.Records(&oauth2.Token{AccessToken: "at-1"}).Update(context.Background(), "users",
		map[string]any{"last_login": "2025-01-01T00:00:00Z"}, backend.Filter{"id": "u1"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Errorf("matched: got %d, want 1", n)
	}
	if s.method != http.MethodPatch || s.query != "id=eq.u1" {
		t.Errorf("request: got %s ?%s", s.method, s.query)
	}
	if s.prefer != "return=representation" {
		t.Errorf("Prefer: got %q", s.prefer)
	}
	if s.auth != "Bearer at-1" {
		t.Errorf("Authorization: got %q", s.auth)
	}
}

func TestRecords_SelectBuildsQuery(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `[{"id":"f1","name":"Protein Bowl","price":12.5,"is_featured":true}]`)
	})

	var items []models.FoodItem
	err := c.Records(nil).Select(context.Background(), models.FoodItemsTable, backend.Query{
		Columns: []string{"id", "name"},
		Order:   &backend.SortOrder{Column: "created_at", Descending: true},
		Limit:   10,
	}, &items)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Protein Bowl" || !items[0].IsFeatured {
		t.Errorf("items: got %+v", items)
	}
	if s.query != "limit=10&order=created_at.desc&select=id%2Cname" {
		t.Errorf("query: got %q", s.query)
	}
}

func TestRecords_RPC(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `["food_item","users"]`)
	})

	var tables []string
	if err := c.Records(nil).RPC(context.Background(), "get_table_names", &tables); err != nil {
		t.Fatalf("RPC: %v", err)
	}
	if len(tables) != 2 {
		t.Errorf("tables: got %v", tables)
	}
	if s.path != "/rest/v1/rpc/get_table_names" {
		t.Errorf("path: got %q", s.path)
	}
}

func TestPing(t *testing.T) {
	c, s := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"name":"GoTrue"}`)
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if s.path != "/auth/v1/health" {
		t.Errorf("path: got %q", s.path)
	}
}
