package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"golang.org/x/oauth2"
)

type fakeAccount struct {
	principal backend.Principal
	password  string
}

// FakeBackend is an in-memory backend.Backend for handler tests.
//
// Accounts and sessions behave like a real provider. Each *Err field, when
// set, makes the matching call fail with that error instead. Every call is
// appended to Calls as "Method arg".
type FakeBackend struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount // by lower-cased email
	sessions map[string]string       // access token -> email
	seq      int

	CurrentUserErr error
	SignUpErr      error
	SignInErr      error
	SignOutErr     error
	PingErr        error

	Recs  *FakeRecords
	Calls []string
}

// NewFakeBackend returns an empty fake with empty records.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		accounts: map[string]*fakeAccount{},
		sessions: map[string]string{},
		Recs:     NewFakeRecords(),
	}
}

func (f *FakeBackend) record(call string) {
	f.Calls = append(f.Calls, call)
}

// Called reports whether a call starting with prefix was made.
func (f *FakeBackend) Called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// AddAccount registers an account directly and returns its principal.
func (f *FakeBackend) AddAccount(email, password, name string) backend.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	p := backend.Principal{ID: fmt.Sprintf("user-%d", f.seq), Email: email, DisplayName: name}
	f.accounts[strings.ToLower(email)] = &fakeAccount{principal: p, password: password}
	return p
}

// Login issues a token for an existing account without going through
// SignInWithPassword.
func (f *FakeBackend) Login(email string) *oauth2.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issue(strings.ToLower(email))
}

func (f *FakeBackend) issue(key string) *oauth2.Token {
	f.seq++
	access := fmt.Sprintf("access-%d", f.seq)
	f.sessions[access] = key
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: fmt.Sprintf("refresh-%d", f.seq),
		Expiry:       time.Now().Add(time.Hour),
	}
}

// CurrentUser implements backend.Identity.
func (f *FakeBackend) CurrentUser(_ context.Context, tok *oauth2.Token) (*backend.Principal, *oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CurrentUser")
	if f.CurrentUserErr != nil {
		return nil, nil, f.CurrentUserErr
	}
	if tok == nil {
		return nil, nil, nil
	}
	key, ok := f.sessions[tok.AccessToken]
	if !ok {
		return nil, nil, nil
	}
	p := f.accounts[key].principal
	return &p, tok, nil
}

// SignUp implements backend.Identity.
func (f *FakeBackend) SignUp(_ context.Context, in backend.SignUpInput) (*backend.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SignUp " + in.Email)
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	key := strings.ToLower(in.Email)
	if _, exists := f.accounts[key]; exists {
		return nil, backend.Errorf(backend.AuthError, "User already registered")
	}
	f.seq++
	p := backend.Principal{ID: fmt.Sprintf("user-%d", f.seq), Email: in.Email}
	if name, ok := in.Metadata["name"].(string); ok {
		p.DisplayName = name
	}
	f.accounts[key] = &fakeAccount{principal: p, password: in.Password}
	return &p, nil
}

// SignInWithPassword implements backend.Identity.
func (f *FakeBackend) SignInWithPassword(_ context.Context, email, password string) (*backend.Principal, *oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SignInWithPassword " + email)
	if f.SignInErr != nil {
		return nil, nil, f.SignInErr
	}
	key := strings.ToLower(email)
	acct, ok := f.accounts[key]
	if !ok || acct.password != password {
		return nil, nil, backend.Errorf(backend.AuthError, "Invalid login credentials")
	}
	p := acct.principal
	return &p, f.issue(key), nil
}

// SignOut implements backend.Identity.
func (f *FakeBackend) SignOut(_ context.Context, tok *oauth2.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SignOut")
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	if tok != nil {
		delete(f.sessions, tok.AccessToken)
	}
	return nil
}

// Records implements backend.Backend.
func (f *FakeBackend) Records(_ *oauth2.Token) backend.Records { return f.Recs }

// Ping implements backend.Backend.
func (f *FakeBackend) Ping(context.Context) error { return f.PingErr }

// FakeRecords stores rows as JSON-shaped maps keyed by table.
type FakeRecords struct {
	mu     sync.Mutex
	tables map[string][]map[string]any

	InsertErr error
	UpdateErr error
	SelectErr error
	RPCErr    error
	// SelectDelay makes Select block for the given time or until ctx ends.
	SelectDelay time.Duration

	Calls []string
}

// NewFakeRecords returns empty records.
func NewFakeRecords() *FakeRecords {
	return &FakeRecords{tables: map[string][]map[string]any{}}
}

// Rows returns a copy of the rows stored in table.
func (r *FakeRecords) Rows(table string) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.tables[table]...)
}

// Called reports whether a call starting with prefix was made.
func (r *FakeRecords) Called(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func toRow(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// Insert implements backend.Records.
func (r *FakeRecords) Insert(_ context.Context, table string, record any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "Insert "+table)
	if r.InsertErr != nil {
		return r.InsertErr
	}
	row, err := toRow(record)
	if err != nil {
		return err
	}
	r.tables[table] = append(r.tables[table], row)
	return nil
}

// Update implements backend.Records. Filters match on equality.
func (r *FakeRecords) Update(_ context.Context, table string, patch map[string]any, filter backend.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "Update "+table)
	if r.UpdateErr != nil {
		return 0, r.UpdateErr
	}
	p, err := toRow(patch)
	if err != nil {
		return 0, err
	}
	f, err := toRow(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, row := range r.tables[table] {
		if !matches(row, f) {
			continue
		}
		for k, v := range p {
			row[k] = v
		}
		n++
	}
	return n, nil
}

func matches(row, filter map[string]any) bool {
	for k, v := range filter {
		if fmt.Sprint(row[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

// Select implements backend.Records. Ordering is by the string form of the
// order column.
func (r *FakeRecords) Select(ctx context.Context, table string, q backend.Query, out any) error {
	r.mu.Lock()
	r.Calls = append(r.Calls, "Select "+table)
	delay, selErr := r.SelectDelay, r.SelectErr
	rows := append([]map[string]any(nil), r.tables[table]...)
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return backend.Wrap(backend.NetworkTimeoutError, "select "+table, ctx.Err())
		}
	}
	if selErr != nil {
		return selErr
	}

	if q.Order != nil {
		col, desc := q.Order.Column, q.Order.Descending
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := fmt.Sprint(rows[i][col]), fmt.Sprint(rows[j][col])
			if desc {
				return a > b
			}
			return a < b
		})
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	b, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// RPC implements backend.Records.
func (r *FakeRecords) RPC(_ context.Context, name string, out any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "RPC "+name)
	if r.RPCErr != nil {
		return r.RPCErr
	}
	if names, ok := out.(*[]string); ok {
		*names = (*names)[:0]
		for t := range r.tables {
			*names = append(*names, t)
		}
		sort.Strings(*names)
	}
	return nil
}

var _ backend.Backend = (*FakeBackend)(nil)
