package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type userJSON struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userJSON) principal() *backend.Principal {
	p := &backend.Principal{ID: u.ID, Email: u.Email}
	if name, ok := u.UserMetadata["name"].(string); ok {
		p.DisplayName = name
	}
	return p
}

type sessionJSON struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         *userJSON `json:"user"`
}

func (s sessionJSON) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
	}
	switch {
	case s.ExpiresAt > 0:
		tok.Expiry = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return tok
}

// signUpJSON matches both sign-up replies: a bare user when email
// confirmation is on, a session wrapping the user when it is off.
type signUpJSON struct {
	userJSON
	User *userJSON `json:"user"`
}

// CurrentUser implements backend.Identity.
func (c *Client) CurrentUser(ctx context.Context, tok *oauth2.Token) (*backend.Principal, *oauth2.Token, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, nil, nil
	}

	if !tok.Valid() {
		if tok.RefreshToken == "" {
			return nil, nil, nil
		}
		fresh, err := c.refresh(ctx, tok.RefreshToken)
		if err != nil {
			if backend.KindOf(err) == backend.AuthError {
				c.log.Info("refresh token rejected; treating session as ended", zap.Error(err))
				return nil, nil, nil
			}
			return nil, nil, err
		}
		tok = fresh
	}

	resp, err := c.do(ctx, c.bearerClient(ctx, tok), request{method: http.MethodGet, path: "/auth/v1/user"})
	if err != nil {
		return nil, nil, backend.Wrap(backend.UnknownError, "unable to reach authentication service", err)
	}
	switch {
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return nil, nil, nil
	case !resp.ok():
		return nil, nil, statusError(resp, backend.UnknownError)
	}

	var u userJSON
	if err := json.Unmarshal(resp.body, &u); err != nil {
		return nil, nil, backend.Wrap(backend.UnknownError, "unexpected response from authentication service", err)
	}
	if u.ID == "" {
		return nil, nil, nil
	}
	return u.principal(), tok, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	resp, err := c.do(ctx, c.http, request{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=refresh_token",
		body:   map[string]string{"refresh_token": refreshToken},
	})
	if err != nil {
		return nil, backend.Wrap(backend.UnknownError, "unable to reach authentication service", err)
	}
	if !resp.ok() {
		return nil, statusError(resp, backend.AuthError)
	}
	var s sessionJSON
	if err := json.Unmarshal(resp.body, &s); err != nil || s.AccessToken == "" {
		return nil, backend.Wrap(backend.UnknownError, "unexpected response from authentication service", err)
	}
	return s.token(), nil
}

// SignUp implements backend.Identity.
func (c *Client) SignUp(ctx context.Context, in backend.SignUpInput) (*backend.Principal, error) {
	body := map[string]any{
		"email":    in.Email,
		"password": in.Password,
	}
	if len(in.Metadata) > 0 {
		body["data"] = in.Metadata
	}

	resp, err := c.do(ctx, c.http, request{method: http.MethodPost, path: "/auth/v1/signup", body: body})
	if err != nil {
		return nil, backend.Wrap(backend.UnknownError, "unable to reach authentication service", err)
	}
	if !resp.ok() {
		return nil, statusError(resp, backend.AuthError)
	}

	var s signUpJSON
	if err := json.Unmarshal(resp.body, &s); err != nil {
		return nil, backend.Wrap(backend.UnknownError, "unexpected response from authentication service", err)
	}
	u := s.userJSON
	if s.User != nil {
		u = *s.User
	}
	if u.ID == "" {
		return nil, backend.Errorf(backend.UnknownError, "authentication service returned no user")
	}
	return u.principal(), nil
}

// SignInWithPassword implements backend.Identity.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Principal, *oauth2.Token, error) {
	resp, err := c.do(ctx, c.http, request{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=password",
		body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, nil, backend.Wrap(backend.UnknownError, "unable to reach authentication service", err)
	}
	if !resp.ok() {
		return nil, nil, statusError(resp, backend.AuthError)
	}

	var s sessionJSON
	if err := json.Unmarshal(resp.body, &s); err != nil {
		return nil, nil, backend.Wrap(backend.UnknownError, "unexpected response from authentication service", err)
	}
	if s.AccessToken == "" || s.User == nil {
		return nil, nil, backend.Errorf(backend.UnknownError, "authentication service returned no session")
	}
	return s.User.principal(), s.token(), nil
}

// SignOut implements backend.Identity. A token the server no longer
// recognizes counts as signed out.
func (c *Client) SignOut(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return nil
	}
	resp, err := c.do(ctx, c.bearerClient(ctx, tok), request{method: http.MethodPost, path: "/auth/v1/logout"})
	if err != nil {
		return backend.Wrap(backend.UnknownError, "unable to reach authentication service", err)
	}
	switch {
	case resp.ok(), resp.status == http.StatusUnauthorized, resp.status == http.StatusNotFound:
		return nil
	default:
		return statusError(resp, backend.AuthError)
	}
}
