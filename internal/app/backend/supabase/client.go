// Package supabase implements backend.Backend against a Supabase-compatible
// REST API: GoTrue for identity (/auth/v1) and PostgREST for records
// (/rest/v1).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Options configures a Client.
type Options struct {
	URL        string // project URL, e.g. https://xyzcompany.supabase.co
	AnonKey    string // public anon key; sent as apikey on every call
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to one Supabase project.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     *zap.Logger
}

var _ backend.Backend = (*Client)(nil)

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("supabase: URL is required")
	}
	if strings.TrimSpace(opts.AnonKey) == "" {
		return nil, errors.New("supabase: anon key is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.URL, "/"),
		anonKey: opts.AnonKey,
		http:    hc,
		log:     logger,
	}, nil
}

// bearerClient returns an HTTP client that authorizes as tok, or as the
// anon role when tok is empty.
func (c *Client) bearerClient(ctx context.Context, tok *oauth2.Token) *http.Client {
	if tok == nil || tok.AccessToken == "" {
		tok = &oauth2.Token{AccessToken: c.anonKey, TokenType: "Bearer"}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
}

// request is one API call.
type request struct {
	method  string
	path    string // joined to baseURL, may carry a query string
	body    any
	headers map[string]string
}

// response is the raw outcome of a call that reached the server.
type response struct {
	status int
	body   []byte
}

func (r response) ok() bool { return r.status >= 200 && r.status < 300 }

// do sends req with hc. Transport failures return an error; HTTP error
// statuses do not, so callers can classify them per endpoint.
func (c *Client) do(ctx context.Context, hc *http.Client, req request) (response, error) {
	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return response{}, fmt.Errorf("supabase: encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return response{}, fmt.Errorf("supabase: build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		c.log.Warn("supabase request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err))
		return response{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("supabase: read %s %s: %w", req.method, req.path, err)
	}
	c.log.Debug("supabase request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))
	return response{status: resp.StatusCode, body: b}, nil
}

// apiError covers both GoTrue and PostgREST error bodies.
type apiError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error"`
	Details          string `json:"details"`
}

// errorMessage extracts the most specific message from an error body.
func errorMessage(r response) string {
	var ae apiError
	if err := json.Unmarshal(r.body, &ae); err == nil {
		for _, m := range []string{ae.Msg, ae.Message, ae.ErrorDescription, ae.ErrorCode} {
			if m != "" {
				return m
			}
		}
	}
	if s := strings.TrimSpace(string(r.body)); s != "" && len(s) < 200 {
		return s
	}
	return http.StatusText(r.status)
}

// statusError turns a non-2xx response into a *backend.Error. Client
// errors get clientKind; server errors are UnknownError.
func statusError(r response, clientKind backend.Kind) *backend.Error {
	kind := clientKind
	if r.status >= 500 {
		kind = backend.UnknownError
	}
	return &backend.Error{Kind: kind, Message: errorMessage(r), Status: r.status}
}

// Ping checks the auth service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, c.http, request{method: http.MethodGet, path: "/auth/v1/health"})
	if err != nil {
		return backend.Wrap(backend.UnknownError, "backend unreachable", err)
	}
	if !resp.ok() {
		return statusError(resp, backend.UnknownError)
	}
	return nil
}
