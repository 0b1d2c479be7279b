package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"golang.org/x/oauth2"
)

// records is a PostgREST client bound to one token.
type records struct {
	c   *Client
	tok *oauth2.Token
}

// Records implements backend.Backend.
func (c *Client) Records(tok *oauth2.Token) backend.Records {
	return &records{c: c, tok: tok}
}

func (r *records) send(ctx context.Context, req request) (response, error) {
	resp, err := r.c.do(ctx, r.c.bearerClient(ctx, r.tok), req)
	if err != nil {
		return response{}, backend.Wrap(backend.StorageError, "database connection error", err)
	}
	if !resp.ok() {
		return response{}, statusError(resp, backend.StorageError)
	}
	return resp, nil
}

// Insert implements backend.Records.
func (r *records) Insert(ctx context.Context, table string, record any) error {
	_, err := r.send(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/" + url.PathEscape(table),
		body:    []any{record},
		headers: map[string]string{"Prefer": "return=minimal"},
	})
	return err
}

// Update implements backend.Records.
func (r *records) Update(ctx context.Context, table string, patch map[string]any, filter backend.Filter) (int64, error) {
	resp, err := r.send(ctx, request{
		method:  http.MethodPatch,
		path:    "/rest/v1/" + url.PathEscape(table) + "?" + filterQuery(filter).Encode(),
		body:    patch,
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return 0, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(resp.body, &rows); err != nil {
		return 0, backend.Wrap(backend.StorageError, "unexpected response from database", err)
	}
	return int64(len(rows)), nil
}

// Select implements backend.Records.
func (r *records) Select(ctx context.Context, table string, q backend.Query, out any) error {
	v := url.Values{}
	if len(q.Columns) > 0 {
		v.Set("select", strings.Join(q.Columns, ","))
	} else {
		v.Set("select", "*")
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		v.Set("order", q.Order.Column+"."+dir)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	resp, err := r.send(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/" + url.PathEscape(table) + "?" + v.Encode(),
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return backend.Wrap(backend.StorageError, "unexpected response from database", err)
	}
	return nil
}

// RPC implements backend.Records.
func (r *records) RPC(ctx context.Context, name string, out any) error {
	resp, err := r.send(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/rpc/" + url.PathEscape(name),
		body:   map[string]any{},
	})
	if err != nil {
		return err
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return backend.Wrap(backend.StorageError, "unexpected response from database", err)
	}
	return nil
}

// filterQuery renders an equality filter as PostgREST query params.
func filterQuery(f backend.Filter) url.Values {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := url.Values{}
	for _, k := range keys {
		v.Set(k, "eq."+fmt.Sprint(f[k]))
	}
	return v
}
