// Package tablestore is a minimal client for the hosted REST table store (PostgREST dialect).
package tablestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
)

// RestPrefix is the path under which tables are served.
const RestPrefix = "/rest/v1"

// Request describes a single table store call.
type Request struct {
	Method string     // GET when empty
	Table  string     // e.g. "messages"
	Query  url.Values // select, filters, order, limit
	Body   any        // JSON-encoded when non-nil
	Prefer string     // Prefer header, e.g. "return=representation"
}

// Doer is implemented by *Client and by fakes in tests.
type Doer interface {
	Do(ctx context.Context, req Request, role model.Role) (json.RawMessage, error)
}

// ObserveFunc receives request metadata after each call.
type ObserveFunc func(method, table string, status int, dur time.Duration)

// Options configures a Client.
type Options struct {
	BaseURL    string
	AnonKey    string
	Exec       ExecutionContext
	HTTPClient *http.Client
	Logger     *zap.Logger
	Observe    ObserveFunc
}

// Client issues authenticated requests against the table store.
type Client struct {
	base    string
	anonKey string
	exec    ExecutionContext
	http    *http.Client
	log     *zap.Logger
	observe ObserveFunc
}

var _ Doer = (*Client)(nil)

// New validates options and builds a Client. Missing URL or anon key is a configuration error.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: table store URL is not defined", errs.ErrConfig)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: table store URL: %v", errs.ErrConfig, err)
	}
	if opts.AnonKey == "" {
		return nil, fmt.Errorf("%w: anon key is not defined", errs.ErrConfig)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:    base,
		anonKey: opts.AnonKey,
		exec:    opts.Exec,
		http:    hc,
		log:     log,
		observe: opts.Observe,
	}, nil
}

// Do sends the request with the credential selected by role and returns the raw JSON body,
// or nil for 204 / empty responses. Non-2xx statuses yield *StatusError or *UnknownColumnError.
func (c *Client) Do(ctx context.Context, req Request, role model.Role) (json.RawMessage, error) {
	key, err := c.exec.key(role, c.anonKey)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.base + RestPrefix + "/" + strings.TrimPrefix(req.Table, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("apikey", key)
	hreq.Header.Set("Authorization", "Bearer "+key)
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if req.Prefer != "" {
		hreq.Header.Set("Prefer", req.Prefer)
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		c.done(method, req.Table, 0, start)
		return nil, err
	}
	defer resp.Body.Close()
	c.done(method, req.Table, resp.StatusCode, start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classify(resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

func (c *Client) done(method, table string, status int, start time.Time) {
	dur := time.Since(start)
	// metadata only, never payloads or keys
	c.log.Debug("table store",
		zap.String("method", method),
		zap.String("table", table),
		zap.Int("status", status),
		zap.Duration("dur", dur),
	)
	if c.observe != nil {
		c.observe(method, table, status, dur)
	}
}

// DoJSON runs req and decodes the response into T. Empty responses yield the zero value and false.
func DoJSON[T any](ctx context.Context, d Doer, req Request, role model.Role) (T, bool, error) {
	var out T
	raw, err := d.Do(ctx, req, role)
	if err != nil {
		return out, false, err
	}
	if raw == nil {
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode response: %w", err)
	}
	return out, true, nil
}
